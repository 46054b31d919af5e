package app

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/CBTCBTcbtcbtcbt/Integrated-Online-Boardgame-Platform/internal/game"
	"github.com/CBTCBTcbtcbtcbt/Integrated-Online-Boardgame-Platform/internal/observability"
	"github.com/CBTCBTcbtcbtcbt/Integrated-Online-Boardgame-Platform/logging"
)

// Config is the process configuration, populated from the environment.
type Config struct {
	// HTTPAddr is the listen address for the HTTP and websocket server.
	HTTPAddr string `env:"HTTP_ADDR" envDefault:":8080"`

	// AuthMode selects the token resolver: "memory" runs the built-in
	// token store with the /login endpoint, "passthrough" accepts any
	// nonempty token as the account name.
	AuthMode string `env:"AUTH_MODE" envDefault:"memory"`

	// UnitCatalogPath points at an optional JSON catalog overriding the
	// built-in unit roster. Empty keeps the defaults.
	UnitCatalogPath string `env:"UNIT_CATALOG" envDefault:""`

	BoardRows      int `env:"BOARD_ROWS" envDefault:"9"`
	BoardCols      int `env:"BOARD_COLS" envDefault:"9"`
	PointGrant     int `env:"POINT_GRANT" envDefault:"5"`
	PointCap       int `env:"POINT_CAP" envDefault:"20"`
	StartingPoints int `env:"STARTING_POINTS" envDefault:"10"`

	// AIBudget caps per-decision AI planning time.
	AIBudget time.Duration `env:"AI_BUDGET" envDefault:"50ms"`

	// TurnAutoSkip skips a disconnected active player after the grace
	// period. Zero keeps turns parked until the player reconnects.
	TurnAutoSkip time.Duration `env:"TURN_AUTO_SKIP" envDefault:"0"`

	// MailboxSize bounds each room's inbound event queue.
	MailboxSize int `env:"ROOM_MAILBOX" envDefault:"64"`

	// LogJSONPath enables the JSON file sink when nonempty.
	LogJSONPath string `env:"LOG_JSON_PATH" envDefault:""`
	// NATSURL enables the NATS audit sink when nonempty.
	NATSURL     string `env:"NATS_URL" envDefault:""`
	NATSSubject string `env:"NATS_SUBJECT" envDefault:"platform.events"`
	LogDebug    bool   `env:"LOG_DEBUG" envDefault:"false"`

	ShutdownGrace time.Duration `env:"SHUTDOWN_GRACE" envDefault:"10s"`

	Observability observability.Config
}

// LoadConfig reads configuration from the environment.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.AuthMode {
	case "memory", "passthrough":
	default:
		return fmt.Errorf("unsupported AUTH_MODE %q", c.AuthMode)
	}
	if c.BoardRows < 5 || c.BoardCols < 5 {
		return fmt.Errorf("board %dx%d is below the 5x5 minimum", c.BoardRows, c.BoardCols)
	}
	return nil
}

func (c Config) warConfig(catalog *game.Catalog) game.WarConfig {
	cfg := game.DefaultWarConfig()
	cfg.Rows = c.BoardRows
	cfg.Cols = c.BoardCols
	cfg.Grant = c.PointGrant
	cfg.PointCap = c.PointCap
	cfg.StartingPoints = c.StartingPoints
	cfg.Catalog = catalog
	return cfg
}

func (c Config) loggingConfig() logging.Config {
	cfg := logging.DefaultConfig()
	if c.LogDebug {
		cfg.MinimumSeverity = logging.SeverityDebug
	}
	if c.LogJSONPath != "" {
		cfg.EnabledSinks = append(cfg.EnabledSinks, "json")
		cfg.JSON.FilePath = c.LogJSONPath
	}
	if c.NATSURL != "" {
		cfg.EnabledSinks = append(cfg.EnabledSinks, "nats")
		cfg.NATS.URL = c.NATSURL
		cfg.NATS.Subject = c.NATSSubject
	}
	return cfg
}
