package observability

import (
	"net/http"
	"net/http/pprof"
)

// Config toggles the operator-facing debug surfaces.
type Config struct {
	// Pprof exposes the runtime profiler under /debug/pprof.
	Pprof bool `env:"OBS_PPROF" envDefault:"false"`
}

// Register mounts the enabled debug handlers on mux.
func (c Config) Register(mux *http.ServeMux) {
	if !c.Pprof {
		return
	}
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
}
