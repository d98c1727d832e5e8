package httpserver

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
)

// DefaultTimeout applies to every GET when New is given zero.
const DefaultTimeout = 15 * time.Second

type Server struct{ mux *chi.Mux }

// New installs the middleware stack; routes come from MountHandlers and Mount.
func New(timeout time.Duration) *Server {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	m := chi.NewRouter()
	m.Use(chimw.RealIP, chimw.RequestID, chimw.Recoverer, chimw.CleanPath)
	m.Use(Timeout(timeout))
	m.Use(Observe(log.Logger))
	return &Server{mux: m}
}

func (s *Server) Mux() http.Handler { return s.mux }

// Mount attaches an extra handler such as /metrics.
func (s *Server) Mount(path string, h http.Handler) {
	s.mux.Handle(path, h)
}
