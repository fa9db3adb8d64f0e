package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"go.uber.org/zap"

	"browsergate/errors"
	"browsergate/http/handlers"
	apxmiddlewares "browsergate/http/middleware"
	apxresp "browsergate/http/response"
)

// Server is the REST adapter over the Pool Manager and command surface.
// Grounded on the teacher's http/server.go: same chi router, the same
// middleware stack, and the same (response any, status int, err error)
// handler convention, wrapped here by Server.wrap — only the routes and
// handlers are gateway-specific.
type Server struct {
	Logger          *zap.Logger
	AllowedOrigins  []string
	PoolHandler     *handlers.PoolHandler
	CommandsHandler *handlers.CommandsHandler
}

func NewServer(logger *zap.Logger, allowedOrigins []string, pool *handlers.PoolHandler, cmds *handlers.CommandsHandler) *Server {
	return &Server{
		Logger:          logger,
		AllowedOrigins:  allowedOrigins,
		PoolHandler:     pool,
		CommandsHandler: cmds,
	}
}

func (s *Server) router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(apxmiddlewares.NewLoggerWithMetrics(s.Logger, &apxmiddlewares.Opts{}))
	r.Use(middleware.Recoverer)
	r.Use(apxmiddlewares.EnabCors(s.AllowedOrigins))

	r.Route("/v1", func(r chi.Router) {
		r.Post("/browsers/acquire", s.wrap(s.PoolHandler.Acquire))
		r.Post("/browsers/{browserId}/release", s.wrap(s.PoolHandler.Release))
		r.Get("/browsers", s.wrap(s.PoolHandler.ListInstances))
		r.Post("/browsers/{browserId}/pages", s.wrap(s.PoolHandler.CreatePage))
		r.Delete("/browsers/{browserId}/pages/{pageId}", s.wrap(s.PoolHandler.ClosePage))

		r.Post("/pages/{pageId}/navigate", s.wrap(s.CommandsHandler.Navigate))
		r.Post("/pages/{pageId}/evaluate", s.wrap(s.CommandsHandler.Evaluate))
		r.Get("/pages/{pageId}/screenshot", s.wrap(s.CommandsHandler.Screenshot))

		r.Get("/metrics", s.wrap(s.PoolHandler.MetricsSnapshot))
		r.Post("/shutdown", s.wrap(s.PoolHandler.Shutdown))
	})

	return r
}

// Listen starts the HTTP server and blocks until ctx is cancelled or the
// server fails, mirroring the teacher's Listen shutdown-on-ctx pattern.
func (s *Server) Listen(ctx context.Context, addr string) error {
	server := &http.Server{Addr: addr, Handler: s.router()}

	errch := make(chan error, 1)
	go func() {
		s.Logger.Info("starting REST adapter", zap.String("addr", addr))
		errch <- server.ListenAndServe()
	}()

	select {
	case err := <-errch:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	}
}

func (s *Server) wrap(handler func(w http.ResponseWriter, r *http.Request) (any, int, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response, status, err := handler(w, r)
		if err != nil {
			switch e := err.(type) {
			case *errors.Error:
				apxresp.RespondError(w, e)
			default:
				s.Logger.Error("internal error", zap.Error(err))
				apxresp.RespondMessage(w, http.StatusInternalServerError, "internal error")
			}
			return
		}
		if response != nil {
			apxresp.RespondJSON(w, status, response)
			return
		}
		w.WriteHeader(status)
	}
}
