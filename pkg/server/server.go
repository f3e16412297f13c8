// Package server exposes machines over websockets. Each session owns one
// machine; every text message is one source line and gets one JSON reply.
package server

import (
	"abstractvm/pkg/logging"
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/tliron/commonlog"
)

type Options struct {
	// Secret signs session tokens. Sessions are open to anyone when empty.
	Secret string
	// PasswordHash is the bcrypt hash checked by POST /token.
	PasswordHash string
	TokenTTL     time.Duration
	// MaxLine is the longest accepted line in bytes.
	MaxLine int
}

type Server struct {
	opts     Options
	log      commonlog.Logger
	upgrader websocket.Upgrader
	mux      *http.ServeMux
}

func New(opts Options) *Server {
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = time.Hour
	}
	if opts.MaxLine <= 0 {
		opts.MaxLine = 4096
	}
	s := &Server{
		opts: opts,
		log:  logging.Get("avm.server"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		mux: http.NewServeMux(),
	}
	s.mux.HandleFunc("POST /token", s.handleToken)
	s.mux.HandleFunc("GET /session", s.handleSession)
	s.mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok\n"))
	})
	return s
}

func (s *Server) Handler() http.Handler {
	return s.logRequests(s.mux)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.log.Debugf("[%s] %s", r.Method, r.URL.Path)
		next.ServeHTTP(w, r)
	})
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.log.Noticef("listening on %s", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
