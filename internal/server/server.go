// Package server wires the session actor to the network: a chi
// router exposing the WebSocket endpoint, one connection handler per
// client, and the host console loop.
package server

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/tmorrow-dev/quizwire/internal/command"
	"github.com/tmorrow-dev/quizwire/internal/session"
)

type Config struct {
	Bind string
	Port int

	// IdleTimeout closes connections with no inbound frame for this
	// long. Zero means the 5 minute default.
	IdleTimeout time.Duration
}

const defaultIdleTimeout = 5 * time.Minute

type Server struct {
	cfg  Config
	sess *session.Session
	log  *zap.Logger
}

func New(cfg Config, sess *session.Session, log *zap.Logger) *Server {
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = defaultIdleTimeout
	}
	return &Server{cfg: cfg, sess: sess, log: log}
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Get("/ws", s.handleWS)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return r
}

// Run serves until the context is cancelled or the host quits.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              net.JoinHostPort(s.cfg.Bind, strconv.Itoa(s.cfg.Port)),
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       10 * time.Minute,
	}

	quit := make(chan struct{})
	go s.consoleLoop(os.Stdin, os.Stdout, quit)

	errs := make(chan error, 1)
	go func() {
		errs <- srv.ListenAndServe()
	}()
	s.log.Info("listening", zap.String("addr", srv.Addr))

	select {
	case err := <-errs:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
	case <-quit:
	}

	s.sess.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	return nil
}

// consoleLoop reads host commands line by line, dispatches them to
// the session, and prints acknowledgements. Parse errors stay local
// and never reach the session.
func (s *Server) consoleLoop(in io.Reader, out io.Writer, quit chan<- struct{}) {
	fmt.Fprintln(out, "quizwire host console ready. Type 'help' for commands.")

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		cmd, err := command.Parse(scanner.Text())
		if err != nil {
			if errors.Is(err, command.ErrEmpty) {
				continue
			}
			fmt.Fprintln(out, "error:", err)
			continue
		}

		reply := make(chan session.HostReply, 1)
		s.sess.Inbox() <- session.HostCmd{Cmd: cmd, Reply: reply}
		r := <-reply

		if r.Err != nil {
			fmt.Fprintln(out, "error:", r.Err)
		} else if r.Message != "" {
			fmt.Fprintln(out, r.Message)
		}
		if r.Quit {
			close(quit)
			return
		}
	}
}
