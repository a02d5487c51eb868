// Package cli builds the quizwire command tree.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/tmorrow-dev/quizwire/internal/client"
	"github.com/tmorrow-dev/quizwire/internal/protocol"
	"github.com/tmorrow-dev/quizwire/internal/quiz"
	"github.com/tmorrow-dev/quizwire/internal/server"
	"github.com/tmorrow-dev/quizwire/internal/session"
)

const releaseVersion = "0.1.0"

func New() *cobra.Command {
	root := &cobra.Command{
		Use:           "quizwire",
		Short:         "Host and join multiplayer terminal quizzes.",
		Version:       releaseVersion,
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.SetVersionTemplate("quizwire v{{.Version}}\n")
	root.CompletionOptions.HiddenDefaultCmd = true

	root.AddCommand(newServeCmd(), newConnectCmd())
	return root
}

type serveConfig struct {
	questions string
	bind      string
	port      int
	verbose   bool
}

func (c *serveConfig) validate() error {
	if c.questions == "" {
		return errors.New("a questions file is required (-q)")
	}
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.port)
	}
	return nil
}

func newServeCmd() *cobra.Command {
	cfg := &serveConfig{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the quiz coordinator and host console.",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg)
		},
	}

	fs := cmd.Flags()
	fs.StringVarP(&cfg.questions, "questions", "q", "", "path to the questions file (env: QUIZWIRE_QUESTIONS)")
	fs.StringVarP(&cfg.bind, "bind", "b", "0.0.0.0", "address to bind to (env: QUIZWIRE_BIND)")
	fs.IntVarP(&cfg.port, "port", "p", protocol.DefaultPort, "port to listen on (env: QUIZWIRE_PORT)")
	fs.BoolVarP(&cfg.verbose, "verbose", "v", false, "log at debug level (env: QUIZWIRE_VERBOSE)")
	bindEnv(fs)

	return cmd
}

type connectConfig struct {
	host     string
	port     int
	username string
}

func newConnectCmd() *cobra.Command {
	cfg := &connectConfig{}

	cmd := &cobra.Command{
		Use:   "connect",
		Short: "Join a quiz as a participant.",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return client.Run(ctx, client.Config{
				Host:     cfg.host,
				Port:     cfg.port,
				Username: cfg.username,
			}, os.Stdin, os.Stdout)
		},
	}

	fs := cmd.Flags()
	fs.StringVarP(&cfg.host, "host", "H", "localhost", "server host to connect to (env: QUIZWIRE_HOST)")
	fs.IntVarP(&cfg.port, "port", "p", protocol.DefaultPort, "server port (env: QUIZWIRE_PORT)")
	fs.StringVarP(&cfg.username, "username", "u", "", "username to join with (env: QUIZWIRE_USERNAME)")
	bindEnv(fs)

	return cmd
}

// bindEnv binds every flag to a QUIZWIRE_* environment variable, so
// flags win when set and the environment fills the gaps.
func bindEnv(fs *pflag.FlagSet) {
	v := viper.New()
	v.SetEnvPrefix("QUIZWIRE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})
}

func runServe(parent context.Context, cfg *serveConfig) error {
	questions, err := quiz.Load(cfg.questions)
	if err != nil {
		return err
	}

	log, err := newLogger(cfg.verbose)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	log.Info("questions loaded",
		zap.String("path", cfg.questions),
		zap.Int("count", len(questions)))

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	sess := session.New(ctx, session.Config{Questions: questions, Logger: log})
	srv := server.New(server.Config{Bind: cfg.bind, Port: cfg.port}, sess, log)
	return srv.Run(ctx)
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stderr"}
	return cfg.Build()
}
