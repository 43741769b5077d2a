// Command topicdexctl indexes corpora and models and repairs the registry
// from the command line.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/topicdex/internal/app"
	"github.com/kailas-cloud/topicdex/internal/config"
	logpkg "github.com/kailas-cloud/topicdex/internal/logger"
	"github.com/kailas-cloud/topicdex/internal/version"
)

// Exit codes.
const (
	ExitSuccess     = 0
	ExitError       = 1
	ExitConfigError = 2
	ExitIssues      = 3 // reconcile found unrepaired issues
)

var (
	envName    string
	jsonOutput bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(ExitError)
	}
}

var rootCmd = &cobra.Command{
	Use:   "topicdexctl",
	Short: "Manage topicdex corpora, models and the registry",
	Long: `topicdexctl runs the indexing and maintenance operations of topicdex
directly against the search engine, without going through the HTTP API.

Configuration is read from config/<env>.yaml; a .env file in the working
directory is loaded first.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(*cobra.Command, []string) {
		_ = godotenv.Load()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envName, "env", "", "config environment (default: $ENV or local)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "print results as JSON")
	rootCmd.Version = version.String()
}

// withApp loads the configuration, wires the services and runs fn.
func withApp(fn func(ctx context.Context, a *app.App) error) error {
	env := envName
	if env == "" {
		env = config.GetEnv()
	}
	cfg, err := config.Load(env)
	if err != nil {
		exitWithError(ExitConfigError, "load config: %v", err)
	}

	logger, err := logpkg.NewLogger(env, logpkg.Options{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	if err != nil {
		exitWithError(ExitConfigError, "create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()
	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize services", zap.Error(err))
		return err
	}
	defer a.Close()

	return fn(ctx, a)
}

func exitWithError(code int, format string, args ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
	os.Exit(code)
}
