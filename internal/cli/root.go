package cli

import (
	"TrafficParser/internal/config"
	"TrafficParser/internal/factory"
	"TrafficParser/internal/logging"
	"TrafficParser/internal/metrics"
	"TrafficParser/internal/model"
	"TrafficParser/internal/store"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	// Store backends register their URL schemes with the factory.
	_ "TrafficParser/internal/store/chstore"
	_ "TrafficParser/internal/store/sqlstore"
)

// app carries the state shared by the commands of one invocation.
type app struct {
	stdout    io.Writer
	stderr    io.Writer
	lookupEnv func(string) (string, bool)

	configFile  string
	envFile     string
	database    string
	logLevel    string
	logFile     string
	metricsFile string

	cfg       *config.Config
	log       zerolog.Logger
	logCloser io.Closer
	metrics   *metrics.Metrics
}

func newApp(stdout, stderr io.Writer) *app {
	return &app{
		stdout:    stdout,
		stderr:    stderr,
		lookupEnv: os.LookupEnv,
		log:       zerolog.Nop(),
		metrics:   metrics.New(),
	}
}

// Execute runs the command line and returns the process exit code.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	return newApp(stdout, stderr).execute(ctx, args)
}

func (a *app) execute(ctx context.Context, args []string) int {
	root := a.rootCommand()
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)

	if a.cfg != nil && a.cfg.Metrics.File != "" {
		if werr := a.metrics.WriteTextfile(a.cfg.Metrics.File); werr != nil {
			a.log.Warn().Err(werr).Msg("Failed to write metrics file")
		}
	}
	if a.logCloser != nil {
		_ = a.logCloser.Close()
	}

	if err != nil {
		fmt.Fprintf(a.stderr, "Error: %v\n", err)
	}
	return ExitCode(err)
}

// ExitCode maps an error to the process exit status: 0 on success, 2 for
// configuration and not-found errors, 1 otherwise.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, model.ErrConfiguration), errors.Is(err, model.ErrNotFound):
		return 2
	default:
		return 1
	}
}

func (a *app) rootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "traffic-parser",
		Short: "Parse capture files into a traffic store and export them as JSON",
		Long: `traffic-parser reads pcap and pcapng files from a directory, normalizes every
frame into a traffic record, stores the records in a database and exports
filtered views of them as JSON bundles with statistics.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}
	cmd.SetOut(a.stdout)
	cmd.SetErr(a.stderr)
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return model.Configurationf("%v", err)
	})

	flags := cmd.PersistentFlags()
	flags.StringVar(&a.configFile, "config", "", "YAML configuration file")
	flags.StringVar(&a.envFile, "env-file", ".env", "dotenv file read before the process environment")
	flags.StringVar(&a.database, "database", "", "database URL (sqlite:///path, postgres://..., clickhouse://...)")
	flags.StringVar(&a.logLevel, "log-level", "", "log level (trace, debug, info, warn, error, disabled)")
	flags.StringVar(&a.logFile, "log-file", "", "also write logs to this rotating file")
	flags.StringVar(&a.metricsFile, "metrics-file", "", "write Prometheus metrics to this file on exit")

	cmd.AddCommand(
		a.initCommand(),
		a.parseCommand(),
		a.exportCommand(),
		a.serveCommand(),
		a.tailCommand(),
	)
	return cmd
}

// setup loads the configuration, applies the global flags and builds the
// logger. Command flags are applied by each command before validation.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(config.LoadOptions{File: a.configFile, EnvFile: a.envFile, LookupEnv: a.lookupEnv})
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("database") {
		cfg.Database.URL = a.database
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = a.logLevel
	}
	if flags.Changed("log-file") {
		cfg.Log.File = a.logFile
	}
	if flags.Changed("metrics-file") {
		cfg.Metrics.File = a.metricsFile
	}
	a.cfg = cfg

	log, closer, err := logging.New(logging.Options{
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
		Console:    a.stderr,
	})
	if err != nil {
		return err
	}
	a.log = log.With().Str("command", cmd.Name()).Logger()
	a.logCloser = closer
	return nil
}

// openStore validates the final configuration, then opens and initializes
// the configured store.
func (a *app) openStore(ctx context.Context) (store.Store, error) {
	if err := a.cfg.Validate(); err != nil {
		return nil, err
	}
	s, err := factory.OpenStore(ctx, a.cfg.Database.URL, a.log)
	if err != nil {
		return nil, err
	}
	if err := s.Init(ctx); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}
