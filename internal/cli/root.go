package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/eleven-am/goclip"
	"github.com/eleven-am/goclip/internal/config"
	"github.com/eleven-am/goclip/internal/logging"
)

// Execute runs the root cobra command.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// app carries what the persistent flags resolve to before any subcommand
// runs.
type app struct {
	configPath string
	envFile    string
	logLevel   string
	logFormat  string
	ffmpeg     string
	outputDir  string

	cfg config.Config
	log *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:           "goclip",
		Short:         "Edit videos with ffmpeg from scripts or over HTTP",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd.ErrOrStderr())
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "goclip.yaml", "Path to the YAML config file")
	flags.StringVar(&a.envFile, "env-file", ".env", "Path to a .env file with GOCLIP_* variables")
	flags.StringVar(&a.logLevel, "log-level", "", "Log level: debug, info, warn or error")
	flags.StringVar(&a.logFormat, "log-format", "", "Log format: text or json")
	flags.StringVar(&a.ffmpeg, "ffmpeg", "", "Path to the ffmpeg binary")
	flags.StringVar(&a.outputDir, "output-dir", "", "Directory for derived clips and exports")

	cmd.AddCommand(newApplyCmd(a))
	cmd.AddCommand(newExportCmd(a))
	cmd.AddCommand(newProbeCmd(a))
	cmd.AddCommand(newConcatCmd(a))
	cmd.AddCommand(newFiltersCmd())
	cmd.AddCommand(newDoctorCmd(a))
	cmd.AddCommand(newServeCmd(a))

	return cmd
}

func (a *app) init(logOut io.Writer) error {
	if err := config.LoadEnv(a.envFile); err != nil {
		return err
	}
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}

	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	if a.logFormat != "" {
		cfg.Log.Format = a.logFormat
	}
	if a.ffmpeg != "" {
		cfg.Engine.Binary = a.ffmpeg
	}
	if a.outputDir != "" {
		cfg.Output.Dir = a.outputDir
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	a.cfg = cfg
	a.log = logging.New(cfg.Log.Level, cfg.Log.Format, logOut)
	return nil
}

func (a *app) controller() (*goclip.Controller, error) {
	return goclip.NewController(goclip.Options{
		FFmpegPath:    a.cfg.Engine.Binary,
		OutputDir:     a.cfg.Output.Dir,
		Prefix:        a.cfg.Output.Prefix,
		EngineTimeout: a.cfg.Engine.Timeout,
		ExportTimeout: a.cfg.Engine.ExportTimeout,
		Export:        a.cfg.Export,
		MergeTimeline: a.cfg.MergeTimeline,
		Logger:        a.log,
	})
}
