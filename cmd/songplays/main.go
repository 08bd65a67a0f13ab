package main

import (
	"context"
	_ "embed"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/tigerroll/songplays/internal/app"
	config "github.com/tigerroll/songplays/pkg/batch/core/config"
	"github.com/tigerroll/songplays/pkg/batch/support/util/logger"
)

// embeddedConfig is the default configuration compiled into the binary.
//
//go:embed resources/application.yaml
var embeddedConfig []byte

// exitError carries a non-zero exit code out of the command.
type exitError struct {
	code int
}

func (e exitError) Error() string {
	return "songplays run failed"
}

type flags struct {
	configFile   string
	settingsFile string
	input        string
	output       string
	logLevel     string
	publishMode  string
	dedupe       bool
	sequential   bool
}

func newRootCommand() *cobra.Command {
	var f flags

	cmd := &cobra.Command{
		Use:           "songplays",
		Short:         "Build the songplays star schema from song and event JSON",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			// Signal handling for graceful shutdown (e.g., Ctrl+C)
			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
			defer signal.Stop(sigChan)
			go func() {
				select {
				case sig := <-sigChan:
					logger.Warnf("Received signal '%v'. Attempting to stop the job...", sig)
					cancel()
				case <-ctx.Done():
				}
			}()

			opts := config.LoadOptions{
				Embedded:     config.EmbeddedConfig(embeddedConfig),
				ConfigFile:   f.configFile,
				SettingsFile: f.settingsFile,
				Overrides:    overrides(cmd.Flags(), f),
			}
			if code := app.RunApplication(ctx, opts); code != app.ExitOK {
				return exitError{code: code}
			}
			return nil
		},
	}

	fs := cmd.Flags()
	fs.StringVar(&f.configFile, "config", "", "YAML configuration file replacing the embedded one")
	fs.StringVar(&f.settingsFile, "settings", os.Getenv("SONGPLAYS_SETTINGS_FILE"), "KEY=VALUE settings file holding credentials (dl.cfg)")
	fs.StringVar(&f.input, "input", "", "input base location (local path, s3a://, gs://)")
	fs.StringVar(&f.output, "output", "", "output base location (local path, s3a://, gs://)")
	fs.StringVar(&f.logLevel, "log-level", "", "DEBUG, INFO, WARN or ERROR")
	fs.StringVar(&f.publishMode, "publish-mode", "", "staged or direct")
	fs.BoolVar(&f.dedupe, "dedupe-dimensions", false, "keep one row per artist and per user")
	fs.BoolVar(&f.sequential, "sequential", false, "run the catalog and event steps one after the other")
	return cmd
}

// overrides turns the flags into config overrides. Boolean flags only
// override the configuration when given explicitly.
func overrides(fs *pflag.FlagSet, f flags) config.Overrides {
	o := config.Overrides{
		InputBase:   f.input,
		OutputBase:  f.output,
		LogLevel:    f.logLevel,
		PublishMode: f.publishMode,
	}
	if fs.Changed("dedupe-dimensions") {
		v := f.dedupe
		o.DedupeDimensions = &v
	}
	if fs.Changed("sequential") {
		v := f.sequential
		o.SequentialExtract = &v
	}
	return o
}

func main() {
	if err := newRootCommand().ExecuteContext(context.Background()); err != nil {
		if exit, ok := err.(exitError); ok {
			os.Exit(exit.code)
		}
		logger.Errorf("%v", err)
		os.Exit(app.ExitFailed)
	}
}
