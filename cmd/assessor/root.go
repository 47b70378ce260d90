package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"

	"github.com/bytedance/sonic"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/ahrav/go-assessor/internal/configuration"
	"github.com/ahrav/go-assessor/internal/worker"
)

const defaultEnvFile = ".env"

// app carries state shared by subcommands once the root pre-run has loaded
// configuration.
type app struct {
	configPath string
	envFile    string

	cfg    *configuration.Config
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "assessor",
		Short:         "Assess Q/A documents with automated scoring and human review",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
	}
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "path to a YAML configuration file")
	root.PersistentFlags().StringVar(&a.envFile, "env-file", defaultEnvFile, "dotenv file with secrets")

	root.AddCommand(
		newStartCmd(a),
		newResumeCmd(a),
		newStatusCmd(a),
		newListCmd(a),
		newAbandonCmd(a),
		newReportCmd(a),
		newWorkerCmd(a),
	)
	return root
}

func (a *app) init(cmd *cobra.Command) error {
	if err := godotenv.Load(a.envFile); err != nil {
		// The default file is optional; an explicit one is not.
		if !errors.Is(err, fs.ErrNotExist) || cmd.Flags().Changed("env-file") {
			return fmt.Errorf("load env file %s: %w", a.envFile, err)
		}
	}

	cfg, err := configuration.Load(a.configPath)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = worker.NewLogger(cfg.Observability)
	slog.SetDefault(a.logger)
	return nil
}

// warnIfEphemeral flags commands that read sessions written by another
// process while the checkpoint store only lives in this one.
func (a *app) warnIfEphemeral(cmd *cobra.Command) {
	if a.cfg.Checkpoint.Backend == "memory" {
		a.logger.WarnContext(cmd.Context(), "memory checkpoint backend does not persist between invocations; configure checkpoint.backend=redis",
			"command", cmd.Name())
	}
}

func writeJSON(w io.Writer, v any) error {
	out, err := sonic.ConfigStd.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}
