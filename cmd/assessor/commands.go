package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ahrav/go-assessor/internal/activity"
	"github.com/ahrav/go-assessor/internal/domain"
	"github.com/ahrav/go-assessor/internal/engine"
	"github.com/ahrav/go-assessor/internal/report"
	"github.com/ahrav/go-assessor/internal/worker"
)

func newStartCmd(a *app) *cobra.Command {
	var (
		sessionID string
		format    string
		threshold float64
	)
	cmd := &cobra.Command{
		Use:   "start <document>",
		Short: "Ingest and score a document, suspending if review is needed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := readDocument(args[0], domain.DocumentFormat(format))
			if err != nil {
				return err
			}

			rt, err := worker.Build(cmd.Context(), a.cfg, worker.WithLogger(a.logger))
			if err != nil {
				return err
			}
			defer rt.Close()

			req := engine.StartRequest{SessionID: sessionID, Document: doc}
			if cmd.Flags().Changed("threshold") {
				cfg := a.cfg.Workflow
				cfg.ConfidenceThreshold = threshold
				req.Config = &cfg
			}
			res, err := rt.Engine.Start(cmd.Context(), req)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), domain.NewAssessmentOutput(res.State))
		},
	}
	cmd.Flags().StringVar(&sessionID, "session-id", "", "session id (generated when empty)")
	cmd.Flags().StringVar(&format, "format", "", "document format: text, json or yaml (default from file extension)")
	cmd.Flags().Float64Var(&threshold, "threshold", domain.DefaultConfidenceThreshold, "confidence threshold for this session")
	return cmd
}

func newResumeCmd(a *app) *cobra.Command {
	var (
		feedbackFile string
		overrides    []string
		notes        []string
		expectedStep int64
	)
	cmd := &cobra.Command{
		Use:   "resume <session-id>",
		Short: "Apply reviewer feedback and finish a suspended session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			feedback, err := collectFeedback(feedbackFile, overrides, notes)
			if err != nil {
				return err
			}

			a.warnIfEphemeral(cmd)
			rt, err := worker.Build(cmd.Context(), a.cfg, worker.WithLogger(a.logger))
			if err != nil {
				return err
			}
			defer rt.Close()

			res, err := rt.Engine.Resume(cmd.Context(), engine.ResumeRequest{
				SessionID:    args[0],
				Feedback:     feedback,
				ExpectedStep: expectedStep,
			})
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), domain.NewAssessmentOutput(res.State))
		},
	}
	cmd.Flags().StringVarP(&feedbackFile, "feedback", "f", "", "YAML or JSON file mapping question ids to {score, notes}")
	cmd.Flags().StringArrayVar(&overrides, "score", nil, "score override as <question-id>=<score>, repeatable")
	cmd.Flags().StringArrayVar(&notes, "note", nil, "reviewer note as <question-id>=<text>, repeatable")
	cmd.Flags().Int64Var(&expectedStep, "expected-step", 0, "reject the resume unless the checkpoint is at this step")
	return cmd
}

func newStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status <session-id>",
		Short: "Show the persisted state of a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a.warnIfEphemeral(cmd)
			rt, err := worker.Build(cmd.Context(), a.cfg, worker.WithLogger(a.logger))
			if err != nil {
				return err
			}
			defer rt.Close()

			res, err := rt.Engine.Status(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), domain.NewAssessmentOutput(res.State))
		},
	}
}

func newListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List persisted sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a.warnIfEphemeral(cmd)
			rt, err := worker.Build(cmd.Context(), a.cfg, worker.WithLogger(a.logger))
			if err != nil {
				return err
			}
			defer rt.Close()

			sessions, err := rt.Engine.List(cmd.Context())
			if err != nil {
				return err
			}
			out := make([]domain.AssessmentOutput, 0, len(sessions))
			for _, s := range sessions {
				out = append(out, domain.NewAssessmentOutput(s.State))
			}
			return writeJSON(cmd.OutOrStdout(), out)
		},
	}
}

func newAbandonCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "abandon <session-id>",
		Short: "Discard a session checkpoint",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a.warnIfEphemeral(cmd)
			rt, err := worker.Build(cmd.Context(), a.cfg, worker.WithLogger(a.logger))
			if err != nil {
				return err
			}
			defer rt.Close()

			if err := rt.Engine.Abandon(cmd.Context(), args[0]); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "abandoned %s\n", args[0])
			return err
		},
	}
}

func newReportCmd(a *app) *cobra.Command {
	var markdown bool
	cmd := &cobra.Command{
		Use:   "report <session-id>",
		Short: "Print the report of a completed session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a.warnIfEphemeral(cmd)
			rt, err := worker.Build(cmd.Context(), a.cfg, worker.WithLogger(a.logger))
			if err != nil {
				return err
			}
			defer rt.Close()

			res, err := rt.Engine.Status(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if res.State.Report == nil {
				return fmt.Errorf("session %s has no report (status %s)", args[0], res.Status)
			}
			r, err := report.Load(cmd.Context(), rt.Reports, *res.State.Report)
			if err != nil {
				return err
			}
			if markdown {
				_, err = fmt.Fprint(cmd.OutOrStdout(), report.Markdown(r))
				return err
			}
			return writeJSON(cmd.OutOrStdout(), r)
		},
	}
	cmd.Flags().BoolVar(&markdown, "markdown", false, "render Markdown instead of JSON")
	return cmd
}

func newWorkerCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Run the Temporal worker hosting the assessment workflow",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := worker.Build(cmd.Context(), a.cfg,
				worker.WithLogger(a.logger),
				worker.WithProgress(activity.Heartbeat))
			if err != nil {
				return err
			}
			defer rt.Close()
			return worker.Serve(cmd.Context(), a.cfg.Temporal, rt.Engine, a.logger)
		},
	}
}

// readDocument loads path, taking the format from the flag or the extension.
func readDocument(path string, format domain.DocumentFormat) (domain.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Document{}, fmt.Errorf("read document: %w", err)
	}
	if format == "" {
		format = formatFromExt(path)
	}
	return domain.Document{Name: filepath.Base(path), Format: format, Text: string(data)}, nil
}

func formatFromExt(path string) domain.DocumentFormat {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return domain.FormatJSON
	case ".yaml", ".yml":
		return domain.FormatYAML
	default:
		return domain.FormatText
	}
}

// collectFeedback merges a feedback file with --score and --note flags.
// Flags win over the file for the same question.
func collectFeedback(file string, overrides, notes []string) (map[string]domain.Feedback, error) {
	feedback := make(map[string]domain.Feedback)
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read feedback: %w", err)
		}
		if err := yaml.Unmarshal(data, &feedback); err != nil {
			return nil, fmt.Errorf("parse feedback %s: %w", file, err)
		}
	}

	for _, kv := range overrides {
		id, raw, err := splitPair(kv, "--score")
		if err != nil {
			return nil, err
		}
		score, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("--score %q: %w", kv, err)
		}
		fb := feedback[id]
		fb.Score = &score
		feedback[id] = fb
	}
	for _, kv := range notes {
		id, text, err := splitPair(kv, "--note")
		if err != nil {
			return nil, err
		}
		fb := feedback[id]
		fb.Notes = text
		feedback[id] = fb
	}
	return feedback, nil
}

func splitPair(kv, flag string) (string, string, error) {
	id, value, ok := strings.Cut(kv, "=")
	id = strings.TrimSpace(id)
	if !ok || id == "" {
		return "", "", fmt.Errorf("%s %q: want <question-id>=<value>", flag, kv)
	}
	return id, strings.TrimSpace(value), nil
}
