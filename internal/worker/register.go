package worker

import (
	"context"
	"fmt"
	"log/slog"

	"go.temporal.io/sdk/client"
	tlog "go.temporal.io/sdk/log"
	sdkworker "go.temporal.io/sdk/worker"

	"github.com/ahrav/go-assessor/internal/activity"
	"github.com/ahrav/go-assessor/internal/configuration"
	"github.com/ahrav/go-assessor/internal/workflow"
	baseactivity "github.com/ahrav/go-assessor/pkg/activity"
)

// Registrar is the subset of a Temporal worker used for registration.
type Registrar interface {
	RegisterWorkflow(w any)
	RegisterActivity(a any)
}

// RegisterAll registers the assessment workflow and its activities.
// It must be called once, before the worker starts.
func RegisterAll(w Registrar, runner activity.Runner) {
	acts := activity.NewActivities(baseactivity.NewBaseActivities(), runner)

	w.RegisterWorkflow(workflow.AssessmentWorkflow)

	w.RegisterActivity(acts.StartAssessment)
	w.RegisterActivity(acts.ResumeAssessment)
	w.RegisterActivity(acts.AssessmentStatus)
}

// Serve connects to Temporal, registers everything on the configured task
// queue and processes tasks until ctx is cancelled.
func Serve(ctx context.Context, cfg configuration.TemporalConfig, runner activity.Runner, logger *slog.Logger) error {
	c, err := client.Dial(client.Options{
		HostPort:  cfg.HostPort,
		Namespace: cfg.Namespace,
		Logger:    tlog.NewStructuredLogger(logger),
	})
	if err != nil {
		return fmt.Errorf("dial temporal %s: %w", cfg.HostPort, err)
	}
	defer c.Close()

	w := sdkworker.New(c, cfg.TaskQueue, sdkworker.Options{})
	RegisterAll(w, runner)

	if err := w.Start(); err != nil {
		return fmt.Errorf("start worker: %w", err)
	}
	logger.Info("worker started", "task_queue", cfg.TaskQueue, "namespace", cfg.Namespace)

	<-ctx.Done()
	w.Stop()
	logger.Info("worker stopped")
	return nil
}
