// ABOUTME: Executes an update plan one (metric, day) fetch at a time.
// ABOUTME: Stages each page on disk and hands it to a PageHandler for merging.
package fetch

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/harperreed/fitlog/internal/logging"
	"github.com/harperreed/fitlog/internal/models"
	"github.com/harperreed/fitlog/internal/planner"
	"github.com/harperreed/fitlog/internal/storage"
)

// PageHandler receives every fetched page after it is staged.
type PageHandler func(metric models.MetricType, day models.Day, data []byte) error

// Fetcher fetches one day of a metric. *Client satisfies it.
type Fetcher interface {
	FetchDay(ctx context.Context, metric models.MetricType, day models.Day) ([]byte, error)
}

// Executor runs plans serially against a Fetcher.
type Executor struct {
	fetcher    Fetcher
	retry      RetryPolicy
	stagingDir string
	handle     PageHandler
	logger     *log.Logger
}

var _ planner.Executor = (*Executor)(nil)

// NewExecutor creates an executor. An empty stagingDir skips staging.
func NewExecutor(fetcher Fetcher, retry RetryPolicy, stagingDir string, handle PageHandler, logger *log.Logger) *Executor {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Executor{fetcher: fetcher, retry: retry, stagingDir: stagingDir, handle: handle, logger: logger}
}

// Execute fetches every task of the plan. Cancellation is checked between
// tasks; ErrAuthExpired stops the plan. Other failures are counted.
func (e *Executor) Execute(ctx context.Context, plan planner.UpdatePlan) (planner.Execution, error) {
	var exec planner.Execution
	tasks := plan.Tasks()
	e.logger.Info("executing plan", "tasks", len(tasks), "estimated_hours", fmt.Sprintf("%.1f", plan.EstimatedHours))

	for i, task := range tasks {
		if err := ctx.Err(); err != nil {
			e.logger.Warn("plan cancelled", "done", i, "remaining", len(tasks)-i)
			return exec, err
		}
		exec.Attempted++

		err := e.runTask(ctx, task)
		switch {
		case err == nil:
			exec.Succeeded++
		case errors.Is(err, ErrAuthExpired):
			exec.Failed++
			e.logger.Error("authorization expired", "metric", task.Metric, "day", task.Day)
			return exec, err
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			exec.Attempted--
			return exec, err
		default:
			exec.Failed++
			e.logger.Warn("fetch failed", "metric", task.Metric, "day", task.Day, "err", err)
		}
	}
	return exec, nil
}

func (e *Executor) runTask(ctx context.Context, task planner.Task) error {
	var data []byte
	err := e.retry.Do(ctx, func() error {
		var ferr error
		data, ferr = e.fetcher.FetchDay(ctx, task.Metric, task.Day)
		if errors.Is(ferr, ErrRateLimited) {
			e.logger.Warn("rate limited, backing off", "metric", task.Metric, "day", task.Day)
		}
		return ferr
	})
	if err != nil {
		return err
	}

	if e.stagingDir != "" {
		if _, err := storage.StagePage(e.stagingDir, task.Metric, task.Day, data); err != nil {
			return err
		}
	}
	if e.handle != nil {
		if err := e.handle(task.Metric, task.Day, data); err != nil {
			return fmt.Errorf("handle %s/%s: %w", task.Metric, task.Day, err)
		}
	}
	e.logger.Debug("fetched", "metric", task.Metric, "day", task.Day, "bytes", len(data))
	return nil
}
