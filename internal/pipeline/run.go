// Package pipeline provides the high-level orchestration of an environment validation run.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jonathan/env-validator/internal/export"
	"github.com/jonathan/env-validator/internal/observability"
	"github.com/jonathan/env-validator/internal/schemas"
	"github.com/jonathan/env-validator/internal/types"
)

// DefaultPollInterval is the delay between two status checks.
const DefaultPollInterval = 3000 * time.Millisecond

// Step names reported through ProgressEvent.
const (
	StepEnvironment = "environment"
	StepStart       = "start"
	StepPoll        = "poll"
	StepPollWait    = "poll_wait"
	StepFetch       = "fetch"
	StepExport      = "export"
	StepVerify      = "verify"
)

// Run statuses recorded in the run store.
const (
	RunStatusRunning  = "running"
	RunStatusFinished = "finished"
	RunStatusFailed   = "failed"
)

// ValidationClient is the remote service the run is driven against.
type ValidationClient interface {
	EnvironmentInformation(ctx context.Context) (*types.EnvironmentInfo, error)
	StartEnvironmentValidation(ctx context.Context) (*types.ValidationTask, error)
	CheckEnvironmentValidation(ctx context.Context, taskID string) (*types.ValidationTask, error)
	ListEnvironmentValidationIssues(ctx context.Context, taskID string) ([]types.ValidationItem, error)
}

// RunStore persists run history. It is optional.
type RunStore interface {
	CreateRun(ctx context.Context, runID uuid.UUID, project, environment, taskID string) error
	SaveRecords(ctx context.Context, runID uuid.UUID, records []types.ExportRecord) error
	SaveRunSteps(ctx context.Context, runID uuid.UUID, steps []types.StepTiming) error
	CompleteRun(ctx context.Context, runID uuid.UUID, status string, issueCount int) error
}

// ProgressEvent represents a progress update during a run
type ProgressEvent struct {
	Step    string `json:"step"`
	Message string `json:"message"`
	RunID   string `json:"run_id,omitempty"`
	Content any    `json:"content,omitempty"`
}

// ProgressCallback is called when run progress occurs
type ProgressCallback func(event ProgressEvent)

// RunOptions holds configuration for a validation run
type RunOptions struct {
	Client          ValidationClient // Required
	ExportFilename  string           // Required: base name, extensions are appended
	PollInterval    time.Duration    // Defaults to DefaultPollInterval
	MaxPollAttempts int              // 0 means poll until a terminal status
	PollTimeout     time.Duration    // 0 means no timeout beyond ctx
	VerifyExport    bool             // Check the JSON export against its schema
	Verbose         bool
	Out             io.Writer   // Defaults to os.Stdout
	Logger          *zap.Logger // Defaults to a no-op logger
	Store           RunStore    // Optional
	OnProgress      ProgressCallback
}

// Summary describes a completed run.
type Summary struct {
	RunID       uuid.UUID
	TaskID      string
	Project     string
	Environment string
	ItemCount   int
	RecordCount int
	CSVPath     string
	JSONPath    string
	IssueTypes  map[string]int
	Steps       []types.StepTiming
}

// Runner drives one validation run. It is not safe for concurrent use.
type Runner struct {
	opts    RunOptions
	client  ValidationClient
	printer *observability.Printer
	logger  *zap.Logger
	runID   uuid.UUID
	steps   []types.StepTiming
}

// NewRunner validates opts and applies defaults.
func NewRunner(opts RunOptions) (*Runner, error) {
	if opts.Client == nil {
		return nil, errors.New("validation client is required")
	}
	if opts.ExportFilename == "" {
		return nil, errors.New("export filename is required")
	}
	if opts.MaxPollAttempts < 0 {
		return nil, errors.New("max poll attempts must be non-negative")
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	runID := uuid.New()
	return &Runner{
		opts:    opts,
		client:  opts.Client,
		printer: observability.NewPrinter(opts.Out),
		logger:  opts.Logger.With(zap.String("run_id", runID.String())),
		runID:   runID,
	}, nil
}

// RunValidation builds a Runner and runs it to completion.
func RunValidation(ctx context.Context, opts RunOptions) (*Summary, error) {
	r, err := NewRunner(opts)
	if err != nil {
		return nil, err
	}
	return r.Run(ctx)
}

// RunID identifies this run in logs and the run store.
func (r *Runner) RunID() uuid.UUID {
	return r.runID
}

// emitProgress calls the progress callback if configured
func (r *Runner) emitProgress(step, message string, content any) {
	if r.opts.OnProgress != nil {
		r.opts.OnProgress(ProgressEvent{
			Step:    step,
			Message: message,
			RunID:   r.runID.String(),
			Content: content,
		})
	}
}

// Run performs the whole sequence: environment lookup, start, poll, fetch and export.
func (r *Runner) Run(ctx context.Context) (*Summary, error) {
	summary := &Summary{RunID: r.runID}
	r.printer.Starting()

	start := time.Now()
	info, err := r.client.EnvironmentInformation(ctx)
	if err != nil {
		err = fmt.Errorf("environment lookup failed: %w", err)
		r.markStep(StepEnvironment, start, err)
		return nil, err
	}
	r.markStep(StepEnvironment, start, nil)
	summary.Project = info.Name
	summary.Environment = info.Environment
	r.printer.ValidationTarget(info)
	r.emitProgress(StepEnvironment, fmt.Sprintf("Validating %s / %s", info.Name, info.Environment), info)

	start = time.Now()
	taskID, err := r.StartValidation(ctx)
	r.markStep(StepStart, start, err)
	if err != nil {
		return nil, err
	}
	summary.TaskID = taskID
	r.recordRunStart(ctx, info, taskID)

	start = time.Now()
	err = r.PollUntilDone(ctx, taskID)
	r.markStep(StepPoll, start, err)
	if err != nil {
		r.recordRunEnd(ctx, RunStatusFailed, 0)
		return nil, err
	}
	r.printer.ResponseFetched()

	start = time.Now()
	items, err := r.FetchIssues(ctx, taskID)
	r.markStep(StepFetch, start, err)
	if err != nil {
		r.recordRunEnd(ctx, RunStatusFailed, 0)
		return nil, err
	}
	summary.ItemCount = len(items)

	start = time.Now()
	result, err := r.ExportResults(items)
	r.markStep(StepExport, start, err)
	if err != nil {
		r.recordRunEnd(ctx, RunStatusFailed, 0)
		return nil, err
	}
	summary.RecordCount = len(result.Records)
	summary.CSVPath = result.CSVPath
	summary.JSONPath = result.JSONPath
	summary.IssueTypes = countIssueTypes(result.Records)

	if r.opts.VerifyExport && result.JSONPath != "" {
		start = time.Now()
		if err := schemas.ValidateExportFile(result.JSONPath); err != nil {
			err = fmt.Errorf("export verification failed: %w", err)
			r.markStep(StepVerify, start, err)
			r.recordRunEnd(ctx, RunStatusFailed, 0)
			return nil, err
		}
		r.markStep(StepVerify, start, nil)
		r.emitProgress(StepVerify, fmt.Sprintf("Verified %s against export schema", result.JSONPath), nil)
	}

	r.recordRecords(ctx, result.Records)
	r.recordRunEnd(ctx, RunStatusFinished, len(result.Records))
	summary.Steps = r.Steps()

	if r.opts.Verbose {
		r.printer.PrintIssueSummary(result.Records)
		r.printer.PrintStepTimings(summary.Steps)
	}
	return summary, nil
}

// Steps returns the timings of the stages run so far.
func (r *Runner) Steps() []types.StepTiming {
	return append([]types.StepTiming(nil), r.steps...)
}

func (r *Runner) markStep(step string, start time.Time, err error) {
	timing := types.StepTiming{
		Step:       step,
		Status:     types.StepStatusCompleted,
		StartedAt:  start.UTC(),
		DurationMs: time.Since(start).Milliseconds(),
	}
	if err != nil {
		timing.Status = types.StepStatusFailed
		timing.Error = err.Error()
	}
	r.steps = append(r.steps, timing)
	r.logger.Debug("step done",
		zap.String("step", step), zap.String("status", timing.Status), zap.Int64("duration_ms", timing.DurationMs))
}

// StartValidation triggers the remote validation job and returns its task id.
func (r *Runner) StartValidation(ctx context.Context) (string, error) {
	task, err := r.client.StartEnvironmentValidation(ctx)
	if err != nil {
		return "", fmt.Errorf("validation start failed: %w", err)
	}
	r.logger.Debug("validation started", zap.String("task_id", task.ID), zap.String("status", string(task.Status)))
	r.emitProgress(StepStart, fmt.Sprintf("Started validation task %s", task.ID), task)
	return task.ID, nil
}

// PollUntilDone checks the task status every PollInterval until it is
// finished or failed. Statuses other than those keep the loop going.
func (r *Runner) PollUntilDone(ctx context.Context, taskID string) error {
	pollCtx := ctx
	if r.opts.PollTimeout > 0 {
		var cancel context.CancelFunc
		pollCtx, cancel = context.WithTimeout(ctx, r.opts.PollTimeout)
		defer cancel()
	}

	attempts := 0
	check := func() error {
		attempts++
		r.printer.Waiting()

		task, err := r.client.CheckEnvironmentValidation(pollCtx, taskID)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("validation status check failed: %w", err))
		}
		r.emitProgress(StepPoll, string(task.Status), task)

		switch {
		case task.Status.IsFailed():
			return backoff.Permanent(&ValidationFailedError{TaskID: taskID})
		case task.Status.IsFinished():
			return nil
		case !task.Status.IsKnown():
			r.logger.Debug("unrecognised task status, still waiting",
				zap.String("task_id", taskID), zap.String("status", string(task.Status)))
		}
		return errStillRunning
	}

	notify := func(_ error, next time.Duration) {
		r.logger.Debug("validation still running",
			zap.String("task_id", taskID), zap.Int("checks", attempts), zap.Duration("next_check", next))
		r.emitProgress(StepPollWait, "Waiting before next status check", next)
	}

	err := backoff.RetryNotify(check, r.newPollBackOff(pollCtx), notify)
	if err == nil {
		return nil
	}

	// Only the poll context's own deadline is a poll timeout. A request
	// timeout inside the client stays a client error.
	var failed *ValidationFailedError
	switch {
	case errors.As(err, &failed):
		return err
	case errors.Is(err, errStillRunning):
		return &PollTimeoutError{TaskID: taskID, Attempts: attempts}
	case ctx.Err() != nil:
		return fmt.Errorf("polling cancelled: %w", ctx.Err())
	case errors.Is(pollCtx.Err(), context.DeadlineExceeded):
		return &PollTimeoutError{TaskID: taskID, Attempts: attempts, Cause: pollCtx.Err()}
	}
	return err
}

// newPollBackOff returns a fixed-interval schedule bounded by MaxPollAttempts and ctx.
func (r *Runner) newPollBackOff(ctx context.Context) backoff.BackOff {
	var b backoff.BackOff = backoff.NewConstantBackOff(r.opts.PollInterval)
	if r.opts.MaxPollAttempts > 0 {
		// the first check is not a retry
		b = backoff.WithMaxRetries(b, uint64(r.opts.MaxPollAttempts-1))
	}
	return backoff.WithContext(b, ctx)
}

// FetchIssues retrieves every validation item of a finished task.
func (r *Runner) FetchIssues(ctx context.Context, taskID string) ([]types.ValidationItem, error) {
	items, err := r.client.ListEnvironmentValidationIssues(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("fetching validation issues failed: %w", err)
	}
	r.emitProgress(StepFetch, fmt.Sprintf("Fetched %d validation items", len(items)), len(items))
	return items, nil
}

// ExportResults writes the CSV and JSON files, or nothing when there are no items.
func (r *Runner) ExportResults(items []types.ValidationItem) (*export.Result, error) {
	if len(items) == 0 {
		r.printer.NoIssues()
		r.emitProgress(StepExport, "No validation issues found", nil)
		return &export.Result{}, nil
	}

	r.printer.ItemCount(len(items))

	result, err := export.Export(r.opts.ExportFilename, items)
	if result != nil && result.CSVPath != "" {
		r.printer.FileCreated(result.CSVPath)
	}
	if err != nil {
		return nil, fmt.Errorf("export failed: %w", err)
	}
	r.printer.FileCreated(result.JSONPath)

	r.emitProgress(StepExport, fmt.Sprintf("Exported %d records", len(result.Records)), result)
	return result, nil
}

// recordRunStart creates the run in the store. Store failures only warn.
func (r *Runner) recordRunStart(ctx context.Context, info *types.EnvironmentInfo, taskID string) {
	if r.opts.Store == nil {
		return
	}
	if err := r.opts.Store.CreateRun(ctx, r.runID, info.Name, info.Environment, taskID); err != nil {
		r.printer.Warning("failed to record run: %v", err)
		r.opts.Store = nil
	}
}

func (r *Runner) recordRecords(ctx context.Context, records []types.ExportRecord) {
	if r.opts.Store == nil || len(records) == 0 {
		return
	}
	if err := r.opts.Store.SaveRecords(ctx, r.runID, records); err != nil {
		r.printer.Warning("failed to save records: %v", err)
	}
}

func (r *Runner) recordRunEnd(ctx context.Context, status string, issueCount int) {
	if r.opts.Store == nil {
		return
	}
	// the run may be ending because ctx was cancelled
	ctx = context.WithoutCancel(ctx)
	if err := r.opts.Store.SaveRunSteps(ctx, r.runID, r.steps); err != nil {
		r.printer.Warning("failed to save run steps: %v", err)
	}
	if err := r.opts.Store.CompleteRun(ctx, r.runID, status, issueCount); err != nil {
		r.printer.Warning("failed to complete run: %v", err)
	}
}

func countIssueTypes(records []types.ExportRecord) map[string]int {
	counts := make(map[string]int)
	for _, rec := range records {
		counts[rec.IssueType]++
	}
	return counts
}
