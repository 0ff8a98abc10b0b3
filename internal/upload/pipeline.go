package upload

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/gizzletv/client/internal/logging"
	"github.com/gizzletv/client/internal/timer"
)

// Status is the lifecycle stage of an upload task.
type Status string

const (
	StatusIdle       Status = "idle"
	StatusValidating Status = "validating"
	StatusUploading  Status = "uploading"
	StatusSucceeded  Status = "succeeded"
	StatusFailed     Status = "failed"
)

// Terminal reports whether s is succeeded or failed.
func (s Status) Terminal() bool {
	return s == StatusSucceeded || s == StatusFailed
}

// How long a terminal status stays on display before the task resets to idle.
const (
	SuccessDisplay = 3 * time.Second
	FailureDisplay = 5 * time.Second
)

const (
	MessageValidating = "Validating..."
	MessageUploading  = "Uploading..."
	MessageSucceeded  = "Upload successful!"
	MessageFailed     = "Upload failed. Please try again."
)

// Task is a snapshot of one upload attempt.
type Task struct {
	ID            string
	Category      Category
	FileName      string
	FileSizeBytes int64
	BytesSent     int64
	StartedAt     time.Time
	Status        Status
	// Message is the user-facing status line; empty when idle.
	Message string
	// ErrorReason and Err are set only when Status is failed.
	ErrorReason string
	Err         error
	Progress    Progress
}

// Options configures a Pipeline. All callbacks are optional and are invoked
// without internal locks held.
type Options struct {
	Clock      clockwork.Clock
	Logger     *slog.Logger
	OnChange   func(Task)
	OnProgress func(Progress)
	// OnFinish fires once per task when it reaches succeeded or failed.
	OnFinish func(Task)
}

// Pipeline validates, transmits and reports a single file transfer at a time.
type Pipeline struct {
	transport Transport
	clock     clockwork.Clock
	logger    *slog.Logger
	opts      Options

	mu    sync.Mutex
	task  Task
	run   uint64
	clear *timer.Handle
}

// NewPipeline constructs an idle pipeline submitting through transport.
func NewPipeline(transport Transport, opts Options) *Pipeline {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Pipeline{
		transport: transport,
		clock:     opts.Clock,
		logger:    opts.Logger,
		opts:      opts,
		task:      Task{Status: StatusIdle},
		clear:     timer.New(opts.Clock),
	}
}

// Task returns the current task snapshot.
func (p *Pipeline) Task() Task {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.task
}

// Validate checks file against category without submitting it. A rejected
// file becomes a failed task carrying the user-facing reason, exactly as if
// Start had been called with it. A running upload is left alone.
func (p *Pipeline) Validate(file File, category Category) error {
	err := Validate(file, category)
	if err == nil {
		return nil
	}

	p.mu.Lock()
	if p.busyLocked() {
		p.mu.Unlock()
		return err
	}
	run, snapshot := p.beginLocked(file, category)
	p.mu.Unlock()

	p.emitChange(snapshot)
	p.reject(run, snapshot, category, err)
	return err
}

// Start validates req and, when it passes, submits it on a separate
// goroutine. It returns the validation error, ErrUploadInProgress, or nil once
// the transfer is under way; transport outcomes are reported through the
// callbacks. Cancelling ctx abandons the transfer silently.
func (p *Pipeline) Start(ctx context.Context, req Request) error {
	p.mu.Lock()
	if p.busyLocked() {
		p.mu.Unlock()
		return ErrUploadInProgress
	}
	run, snapshot := p.beginLocked(req.File, req.Category)
	p.mu.Unlock()
	p.emitChange(snapshot)

	if err := Validate(req.File, req.Category); err != nil {
		p.reject(run, snapshot, req.Category, err)
		return err
	}
	if p.transport == nil {
		p.finish(run, StatusFailed, MessageFailed, ErrTransportUnavailable)
		return ErrTransportUnavailable
	}
	if req.Description == "" {
		req.Description = DefaultDescription(req.Category)
	}

	p.mu.Lock()
	if run != p.run {
		p.mu.Unlock()
		return nil
	}
	p.task.Status = StatusUploading
	p.task.Message = MessageUploading
	p.task.StartedAt = p.clock.Now()
	p.task.Progress = Compute(0, req.File.Size, 0)
	snapshot = p.task
	p.mu.Unlock()
	p.emitChange(snapshot)

	spanCtx, span := logging.StartSpan(logging.WithLogger(ctx, p.logger), "upload")
	logging.FromContext(spanCtx).Info("upload started",
		"taskId", snapshot.ID,
		"file", req.File.Name,
		"category", req.Category,
		"size", FormatBytes(req.File.Size),
	)

	go p.transfer(spanCtx, run, req, span)
	return nil
}

// Close cancels pending auto-clear timers and ignores any further transport
// callbacks. An in-flight transfer is not interrupted; cancel its context.
func (p *Pipeline) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.run++
	p.clear.Stop()
}

func (p *Pipeline) transfer(ctx context.Context, run uint64, req Request, span *logging.Span) {
	defer span.End()
	logger := logging.FromContext(ctx)

	err := p.transport.Upload(ctx, req, func(sent, total int64) {
		p.progress(run, sent, total)
	})

	switch {
	case err == nil:
		logger.Info("upload finished")
		p.finish(run, StatusSucceeded, MessageSucceeded, nil)
	case ctx.Err() != nil:
		logger.Info("upload abandoned", "error", err)
		p.abandon(run)
	default:
		logger.Error("upload failed", "error", err)
		p.finish(run, StatusFailed, MessageFailed, fmt.Errorf("%w: %w", ErrTransportFailure, err))
	}
}

func (p *Pipeline) progress(run uint64, sent, total int64) {
	p.mu.Lock()
	if run != p.run || p.task.Status != StatusUploading {
		p.mu.Unlock()
		return
	}
	if sent < p.task.BytesSent {
		p.logger.Warn("upload progress regressed", "taskId", p.task.ID, "previous", p.task.BytesSent, "sent", sent)
	}
	if total <= 0 {
		total = p.task.FileSizeBytes
	}
	p.task.BytesSent = min(max(sent, 0), p.task.FileSizeBytes)
	p.task.Progress = Compute(sent, total, p.clock.Since(p.task.StartedAt))
	snapshot := p.task
	p.mu.Unlock()

	if p.opts.OnProgress != nil {
		p.opts.OnProgress(snapshot.Progress)
	}
	p.emitChange(snapshot)
}

func (p *Pipeline) finish(run uint64, status Status, message string, err error) {
	p.mu.Lock()
	if run != p.run {
		p.mu.Unlock()
		return
	}

	p.task.Status = status
	p.task.Message = message
	delay := FailureDisplay
	if status == StatusSucceeded {
		delay = SuccessDisplay
		p.task.BytesSent = p.task.FileSizeBytes
		p.task.Progress = Compute(p.task.FileSizeBytes, p.task.FileSizeBytes, p.clock.Since(p.task.StartedAt))
	} else {
		p.task.ErrorReason = message
		p.task.Err = err
	}

	p.clear.Reset(delay, func(token uint64) {
		p.reset(run, token)
	})
	snapshot := p.task
	p.mu.Unlock()

	p.emitChange(snapshot)
	if p.opts.OnFinish != nil {
		p.opts.OnFinish(snapshot)
	}
}

func (p *Pipeline) abandon(run uint64) {
	p.mu.Lock()
	if run != p.run {
		p.mu.Unlock()
		return
	}
	p.clear.Stop()
	p.task = Task{Status: StatusIdle}
	snapshot := p.task
	p.mu.Unlock()

	p.emitChange(snapshot)
}

func (p *Pipeline) reset(run uint64, token uint64) {
	p.mu.Lock()
	if run != p.run || !p.clear.Current(token) {
		p.mu.Unlock()
		return
	}
	p.task = Task{Status: StatusIdle}
	snapshot := p.task
	p.mu.Unlock()

	p.emitChange(snapshot)
}

func (p *Pipeline) busyLocked() bool {
	return p.task.Status != StatusIdle && !p.task.Status.Terminal()
}

// beginLocked replaces the current task with a fresh validating one.
func (p *Pipeline) beginLocked(file File, category Category) (uint64, Task) {
	p.clear.Stop()
	p.run++
	p.task = Task{
		ID:            uuid.NewString(),
		Category:      category,
		FileName:      file.Name,
		FileSizeBytes: file.Size,
		Status:        StatusValidating,
		Message:       MessageValidating,
	}
	return p.run, p.task
}

func (p *Pipeline) reject(run uint64, task Task, category Category, err error) {
	p.logger.Info("upload rejected", "taskId", task.ID, "file", task.FileName, "category", category, "error", err)
	p.finish(run, StatusFailed, validationMessage(category, err), err)
}

func (p *Pipeline) emitChange(task Task) {
	if p.opts.OnChange != nil {
		p.opts.OnChange(task)
	}
}

func validationMessage(category Category, err error) string {
	switch {
	case errors.Is(err, ErrFileTooLarge):
		return fmt.Sprintf("File too large. Maximum size for %s is %s", category, FormatBytes(category.Ceiling()))
	case errors.Is(err, ErrUnsupportedType):
		return fmt.Sprintf("Invalid file type for %s", category)
	default:
		return "Unknown category. Choose videos or pictures."
	}
}
