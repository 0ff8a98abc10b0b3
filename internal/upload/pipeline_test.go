package upload

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

type step struct {
	sent int64
	done bool
	err  error
}

type scriptedTransport struct {
	steps   chan step
	started chan Request
	calls   atomic.Int32
}

func newScriptedTransport() *scriptedTransport {
	return &scriptedTransport{
		steps:   make(chan step),
		started: make(chan Request, 1),
	}
}

func (s *scriptedTransport) Upload(ctx context.Context, req Request, progress ProgressFunc) error {
	s.calls.Add(1)
	s.started <- req
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case st := <-s.steps:
			if st.done {
				return st.err
			}
			progress(st.sent, req.File.Size)
		}
	}
}

type recorder struct {
	progress chan Progress
	finished chan Task
	changes  chan Task
}

func newRecorder() *recorder {
	return &recorder{
		progress: make(chan Progress, 16),
		finished: make(chan Task, 4),
		changes:  make(chan Task, 64),
	}
}

func (r *recorder) options(clock clockwork.Clock) Options {
	return Options{
		Clock:      clock,
		OnProgress: func(p Progress) { r.progress <- p },
		OnFinish:   func(t Task) { r.finished <- t },
		OnChange: func(t Task) {
			select {
			case r.changes <- t:
			default:
			}
		},
	}
}

func pictureRequest(size int64) Request {
	return Request{
		File:     File{Name: "photo.png", Size: size, ContentType: "image/png", Body: bytes.NewReader(nil)},
		Category: CategoryPictures,
	}
}

func TestPipelineReportsProgressAndSucceeds(t *testing.T) {
	clock := clockwork.NewFakeClock()
	transport := newScriptedTransport()
	rec := newRecorder()
	p := NewPipeline(transport, rec.options(clock))
	defer p.Close()

	if err := p.Start(context.Background(), pictureRequest(1048576)); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	req := receive(t, transport.started)
	if req.Category != CategoryPictures || req.Description != "Uploaded picture" {
		t.Fatalf("unexpected request: %+v", req)
	}
	if task := p.Task(); task.Status != StatusUploading || task.Message != MessageUploading {
		t.Fatalf("expected uploading task got %+v", task)
	}

	var percents []int
	transport.steps <- step{sent: 0}
	percents = append(percents, receive(t, rec.progress).Percent)

	clock.Advance(time.Second)
	transport.steps <- step{sent: 524288}
	mid := receive(t, rec.progress)
	percents = append(percents, mid.Percent)
	if !mid.RateKnown || mid.Throughput != 524288 || mid.ETA != time.Second {
		t.Fatalf("unexpected derived figures: %+v", mid)
	}

	clock.Advance(time.Second)
	transport.steps <- step{sent: 1048576}
	percents = append(percents, receive(t, rec.progress).Percent)

	want := []int{0, 50, 100}
	for i := range want {
		if percents[i] != want[i] {
			t.Fatalf("expected percents %v got %v", want, percents)
		}
	}

	transport.steps <- step{done: true}
	task := receive(t, rec.finished)
	if task.Status != StatusSucceeded || task.Message != MessageSucceeded {
		t.Fatalf("expected success got %+v", task)
	}
	if task.BytesSent != 1048576 {
		t.Fatalf("expected bytesSent to equal total got %d", task.BytesSent)
	}
	if task.ErrorReason != "" || task.Err != nil {
		t.Fatalf("unexpected error on success: %+v", task)
	}
}

func TestPipelineAutoClearsAfterSuccess(t *testing.T) {
	clock := clockwork.NewFakeClock()
	transport := newScriptedTransport()
	rec := newRecorder()
	p := NewPipeline(transport, rec.options(clock))
	defer p.Close()

	if err := p.Start(context.Background(), pictureRequest(10)); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	receive(t, transport.started)
	transport.steps <- step{done: true}
	receive(t, rec.finished)

	clock.Advance(SuccessDisplay - time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	if got := p.Task().Status; got != StatusSucceeded {
		t.Fatalf("cleared too early: %s", got)
	}

	clock.Advance(time.Millisecond)
	waitForCondition(t, func() bool { return p.Task().Status == StatusIdle }, time.Second)
	if task := p.Task(); task.Message != "" || task.ID != "" {
		t.Fatalf("expected reset task got %+v", task)
	}
}

func TestPipelineRejectsOversizedFileWithoutTransport(t *testing.T) {
	clock := clockwork.NewFakeClock()
	transport := newScriptedTransport()
	rec := newRecorder()
	p := NewPipeline(transport, rec.options(clock))
	defer p.Close()

	err := p.Start(context.Background(), pictureRequest(PictureCeiling+1))
	if !errors.Is(err, ErrFileTooLarge) {
		t.Fatalf("expected ErrFileTooLarge got %v", err)
	}

	task := receive(t, rec.finished)
	if task.Status != StatusFailed {
		t.Fatalf("expected failed task got %s", task.Status)
	}
	if !strings.Contains(task.ErrorReason, "100 MB") {
		t.Fatalf("expected ceiling in message got %q", task.ErrorReason)
	}
	if !errors.Is(task.Err, ErrFileTooLarge) {
		t.Fatalf("expected ErrFileTooLarge on task got %v", task.Err)
	}
	if transport.calls.Load() != 0 {
		t.Fatal("validation failures must not reach the transport")
	}

	clock.Advance(SuccessDisplay)
	time.Sleep(20 * time.Millisecond)
	if got := p.Task().Status; got != StatusFailed {
		t.Fatalf("failure cleared after success window: %s", got)
	}
	clock.Advance(FailureDisplay - SuccessDisplay)
	waitForCondition(t, func() bool { return p.Task().Status == StatusIdle }, time.Second)
}

func TestPipelineTransportFailure(t *testing.T) {
	clock := clockwork.NewFakeClock()
	transport := newScriptedTransport()
	rec := newRecorder()
	p := NewPipeline(transport, rec.options(clock))
	defer p.Close()

	if err := p.Start(context.Background(), pictureRequest(2048)); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	receive(t, transport.started)
	transport.steps <- step{sent: 1024}
	receive(t, rec.progress)
	transport.steps <- step{done: true, err: errors.New("connection reset")}

	task := receive(t, rec.finished)
	if task.Status != StatusFailed || task.ErrorReason != MessageFailed {
		t.Fatalf("expected generic failure got %+v", task)
	}
	if !errors.Is(task.Err, ErrTransportFailure) {
		t.Fatalf("expected ErrTransportFailure got %v", task.Err)
	}
	if transport.calls.Load() != 1 {
		t.Fatalf("transport failures must not retry, got %d calls", transport.calls.Load())
	}

	clock.Advance(FailureDisplay)
	waitForCondition(t, func() bool { return p.Task().Status == StatusIdle }, time.Second)
}

func TestPipelineRejectsConcurrentStart(t *testing.T) {
	transport := newScriptedTransport()
	p := NewPipeline(transport, Options{Clock: clockwork.NewFakeClock()})
	defer p.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := p.Start(ctx, pictureRequest(10)); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	receive(t, transport.started)

	if err := p.Start(ctx, pictureRequest(10)); !errors.Is(err, ErrUploadInProgress) {
		t.Fatalf("expected ErrUploadInProgress got %v", err)
	}
}

func TestPipelineAbandonsSilentlyOnCancel(t *testing.T) {
	transport := newScriptedTransport()
	rec := newRecorder()
	p := NewPipeline(transport, rec.options(clockwork.NewFakeClock()))
	defer p.Close()

	ctx, cancel := context.WithCancel(context.Background())
	if err := p.Start(ctx, pictureRequest(10)); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	receive(t, transport.started)
	cancel()

	waitForCondition(t, func() bool { return p.Task().Status == StatusIdle }, time.Second)
	select {
	case task := <-rec.finished:
		t.Fatalf("abandoned upload must not finish, got %+v", task)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestPipelineRestartCancelsPendingClear(t *testing.T) {
	clock := clockwork.NewFakeClock()
	transport := newScriptedTransport()
	rec := newRecorder()
	p := NewPipeline(transport, rec.options(clock))
	defer p.Close()

	if err := p.Start(context.Background(), pictureRequest(PictureCeiling+1)); err == nil {
		t.Fatal("expected validation failure")
	}
	receive(t, rec.finished)

	clock.Advance(4 * time.Second)
	if err := p.Start(context.Background(), pictureRequest(10)); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	receive(t, transport.started)

	clock.Advance(2 * time.Second)
	time.Sleep(20 * time.Millisecond)
	if got := p.Task().Status; got != StatusUploading {
		t.Fatalf("stale clear timer reset the new task: %s", got)
	}
	transport.steps <- step{done: true}
	receive(t, rec.finished)
}

func TestPipelineWithoutTransport(t *testing.T) {
	p := NewPipeline(nil, Options{Clock: clockwork.NewFakeClock()})
	defer p.Close()

	if err := p.Start(context.Background(), pictureRequest(10)); !errors.Is(err, ErrTransportUnavailable) {
		t.Fatalf("expected ErrTransportUnavailable got %v", err)
	}
	if got := p.Task().Status; got != StatusFailed {
		t.Fatalf("expected failed status got %s", got)
	}
}

func TestPipelineValidateMarksTaskFailed(t *testing.T) {
	clock := clockwork.NewFakeClock()
	transport := newScriptedTransport()
	rec := newRecorder()
	p := NewPipeline(transport, rec.options(clock))
	defer p.Close()

	ok := File{Name: "clip.mp4", Size: 10, ContentType: "video/mp4"}
	if err := p.Validate(ok, CategoryVideos); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if got := p.Task().Status; got != StatusIdle {
		t.Fatalf("accepted file must not create a task, got %s", got)
	}

	wrong := File{Name: "photo.png", Size: 10, ContentType: "image/png"}
	if err := p.Validate(wrong, CategoryVideos); !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("expected ErrUnsupportedType got %v", err)
	}
	task := receive(t, rec.finished)
	if task.Status != StatusFailed || task.ErrorReason != "Invalid file type for videos" {
		t.Fatalf("expected failed task got %+v", task)
	}
	if transport.calls.Load() != 0 {
		t.Fatal("Validate must not reach the transport")
	}

	clock.Advance(FailureDisplay)
	waitForCondition(t, func() bool { return p.Task().Status == StatusIdle }, time.Second)
}

func TestPipelineValidateLeavesRunningUploadAlone(t *testing.T) {
	transport := newScriptedTransport()
	p := NewPipeline(transport, Options{Clock: clockwork.NewFakeClock()})
	defer p.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := p.Start(ctx, pictureRequest(10)); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	receive(t, transport.started)

	if err := p.Validate(File{Name: "big.png", Size: PictureCeiling + 1, ContentType: "image/png"}, CategoryPictures); !errors.Is(err, ErrFileTooLarge) {
		t.Fatalf("expected ErrFileTooLarge got %v", err)
	}
	if got := p.Task().Status; got != StatusUploading {
		t.Fatalf("running upload was replaced: %s", got)
	}
}

func TestPipelineClampsBytesSentToFileSize(t *testing.T) {
	clock := clockwork.NewFakeClock()
	transport := newScriptedTransport()
	rec := newRecorder()
	p := NewPipeline(transport, rec.options(clock))
	defer p.Close()

	if err := p.Start(context.Background(), pictureRequest(100)); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	receive(t, transport.started)

	// the file grew after it was measured
	transport.steps <- step{sent: 150}
	progress := receive(t, rec.progress)
	if progress.Percent != 100 {
		t.Fatalf("expected percent capped at 100 got %d", progress.Percent)
	}
	if task := p.Task(); task.BytesSent != 100 {
		t.Fatalf("expected bytesSent clamped to 100 got %d", task.BytesSent)
	}

	transport.steps <- step{done: true}
	receive(t, rec.finished)
}

func receive[T any](t *testing.T, ch chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for value")
	}
	var zero T
	return zero
}

func waitForCondition(t *testing.T, predicate func() bool, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if predicate() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met within %v", timeout)
}
