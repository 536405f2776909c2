package task

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"craftinstall/internal/domain"
)

// Outcome is the terminal state of a task
type Outcome int

const (
	Running Outcome = iota
	Finished
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Finished:
		return "finished"
	case Failed:
		return "failed"
	default:
		return "running"
	}
}

// Update is a point-in-time view of a task delivered to observers
type Update struct {
	TaskID     uuid.UUID
	Status     Status
	Percentage float64
	Outcome    Outcome
	Err        error
}

// Observer receives every update in order. Observers run synchronously and
// must not call mutating methods on the task.
type Observer func(Update)

// ValidateFunc decides what to do about a checksum mismatch
type ValidateFunc func(file string, actual, expected []byte) domain.ValidateDecision

// Option configures a task
type Option func(*Task)

// WithObserver subscribes fn to task updates
func WithObserver(fn Observer) Option {
	return func(t *Task) { t.observers = append(t.observers, fn) }
}

// WithValidator installs the checksum mismatch decision hook
func WithValidator(fn ValidateFunc) Option {
	return func(t *Task) { t.validate = fn }
}

// Task is one install attempt for a server. It is created Running and moves
// exactly once to Finished or Failed.
type Task struct {
	ID      uuid.UUID
	Server  string
	Version string

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	stopRequested atomic.Bool

	// notifyMu serialises mutation plus notification so observers see
	// updates in the order they were applied.
	notifyMu sync.Mutex

	mu         sync.Mutex
	status     Status
	percentage float64
	outcome    Outcome
	err        error

	observers []Observer
	validate  ValidateFunc
}

// New creates a running task. Cancelling parent cancels the task.
func New(parent context.Context, server, version string, opts ...Option) *Task {
	ctx, cancel := context.WithCancel(parent)
	t := &Task{
		ID:      uuid.New(),
		Server:  server,
		Version: version,
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Context is cancelled when the task is cancelled or reaches a terminal state.
// Long-running install work must run under it.
func (t *Task) Context() context.Context {
	return t.ctx
}

// Done is closed once the task is terminal
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the task is terminal and returns its error
func (t *Task) Wait(ctx context.Context) error {
	select {
	case <-t.done:
		return t.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Err returns the failure cause, or nil while running or after success
func (t *Task) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

// Snapshot returns the current state
func (t *Task) Snapshot() Update {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshotLocked()
}

func (t *Task) snapshotLocked() Update {
	return Update{
		TaskID:     t.ID,
		Status:     t.status,
		Percentage: t.percentage,
		Outcome:    t.outcome,
		Err:        t.err,
	}
}

// ChangeStatus replaces the active status. It reports false when the task is
// terminal or the status would move backwards.
func (t *Task) ChangeStatus(s Status) bool {
	return t.apply(func() bool {
		if !t.status.follows(s) {
			return false
		}
		t.status = s
		return true
	})
}

// ChangePercentage sets progress, clamped to [0,100]. Within one status the
// percentage never decreases.
func (t *Task) ChangePercentage(p float64) bool {
	return t.apply(func() bool {
		p = clamp(p)
		if p < t.percentage {
			return false
		}
		t.percentage = p
		return true
	})
}

// ChangeStatusPercentage moves to a new status and sets its starting progress
// in one update.
func (t *Task) ChangeStatusPercentage(s Status, p float64) bool {
	return t.apply(func() bool {
		if !t.status.follows(s) {
			return false
		}
		t.status = s
		t.percentage = clamp(p)
		return true
	})
}

// ReportMessage records the latest subprocess output line on the active status
func (t *Task) ReportMessage(msg string) bool {
	return t.apply(func() bool {
		if t.status.Kind == KindNone {
			t.status = ProcessStatus(msg)
			return true
		}
		t.status.LastMessage = msg
		return true
	})
}

// apply runs mutate under the task locks and notifies observers if it
// changed anything. Terminal tasks ignore all mutations.
func (t *Task) apply(mutate func() bool) bool {
	t.notifyMu.Lock()
	defer t.notifyMu.Unlock()

	t.mu.Lock()
	if t.outcome != Running || !mutate() {
		t.mu.Unlock()
		return false
	}
	u := t.snapshotLocked()
	t.mu.Unlock()

	t.notify(u)
	return true
}

func (t *Task) notify(u Update) {
	for _, fn := range t.observers {
		fn(u)
	}
}

func clamp(p float64) float64 {
	switch {
	case math.IsNaN(p), p < 0:
		return 0
	case p > 100:
		return 100
	}
	return p
}

// Finish completes the task. commit runs first, inside the terminal
// transition, and is where persisted server fields are written; if it fails
// or the task was cancelled the task fails instead. Only the first terminal
// call has any effect.
func (t *Task) Finish(commit func() error) bool {
	t.notifyMu.Lock()
	defer t.notifyMu.Unlock()

	t.mu.Lock()
	if t.outcome != Running {
		t.mu.Unlock()
		return false
	}
	t.mu.Unlock()

	if err := t.ctx.Err(); err != nil {
		t.terminate(Failed, fmt.Errorf("%w: %w", domain.ErrCancelled, context.Cause(t.ctx)))
		return false
	}
	if commit != nil {
		if err := commit(); err != nil {
			t.terminate(Failed, err)
			return false
		}
	}
	t.terminate(Finished, nil)
	return true
}

// Fail marks the task failed. A task whose context was cancelled always
// reports a cancellation error.
func (t *Task) Fail(err error) bool {
	t.notifyMu.Lock()
	defer t.notifyMu.Unlock()

	t.mu.Lock()
	if t.outcome != Running {
		t.mu.Unlock()
		return false
	}
	t.mu.Unlock()

	if err == nil {
		err = errors.New("install failed")
	}
	if t.ctx.Err() != nil && !errors.Is(err, domain.ErrCancelled) {
		err = fmt.Errorf("%w: %w", domain.ErrCancelled, err)
	}
	t.terminate(Failed, err)
	return true
}

// terminate must be called with notifyMu held. Observers see the terminal
// update before Done is closed.
func (t *Task) terminate(outcome Outcome, err error) {
	t.mu.Lock()
	t.outcome = outcome
	t.err = err
	if outcome == Finished {
		t.percentage = 100
	}
	u := t.snapshotLocked()
	t.mu.Unlock()

	t.cancel()
	t.notify(u)
	close(t.done)
}

// Cancel requests that the task stop. The in-flight download or subprocess
// observes the cancelled context and the task then fails. Repeated calls and
// calls on a terminal task do nothing.
func (t *Task) Cancel() {
	select {
	case <-t.done:
		return
	default:
	}
	if t.stopRequested.CompareAndSwap(false, true) {
		t.cancel()
	}
}

// StopRequested reports whether Cancel was called before the task ended
func (t *Task) StopRequested() bool {
	return t.stopRequested.Load()
}

// OnValidateFailed asks the decision hook how to handle a checksum mismatch.
// Without a hook, or once cancelled, the answer is Abort.
func (t *Task) OnValidateFailed(file string, actual, expected []byte) domain.ValidateDecision {
	if t.validate == nil || t.ctx.Err() != nil {
		return domain.DecisionAbort
	}
	return t.validate(file, actual, expected)
}
