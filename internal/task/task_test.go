package task_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"craftinstall/internal/domain"
	"craftinstall/internal/task"
)

func TestPercentageIsClamped(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{in: -20, want: 0},
		{in: 42.5, want: 42.5},
		{in: 250, want: 100},
	}
	for _, tt := range tests {
		tk := task.New(context.Background(), "srv", "1.20.1")
		assert.True(t, tk.ChangePercentage(tt.in))
		assert.Equal(t, tt.want, tk.Snapshot().Percentage)
	}
}

func TestPercentageFrozenAfterTerminal(t *testing.T) {
	tk := task.New(context.Background(), "srv", "1.20.1")
	require.True(t, tk.ChangePercentage(30))
	require.True(t, tk.Fail(errors.New("boom")))

	assert.False(t, tk.ChangePercentage(80))
	assert.False(t, tk.ChangeStatus(task.ProcessStatus("late")))
	assert.Equal(t, 30.0, tk.Snapshot().Percentage)
	assert.Equal(t, task.Failed, tk.Snapshot().Outcome)
}

func TestPercentageNeverDecreasesWithinStatus(t *testing.T) {
	tk := task.New(context.Background(), "srv", "1.20.1")
	require.True(t, tk.ChangeStatusPercentage(task.DownloadStatus("u"), 0))
	require.True(t, tk.ChangePercentage(40))
	assert.False(t, tk.ChangePercentage(20))
	assert.Equal(t, 40.0, tk.Snapshot().Percentage)
}

func TestTerminalFiresOnce(t *testing.T) {
	tk := task.New(context.Background(), "srv", "1.20.1")

	var wg sync.WaitGroup
	results := make(chan bool, 20)
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if i%2 == 0 {
				results <- tk.Finish(nil)
			} else {
				results <- tk.Fail(errors.New("racing failure"))
			}
		}()
	}
	wg.Wait()
	close(results)

	wins := 0
	for r := range results {
		if r {
			wins++
		}
	}
	assert.Equal(t, 1, wins)
	select {
	case <-tk.Done():
	default:
		t.Fatal("task not terminal")
	}
}

func TestFinishRunsCommit(t *testing.T) {
	tk := task.New(context.Background(), "srv", "1.20.1")
	committed := false
	require.True(t, tk.Finish(func() error {
		committed = true
		return nil
	}))
	assert.True(t, committed)
	assert.NoError(t, tk.Wait(context.Background()))
	assert.Equal(t, 100.0, tk.Snapshot().Percentage)
}

func TestFinishCommitErrorFails(t *testing.T) {
	tk := task.New(context.Background(), "srv", "1.20.1")
	errDisk := errors.New("disk full")
	assert.False(t, tk.Finish(func() error { return errDisk }))
	assert.ErrorIs(t, tk.Wait(context.Background()), errDisk)
	assert.Equal(t, task.Failed, tk.Snapshot().Outcome)
}

func TestCancelledTaskNeverFinishes(t *testing.T) {
	tk := task.New(context.Background(), "srv", "1.20.1")
	tk.Cancel()
	tk.Cancel()

	committed := false
	assert.False(t, tk.Finish(func() error {
		committed = true
		return nil
	}))
	assert.False(t, committed)

	err := tk.Wait(context.Background())
	assert.ErrorIs(t, err, domain.ErrCancelled)
	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, tk.StopRequested())
}

func TestFailAfterCancelWrapsCancellation(t *testing.T) {
	tk := task.New(context.Background(), "srv", "1.20.1")
	tk.Cancel()
	require.True(t, tk.Fail(tk.Context().Err()))

	err := tk.Err()
	assert.ErrorIs(t, err, domain.ErrCancelled)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCancelAfterFinishIsNoop(t *testing.T) {
	tk := task.New(context.Background(), "srv", "1.20.1")
	require.True(t, tk.Finish(nil))
	tk.Cancel()
	assert.False(t, tk.StopRequested())
	assert.NoError(t, tk.Err())
}

func TestParentCancellationCancelsTask(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	tk := task.New(parent, "srv", "1.20.1")
	cancel()

	select {
	case <-tk.Context().Done():
	case <-time.After(time.Second):
		t.Fatal("task context not cancelled")
	}
	assert.False(t, tk.Finish(nil))
	assert.ErrorIs(t, tk.Err(), domain.ErrCancelled)
}

func TestStatusMovesForwardOnly(t *testing.T) {
	tk := task.New(context.Background(), "srv", "1.20.1")
	require.True(t, tk.ChangeStatus(task.DownloadStatus("https://example/BuildTools.jar")))
	require.True(t, tk.ChangeStatus(task.ToolStatus(task.ToolInitialize)))
	require.True(t, tk.ChangeStatus(task.ToolStatus(task.ToolUpdate)))

	assert.False(t, tk.ChangeStatus(task.ToolStatus(task.ToolInitialize)))
	assert.False(t, tk.ChangeStatus(task.DownloadStatus("again")))
	assert.True(t, tk.ChangeStatus(task.ToolStatus(task.ToolBuild)))
	assert.Equal(t, task.ToolBuild, tk.Snapshot().Status.Tool)
}

func TestObserverSeesOrderedUpdates(t *testing.T) {
	var (
		mu      sync.Mutex
		updates []task.Update
	)
	tk := task.New(context.Background(), "srv", "1.20.1", task.WithObserver(func(u task.Update) {
		mu.Lock()
		defer mu.Unlock()
		updates = append(updates, u)
	}))

	tk.ChangeStatusPercentage(task.DownloadStatus("u"), 0)
	for p := 10.0; p <= 50; p += 10 {
		tk.ChangePercentage(p)
	}
	tk.ChangeStatusPercentage(task.ProcessStatus("Running installer"), 50)
	tk.ReportMessage("Extracting libraries")
	tk.Finish(nil)

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, updates)
	for i := 1; i < len(updates); i++ {
		if updates[i].Status.Kind == updates[i-1].Status.Kind {
			assert.GreaterOrEqual(t, updates[i].Percentage, updates[i-1].Percentage)
		}
	}
	last := updates[len(updates)-1]
	assert.Equal(t, task.Finished, last.Outcome)
	assert.Equal(t, "Extracting libraries", last.Status.LastMessage)
}

func TestOnValidateFailed(t *testing.T) {
	tk := task.New(context.Background(), "srv", "1.20.1")
	assert.Equal(t, domain.DecisionAbort, tk.OnValidateFailed("f", nil, nil))

	calls := 0
	tk = task.New(context.Background(), "srv", "1.20.1", task.WithValidator(
		func(file string, actual, expected []byte) domain.ValidateDecision {
			calls++
			return domain.DecisionRetry
		}))
	assert.Equal(t, domain.DecisionRetry, tk.OnValidateFailed("f", []byte{1}, []byte{2}))
	assert.Equal(t, 1, calls)

	tk.Cancel()
	assert.Equal(t, domain.DecisionAbort, tk.OnValidateFailed("f", nil, nil))
	assert.Equal(t, 1, calls)
}

func TestDoneClosesAfterTerminalUpdate(t *testing.T) {
	var tk *task.Task
	closedEarly := make(chan bool, 1)
	tk = task.New(context.Background(), "srv", "1.20.1", task.WithObserver(func(u task.Update) {
		if u.Outcome == task.Running {
			return
		}
		select {
		case <-tk.Done():
			closedEarly <- true
		default:
			closedEarly <- false
		}
	}))

	require.True(t, tk.Fail(errors.New("boom")))
	<-tk.Done()
	assert.False(t, <-closedEarly, "observers see the outcome before Done closes")
}
