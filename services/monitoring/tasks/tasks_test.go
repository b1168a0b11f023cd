package tasks

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/degentalk/dgt-ledger/services/monitoring/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddTaskRejectsDuplicates(t *testing.T) {
	ts := NewTaskScheduler(logging.NewDiscardLogger())
	noop := func(context.Context) error { return nil }

	_, err := ts.AddTask("reconcile", "reconcile", noop, time.Minute)
	require.NoError(t, err)
	_, err = ts.AddTask("reconcile", "reconcile", noop, time.Minute)
	assert.Error(t, err)
	assert.Len(t, ts.ListTasks(), 1)
}

func TestRunTaskRecordsFailure(t *testing.T) {
	ts := NewTaskScheduler(logging.NewDiscardLogger())
	boom := errors.New("boom")
	task, err := ts.AddTask("t", "failing", func(context.Context) error { return boom }, 0)
	require.NoError(t, err)

	require.NoError(t, ts.RunTask("t"))
	assert.Equal(t, 1, task.Runs())
	assert.False(t, task.LastRun().IsZero())
	assert.ErrorIs(t, <-task.Errors, boom)

	// a second failure with nobody reading must not block
	require.NoError(t, ts.RunTask("t"))
	require.NoError(t, ts.RunTask("t"))
	assert.Equal(t, 3, task.Runs())

	assert.Error(t, ts.RunTask("missing"))
}

func TestScheduleTaskRepeatsUntilStopped(t *testing.T) {
	ts := NewTaskScheduler(logging.NewDiscardLogger())
	defer ts.Shutdown()

	var calls atomic.Int32
	task, err := ts.AddTask("tick", "tick", func(context.Context) error {
		calls.Add(1)
		return nil
	}, 5*time.Millisecond)
	require.NoError(t, err)

	require.NoError(t, ts.ScheduleTask("tick", 0))
	assert.Error(t, ts.ScheduleTask("tick", 0), "already scheduled")

	assert.Eventually(t, func() bool { return calls.Load() >= 3 }, time.Second, time.Millisecond)

	require.NoError(t, ts.StopTask("tick"))
	time.Sleep(20 * time.Millisecond)
	stopped := task.Runs()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, stopped, task.Runs())
}

func TestShutdownCancelsTaskContext(t *testing.T) {
	ts := NewTaskScheduler(logging.NewDiscardLogger())
	started := make(chan struct{})
	_, err := ts.AddTask("long", "long", func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	}, 0)
	require.NoError(t, err)
	require.NoError(t, ts.ScheduleTask("long", 0))

	<-started
	done := make(chan struct{})
	go func() {
		ts.Shutdown()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("shutdown did not return")
	}
}

func TestRemoveTask(t *testing.T) {
	ts := NewTaskScheduler(logging.NewDiscardLogger())
	_, err := ts.AddTask("x", "x", func(context.Context) error { return nil }, time.Hour)
	require.NoError(t, err)
	require.NoError(t, ts.ScheduleTask("x", time.Hour))
	require.NoError(t, ts.RemoveTask("x"))

	_, err = ts.GetTask("x")
	assert.Error(t, err)
	ts.Shutdown()
}

func TestOneShotTaskCanBeScheduledAgain(t *testing.T) {
	ts := NewTaskScheduler(logging.NewDiscardLogger())
	defer ts.Shutdown()

	task, err := ts.AddTask("once", "once", func(context.Context) error { return nil }, 0)
	require.NoError(t, err)
	require.NoError(t, ts.ScheduleTask("once", 0))
	assert.Eventually(t, func() bool { return task.Runs() == 1 }, time.Second, time.Millisecond)

	assert.Eventually(t, func() bool { return ts.ScheduleTask("once", 0) == nil }, time.Second, time.Millisecond)
	assert.Eventually(t, func() bool { return task.Runs() == 2 }, time.Second, time.Millisecond)
}

func TestRescheduleWaitsForStoppedRun(t *testing.T) {
	ts := NewTaskScheduler(logging.NewDiscardLogger())
	defer ts.Shutdown()

	var running, peak atomic.Int32
	started := make(chan struct{}, 2)
	release := make(chan struct{})
	_, err := ts.AddTask("slow", "slow", func(context.Context) error {
		n := running.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		started <- struct{}{}
		<-release
		running.Add(-1)
		return nil
	}, 0)
	require.NoError(t, err)

	require.NoError(t, ts.ScheduleTask("slow", 0))
	<-started
	require.NoError(t, ts.StopTask("slow"))

	rescheduled := make(chan error, 1)
	go func() { rescheduled <- ts.ScheduleTask("slow", 0) }()
	select {
	case <-rescheduled:
		t.Fatal("rescheduled while the previous run was still executing")
	case <-time.After(20 * time.Millisecond):
	}

	close(release)
	require.NoError(t, <-rescheduled)
	<-started
	assert.Equal(t, int32(1), peak.Load())
}
