package tasks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/degentalk/dgt-ledger/services/monitoring/logging"
	"github.com/sirupsen/logrus"
)

// Task represents a scheduled task
type Task struct {
	ID       string
	Name     string
	Fn       func(context.Context) error
	Interval time.Duration // zero means run once
	Errors   chan error    // last failures, dropped when nobody reads them

	mu      sync.Mutex
	lastRun time.Time
	runs    int
	cancel  context.CancelFunc
	done    chan struct{} // closed when the scheduled goroutine exits
}

func (t *Task) IsRecurring() bool { return t.Interval > 0 }

func (t *Task) LastRun() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastRun
}

func (t *Task) Runs() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.runs
}

// TaskScheduler runs background jobs such as reconciliation.
type TaskScheduler struct {
	tasks  map[string]*Task
	mu     sync.RWMutex
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	logger *logging.Logger
}

func NewTaskScheduler(logger *logging.Logger) *TaskScheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &TaskScheduler{
		tasks:  make(map[string]*Task),
		ctx:    ctx,
		cancel: cancel,
		logger: logger,
	}
}

func (ts *TaskScheduler) log(t *Task) *logrus.Entry {
	return ts.logger.WithFields(logrus.Fields{"task_id": t.ID, "task": t.Name})
}

// AddTask registers a task. It does not start it.
func (ts *TaskScheduler) AddTask(id, name string, fn func(context.Context) error, interval time.Duration) (*Task, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if _, exists := ts.tasks[id]; exists {
		return nil, fmt.Errorf("task with ID %s already exists", id)
	}

	task := &Task{
		ID:       id,
		Name:     name,
		Fn:       fn,
		Interval: interval,
		Errors:   make(chan error, 1),
	}
	ts.tasks[id] = task
	ts.log(task).Info("task added")
	return task, nil
}

func (ts *TaskScheduler) execute(ctx context.Context, task *Task) {
	start := time.Now()
	err := task.Fn(ctx)

	task.mu.Lock()
	task.lastRun = start
	task.runs++
	task.mu.Unlock()

	if err != nil {
		ts.log(task).WithError(err).Error("task failed")
		select {
		case task.Errors <- err:
		default:
			ts.log(task).Warn("error channel full, dropping error")
		}
		return
	}
	ts.log(task).WithField("duration", time.Since(start).String()).Debug("task finished")
}

// RunTask executes a task once, synchronously.
func (ts *TaskScheduler) RunTask(id string) error {
	task, err := ts.GetTask(id)
	if err != nil {
		return err
	}
	ts.execute(ts.ctx, task)
	return nil
}

// ScheduleTask starts the task after delay. Recurring tasks then repeat
// every Interval until stopped. A run never overlaps the previous one: if a
// stopped run is still executing, ScheduleTask waits for it to return.
func (ts *TaskScheduler) ScheduleTask(id string, delay time.Duration) error {
	task, err := ts.GetTask(id)
	if err != nil {
		return err
	}

	task.mu.Lock()
	for task.done != nil {
		if task.cancel != nil {
			task.mu.Unlock()
			return fmt.Errorf("task with ID %s is already scheduled", id)
		}
		prev := task.done
		task.mu.Unlock()
		<-prev
		task.mu.Lock()
	}
	ctx, cancel := context.WithCancel(ts.ctx)
	done := make(chan struct{})
	task.cancel = cancel
	task.done = done
	task.mu.Unlock()

	ts.log(task).WithField("delay", delay.String()).Info("task scheduled")

	ts.wg.Add(1)
	go func() {
		defer ts.wg.Done()
		defer func() {
			cancel()
			task.mu.Lock()
			task.cancel = nil
			task.done = nil
			task.mu.Unlock()
			close(done)
		}()

		timer := time.NewTimer(delay)
		defer timer.Stop()

		for {
			select {
			case <-ctx.Done():
				ts.log(task).Info("task stopped")
				return
			case <-timer.C:
				ts.execute(ctx, task)
				if !task.IsRecurring() {
					return
				}
				timer.Reset(task.Interval)
			}
		}
	}()
	return nil
}

// StopTask stops a scheduled task without removing it.
func (ts *TaskScheduler) StopTask(id string) error {
	task, err := ts.GetTask(id)
	if err != nil {
		return err
	}
	task.mu.Lock()
	cancel := task.cancel
	task.cancel = nil
	task.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	return nil
}

func (ts *TaskScheduler) RemoveTask(id string) error {
	if err := ts.StopTask(id); err != nil {
		return err
	}
	ts.mu.Lock()
	defer ts.mu.Unlock()
	delete(ts.tasks, id)
	ts.logger.WithField("task_id", id).Info("task removed")
	return nil
}

func (ts *TaskScheduler) GetTask(id string) (*Task, error) {
	ts.mu.RLock()
	defer ts.mu.RUnlock()

	task, exists := ts.tasks[id]
	if !exists {
		return nil, fmt.Errorf("task with ID %s not found", id)
	}
	return task, nil
}

func (ts *TaskScheduler) ListTasks() map[string]*Task {
	ts.mu.RLock()
	defer ts.mu.RUnlock()

	tasks := make(map[string]*Task, len(ts.tasks))
	for id, task := range ts.tasks {
		tasks[id] = task
	}
	return tasks
}

// Shutdown stops every task and waits for running ones to return.
func (ts *TaskScheduler) Shutdown() {
	ts.cancel()
	ts.wg.Wait()
}
