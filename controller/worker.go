package controller

import (
	"context"
	"time"

	"github.com/canopy-network/stakebatch/fsm"
	"github.com/canopy-network/stakebatch/lib"
	"github.com/canopy-network/stakebatch/venue"
)

/* This file implements the saga worker that executes scheduled venue calls */

// runWorker() drains the task queue whenever it is woken or the poll interval elapses
func (c *Controller) runWorker(ctx context.Context) error {
	ticker := time.NewTicker(c.pollInterval())
	defer ticker.Stop()
	for {
		c.drain(ctx)
		select {
		case <-ctx.Done():
			c.log.Debug("Worker stopped")
			return nil
		case <-ticker.C:
		case <-c.wake:
		}
	}
}

// drain() runs one pass over the task queue; a panic is logged and the worker keeps polling
func (c *Controller) drain(ctx context.Context) {
	defer lib.CatchPanic(c.log)
	if _, err := c.ProcessTasks(ctx); err != nil {
		c.log.Errorf("Processing tasks failed with err: %s", err.Error())
	}
}

// ProcessTasks() delivers scheduled tasks, oldest first, until the queue is empty or ctx is done
// continuation failures are recorded by the state machine and do not stop the queue
func (c *Controller) ProcessTasks(ctx context.Context) (processed int, err lib.ErrorI) {
	for ctx.Err() == nil {
		var task *fsm.Task
		if err = c.Update(func(sm *fsm.StateMachine) (e lib.ErrorI) {
			task, e = sm.StartTask()
			return
		}); err != nil || task == nil {
			return
		}
		result := c.execute(task)
		if e := c.Update(func(sm *fsm.StateMachine) lib.ErrorI { return sm.HandleTaskResult(result) }); e != nil {
			c.log.Warnf("Task %d (%s) ended with err: %s", task.Id, task.Then, e.Error())
		}
		processed++
	}
	return
}

// execute() performs the venue calls of a task outside the lock
// the calls are bounded by the call timeout only, so shutdown never abandons a call midway
func (c *Controller) execute(task *fsm.Task) fsm.TaskResult {
	timeout := c.Config.CallTimeout() * time.Duration(len(task.Calls)+1)
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	c.log.Debugf("Executing %s task %d with %d calls", task.Kind, task.Id, len(task.Calls))
	completed, account, err := venue.Execute(ctx, c.Venue, task.Calls, c.Metrics)
	result := fsm.TaskResult{TaskId: task.Id, Completed: completed, Account: account}
	if err != nil {
		result.Err = err.Error()
	}
	return result
}
