package fsm

import (
	"github.com/canopy-network/stakebatch/lib"
)

/* This file implements the persisted task queue that drives the multi-step rounds against the venue */

// TaskKind is the round a task belongs to
type TaskKind string

const (
	TaskKindStake   TaskKind = "stake"
	TaskKindRedeem  TaskKind = "redeem"
	TaskKindRefresh TaskKind = "refresh"
)

// Continuation names the engine step that consumes the outcome of a task's venue calls
type Continuation string

const (
	OnRunStakeBatch                   Continuation = "on_run_stake_batch"
	OnDepositAndStake                 Continuation = "on_deposit_and_stake"
	ProcessStakedBatch                Continuation = "process_staked_batch"
	ClearStakeLock                    Continuation = "clear_stake_lock"
	OnRunRedeemStakeBatch             Continuation = "on_run_redeem_stake_batch"
	OnUnstake                         Continuation = "on_unstake"
	ClearRedeemLock                   Continuation = "clear_redeem_lock"
	OnRedeemingStakePendingWithdrawal Continuation = "on_redeeming_stake_pending_withdrawal"
	OnRedeemingStakePostWithdrawal    Continuation = "on_redeeming_stake_post_withdrawal"
	OnRefreshStakeTokenValue          Continuation = "on_refresh_stake_token_value"
	ClearRefreshLock                  Continuation = "clear_refresh_lock"
)

// maxReadAttempts bounds how often a failed trailing get_account is re-issued
const maxReadAttempts = 3

// TaskArgs carries amounts from the step that scheduled a task to its continuation
type TaskArgs struct {
	Liquidity lib.YoctoNear `json:"liquidity"` // NEAR lent to the stake round from the pending withdrawal
	Withdrawn lib.YoctoNear `json:"withdrawn"` // NEAR withdrawn from the venue by the task
	Pooled    lib.YoctoNear `json:"pooled"`    // NEAR drawn from the liquidity pool into the deposit
	Unstaked  lib.YoctoNear `json:"unstaked"`  // NEAR unstaked at the venue for the redeem batch
}

// Task is a scheduled sequence of venue calls and the continuations that consume its outcome
// - Then runs when every call succeeded
// - Finally runs when a call or Then failed, or when Then scheduled nothing further
// - Round fences both against the lock of the round that scheduled the task
type Task struct {
	Id      uint64          `json:"id"`
	Round   uint64          `json:"round"`
	Kind    TaskKind        `json:"kind"`
	Calls   []lib.VenueCall `json:"calls"`
	Then    Continuation    `json:"then"`
	Finally Continuation    `json:"finally,omitempty"`
	Gas     lib.Gas         `json:"gas"` // reserved for Then
	Args    TaskArgs        `json:"args"`
	Attempt uint32          `json:"attempt,omitempty"`
	Moved   bool            `json:"moved,omitempty"` // a retried read follows calls that already moved funds
	Started bool            `json:"started,omitempty"` // handed to the worker; its calls may have reached the venue
}

// TaskResult is the outcome of executing a task's calls, in order, until the first failure
type TaskResult struct {
	TaskId    uint64                  `json:"taskId"`
	Completed int                     `json:"completed"`         // number of calls that succeeded
	Account   *lib.StakingPoolAccount `json:"account,omitempty"` // reply of the last successful get_account
	Err       string                  `json:"err,omitempty"`
}

// Success() is true when every call of the task succeeded
func (r *TaskResult) Success(t *Task) bool { return r.Err == "" && r.Completed == len(t.Calls) }

// schedule() persists a new task
func (s *StateMachine) schedule(t *Task) lib.ErrorI {
	id, err := s.nextSequence(taskSequenceKey())
	if err != nil {
		return err
	}
	t.Id = id
	s.scheduled++
	s.log.Debugf("Scheduled %s task %d (round %d) -> %s", t.Kind, t.Id, t.Round, t.Then)
	return s.setRecord(KeyForTask(id), t)
}

// getAccountCall() is the venue read every continuation consumes
func (s *StateMachine) getAccountCall() lib.VenueCall {
	return lib.VenueCall{Kind: lib.CallGetAccount, Gas: s.Config.StakingPool.GetAccount}
}

// GetTask() returns a scheduled task or nil
func (s *StateMachine) GetTask(id uint64) (*Task, lib.ErrorI) {
	bz, err := s.Get(KeyForTask(id))
	if err != nil || bz == nil {
		return nil, err
	}
	t := new(Task)
	if err = lib.Unmarshal(bz, t); err != nil {
		return nil, err
	}
	return t, nil
}

// GetTasks() returns every scheduled task in execution order
func (s *StateMachine) GetTasks() (tasks []*Task, err lib.ErrorI) {
	err = s.IterateAndExecute(TaskPrefix(), func(_, value []byte) lib.ErrorI {
		t := new(Task)
		if e := lib.Unmarshal(value, t); e != nil {
			return e
		}
		tasks = append(tasks, t)
		return nil
	})
	return
}

// NextTask() returns the oldest scheduled task or nil
func (s *StateMachine) NextTask() (*Task, lib.ErrorI) {
	it, err := s.Iterator(TaskPrefix())
	if err != nil {
		return nil, err
	}
	defer it.Close()
	if !it.Valid() {
		return nil, nil
	}
	t := new(Task)
	if err = lib.Unmarshal(it.Value(), t); err != nil {
		return nil, err
	}
	return t, nil
}

// StartTask() marks the oldest scheduled task as handed to the worker and returns it, or nil
// a started task is only removed by its result; starting does not tick the block clock
func (s *StateMachine) StartTask() (task *Task, err lib.ErrorI) {
	err = s.transact(func() lib.ErrorI {
		t, e := s.NextTask()
		if e != nil || t == nil {
			return e
		}
		t.Started, task = true, t
		return s.setRecord(KeyForTask(t.Id), t)
	}, false)
	return
}

// deleteTasks() drops every scheduled task of the kinds and returns them
// fails without dropping anything while a task of the kinds is started
func (s *StateMachine) deleteTasks(kinds ...TaskKind) (deleted []*Task, err lib.ErrorI) {
	tasks, err := s.GetTasks()
	if err != nil {
		return nil, err
	}
	for _, t := range tasks {
		for _, k := range kinds {
			if t.Kind == k && t.Started {
				return nil, ErrTaskInFlight(t)
			}
		}
	}
	for _, t := range tasks {
		for _, k := range kinds {
			if t.Kind != k {
				continue
			}
			if err = s.Delete(KeyForTask(t.Id)); err != nil {
				return nil, err
			}
			deleted = append(deleted, t)
		}
	}
	return
}

// HandleTaskResult() consumes the outcome of a task
// results for unknown tasks are ignored, which makes duplicate and late deliveries harmless
func (s *StateMachine) HandleTaskResult(r TaskResult) lib.ErrorI {
	var task *Task
	runFinally := false
	err := s.atomic(func() lib.ErrorI {
		t, err := s.GetTask(r.TaskId)
		if err != nil {
			return err
		}
		if t == nil {
			s.log.Debugf("Ignoring result of unknown task %d", r.TaskId)
			return nil
		}
		task = t
		if err = s.Delete(KeyForTask(t.Id)); err != nil {
			return err
		}
		if !r.Success(t) {
			if retried, e := s.retryTrailingRead(t, &r); e != nil || retried {
				return e
			}
			runFinally = true
			return s.EventTaskFailed(t, "call", r.Err)
		}
		fenced, err := s.fenced(t)
		if err != nil || !fenced {
			return err
		}
		if err = s.runContinuation(t.Then, t, &r); err != nil {
			return err
		}
		runFinally = s.scheduled == 0
		return nil
	})
	// a failed continuation leaves no trace besides the task removal and the failure event
	if err != nil && task != nil {
		r.Err = err.Error()
		s.log.Errorf("Continuation %s of task %d failed: %s", task.Then, task.Id, err.Error())
		if e := s.atomic(func() lib.ErrorI {
			if er := s.Delete(KeyForTask(task.Id)); er != nil {
				return er
			}
			return s.EventTaskFailed(task, "continuation", err.Error())
		}); e != nil {
			return e
		}
		runFinally = true
	}
	if runFinally && task.Finally != "" {
		if e := s.atomic(func() lib.ErrorI {
			fenced, er := s.fenced(task)
			if er != nil || !fenced {
				return er
			}
			return s.runContinuation(task.Finally, task, &r)
		}); e != nil {
			return e
		}
	}
	return err
}

// retryTrailingRead() re-issues the get_account that closes a task whose mutating calls all succeeded
func (s *StateMachine) retryTrailingRead(t *Task, r *TaskResult) (bool, lib.ErrorI) {
	last := len(t.Calls) - 1
	if last < 0 || r.Completed != last || t.Calls[last].Kind != lib.CallGetAccount || t.Attempt+1 >= maxReadAttempts {
		return false, nil
	}
	// a lone first read trails nothing; failing it is safe
	if last == 0 && t.Attempt == 0 {
		return false, nil
	}
	s.log.Warnf("Trailing get_account of task %d failed, retrying: %s", t.Id, r.Err)
	return true, s.schedule(&Task{
		Round:   t.Round,
		Kind:    t.Kind,
		Calls:   []lib.VenueCall{t.Calls[last]},
		Then:    t.Then,
		Finally: t.Finally,
		Gas:     t.Gas,
		Args:    t.Args,
		Attempt: t.Attempt + 1,
		Moved:   t.Moved || movedFunds(t, r),
	})
}

// fenced() is true while the lock still belongs to the round that scheduled the task
func (s *StateMachine) fenced(t *Task) (bool, lib.ErrorI) {
	c, err := s.GetContract()
	if err != nil {
		return false, err
	}
	ok := false
	switch t.Kind {
	case TaskKindStake:
		ok = (c.StakeLock.State == StakeLockStaking || c.StakeLock.State == StakeLockStaked) && c.StakeLock.Round == t.Round
	case TaskKindRefresh:
		ok = c.StakeLock.State == StakeLockRefreshing && c.StakeLock.Round == t.Round
	case TaskKindRedeem:
		ok = c.RedeemLock.State != RedeemLockNone && c.RedeemLock.Round == t.Round
	}
	if !ok {
		s.log.Debugf("Dropping stale %s task %d of round %d", t.Kind, t.Id, t.Round)
	}
	return ok, nil
}

// runContinuation() dispatches a continuation by name
func (s *StateMachine) runContinuation(name Continuation, t *Task, r *TaskResult) lib.ErrorI {
	switch name {
	case OnRunStakeBatch:
		return s.onRunStakeBatch(t, r)
	case OnDepositAndStake:
		return s.onDepositAndStake(t, r)
	case ProcessStakedBatch:
		return s.onProcessStakedBatch(t)
	case ClearStakeLock:
		return s.clearStakeLock(t, r)
	case OnRunRedeemStakeBatch:
		return s.onRunRedeemStakeBatch(t, r)
	case OnUnstake:
		return s.onUnstake(t, r)
	case ClearRedeemLock:
		return s.clearRedeemLock(t, r)
	case OnRedeemingStakePendingWithdrawal:
		return s.onRedeemingStakePendingWithdrawal(t, r)
	case OnRedeemingStakePostWithdrawal:
		return s.onRedeemingStakePostWithdrawal(t, r)
	case OnRefreshStakeTokenValue:
		return s.onRefreshStakeTokenValue(t, r)
	case ClearRefreshLock:
		return s.clearRefreshLock(t)
	}
	return ErrUnknownCallback(name)
}

// movedFunds() is true when a call that moves funds at the venue succeeded but its outcome was never consumed
// a safety net must not release such a round: the venue and the engine's books disagree until an operator steps in
func movedFunds(t *Task, r *TaskResult) bool {
	if r.Success(t) {
		return false
	}
	if t.Moved {
		return true
	}
	for i := 0; i < r.Completed && i < len(t.Calls); i++ {
		if t.Calls[i].Kind.Mutating() {
			return true
		}
	}
	return false
}

// hasTasks() is true if a task of the kind is scheduled
func (s *StateMachine) hasTasks(kind TaskKind) (bool, lib.ErrorI) {
	tasks, err := s.GetTasks()
	if err != nil {
		return false, err
	}
	for _, t := range tasks {
		if t.Kind == kind {
			return true, nil
		}
	}
	return false, nil
}

// venueAccount() is the venue reply a continuation requires
func venueAccount(r *TaskResult) (*lib.StakingPoolAccount, lib.ErrorI) {
	if r.Account == nil {
		return nil, ErrMissingVenueState()
	}
	return r.Account, nil
}
