package fsm

import (
	"context"
	"math"
	"testing"

	"github.com/canopy-network/stakebatch/lib"
	"github.com/canopy-network/stakebatch/store"
	"github.com/canopy-network/stakebatch/venue"
	"github.com/stretchr/testify/require"
)

const testOwner = "owner"

// testStateMachine is a state machine over an in-memory store with a simulated venue
type testStateMachine struct {
	*StateMachine
	db    lib.StoreI
	venue *venue.Simulator
}

func newTestStateMachine(t *testing.T) *testStateMachine {
	log := lib.NewNullLogger()
	db, err := store.NewStoreInMemory(log)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	config := lib.DefaultConfig()
	config.OwnerId = testOwner
	sm, err := New(config, db, nil, log)
	require.NoError(t, err)
	return &testStateMachine{StateMachine: sm, db: db, venue: venue.NewSimulator(config.VenueConfig.AccountId)}
}

// register() registers the accounts with exactly the required escrow
func (s *testStateMachine) register(t *testing.T, ids ...string) {
	escrow, err := s.Config.StorageEscrow()
	require.NoError(t, err)
	for _, id := range ids {
		_, err = s.RegisterAccount(id, escrow)
		require.NoError(t, err)
	}
}

// execute() performs the task's venue calls against the simulator
func (s *testStateMachine) execute(task *Task) TaskResult {
	completed, account, err := venue.Execute(context.Background(), s.venue, task.Calls, nil)
	r := TaskResult{TaskId: task.Id, Completed: completed, Account: account}
	if err != nil {
		r.Err = err.Error()
	}
	return r
}

// runTasks() delivers scheduled tasks until the queue is empty and returns the continuation errors
func (s *testStateMachine) runTasks(t *testing.T) (errs []lib.ErrorI) {
	for i := 0; i < 100; i++ {
		task, err := s.NextTask()
		require.NoError(t, err)
		if task == nil {
			return
		}
		if err = s.HandleTaskResult(s.execute(task)); err != nil {
			errs = append(errs, err)
		}
	}
	t.Fatal("the task queue never drained")
	return
}

// stake() deposits for the account and runs the stake round to completion
func (s *testStateMachine) stake(t *testing.T, id string, amount lib.YoctoNear) {
	_, err := s.Deposit(id, amount)
	require.NoError(t, err)
	require.NoError(t, s.Stake())
	require.Empty(t, s.runTasks(t))
}

func (s *testStateMachine) contract(t *testing.T) *ContractState {
	c, err := s.GetContract()
	require.NoError(t, err)
	return c
}

func (s *testStateMachine) account(t *testing.T, id string) *Account {
	a, err := s.GetAccount(id)
	require.NoError(t, err)
	return a
}

// countEvents() is the number of logged events of the type
func (s *testStateMachine) countEvents(t *testing.T, eventType EventType) int {
	page, err := s.GetEventsPaginated(lib.PageParams{PerPage: 1}, eventType)
	require.NoError(t, err)
	return page.TotalCount
}

func TestInitialize(t *testing.T) {
	sm := newTestStateMachine(t)
	c := sm.contract(t)
	require.Equal(t, testOwner, c.OwnerId)
	require.Equal(t, uint64(1), c.BlockHeight)
	// initializing again keeps the contract, only the block advances
	require.NoError(t, sm.Initialize())
	c = sm.contract(t)
	require.Equal(t, testOwner, c.OwnerId)
	require.Equal(t, uint64(2), c.BlockHeight)
}

func TestAtomicDiscardsOnError(t *testing.T) {
	tests := []struct {
		name   string
		detail string
		op     func(s *StateMachine) lib.ErrorI
	}{
		{
			name:   "error",
			detail: "a failing operation leaves no writes behind",
			op: func(s *StateMachine) lib.ErrorI {
				c, err := s.GetContract()
				if err != nil {
					return err
				}
				c.TotalNear = lib.NearToYocto(1)
				if err = s.SetContract(c); err != nil {
					return err
				}
				return ErrZeroAmount()
			},
		},
		{
			name:   "panic",
			detail: "a panicking operation is recovered and discarded",
			op: func(s *StateMachine) lib.ErrorI {
				c, err := s.GetContract()
				if err != nil {
					return err
				}
				c.TotalNear = lib.NearToYocto(1)
				if err = s.SetContract(c); err != nil {
					return err
				}
				panic("boom")
			},
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			sm := newTestStateMachine(t)
			before := sm.contract(t)
			require.Error(t, sm.atomic(func() lib.ErrorI { return test.op(sm.StateMachine) }))
			require.Equal(t, before, sm.contract(t))
		})
	}
}

func TestWriteOutsideOperation(t *testing.T) {
	sm := newTestStateMachine(t)
	err := sm.SetContract(NewContractState("someone"))
	require.Error(t, err)
	require.Equal(t, ErrWriteOutsideOperation().Code(), err.Code())
}

func TestNextBatchId(t *testing.T) {
	tests := []struct {
		name     string
		detail   string
		sequence BatchId
		expected BatchId
		error    bool
	}{
		{
			name:     "first",
			detail:   "the first id is one since zero means no batch",
			expected: 1,
		},
		{
			name:     "increasing",
			detail:   "ids follow the shared sequence",
			sequence: 41,
			expected: 42,
		},
		{
			name:     "exhausted",
			detail:   "the sequence never wraps back to a used id",
			sequence: math.MaxUint64,
			error:    true,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			c := &ContractState{BatchIdSequence: test.sequence}
			id, err := c.nextBatchId()
			if test.error {
				require.Error(t, err)
				require.Equal(t, test.sequence, c.BatchIdSequence)
				return
			}
			require.NoError(t, err)
			require.Equal(t, test.expected, id)
			require.Equal(t, test.expected, c.BatchIdSequence)
		})
	}
}
