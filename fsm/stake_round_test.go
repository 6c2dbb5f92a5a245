package fsm

import (
	"testing"

	"github.com/canopy-network/stakebatch/lib"
	"github.com/stretchr/testify/require"
)

func TestStakeRound(t *testing.T) {
	sm := newTestStateMachine(t)
	sm.register(t, "alice")
	id, err := sm.Deposit("alice", lib.NearToYocto(10))
	require.NoError(t, err)
	require.Equal(t, BatchId(1), id)
	require.NoError(t, sm.Stake())
	// the round holds the lock until the venue confirms
	c := sm.contract(t)
	require.Equal(t, StakeLock{State: StakeLockStaking, Round: 1}, c.StakeLock)
	require.Empty(t, sm.runTasks(t))
	c = sm.contract(t)
	require.Equal(t, StakeLockNone, c.StakeLock.State)
	require.Equal(t, BatchId(0), c.StakeBatchId)
	require.Equal(t, lib.StakeToYocto(10), c.TotalStakeSupply)
	require.Equal(t, lib.NearToYocto(10), c.StakeTokenValue.TotalStakedNearBalance)
	require.Equal(t, lib.NearToYocto(10), sm.venue.Account().StakedBalance)
	// the receipt is claimed lazily
	receipt, err := sm.GetStakeBatchReceipt(1)
	require.NoError(t, err)
	require.Equal(t, lib.NearToYocto(10), receipt.Unclaimed)
	balance, err := sm.FtBalanceOf("alice")
	require.NoError(t, err)
	require.Equal(t, lib.StakeToYocto(10), balance)
	require.NoError(t, sm.CheckConservation())
	require.NoError(t, sm.ClaimReceipts("alice"))
	a := sm.account(t, "alice")
	require.Equal(t, lib.StakeToYocto(10), a.Stake)
	require.Nil(t, a.StakeBatch)
	receipt, err = sm.GetStakeBatchReceipt(1)
	require.NoError(t, err)
	require.Nil(t, receipt)
	require.Equal(t, 1, sm.countEvents(t, EventTypeStakeBatchReceiptCreated))
	require.NoError(t, sm.CheckConservation())
}

func TestStakeRoundAfterRewards(t *testing.T) {
	sm := newTestStateMachine(t)
	sm.register(t, "alice", "bob")
	sm.stake(t, "alice", lib.NearToYocto(10))
	require.NoError(t, sm.venue.AddRewards(lib.NearToYocto(1)))
	// the second batch converts at the value that includes the rewards
	sm.stake(t, "bob", lib.NearToYocto(11))
	receipt, err := sm.GetStakeBatchReceipt(2)
	require.NoError(t, err)
	require.Equal(t, lib.NearToYocto(11), receipt.StakeTokenValue.TotalStakedNearBalance)
	require.Equal(t, lib.StakeToYocto(10), receipt.StakeTokenValue.TotalStakeSupply)
	bob, err := sm.FtBalanceOf("bob")
	require.NoError(t, err)
	require.Equal(t, lib.StakeToYocto(10), bob)
	c := sm.contract(t)
	require.Equal(t, lib.StakeToYocto(20), c.TotalStakeSupply)
	require.Equal(t, lib.NearToYocto(22), c.StakeTokenValue.TotalStakedNearBalance)
	near, err := c.StakeTokenValue.NearValue()
	require.NoError(t, err)
	require.Equal(t, lib.MustParseYoctoNear("1100000000000000000000000"), near)
	require.NoError(t, sm.CheckConservation())
}

func TestStakeRoundDistributesEarnings(t *testing.T) {
	sm := newTestStateMachine(t)
	sm.register(t, "alice")
	require.NoError(t, sm.CollectEarnings(testOwner, lib.NearToYocto(2)))
	sm.stake(t, "alice", lib.NearToYocto(10))
	c := sm.contract(t)
	// half goes to the owner, the pool half is staked along with the batch
	require.Equal(t, lib.NearToYocto(1), c.OwnerBalance)
	require.True(t, c.CollectedEarnings.IsZero())
	require.True(t, c.NearLiquidityPool.IsZero())
	require.Equal(t, lib.NearToYocto(11), sm.venue.Account().StakedBalance)
	require.Equal(t, lib.NearToYocto(11), c.StakeTokenValue.TotalStakedNearBalance)
	require.Equal(t, lib.StakeToYocto(10), c.TotalStakeSupply)
	require.Equal(t, 1, sm.countEvents(t, EventTypeEarningsDistributed))
	require.NoError(t, sm.CheckConservation())
}

func TestDepositAndStake(t *testing.T) {
	sm := newTestStateMachine(t)
	sm.register(t, "alice", "bob")
	_, err := sm.DepositAndStake("alice", lib.NearToYocto(10))
	require.NoError(t, err)
	// a deposit while the round is in flight queues into the next batch without starting another round
	id, err := sm.DepositAndStake("bob", lib.NearToYocto(5))
	require.NoError(t, err)
	require.Equal(t, BatchId(2), id)
	tasks, err := sm.GetTasks()
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	require.Empty(t, sm.runTasks(t))
	c := sm.contract(t)
	require.Equal(t, BatchId(2), c.StakeBatchId)
	require.Equal(t, BatchId(0), c.NextStakeBatchId)
	require.Equal(t, lib.StakeToYocto(10), c.TotalStakeSupply)
}

func TestStakeLockGuards(t *testing.T) {
	sm := newTestStateMachine(t)
	sm.register(t, "alice", "bob")
	err := sm.Stake()
	require.Error(t, err)
	require.Equal(t, ErrNoStakeBatch().Code(), err.Code())
	_, err = sm.Deposit("alice", lib.NearToYocto(10))
	require.NoError(t, err)
	require.NoError(t, sm.Stake())
	tests := []struct {
		name     string
		detail   string
		op       func() lib.ErrorI
		expected lib.ErrorI
	}{
		{
			name:     "stake",
			detail:   "a second round cannot start",
			op:       sm.Stake,
			expected: ErrStakeLocked(StakeLockStaking),
		},
		{
			name:     "unstake",
			detail:   "the redeem side waits for the stake round",
			op:       sm.Unstake,
			expected: ErrStakeLocked(StakeLockStaking),
		},
		{
			name:     "refresh",
			detail:   "the token value cannot be refreshed mid round",
			op:       sm.RefreshStakeTokenValue,
			expected: ErrStakeLocked(StakeLockStaking),
		},
		{
			name:   "withdraw committed deposit",
			detail: "the current batch is committed to the round",
			op: func() lib.ErrorI {
				return sm.WithdrawFromStakeBatch("alice", lib.NearToYocto(1))
			},
			expected: ErrStakeLocked(StakeLockStaking),
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			err := test.op()
			require.Error(t, err)
			require.Equal(t, test.expected.Code(), err.Code())
		})
	}
	// deposits queue into the next batch and are promoted with it
	id, err := sm.Deposit("bob", lib.NearToYocto(5))
	require.NoError(t, err)
	require.Equal(t, BatchId(2), id)
	require.NotNil(t, sm.account(t, "bob").NextStakeBatch)
	require.Empty(t, sm.runTasks(t))
	require.NoError(t, sm.ClaimReceipts("bob"))
	bob := sm.account(t, "bob")
	require.Nil(t, bob.NextStakeBatch)
	require.Equal(t, &StakeBatch{Id: 2, Balance: lib.NearToYocto(5)}, bob.StakeBatch)
	require.NoError(t, sm.Stake())
	require.Empty(t, sm.runTasks(t))
	balance, err := sm.FtBalanceOf("bob")
	require.NoError(t, err)
	require.Equal(t, lib.StakeToYocto(5), balance)
	require.NoError(t, sm.CheckConservation())
}

func TestStakeFromStakedFinishesRound(t *testing.T) {
	sm := newTestStateMachine(t)
	sm.register(t, "alice")
	_, err := sm.Deposit("alice", lib.NearToYocto(10))
	require.NoError(t, err)
	require.NoError(t, sm.Stake())
	// deliver only the venue confirmation
	task, err := sm.NextTask()
	require.NoError(t, err)
	require.NoError(t, sm.HandleTaskResult(sm.execute(task)))
	require.Equal(t, StakeLockStaked, sm.contract(t).StakeLock.State)
	// a manual Stake() finishes the round and the queued processing task becomes stale
	require.NoError(t, sm.Stake())
	require.Equal(t, StakeLockNone, sm.contract(t).StakeLock.State)
	require.Empty(t, sm.runTasks(t))
	require.Equal(t, lib.StakeToYocto(10), sm.contract(t).TotalStakeSupply)
}
