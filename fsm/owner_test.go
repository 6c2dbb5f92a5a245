package fsm

import (
	"testing"

	"github.com/canopy-network/stakebatch/lib"
	"github.com/canopy-network/stakebatch/store"
	"github.com/stretchr/testify/require"
)

func TestOwnerOperationsRequireOwner(t *testing.T) {
	sm := newTestStateMachine(t)
	sm.register(t, "alice")
	pct := uint8(10)
	tests := []struct {
		name   string
		detail string
		op     func() lib.ErrorI
	}{
		{
			name:   "collect earnings",
			detail: "earnings are booked by the owner only",
			op:     func() lib.ErrorI { return sm.CollectEarnings("alice", lib.NearToYocto(1)) },
		},
		{
			name:   "withdraw owner balance",
			detail: "the owner balance is paid to the owner only",
			op:     func() lib.ErrorI { return sm.WithdrawOwnerBalance("alice", lib.NearToYocto(1)) },
		},
		{
			name:   "stake owner balance",
			detail: "the owner balance is staked by the owner only",
			op:     func() lib.ErrorI { return sm.StakeOwnerBalance("alice", lib.NearToYocto(1)) },
		},
		{
			name:   "transfer ownership",
			detail: "ownership is handed over by the owner only",
			op:     func() lib.ErrorI { return sm.TransferOwnership("alice", "alice") },
		},
		{
			name:   "update config",
			detail: "the economic parameters are changed by the owner only",
			op: func() lib.ErrorI {
				return sm.UpdateConfig("alice", lib.EngineConfigUpdate{OwnerEarningsPercentage: &pct})
			},
		},
		{
			name:   "clear stake lock",
			detail: "the stake lock is cleared by the owner only",
			op:     func() lib.ErrorI { return sm.ClearStakeLock("alice") },
		},
		{
			name:   "clear redeem lock",
			detail: "the redeem lock is cleared by the owner only",
			op:     func() lib.ErrorI { return sm.ClearRedeemLock("alice") },
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			err := test.op()
			require.Error(t, err)
			require.Equal(t, ErrNotOwner().Code(), err.Code())
		})
	}
}

func TestOwnerBalance(t *testing.T) {
	sm := newTestStateMachine(t)
	sm.register(t, testOwner, "alice")
	require.NoError(t, sm.CollectEarnings(testOwner, lib.NearToYocto(4)))
	sm.stake(t, "alice", lib.NearToYocto(10))
	require.Equal(t, lib.NearToYocto(2), sm.contract(t).OwnerBalance)
	err := sm.WithdrawOwnerBalance(testOwner, lib.NearToYocto(3))
	require.Error(t, err)
	require.Equal(t, ErrInsufficientOwnerBalance().Code(), err.Code())
	// part of the balance is staked through the owner's account
	require.NoError(t, sm.StakeOwnerBalance(testOwner, lib.NearToYocto(1)))
	owner := sm.account(t, testOwner)
	require.Equal(t, &StakeBatch{Id: 2, Balance: lib.NearToYocto(1)}, owner.StakeBatch)
	require.NoError(t, sm.CheckConservation())
	// the rest is paid out
	amount, err := sm.WithdrawAllOwnerBalance(testOwner)
	require.NoError(t, err)
	require.Equal(t, lib.NearToYocto(1), amount)
	require.True(t, sm.contract(t).OwnerBalance.IsZero())
	_, err = sm.StakeAllOwnerBalance(testOwner)
	require.Error(t, err)
	require.Equal(t, ErrInsufficientOwnerBalance().Code(), err.Code())
	require.Equal(t, 1, sm.countEvents(t, EventTypeNearWithdrawn))
}

func TestTransferOwnership(t *testing.T) {
	sm := newTestStateMachine(t)
	sm.register(t, "alice")
	err := sm.TransferOwnership(testOwner, "nobody")
	require.Error(t, err)
	require.Equal(t, ErrAccountNotRegistered("nobody").Code(), err.Code())
	require.NoError(t, sm.TransferOwnership(testOwner, "alice"))
	require.Equal(t, "alice", sm.contract(t).OwnerId)
	err = sm.CollectEarnings(testOwner, lib.NearToYocto(1))
	require.Error(t, err)
	require.Equal(t, ErrNotOwner().Code(), err.Code())
	require.NoError(t, sm.CollectEarnings("alice", lib.NearToYocto(1)))
}

func TestUpdateConfig(t *testing.T) {
	sm := newTestStateMachine(t)
	invalid, valid := uint8(101), uint8(20)
	err := sm.UpdateConfig(testOwner, lib.EngineConfigUpdate{OwnerEarningsPercentage: &invalid})
	require.Error(t, err)
	require.Equal(t, lib.ErrInvalidConfig("").Code(), err.Code())
	require.Equal(t, uint8(50), sm.GetParams().Engine.OwnerEarningsPercentage)
	require.NoError(t, sm.UpdateConfig(testOwner, lib.EngineConfigUpdate{OwnerEarningsPercentage: &valid}))
	require.Equal(t, uint8(20), sm.Config.OwnerEarningsPercentage)
	// the persisted parameters override the configured ones on restart
	restarted, err := New(lib.DefaultConfig(), sm.db, nil, lib.NewNullLogger())
	require.NoError(t, err)
	require.Equal(t, uint8(20), restarted.GetParams().Engine.OwnerEarningsPercentage)
}

func TestUpdateGasConfig(t *testing.T) {
	tests := []struct {
		name     string
		detail   string
		gas      lib.Gas
		force    bool
		expected lib.Gas
		error    bool
	}{
		{
			name:     "in range",
			detail:   "a budget within its range is applied",
			gas:      60 * lib.TGas,
			expected: 60 * lib.TGas,
		},
		{
			name:     "out of range",
			detail:   "a budget outside its range is rejected",
			gas:      100 * lib.TGas,
			expected: 45 * lib.TGas,
			error:    true,
		},
		{
			name:     "forced",
			detail:   "force skips the range checks",
			gas:      100 * lib.TGas,
			force:    true,
			expected: 100 * lib.TGas,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			sm := newTestStateMachine(t)
			gas := test.gas
			err := sm.UpdateGasConfig(testOwner, lib.GasConfigUpdate{Withdraw: &gas}, test.force)
			require.Equal(t, test.error, err != nil)
			require.Equal(t, test.expected, sm.GetParams().Gas.StakingPool.Withdraw)
		})
	}
	// a budget in range may still starve the continuation that chains it
	sm := newTestStateMachine(t)
	depositAndStake, onRunStakeBatch := 75*lib.TGas, 70*lib.TGas
	err := sm.UpdateGasConfig(testOwner, lib.GasConfigUpdate{DepositAndStake: &depositAndStake, OnRunStakeBatch: &onRunStakeBatch}, false)
	require.Error(t, err)
	require.Equal(t, lib.ErrGasCrossCheck("", 0, 0).Code(), err.Code())
	require.Equal(t, 45*lib.TGas, sm.GetParams().Gas.StakingPool.DepositAndStake)
}

func TestClearStakeLock(t *testing.T) {
	tests := []struct {
		name           string
		detail         string
		deliver        int
		expectedSupply lib.YoctoStake
		expectedPool   lib.YoctoNear
		expectedEvents int
	}{
		{
			name:           "staking",
			detail:         "a round that never reached the venue is released and its pooled NEAR restored",
			expectedPool:   lib.NearToYocto(1),
			expectedEvents: 1,
		},
		{
			name:           "staked",
			detail:         "a round the venue confirmed is finished instead",
			deliver:        1,
			expectedSupply: lib.StakeToYocto(10),
			expectedEvents: 1,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			sm := newTestStateMachine(t)
			sm.register(t, "alice")
			require.NoError(t, sm.CollectEarnings(testOwner, lib.NearToYocto(2)))
			_, err := sm.Deposit("alice", lib.NearToYocto(10))
			require.NoError(t, err)
			require.NoError(t, sm.Stake())
			for i := 0; i < test.deliver; i++ {
				task, e := sm.NextTask()
				require.NoError(t, e)
				require.NoError(t, sm.HandleTaskResult(sm.execute(task)))
			}
			require.NoError(t, sm.ClearStakeLock(testOwner))
			c := sm.contract(t)
			require.Equal(t, StakeLockNone, c.StakeLock.State)
			require.Equal(t, test.expectedSupply, c.TotalStakeSupply)
			require.Equal(t, test.expectedPool, c.NearLiquidityPool)
			require.Equal(t, test.expectedEvents, sm.countEvents(t, EventTypeLockCleared))
			tasks, err := sm.GetTasks()
			require.NoError(t, err)
			require.Empty(t, tasks)
			// clearing an unlocked side is a no-op
			require.NoError(t, sm.ClearStakeLock(testOwner))
			require.Equal(t, test.expectedEvents, sm.countEvents(t, EventTypeLockCleared))
		})
	}
}

func TestClearStakeLockWaitsForStartedTask(t *testing.T) {
	sm := newTestStateMachine(t)
	sm.register(t, "alice")
	require.NoError(t, sm.CollectEarnings(testOwner, lib.NearToYocto(2)))
	_, err := sm.Deposit("alice", lib.NearToYocto(10))
	require.NoError(t, err)
	require.NoError(t, sm.Stake())
	task, err := sm.StartTask()
	require.NoError(t, err)
	require.NotNil(t, task)
	require.True(t, task.Started)
	pool := sm.contract(t).NearLiquidityPool
	// the deposit may already be at the venue, so nothing is dropped or restored
	err = sm.ClearStakeLock(testOwner)
	require.Error(t, err)
	require.Equal(t, ErrTaskInFlight(task).Code(), err.Code())
	c := sm.contract(t)
	require.Equal(t, StakeLockStaking, c.StakeLock.State)
	require.Equal(t, pool, c.NearLiquidityPool)
	require.Zero(t, sm.countEvents(t, EventTypeLockCleared))
	// the result of the started task still settles the round
	require.NoError(t, sm.HandleTaskResult(sm.execute(task)))
	require.Empty(t, sm.runTasks(t))
	c = sm.contract(t)
	require.Equal(t, StakeLockNone, c.StakeLock.State)
	require.Equal(t, pool, c.NearLiquidityPool)
	require.False(t, c.TotalStakeSupply.IsZero())
	require.NoError(t, sm.CheckConservation())
}

func TestParamsSurviveReopen(t *testing.T) {
	log := lib.NewNullLogger()
	config := lib.DefaultConfig()
	config.StoreConfig.DataDirPath, config.OwnerId = t.TempDir(), testOwner
	db, err := store.New(config.StoreConfig, log)
	require.NoError(t, err)
	sm, err := New(config, db, nil, log)
	require.NoError(t, err)
	pct := uint8(30)
	require.NoError(t, sm.UpdateConfig(testOwner, lib.EngineConfigUpdate{OwnerEarningsPercentage: &pct}))
	require.NoError(t, db.Close())
	db, err = store.New(config.StoreConfig, log)
	require.NoError(t, err)
	defer db.Close()
	sm, err = New(config, db, nil, log)
	require.NoError(t, err)
	require.Equal(t, uint8(30), sm.Config.OwnerEarningsPercentage)
}
