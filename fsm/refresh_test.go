package fsm

import (
	"testing"

	"github.com/canopy-network/stakebatch/lib"
	"github.com/stretchr/testify/require"
)

func TestRefreshStakeTokenValue(t *testing.T) {
	sm := newTestStateMachine(t)
	sm.register(t, "alice")
	sm.stake(t, "alice", lib.NearToYocto(10))
	require.NoError(t, sm.venue.AddRewards(lib.NearToYocto(1)))
	require.NoError(t, sm.RefreshStakeTokenValue())
	require.Equal(t, StakeLockRefreshing, sm.contract(t).StakeLock.State)
	// a refresh excludes stake rounds and other refreshes
	err := sm.Stake()
	require.Error(t, err)
	require.Equal(t, ErrRefreshInProcess().Code(), err.Code())
	err = sm.RefreshStakeTokenValue()
	require.Error(t, err)
	require.Equal(t, ErrRefreshInProcess().Code(), err.Code())
	require.Empty(t, sm.runTasks(t))
	c := sm.contract(t)
	require.Equal(t, StakeLockNone, c.StakeLock.State)
	require.Equal(t, lib.NearToYocto(11), c.StakeTokenValue.TotalStakedNearBalance)
	require.Equal(t, lib.StakeToYocto(10), c.StakeTokenValue.TotalStakeSupply)
	require.Equal(t, 1, sm.venue.Calls(lib.CallPing))
}

func TestRefreshFailureReleasesLock(t *testing.T) {
	sm := newTestStateMachine(t)
	sm.register(t, "alice")
	sm.stake(t, "alice", lib.NearToYocto(10))
	before := sm.contract(t).StakeTokenValue
	sm.venue.FailNext(lib.CallPing, 1)
	require.NoError(t, sm.RefreshStakeTokenValue())
	require.Empty(t, sm.runTasks(t))
	c := sm.contract(t)
	require.Equal(t, StakeLockNone, c.StakeLock.State)
	require.Equal(t, before, c.StakeTokenValue)
	require.Equal(t, 1, sm.countEvents(t, EventTypeTaskFailed))
	require.Equal(t, 1, sm.countEvents(t, EventTypeLockCleared))
	// the side is usable again
	require.NoError(t, sm.RefreshStakeTokenValue())
	require.Empty(t, sm.runTasks(t))
	require.Equal(t, StakeLockNone, sm.contract(t).StakeLock.State)
}
