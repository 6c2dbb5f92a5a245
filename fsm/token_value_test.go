package fsm

import (
	"testing"

	"github.com/canopy-network/stakebatch/lib"
	"github.com/stretchr/testify/require"
)

func TestStakeTokenValueConversions(t *testing.T) {
	value := StakeTokenValue{TotalStakedNearBalance: lib.NearToYocto(11), TotalStakeSupply: lib.StakeToYocto(10)}
	tests := []struct {
		name          string
		detail        string
		value         StakeTokenValue
		near          lib.YoctoNear
		expectedStake lib.YoctoStake
		stake         lib.YoctoStake
		expectedNear  lib.YoctoNear
	}{
		{
			name:          "identity",
			detail:        "an empty value converts one to one",
			near:          lib.NearToYocto(3),
			expectedStake: lib.StakeToYocto(3),
			stake:         lib.StakeToYocto(3),
			expectedNear:  lib.NearToYocto(3),
		},
		{
			name:          "appreciated",
			detail:        "NEAR buys less STAKE once rewards accrued",
			value:         value,
			near:          lib.NearToYocto(11),
			expectedStake: lib.StakeToYocto(10),
			stake:         lib.StakeToYocto(1),
			expectedNear:  lib.MustParseYoctoNear("1100000000000000000000000"),
		},
		{
			name:          "rounds down",
			detail:        "fractions of a yocto are dropped in both directions",
			value:         value,
			near:          lib.NewYoctoNear(1),
			expectedStake: lib.YoctoStake{},
			stake:         lib.NewYoctoStake(1),
			expectedNear:  lib.NewYoctoNear(1),
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			stake, err := test.value.NearToStake(test.near)
			require.NoError(t, err)
			require.Equal(t, test.expectedStake, stake)
			near, err := test.value.StakeToNear(test.stake)
			require.NoError(t, err)
			require.Equal(t, test.expectedNear, near)
		})
	}
}

func TestUpdateStakeTokenValue(t *testing.T) {
	tests := []struct {
		name          string
		detail        string
		reported      lib.YoctoNear
		expectedTotal lib.YoctoNear
		expectedPool  lib.YoctoNear
	}{
		{
			name:          "rewards",
			detail:        "a larger balance raises the value",
			reported:      lib.NearToYocto(11),
			expectedTotal: lib.NearToYocto(11),
		},
		{
			name:          "unchanged",
			detail:        "an equal balance keeps the value",
			reported:      lib.NearToYocto(10),
			expectedTotal: lib.NearToYocto(10),
		},
		{
			name:          "shortfall",
			detail:        "a smaller balance is topped up from the liquidity pool so the value never drops",
			reported:      lib.NearToYocto(9),
			expectedTotal: lib.NearToYocto(10),
			expectedPool:  lib.NearToYocto(1),
		},
		{
			name:          "empty venue",
			detail:        "a zero balance is recorded as is",
			reported:      lib.YoctoNear{},
			expectedTotal: lib.YoctoNear{},
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			sm := newTestStateMachine(t)
			require.NoError(t, sm.atomic(func() lib.ErrorI {
				c, err := sm.GetContract()
				if err != nil {
					return err
				}
				c.TotalStakeSupply = lib.StakeToYocto(10)
				c.StakeTokenValue = StakeTokenValue{TotalStakedNearBalance: lib.NearToYocto(10), TotalStakeSupply: lib.StakeToYocto(10)}
				if err = sm.updateStakeTokenValue(c, test.reported); err != nil {
					return err
				}
				return sm.SetContract(c)
			}))
			c := sm.contract(t)
			require.Equal(t, test.expectedTotal, c.StakeTokenValue.TotalStakedNearBalance)
			require.Equal(t, lib.StakeToYocto(10), c.StakeTokenValue.TotalStakeSupply)
			require.Equal(t, test.expectedPool, c.NearLiquidityPool)
			require.Equal(t, c.BlockHeight, c.StakeTokenValue.BlockTimeHeight.BlockHeight)
			require.Equal(t, 1, sm.countEvents(t, EventTypeStakeTokenValueUpdated))
		})
	}
}
