package venue

import (
	"context"
	"testing"

	"github.com/canopy-network/stakebatch/lib"
	"github.com/stretchr/testify/require"
)

func TestSimulator(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name     string
		detail   string
		run      func(s *Simulator) lib.ErrorI
		expected lib.StakingPoolAccount
		error    string
	}{
		{
			name:   "deposit and stake",
			detail: "the deposit lands in the staked balance",
			run: func(s *Simulator) lib.ErrorI {
				return s.DepositAndStake(ctx, lib.NearToYocto(10))
			},
			expected: lib.StakingPoolAccount{AccountId: "engine", StakedBalance: lib.NearToYocto(10), CanWithdraw: true},
		},
		{
			name:   "stake dust",
			detail: "the dust of every stake is left unstaked",
			run: func(s *Simulator) lib.ErrorI {
				s.SetStakeDust(lib.NewYoctoNear(1))
				return s.DepositAndStake(ctx, lib.NewYoctoNear(100))
			},
			expected: lib.StakingPoolAccount{AccountId: "engine", StakedBalance: lib.NewYoctoNear(99), UnstakedBalance: lib.NewYoctoNear(1), CanWithdraw: true},
		},
		{
			name:   "deposit then stake",
			detail: "a plain deposit stays unstaked until staked",
			run: func(s *Simulator) lib.ErrorI {
				if err := s.Deposit(ctx, lib.NewYoctoNear(100)); err != nil {
					return err
				}
				return s.Stake(ctx, lib.NewYoctoNear(60))
			},
			expected: lib.StakingPoolAccount{AccountId: "engine", StakedBalance: lib.NewYoctoNear(60), UnstakedBalance: lib.NewYoctoNear(40), CanWithdraw: true},
		},
		{
			name:   "unstake locks",
			detail: "unstaked NEAR is locked for the lock-up epochs",
			run: func(s *Simulator) lib.ErrorI {
				if err := s.DepositAndStake(ctx, lib.NewYoctoNear(100)); err != nil {
					return err
				}
				return s.Unstake(ctx, lib.NewYoctoNear(30))
			},
			expected: lib.StakingPoolAccount{AccountId: "engine", StakedBalance: lib.NewYoctoNear(70), UnstakedBalance: lib.NewYoctoNear(30)},
		},
		{
			name:   "withdraw before unlock",
			detail: "a withdrawal during the lock-up is rejected",
			run: func(s *Simulator) lib.ErrorI {
				if err := s.DepositAndStake(ctx, lib.NewYoctoNear(100)); err != nil {
					return err
				}
				if err := s.Unstake(ctx, lib.NewYoctoNear(30)); err != nil {
					return err
				}
				s.AdvanceEpochs(NumEpochsToUnlock - 1)
				return s.Withdraw(ctx, lib.NewYoctoNear(30))
			},
			error: "locked until epoch",
		},
		{
			name:   "withdraw after unlock",
			detail: "the lock-up ends after the configured epochs",
			run: func(s *Simulator) lib.ErrorI {
				if err := s.DepositAndStake(ctx, lib.NewYoctoNear(100)); err != nil {
					return err
				}
				if err := s.Unstake(ctx, lib.NewYoctoNear(30)); err != nil {
					return err
				}
				s.AdvanceEpochs(NumEpochsToUnlock)
				return s.Withdraw(ctx, lib.NewYoctoNear(30))
			},
			expected: lib.StakingPoolAccount{AccountId: "engine", StakedBalance: lib.NewYoctoNear(70), CanWithdraw: true},
		},
		{
			name:   "unstake above staked",
			detail: "the venue rejects unstaking more than is staked",
			run: func(s *Simulator) lib.ErrorI {
				return s.Unstake(ctx, lib.NewYoctoNear(1))
			},
			error: "staked balance",
		},
		{
			name:   "rewards",
			detail: "rewards accrue to the staked balance",
			run: func(s *Simulator) lib.ErrorI {
				if err := s.DepositAndStake(ctx, lib.NewYoctoNear(100)); err != nil {
					return err
				}
				return s.AddRewards(lib.NewYoctoNear(5))
			},
			expected: lib.StakingPoolAccount{AccountId: "engine", StakedBalance: lib.NewYoctoNear(105), CanWithdraw: true},
		},
		{
			name:   "injected failure",
			detail: "an injected failure fails the call without moving funds",
			run: func(s *Simulator) lib.ErrorI {
				s.FailNext(lib.CallDepositAndStake, 1)
				return s.DepositAndStake(ctx, lib.NewYoctoNear(100))
			},
			error: "injected failure",
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			s := NewSimulator("engine")
			err := test.run(s)
			if test.error != "" {
				require.ErrorContains(t, err, test.error)
				return
			}
			require.NoError(t, err)
			account, err := s.GetAccount(ctx)
			require.NoError(t, err)
			require.Equal(t, test.expected, *account)
		})
	}
}

func TestSimulatorFailNextRecovers(t *testing.T) {
	ctx := context.Background()
	s := NewSimulator("engine")
	s.FailNext(lib.CallGetAccount, 2)
	_, err := s.GetAccount(ctx)
	require.Error(t, err)
	_, err = s.GetAccount(ctx)
	require.Error(t, err)
	_, err = s.GetAccount(ctx)
	require.NoError(t, err)
	require.Equal(t, 3, s.Calls(lib.CallGetAccount))
}

func TestExecute(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name              string
		detail            string
		fail              lib.CallKind
		calls             []lib.VenueCall
		expectedCompleted int
		expectedStaked    *lib.YoctoNear
		error             bool
	}{
		{
			name:   "all succeed",
			detail: "every call runs and the trailing read is returned",
			calls: []lib.VenueCall{
				{Kind: lib.CallDepositAndStake, Amount: lib.NewYoctoNear(50)},
				{Kind: lib.CallGetAccount},
			},
			expectedCompleted: 2,
			expectedStaked:    func() *lib.YoctoNear { a := lib.NewYoctoNear(50); return &a }(),
		},
		{
			name:   "trailing read fails",
			detail: "the mutating call is counted and no account is returned",
			fail:   lib.CallGetAccount,
			calls: []lib.VenueCall{
				{Kind: lib.CallDepositAndStake, Amount: lib.NewYoctoNear(50)},
				{Kind: lib.CallGetAccount},
			},
			expectedCompleted: 1,
			error:             true,
		},
		{
			name:   "first call fails",
			detail: "execution stops at the first failure",
			fail:   lib.CallDepositAndStake,
			calls: []lib.VenueCall{
				{Kind: lib.CallDepositAndStake, Amount: lib.NewYoctoNear(50)},
				{Kind: lib.CallGetAccount},
			},
			error: true,
		},
		{
			name:   "no calls",
			detail: "an empty task completes immediately",
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			s := NewSimulator("engine")
			if test.fail != "" {
				s.FailNext(test.fail, 1)
			}
			completed, account, err := Execute(ctx, s, test.calls, nil)
			require.Equal(t, test.error, err != nil)
			require.Equal(t, test.expectedCompleted, completed)
			if test.expectedStaked == nil {
				require.Nil(t, account)
				return
			}
			require.NotNil(t, account)
			require.Equal(t, *test.expectedStaked, account.StakedBalance)
		})
	}
}
