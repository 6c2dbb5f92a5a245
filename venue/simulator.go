package venue

import (
	"context"
	"fmt"
	"sync"

	"github.com/canopy-network/stakebatch/lib"
)

// NumEpochsToUnlock is how many epochs unstaked NEAR stays locked at the venue
const NumEpochsToUnlock = 4

// Simulator is an in-memory staking venue with epochs, an unstake lock-up, rewards and injectable failures
type Simulator struct {
	mu sync.Mutex

	accountId      string
	epoch          uint64
	staked         lib.YoctoNear
	unstaked       lib.YoctoNear
	availableEpoch uint64               // the epoch from which the unstaked balance can be withdrawn
	stakeDust      lib.YoctoNear        // NEAR of every stake left unstaked, like the rounding of the venue's shares
	failures       map[lib.CallKind]int // calls of a kind that fail before the next one succeeds
	calls          map[lib.CallKind]int

	TotalDeposited lib.YoctoNear // NEAR sent to the venue
	TotalWithdrawn lib.YoctoNear // NEAR returned by the venue
}

// NewSimulator() creates an empty venue
func NewSimulator(accountId string) *Simulator {
	return &Simulator{
		accountId: accountId,
		failures:  map[lib.CallKind]int{},
		calls:     map[lib.CallKind]int{},
	}
}

// AdvanceEpochs() moves the venue clock forward
func (s *Simulator) AdvanceEpochs(n uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.epoch += n
}

// AddRewards() credits staking rewards to the staked balance
func (s *Simulator) AddRewards(amount lib.YoctoNear) (err lib.ErrorI) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.staked, err = s.staked.Add(amount)
	return
}

// SetStakeDust() sets how much of every stake is left unstaked
func (s *Simulator) SetStakeDust(dust lib.YoctoNear) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stakeDust = dust
}

// FailNext() makes the next n calls of the kind fail
func (s *Simulator) FailNext(kind lib.CallKind, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[kind] += n
}

// Calls() is how many calls of the kind were attempted
func (s *Simulator) Calls(kind lib.CallKind) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[kind]
}

// Account() is the engine's account without going through a call
func (s *Simulator) Account() lib.StakingPoolAccount {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.account()
}

func (s *Simulator) GetAccount(_ context.Context) (*lib.StakingPoolAccount, lib.ErrorI) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(lib.CallGetAccount); err != nil {
		return nil, err
	}
	account := s.account()
	return &account, nil
}

func (s *Simulator) Ping(_ context.Context) lib.ErrorI {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.begin(lib.CallPing)
}

func (s *Simulator) DepositAndStake(_ context.Context, amount lib.YoctoNear) (err lib.ErrorI) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err = s.begin(lib.CallDepositAndStake); err != nil {
		return err
	}
	if s.TotalDeposited, err = s.TotalDeposited.Add(amount); err != nil {
		return err
	}
	if s.unstaked, err = s.unstaked.Add(amount); err != nil {
		return err
	}
	return s.stake(lib.CallDepositAndStake, amount)
}

func (s *Simulator) Deposit(_ context.Context, amount lib.YoctoNear) (err lib.ErrorI) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err = s.begin(lib.CallDeposit); err != nil {
		return err
	}
	if s.TotalDeposited, err = s.TotalDeposited.Add(amount); err != nil {
		return err
	}
	s.unstaked, err = s.unstaked.Add(amount)
	return
}

func (s *Simulator) Stake(_ context.Context, amount lib.YoctoNear) lib.ErrorI {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(lib.CallStake); err != nil {
		return err
	}
	return s.stake(lib.CallStake, amount)
}

func (s *Simulator) Unstake(_ context.Context, amount lib.YoctoNear) (err lib.ErrorI) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err = s.begin(lib.CallUnstake); err != nil {
		return err
	}
	if s.staked.LT(amount) {
		return ErrVenueRejected(lib.CallUnstake, fmt.Sprintf("staked balance %s is below %s", s.staked, amount))
	}
	if s.staked, err = s.staked.Sub(amount); err != nil {
		return err
	}
	if s.unstaked, err = s.unstaked.Add(amount); err != nil {
		return err
	}
	s.availableEpoch = s.epoch + NumEpochsToUnlock
	return nil
}

func (s *Simulator) Withdraw(_ context.Context, amount lib.YoctoNear) (err lib.ErrorI) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err = s.begin(lib.CallWithdraw); err != nil {
		return err
	}
	if s.epoch < s.availableEpoch {
		return ErrVenueRejected(lib.CallWithdraw, fmt.Sprintf("unstaked balance is locked until epoch %d", s.availableEpoch))
	}
	if s.unstaked.LT(amount) {
		return ErrVenueRejected(lib.CallWithdraw, fmt.Sprintf("unstaked balance %s is below %s", s.unstaked, amount))
	}
	if s.unstaked, err = s.unstaked.Sub(amount); err != nil {
		return err
	}
	s.TotalWithdrawn, err = s.TotalWithdrawn.Add(amount)
	return
}

// stake() moves NEAR from the unstaked to the staked balance, keeping back the dust
func (s *Simulator) stake(call lib.CallKind, amount lib.YoctoNear) (err lib.ErrorI) {
	if s.unstaked.LT(amount) {
		return ErrVenueRejected(call, fmt.Sprintf("unstaked balance %s is below %s", s.unstaked, amount))
	}
	staked := amount.SaturatingSub(s.stakeDust)
	if s.unstaked, err = s.unstaked.Sub(staked); err != nil {
		return err
	}
	s.staked, err = s.staked.Add(staked)
	return
}

// begin() counts the call and consumes an injected failure
func (s *Simulator) begin(kind lib.CallKind) lib.ErrorI {
	s.calls[kind]++
	if s.failures[kind] > 0 {
		s.failures[kind]--
		return ErrVenueStatus(kind, "503 Service Unavailable", []byte("injected failure"))
	}
	return nil
}

func (s *Simulator) account() lib.StakingPoolAccount {
	return lib.StakingPoolAccount{
		AccountId:       s.accountId,
		StakedBalance:   s.staked,
		UnstakedBalance: s.unstaked,
		CanWithdraw:     s.epoch >= s.availableEpoch,
	}
}
