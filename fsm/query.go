package fsm

import (
	"github.com/canopy-network/stakebatch/lib"
)

// StakeBatch() is the current contract level stake batch or nil
func (s *StateMachine) StakeBatch() (*StakeBatch, lib.ErrorI) {
	c, err := s.GetContract()
	if err != nil {
		return nil, err
	}
	return s.GetStakeBatch(c.StakeBatchId)
}

// NextStakeBatch() is the stake batch queued behind a locked round or nil
func (s *StateMachine) NextStakeBatch() (*StakeBatch, lib.ErrorI) {
	c, err := s.GetContract()
	if err != nil {
		return nil, err
	}
	return s.GetStakeBatch(c.NextStakeBatchId)
}

// RedeemStakeBatch() is the current contract level redeem batch or nil
func (s *StateMachine) RedeemStakeBatch() (*RedeemStakeBatch, lib.ErrorI) {
	c, err := s.GetContract()
	if err != nil {
		return nil, err
	}
	return s.GetRedeemStakeBatch(c.RedeemStakeBatchId)
}

// NextRedeemStakeBatch() is the redeem batch queued behind a locked round or nil
func (s *StateMachine) NextRedeemStakeBatch() (*RedeemStakeBatch, lib.ErrorI) {
	c, err := s.GetContract()
	if err != nil {
		return nil, err
	}
	return s.GetRedeemStakeBatch(c.NextRedeemStakeBatchId)
}

// GetBatches() returns the four open contract level batches
func (s *StateMachine) GetBatches() (b *Batches, err lib.ErrorI) {
	c, err := s.GetContract()
	if err != nil {
		return nil, err
	}
	b = new(Batches)
	if b.StakeBatch, err = s.GetStakeBatch(c.StakeBatchId); err != nil {
		return nil, err
	}
	if b.NextStakeBatch, err = s.GetStakeBatch(c.NextStakeBatchId); err != nil {
		return nil, err
	}
	if b.RedeemStakeBatch, err = s.GetRedeemStakeBatch(c.RedeemStakeBatchId); err != nil {
		return nil, err
	}
	if b.NextRedeemStakeBatch, err = s.GetRedeemStakeBatch(c.NextRedeemStakeBatchId); err != nil {
		return nil, err
	}
	return b, nil
}

// StakeTokenValue() is the last recorded exchange rate
func (s *StateMachine) StakeTokenValue() (StakeTokenValue, lib.ErrorI) {
	c, err := s.GetContract()
	if err != nil {
		return StakeTokenValue{}, err
	}
	return c.StakeTokenValue, nil
}

// ContractSummary is the contract aggregate with its open batches and derived values
type ContractSummary struct {
	*ContractState
	Batches           *Batches                 `json:"batches"`
	NearValue         lib.YoctoNear            `json:"nearValue"` // NEAR value of one STAKE
	PendingWithdrawal *RedeemStakeBatchReceipt `json:"pendingWithdrawal,omitempty"`
	ScheduledTasks    int                      `json:"scheduledTasks"`
}

// ContractState() summarizes the contract for queries
func (s *StateMachine) ContractState() (*ContractSummary, lib.ErrorI) {
	c, err := s.GetContract()
	if err != nil {
		return nil, err
	}
	summary := &ContractSummary{ContractState: c}
	if summary.Batches, err = s.GetBatches(); err != nil {
		return nil, err
	}
	if summary.NearValue, err = c.StakeTokenValue.NearValue(); err != nil {
		return nil, err
	}
	if summary.PendingWithdrawal, err = s.pendingWithdrawal(c); err != nil {
		return nil, err
	}
	tasks, err := s.GetTasks()
	if err != nil {
		return nil, err
	}
	summary.ScheduledTasks = len(tasks)
	return summary, nil
}
