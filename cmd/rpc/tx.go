package rpc

import (
	"net/http"

	"github.com/canopy-network/stakebatch/fsm"
	"github.com/canopy-network/stakebatch/lib"
	"github.com/julienschmidt/httprouter"
)

// Register creates an account against the storage escrow attached as amount and refunds the surplus
func (s *Server) Register(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	s.nearTx(w, r, func(sm *fsm.StateMachine, req *nearRequest) (any, lib.ErrorI) {
		refund, err := sm.RegisterAccount(req.AccountId, req.Amount)
		return nearResponse{Amount: refund}, err
	})
}

// Unregister deletes an empty account and returns its escrow
func (s *Server) Unregister(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	s.nearTx(w, r, func(sm *fsm.StateMachine, req *nearRequest) (any, lib.ErrorI) {
		escrow, err := sm.UnregisterAccount(req.AccountId)
		return nearResponse{Amount: escrow}, err
	})
}

// Deposit adds NEAR to the account's stake batch
func (s *Server) Deposit(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	s.nearTx(w, r, func(sm *fsm.StateMachine, req *nearRequest) (any, lib.ErrorI) {
		id, err := sm.Deposit(req.AccountId, req.Amount)
		return batchIdResponse{BatchId: id}, err
	})
}

// DepositAndStake adds NEAR to the account's stake batch and runs the stake round
func (s *Server) DepositAndStake(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	s.nearTx(w, r, func(sm *fsm.StateMachine, req *nearRequest) (any, lib.ErrorI) {
		id, err := sm.DepositAndStake(req.AccountId, req.Amount)
		return batchIdResponse{BatchId: id}, err
	})
}

// WithdrawStakeBatch takes NEAR back out of the account's open stake batch
func (s *Server) WithdrawStakeBatch(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	s.nearTx(w, r, func(sm *fsm.StateMachine, req *nearRequest) (any, lib.ErrorI) {
		if req.All {
			amount, err := sm.WithdrawAllFromStakeBatch(req.AccountId)
			return nearResponse{Amount: amount}, err
		}
		return nearResponse{Amount: req.Amount}, sm.WithdrawFromStakeBatch(req.AccountId, req.Amount)
	})
}

// Redeem moves STAKE into the account's redeem batch
func (s *Server) Redeem(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	s.stakeTx(w, r, func(sm *fsm.StateMachine, req *stakeRequest) (any, lib.ErrorI) {
		if req.All {
			id, err := sm.RedeemAll(req.AccountId)
			return batchIdResponse{BatchId: id}, err
		}
		id, err := sm.Redeem(req.AccountId, req.Amount)
		return batchIdResponse{BatchId: id}, err
	})
}

// RedeemAll moves the account's entire STAKE balance into its redeem batch
func (s *Server) RedeemAll(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	s.stakeTx(w, r, func(sm *fsm.StateMachine, req *stakeRequest) (any, lib.ErrorI) {
		id, err := sm.RedeemAll(req.AccountId)
		return batchIdResponse{BatchId: id}, err
	})
}

// RedeemAndUnstake moves STAKE into the account's redeem batch and runs the unstake round
func (s *Server) RedeemAndUnstake(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	s.stakeTx(w, r, func(sm *fsm.StateMachine, req *stakeRequest) (any, lib.ErrorI) {
		if req.All {
			id, err := sm.RedeemAllAndUnstake(req.AccountId)
			return batchIdResponse{BatchId: id}, err
		}
		id, err := sm.RedeemAndUnstake(req.AccountId, req.Amount)
		return batchIdResponse{BatchId: id}, err
	})
}

// RemoveRedeem takes STAKE back out of the account's open redeem batch
func (s *Server) RemoveRedeem(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	s.stakeTx(w, r, func(sm *fsm.StateMachine, req *stakeRequest) (any, lib.ErrorI) {
		if req.All {
			amount, err := sm.RemoveAllFromRedeemBatch(req.AccountId)
			return stakeResponse{Amount: amount}, err
		}
		return stakeResponse{Amount: req.Amount}, sm.RemoveFromRedeemBatch(req.AccountId, req.Amount)
	})
}

// Claim settles the account's completed batches
func (s *Server) Claim(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	s.nearTx(w, r, func(sm *fsm.StateMachine, req *nearRequest) (any, lib.ErrorI) {
		if err := sm.ClaimReceipts(req.AccountId); err != nil {
			return nil, err
		}
		return sm.GetAccount(req.AccountId)
	})
}

// WithdrawNear pays out the account's available NEAR
func (s *Server) WithdrawNear(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	s.nearTx(w, r, func(sm *fsm.StateMachine, req *nearRequest) (any, lib.ErrorI) {
		if req.All {
			amount, err := sm.WithdrawAllNear(req.AccountId)
			return nearResponse{Amount: amount}, err
		}
		return nearResponse{Amount: req.Amount}, sm.WithdrawNear(req.AccountId, req.Amount)
	})
}

// TransferNear moves available NEAR between two accounts
func (s *Server) TransferNear(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	req := new(transferNearRequest)
	if !unmarshal(w, r, req) {
		return
	}
	s.update(w, func(sm *fsm.StateMachine) (any, lib.ErrorI) {
		return okResponse{Ok: true}, sm.TransferNear(req.From, req.To, req.Amount)
	})
}

// FtTransfer moves STAKE between two accounts
func (s *Server) FtTransfer(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	req := new(ftTransferRequest)
	if !unmarshal(w, r, req) {
		return
	}
	s.update(w, func(sm *fsm.StateMachine) (any, lib.ErrorI) {
		return okResponse{Ok: true}, sm.FtTransfer(req.From, req.To, req.Amount)
	})
}

// Stake runs the stake round for the current stake batch
func (s *Server) Stake(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	s.update(w, func(sm *fsm.StateMachine) (any, lib.ErrorI) { return okResponse{Ok: true}, sm.Stake() })
}

// Unstake runs the unstake round, or the withdrawal of a pending one
func (s *Server) Unstake(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	s.update(w, func(sm *fsm.StateMachine) (any, lib.ErrorI) { return okResponse{Ok: true}, sm.Unstake() })
}

// Refresh re-reads the staked balance at the venue and updates the STAKE token value
func (s *Server) Refresh(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	s.update(w, func(sm *fsm.StateMachine) (any, lib.ErrorI) {
		return okResponse{Ok: true}, sm.RefreshStakeTokenValue()
	})
}

// nearTx() is a helper for transactions that carry a NEAR amount
func (s *Server) nearTx(w http.ResponseWriter, r *http.Request, callback func(sm *fsm.StateMachine, req *nearRequest) (any, lib.ErrorI)) {
	req := new(nearRequest)
	if !unmarshal(w, r, req) {
		return
	}
	s.update(w, func(sm *fsm.StateMachine) (any, lib.ErrorI) { return callback(sm, req) })
}

// stakeTx() is a helper for transactions that carry a STAKE amount
func (s *Server) stakeTx(w http.ResponseWriter, r *http.Request, callback func(sm *fsm.StateMachine, req *stakeRequest) (any, lib.ErrorI)) {
	req := new(stakeRequest)
	if !unmarshal(w, r, req) {
		return
	}
	s.update(w, func(sm *fsm.StateMachine) (any, lib.ErrorI) { return callback(sm, req) })
}
