package rpc

import (
	"net/http"

	"github.com/canopy-network/stakebatch/fsm"
	"github.com/canopy-network/stakebatch/lib"
	"github.com/julienschmidt/httprouter"
)

// Version writes the software version
func (s *Server) Version(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	write(w, SoftwareVersion, http.StatusOK)
}

// Account responds with the stored account, without settling its completed batches
func (s *Server) Account(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	s.accountParams(w, r, func(sm *fsm.StateMachine, id string) (any, lib.ErrorI) {
		return sm.GetAccount(id)
	})
}

// AccountView responds with the account as it would look once its receipts are claimed
func (s *Server) AccountView(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	s.accountParams(w, r, func(sm *fsm.StateMachine, id string) (any, lib.ErrorI) {
		return sm.ApplyReceiptFundsForView(id)
	})
}

// Accounts responds with a page of registered accounts
func (s *Server) Accounts(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	req := new(paginatedRequest)
	if !unmarshal(w, r, req) {
		return
	}
	s.view(w, func(sm *fsm.StateMachine) (any, lib.ErrorI) {
		return sm.GetAccountsPaginated(req.PageParams)
	})
}

// Contract responds with the contract summary
func (s *Server) Contract(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	s.view(w, func(sm *fsm.StateMachine) (any, lib.ErrorI) { return sm.ContractState() })
}

// TokenValue responds with the last recorded STAKE token value
func (s *Server) TokenValue(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	s.view(w, func(sm *fsm.StateMachine) (any, lib.ErrorI) { return sm.StakeTokenValue() })
}

// StakeReceipt responds with the receipt of a staked batch or null
func (s *Server) StakeReceipt(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	s.receiptParams(w, r, func(sm *fsm.StateMachine, id fsm.BatchId) (any, lib.ErrorI) {
		return sm.GetStakeBatchReceipt(id)
	})
}

// RedeemReceipt responds with the receipt of an unstaked redeem batch or null
func (s *Server) RedeemReceipt(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	s.receiptParams(w, r, func(sm *fsm.StateMachine, id fsm.BatchId) (any, lib.ErrorI) {
		return sm.GetRedeemStakeBatchReceipt(id)
	})
}

// PendingWithdrawal responds with the receipt awaiting its withdrawal or null
func (s *Server) PendingWithdrawal(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	s.view(w, func(sm *fsm.StateMachine) (any, lib.ErrorI) { return sm.PendingWithdrawal() })
}

// Batches responds with the open stake and redeem batches
func (s *Server) Batches(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	s.view(w, func(sm *fsm.StateMachine) (any, lib.ErrorI) { return sm.GetBatches() })
}

// MinDeposit responds with the smallest accepted deposit
func (s *Server) MinDeposit(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	s.view(w, func(sm *fsm.StateMachine) (any, lib.ErrorI) {
		deposit, err := sm.MinRequiredDeposit()
		return nearResponse{Amount: deposit}, err
	})
}

// Events responds with a page of events, newest first
func (s *Server) Events(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	req := new(eventsRequest)
	if !unmarshal(w, r, req) {
		return
	}
	s.view(w, func(sm *fsm.StateMachine) (any, lib.ErrorI) {
		return sm.GetEventsPaginated(req.PageParams, req.Type)
	})
}

// Tasks responds with the scheduled venue calls in execution order
func (s *Server) Tasks(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	s.view(w, func(sm *fsm.StateMachine) (any, lib.ErrorI) {
		tasks, err := sm.GetTasks()
		if tasks == nil {
			tasks = make([]*fsm.Task, 0)
		}
		return tasks, err
	})
}

// EngineParams responds with the engine and gas options in effect
func (s *Server) EngineParams(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	s.view(w, func(sm *fsm.StateMachine) (any, lib.ErrorI) { return sm.GetParams(), nil })
}

// FtTotalSupply responds with the STAKE supply
func (s *Server) FtTotalSupply(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	s.view(w, func(sm *fsm.StateMachine) (any, lib.ErrorI) {
		supply, err := sm.FtTotalSupply()
		return stakeResponse{Amount: supply}, err
	})
}

// FtBalanceOf responds with the STAKE balance of an account
func (s *Server) FtBalanceOf(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	s.accountParams(w, r, func(sm *fsm.StateMachine, id string) (any, lib.ErrorI) {
		balance, err := sm.FtBalanceOf(id)
		return stakeResponse{Amount: balance}, err
	})
}

// accountParams() is a helper for queries keyed by account id
func (s *Server) accountParams(w http.ResponseWriter, r *http.Request, callback func(sm *fsm.StateMachine, id string) (any, lib.ErrorI)) {
	req := new(accountRequest)
	if !unmarshal(w, r, req) {
		return
	}
	s.view(w, func(sm *fsm.StateMachine) (any, lib.ErrorI) { return callback(sm, req.AccountId) })
}

// receiptParams() is a helper for queries keyed by batch id
func (s *Server) receiptParams(w http.ResponseWriter, r *http.Request, callback func(sm *fsm.StateMachine, id fsm.BatchId) (any, lib.ErrorI)) {
	req := new(receiptRequest)
	if !unmarshal(w, r, req) {
		return
	}
	s.view(w, func(sm *fsm.StateMachine) (any, lib.ErrorI) { return callback(sm, req.BatchId) })
}
