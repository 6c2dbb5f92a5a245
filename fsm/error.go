package fsm

import (
	"fmt"

	"github.com/canopy-network/stakebatch/lib"
)

// This file defines error objects for the settlement engine

// validation

func ErrZeroAmount() lib.ErrorI {
	return lib.NewError(lib.CodeZeroAmount, lib.EngineModule, "amount must be greater than zero")
}

func ErrInsufficientBalance(what string, balance, required fmt.Stringer) lib.ErrorI {
	return lib.NewError(lib.CodeInsufficientBalance, lib.EngineModule,
		fmt.Sprintf("insufficient %s balance: have %s, need %s", what, balance, required))
}

func ErrDepositBelowMinimum(min lib.YoctoNear) lib.ErrorI {
	return lib.NewError(lib.CodeDepositBelowMinimum, lib.EngineModule, fmt.Sprintf("minimum required NEAR deposit is: %s", min))
}

func ErrAccountNotRegistered(id string) lib.ErrorI {
	return lib.NewError(lib.CodeAccountNotRegistered, lib.EngineModule, fmt.Sprintf("account %s is not registered", id))
}

func ErrAccountAlreadyRegistered(id string) lib.ErrorI {
	return lib.NewError(lib.CodeAccountAlreadyRegistered, lib.EngineModule, fmt.Sprintf("account %s is already registered", id))
}

func ErrInsufficientEscrow(required lib.YoctoNear) lib.ErrorI {
	return lib.NewError(lib.CodeInsufficientEscrow, lib.EngineModule, fmt.Sprintf("storage escrow of %s is required", required))
}

func ErrAccountNotEmpty() lib.ErrorI {
	return lib.NewError(lib.CodeAccountNotEmpty, lib.EngineModule, "account still holds funds or batched requests")
}

func ErrNoStakeBatch() lib.ErrorI {
	return lib.NewError(lib.CodeNoStakeBatch, lib.EngineModule, "there is no stake batch")
}

func ErrNoRedeemBatch() lib.ErrorI {
	return lib.NewError(lib.CodeNoRedeemBatch, lib.EngineModule, "there is no redeem stake batch")
}

func ErrNotOwner() lib.ErrorI {
	return lib.NewError(lib.CodeNotOwner, lib.EngineModule, "operation is restricted to the contract owner")
}

func ErrInsufficientOwnerBalance() lib.ErrorI {
	return lib.NewError(lib.CodeInsufficientOwnerBalance, lib.EngineModule, "owner balance is too low")
}

func ErrSelfTransfer() lib.ErrorI {
	return lib.NewError(lib.CodeSelfTransfer, lib.EngineModule, "sender and receiver must differ")
}

func ErrInvalidAccountId(id string) lib.ErrorI {
	return lib.NewError(lib.CodeInvalidAccountId, lib.EngineModule, fmt.Sprintf("invalid account id %q", id))
}

func ErrNoFundsInBatch() lib.ErrorI {
	return lib.NewError(lib.CodeNoFundsInBatch, lib.EngineModule, "there are no funds in the batch")
}

// lock conflict

func ErrStakeLocked(state StakeLockState) lib.ErrorI {
	return lib.NewError(lib.CodeStakeLocked, lib.EngineModule, fmt.Sprintf("action is blocked because stake lock is %s", state))
}

func ErrRedeemLocked(state RedeemLockState) lib.ErrorI {
	return lib.NewError(lib.CodeRedeemLocked, lib.EngineModule, fmt.Sprintf("action is blocked because redeem lock is %s", state))
}

func ErrUnstakeInFlight() lib.ErrorI {
	return lib.NewError(lib.CodeUnstakeInFlight, lib.EngineModule, "action is blocked while unstaking")
}

func ErrRoundInProgress(kind TaskKind) lib.ErrorI {
	return lib.NewError(lib.CodeRoundInProgress, lib.EngineModule, fmt.Sprintf("a %s round is already in progress", kind))
}

func ErrTaskInFlight(t *Task) lib.ErrorI {
	return lib.NewError(lib.CodeTaskInFlight, lib.EngineModule, fmt.Sprintf("%s task %d is executing at the venue", t.Kind, t.Id))
}

func ErrRefreshInProcess() lib.ErrorI {
	return lib.NewError(lib.CodeRefreshInProcess, lib.EngineModule, "stake token value refresh is in process")
}

// illegal state

func ErrIllegalState(msg string) lib.ErrorI {
	return lib.NewError(lib.CodeIllegalState, lib.EngineModule, msg)
}

func ErrWriteOutsideOperation() lib.ErrorI {
	return ErrIllegalState("state may only be written inside an operation")
}

func ErrContractNotInitialized() lib.ErrorI {
	return ErrIllegalState("contract state is not initialized")
}

func ErrBatchNotFound(id BatchId) lib.ErrorI {
	return lib.NewError(lib.CodeBatchNotFound, lib.EngineModule, fmt.Sprintf("batch %d should exist", id))
}

func ErrReceiptNotFound(id BatchId) lib.ErrorI {
	return lib.NewError(lib.CodeReceiptNotFound, lib.EngineModule, fmt.Sprintf("receipt for batch %d should exist", id))
}

func ErrBatchIdMismatch(account, contract BatchId) lib.ErrorI {
	return lib.NewError(lib.CodeBatchIdMismatch, lib.EngineModule,
		fmt.Sprintf("account batch %d does not match contract batch %d", account, contract))
}

func ErrConservation(msg string) lib.ErrorI {
	return lib.NewError(lib.CodeConservation, lib.EngineModule, fmt.Sprintf("conservation check failed: %s", msg))
}

func ErrUnknownCallback(name Continuation) lib.ErrorI {
	return lib.NewError(lib.CodeUnknownCallback, lib.EngineModule, fmt.Sprintf("unknown continuation %q", name))
}

func ErrInvalidLockTransition(from, to fmt.Stringer) lib.ErrorI {
	return lib.NewError(lib.CodeInvalidLockState, lib.EngineModule, fmt.Sprintf("illegal lock transition %s -> %s", from, to))
}

func ErrMissingVenueState() lib.ErrorI {
	return lib.NewError(lib.CodeMissingVenueState, lib.EngineModule, "task result is missing the venue account")
}

// external call

func ErrVenueCallFailed(call lib.CallKind, reason string) lib.ErrorI {
	return lib.NewError(lib.CodeVenueCallFailed, lib.EngineModule, fmt.Sprintf("venue call %s failed: %s", call, reason))
}

func ErrVenueNotWithdraw() lib.ErrorI {
	return lib.NewError(lib.CodeVenueNotWithdraw, lib.EngineModule, "unstaked funds are not yet available for withdrawal")
}

func ErrVenueInvalidReply(msg string) lib.ErrorI {
	return lib.NewError(lib.CodeVenueInvalidReply, lib.EngineModule, fmt.Sprintf("invalid venue reply: %s", msg))
}
