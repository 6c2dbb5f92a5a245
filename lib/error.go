package lib

import (
	"fmt"
	"math"
)

type ErrorI interface {
	Code() ErrorCode     // Returns the error code
	Module() ErrorModule // Returns the error module
	error                // Implements the built-in error interface
}

var _ ErrorI = &Error{} // Ensures *Error implements ErrorI

type ErrorCode uint32 // Defines a type for error codes

type ErrorModule string // Defines a type for error modules

type Error struct {
	ECode   ErrorCode   `json:"code"`   // Error code
	EModule ErrorModule `json:"module"` // Error module
	Msg     string      `json:"msg"`    // Error message
}

func NewError(code ErrorCode, module ErrorModule, msg string) *Error {
	// Constructs a new Error instance
	return &Error{ECode: code, EModule: module, Msg: msg}
}

// Code() returns the associated error code
func (p *Error) Code() ErrorCode { return p.ECode }

// Module() returns module field
func (p *Error) Module() ErrorModule { return p.EModule }

// String() calls Error()
func (p *Error) String() string { return p.Error() }

// Error() returns a formatted string including module, code and message
func (p *Error) Error() string {
	return fmt.Sprintf("\nModule:  %s\nCode:    %d\nMessage: %s", p.EModule, p.ECode, p.Msg)
}

const (
	NoCode ErrorCode = math.MaxUint32

	// Main Module
	MainModule ErrorModule = "main"

	// Main Module Error Codes
	CodeJSONMarshal     ErrorCode = 1
	CodeJSONUnmarshal   ErrorCode = 2
	CodeUnmarshal       ErrorCode = 3
	CodeMarshal         ErrorCode = 4
	CodeWriteFile       ErrorCode = 5
	CodeReadFile        ErrorCode = 6
	CodeInvalidArgument ErrorCode = 7
	CodePanic           ErrorCode = 8
	CodeAmountOverflow  ErrorCode = 9
	CodeAmountUnderflow ErrorCode = 10
	CodeParseAmount     ErrorCode = 11
	CodeDivideByZero    ErrorCode = 12
	CodeInvalidConfig   ErrorCode = 13
	CodeGasOutOfRange   ErrorCode = 14
	CodeGasCrossCheck   ErrorCode = 15

	// Engine Module
	EngineModule ErrorModule = "engine"

	// Engine Module Error Codes are partitioned by kind:
	// validation [1,19], lock conflict [20,39], illegal state [40,59], external call [60,79]

	// validation
	CodeZeroAmount               ErrorCode = 1
	CodeInsufficientBalance      ErrorCode = 2
	CodeDepositBelowMinimum      ErrorCode = 3
	CodeAccountNotRegistered     ErrorCode = 4
	CodeAccountAlreadyRegistered ErrorCode = 5
	CodeInsufficientEscrow       ErrorCode = 6
	CodeAccountNotEmpty          ErrorCode = 7
	CodeNoStakeBatch             ErrorCode = 8
	CodeNoRedeemBatch            ErrorCode = 9
	CodeNotOwner                 ErrorCode = 10
	CodeInsufficientOwnerBalance ErrorCode = 11
	CodeSelfTransfer             ErrorCode = 12
	CodeInvalidAccountId         ErrorCode = 13
	CodeNoFundsInBatch           ErrorCode = 14

	// lock conflict
	CodeStakeLocked      ErrorCode = 20
	CodeRedeemLocked     ErrorCode = 21
	CodeUnstakeInFlight  ErrorCode = 22
	CodeRoundInProgress  ErrorCode = 23
	CodeLockNotHeld      ErrorCode = 24
	CodeRefreshInProcess ErrorCode = 25
	CodeTaskInFlight     ErrorCode = 26

	// illegal state
	CodeIllegalState      ErrorCode = 40
	CodeBatchNotFound     ErrorCode = 41
	CodeReceiptNotFound   ErrorCode = 42
	CodeBatchIdMismatch   ErrorCode = 43
	CodeConservation      ErrorCode = 44
	CodeUnknownTask       ErrorCode = 45
	CodeUnknownCallback   ErrorCode = 46
	CodeInvalidLockState  ErrorCode = 47
	CodeMissingVenueState ErrorCode = 48

	// external call
	CodeVenueCallFailed   ErrorCode = 60
	CodeVenueNotWithdraw  ErrorCode = 61
	CodeVenueInvalidReply ErrorCode = 62
	CodeVenueTimeout      ErrorCode = 63

	// Storage Module
	StorageModule ErrorModule = "store"

	// Storage Module Error Codes
	CodeOpenDB        ErrorCode = 1
	CodeCloseDB       ErrorCode = 2
	CodeStoreSet      ErrorCode = 3
	CodeStoreGet      ErrorCode = 4
	CodeStoreDelete   ErrorCode = 5
	CodeCommitDB      ErrorCode = 6
	CodeIteratorKey   ErrorCode = 7
	CodeIteratorValue ErrorCode = 8

	// Venue Module
	VenueModule ErrorModule = "venue"

	// Venue Module Error Codes
	CodeVenueRequest  ErrorCode = 1
	CodeVenueStatus   ErrorCode = 2
	CodeVenueDecode   ErrorCode = 3
	CodeVenueRejected ErrorCode = 4

	// RPC Module
	RPCModule ErrorModule = "rpc"

	// RPC Module Error Codes
	CodePostRequest   ErrorCode = 1
	CodeGetRequest    ErrorCode = 2
	CodeHttpStatus    ErrorCode = 3
	CodeReadBody      ErrorCode = 4
	CodeServerTimeout ErrorCode = 5
	CodeUnknownRoute  ErrorCode = 6
	CodeRateLimited   ErrorCode = 7
)

// ErrKind is the caller facing classification of an engine failure
type ErrKind string

const (
	KindValidation   ErrKind = "ValidationError"
	KindLockConflict ErrKind = "LockConflict"
	KindIllegalState ErrKind = "IllegalState"
	KindExternalCall ErrKind = "ExternalCallFailure"
	KindOther        ErrKind = "Other"
)

// ErrorKind() classifies an error into the engine failure taxonomy using its code range
func ErrorKind(err error) ErrKind {
	e, ok := err.(ErrorI)
	if !ok || e == nil {
		return KindOther
	}
	if e.Module() == VenueModule {
		return KindExternalCall
	}
	if e.Module() != EngineModule {
		if e.Code() == CodePanic && e.Module() == MainModule {
			return KindIllegalState
		}
		return KindOther
	}
	switch c := e.Code(); {
	case c < 20:
		return KindValidation
	case c < 40:
		return KindLockConflict
	case c < 60:
		return KindIllegalState
	case c < 80:
		return KindExternalCall
	}
	return KindOther
}

func ErrJSONMarshal(err error) ErrorI {
	return NewError(CodeJSONMarshal, MainModule, fmt.Sprintf("json.marshal() failed with err: %s", err.Error()))
}

func ErrJSONUnmarshal(err error) ErrorI {
	return NewError(CodeJSONUnmarshal, MainModule, fmt.Sprintf("json.unmarshal() failed with err: %s", err.Error()))
}

func ErrUnmarshal(err error) ErrorI {
	return NewError(CodeUnmarshal, MainModule, fmt.Sprintf("unmarshal() failed with err: %s", err.Error()))
}

func ErrMarshal(err error) ErrorI {
	return NewError(CodeMarshal, MainModule, fmt.Sprintf("marshal() failed with err: %s", err.Error()))
}

func ErrUnknownPageable(t string) ErrorI {
	return NewError(CodeUnmarshal, MainModule, fmt.Sprintf("unknown pageable type %s", t))
}

func ErrWriteFile(err error) ErrorI {
	return NewError(CodeWriteFile, MainModule, fmt.Sprintf("os.WriteFile() failed with err: %s", err.Error()))
}

func ErrReadFile(err error) ErrorI {
	return NewError(CodeReadFile, MainModule, fmt.Sprintf("os.ReadFile() failed with err: %s", err.Error()))
}

func ErrInvalidArgument() ErrorI {
	return NewError(CodeInvalidArgument, MainModule, "the argument is invalid")
}

func ErrPanic() ErrorI {
	return NewError(CodePanic, MainModule, "panic recovery")
}

func ErrAmountOverflow() ErrorI {
	return NewError(CodeAmountOverflow, MainModule, "amount exceeds 128 bits")
}

func ErrAmountUnderflow() ErrorI {
	return NewError(CodeAmountUnderflow, MainModule, "amount subtraction underflow")
}

func ErrParseAmount(s string) ErrorI {
	return NewError(CodeParseAmount, MainModule, fmt.Sprintf("unable to parse amount %q", s))
}

func ErrDivideByZero() ErrorI {
	return NewError(CodeDivideByZero, MainModule, "divide by zero")
}

func ErrInvalidConfig(msg string) ErrorI {
	return NewError(CodeInvalidConfig, MainModule, fmt.Sprintf("invalid config: %s", msg))
}

func ErrGasOutOfRange(name string, value, min, max Gas) ErrorI {
	return NewError(CodeGasOutOfRange, MainModule, fmt.Sprintf("%s must be within [%s, %s] but was %s", name, min, max, value))
}

func ErrGasCrossCheck(name string, value, required Gas) ErrorI {
	return NewError(CodeGasCrossCheck, MainModule, fmt.Sprintf("%s must be at least %s but was %s", name, required, value))
}

func ErrPostRequest(err error) ErrorI {
	return NewError(CodePostRequest, RPCModule, fmt.Sprintf("http.Post() failed with err: %s", err.Error()))
}

func ErrGetRequest(err error) ErrorI {
	return NewError(CodeGetRequest, RPCModule, fmt.Sprintf("http.Get() failed with err: %s", err.Error()))
}

func ErrHttpStatus(status string, statusCode int, body []byte) ErrorI {
	return NewError(CodeHttpStatus, RPCModule, fmt.Sprintf("http response bad status %s with code %d and body %s", status, statusCode, body))
}

func ErrReadBody(err error) ErrorI {
	return NewError(CodeReadBody, RPCModule, fmt.Sprintf("io.ReadAll(http.ResponseBody) failed with err: %s", err.Error()))
}

func ErrServerTimeout() ErrorI {
	return NewError(CodeServerTimeout, RPCModule, "server timeout")
}

func ErrUnknownRoute(name string) ErrorI {
	return NewError(CodeUnknownRoute, RPCModule, fmt.Sprintf("unknown route %s", name))
}

func ErrRateLimited() ErrorI {
	return NewError(CodeRateLimited, RPCModule, "too many requests")
}
