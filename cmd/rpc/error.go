package rpc

import (
	"net/http"

	"github.com/canopy-network/stakebatch/lib"
)

// errorResponse is the body of every failed request
type errorResponse struct {
	Kind   lib.ErrKind     `json:"kind"`
	Code   lib.ErrorCode   `json:"code"`
	Module lib.ErrorModule `json:"module"`
	Msg    string          `json:"msg"`
}

func newErrorResponse(err lib.ErrorI) errorResponse {
	msg := err.Error()
	if e, ok := err.(*lib.Error); ok {
		msg = e.Msg
	}
	return errorResponse{Kind: lib.ErrorKind(err), Code: err.Code(), Module: err.Module(), Msg: msg}
}

// statusFor() maps an error to the http status of its kind
func statusFor(err lib.ErrorI) int {
	if err.Module() == lib.EngineModule && err.Code() == lib.CodeAccountNotRegistered {
		return http.StatusNotFound
	}
	switch lib.ErrorKind(err) {
	case lib.KindValidation:
		return http.StatusBadRequest
	case lib.KindLockConflict:
		return http.StatusConflict
	case lib.KindExternalCall:
		return http.StatusBadGateway
	case lib.KindIllegalState:
		return http.StatusInternalServerError
	}
	switch err.Module() {
	case lib.MainModule:
		switch err.Code() {
		case lib.CodeJSONUnmarshal, lib.CodeInvalidArgument, lib.CodeAmountOverflow, lib.CodeAmountUnderflow,
			lib.CodeParseAmount, lib.CodeInvalidConfig, lib.CodeGasOutOfRange, lib.CodeGasCrossCheck:
			return http.StatusBadRequest
		}
	case lib.RPCModule:
		switch err.Code() {
		case lib.CodeReadBody:
			return http.StatusBadRequest
		case lib.CodeRateLimited:
			return http.StatusTooManyRequests
		case lib.CodeUnknownRoute:
			return http.StatusNotFound
		}
	}
	return http.StatusInternalServerError
}
