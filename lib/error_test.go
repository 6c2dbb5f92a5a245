package lib

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestErrorKind(t *testing.T) {
	tests := []struct {
		name     string
		detail   string
		err      error
		expected ErrKind
	}{
		{
			name:     "validation",
			detail:   "engine codes below 20 are validation errors",
			err:      NewError(CodeInsufficientBalance, EngineModule, ""),
			expected: KindValidation,
		},
		{
			name:     "lock conflict",
			detail:   "engine codes in [20,40) are lock conflicts",
			err:      NewError(CodeStakeLocked, EngineModule, ""),
			expected: KindLockConflict,
		},
		{
			name:     "illegal state",
			detail:   "engine codes in [40,60) are illegal states",
			err:      NewError(CodeConservation, EngineModule, ""),
			expected: KindIllegalState,
		},
		{
			name:     "external",
			detail:   "engine codes in [60,80) are external call failures",
			err:      NewError(CodeVenueCallFailed, EngineModule, ""),
			expected: KindExternalCall,
		},
		{
			name:     "venue module",
			detail:   "every venue client error is an external call failure",
			err:      NewError(CodeVenueDecode, VenueModule, ""),
			expected: KindExternalCall,
		},
		{
			name:     "panic",
			detail:   "a recovered panic aborted the invocation",
			err:      ErrPanic(),
			expected: KindIllegalState,
		},
		{
			name:     "other module",
			detail:   "store failures are not part of the engine taxonomy",
			err:      NewError(CodeStoreGet, StorageModule, ""),
			expected: KindOther,
		},
		{
			name:     "rate limited",
			detail:   "rpc rejections are not part of the engine taxonomy",
			err:      ErrRateLimited(),
			expected: KindOther,
		},
		{
			name:     "plain error",
			detail:   "errors outside of ErrorI are unclassified",
			err:      errors.New("x"),
			expected: KindOther,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			require.Equal(t, test.expected, ErrorKind(test.err))
		})
	}
}

func TestErrorString(t *testing.T) {
	err := NewError(CodeZeroAmount, EngineModule, "amount must be > 0")
	require.Contains(t, err.Error(), "engine")
	require.Contains(t, err.Error(), "amount must be > 0")
	require.Equal(t, CodeZeroAmount, err.Code())
}
