package venue

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/canopy-network/stakebatch/lib"
	"github.com/stretchr/testify/require"
)

func newTestHTTPVenue(t *testing.T, handler http.HandlerFunc) *HTTPVenue {
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewHTTPVenue(lib.VenueConfig{
		Url:            server.URL + "/",
		AccountId:      "engine",
		CallTimeoutMS:  1000,
		MaxReadRetries: 2,
	}, lib.NewNullLogger())
}

func TestHTTPVenueRequest(t *testing.T) {
	var gotPath string
	var gotBody venueRequest
	v := newTestHTTPVenue(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, applicationJSON, r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusOK)
	})
	require.NoError(t, v.DepositAndStake(context.Background(), lib.NewYoctoNear(42)))
	require.Equal(t, "/deposit_and_stake", gotPath)
	require.Equal(t, "engine", gotBody.AccountId)
	require.NotNil(t, gotBody.Amount)
	require.Equal(t, lib.NewYoctoNear(42), *gotBody.Amount)
}

func TestHTTPVenueGetAccount(t *testing.T) {
	v := newTestHTTPVenue(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"accountId":"engine","unstakedBalance":"5","stakedBalance":"100","canWithdraw":true}`))
	})
	account, err := v.GetAccount(context.Background())
	require.NoError(t, err)
	require.Equal(t, lib.StakingPoolAccount{
		AccountId:       "engine",
		UnstakedBalance: lib.NewYoctoNear(5),
		StakedBalance:   lib.NewYoctoNear(100),
		CanWithdraw:     true,
	}, *account)
}

func TestHTTPVenueErrors(t *testing.T) {
	tests := []struct {
		name             string
		detail           string
		status           int
		call             func(v *HTTPVenue) lib.ErrorI
		expectedCode     lib.ErrorCode
		expectedAttempts int32
	}{
		{
			name:   "rejected read",
			detail: "a 422 is a rejection and is never retried",
			status: http.StatusUnprocessableEntity,
			call: func(v *HTTPVenue) lib.ErrorI {
				_, err := v.GetAccount(context.Background())
				return err
			},
			expectedCode:     lib.CodeVenueRejected,
			expectedAttempts: 1,
		},
		{
			name:   "unavailable read",
			detail: "a failed read is retried up to the configured retries",
			status: http.StatusServiceUnavailable,
			call: func(v *HTTPVenue) lib.ErrorI {
				return v.Ping(context.Background())
			},
			expectedCode:     lib.CodeVenueStatus,
			expectedAttempts: 3,
		},
		{
			name:   "unavailable mutation",
			detail: "a call that moves funds is never retried",
			status: http.StatusServiceUnavailable,
			call: func(v *HTTPVenue) lib.ErrorI {
				return v.Unstake(context.Background(), lib.NewYoctoNear(1))
			},
			expectedCode:     lib.CodeVenueStatus,
			expectedAttempts: 1,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			var attempts atomic.Int32
			v := newTestHTTPVenue(t, func(w http.ResponseWriter, r *http.Request) {
				attempts.Add(1)
				w.WriteHeader(test.status)
			})
			err := test.call(v)
			require.Error(t, err)
			require.Equal(t, test.expectedCode, err.Code())
			require.Equal(t, lib.VenueModule, err.Module())
			require.Equal(t, test.expectedAttempts, attempts.Load())
		})
	}
}

func TestHTTPVenueDecodeError(t *testing.T) {
	v := newTestHTTPVenue(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"stakedBalance":`))
	})
	_, err := v.GetAccount(context.Background())
	require.Error(t, err)
	require.True(t, strings.Contains(err.Error(), "could not be decoded"))
}
