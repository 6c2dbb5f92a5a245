package rpc

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/canopy-network/stakebatch/controller"
	"github.com/canopy-network/stakebatch/fsm"
	"github.com/canopy-network/stakebatch/lib"
	"github.com/canopy-network/stakebatch/store"
	"github.com/canopy-network/stakebatch/venue"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	*Server
	client *Client
	rpc    *httptest.Server
	admin  *httptest.Server
}

func newTestServer(t *testing.T, config lib.Config) *testServer {
	log := lib.NewNullLogger()
	db, err := store.NewStoreInMemory(log)
	require.NoError(t, err)
	sim := venue.NewSimulator(config.VenueConfig.AccountId)
	c, err := controller.New(config, db, sim, nil, log)
	require.NoError(t, err)
	s := NewServer(c, config, log)
	ts := &testServer{
		Server: s,
		rpc:    httptest.NewServer(s.handler(createRouter(s))),
		admin:  httptest.NewServer(s.handler(createAdminRouter(s))),
	}
	ts.client = NewClient(ts.rpc.URL, ts.admin.URL)
	t.Cleanup(func() {
		ts.rpc.Close()
		ts.admin.Close()
		c.Stop()
	})
	return ts
}

// register() registers an account, paying exactly the storage escrow
func (ts *testServer) register(t *testing.T, id string) {
	escrow, err := ts.config.StorageEscrow()
	require.NoError(t, err)
	require.NoError(t, ts.client.Call(RegisterRouteName, nearRequest{AccountId: id, Amount: escrow}, nil))
}

// do() sends a raw request and decodes the error body of a failed one
func (ts *testServer) do(t *testing.T, base, routeName, body string) (int, *errorResponse) {
	r, ok := routes[routeName]
	if !ok {
		r = adminRoutes[routeName]
	}
	req, err := http.NewRequest(r.Method, base+r.Path, strings.NewReader(body))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusOK {
		return resp.StatusCode, nil
	}
	e := new(errorResponse)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(e))
	return resp.StatusCode, e
}

func TestStakeRoundOverRPC(t *testing.T) {
	ts := newTestServer(t, lib.DefaultConfig())
	version, err := ts.client.Version()
	require.NoError(t, err)
	require.Equal(t, SoftwareVersion, version)
	// the surplus of the registration deposit is refunded
	escrow, err := ts.config.StorageEscrow()
	require.NoError(t, err)
	deposit, err := escrow.Add(lib.NearToYocto(1))
	require.NoError(t, err)
	refund := new(nearResponse)
	require.NoError(t, ts.client.Call(RegisterRouteName, nearRequest{AccountId: "alice", Amount: deposit}, refund))
	require.Equal(t, lib.NearToYocto(1), refund.Amount)
	// stake through the api and let the worker loop settle the round
	batchId, err := ts.client.DepositAndStake("alice", lib.NearToYocto(10))
	require.NoError(t, err)
	require.Equal(t, fsm.BatchId(1), batchId)
	processed, err := ts.controller.ProcessTasks(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, processed)
	// the stored account still references the batch until claimed
	account, err := ts.client.Account("alice")
	require.NoError(t, err)
	require.True(t, account.Stake.IsZero())
	require.NotNil(t, account.StakeBatch)
	view, err := ts.client.AccountView("alice")
	require.NoError(t, err)
	require.Equal(t, lib.StakeToYocto(10), view.Stake)
	require.Nil(t, view.StakeBatch)
	summary, err := ts.client.Contract()
	require.NoError(t, err)
	require.Equal(t, lib.StakeToYocto(10), summary.TotalStakeSupply)
	require.Zero(t, summary.ScheduledTasks)
	value, err := ts.client.TokenValue()
	require.NoError(t, err)
	require.Equal(t, lib.NearToYocto(10), value.TotalStakedNearBalance)
	page, err := ts.client.Events(lib.PageParams{}, fsm.EventTypeStakeBatchReceiptCreated)
	require.NoError(t, err)
	require.Equal(t, 1, page.TotalCount)
	// claiming persists the settled view
	claimed := new(fsm.Account)
	require.NoError(t, ts.client.Call(ClaimRouteName, accountRequest{AccountId: "alice"}, claimed))
	require.Equal(t, view, claimed)
}

func TestErrorStatus(t *testing.T) {
	ts := newTestServer(t, lib.DefaultConfig())
	ts.register(t, "alice")
	_, err := ts.client.DepositAndStake("alice", lib.NearToYocto(10))
	require.NoError(t, err)
	tests := []struct {
		name      string
		detail    string
		admin     bool
		route     string
		body      string
		expected  int
		kind      lib.ErrKind
		errorCode lib.ErrorCode
	}{
		{
			name:      "unregistered account",
			detail:    "queries of an unknown account are not found",
			route:     AccountRouteName,
			body:      `{"accountId":"bob"}`,
			expected:  http.StatusNotFound,
			kind:      lib.KindValidation,
			errorCode: lib.CodeAccountNotRegistered,
		},
		{
			name:      "zero amount",
			detail:    "a zero deposit is a validation error",
			route:     DepositRouteName,
			body:      `{"accountId":"alice","amount":"0"}`,
			expected:  http.StatusBadRequest,
			kind:      lib.KindValidation,
			errorCode: lib.CodeZeroAmount,
		},
		{
			name:      "malformed body",
			detail:    "the body must be a json object",
			route:     DepositRouteName,
			body:      `{"accountId":`,
			expected:  http.StatusBadRequest,
			kind:      lib.KindOther,
			errorCode: lib.CodeJSONUnmarshal,
		},
		{
			name:      "stake locked",
			detail:    "a second stake round cannot start while the first is in flight",
			route:     StakeRouteName,
			expected:  http.StatusConflict,
			kind:      lib.KindLockConflict,
			errorCode: lib.CodeStakeLocked,
		},
		{
			name:      "not owner",
			detail:    "owner operations reject any other caller",
			admin:     true,
			route:     CollectEarningsRouteName,
			body:      `{"caller":"alice","amount":"1000"}`,
			expected:  http.StatusBadRequest,
			kind:      lib.KindValidation,
			errorCode: lib.CodeNotOwner,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			base := ts.rpc.URL
			if test.admin {
				base = ts.admin.URL
			}
			status, e := ts.do(t, base, test.route, test.body)
			require.Equal(t, test.expected, status)
			require.NotNil(t, e)
			require.Equal(t, test.kind, e.Kind)
			require.Equal(t, test.errorCode, e.Code)
		})
	}
}

func TestClientDecodesErrors(t *testing.T) {
	ts := newTestServer(t, lib.DefaultConfig())
	_, err := ts.client.Account("bob")
	require.Error(t, err)
	require.Equal(t, lib.CodeAccountNotRegistered, err.Code())
	require.Equal(t, lib.EngineModule, err.Module())
	require.Equal(t, lib.KindValidation, lib.ErrorKind(err))
	// unknown routes never reach the network
	err = ts.client.Call("nope", nil, nil)
	require.Equal(t, lib.CodeUnknownRoute, err.Code())
}

func TestOwnerOperationsOverRPC(t *testing.T) {
	config := lib.DefaultConfig()
	ts := newTestServer(t, config)
	ts.register(t, config.OwnerId)
	require.NoError(t, ts.client.Call(CollectEarningsRouteName, ownerRequest{Caller: config.OwnerId, Amount: lib.NearToYocto(1)}, nil))
	summary, err := ts.client.Contract()
	require.NoError(t, err)
	require.Equal(t, lib.NearToYocto(1), summary.CollectedEarnings)
	// a forced gas update skips the range checks
	withdraw := 100 * lib.TGas
	params := new(fsm.Params)
	require.NoError(t, ts.client.Call(UpdateGasRouteName, updateGasRequest{
		Caller: config.OwnerId,
		Update: lib.GasConfigUpdate{Withdraw: &withdraw},
		Force:  true,
	}, params))
	require.Equal(t, withdraw, params.Gas.StakingPool.Withdraw)
	queried := new(fsm.Params)
	require.NoError(t, ts.client.Call(ConfigRouteName, nil, queried))
	require.Equal(t, params, queried)
	// nothing is wedged
	require.NoError(t, ts.client.Call(ClearStakeLockRouteName, ownerRequest{Caller: config.OwnerId}, nil))
	usage := new(ResourceUsage)
	require.NoError(t, ts.client.Call(ResourceUsageRouteName, nil, usage))
	require.NotZero(t, usage.System.TotalRAM)
}

func TestRateLimit(t *testing.T) {
	config := lib.DefaultConfig()
	config.RateLimit, config.RateBurst = 1, 1
	ts := newTestServer(t, config)
	status, _ := ts.do(t, ts.rpc.URL, VersionRouteName, "")
	require.Equal(t, http.StatusOK, status)
	status, e := ts.do(t, ts.rpc.URL, VersionRouteName, "")
	require.Equal(t, http.StatusTooManyRequests, status)
	require.Equal(t, lib.CodeRateLimited, e.Code)
}

func TestRequestId(t *testing.T) {
	ts := newTestServer(t, lib.DefaultConfig())
	req, err := http.NewRequest(http.MethodGet, ts.rpc.URL+routes[VersionRouteName].Path, nil)
	require.NoError(t, err)
	// a caller supplied id is echoed back
	req.Header.Set(RequestIdHeader, "abc")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, "abc", resp.Header.Get(RequestIdHeader))
	// otherwise one is generated
	resp, err = http.Get(ts.rpc.URL + routes[VersionRouteName].Path)
	require.NoError(t, err)
	resp.Body.Close()
	require.Len(t, resp.Header.Get(RequestIdHeader), 36)
}
