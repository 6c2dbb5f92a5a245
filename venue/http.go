package venue

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/canopy-network/stakebatch/lib"
	"github.com/cenkalti/backoff/v4"
)

const applicationJSON = "application/json"

// HTTPVenue is a json over http client of a staking venue gateway
// every method is a POST to <url>/<method> with the engine account id and the amount
// a 422 reply is a rejection by the venue and is never retried
type HTTPVenue struct {
	url       string
	accountId string
	retries   uint64
	client    *http.Client
	log       lib.LoggerI
}

// venueRequest is the body of every venue call
type venueRequest struct {
	AccountId string         `json:"accountId"`
	Amount    *lib.YoctoNear `json:"amount,omitempty"`
}

// NewHTTPVenue() creates a venue client from the configuration
func NewHTTPVenue(config lib.VenueConfig, log lib.LoggerI) *HTTPVenue {
	return &HTTPVenue{
		url:       strings.TrimSuffix(config.Url, "/"),
		accountId: config.AccountId,
		retries:   config.MaxReadRetries,
		client:    &http.Client{Timeout: config.CallTimeout()},
		log:       log,
	}
}

// GetAccount() reads the engine's balances; the read is retried with exponential backoff
func (h *HTTPVenue) GetAccount(ctx context.Context) (account *lib.StakingPoolAccount, err lib.ErrorI) {
	err = h.read(ctx, lib.CallGetAccount, func() lib.ErrorI {
		account = new(lib.StakingPoolAccount)
		return h.post(ctx, lib.CallGetAccount, nil, account)
	})
	return
}

// Ping() asks the venue to distribute pending rewards; the call is idempotent and retried
func (h *HTTPVenue) Ping(ctx context.Context) lib.ErrorI {
	return h.read(ctx, lib.CallPing, func() lib.ErrorI {
		return h.post(ctx, lib.CallPing, nil, nil)
	})
}

func (h *HTTPVenue) DepositAndStake(ctx context.Context, amount lib.YoctoNear) lib.ErrorI {
	return h.post(ctx, lib.CallDepositAndStake, &amount, nil)
}

func (h *HTTPVenue) Deposit(ctx context.Context, amount lib.YoctoNear) lib.ErrorI {
	return h.post(ctx, lib.CallDeposit, &amount, nil)
}

func (h *HTTPVenue) Stake(ctx context.Context, amount lib.YoctoNear) lib.ErrorI {
	return h.post(ctx, lib.CallStake, &amount, nil)
}

func (h *HTTPVenue) Unstake(ctx context.Context, amount lib.YoctoNear) lib.ErrorI {
	return h.post(ctx, lib.CallUnstake, &amount, nil)
}

func (h *HTTPVenue) Withdraw(ctx context.Context, amount lib.YoctoNear) lib.ErrorI {
	return h.post(ctx, lib.CallWithdraw, &amount, nil)
}

// read() retries an idempotent call; calls that move funds are never retried
func (h *HTTPVenue) read(ctx context.Context, call lib.CallKind, op func() lib.ErrorI) (err lib.ErrorI) {
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), h.retries), ctx)
	_ = backoff.Retry(func() error {
		if err = op(); err != nil {
			h.log.Warnf("Venue %s failed, retrying: %s", call, err.Error())
			if err.Code() == lib.CodeVenueRejected {
				return backoff.Permanent(err)
			}
			return err
		}
		return nil
	}, policy)
	return
}

// post() sends a venue call and decodes the reply into ptr if set
func (h *HTTPVenue) post(ctx context.Context, call lib.CallKind, amount *lib.YoctoNear, ptr any) lib.ErrorI {
	body, err := lib.MarshalJSON(venueRequest{AccountId: h.accountId, Amount: amount})
	if err != nil {
		return err
	}
	req, e := http.NewRequestWithContext(ctx, http.MethodPost, h.url+"/"+string(call), bytes.NewBuffer(body))
	if e != nil {
		return ErrVenueRequest(call, e)
	}
	req.Header.Set("Content-Type", applicationJSON)
	resp, e := h.client.Do(req)
	if e != nil {
		return ErrVenueRequest(call, e)
	}
	defer resp.Body.Close()
	bz, e := io.ReadAll(resp.Body)
	if e != nil {
		return ErrVenueRequest(call, e)
	}
	switch {
	case resp.StatusCode == http.StatusUnprocessableEntity:
		return ErrVenueRejected(call, string(bz))
	case resp.StatusCode != http.StatusOK:
		return ErrVenueStatus(call, resp.Status, bz)
	case ptr == nil:
		return nil
	}
	if err = lib.UnmarshalJSON(bz, ptr); err != nil {
		return ErrVenueDecode(call, err)
	}
	return nil
}
