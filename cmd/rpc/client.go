package rpc

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/canopy-network/stakebatch/fsm"
	"github.com/canopy-network/stakebatch/lib"
)

// Client is a thin http client over the query, transaction and admin APIs
type Client struct {
	rpcURL      string
	adminRPCURL string
	client      http.Client
}

// NewClient() creates a client for the servers hosted at the urls
func NewClient(rpcURL, adminRPCURL string) *Client {
	return &Client{rpcURL: rpcURL, adminRPCURL: adminRPCURL, client: http.Client{Timeout: 30 * time.Second}}
}

// Call() invokes the named route with the request and decodes the response into ptr
func (c *Client) Call(routeName string, request, ptr any) lib.ErrorI {
	base, r, ok := c.rpcURL, route{}, false
	if r, ok = routes[routeName]; !ok {
		if r, ok = adminRoutes[routeName]; !ok {
			return lib.ErrUnknownRoute(routeName)
		}
		base = c.adminRPCURL
	}
	if r.Method == http.MethodGet {
		return c.get(base+r.Path, ptr)
	}
	return c.post(base+r.Path, request, ptr)
}

// HasRoute() is true if the name belongs to a query, transaction or admin route
func HasRoute(routeName string) bool {
	_, query := routes[routeName]
	_, admin := adminRoutes[routeName]
	return query || admin
}

func (c *Client) Version() (version string, err lib.ErrorI) {
	err = c.Call(VersionRouteName, nil, &version)
	return
}

func (c *Client) Contract() (summary *fsm.ContractSummary, err lib.ErrorI) {
	summary = new(fsm.ContractSummary)
	err = c.Call(ContractRouteName, nil, summary)
	return
}

func (c *Client) Account(id string) (account *fsm.Account, err lib.ErrorI) {
	account = new(fsm.Account)
	err = c.Call(AccountRouteName, accountRequest{AccountId: id}, account)
	return
}

func (c *Client) AccountView(id string) (account *fsm.Account, err lib.ErrorI) {
	account = new(fsm.Account)
	err = c.Call(AccountViewRouteName, accountRequest{AccountId: id}, account)
	return
}

func (c *Client) TokenValue() (value *fsm.StakeTokenValue, err lib.ErrorI) {
	value = new(fsm.StakeTokenValue)
	err = c.Call(TokenValueRouteName, nil, value)
	return
}

func (c *Client) Events(params lib.PageParams, eventType fsm.EventType) (page *lib.Page, err lib.ErrorI) {
	page = new(lib.Page)
	err = c.Call(EventsRouteName, eventsRequest{PageParams: params, Type: eventType}, page)
	return
}

func (c *Client) DepositAndStake(id string, amount lib.YoctoNear) (batchId fsm.BatchId, err lib.ErrorI) {
	resp := new(batchIdResponse)
	err = c.Call(DepositAndStakeRouteName, nearRequest{AccountId: id, Amount: amount}, resp)
	return resp.BatchId, err
}

func (c *Client) post(url string, request, ptr any) lib.ErrorI {
	bz, err := lib.MarshalJSON(request)
	if err != nil {
		return err
	}
	resp, e := c.client.Post(url, ApplicationJSON, bytes.NewBuffer(bz))
	if e != nil {
		return lib.ErrPostRequest(e)
	}
	return c.unmarshal(resp, ptr)
}

func (c *Client) get(url string, ptr any) lib.ErrorI {
	resp, err := c.client.Get(url)
	if err != nil {
		return lib.ErrGetRequest(err)
	}
	return c.unmarshal(resp, ptr)
}

func (c *Client) unmarshal(resp *http.Response, ptr any) lib.ErrorI {
	defer func() { _ = resp.Body.Close() }()
	bz, err := io.ReadAll(resp.Body)
	if err != nil {
		return lib.ErrReadBody(err)
	}
	if resp.StatusCode != http.StatusOK {
		e := new(errorResponse)
		if json.Unmarshal(bz, e) == nil && e.Module != "" {
			return lib.NewError(e.Code, e.Module, e.Msg)
		}
		return lib.ErrHttpStatus(resp.Status, resp.StatusCode, bz)
	}
	if ptr == nil {
		return nil
	}
	return lib.UnmarshalJSON(bz, ptr)
}
