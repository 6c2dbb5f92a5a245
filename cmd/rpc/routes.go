package rpc

import (
	"net/http"

	"github.com/julienschmidt/httprouter"
)

const (
	VersionRouteName           = "version"
	AccountRouteName           = "account"
	AccountViewRouteName       = "account-view"
	AccountsRouteName          = "accounts"
	ContractRouteName          = "contract"
	TokenValueRouteName        = "token-value"
	StakeReceiptRouteName      = "stake-receipt"
	RedeemReceiptRouteName     = "redeem-receipt"
	PendingWithdrawalRouteName = "pending-withdrawal"
	BatchesRouteName           = "batches"
	MinDepositRouteName        = "min-deposit"
	EventsRouteName            = "events"
	TasksRouteName             = "tasks"
	ConfigRouteName            = "config"
	FtTotalSupplyRouteName     = "ft-total-supply"
	FtBalanceOfRouteName       = "ft-balance-of"
	// tx
	RegisterRouteName           = "register"
	UnregisterRouteName         = "unregister"
	DepositRouteName            = "deposit"
	DepositAndStakeRouteName    = "deposit-and-stake"
	WithdrawStakeBatchRouteName = "withdraw-stake-batch"
	RedeemRouteName             = "redeem"
	RedeemAllRouteName          = "redeem-all"
	RedeemAndUnstakeRouteName   = "redeem-and-unstake"
	RemoveRedeemRouteName       = "remove-redeem"
	ClaimRouteName              = "claim"
	WithdrawNearRouteName       = "withdraw-near"
	TransferNearRouteName       = "transfer-near"
	FtTransferRouteName         = "ft-transfer"
	StakeRouteName              = "stake"
	UnstakeRouteName            = "unstake"
	RefreshRouteName            = "refresh"
	// admin
	CollectEarningsRouteName   = "collect-earnings"
	OwnerStakeRouteName        = "owner-stake"
	OwnerWithdrawRouteName     = "owner-withdraw"
	TransferOwnershipRouteName = "transfer-ownership"
	ClearStakeLockRouteName    = "clear-stake-lock"
	ClearRedeemLockRouteName   = "clear-redeem-lock"
	UpdateGasRouteName         = "update-gas"
	UpdateConfigRouteName      = "update-config"
	ResourceUsageRouteName     = "resource-usage"
)

// route contains the method and the path of an api endpoint
type route struct {
	Method string
	Path   string
}

const (
	queryPrefix = "/v1/query/"
	txPrefix    = "/v1/tx/"
	adminPrefix = "/v1/admin/"
)

// routes contains the method and the path of every query and transaction endpoint
var routes = map[string]route{
	VersionRouteName:           {Method: http.MethodGet, Path: "/v1/"},
	AccountRouteName:           {Method: http.MethodPost, Path: queryPrefix + AccountRouteName},
	AccountViewRouteName:       {Method: http.MethodPost, Path: queryPrefix + AccountViewRouteName},
	AccountsRouteName:          {Method: http.MethodPost, Path: queryPrefix + AccountsRouteName},
	ContractRouteName:          {Method: http.MethodGet, Path: queryPrefix + ContractRouteName},
	TokenValueRouteName:        {Method: http.MethodGet, Path: queryPrefix + TokenValueRouteName},
	StakeReceiptRouteName:      {Method: http.MethodPost, Path: queryPrefix + StakeReceiptRouteName},
	RedeemReceiptRouteName:     {Method: http.MethodPost, Path: queryPrefix + RedeemReceiptRouteName},
	PendingWithdrawalRouteName: {Method: http.MethodGet, Path: queryPrefix + PendingWithdrawalRouteName},
	BatchesRouteName:           {Method: http.MethodGet, Path: queryPrefix + BatchesRouteName},
	MinDepositRouteName:        {Method: http.MethodGet, Path: queryPrefix + MinDepositRouteName},
	EventsRouteName:            {Method: http.MethodPost, Path: queryPrefix + EventsRouteName},
	TasksRouteName:             {Method: http.MethodGet, Path: queryPrefix + TasksRouteName},
	ConfigRouteName:            {Method: http.MethodGet, Path: queryPrefix + ConfigRouteName},
	FtTotalSupplyRouteName:     {Method: http.MethodGet, Path: queryPrefix + FtTotalSupplyRouteName},
	FtBalanceOfRouteName:       {Method: http.MethodPost, Path: queryPrefix + FtBalanceOfRouteName},
	// tx
	RegisterRouteName:           {Method: http.MethodPost, Path: txPrefix + RegisterRouteName},
	UnregisterRouteName:         {Method: http.MethodPost, Path: txPrefix + UnregisterRouteName},
	DepositRouteName:            {Method: http.MethodPost, Path: txPrefix + DepositRouteName},
	DepositAndStakeRouteName:    {Method: http.MethodPost, Path: txPrefix + DepositAndStakeRouteName},
	WithdrawStakeBatchRouteName: {Method: http.MethodPost, Path: txPrefix + WithdrawStakeBatchRouteName},
	RedeemRouteName:             {Method: http.MethodPost, Path: txPrefix + RedeemRouteName},
	RedeemAllRouteName:          {Method: http.MethodPost, Path: txPrefix + RedeemAllRouteName},
	RedeemAndUnstakeRouteName:   {Method: http.MethodPost, Path: txPrefix + RedeemAndUnstakeRouteName},
	RemoveRedeemRouteName:       {Method: http.MethodPost, Path: txPrefix + RemoveRedeemRouteName},
	ClaimRouteName:              {Method: http.MethodPost, Path: txPrefix + ClaimRouteName},
	WithdrawNearRouteName:       {Method: http.MethodPost, Path: txPrefix + WithdrawNearRouteName},
	TransferNearRouteName:       {Method: http.MethodPost, Path: txPrefix + TransferNearRouteName},
	FtTransferRouteName:         {Method: http.MethodPost, Path: txPrefix + FtTransferRouteName},
	StakeRouteName:              {Method: http.MethodPost, Path: txPrefix + StakeRouteName},
	UnstakeRouteName:            {Method: http.MethodPost, Path: txPrefix + UnstakeRouteName},
	RefreshRouteName:            {Method: http.MethodPost, Path: txPrefix + RefreshRouteName},
}

// adminRoutes contains the method and the path of every owner and operator endpoint
var adminRoutes = map[string]route{
	CollectEarningsRouteName:   {Method: http.MethodPost, Path: adminPrefix + CollectEarningsRouteName},
	OwnerStakeRouteName:        {Method: http.MethodPost, Path: adminPrefix + OwnerStakeRouteName},
	OwnerWithdrawRouteName:     {Method: http.MethodPost, Path: adminPrefix + OwnerWithdrawRouteName},
	TransferOwnershipRouteName: {Method: http.MethodPost, Path: adminPrefix + TransferOwnershipRouteName},
	ClearStakeLockRouteName:    {Method: http.MethodPost, Path: adminPrefix + ClearStakeLockRouteName},
	ClearRedeemLockRouteName:   {Method: http.MethodPost, Path: adminPrefix + ClearRedeemLockRouteName},
	UpdateGasRouteName:         {Method: http.MethodPost, Path: adminPrefix + UpdateGasRouteName},
	UpdateConfigRouteName:      {Method: http.MethodPost, Path: adminPrefix + UpdateConfigRouteName},
	ResourceUsageRouteName:     {Method: http.MethodGet, Path: adminPrefix + ResourceUsageRouteName},
}

// createRouter() binds the query and transaction handlers to their routes
func createRouter(s *Server) *httprouter.Router {
	handlers := map[string]httprouter.Handle{
		VersionRouteName:           s.Version,
		AccountRouteName:           s.Account,
		AccountViewRouteName:       s.AccountView,
		AccountsRouteName:          s.Accounts,
		ContractRouteName:          s.Contract,
		TokenValueRouteName:        s.TokenValue,
		StakeReceiptRouteName:      s.StakeReceipt,
		RedeemReceiptRouteName:     s.RedeemReceipt,
		PendingWithdrawalRouteName: s.PendingWithdrawal,
		BatchesRouteName:           s.Batches,
		MinDepositRouteName:        s.MinDeposit,
		EventsRouteName:            s.Events,
		TasksRouteName:             s.Tasks,
		ConfigRouteName:            s.EngineParams,
		FtTotalSupplyRouteName:     s.FtTotalSupply,
		FtBalanceOfRouteName:       s.FtBalanceOf,
		// tx
		RegisterRouteName:           s.Register,
		UnregisterRouteName:         s.Unregister,
		DepositRouteName:            s.Deposit,
		DepositAndStakeRouteName:    s.DepositAndStake,
		WithdrawStakeBatchRouteName: s.WithdrawStakeBatch,
		RedeemRouteName:             s.Redeem,
		RedeemAllRouteName:          s.RedeemAll,
		RedeemAndUnstakeRouteName:   s.RedeemAndUnstake,
		RemoveRedeemRouteName:       s.RemoveRedeem,
		ClaimRouteName:              s.Claim,
		WithdrawNearRouteName:       s.WithdrawNear,
		TransferNearRouteName:       s.TransferNear,
		FtTransferRouteName:         s.FtTransfer,
		StakeRouteName:              s.Stake,
		UnstakeRouteName:            s.Unstake,
		RefreshRouteName:            s.Refresh,
	}
	return newRouter(s, routes, handlers)
}

// createAdminRouter() binds the admin handlers to their routes
func createAdminRouter(s *Server) *httprouter.Router {
	handlers := map[string]httprouter.Handle{
		CollectEarningsRouteName:   s.CollectEarnings,
		OwnerStakeRouteName:        s.OwnerStake,
		OwnerWithdrawRouteName:     s.OwnerWithdraw,
		TransferOwnershipRouteName: s.TransferOwnership,
		ClearStakeLockRouteName:    s.ClearStakeLock,
		ClearRedeemLockRouteName:   s.ClearRedeemLock,
		UpdateGasRouteName:         s.UpdateGas,
		UpdateConfigRouteName:      s.UpdateConfig,
		ResourceUsageRouteName:     s.ResourceUsage,
	}
	return newRouter(s, adminRoutes, handlers)
}

func newRouter(s *Server, paths map[string]route, handlers map[string]httprouter.Handle) *httprouter.Router {
	router := httprouter.New()
	for name, handler := range handlers {
		path := paths[name]
		router.Handle(path.Method, path.Path, logHandler{path: path.Path, h: handler, logger: s.logger}.Handle)
	}
	return router
}
