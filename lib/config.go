package lib

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

/* This file implements logic for 'user controlled' global configurations of each module */

const (
	// FILE NAMES in the 'data directory'
	ConfigFilePath = "config.json" // the file path for the node configuration
)

// Config is the structure of the user configuration options for a settlement engine node
type Config struct {
	MainConfig    // main options spanning over all modules
	EngineConfig  // settlement engine options
	GasConfig     // gas budgets for venue calls and their continuations
	VenueConfig   // the staking venue connection
	RPCConfig     // rpc API options
	StoreConfig   // persistence options
	MetricsConfig // telemetry options
}

// DefaultConfig() returns a Config with developer set options
func DefaultConfig() Config {
	return Config{
		MainConfig:    DefaultMainConfig(),
		EngineConfig:  DefaultEngineConfig(),
		GasConfig:     DefaultGasConfig(),
		VenueConfig:   DefaultVenueConfig(),
		RPCConfig:     DefaultRPCConfig(),
		StoreConfig:   DefaultStoreConfig(),
		MetricsConfig: DefaultMetricsConfig(),
	}
}

// MAIN CONFIG BELOW

type MainConfig struct {
	LogLevel string `json:"logLevel"` // any level includes the levels above it: debug < info < warning < error
}

// DefaultMainConfig() sets log level to 'info'
func DefaultMainConfig() MainConfig {
	return MainConfig{
		LogLevel: "info", // everything but debug is the default
	}
}

// GetLogLevel() parses the log string in the config file into a LogLevel Enum
func (m *MainConfig) GetLogLevel() int32 {
	switch {
	case strings.Contains(strings.ToLower(m.LogLevel), "deb"):
		return DebugLevel
	case strings.Contains(strings.ToLower(m.LogLevel), "inf"):
		return InfoLevel
	case strings.Contains(strings.ToLower(m.LogLevel), "war"):
		return WarnLevel
	case strings.Contains(strings.ToLower(m.LogLevel), "err"):
		return ErrorLevel
	default:
		return DebugLevel
	}
}

// ENGINE CONFIG BELOW

// EngineConfig holds the economic parameters of the settlement engine
type EngineConfig struct {
	OwnerId                 string     `json:"ownerId"`                 // the account that receives the owner share of earnings
	OwnerEarningsPercentage uint8      `json:"ownerEarningsPercentage"` // [0,100] share of collected earnings that goes to the owner
	StorageCostPerByte      YoctoNear  `json:"storageCostPerByte"`      // escrow price per byte of account storage
	AccountStorageBytes     uint64     `json:"accountStorageBytes"`     // the storage footprint charged per registered account
	MinStakeDeposit         YoctoStake `json:"minStakeDeposit"`         // the smallest deposit, expressed as the STAKE it must mint
	BlocksPerEpoch          uint64     `json:"blocksPerEpoch"`          // how many logical blocks make up an epoch
}

// DefaultEngineConfig() returns the developer recommended economic parameters
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		OwnerId:                 "owner",
		OwnerEarningsPercentage: 50,                                          // split earnings evenly
		StorageCostPerByte:      MustParseYoctoNear("100000000000000000000"), // 1E20 yocto per byte
		AccountStorageBytes:     690,                                         // two strings, two amounts and four batch references
		MinStakeDeposit:         NewYoctoStake(1000),                         // mint at least 1000 yocto-STAKE
		BlocksPerEpoch:          43200,                                       // ~12 hours of one second blocks
	}
}

// StorageEscrow() is the deposit required to register one account
func (e *EngineConfig) StorageEscrow() (YoctoNear, ErrorI) {
	return e.StorageCostPerByte.MulUint64(e.AccountStorageBytes)
}

// Merge() applies the non-zero fields of the update after validating them
func (e *EngineConfig) Merge(update EngineConfigUpdate, force bool) ErrorI {
	merged := *e
	if update.OwnerEarningsPercentage != nil {
		if *update.OwnerEarningsPercentage > 100 {
			return ErrInvalidConfig("ownerEarningsPercentage must be within [0, 100]")
		}
		merged.OwnerEarningsPercentage = *update.OwnerEarningsPercentage
	}
	if update.StorageCostPerByte != nil {
		if !force && update.StorageCostPerByte.IsZero() {
			return ErrInvalidConfig("storageCostPerByte must be > 0")
		}
		merged.StorageCostPerByte = *update.StorageCostPerByte
	}
	if update.MinStakeDeposit != nil {
		merged.MinStakeDeposit = *update.MinStakeDeposit
	}
	*e = merged
	return nil
}

// EngineConfigUpdate is a partial EngineConfig, nil fields are left untouched
type EngineConfigUpdate struct {
	OwnerEarningsPercentage *uint8      `json:"ownerEarningsPercentage,omitempty"`
	StorageCostPerByte      *YoctoNear  `json:"storageCostPerByte,omitempty"`
	MinStakeDeposit         *YoctoStake `json:"minStakeDeposit,omitempty"`
}

// GAS CONFIG BELOW

// Gas is the execution budget attached to a venue call or continuation
type Gas uint64

// TGas is one tera-gas
const TGas Gas = 1_000_000_000_000

// String() prints the gas in TGas when it divides evenly
func (g Gas) String() string {
	if g%TGas == 0 {
		return fmt.Sprintf("%d TGas", g/TGas)
	}
	return fmt.Sprintf("%d gas", uint64(g))
}

// GasConfig is the gas budget for every venue call and every continuation of a round
type GasConfig struct {
	StakingPool StakingPoolGasConfig `json:"stakingPool"`
	Callbacks   CallbacksGasConfig   `json:"callbacks"`
}

// StakingPoolGasConfig is the gas attached to each venue call
type StakingPoolGasConfig struct {
	GetAccount      Gas `json:"getAccount"`
	DepositAndStake Gas `json:"depositAndStake"`
	Deposit         Gas `json:"deposit"`
	Stake           Gas `json:"stake"`
	Unstake         Gas `json:"unstake"`
	Withdraw        Gas `json:"withdraw"`
	Ping            Gas `json:"ping"`
}

// CallbacksGasConfig is the gas reserved for each continuation
type CallbacksGasConfig struct {
	OnRunStakeBatch                   Gas `json:"onRunStakeBatch"`
	OnDepositAndStake                 Gas `json:"onDepositAndStake"`
	Unlock                            Gas `json:"unlock"`
	OnRunRedeemStakeBatch             Gas `json:"onRunRedeemStakeBatch"`
	OnUnstake                         Gas `json:"onUnstake"`
	OnRedeemingStakePendingWithdrawal Gas `json:"onRedeemingStakePendingWithdrawal"`
	OnRedeemingStakePostWithdrawal    Gas `json:"onRedeemingStakePostWithdrawal"`
	OnRefreshStakeTokenValue          Gas `json:"onRefreshStakeTokenValue"`
}

// DefaultGasConfig() returns the gas budgets the venue integration was tuned with
func DefaultGasConfig() GasConfig {
	return GasConfig{
		StakingPool: StakingPoolGasConfig{
			GetAccount:      5 * TGas,
			DepositAndStake: 45 * TGas,
			Deposit:         45 * TGas,
			Stake:           45 * TGas,
			Unstake:         45 * TGas,
			Withdraw:        45 * TGas,
			Ping:            5 * TGas,
		},
		Callbacks: CallbacksGasConfig{
			OnRunStakeBatch:                   135 * TGas,
			OnDepositAndStake:                 5 * TGas,
			Unlock:                            4 * TGas,
			OnRunRedeemStakeBatch:             85 * TGas,
			OnUnstake:                         5 * TGas,
			OnRedeemingStakePendingWithdrawal: 85 * TGas,
			OnRedeemingStakePostWithdrawal:    5 * TGas,
			OnRefreshStakeTokenValue:          5 * TGas,
		},
	}
}

// GasConfigUpdate is a partial GasConfig, nil fields are left untouched
type GasConfigUpdate struct {
	GetAccount                        *Gas `json:"getAccount,omitempty"`
	DepositAndStake                   *Gas `json:"depositAndStake,omitempty"`
	Deposit                           *Gas `json:"deposit,omitempty"`
	Stake                             *Gas `json:"stake,omitempty"`
	Unstake                           *Gas `json:"unstake,omitempty"`
	Withdraw                          *Gas `json:"withdraw,omitempty"`
	OnRunStakeBatch                   *Gas `json:"onRunStakeBatch,omitempty"`
	OnDepositAndStake                 *Gas `json:"onDepositAndStake,omitempty"`
	Unlock                            *Gas `json:"unlock,omitempty"`
	OnRunRedeemStakeBatch             *Gas `json:"onRunRedeemStakeBatch,omitempty"`
	OnUnstake                         *Gas `json:"onUnstake,omitempty"`
	OnRedeemingStakePendingWithdrawal *Gas `json:"onRedeemingStakePendingWithdrawal,omitempty"`
	OnRedeemingStakePostWithdrawal    *Gas `json:"onRedeemingStakePostWithdrawal,omitempty"`
}

// gasField binds an update field to its target, name and allowed TGas range
type gasField struct {
	name     string
	update   *Gas
	target   *Gas
	min, max Gas
}

// Merge() applies the update; unless force is set every provided field must fall in its range and
// the merged config must leave each round enough gas for its chained calls
// all fields are applied or none are
func (g *GasConfig) Merge(update GasConfigUpdate, force bool) ErrorI {
	merged := *g
	fields := []gasField{
		{"stakingPool.getAccount", update.GetAccount, &merged.StakingPool.GetAccount, 5, 10},
		{"stakingPool.depositAndStake", update.DepositAndStake, &merged.StakingPool.DepositAndStake, 40, 75},
		{"stakingPool.deposit", update.Deposit, &merged.StakingPool.Deposit, 5, 20},
		{"stakingPool.stake", update.Stake, &merged.StakingPool.Stake, 40, 75},
		{"stakingPool.unstake", update.Unstake, &merged.StakingPool.Unstake, 40, 75},
		{"stakingPool.withdraw", update.Withdraw, &merged.StakingPool.Withdraw, 40, 75},
		{"callbacks.onRunStakeBatch", update.OnRunStakeBatch, &merged.Callbacks.OnRunStakeBatch, 70, 150},
		{"callbacks.onDepositAndStake", update.OnDepositAndStake, &merged.Callbacks.OnDepositAndStake, 5, 10},
		{"callbacks.onUnstake", update.OnUnstake, &merged.Callbacks.OnUnstake, 5, 10},
		{"callbacks.unlock", update.Unlock, &merged.Callbacks.Unlock, 5, 10},
		{"callbacks.onRunRedeemStakeBatch", update.OnRunRedeemStakeBatch, &merged.Callbacks.OnRunRedeemStakeBatch, 70, 100},
		{"callbacks.onRedeemingStakePendingWithdrawal", update.OnRedeemingStakePendingWithdrawal, &merged.Callbacks.OnRedeemingStakePendingWithdrawal, 70, 100},
		{"callbacks.onRedeemingStakePostWithdrawal", update.OnRedeemingStakePostWithdrawal, &merged.Callbacks.OnRedeemingStakePostWithdrawal, 5, 10},
	}
	for _, f := range fields {
		if f.update == nil {
			continue
		}
		if !force && (*f.update < f.min*TGas || *f.update > f.max*TGas) {
			return ErrGasOutOfRange(f.name, *f.update, f.min*TGas, f.max*TGas)
		}
		*f.target = *f.update
	}
	if !force {
		if err := merged.checkChains(); err != nil {
			return err
		}
	}
	*g = merged
	return nil
}

// checkChains() ensures each continuation can pay for the calls it chains plus a 5 TGas margin
func (g *GasConfig) checkChains() ErrorI {
	sp, cb := g.StakingPool, g.Callbacks
	if required := sp.DepositAndStake + cb.OnDepositAndStake + 5*TGas; cb.OnRunStakeBatch < required {
		return ErrGasCrossCheck("callbacks.onRunStakeBatch", cb.OnRunStakeBatch, required)
	}
	if required := sp.Unstake + cb.OnUnstake + 5*TGas; cb.OnRunRedeemStakeBatch < required {
		return ErrGasCrossCheck("callbacks.onRunRedeemStakeBatch", cb.OnRunRedeemStakeBatch, required)
	}
	if required := sp.Withdraw + cb.OnRedeemingStakePostWithdrawal + 5*TGas; cb.OnRedeemingStakePendingWithdrawal < required {
		return ErrGasCrossCheck("callbacks.onRedeemingStakePendingWithdrawal", cb.OnRedeemingStakePendingWithdrawal, required)
	}
	return nil
}

// VENUE CONFIG BELOW

// VenueConfig is the connection to the external staking venue
type VenueConfig struct {
	Url            string `json:"url"`            // the venue's json http endpoint
	AccountId      string `json:"accountId"`      // the engine's account at the venue
	CallTimeoutMS  int    `json:"callTimeoutMS"`  // how long a single venue call may take
	MaxReadRetries uint64 `json:"maxReadRetries"` // retries for idempotent reads (get_account, ping)
	PollIntervalMS int    `json:"pollIntervalMS"` // how often the worker checks for scheduled tasks
}

// DefaultVenueConfig() points at a local venue
func DefaultVenueConfig() VenueConfig {
	return VenueConfig{
		Url:            "http://localhost:3030",
		AccountId:      "stakebatch",
		CallTimeoutMS:  10000,
		MaxReadRetries: 3,
		PollIntervalMS: 500,
	}
}

// CallTimeout() converts the millisecond config into a duration
func (v *VenueConfig) CallTimeout() time.Duration {
	return time.Duration(v.CallTimeoutMS) * time.Millisecond
}

// RPC CONFIG BELOW

type RPCConfig struct {
	RPCPort     string `json:"rpcPort"`     // the port where the rpc server is hosted
	AdminPort   string `json:"adminPort"`   // the port where the admin rpc server is hosted
	RPCUrl      string `json:"rpcURL"`      // the url where the rpc server is hosted
	AdminRPCUrl string `json:"adminRPCUrl"` // the url where the admin rpc server is hosted
	TimeoutS    int    `json:"timeoutS"`    // the rpc request timeout in seconds
	RateLimit   int    `json:"rateLimit"`   // the sustained requests per second each server accepts, 0 is unlimited
	RateBurst   int    `json:"rateBurst"`   // the requests accepted in a burst above the rate limit
}

// DefaultRPCConfig() sets rpc url to localhost and sets the rpc and admin ports
func DefaultRPCConfig() RPCConfig {
	return RPCConfig{
		RPCPort:     "50002",                  // the rpc is served on localhost:50002
		AdminPort:   "50003",                  // the admin rpc is served on localhost:50003
		RPCUrl:      "http://localhost:50002", // use a local rpc by default
		AdminRPCUrl: "http://localhost:50003", // use a local admin rpc by default
		TimeoutS:    3,                        // the rpc timeout is 3 seconds
		RateLimit:   100,                      // 100 requests per second
		RateBurst:   200,                      // bursts of up to 200 requests
	}
}

// STORE CONFIG BELOW

// StoreConfig is user configurations for the key value database
type StoreConfig struct {
	DataDirPath string `json:"dataDirPath"` // path of the designated folder where the application stores its data
	DBName      string `json:"dbName"`      // name of the database
	InMemory    bool   `json:"inMemory"`    // non-disk database, only for testing
}

// DefaultDataDirPath() is $USERHOME/.stakebatch
func DefaultDataDirPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		panic(err)
	}
	return filepath.Join(home, ".stakebatch")
}

// DefaultStoreConfig() returns the developer recommended store configuration
func DefaultStoreConfig() StoreConfig {
	return StoreConfig{
		DataDirPath: DefaultDataDirPath(), // use the default data dir path
		DBName:      "stakebatch",         // 'stakebatch' database name
		InMemory:    false,                // persist to disk, not memory
	}
}

// METRICS CONFIG BELOW

// MetricsConfig represents the configuration for the metrics server
type MetricsConfig struct {
	MetricsEnabled    bool   `json:"metricsEnabled"`    // if the metrics are enabled
	PrometheusAddress string `json:"prometheusAddress"` // the address of the server
}

// DefaultMetricsConfig() returns the default metrics configuration
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		MetricsEnabled:    true,           // enabled by default
		PrometheusAddress: "0.0.0.0:9090", // the default prometheus address
	}
}

// WriteToFile() saves the Config object to a JSON file
func (c Config) WriteToFile(path string) error {
	if err := SaveJSONToFile(c, filepath.Dir(path), filepath.Base(path)); err != nil {
		return err
	}
	return nil
}

// NewConfigFromFile() populates a Config object from a JSON file
func NewConfigFromFile(path string) (Config, error) {
	// define the default config to fill in any blanks in the file
	c := DefaultConfig()
	if err := NewJSONFromFile(&c, filepath.Dir(path), filepath.Base(path)); err != nil {
		return Config{}, err
	}
	return c, nil
}
