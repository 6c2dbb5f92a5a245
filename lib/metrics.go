package lib

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

/* This file implements dev-ops telemetry for the engine in the form of prometheus metrics */

const metricsPattern = "/metrics"

// Metrics represents a server that exposes Prometheus metrics
type Metrics struct {
	server   *http.Server         // the http prometheus server
	config   MetricsConfig        // the configuration
	registry *prometheus.Registry // the registry every collector below is bound to
	log      LoggerI              // the logger

	NodeMetrics   // general telemetry about the process
	EngineMetrics // settlement engine telemetry
	VenueMetrics  // staking venue telemetry
}

// NodeMetrics represents general telemetry for the process health
type NodeMetrics struct {
	NodeStatus prometheus.Gauge // is the node alive?
}

// EngineMetrics represents the telemetry of the settlement engine
type EngineMetrics struct {
	TotalStakeSupply    prometheus.Gauge       // how many STAKE tokens exist?
	TotalNear           prometheus.Gauge       // how much NEAR is held for accounts?
	NearLiquidityPool   prometheus.Gauge       // how much NEAR is in the liquidity pool?
	CollectedEarnings   prometheus.Gauge       // how much NEAR is waiting to be distributed?
	OwnerBalance        prometheus.Gauge       // how much NEAR is owed to the owner?
	StakeTokenValue     prometheus.Gauge       // how much NEAR is one STAKE worth?
	LockState           *prometheus.GaugeVec   // what state is each side's lock in?
	OpenBatchBalance    *prometheus.GaugeVec   // what is the balance of the open batches?
	RoundsCompleted     *prometheus.CounterVec // how many rounds finished per kind?
	OperationsProcessed *prometheus.CounterVec // how many operations were committed or rejected?
}

// VenueMetrics represents the telemetry of calls to the staking venue
type VenueMetrics struct {
	CallFailures *prometheus.CounterVec   // how many venue calls failed per kind?
	CallLatency  *prometheus.HistogramVec // how long do venue calls take?
}

// EngineTotals is a point in time snapshot of the engine aggregates, amounts in whole tokens
type EngineTotals struct {
	TotalStakeSupply   float64
	TotalNear          float64
	NearLiquidityPool  float64
	CollectedEarnings  float64
	OwnerBalance       float64
	NearPerStake       float64
	StakeLockState     int
	RedeemLockState    int
	StakeBatchBalance  float64
	RedeemBatchBalance float64
}

// NewMetricsServer() creates a new telemetry server with its own registry
func NewMetricsServer(config MetricsConfig, log LoggerI) *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)
	mux := http.NewServeMux()
	mux.Handle(metricsPattern, promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	return &Metrics{
		server:   &http.Server{Addr: config.PrometheusAddress, Handler: mux, ReadHeaderTimeout: 5 * time.Second},
		config:   config,
		registry: registry,
		log:      log,
		NodeMetrics: NodeMetrics{
			NodeStatus: factory.NewGauge(prometheus.GaugeOpts{
				Name: "stakebatch_node_status",
				Help: "The node is alive and processing operations",
			}),
		},
		EngineMetrics: EngineMetrics{
			TotalStakeSupply: factory.NewGauge(prometheus.GaugeOpts{
				Name: "stakebatch_total_stake_supply",
				Help: "Total STAKE supply in whole tokens",
			}),
			TotalNear: factory.NewGauge(prometheus.GaugeOpts{
				Name: "stakebatch_total_near",
				Help: "NEAR held on behalf of accounts in whole tokens",
			}),
			NearLiquidityPool: factory.NewGauge(prometheus.GaugeOpts{
				Name: "stakebatch_near_liquidity_pool",
				Help: "NEAR liquidity pool balance in whole tokens",
			}),
			CollectedEarnings: factory.NewGauge(prometheus.GaugeOpts{
				Name: "stakebatch_collected_earnings",
				Help: "Earnings waiting for the next stake round in whole tokens",
			}),
			OwnerBalance: factory.NewGauge(prometheus.GaugeOpts{
				Name: "stakebatch_owner_balance",
				Help: "Owner earnings balance in whole tokens",
			}),
			StakeTokenValue: factory.NewGauge(prometheus.GaugeOpts{
				Name: "stakebatch_stake_token_value",
				Help: "NEAR value of one STAKE",
			}),
			LockState: factory.NewGaugeVec(prometheus.GaugeOpts{
				Name: "stakebatch_lock_state",
				Help: "Lock state per side (0: None; stake 1: Staking, 2: Staked, 3: Refreshing; redeem 1: Unstaking, 2: PendingWithdrawal)",
			}, []string{"side"}),
			OpenBatchBalance: factory.NewGaugeVec(prometheus.GaugeOpts{
				Name: "stakebatch_open_batch_balance",
				Help: "Balance of the current batch per side in whole tokens",
			}, []string{"side"}),
			RoundsCompleted: factory.NewCounterVec(prometheus.CounterOpts{
				Name: "stakebatch_rounds_completed",
				Help: "Number of completed rounds per kind",
			}, []string{"kind"}),
			OperationsProcessed: factory.NewCounterVec(prometheus.CounterOpts{
				Name: "stakebatch_operations_processed",
				Help: "Number of operations per outcome",
			}, []string{"outcome"}),
		},
		VenueMetrics: VenueMetrics{
			CallFailures: factory.NewCounterVec(prometheus.CounterOpts{
				Name: "stakebatch_venue_call_failures",
				Help: "Number of failed venue calls per call kind",
			}, []string{"call"}),
			CallLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
				Name: "stakebatch_venue_call_latency",
				Help: "Venue call latency in seconds",
			}, []string{"call"}),
		},
	}
}

// Start() starts the telemetry server
func (m *Metrics) Start() {
	// exit if empty
	if m == nil {
		return
	}
	m.NodeStatus.Set(1)
	// if the metrics server is enabled
	if m.config.MetricsEnabled {
		go func() {
			defer CatchPanic(m.log)
			m.log.Infof("Starting metrics server on %s", m.config.PrometheusAddress)
			// run the server
			if err := m.server.ListenAndServe(); err != nil {
				if err != http.ErrServerClosed {
					m.log.Errorf("Metrics server failed with err: %s", err.Error())
				}
			}
		}()
	}
}

// Stop() gracefully stops the telemetry server
func (m *Metrics) Stop() {
	// exit if empty
	if m == nil {
		return
	}
	m.NodeStatus.Set(0)
	// if the metrics server isn't enabled
	if m.config.MetricsEnabled {
		// shutdown the server
		if err := m.server.Shutdown(context.Background()); err != nil {
			m.log.Error(err.Error())
		}
	}
}

// Registry() exposes the collectors for in-process inspection
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// UpdateEngineMetrics() is a setter for the engine aggregates
func (m *Metrics) UpdateEngineMetrics(t EngineTotals) {
	// exit if empty
	if m == nil {
		return
	}
	m.TotalStakeSupply.Set(t.TotalStakeSupply)
	m.TotalNear.Set(t.TotalNear)
	m.NearLiquidityPool.Set(t.NearLiquidityPool)
	m.CollectedEarnings.Set(t.CollectedEarnings)
	m.OwnerBalance.Set(t.OwnerBalance)
	m.StakeTokenValue.Set(t.NearPerStake)
	m.LockState.WithLabelValues("stake").Set(float64(t.StakeLockState))
	m.LockState.WithLabelValues("redeem").Set(float64(t.RedeemLockState))
	m.OpenBatchBalance.WithLabelValues("stake").Set(t.StakeBatchBalance)
	m.OpenBatchBalance.WithLabelValues("redeem").Set(t.RedeemBatchBalance)
}

// RoundCompleted() counts a finished round of the given kind
func (m *Metrics) RoundCompleted(kind string) {
	// exit if empty
	if m == nil {
		return
	}
	m.RoundsCompleted.WithLabelValues(kind).Inc()
}

// OperationProcessed() counts a committed or rejected operation
func (m *Metrics) OperationProcessed(committed bool) {
	// exit if empty
	if m == nil {
		return
	}
	if committed {
		m.OperationsProcessed.WithLabelValues("committed").Inc()
	} else {
		m.OperationsProcessed.WithLabelValues("rejected").Inc()
	}
}

// ObserveVenueCall() records the latency and outcome of a venue call
func (m *Metrics) ObserveVenueCall(call string, duration time.Duration, failed bool) {
	// exit if empty
	if m == nil {
		return
	}
	m.CallLatency.WithLabelValues(call).Observe(duration.Seconds())
	if failed {
		m.CallFailures.WithLabelValues(call).Inc()
	}
}
