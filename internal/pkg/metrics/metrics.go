package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics はアプリケーションのメトリクスを管理する
type Metrics struct {
	// HTTPリクエストの総数（method, path, status_code）
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTPリクエストのレイテンシ（method, path）
	HTTPRequestDuration *prometheus.HistogramVec

	// 台帳操作の総数（operation: reserve/amend/release, result: success/insufficient/conflict/...）
	LedgerOperationsTotal *prometheus.CounterVec

	// 台帳操作の所要時間（operation）
	LedgerOperationDuration *prometheus.HistogramVec

	// 競合による再試行回数（operation）
	LedgerRetriesTotal *prometheus.CounterVec

	// 分散ロックの操作時間（operation: acquire/release, status: success/failed）
	DistributedLockDuration *prometheus.HistogramVec

	// 空席数キャッシュの参照結果（result: hit/miss/error）
	AvailabilityCacheTotal *prometheus.CounterVec

	// 在庫監査で検出したずれ（show_id）。整合していれば 0
	InventoryDrift *prometheus.GaugeVec
}

// New は新しいMetricsインスタンスを作成し、デフォルトレジストリに登録する
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry は指定したレジストリにメトリクスを登録する
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status_code"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		LedgerOperationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_operations_total",
				Help: "Total number of reservation ledger operations by result",
			},
			[]string{"operation", "result"},
		),
		LedgerOperationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ledger_operation_duration_seconds",
				Help:    "Reservation ledger operation latency in seconds, retries included",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
			},
			[]string{"operation"},
		),
		LedgerRetriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_retries_total",
				Help: "Total number of ledger attempts retried after a conflict",
			},
			[]string{"operation"},
		),
		DistributedLockDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "distributed_lock_duration_seconds",
				Help:    "Time spent on distributed lock operations",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"operation", "status"},
		),
		AvailabilityCacheTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "availability_cache_requests_total",
				Help: "Seat availability cache lookups by result",
			},
			[]string{"result"},
		),
		InventoryDrift: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "show_inventory_drift",
				Help: "capacity - seats_available - confirmed seats per show, 0 when consistent",
			},
			[]string{"show_id"},
		),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.LedgerOperationsTotal,
		m.LedgerOperationDuration,
		m.LedgerRetriesTotal,
		m.DistributedLockDuration,
		m.AvailabilityCacheTotal,
		m.InventoryDrift,
	)

	return m
}

// ObserveLedger は台帳操作の結果と所要時間を記録する。m が nil なら何もしない
func (m *Metrics) ObserveLedger(operation, result string, started time.Time) {
	if m == nil {
		return
	}
	m.LedgerOperationsTotal.WithLabelValues(operation, result).Inc()
	m.LedgerOperationDuration.WithLabelValues(operation).Observe(time.Since(started).Seconds())
}

// IncLedgerRetry は再試行を記録する
func (m *Metrics) IncLedgerRetry(operation string) {
	if m == nil {
		return
	}
	m.LedgerRetriesTotal.WithLabelValues(operation).Inc()
}

// ObserveLock は分散ロック操作の所要時間を記録する
func (m *Metrics) ObserveLock(operation string, ok bool, started time.Time) {
	if m == nil {
		return
	}
	status := "success"
	if !ok {
		status = "failed"
	}
	m.DistributedLockDuration.WithLabelValues(operation, status).Observe(time.Since(started).Seconds())
}

// IncCache はキャッシュ参照結果を記録する
func (m *Metrics) IncCache(result string) {
	if m == nil {
		return
	}
	m.AvailabilityCacheTotal.WithLabelValues(result).Inc()
}

// SetInventoryDrift は公演ごとの在庫のずれを記録する
func (m *Metrics) SetInventoryDrift(showID int64, drift int) {
	if m == nil {
		return
	}
	m.InventoryDrift.WithLabelValues(strconv.FormatInt(showID, 10)).Set(float64(drift))
}

// デフォルトのメトリクスインスタンス
var defaultMetrics *Metrics

// Init はデフォルトのメトリクスインスタンスを初期化する
func Init() *Metrics {
	defaultMetrics = New()
	return defaultMetrics
}

// Get はデフォルトのメトリクスインスタンスを返す
func Get() *Metrics {
	return defaultMetrics
}
