// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// 結果ラベルの値。
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// MetricsCollector はメトリクス収集のインターフェース。
// ゲートウェイ、ミラー、セッションバインダーから利用する。
type MetricsCollector interface {
	RecordOperation(operation, result string, duration time.Duration)
	RecordMirrorWrite(result string)
	RecordTokenRefresh(result string)
	RecordHTTPStatus(statusCode int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	operations    *prometheus.CounterVec
	operationTime *prometheus.HistogramVec
	mirrorWrites  *prometheus.CounterVec
	tokenRefresh  *prometheus.CounterVec
	httpStatus    *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "drivegate_operations_total",
			Help: "ゲートウェイ操作の結果別の合計数",
		}, []string{"operation", "result"}),
		operationTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "drivegate_operation_duration_seconds",
			Help:    "ゲートウェイ操作の所要時間（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		mirrorWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "drivegate_mirror_writes_total",
			Help: "ミラー書き込みの結果別の合計数",
		}, []string{"result"}),
		tokenRefresh: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "drivegate_token_refresh_total",
			Help: "リフレッシュされたトークンの再保存の結果別の合計数",
		}, []string{"result"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "drivegate_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
	}

	reg.MustRegister(
		c.operations,
		c.operationTime,
		c.mirrorWrites,
		c.tokenRefresh,
		c.httpStatus,
	)

	return c
}

// RecordOperation は操作の結果と所要時間を記録する。
func (c *Collector) RecordOperation(operation, result string, duration time.Duration) {
	c.operations.WithLabelValues(operation, result).Inc()
	c.operationTime.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordMirrorWrite はミラー書き込みの結果を記録する。
func (c *Collector) RecordMirrorWrite(result string) {
	c.mirrorWrites.WithLabelValues(result).Inc()
}

// RecordTokenRefresh はトークン再保存の結果を記録する。
func (c *Collector) RecordTokenRefresh(result string) {
	c.tokenRefresh.WithLabelValues(result).Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// NopCollector は何も記録しないMetricsCollector。
type NopCollector struct{}

func (NopCollector) RecordOperation(string, string, time.Duration) {}
func (NopCollector) RecordMirrorWrite(string)                      {}
func (NopCollector) RecordTokenRefresh(string)                     {}
func (NopCollector) RecordHTTPStatus(int)                          {}

// ResultOf はエラーの有無を結果ラベルに変換する。
func ResultOf(err error) string {
	if err != nil {
		return ResultFailure
	}
	return ResultSuccess
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
// Prometheusスクレイプに対応する。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}

// compile-time interface check
var (
	_ MetricsCollector = (*Collector)(nil)
	_ MetricsCollector = NopCollector{}
)
