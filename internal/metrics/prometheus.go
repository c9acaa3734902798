package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Worker metrics
	WorkerExecutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vetml_worker_executions_total",
			Help: "Total number of worker executions",
		},
		[]string{"worker", "status"}, // status: success|error
	)

	WorkerDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vetml_worker_duration_seconds",
			Help:    "Worker execution duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"worker"},
	)

	WorkerLastRun = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "vetml_worker_last_run_timestamp",
			Help: "Unix timestamp of last worker execution",
		},
		[]string{"worker"},
	)

	// Prediction metrics
	PredictionRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vetml_prediction_requests_total",
			Help: "Total number of prediction requests",
		},
		[]string{"species", "status"}, // status: success|unsupported|unregistered|error
	)

	PredictionLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vetml_prediction_latency_seconds",
			Help:    "End-to-end prediction latency in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"species"},
	)

	TierServed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vetml_prediction_tier_served_total",
			Help: "Predictions by fallback tier that produced them",
		},
		[]string{"species", "tier"}, // tier: composite|estimator|heuristic
	)

	InferenceFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vetml_inference_failures_total",
			Help: "Inference attempts that failed and advanced to the next tier",
		},
		[]string{"species", "tier"},
	)

	MissingFeatures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vetml_missing_features_total",
			Help: "Schema features synthesized because engineering did not produce them",
		},
		[]string{"species"},
	)

	// Registry metrics
	ModelsRegistered = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "vetml_models_registered",
			Help: "Number of species with a registered model",
		},
	)

	RegistryReloads = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vetml_registry_reloads_total",
			Help: "Total number of registry reloads",
		},
		[]string{"status"}, // status: success|error
	)

	// Transport metrics
	WebSocketConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "vetml_websocket_connections",
			Help: "Current number of active WebSocket connections",
		},
	)

	WebSocketMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vetml_websocket_messages_total",
			Help: "Total WebSocket messages handled",
		},
		[]string{"type", "status"}, // status: ok|rate_limited|error or the domain error code
	)

	// System metrics
	KafkaMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vetml_kafka_messages_total",
			Help: "Total Kafka messages produced and consumed",
		},
		[]string{"topic", "status"}, // status: published|consumed|error|encode_error|handler_error
	)

	ReportStoreOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vetml_report_store_operations_total",
			Help: "Report store operations",
		},
		[]string{"backend", "operation", "status"}, // backend: redis|memory, status: ok|not_found|error
	)
)

// Init registers all metrics with Prometheus
func Init() {
	// Worker metrics
	prometheus.MustRegister(WorkerExecutions)
	prometheus.MustRegister(WorkerDuration)
	prometheus.MustRegister(WorkerLastRun)

	// Prediction metrics
	prometheus.MustRegister(PredictionRequests)
	prometheus.MustRegister(PredictionLatency)
	prometheus.MustRegister(TierServed)
	prometheus.MustRegister(InferenceFailures)
	prometheus.MustRegister(MissingFeatures)

	// Registry metrics
	prometheus.MustRegister(ModelsRegistered)
	prometheus.MustRegister(RegistryReloads)

	// Transport metrics
	prometheus.MustRegister(WebSocketConnections)
	prometheus.MustRegister(WebSocketMessages)

	// System metrics
	prometheus.MustRegister(KafkaMessages)
	prometheus.MustRegister(ReportStoreOps)
}

// Handler returns Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// RecordWorkerExecution records a worker execution
func RecordWorkerExecution(worker string, duration time.Duration, err error) {
	WorkerExecutions.WithLabelValues(worker, status(err)).Inc()
	WorkerDuration.WithLabelValues(worker).Observe(duration.Seconds())
	WorkerLastRun.WithLabelValues(worker).SetToCurrentTime()
}

// RecordPrediction records a finished prediction request
func RecordPrediction(species, outcome string, latency time.Duration) {
	PredictionRequests.WithLabelValues(species, outcome).Inc()
	PredictionLatency.WithLabelValues(species).Observe(latency.Seconds())
}

// RecordTier records which fallback tier served a prediction
func RecordTier(species, tier string) {
	TierServed.WithLabelValues(species, tier).Inc()
}

// RecordInferenceFailure records a failed tier attempt
func RecordInferenceFailure(species, tier string) {
	InferenceFailures.WithLabelValues(species, tier).Inc()
}

// RecordMissingFeatures records features synthesized by the reconciler
func RecordMissingFeatures(species string, n int) {
	MissingFeatures.WithLabelValues(species).Add(float64(n))
}

// RecordRegistryReload records a registry rebuild
func RecordRegistryReload(registered int, err error) {
	RegistryReloads.WithLabelValues(status(err)).Inc()
	if err == nil {
		ModelsRegistered.Set(float64(registered))
	}
}

// RecordWebSocketMessage records a handled WebSocket message
func RecordWebSocketMessage(msgType, outcome string) {
	WebSocketMessages.WithLabelValues(msgType, outcome).Inc()
}

// RecordKafkaMessage records a produced or consumed Kafka message
func RecordKafkaMessage(topic, outcome string) {
	KafkaMessages.WithLabelValues(topic, outcome).Inc()
}

// RecordReportStoreOp records a report store call
func RecordReportStoreOp(backend, operation, outcome string) {
	ReportStoreOps.WithLabelValues(backend, operation, outcome).Inc()
}
