package bot

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the bot's Prometheus collectors.
type Metrics struct {
	UpdatesProcessed     prometheus.Counter
	CommandsProcessed    *prometheus.CounterVec
	Downloads            *prometheus.CounterVec
	DownloadDuration     prometheus.Histogram
	DownloadsInFlight    prometheus.Gauge
	BroadcastMessages    *prometheus.CounterVec
	MembershipBlocks     prometheus.Counter
	ErrorsTotal          prometheus.Counter
	UsersTotal           prometheus.Gauge
	UpdateProcessingTime prometheus.Histogram
}

// NewMetrics registers the collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		UpdatesProcessed: factory.NewCounter(prometheus.CounterOpts{
			Name: "scdl_bot_updates_processed_total",
			Help: "Total number of processed updates",
		}),

		CommandsProcessed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "scdl_bot_commands_processed_total",
			Help: "Total number of processed commands by name",
		}, []string{"command"}),

		Downloads: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "scdl_bot_downloads_total",
			Help: "Download requests by outcome",
		}, []string{"outcome"}),

		DownloadDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "scdl_bot_download_duration_seconds",
			Help:    "Time spent extracting audio",
			Buckets: []float64{1, 2.5, 5, 10, 20, 40, 80, 160},
		}),

		DownloadsInFlight: factory.NewGauge(prometheus.GaugeOpts{
			Name: "scdl_bot_downloads_in_flight",
			Help: "Downloads currently running",
		}),

		BroadcastMessages: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "scdl_bot_broadcast_messages_total",
			Help: "Broadcast deliveries by outcome",
		}, []string{"outcome"}),

		MembershipBlocks: factory.NewCounter(prometheus.CounterOpts{
			Name: "scdl_bot_membership_blocks_total",
			Help: "Requests stopped by the sponsor channel gate",
		}),

		ErrorsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "scdl_bot_errors_total",
			Help: "Total number of handler errors",
		}),

		UsersTotal: factory.NewGauge(prometheus.GaugeOpts{
			Name: "scdl_bot_users_total",
			Help: "Registered users",
		}),

		UpdateProcessingTime: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "scdl_bot_update_processing_time_seconds",
			Help:    "Time spent processing updates",
			Buckets: prometheus.DefBuckets,
		}),
	}
}
