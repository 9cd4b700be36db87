package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all custom Prometheus metrics for the application
type Metrics struct {
	ChatsCreated   prometheus.Counter
	ChatsCompleted prometheus.Counter
	ChatsErrored   prometheus.Counter
	QuotaRejected  prometheus.Counter
	EmailsSent     prometheus.Counter

	ProviderCalls *prometheus.CounterVec
}

var globalMetrics *Metrics

// InitMetrics initializes the Prometheus metrics
func InitMetrics() *Metrics {
	metrics := &Metrics{
		ChatsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "researchdesk_chats_created_total",
			Help: "Total number of chats created",
		}),
		ChatsCompleted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "researchdesk_chats_completed_total",
			Help: "Total number of chats that produced a research report",
		}),
		ChatsErrored: promauto.NewCounter(prometheus.CounterOpts{
			Name: "researchdesk_chats_errored_total",
			Help: "Total number of chats that ended in the error state",
		}),
		QuotaRejected: promauto.NewCounter(prometheus.CounterOpts{
			Name: "researchdesk_quota_rejections_total",
			Help: "Total number of chat creations rejected by the daily limit",
		}),
		EmailsSent: promauto.NewCounter(prometheus.CounterOpts{
			Name: "researchdesk_emails_sent_total",
			Help: "Total number of research report emails sent",
		}),
		ProviderCalls: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "researchdesk_provider_calls_total",
			Help: "Total research provider calls by provider and outcome",
		}, []string{"provider", "outcome"}),
	}

	globalMetrics = metrics
	return metrics
}

// GetMetrics returns the global metrics instance
func GetMetrics() *Metrics {
	return globalMetrics
}

// ObserveProviderCall records one provider call outcome
func (m *Metrics) ObserveProviderCall(provider string, success bool) {
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	m.ProviderCalls.WithLabelValues(provider, outcome).Inc()
}
