package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	MessagesReceivedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bot_messages_received_total",
		Help: "Total number of inbound webhook messages processed",
	})

	RepliesSentTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bot_replies_sent_total",
		Help: "Total number of outbound replies handed to the messenger gateway",
	}, []string{"kind"})

	OutboundSendFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bot_outbound_send_failures_total",
		Help: "Total number of outbound sends that failed after retries",
	})

	OrdersFinalizedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_finalized_total",
		Help: "Total number of carts converted into persisted orders",
	})

	OrdersFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_failed_total",
		Help: "Total number of failed order finalizations",
	}, []string{"reason"})

	OrdersDuplicateFinalize = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_duplicate_finalize_total",
		Help: "Total number of finalize retries answered from the idempotency key",
	})

	DeliverySelectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_delivery_selected_total",
		Help: "Total number of delivery method selections",
	}, []string{"method"})

	BadPriceItemsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bad_price_items_total",
		Help: "Total number of cart items whose price failed numeric coercion",
	})

	SessionUpdateLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "session_update_latency_seconds",
		Help:    "Latency of the per-user session read-modify-write cycle",
		Buckets: prometheus.DefBuckets,
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
