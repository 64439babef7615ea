package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var GatewayRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "paycore",
	Subsystem: "gateway",
	Name:      "requests_total",
	Help:      "Outbound gateway API calls by operation and outcome",
}, []string{"operation", "outcome"})

var TokenFetches = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "paycore",
	Subsystem: "gateway",
	Name:      "token_fetches_total",
	Help:      "Client-credentials exchanges by outcome",
}, []string{"outcome"})

var SimulatedPayments = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "paycore",
	Subsystem: "payments",
	Name:      "simulated_total",
	Help:      "Payments served by the local simulator",
})

var StatusTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "paycore",
	Subsystem: "payments",
	Name:      "status_transitions_total",
	Help:      "Applied transaction status transitions by target status and source",
}, []string{"status", "source"})

var WebhookDeliveries = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "paycore",
	Subsystem: "webhooks",
	Name:      "deliveries_total",
	Help:      "Outbound tenant webhook deliveries by event and outcome",
}, []string{"event", "outcome"})

var InboundWebhooks = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "paycore",
	Subsystem: "webhooks",
	Name:      "inbound_total",
	Help:      "Inbound provider webhooks by provider and outcome",
}, []string{"provider", "outcome"})

var ReconcileAdopted = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "paycore",
	Subsystem: "reconcile",
	Name:      "adopted_total",
	Help:      "Remote objects adopted into local storage by kind",
}, []string{"kind"})

var MirrorFailures = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "paycore",
	Subsystem: "reconcile",
	Name:      "mirror_failures_total",
	Help:      "Remote objects created without a local mirror row",
}, []string{"kind"})
