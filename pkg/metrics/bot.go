package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// BotMetrics covers the conversational and payment flow.
type BotMetrics struct {
	inbound     *prometheus.CounterVec
	transitions *prometheus.CounterVec
	payments    *prometheus.CounterVec
	outbound    *prometheus.CounterVec
	duplicates  *prometheus.CounterVec
}

func NewBotMetrics(reg prometheus.Registerer) *BotMetrics {
	if reg == nil {
		return &BotMetrics{}
	}
	m := &BotMetrics{
		inbound: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "inbound_events_total",
			Help:      "Inbound chat events by kind.",
		}, []string{"kind"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "conversation_transitions_total",
			Help:      "Conversation state transitions.",
		}, []string{"from", "to"}),
		payments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_events_total",
			Help:      "Payment initiations and reconciliation outcomes.",
		}, []string{"stage", "outcome"}),
		outbound: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbound_messages_total",
			Help:      "Outbound notifications by channel and result.",
		}, []string{"channel", "result"}),
		duplicates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "duplicate_webhooks_total",
			Help:      "Webhook deliveries dropped as already processed.",
		}, []string{"source"}),
	}
	reg.MustRegister(m.inbound, m.transitions, m.payments, m.outbound, m.duplicates)
	return m
}

func (m *BotMetrics) Inbound(kind string) {
	if m == nil || m.inbound == nil {
		return
	}
	m.inbound.WithLabelValues(normalizeLabel(kind)).Inc()
}

func (m *BotMetrics) Transition(from, to string) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(normalizeLabel(from), normalizeLabel(to)).Inc()
}

func (m *BotMetrics) Payment(stage, outcome string) {
	if m == nil || m.payments == nil {
		return
	}
	m.payments.WithLabelValues(normalizeLabel(stage), normalizeLabel(outcome)).Inc()
}

func (m *BotMetrics) Outbound(channel string, err error) {
	if m == nil || m.outbound == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.outbound.WithLabelValues(normalizeLabel(channel), result).Inc()
}

func (m *BotMetrics) Duplicate(source string) {
	if m == nil || m.duplicates == nil {
		return
	}
	m.duplicates.WithLabelValues(normalizeLabel(source)).Inc()
}
