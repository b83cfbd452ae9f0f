package metrics

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestCronJobMetricsExportsCountersAndHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewCronJobMetrics(reg)
	job := "delivery-tracking"
	metrics.ObserveDuration(job, 250*time.Millisecond)
	metrics.IncSuccess(job)
	metrics.IncFailure(job)
	metrics.IncFailure(job)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "kwetupizza_cron_job_runs_total", map[string]string{"job": job, "result": "success"}); err != nil {
		t.Fatalf("fetch success: %v", err)
	} else if got != 1 {
		t.Fatalf("expected success=1, got %f", got)
	}
	if got, err := fetchCounterValue(mfs, "kwetupizza_cron_job_runs_total", map[string]string{"job": job, "result": "failure"}); err != nil {
		t.Fatalf("fetch failure: %v", err)
	} else if got != 2 {
		t.Fatalf("expected failure=2, got %f", got)
	}

	mf := findMetricFamily(mfs, "kwetupizza_cron_job_duration_seconds")
	if mf == nil || len(mf.GetMetric()) != 1 || mf.GetMetric()[0].GetHistogram().GetSampleSum() <= 0 {
		t.Fatalf("expected one populated duration histogram, got %v", mf)
	}
}

func TestBotMetricsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewBotMetrics(reg)
	m.Inbound("text")
	m.Inbound("text")
	m.Transition("quantity", "add_or_checkout")
	m.Payment("reconcile", "successful")
	m.Outbound("whatsapp", nil)
	m.Outbound("sms", errors.New("down"))
	m.Duplicate("flutterwave")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	cases := []struct {
		name   string
		labels map[string]string
		want   float64
	}{
		{"kwetupizza_inbound_events_total", map[string]string{"kind": "text"}, 2},
		{"kwetupizza_conversation_transitions_total", map[string]string{"from": "quantity", "to": "add_or_checkout"}, 1},
		{"kwetupizza_payment_events_total", map[string]string{"stage": "reconcile", "outcome": "successful"}, 1},
		{"kwetupizza_outbound_messages_total", map[string]string{"channel": "sms", "result": "error"}, 1},
		{"kwetupizza_duplicate_webhooks_total", map[string]string{"source": "flutterwave"}, 1},
	}
	for _, tc := range cases {
		got, err := fetchCounterValue(mfs, tc.name, tc.labels)
		if err != nil {
			t.Fatalf("%s: %v", tc.name, err)
		}
		if got != tc.want {
			t.Fatalf("%s expected %v got %v", tc.name, tc.want, got)
		}
	}
}

func TestNilRegistererIsNoop(t *testing.T) {
	var bot *BotMetrics
	bot.Inbound("text")
	NewBotMetrics(nil).Payment("charge", "accepted")
	NewCronJobMetrics(nil).IncSuccess("job")
}

func fetchCounterValue(mfs []*dto.MetricFamily, name string, labels map[string]string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabels(metric.GetLabel(), labels) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("metric %q missing labels %v", name, labels)
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabels(pairs []*dto.LabelPair, want map[string]string) bool {
	matched := 0
	for _, pair := range pairs {
		if v, ok := want[pair.GetName()]; ok && v == pair.GetValue() {
			matched++
		}
	}
	return matched == len(want)
}
