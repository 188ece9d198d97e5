// 本文件用于 Prometheus 指标测试 保障指标文本格式与核心字段可用

package metrics

import (
	"strings"
	"testing"
	"time"
)

func TestCollectorRenderPrometheus(t *testing.T) {
	collector := NewCollector()

	collector.ObserveRequest(false)
	collector.ObserveRequest(true)
	collector.IncMalformed()
	collector.IncFailover()
	collector.SetWindow(20, 1, 5, true)
	collector.SetActivePool("green")
	collector.ObserveAlert("failover", "sent")
	collector.ObserveAlert("error_rate", "suppressed")
	collector.ObserveDelivery(120 * time.Millisecond)

	out := collector.RenderPrometheus()

	mustContain := []string{
		"pw_requests_total 2",
		"pw_upstream_errors_total 1",
		"pw_malformed_lines_total 1",
		"pw_failovers_total 1",
		"pw_window_length 20",
		"pw_window_errors 1",
		"pw_window_error_rate_percent 5",
		`pw_active_pool{pool="green"} 1`,
		`pw_alerts_total{kind="failover",status="sent"} 1`,
		`pw_alerts_total{kind="error_rate",status="suppressed"} 1`,
		`pw_alert_delivery_seconds_bucket{le="0.25"} 1`,
		"pw_alert_delivery_seconds_count 1",
	}
	for _, token := range mustContain {
		if !strings.Contains(out, token) {
			t.Fatalf("prometheus output missing token %q\noutput:\n%s", token, out)
		}
	}
}

func TestCollectorRenderPrometheus_HidesRateUntilReady(t *testing.T) {
	collector := NewCollector()
	collector.SetWindow(5, 5, 0, false)

	out := collector.RenderPrometheus()
	if strings.Contains(out, "pw_window_error_rate_percent") {
		t.Fatalf("error rate must not be exported before the window is ready\noutput:\n%s", out)
	}
	if strings.Contains(out, "pw_active_pool") {
		t.Fatalf("active pool must not be exported before first observation\noutput:\n%s", out)
	}
}

func TestCollectorSnapshot(t *testing.T) {
	collector := NewCollector()
	collector.SetState("tailing")
	collector.ObserveRequest(true)
	collector.SetWindow(1, 1, 0, false)
	collector.SetActivePool("blue")

	snap := collector.Snapshot()
	if snap.State != "tailing" || snap.TotalRequests != 1 || snap.TotalErrors != 1 {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
	if snap.ActivePool != "blue" || snap.WindowLength != 1 || snap.WindowReady {
		t.Fatalf("unexpected window snapshot: %+v", snap)
	}
}

func TestNilCollectorIsSafe(t *testing.T) {
	var collector *Collector
	collector.ObserveRequest(true)
	collector.ObserveAlert("failover", "sent")
	if collector.RenderPrometheus() != "" {
		t.Fatal("nil collector should render nothing")
	}
}
