// 本文件用于 Prometheus 指标聚合与导出 采集循环只写 状态接口只读

package metrics

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"pool-watch/internal/models"
)

// Collector 聚合运行期指标，并以 Prometheus 文本格式输出。
type Collector struct {
	requestsTotal       atomic.Uint64
	upstreamErrorsTotal atomic.Uint64
	malformedLinesTotal atomic.Uint64
	failoversTotal      atomic.Uint64

	windowLength atomic.Int64
	windowErrors atomic.Int64
	windowRate   atomic.Uint64 // math.Float64bits
	windowReady  atomic.Bool

	mu               sync.RWMutex
	state            string
	activePool       string
	alertsByOutcome  map[alertKey]uint64
	deliveryDuration *histogram
}

type alertKey struct {
	kind   string
	status string
}

type histogram struct {
	buckets []float64
	counts  []uint64 // 累计桶计数
	count   uint64
	sum     float64
}

// NewCollector 创建指标收集器。
func NewCollector() *Collector {
	return &Collector{
		state:            "waiting",
		alertsByOutcome:  make(map[alertKey]uint64),
		deliveryDuration: newHistogram([]float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10}),
	}
}

func newHistogram(buckets []float64) *histogram {
	clean := make([]float64, 0, len(buckets))
	for _, bucket := range buckets {
		if bucket <= 0 {
			continue
		}
		clean = append(clean, bucket)
	}
	sort.Float64s(clean)
	return &histogram{
		buckets: clean,
		counts:  make([]uint64, len(clean)),
	}
}

func (h *histogram) observe(v float64) {
	if h == nil {
		return
	}
	for idx, bound := range h.buckets {
		if v <= bound {
			h.counts[idx]++
		}
	}
	h.count++
	h.sum += v
}

func (h *histogram) writePrometheus(builder *strings.Builder, metric string, labels map[string]string) {
	if h == nil {
		return
	}
	for idx, bound := range h.buckets {
		bucketLabels := mergeLabels(labels, map[string]string{
			"le": trimFloat(bound),
		})
		builder.WriteString(metric)
		builder.WriteString("_bucket")
		writeLabels(builder, bucketLabels)
		builder.WriteByte(' ')
		builder.WriteString(strconv.FormatUint(h.counts[idx], 10))
		builder.WriteByte('\n')
	}
	infLabels := mergeLabels(labels, map[string]string{
		"le": "+Inf",
	})
	builder.WriteString(metric)
	builder.WriteString("_bucket")
	writeLabels(builder, infLabels)
	builder.WriteByte(' ')
	builder.WriteString(strconv.FormatUint(h.count, 10))
	builder.WriteByte('\n')

	builder.WriteString(metric)
	builder.WriteString("_sum")
	writeLabels(builder, labels)
	builder.WriteByte(' ')
	builder.WriteString(trimFloat(h.sum))
	builder.WriteByte('\n')

	builder.WriteString(metric)
	builder.WriteString("_count")
	writeLabels(builder, labels)
	builder.WriteByte(' ')
	builder.WriteString(strconv.FormatUint(h.count, 10))
	builder.WriteByte('\n')
}

// ObserveRequest 记录一条已解析的请求。
func (c *Collector) ObserveRequest(hadError bool) {
	if c == nil {
		return
	}
	c.requestsTotal.Add(1)
	if hadError {
		c.upstreamErrorsTotal.Add(1)
	}
}

// IncMalformed 记录一条无法解析的日志行。
func (c *Collector) IncMalformed() {
	if c == nil {
		return
	}
	c.malformedLinesTotal.Add(1)
}

// IncFailover 记录一次 pool 切换。
func (c *Collector) IncFailover() {
	if c == nil {
		return
	}
	c.failoversTotal.Add(1)
}

// SetWindow 刷新滑动窗口状态。
func (c *Collector) SetWindow(length, errors int, rate float64, ready bool) {
	if c == nil {
		return
	}
	c.windowLength.Store(int64(length))
	c.windowErrors.Store(int64(errors))
	c.windowRate.Store(math.Float64bits(rate))
	c.windowReady.Store(ready)
}

// SetActivePool 记录当前活跃 pool。
func (c *Collector) SetActivePool(pool string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.activePool = pool
	c.mu.Unlock()
}

// SetState 记录采集循环所处阶段。
func (c *Collector) SetState(state string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.state = state
	c.mu.Unlock()
}

// State 返回采集循环所处阶段。
func (c *Collector) State() string {
	if c == nil {
		return ""
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// ObserveAlert 记录一次告警决策。
func (c *Collector) ObserveAlert(kind, status string) {
	if c == nil {
		return
	}
	key := alertKey{kind: normalizeMetricLabel(kind), status: normalizeMetricLabel(status)}
	c.mu.Lock()
	c.alertsByOutcome[key]++
	c.mu.Unlock()
}

// ObserveDelivery 记录一次 webhook 投递耗时。
func (c *Collector) ObserveDelivery(latency time.Duration) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.deliveryDuration.observe(latency.Seconds())
	c.mu.Unlock()
}

// Snapshot 返回计数快照 供状态接口输出。
func (c *Collector) Snapshot() models.StatsSnapshot {
	if c == nil {
		return models.StatsSnapshot{}
	}
	c.mu.RLock()
	state := c.state
	pool := c.activePool
	c.mu.RUnlock()
	return models.StatsSnapshot{
		State:          state,
		TotalRequests:  c.requestsTotal.Load(),
		TotalErrors:    c.upstreamErrorsTotal.Load(),
		MalformedLines: c.malformedLinesTotal.Load(),
		WindowLength:   int(c.windowLength.Load()),
		WindowErrors:   int(c.windowErrors.Load()),
		WindowRate:     math.Float64frombits(c.windowRate.Load()),
		WindowReady:    c.windowReady.Load(),
		ActivePool:     pool,
		Failovers:      c.failoversTotal.Load(),
	}
}

// RenderPrometheus 以 text exposition 格式导出指标。
func (c *Collector) RenderPrometheus() string {
	if c == nil {
		return ""
	}
	builder := strings.Builder{}
	builder.Grow(2048)

	writeMetricHeader(&builder, "pw_requests_total", "counter", "Total parsed access log requests.")
	writeCounter(&builder, "pw_requests_total", c.requestsTotal.Load(), nil)

	writeMetricHeader(&builder, "pw_upstream_errors_total", "counter", "Total requests with at least one 5xx upstream attempt.")
	writeCounter(&builder, "pw_upstream_errors_total", c.upstreamErrorsTotal.Load(), nil)

	writeMetricHeader(&builder, "pw_malformed_lines_total", "counter", "Total access log lines skipped as malformed.")
	writeCounter(&builder, "pw_malformed_lines_total", c.malformedLinesTotal.Load(), nil)

	writeMetricHeader(&builder, "pw_failovers_total", "counter", "Total observed pool transitions.")
	writeCounter(&builder, "pw_failovers_total", c.failoversTotal.Load(), nil)

	writeMetricHeader(&builder, "pw_window_length", "gauge", "Current sliding window sample count.")
	writeGaugeInt(&builder, "pw_window_length", c.windowLength.Load(), nil)

	writeMetricHeader(&builder, "pw_window_errors", "gauge", "Requests with upstream errors inside the sliding window.")
	writeGaugeInt(&builder, "pw_window_errors", c.windowErrors.Load(), nil)

	// 样本不足时不输出错误率 避免把未定义值当成 0
	if c.windowReady.Load() {
		writeMetricHeader(&builder, "pw_window_error_rate_percent", "gauge", "Upstream error rate over the sliding window.")
		writeGaugeFloat(&builder, "pw_window_error_rate_percent", math.Float64frombits(c.windowRate.Load()), nil)
	}

	alerts := make(map[alertKey]uint64)
	var deliveryCopy histogram
	c.mu.RLock()
	pool := c.activePool
	for key, count := range c.alertsByOutcome {
		alerts[key] = count
	}
	deliveryCopy = cloneHistogram(c.deliveryDuration)
	c.mu.RUnlock()

	if pool != "" {
		writeMetricHeader(&builder, "pw_active_pool", "gauge", "Pool currently serving traffic.")
		writeGaugeInt(&builder, "pw_active_pool", 1, map[string]string{"pool": pool})
	}

	writeMetricHeader(&builder, "pw_alerts_total", "counter", "Alert decisions grouped by kind and status.")
	keys := make([]alertKey, 0, len(alerts))
	for key := range alerts {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].kind != keys[j].kind {
			return keys[i].kind < keys[j].kind
		}
		return keys[i].status < keys[j].status
	})
	for _, key := range keys {
		writeCounter(&builder, "pw_alerts_total", alerts[key], map[string]string{
			"kind":   key.kind,
			"status": key.status,
		})
	}

	writeMetricHeader(&builder, "pw_alert_delivery_seconds", "histogram", "Webhook delivery latency distribution in seconds.")
	deliveryCopy.writePrometheus(&builder, "pw_alert_delivery_seconds", nil)

	return builder.String()
}

func cloneHistogram(h *histogram) histogram {
	if h == nil {
		return histogram{}
	}
	copyHist := histogram{
		buckets: append([]float64(nil), h.buckets...),
		counts:  append([]uint64(nil), h.counts...),
		count:   h.count,
		sum:     h.sum,
	}
	return copyHist
}

func writeMetricHeader(builder *strings.Builder, metric, metricType, help string) {
	builder.WriteString("# HELP ")
	builder.WriteString(metric)
	builder.WriteByte(' ')
	builder.WriteString(help)
	builder.WriteByte('\n')
	builder.WriteString("# TYPE ")
	builder.WriteString(metric)
	builder.WriteByte(' ')
	builder.WriteString(metricType)
	builder.WriteByte('\n')
}

func writeCounter(builder *strings.Builder, metric string, value uint64, labels map[string]string) {
	builder.WriteString(metric)
	writeLabels(builder, labels)
	builder.WriteByte(' ')
	builder.WriteString(strconv.FormatUint(value, 10))
	builder.WriteByte('\n')
}

func writeGaugeInt(builder *strings.Builder, metric string, value int64, labels map[string]string) {
	builder.WriteString(metric)
	writeLabels(builder, labels)
	builder.WriteByte(' ')
	builder.WriteString(strconv.FormatInt(value, 10))
	builder.WriteByte('\n')
}

func writeGaugeFloat(builder *strings.Builder, metric string, value float64, labels map[string]string) {
	builder.WriteString(metric)
	writeLabels(builder, labels)
	builder.WriteByte(' ')
	builder.WriteString(trimFloat(value))
	builder.WriteByte('\n')
}

func writeLabels(builder *strings.Builder, labels map[string]string) {
	if len(labels) == 0 {
		return
	}
	keys := make([]string, 0, len(labels))
	for key := range labels {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	builder.WriteByte('{')
	for idx, key := range keys {
		if idx > 0 {
			builder.WriteByte(',')
		}
		builder.WriteString(key)
		builder.WriteString("=\"")
		builder.WriteString(escapeLabelValue(labels[key]))
		builder.WriteByte('"')
	}
	builder.WriteByte('}')
}

func mergeLabels(base, ext map[string]string) map[string]string {
	if len(base) == 0 && len(ext) == 0 {
		return nil
	}
	merged := make(map[string]string, len(base)+len(ext))
	for key, value := range base {
		merged[key] = value
	}
	for key, value := range ext {
		merged[key] = value
	}
	return merged
}

func normalizeMetricLabel(value string) string {
	clean := strings.TrimSpace(strings.ToLower(value))
	if clean == "" {
		return "unknown"
	}
	clean = strings.Join(strings.Fields(clean), " ")
	if len(clean) > 120 {
		clean = clean[:120]
	}
	return clean
}

func escapeLabelValue(value string) string {
	replacer := strings.NewReplacer(
		`\`, `\\`,
		`"`, `\"`,
		"\n", `\n`,
	)
	return replacer.Replace(value)
}

func trimFloat(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}
