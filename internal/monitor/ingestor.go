// 本文件用于访问日志采集主循环 串联解析 窗口统计 切换识别与告警
package monitor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"pool-watch/internal/accesslog"
	"pool-watch/internal/alert"
	"pool-watch/internal/logger"
	"pool-watch/internal/metrics"
	"pool-watch/internal/models"
)

const statsEvery = 100

// 采集器运行状态
const (
	StateWaiting = "waiting"
	StateTailing = "tailing"
	StateStopped = "stopped"
)

// Dispatcher 表示告警出口
type Dispatcher interface {
	Dispatch(ctx context.Context, a alert.Alert) alert.Decision
}

// Stats 表示采集累计计数
type Stats struct {
	TotalRequests  uint64
	TotalErrors    uint64
	MalformedLines uint64
	WindowLength   int
	WindowErrors   int
	ActivePool     string
}

// IngestorOptions 表示 Ingestor 的依赖
type IngestorOptions struct {
	Config     *models.Config
	Tailer     *Tailer
	Dispatcher Dispatcher
	Metrics    *metrics.Collector
	Logger     *logger.Logger
}

// Ingestor 单协程消费日志行 所有检测状态只在 Run 所在协程修改
type Ingestor struct {
	tailer     *Tailer
	dispatcher Dispatcher
	metrics    *metrics.Collector
	log        *logger.Logger
	threshold  float64

	parser  accesslog.Parser
	window  *ErrorWindow
	tracker FailoverTracker

	totalRequests  uint64
	totalErrors    uint64
	malformedLines uint64
}

// NewIngestor 创建采集器
func NewIngestor(opts IngestorOptions) (*Ingestor, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("配置不能为空")
	}
	if opts.Dispatcher == nil {
		return nil, fmt.Errorf("告警分发器不能为空")
	}
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}
	tailer := opts.Tailer
	if tailer == nil {
		tailer = NewTailer(
			opts.Config.LogPath,
			models.DurationOr(opts.Config.SourceWaitInterval, defaultWaitInterval),
			models.DurationOr(opts.Config.IdlePollInterval, defaultIdleInterval),
			log,
		)
	}
	return &Ingestor{
		tailer:     tailer,
		dispatcher: opts.Dispatcher,
		metrics:    opts.Metrics,
		log:        log,
		threshold:  opts.Config.ErrorRateThreshold,
		window:     NewErrorWindow(opts.Config.WindowSize),
	}, nil
}

// Run 运行采集循环直到 ctx 结束或读取出现不可恢复错误
// ctx 结束属于正常退出 返回 nil
func (in *Ingestor) Run(ctx context.Context) error {
	defer in.shutdown()

	fromStart := false
	for {
		in.setState(StateWaiting)
		if err := in.tailer.WaitForSource(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if err := in.tailer.Open(fromStart); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return fmt.Errorf("打开日志文件失败: %w", err)
		}
		in.setState(StateTailing)
		in.log.Info("[WATCHER] 开始读取日志: %s", in.tailer.Path())

		err := in.tail(ctx)
		if errors.Is(err, errSourceGone) {
			// 重新出现的文件都是新内容 从头读取
			fromStart = true
			continue
		}
		if ctx.Err() != nil {
			return nil
		}
		return err
	}
}

func (in *Ingestor) tail(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return nil
		}
		line, ok, err := in.tailer.Next()
		if err != nil {
			return err
		}
		if ok {
			in.HandleLine(ctx, line)
			continue
		}
		if err := in.tailer.Refresh(); err != nil {
			return err
		}
		if err := in.tailer.Idle(ctx); err != nil {
			return nil
		}
	}
}

// HandleLine 处理一行日志 非法行只计数跳过
func (in *Ingestor) HandleLine(ctx context.Context, line string) {
	rec, err := in.parser.Parse(line)
	if err != nil {
		in.malformedLines++
		in.metrics.IncMalformed()
		in.log.Debug("跳过无法解析的日志行: %v", err)
		return
	}

	in.totalRequests++
	hadError := rec.HadError()
	if hadError {
		in.totalErrors++
		in.log.Debug("[ERROR] %s | Status: %d | Upstream: %s | Pool: %s",
			rec.Request, rec.Status, rec.UpstreamStatus, rec.Pool)
	}
	in.window.Push(hadError)
	in.metrics.ObserveRequest(hadError)

	if rec.Pool != "" {
		in.checkFailover(ctx, rec.Pool)
	}
	in.checkErrorRate(ctx)

	if in.totalRequests%statsEvery == 0 {
		in.logStats()
	}
}

func (in *Ingestor) checkFailover(ctx context.Context, pool string) {
	initial := in.tracker.Current() == ""
	tr, changed := in.tracker.Observe(pool)
	if initial {
		in.log.Info("[POOL] 初始活跃 pool: %s", strings.ToUpper(pool))
		in.metrics.SetActivePool(pool)
		return
	}
	if !changed {
		return
	}

	in.metrics.IncFailover()
	in.metrics.SetActivePool(tr.To)
	message := fmt.Sprintf("Failover detected: %s → %s", tr.From, tr.To)
	in.log.Warn("[FAILOVER] %s", message)
	in.dispatcher.Dispatch(ctx, alert.Alert{
		Kind:    alert.KindFailover,
		Message: message,
		Details: []alert.Detail{
			{Key: "Previous Pool", Value: strings.ToUpper(tr.From)},
			{Key: "Current Pool", Value: strings.ToUpper(tr.To)},
			{Key: "Action Required", Value: "Check primary container health"},
		},
		FromPool: tr.From,
		ToPool:   tr.To,
	})
}

func (in *Ingestor) checkErrorRate(ctx context.Context) {
	rate, ready := in.window.ErrorRate()
	in.metrics.SetWindow(in.window.Len(), in.window.Errors(), rate, ready)
	if !ready || rate <= in.threshold {
		return
	}

	message := fmt.Sprintf("High error rate: %.2f%% (threshold: %s%%)", rate, formatPercent(in.threshold))
	in.log.Warn("[ERROR_RATE] %s", message)
	in.dispatcher.Dispatch(ctx, alert.Alert{
		Kind:    alert.KindErrorRate,
		Message: message,
		Details: []alert.Detail{
			{Key: "Error Rate", Value: fmt.Sprintf("%.2f%%", rate)},
			{Key: "Threshold", Value: formatPercent(in.threshold) + "%"},
			{Key: "Requests with Errors", Value: strconv.Itoa(in.window.Errors())},
			{Key: "Total Requests", Value: strconv.Itoa(in.window.Len())},
			{Key: "Action Required", Value: "Inspect logs, consider pool toggle"},
		},
	})
}

func (in *Ingestor) logStats() {
	rate, ready := in.window.ErrorRate()
	rateText := "样本不足"
	if ready {
		rateText = fmt.Sprintf("%.2f%%", rate)
	}
	in.log.Info("[STATS] 请求总数: %d | 错误数: %d | 窗口错误率: %s | 活跃 pool: %s",
		in.totalRequests, in.totalErrors, rateText, strings.ToUpper(in.tracker.Current()))
}

func (in *Ingestor) shutdown() {
	in.setState(StateStopped)
	in.log.Info("[STATS] 最终统计 请求总数: %d | 错误数: %d | 非法行: %d",
		in.totalRequests, in.totalErrors, in.malformedLines)
	if in.totalRequests > 0 {
		overall := float64(in.totalErrors) / float64(in.totalRequests) * 100
		in.log.Info("[STATS] 整体错误率: %.2f%%", overall)
	}
	if err := in.tailer.Close(); err != nil {
		in.log.Warn("关闭日志读取器失败: %v", err)
	}
}

func (in *Ingestor) setState(state string) {
	in.metrics.SetState(state)
}

// Stats 返回累计计数 只能在 Run 所在协程或 Run 返回后调用
func (in *Ingestor) Stats() Stats {
	return Stats{
		TotalRequests:  in.totalRequests,
		TotalErrors:    in.totalErrors,
		MalformedLines: in.malformedLines,
		WindowLength:   in.window.Len(),
		WindowErrors:   in.window.Errors(),
		ActivePool:     in.tracker.Current(),
	}
}

func formatPercent(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
