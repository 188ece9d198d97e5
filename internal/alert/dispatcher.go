// 本文件用于告警闸门判定与投递
package alert

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"pool-watch/internal/logger"
	"pool-watch/internal/metrics"
	"pool-watch/internal/slack"
)

const defaultDeliveryTimeout = 5 * time.Second

// Notifier 表示告警投递通道
type Notifier interface {
	Send(ctx context.Context, msg slack.Message) error
}

// Journal 表示告警流水的持久化目标
type Journal interface {
	Append(ctx context.Context, decision Decision) error
}

// Options 表示 Dispatcher 的依赖
type Options struct {
	Gate          *Gate
	Notifier      Notifier // 为 nil 时只写日志不投递
	State         *State
	Journal       Journal
	Metrics       *metrics.Collector
	Logger        *logger.Logger
	PrimaryPool   string
	SecondaryPool string
	Timeout       time.Duration
	Now           func() time.Time
}

// Dispatcher 组装告警消息并尽力投递 任何失败都不向调用方传播
type Dispatcher struct {
	gate      *Gate
	notifier  Notifier
	state     *State
	journal   Journal
	metrics   *metrics.Collector
	log       *logger.Logger
	primary   string
	secondary string
	timeout   time.Duration
	now       func() time.Time
}

// NewDispatcher 创建告警分发器
func NewDispatcher(opts Options) (*Dispatcher, error) {
	if opts.Gate == nil {
		return nil, fmt.Errorf("告警闸门不能为空")
	}
	d := &Dispatcher{
		gate:      opts.Gate,
		notifier:  opts.Notifier,
		state:     opts.State,
		journal:   opts.Journal,
		metrics:   opts.Metrics,
		log:       opts.Logger,
		primary:   opts.PrimaryPool,
		secondary: opts.SecondaryPool,
		timeout:   opts.Timeout,
		now:       opts.Now,
	}
	if d.log == nil {
		d.log = logger.Nop()
	}
	if d.timeout <= 0 {
		d.timeout = defaultDeliveryTimeout
	}
	if d.now == nil {
		d.now = time.Now
	}
	return d, nil
}

// Dispatch 按闸门判定处理一次告警 返回本次决策
func (d *Dispatcher) Dispatch(ctx context.Context, a Alert) Decision {
	decision := Decision{
		Kind:     a.Kind,
		Message:  a.Message,
		FromPool: a.FromPool,
		ToPool:   a.ToPool,
	}

	allowed, by, elapsed := d.gate.Check(a.Kind)
	decision.At = d.now()
	if !allowed {
		// 抑制只写日志和计数 不进入决策记录与流水
		decision.Status = StatusSuppressed
		decision.SuppressedBy = by
		switch by {
		case SuppressedByMaintenance:
			decision.Reason = "维护模式"
			d.log.Info("[维护模式] 告警已抑制: %s", a.Kind)
		default:
			decision.Reason = fmt.Sprintf("冷却中 距上次告警 %ds", int(elapsed.Seconds()))
			d.log.Info("[冷却中] %s 告警已抑制 (上次告警 %ds 前)", a.Kind, int(elapsed.Seconds()))
		}
		d.state.CountSuppressed()
		d.metrics.ObserveAlert(string(decision.Kind), string(decision.Status))
		return decision
	}
	decision.ID = uuid.NewString()

	tone := ToneFor(a, d.primary, d.secondary)
	msg := BuildMessage(a, tone, decision.At)

	if d.notifier == nil {
		decision.Status = StatusLogged
		d.log.Warn("[告警] webhook 未配置 以下告警仅记录日志")
		d.log.Info("[告警] 类型: %s", a.Kind)
		d.log.Info("[告警] 内容: %s", a.Message)
		for _, detail := range a.Details {
			d.log.Info("[告警] %s: %s", detail.Key, detail.Value)
		}
		d.record(ctx, decision)
		return decision
	}

	if err := d.deliver(ctx, msg); err != nil {
		decision.Status = StatusFailed
		decision.Reason = err.Error()
		d.log.Error("[告警] 投递 %s 告警失败: %v", a.Kind, err)
	} else {
		decision.Status = StatusSent
		d.log.Info("[告警] %s 告警投递成功", a.Kind)
	}
	d.record(ctx, decision)
	return decision
}

// NotifyStartup 发送上线通知 不受维护模式和冷却限制
func (d *Dispatcher) NotifyStartup(ctx context.Context, details []Detail) error {
	if d.notifier == nil {
		d.log.Info("[启动] webhook 未配置 跳过上线通知")
		return nil
	}
	d.log.Info("[启动] 发送上线通知")
	if err := d.deliver(ctx, BuildStartupMessage(details, d.now())); err != nil {
		d.log.Error("[启动] 上线通知发送失败: %v", err)
		return err
	}
	d.log.Info("[启动] 上线通知发送成功")
	return nil
}

// deliver 单次投递 超时由 timeout 约束 不重试
func (d *Dispatcher) deliver(ctx context.Context, msg slack.Message) error {
	if ctx == nil {
		ctx = context.Background()
	}
	sendCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	start := time.Now()
	err := d.notifier.Send(sendCtx, msg)
	d.metrics.ObserveDelivery(time.Since(start))
	return err
}

func (d *Dispatcher) record(ctx context.Context, decision Decision) {
	d.state.Record(decision)
	d.metrics.ObserveAlert(string(decision.Kind), string(decision.Status))
	if d.journal == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	// 退出阶段的最后一条决策也要落盘
	if err := d.journal.Append(context.WithoutCancel(ctx), decision); err != nil {
		d.log.Warn("写入告警流水失败: %v", err)
	}
}
