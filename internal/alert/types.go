// 本文件用于定义告警相关的数据结构

package alert

import "time"

// Kind 表示告警类型 不同类型的冷却计时相互独立
type Kind string

const (
	// KindFailover 表示活跃 pool 切换
	KindFailover Kind = "failover"
	// KindErrorRate 表示窗口错误率超过阈值
	KindErrorRate Kind = "error_rate"
	// KindStartup 表示监控启动通知 不参与冷却
	KindStartup Kind = "startup"
)

// DecisionStatus 表示告警决策状态
type DecisionStatus string

const (
	// StatusSent 表示已投递
	StatusSent DecisionStatus = "sent"
	// StatusSuppressed 表示被维护模式或冷却抑制
	StatusSuppressed DecisionStatus = "suppressed"
	// StatusLogged 表示未配置投递地址 仅写日志
	StatusLogged DecisionStatus = "logged"
	// StatusFailed 表示投递失败 已丢弃
	StatusFailed DecisionStatus = "failed"
)

// SuppressedBy 表示抑制来源
type SuppressedBy string

const (
	// SuppressedByMaintenance 表示维护模式全局抑制
	SuppressedByMaintenance SuppressedBy = "maintenance"
	// SuppressedByCooldown 表示命中同类告警冷却窗口
	SuppressedByCooldown SuppressedBy = "cooldown"
)

// Detail 表示告警中的一个键值字段 保持调用方给出的顺序
type Detail struct {
	Key   string
	Value string
}

// Alert 表示一次待投递的告警
type Alert struct {
	Kind     Kind
	Message  string
	Details  []Detail
	FromPool string // 仅 failover 使用
	ToPool   string
}

// Decision 表示一次告警的处理结果
type Decision struct {
	ID           string         `json:"id"`
	At           time.Time      `json:"at"`
	Kind         Kind           `json:"kind"`
	Status       DecisionStatus `json:"status"`
	SuppressedBy SuppressedBy   `json:"suppressedBy,omitempty"`
	Reason       string         `json:"reason,omitempty"`
	Message      string         `json:"message"`
	FromPool     string         `json:"fromPool,omitempty"`
	ToPool       string         `json:"toPool,omitempty"`
}
