package alert

import (
	"fmt"
	"sync"
	"time"
)

const (
	maxDecisionRecords = 200
	overviewWindow     = 24 * time.Hour // 告警态势概览统计窗口
)

// Dashboard 表示告警面板数据
type Dashboard struct {
	Overview  Overview       `json:"overview"`
	Decisions []DecisionView `json:"decisions"`
	Stats     Stats          `json:"stats"`
}

// Overview 表示告警态势概览
type Overview struct {
	Window     string `json:"window"`
	Failover   int    `json:"failover"`
	ErrorRate  int    `json:"errorRate"`
	Sent       int    `json:"sent"`
	Suppressed int    `json:"suppressed"`
	Latest     string `json:"latest"`
}

// DecisionView 表示告警列表项
type DecisionView struct {
	ID      string `json:"id"`
	Time    string `json:"time"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
	Status  string `json:"status"`
	Reason  string `json:"reason,omitempty"`
	Pools   string `json:"pools,omitempty"`
}

// Stats 表示告警统计
type Stats struct {
	Sent       int `json:"sent"`
	Suppressed int `json:"suppressed"`
	Logged     int `json:"logged"`
	Failed     int `json:"failed"`
}

// State 维护最近的告警决策 采集循环写入 状态接口读取
type State struct {
	mu      sync.RWMutex
	records []Decision
	stats   Stats
	now     func() time.Time
}

// NewState 创建告警运行态
func NewState() *State {
	return &State{
		records: make([]Decision, 0, maxDecisionRecords),
		now:     time.Now,
	}
}

// Record 记录告警决策
func (s *State) Record(decision Decision) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = append(s.records, decision)
	if len(s.records) > maxDecisionRecords {
		s.records = append([]Decision(nil), s.records[len(s.records)-maxDecisionRecords:]...)
	}

	switch decision.Status {
	case StatusSent:
		s.stats.Sent++
	case StatusSuppressed:
		s.stats.Suppressed++
	case StatusLogged:
		s.stats.Logged++
	case StatusFailed:
		s.stats.Failed++
	}
}

// CountSuppressed 只累加抑制次数 不保留记录
func (s *State) CountSuppressed() {
	if s == nil {
		return
	}
	s.mu.Lock()
	s.stats.Suppressed++
	s.mu.Unlock()
}

// Stats 返回累计统计
func (s *State) Stats() Stats {
	if s == nil {
		return Stats{}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats
}

// Decisions 按时间先后返回保留的决策
func (s *State) Decisions() []Decision {
	if s == nil {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Decision(nil), s.records...)
}

// Dashboard 输出告警面板数据
func (s *State) Dashboard() Dashboard {
	s.mu.RLock()
	records := append([]Decision(nil), s.records...)
	stats := s.stats
	s.mu.RUnlock()

	decisions := make([]DecisionView, 0, len(records))
	for i := len(records) - 1; i >= 0; i-- {
		rec := records[i]
		view := DecisionView{
			ID:      rec.ID,
			Time:    formatTime(rec.At),
			Kind:    string(rec.Kind),
			Message: rec.Message,
			Status:  string(rec.Status),
			Reason:  rec.Reason,
		}
		if rec.FromPool != "" || rec.ToPool != "" {
			view.Pools = rec.FromPool + " -> " + rec.ToPool
		}
		decisions = append(decisions, view)
	}

	return Dashboard{
		Overview:  buildOverview(records, s.now()),
		Decisions: decisions,
		Stats:     stats,
	}
}

func buildOverview(records []Decision, now time.Time) Overview {
	// 仅统计窗口内的记录用于概览
	windowStart := now.Add(-overviewWindow)

	var failoverCount, errorRateCount int
	var sentCount, suppressedCount int
	var latest string
	for _, record := range records {
		if record.At.Before(windowStart) {
			continue
		}
		switch record.Kind {
		case KindFailover:
			failoverCount++
		case KindErrorRate:
			errorRateCount++
		}
		switch record.Status {
		case StatusSent:
			sentCount++
		case StatusSuppressed:
			suppressedCount++
		}
		latest = formatTime(record.At)
	}

	return Overview{
		Window:     formatWindow(overviewWindow),
		Failover:   failoverCount,
		ErrorRate:  errorRateCount,
		Sent:       sentCount,
		Suppressed: suppressedCount,
		Latest:     defaultTime(latest),
	}
}

// formatWindow 统一概览窗口的展示文案
func formatWindow(window time.Duration) string {
	if window%time.Hour == 0 {
		return fmt.Sprintf("最近%d小时", int(window.Hours()))
	}
	return fmt.Sprintf("最近%d分钟", int(window.Minutes()))
}

func defaultTime(raw string) string {
	if raw == "" {
		return "--"
	}
	return raw
}
