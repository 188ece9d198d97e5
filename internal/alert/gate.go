package alert

import (
	"sync"
	"time"
)

// Gate 判断某类告警当前是否允许发出 检查与登记在同一步完成
type Gate struct {
	mu          sync.Mutex
	cooldown    time.Duration
	maintenance bool
	now         func() time.Time
	last        map[Kind]time.Time
}

// NewGate 创建告警闸门 cooldown 为 0 时每次都放行
func NewGate(cooldown time.Duration, maintenance bool) *Gate {
	if cooldown < 0 {
		cooldown = 0
	}
	return &Gate{
		cooldown:    cooldown,
		maintenance: maintenance,
		now:         time.Now,
		last:        make(map[Kind]time.Time),
	}
}

// WithClock 替换时钟 用于测试
func (g *Gate) WithClock(now func() time.Time) *Gate {
	if now != nil {
		g.now = now
	}
	return g
}

// Allow 放行时记录本次时间作为该类型最近一次发出时间
func (g *Gate) Allow(kind Kind) bool {
	allowed, _, _ := g.Check(kind)
	return allowed
}

// Check 与 Allow 相同 额外返回抑制原因和距上次发出的时长
func (g *Gate) Check(kind Kind) (bool, SuppressedBy, time.Duration) {
	if g.maintenance {
		return false, SuppressedByMaintenance, 0
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	if last, ok := g.last[kind]; ok {
		elapsed := now.Sub(last)
		if elapsed < g.cooldown {
			return false, SuppressedByCooldown, elapsed
		}
	}
	g.last[kind] = now
	return true, "", 0
}

// Maintenance 表示是否处于维护模式
func (g *Gate) Maintenance() bool {
	return g.maintenance
}

// Cooldown 返回冷却时长
func (g *Gate) Cooldown() time.Duration {
	return g.cooldown
}
