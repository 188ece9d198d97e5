// 本文件用于把告警渲染成 webhook 消息
package alert

import (
	"fmt"
	"strings"
	"time"

	"pool-watch/internal/slack"
)

const footer = "Blue/Green Monitor"

// Tone 决定消息的颜色与图标
type Tone string

const (
	ToneCritical Tone = "critical"
	ToneDegraded Tone = "degraded" // 主 pool 切到备 pool
	ToneRecovery Tone = "recovery" // 备 pool 切回主 pool
	ToneNeutral  Tone = "neutral"
	ToneInfo     Tone = "info"
)

// Color 返回 Slack 颜色条
func (t Tone) Color() string {
	switch t {
	case ToneCritical:
		return "#DC143C"
	case ToneDegraded:
		return "#FF6B6B"
	case ToneRecovery:
		return "#4CAF50"
	case ToneNeutral:
		return "#FFA500"
	default:
		return "#36A2EB"
	}
}

// Emoji 返回标题前缀
func (t Tone) Emoji() string {
	switch t {
	case ToneCritical:
		return "🚨"
	case ToneDegraded:
		return "⚠️"
	case ToneRecovery:
		return "✅"
	case ToneNeutral:
		return "🔄"
	default:
		return "ℹ️"
	}
}

// ToneFor 按告警类型和切换方向选择展示风格
func ToneFor(a Alert, primary, secondary string) Tone {
	switch a.Kind {
	case KindErrorRate:
		return ToneCritical
	case KindFailover:
		switch {
		case a.FromPool == primary && a.ToPool == secondary:
			return ToneDegraded
		case a.FromPool == secondary && a.ToPool == primary:
			return ToneRecovery
		default:
			return ToneNeutral
		}
	default:
		return ToneInfo
	}
}

// buildTitle 形如 "🚨 ERROR RATE Alert"
func buildTitle(kind Kind, tone Tone) string {
	return fmt.Sprintf("%s %s Alert", tone.Emoji(), strings.ToUpper(strings.ReplaceAll(string(kind), "_", " ")))
}

// BuildMessage 组装告警消息 固定字段在前 调用方字段按原顺序追加
func BuildMessage(a Alert, tone Tone, at time.Time) slack.Message {
	fields := make([]slack.Field, 0, len(a.Details)+2)
	fields = append(fields,
		slack.Field{Title: "Timestamp", Value: formatTime(at), Short: true},
		slack.Field{Title: "Alert Type", Value: string(a.Kind), Short: true},
	)
	for _, d := range a.Details {
		fields = append(fields, slack.Field{Title: d.Key, Value: d.Value, Short: true})
	}
	return slack.Message{Attachments: []slack.Attachment{{
		Color:  tone.Color(),
		Title:  buildTitle(a.Kind, tone),
		Text:   a.Message,
		Fields: fields,
		Footer: footer,
		TS:     at.Unix(),
	}}}
}

// BuildStartupMessage 组装监控上线通知
func BuildStartupMessage(details []Detail, at time.Time) slack.Message {
	fields := make([]slack.Field, 0, len(details)+2)
	fields = append(fields,
		slack.Field{Title: "Status", Value: "✅ Active", Short: true},
		slack.Field{Title: "Started At", Value: formatTime(at), Short: true},
	)
	for _, d := range details {
		fields = append(fields, slack.Field{Title: d.Key, Value: d.Value, Short: true})
	}
	return slack.Message{Attachments: []slack.Attachment{{
		Color:  ToneInfo.Color(),
		Title:  "🚀 Blue/Green Monitor - Online",
		Text:   "Log watcher has successfully started and is now monitoring your deployment.",
		Fields: fields,
		Footer: footer,
		TS:     at.Unix(),
	}}}
}

func formatTime(ts time.Time) string {
	if ts.IsZero() {
		return ""
	}
	return ts.Format("2006-01-02 15:04:05")
}
