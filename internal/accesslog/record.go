// Package accesslog 解析反向代理输出的 JSON 访问日志
package accesslog

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/valyala/fastjson"
)

// ErrMalformed 表示日志行不是合法的 JSON 对象
var ErrMalformed = errors.New("malformed access log line")

// Record 表示一行访问日志中监控关心的字段
type Record struct {
	Pool           string
	UpstreamStatus string
	Status         int
	Request        string
}

// UpstreamStatuses 返回按重试顺序排列的上游状态码
func (r Record) UpstreamStatuses() []string {
	return SplitUpstream(r.UpstreamStatus)
}

// HadError 表示该请求的任一次上游尝试返回了 5xx
func (r Record) HadError() bool {
	return HadUpstreamError(r.UpstreamStatus)
}

// Parser 复用 fastjson 解析器 只允许单协程使用
type Parser struct {
	p fastjson.Parser
}

// Parse 解析一行日志 缺失字段按空值处理
func (ps *Parser) Parse(line string) (Record, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return Record{}, ErrMalformed
	}
	v, err := ps.p.Parse(line)
	if err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if v.Type() != fastjson.TypeObject {
		return Record{}, fmt.Errorf("%w: top level is %s", ErrMalformed, v.Type())
	}
	return Record{
		Pool:           stringField(v, "pool"),
		UpstreamStatus: stringField(v, "upstream_status"),
		Status:         intField(v, "status"),
		Request:        stringField(v, "request"),
	}, nil
}

// SplitUpstream 按 nginx 的 ", " 分隔符拆分上游状态列表 丢弃空项
func SplitUpstream(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ", ")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if strings.TrimSpace(part) == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}

// HadUpstreamError 判断上游状态列表中是否存在以 5 开头的状态码 空列表表示未访问上游
func HadUpstreamError(raw string) bool {
	for _, status := range SplitUpstream(raw) {
		if strings.HasPrefix(status, "5") {
			return true
		}
	}
	return false
}

// stringField 读取字符串字段 数字等标量转成文本 与 nginx 模板里未加引号的变量兼容
func stringField(v *fastjson.Value, key string) string {
	field := v.Get(key)
	if field == nil {
		return ""
	}
	switch field.Type() {
	case fastjson.TypeString:
		return string(field.GetStringBytes())
	case fastjson.TypeNumber:
		return field.String()
	case fastjson.TypeTrue:
		return "true"
	case fastjson.TypeFalse:
		return "false"
	default:
		return ""
	}
}

func intField(v *fastjson.Value, key string) int {
	field := v.Get(key)
	if field == nil {
		return 0
	}
	switch field.Type() {
	case fastjson.TypeNumber:
		n, err := field.Int()
		if err != nil {
			return int(field.GetFloat64())
		}
		return n
	case fastjson.TypeString:
		n, err := strconv.Atoi(strings.TrimSpace(string(field.GetStringBytes())))
		if err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}
