package monitor

// MinSamples 是计算错误率前窗口至少需要的请求数 与窗口容量无关
const MinSamples = 20

// ErrorWindow 定长环形缓冲 记录最近若干请求是否出错
type ErrorWindow struct {
	slots  []bool
	head   int // 下一次写入的位置
	count  int
	errors int
}

// NewErrorWindow 创建容量固定的窗口 容量小于 1 时按 1 处理
func NewErrorWindow(capacity int) *ErrorWindow {
	if capacity < 1 {
		capacity = 1
	}
	return &ErrorWindow{slots: make([]bool, capacity)}
}

// Push 追加一次请求结果 满容量时淘汰最旧的一条
func (w *ErrorWindow) Push(hadError bool) {
	if w.count == len(w.slots) {
		if w.slots[w.head] {
			w.errors--
		}
	} else {
		w.count++
	}
	w.slots[w.head] = hadError
	if hadError {
		w.errors++
	}
	w.head = (w.head + 1) % len(w.slots)
}

// ErrorRate 返回窗口内错误占比(百分比) 样本不足 MinSamples 时 ok 为 false
func (w *ErrorWindow) ErrorRate() (rate float64, ok bool) {
	if w.count < MinSamples {
		return 0, false
	}
	return float64(w.errors) / float64(w.count) * 100, true
}

// Len 返回当前样本数
func (w *ErrorWindow) Len() int { return w.count }

// Cap 返回窗口容量
func (w *ErrorWindow) Cap() int { return len(w.slots) }

// Errors 返回窗口内出错的请求数
func (w *ErrorWindow) Errors() int { return w.errors }

// Ready 表示样本数已满足错误率计算的最小要求
func (w *ErrorWindow) Ready() bool { return w.count >= MinSamples }

// Snapshot 按从旧到新的顺序返回窗口内容
func (w *ErrorWindow) Snapshot() []bool {
	out := make([]bool, 0, w.count)
	start := (w.head - w.count + len(w.slots)) % len(w.slots)
	for i := 0; i < w.count; i++ {
		out = append(out, w.slots[(start+i)%len(w.slots)])
	}
	return out
}
