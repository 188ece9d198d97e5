package monitor

// Transition 表示一次活跃 pool 的切换
type Transition struct {
	From string
	To   string
}

// FailoverTracker 记录最近一次观察到的 pool 并识别切换
type FailoverTracker struct {
	last string
}

// Observe 输入本次请求的 pool 首次观察只做初始化 空值与相同值均不算切换
func (f *FailoverTracker) Observe(pool string) (Transition, bool) {
	if pool == "" {
		return Transition{}, false
	}
	if f.last == "" {
		f.last = pool
		return Transition{}, false
	}
	if pool == f.last {
		return Transition{}, false
	}
	tr := Transition{From: f.last, To: pool}
	f.last = pool
	return tr, true
}

// Current 返回当前记录的 pool 未初始化时为空
func (f *FailoverTracker) Current() string {
	return f.last
}
