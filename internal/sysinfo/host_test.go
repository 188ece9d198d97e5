package sysinfo

import (
	"testing"
	"time"
)

func TestCollectHostFillsEveryField(t *testing.T) {
	summary := CollectHost()
	fields := map[string]string{
		"hostname": summary.Hostname,
		"platform": summary.Platform,
		"kernel":   summary.Kernel,
		"uptime":   summary.Uptime,
		"ip":       summary.IP,
		"cpu":      summary.CPU,
		"memory":   summary.Memory,
	}
	for name, value := range fields {
		if value == "" {
			t.Errorf("%s 不应为空 采集失败时应以 -- 占位", name)
		}
	}
}

func TestFormatDurationCN(t *testing.T) {
	cases := []struct {
		in   time.Duration
		want string
	}{
		{0, "--"},
		{30 * time.Second, "1分"},
		{5 * time.Minute, "5分"},
		{2*time.Hour + 3*time.Minute, "2小时 3分"},
		{26*time.Hour + time.Minute, "1天 2小时 1分"},
	}
	for _, tc := range cases {
		if got := formatDurationCN(tc.in); got != tc.want {
			t.Errorf("formatDurationCN(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestFormatBytes(t *testing.T) {
	cases := map[float64]string{
		0:                        "0 B",
		512:                      "512 B",
		2048:                     "2.0 KB",
		3 * 1024 * 1024:          "3.0 MB",
		1.5 * 1024 * 1024 * 1024: "1.5 GB",
	}
	for in, want := range cases {
		if got := formatBytes(in); got != want {
			t.Errorf("formatBytes(%v) = %q, want %q", in, got, want)
		}
	}
}
