// 本文件用于采集主机概要信息 供启动通知与状态接口展示
package sysinfo

import (
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
)

// HostSummary 表示主机概要
type HostSummary struct {
	Hostname string `json:"hostname"`
	Platform string `json:"platform"`
	Kernel   string `json:"kernel"`
	Uptime   string `json:"uptime"`
	IP       string `json:"ip"`
	CPU      string `json:"cpu"`
	Memory   string `json:"memory"`
}

// CollectHost 采集主机概要 单项失败时以 "--" 占位 不返回错误
func CollectHost() HostSummary {
	summary := HostSummary{
		IP:     firstIPv4(),
		CPU:    cpuLabel(),
		Memory: memoryLabel(),
	}

	info, err := host.Info()
	if err != nil {
		name, _ := os.Hostname()
		summary.Hostname = fallbackString(name, "--")
		summary.Platform = runtime.GOOS
		summary.Kernel = "--"
		summary.Uptime = "--"
		return summary
	}
	summary.Hostname = fallbackString(info.Hostname, "--")
	summary.Platform = strings.TrimSpace(strings.Join([]string{info.Platform, info.PlatformVersion}, " "))
	if summary.Platform == "" {
		summary.Platform = runtime.GOOS
	}
	summary.Kernel = fallbackString(info.KernelVersion, "--")
	summary.Uptime = formatDurationCN(time.Duration(info.Uptime) * time.Second)
	return summary
}

func cpuLabel() string {
	cores, err := cpu.Counts(true)
	if err != nil || cores <= 0 {
		cores = runtime.NumCPU()
	}
	return fmt.Sprintf("%d 核", cores)
}

func memoryLabel() string {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return "--"
	}
	return fmt.Sprintf("%s / %s", formatBytes(float64(vm.Used)), formatBytes(float64(vm.Total)))
}

func fallbackString(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
