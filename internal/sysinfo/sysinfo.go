// Package sysinfo describes the host commands will run on.
package sysinfo

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
)

// Info is a snapshot of host facts shown next to the catalog.
type Info struct {
	OS           string        `json:"os"`
	Kernel       string        `json:"kernel"`
	Distribution string        `json:"distribution"`
	Architecture string        `json:"architecture"`
	Hostname     string        `json:"hostname"`
	Uptime       time.Duration `json:"uptime"`
	CPUs         int           `json:"cpus"`
	MemoryTotal  uint64        `json:"memory_total"`
	MemoryUsed   uint64        `json:"memory_used"`
}

// Collector gathers Info. Front-ends take one so tests can supply fixed
// values.
type Collector func(ctx context.Context) (Info, error)

// osReleasePath is read for the distribution's display name.
var osReleasePath = "/etc/os-release"

// Collect reads host facts with gopsutil. Facts that cannot be read are left
// empty; only a failure to read anything is an error.
func Collect(ctx context.Context) (Info, error) {
	info := Info{OS: runtime.GOOS, Architecture: runtime.GOARCH}

	h, herr := host.InfoWithContext(ctx)
	if herr == nil {
		info.Kernel = strings.TrimSpace(h.KernelVersion)
		if h.KernelArch != "" {
			info.Architecture = h.KernelArch
		}
		info.Hostname = h.Hostname
		info.Uptime = time.Duration(h.Uptime) * time.Second
		info.Distribution = strings.TrimSpace(h.Platform + " " + h.PlatformVersion)
	}
	if pretty := prettyName(osReleasePath); pretty != "" {
		info.Distribution = pretty
	}

	if n, err := cpu.CountsWithContext(ctx, true); err == nil {
		info.CPUs = n
	} else {
		info.CPUs = runtime.NumCPU()
	}

	vm, merr := mem.VirtualMemoryWithContext(ctx)
	if merr == nil {
		info.MemoryTotal = vm.Total
		info.MemoryUsed = vm.Used
	}

	if herr != nil && merr != nil {
		return info, fmt.Errorf("collect system info: %w", herr)
	}
	return info, nil
}

// prettyName returns PRETTY_NAME from an os-release file, or "".
func prettyName(path string) string {
	f, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		k, v, ok := strings.Cut(sc.Text(), "=")
		if ok && strings.TrimSpace(k) == "PRETTY_NAME" {
			return strings.Trim(strings.TrimSpace(v), `"'`)
		}
	}
	return ""
}

// Lines renders Info as "Label: value" lines for terminal output.
func (i Info) Lines() []string {
	memory := "unknown"
	if i.MemoryTotal > 0 {
		memory = fmt.Sprintf("%s / %s", humanize.IBytes(i.MemoryUsed), humanize.IBytes(i.MemoryTotal))
	}
	dist := i.Distribution
	if dist == "" {
		dist = "Unknown"
	}
	return []string{
		"OS: " + i.OS,
		"Kernel: " + orUnknown(i.Kernel),
		"Distribution: " + dist,
		"Architecture: " + i.Architecture,
		"Hostname: " + orUnknown(i.Hostname),
		"Uptime: " + humanize.RelTime(time.Now().Add(-i.Uptime), time.Now(), "", ""),
		fmt.Sprintf("CPUs: %d", i.CPUs),
		"Memory: " + memory,
	}
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
