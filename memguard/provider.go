// Copyright 2026 Daniel Vask.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package memguard watches the process's memory usage against a
// detected limit and shuts latency tracking down before the kernel
// shuts the process down.
package memguard

import (
	"bufio"
	"os"
	"strconv"
	"strings"
)

// Provider supplies the memory limit and the current usage in bytes.
// Either may be unavailable on a given platform; the guard copes.
type Provider interface {
	// Limit returns the memory ceiling the process runs under.
	Limit() (uint64, bool)
	// Usage returns the process's current resident memory.
	Usage() (uint64, bool)
}

// SystemProvider reads limit and usage from the Linux proc and cgroup
// filesystems. The zero value reads the real system paths; the fields
// exist so tests can point it at fixtures.
type SystemProvider struct {
	CgroupV2Max string // default /sys/fs/cgroup/memory.max
	CgroupV1Max string // default /sys/fs/cgroup/memory/memory.limit_in_bytes
	Meminfo     string // default /proc/meminfo
	Status      string // default /proc/self/status
}

func (p *SystemProvider) paths() (v2, v1, meminfo, status string) {
	v2, v1 = p.CgroupV2Max, p.CgroupV1Max
	meminfo, status = p.Meminfo, p.Status
	if v2 == "" {
		v2 = "/sys/fs/cgroup/memory.max"
	}
	if v1 == "" {
		v1 = "/sys/fs/cgroup/memory/memory.limit_in_bytes"
	}
	if meminfo == "" {
		meminfo = "/proc/meminfo"
	}
	if status == "" {
		status = "/proc/self/status"
	}
	return v2, v1, meminfo, status
}

// Limit implements Provider's Limit method. It prefers a container
// limit (cgroup v2, then v1) over the machine's total memory; a cgroup
// file reading "max" or a value so large it is clearly the kernel's
// "no limit" marker falls through to the next source.
func (p *SystemProvider) Limit() (uint64, bool) {
	v2, v1, meminfo, _ := p.paths()

	// No-limit cgroup v1 files contain PAGE_COUNTER_MAX, in the
	// exabyte range. Anything over 1 PiB is not a real ceiling.
	const noLimit = 1 << 50

	for _, f := range []string{v2, v1} {
		b, err := os.ReadFile(f)
		if err != nil {
			continue
		}
		s := strings.TrimSpace(string(b))
		if s == "max" {
			continue
		}
		n, err := strconv.ParseUint(s, 10, 64)
		if err != nil || n == 0 || n > noLimit {
			continue
		}
		return n, true
	}

	if n, ok := meminfoKB(meminfo, "MemTotal:"); ok {
		return n * 1024, true
	}
	return 0, false
}

// Usage implements Provider's Usage method, reading the resident set
// size from /proc/self/status.
func (p *SystemProvider) Usage() (uint64, bool) {
	_, _, _, status := p.paths()
	if n, ok := meminfoKB(status, "VmRSS:"); ok {
		return n * 1024, true
	}
	return 0, false
}

// meminfoKB scans a "key: value kB" style proc file for the line with
// the given prefix and returns its numeric value.
func meminfoKB(file, prefix string) (uint64, bool) {
	f, err := os.Open(file)
	if err != nil {
		return 0, false
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := sc.Text()
		if !strings.HasPrefix(line, prefix) {
			continue
		}
		fields := strings.Fields(line[len(prefix):])
		if len(fields) == 0 {
			return 0, false
		}
		n, err := strconv.ParseUint(fields[0], 10, 64)
		if err != nil {
			return 0, false
		}
		return n, true
	}
	return 0, false
}
