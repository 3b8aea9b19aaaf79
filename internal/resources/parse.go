// Package resources converts textual container limits into docker units.
package resources

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	units "github.com/docker/go-units"
)

const NanoCPUs = 1_000_000_000

// Limits are resource caps expressed in the units the docker API expects.
// Zero means unlimited.
type Limits struct {
	NanoCPUs    int64
	MemoryBytes int64
}

// IsZero reports whether no limit is set.
func (l Limits) IsZero() bool {
	return l.NanoCPUs == 0 && l.MemoryBytes == 0
}

// Parse converts a CPU and a memory quantity. Empty values leave the
// corresponding limit unset.
func Parse(cpu, memory string) (Limits, error) {
	nano, err := ParseCPU(cpu)
	if err != nil {
		return Limits{}, err
	}
	mem, err := ParseMemory(memory)
	if err != nil {
		return Limits{}, err
	}
	return Limits{NanoCPUs: nano, MemoryBytes: mem}, nil
}

// ParseCPU converts a core count ("0.5") or millicores ("500m") into
// nanocpus.
func ParseCPU(value string) (int64, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return 0, nil
	}
	number, scale := trimmed, 1.0
	if last := trimmed[len(trimmed)-1]; last == 'm' || last == 'M' {
		number, scale = strings.TrimSpace(trimmed[:len(trimmed)-1]), 1000.0
		if number == "" {
			return 0, fmt.Errorf("invalid cpu quantity %q", value)
		}
	}
	parsed, err := strconv.ParseFloat(number, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid cpu quantity %q: %w", value, err)
	}
	cores := parsed / scale
	if cores <= 0 || math.IsNaN(cores) {
		return 0, fmt.Errorf("invalid cpu quantity %q: must be positive", value)
	}
	nano := math.Round(cores * NanoCPUs)
	if nano > math.MaxInt64 {
		return 0, fmt.Errorf("invalid cpu quantity %q: exceeds supported range", value)
	}
	return max(int64(nano), 1), nil
}

// ParseMemory converts "512Mi", "1g" or a plain byte count into bytes.
// Kubernetes style "Mi" suffixes are accepted alongside docker's "MiB".
func ParseMemory(value string) (int64, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return 0, nil
	}
	lower := strings.ToLower(trimmed)
	for _, suffix := range []string{"ki", "mi", "gi", "ti", "pi", "ei"} {
		if strings.HasSuffix(lower, suffix) {
			trimmed += "B"
			break
		}
	}
	n, err := units.RAMInBytes(trimmed)
	if err != nil {
		return 0, fmt.Errorf("invalid memory quantity %q: %w", value, err)
	}
	if n <= 0 {
		return 0, fmt.Errorf("invalid memory quantity %q: must be positive", value)
	}
	return n, nil
}
