// Package gpu defines the GPU device record and the parsing step that turns
// raw nvidia-smi output into device records. Parsing is deliberately the only
// vendor-specific code in the repository; the fleet package treats it as a
// pluggable step.
package gpu

import (
	"strconv"
	"strings"

	"github.com/mkoppen/gpuwatch/internal/errors"
)

// Device is one GPU on a target, as reported by a single probe.
type Device struct {
	Index              int
	Name               string
	UtilizationPercent int
	MemoryUsedMiB      int64
	MemoryTotalMiB     int64
	ProcessCount       int
}

// Free reports whether no compute process is using the device.
func (d Device) Free() bool {
	return d.ProcessCount == 0
}

// SectionSeparator splits the batched probe command output into sections.
const SectionSeparator = "---"

// ProbeCommand returns the single batched command executed on each target.
// Output sections, separated by "---":
//
//	0. per-device CSV: index, uuid, name, utilization.gpu, memory.used, memory.total
//	1. one gpu_uuid line per running compute process
//
// Both invocations fail silently on hosts without nvidia-smi, which parses as
// zero devices.
func ProbeCommand() string {
	return `nvidia-smi --query-gpu=index,uuid,name,utilization.gpu,memory.used,memory.total --format=csv,noheader,nounits 2>/dev/null || true; echo "---"; nvidia-smi --query-compute-apps=gpu_uuid --format=csv,noheader 2>/dev/null || true`
}

// ParseProbeOutput parses the batched probe command output into device
// records. Malformed device lines are skipped; an output that contains device
// lines but yields no parsable device at all is a parse failure (caller keeps
// the raw text for diagnosis). Empty output parses as zero devices.
func ParseProbeOutput(raw string) ([]Device, error) {
	deviceSection, appsSection := splitSections(raw)

	lines := nonEmptyLines(deviceSection)
	if len(lines) == 0 {
		return nil, nil
	}

	devices := make([]Device, 0, len(lines))
	uuidIndex := make(map[string]int)

	for _, line := range lines {
		dev, uuid, ok := parseDeviceLine(line)
		if !ok {
			continue
		}
		uuidIndex[uuid] = len(devices)
		devices = append(devices, dev)
	}

	if len(devices) == 0 {
		return nil, errors.New(errors.ErrParse,
			"nvidia-smi output had no parsable GPU lines",
			"Check that the driver is healthy: run nvidia-smi on the host directly")
	}

	for _, line := range nonEmptyLines(appsSection) {
		uuid := strings.TrimSpace(line)
		if i, ok := uuidIndex[uuid]; ok {
			devices[i].ProcessCount++
		}
	}

	return devices, nil
}

// splitSections splits raw output at the first separator line. Output from
// hosts that never echo the separator is treated as all device section.
func splitSections(raw string) (deviceSection, appsSection string) {
	for _, line := range strings.Split(raw, "\n") {
		if strings.TrimSpace(line) == SectionSeparator {
			parts := strings.SplitN(raw, line+"\n", 2)
			if len(parts) == 2 {
				return parts[0], parts[1]
			}
			// Separator is the final line.
			return strings.TrimSuffix(raw, line), ""
		}
	}
	return raw, ""
}

func nonEmptyLines(s string) []string {
	var lines []string
	for _, line := range strings.Split(s, "\n") {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// parseDeviceLine parses one CSV line:
//
//	0, GPU-1db6ff02-..., NVIDIA A100-SXM4-40GB, 97, 38115, 40960
//
// Out-of-range and negative numerics make the line malformed; values are
// never clamped.
func parseDeviceLine(line string) (Device, string, bool) {
	fields := strings.Split(line, ",")
	if len(fields) < 6 {
		return Device{}, "", false
	}

	// A name containing commas shifts everything after it; take the numeric
	// fields from the tail so such lines still parse.
	idxStr := strings.TrimSpace(fields[0])
	uuid := strings.TrimSpace(fields[1])
	name := strings.TrimSpace(strings.Join(fields[2:len(fields)-3], ","))
	utilStr := strings.TrimSpace(fields[len(fields)-3])
	usedStr := strings.TrimSpace(fields[len(fields)-2])
	totalStr := strings.TrimSpace(fields[len(fields)-1])

	index, err := strconv.Atoi(idxStr)
	if err != nil || index < 0 {
		return Device{}, "", false
	}

	util, err := strconv.Atoi(utilStr)
	if err != nil || util < 0 || util > 100 {
		return Device{}, "", false
	}

	used, err := strconv.ParseInt(usedStr, 10, 64)
	if err != nil || used < 0 {
		return Device{}, "", false
	}

	total, err := strconv.ParseInt(totalStr, 10, 64)
	if err != nil || total < 0 || used > total {
		return Device{}, "", false
	}

	if uuid == "" || name == "" {
		return Device{}, "", false
	}

	return Device{
		Index:              index,
		Name:               name,
		UtilizationPercent: util,
		MemoryUsedMiB:      used,
		MemoryTotalMiB:     total,
	}, uuid, true
}
