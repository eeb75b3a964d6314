package domain

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// ErrDeviceSpec is matched by every DeviceSpecError.
var ErrDeviceSpec = errors.New("domain: invalid device specification")

// DeviceSpecErrorKind discriminates device specification failures.
type DeviceSpecErrorKind int

const (
	DeviceSpecInvalidFormat DeviceSpecErrorKind = iota + 1
	DeviceSpecInvalidNumber
	DeviceSpecInvalidRange
	DeviceSpecEmpty
	DeviceSpecDeviceNotFound
)

// DeviceSpecError describes why a spec such as "0-2,5" could not be expanded.
type DeviceSpecError struct {
	Kind   DeviceSpecErrorKind
	Spec   string
	Part   string
	Server string
	Device int
}

func (e *DeviceSpecError) Error() string {
	switch e.Kind {
	case DeviceSpecInvalidFormat:
		return fmt.Sprintf("invalid device spec format %q", e.Part)
	case DeviceSpecInvalidNumber:
		return fmt.Sprintf("invalid device number %q", e.Part)
	case DeviceSpecInvalidRange:
		return fmt.Sprintf("invalid device range %q: start is greater than end", e.Part)
	case DeviceSpecEmpty:
		return fmt.Sprintf("device spec %q selects no devices", e.Spec)
	case DeviceSpecDeviceNotFound:
		return fmt.Sprintf("device %d not found on server %s", e.Device, e.Server)
	default:
		return "invalid device spec"
	}
}

func (e *DeviceSpecError) Unwrap() error { return ErrDeviceSpec }

// Device is a GPU slot declared in the resource configuration.
type Device struct {
	ID    int
	Model string
}

// ParseDeviceSpec expands "all", single numbers, inclusive "a-b" ranges and
// comma separated combinations. The result is sorted and de-duplicated.
// Ranges reaching past the highest configured device fail with
// DeviceSpecDeviceNotFound before they are expanded.
func ParseDeviceSpec(spec string, all []int) ([]int, error) {
	trimmed := strings.TrimSpace(spec)
	if strings.EqualFold(trimmed, "all") {
		if len(all) == 0 {
			return nil, &DeviceSpecError{Kind: DeviceSpecEmpty, Spec: spec}
		}
		out := slices.Clone(all)
		slices.Sort(out)
		return slices.Compact(out), nil
	}

	var out []int
	for _, part := range strings.Split(trimmed, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if !strings.Contains(part, "-") {
			n, err := parseDeviceNumber(part)
			if err != nil {
				return nil, err
			}
			out = append(out, n)
			continue
		}

		bounds := strings.Split(part, "-")
		if len(bounds) != 2 {
			return nil, &DeviceSpecError{Kind: DeviceSpecInvalidFormat, Spec: spec, Part: part}
		}
		lo, err := parseDeviceNumber(bounds[0])
		if err != nil {
			return nil, err
		}
		hi, err := parseDeviceNumber(bounds[1])
		if err != nil {
			return nil, err
		}
		if lo > hi {
			return nil, &DeviceSpecError{Kind: DeviceSpecInvalidRange, Spec: spec, Part: part}
		}
		if len(all) == 0 || hi > slices.Max(all) {
			return nil, &DeviceSpecError{Kind: DeviceSpecDeviceNotFound, Spec: spec, Part: part, Device: hi}
		}
		for n := lo; ; n++ {
			out = append(out, n)
			if n == hi {
				break
			}
		}
	}

	if len(out) == 0 {
		return nil, &DeviceSpecError{Kind: DeviceSpecEmpty, Spec: spec}
	}
	slices.Sort(out)
	return slices.Compact(out), nil
}

func parseDeviceNumber(value string) (int, error) {
	value = strings.TrimSpace(value)
	n, err := strconv.Atoi(value)
	if err != nil || n < 0 {
		return 0, &DeviceSpecError{Kind: DeviceSpecInvalidNumber, Part: value}
	}
	return n, nil
}

// FormatDeviceSpec renders device numbers as a sorted comma list.
func FormatDeviceSpec(devices []int) string {
	sorted := slices.Clone(devices)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)
	parts := make([]string, len(sorted))
	for i, n := range sorted {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ",")
}

// CreateGPUs turns a device spec into GPU resources of server, checking each
// device against the configured list.
func CreateGPUs(spec, server string, devices []Device) ([]Resource, error) {
	ids := make([]int, len(devices))
	models := make(map[int]string, len(devices))
	for i, d := range devices {
		ids[i] = d.ID
		models[d.ID] = d.Model
	}

	numbers, err := ParseDeviceSpec(spec, ids)
	if err != nil {
		var sErr *DeviceSpecError
		if errors.As(err, &sErr) && sErr.Kind == DeviceSpecDeviceNotFound {
			sErr.Server = server
		}
		return nil, err
	}

	resources := make([]Resource, 0, len(numbers))
	for _, n := range numbers {
		model, ok := models[n]
		if !ok {
			return nil, &DeviceSpecError{Kind: DeviceSpecDeviceNotFound, Spec: spec, Server: server, Device: n}
		}
		resources = append(resources, GPU{Server: server, DeviceNumber: n, Model: model})
	}
	return resources, nil
}
