package adbfs

import (
	"context"
	"strings"
)

// DeviceState is the only state `adb devices` reports for a usable target.
const DeviceState = "device"

type Device struct {
	Serial string
	State  string
}

// ParseDevices reads `adb devices` output. The header line is skipped and
// only targets in the "device" state are kept, which drops unauthorized and
// offline ones.
func ParseDevices(output string) []Device {
	lines := strings.Split(output, "\n")
	if len(lines) > 0 {
		lines = lines[1:]
	}

	var devices []Device
	for _, line := range lines {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		for _, token := range fields[1:] {
			if token == DeviceState {
				devices = append(devices, Device{Serial: fields[0], State: DeviceState})
				break
			}
		}
	}
	return devices
}

func (f *FileSystem) Devices(ctx context.Context) ([]Device, error) {
	res, err := f.bridge.Execute(ctx, "", "devices")
	if err != nil {
		return nil, err
	}
	if err := res.Err(); err != nil {
		return nil, err
	}
	return ParseDevices(res.Stdout), nil
}
