// SPDX-License-Identifier: MIT
package audio

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/gordonklaus/portaudio"
)

func setupPortAudio(t *testing.T) {
	t.Helper()
	if err := Initialize(); err != nil {
		t.Skipf("PortAudio unavailable: %v", err)
	}
	t.Cleanup(func() {
		if err := Terminate(); err != nil {
			t.Errorf("Failed to terminate PortAudio: %v", err)
		}
	})
}

func withDevices(t *testing.T, infos []*portaudio.DeviceInfo, err error) {
	t.Helper()
	orig := paDevicesFunc
	t.Cleanup(func() { paDevicesFunc = orig })
	paDevicesFunc = func() ([]*portaudio.DeviceInfo, error) { return infos, err }
}

var fakeDevices = []*portaudio.DeviceInfo{
	{Name: "Mic", MaxInputChannels: 2, DefaultSampleRate: 48000},
	{Name: "Speakers", MaxOutputChannels: 2, DefaultSampleRate: 44100},
	{Name: "Interface", MaxInputChannels: 8, MaxOutputChannels: 8, DefaultSampleRate: 96000},
}

func TestHostDevicesMapsInfo(t *testing.T) {
	withDevices(t, fakeDevices, nil)

	devices, err := HostDevices()
	if err != nil {
		t.Fatalf("HostDevices error: %v", err)
	}
	if len(devices) != 3 {
		t.Fatalf("devices = %d, want 3", len(devices))
	}
	kinds := []string{"Input", "Output", "Input/Output"}
	for i, d := range devices {
		if d.ID != i {
			t.Errorf("Device ID mismatch: got %d, want %d", d.ID, i)
		}
		if d.Kind() != kinds[i] {
			t.Errorf("device %d kind = %s, want %s", i, d.Kind(), kinds[i])
		}
	}
}

func TestHostDevicesError(t *testing.T) {
	withDevices(t, nil, errors.New("mock error"))
	if _, err := HostDevices(); err == nil || !strings.Contains(err.Error(), "mock error") {
		t.Errorf("expected mock error, got %v", err)
	}
}

func TestPickDevice(t *testing.T) {
	withDevices(t, fakeDevices, nil)

	tests := []struct {
		name   string
		id     int
		output bool
		want   string
		substr string
	}{
		{"input by id", 0, false, "Mic", ""},
		{"output by id", 1, true, "Speakers", ""},
		{"duplex as input", 2, false, "Interface", ""},
		{"output as input", 1, false, "", "no channels"},
		{"input as output", 0, true, "", "no channels"},
		{"negative id", -2, false, "", "invalid device ID"},
		{"too high id", 10, true, "", "invalid device ID"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pick := InputDevice
			if tt.output {
				pick = OutputDevice
			}
			dev, err := pick(tt.id)
			if tt.substr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.substr) {
					t.Errorf("error = %v, want substring %q", err, tt.substr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if dev.Name != tt.want {
				t.Errorf("device = %s, want %s", dev.Name, tt.want)
			}
		})
	}
}

func TestWriteDeviceList(t *testing.T) {
	withDevices(t, fakeDevices, nil)
	devices, _ := HostDevices()

	var buf bytes.Buffer
	WriteDeviceList(&buf, devices)
	out := buf.String()
	for _, want := range []string{"[0] Mic (Input)", "[2] Interface (Input/Output)", "Default sample rate: 96000 Hz"} {
		if !strings.Contains(out, want) {
			t.Errorf("listing missing %q:\n%s", want, out)
		}
	}
}

func TestHostDevicesReal(t *testing.T) {
	setupPortAudio(t)

	devices, err := HostDevices()
	if err != nil {
		t.Fatalf("HostDevices error: %v", err)
	}
	if len(devices) == 0 {
		t.Skip("No audio devices found on system")
	}
	for i, d := range devices {
		if d.Name == "" {
			t.Errorf("Device %d has empty name", i)
		}
	}
}
