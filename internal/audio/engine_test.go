// SPDX-License-Identifier: MIT
package audio

import (
	"math"
	"path/filepath"
	"testing"

	"ringvis/internal/config"
)

type constMixer struct {
	value float32
	calls int
}

func (m *constMixer) Mix(out []float32, channels int) {
	m.calls++
	for i := range out {
		out[i] = m.value
	}
}

func TestSoftClip(t *testing.T) {
	buf := []float32{0, 0.25, -0.5, 0.5, 0.9, 3, -3, 100}
	SoftClip(buf)

	if buf[0] != 0 || buf[1] != 0.25 || buf[2] != -0.5 || buf[3] != 0.5 {
		t.Errorf("quiet samples changed: %v", buf[:4])
	}
	for i, s := range buf {
		if s < -1 || s > 1 {
			t.Errorf("sample %d = %v outside [-1, 1]", i, s)
		}
	}
	if !(buf[4] > 0.5 && buf[4] < buf[5] && buf[5] <= buf[7]) {
		t.Errorf("limiter not monotonic: %v", buf)
	}
	if math.Abs(float64(buf[5]+buf[6])) > 1e-6 {
		t.Errorf("limiter not symmetric: %v vs %v", buf[5], buf[6])
	}
}

func TestRenderOutputMixesAndRecords(t *testing.T) {
	mixer := &constMixer{value: 0.25}
	rec, err := NewRecorder(testSampleRate, 2, 16)
	if err != nil {
		t.Fatal(err)
	}
	e := &Engine{
		config:   config.AudioConfig{OutputChannels: 2},
		mixer:    mixer,
		recorder: rec,
	}

	if err := e.StartRecording(filepath.Join(t.TempDir(), "out.wav")); err != nil {
		t.Fatal(err)
	}
	out := make([]float32, 8)
	e.renderOutput(out)
	if mixer.calls != 1 || out[0] != 0.25 {
		t.Errorf("mixer calls %d, out[0] %v", mixer.calls, out[0])
	}
	if err := e.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if rec.Recording() {
		t.Error("Close left the recorder running")
	}
}

func TestEngineWithoutRecorder(t *testing.T) {
	e := &Engine{}
	if err := e.StartRecording("x.wav"); err == nil {
		t.Error("StartRecording without a recorder succeeded")
	}
	if err := e.StopRecording(); err != nil {
		t.Error(err)
	}
	if err := e.Close(); err != nil {
		t.Errorf("Close of an idle engine = %v", err)
	}
}

func TestNewEngineRequiresCollaborators(t *testing.T) {
	if _, err := NewEngine(config.AudioConfig{InputEnabled: true}, nil, nil, nil); err == nil {
		t.Error("capture without input accepted")
	}
	if _, err := NewEngine(config.AudioConfig{OutputEnabled: true}, nil, nil, nil); err == nil {
		t.Error("output without mixer accepted")
	}
	e, err := NewEngine(config.AudioConfig{}, nil, nil, nil)
	if err != nil {
		t.Fatalf("NewEngine with nothing enabled: %v", err)
	}
	if err := e.Start(); err != nil {
		t.Errorf("Start with nothing enabled = %v", err)
	}
}

func TestRenderOutputZeroAllocs(t *testing.T) {
	e := &Engine{config: config.AudioConfig{OutputChannels: 2}, mixer: &constMixer{value: 0.9}}
	out := make([]float32, 2*testFrameSize)
	allocs := testing.AllocsPerRun(100, func() { e.renderOutput(out) })
	if allocs > 0 {
		t.Errorf("Expected zero allocations in output callback, got %.1f", allocs)
	}
}

func BenchmarkHotPath(b *testing.B) {
	in := NewInput(2, 8192, NewGate(0.001))
	e := &Engine{input: in, config: config.AudioConfig{OutputChannels: 2}, mixer: &constMixer{value: 0.3}}
	out := make([]float32, 2*testFrameSize)

	b.ReportAllocs()
	b.ResetTimer()
	for b.Loop() {
		in.Write(testBuffer)
		e.renderOutput(out)
	}
}
