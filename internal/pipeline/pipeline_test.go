// SPDX-License-Identifier: MIT
package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"ringvis/internal/config"
	"ringvis/internal/keys"
	"ringvis/internal/spectrum"
	"ringvis/pkg/utils"
)

const testNote = 60

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Color.Seed = 7
	cfg.Spectrum.DiscoveryDelay = time.Hour
	return cfg
}

func toneClip(t *testing.T, cfg *config.Config, bin int) *keys.Clip {
	t.Helper()
	sr := cfg.Audio.SampleRate
	freq := spectrum.BinFrequency(bin, cfg.Spectrum.SampleLength, sr)
	wave := utils.GenerateSineWave(int(sr), sr, freq, 1)
	data := make([]float32, len(wave))
	for i, s := range wave {
		data[i] = float32(s)
	}
	c, err := keys.NewClip(int(sr), data)
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func newTestPipeline(t *testing.T, cfg *config.Config, opts ...Option) *Pipeline {
	t.Helper()
	clips := map[int]*keys.Clip{testNote: toneClip(t, cfg, 8)}
	p, err := New(cfg, clips, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return p
}

// discoverNow resolves sources immediately and applies them on the next tick.
func discoverNow(t *testing.T, p *Pipeline) {
	t.Helper()
	ready := make(chan struct{})
	close(ready)
	if err := p.Discover(context.Background(), ready); err != nil {
		t.Fatalf("Discover: %v", err)
	}
}

func TestPipelineStageOrder(t *testing.T) {
	p := newTestPipeline(t, testConfig())
	want := []string{"keys", "spectrum", "bars", "color", "publish"}
	got := p.Loop().Stages()
	if len(got) != len(want) {
		t.Fatalf("stages = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("stage %d = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestPipelineKeyPressDrivesBars(t *testing.T) {
	cfg := testConfig()
	p := newTestPipeline(t, cfg)
	discoverNow(t, p)
	dt := cfg.TickInterval().Seconds()

	p.Loop().Step(dt)
	if p.Aggregator().Sources() != len(p.Sources()) {
		t.Fatalf("aggregator has %d sources, want %d", p.Aggregator().Sources(), len(p.Sources()))
	}
	if f := p.Snapshot(); f.Active != 0 || f.Heights[8] != 0 {
		t.Fatalf("silent keyboard produced output: %+v", f.Heights[:10])
	}

	p.Post(func() { p.Keyboard().Press(testNote) })
	for range 30 {
		p.Loop().Step(dt)
	}

	f := p.Snapshot()
	if f.Active != 1 {
		t.Errorf("Active = %d, want 1", f.Active)
	}
	if f.Heights[8] <= 0 {
		t.Errorf("bar at the tone bin did not rise")
	}
	if len(f.Lit) != 1 || f.Lit[0] != testNote {
		t.Errorf("Lit = %v, want [%d]", f.Lit, testNote)
	}
	if f.Seq != 31 {
		t.Errorf("Seq = %d, want 31", f.Seq)
	}
	var loudest string
	var level float64
	for _, b := range f.Bands {
		if b.Level > level {
			loudest, level = b.Name, b.Level
		}
	}
	// Bin 8 of 512 at 44.1 kHz sits around 345 Hz.
	if loudest != "lowMid" {
		t.Errorf("loudest band = %q, want lowMid", loudest)
	}
}

func TestPipelinePublishesKeyEventsOnce(t *testing.T) {
	p := newTestPipeline(t, testConfig())
	p.Post(func() { p.Keyboard().Tap(testNote) })
	p.Loop().Step(0.01)

	f := p.Snapshot()
	if len(f.Events) != 1 || f.Events[0].Kind != keys.EventPressed {
		t.Fatalf("events = %+v, want one pressed", f.Events)
	}
	p.Loop().Step(0.01)
	if f := p.Snapshot(); len(f.Events) != 0 {
		t.Errorf("events repeated on the next frame: %+v", f.Events)
	}
}

func TestPipelineColorCycles(t *testing.T) {
	cfg := testConfig()
	p := newTestPipeline(t, cfg)
	dt := cfg.TickInterval().Seconds()
	ticks := int(cfg.Color.TransitionDuration.Seconds()/dt) + 2
	for range ticks {
		p.Loop().Step(dt)
	}

	f := p.Snapshot()
	if f.Color != p.Cycle().Target() {
		t.Errorf("frame colour %+v, want target %+v after the transition", f.Color, p.Cycle().Target())
	}
	got, ok := p.Material().Color(cfg.Color.Property)
	if !ok || got != f.Color {
		t.Errorf("material colour %+v, frame colour %+v", got, f.Color)
	}
	if f.Hex != f.Color.Hex() {
		t.Errorf("Hex = %s, want %s", f.Hex, f.Color.Hex())
	}
}

func TestPipelineColorDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.Color.Enabled = false
	p := newTestPipeline(t, cfg)
	p.Loop().Step(0.1)
	if _, ok := p.Material().Color(cfg.Color.Property); ok {
		t.Error("disabled cycle wrote the material")
	}
}

func TestSnapshotIsDeepCopy(t *testing.T) {
	p := newTestPipeline(t, testConfig())
	p.Loop().Step(0.01)

	a := p.Snapshot()
	a.Heights[0] = 99
	a.Bands[0].Level = 99
	b := p.Snapshot()
	if b.Heights[0] == 99 || b.Bands[0].Level == 99 {
		t.Error("snapshot shares memory with the pipeline")
	}

	var reused Frame
	p.FrameInto(&reused)
	heights := &reused.Heights[0]
	p.Loop().Step(0.01)
	p.FrameInto(&reused)
	if &reused.Heights[0] != heights {
		t.Error("FrameInto did not reuse the destination buffer")
	}
}

func TestPipelineSendsFramesToSinks(t *testing.T) {
	sink := &utils.MockTransport{}
	p := newTestPipeline(t, testConfig(), WithSinks(sink))
	for range 3 {
		p.Loop().Step(0.01)
	}
	if sink.Count() != 3 {
		t.Fatalf("sink got %d frames, want 3", sink.Count())
	}
	f, ok := sink.Last().(Frame)
	if !ok || f.Seq != 3 {
		t.Errorf("last frame = %#v", sink.Last())
	}
}

func TestPipelineExtraSources(t *testing.T) {
	extra := keys.NewVoice(nil, 1)
	p := newTestPipeline(t, testConfig(), WithSources(extra))
	srcs := p.Sources()
	if len(srcs) != keys.NumKeys+1 || srcs[len(srcs)-1] != extra {
		t.Errorf("sources = %d, want keyboard plus one extra", len(srcs))
	}
}

func TestPipelineClock(t *testing.T) {
	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	p := newTestPipeline(t, testConfig(), WithClock(func() time.Time { return at }))
	p.Loop().Step(0.01)
	if got := p.Snapshot().Time; !got.Equal(at) {
		t.Errorf("Time = %v, want %v", got, at)
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Spectrum.SampleLength = 100
	if _, err := New(cfg, nil); !errors.Is(err, config.ErrInvalid) {
		t.Errorf("New = %v, want ErrInvalid", err)
	}
}

func TestDiscoverHonoursContext(t *testing.T) {
	p := newTestPipeline(t, testConfig())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := p.Discover(ctx, nil); !errors.Is(err, context.Canceled) {
		t.Errorf("Discover = %v, want context.Canceled", err)
	}
}

func TestPipelineFlagsBeatOnKeyStrike(t *testing.T) {
	cfg := testConfig()
	cfg.Spectrum.OnsetThreshold = 1e-4
	p := newTestPipeline(t, cfg)
	discoverNow(t, p)
	dt := cfg.TickInterval().Seconds()

	for range 5 {
		p.Loop().Step(dt)
		if p.Snapshot().Beat {
			t.Fatal("beat reported while silent")
		}
	}

	p.Post(func() { p.Keyboard().Press(testNote) })
	beats := 0
	for range 10 {
		p.Loop().Step(dt)
		if p.Snapshot().Beat {
			beats++
		}
	}
	if beats == 0 {
		t.Error("key strike raised no beat")
	}
}
