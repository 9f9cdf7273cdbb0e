// SPDX-License-Identifier: MIT
package keys

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"ringvis/internal/spectrum"
	"ringvis/pkg/utils"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

func TestVoiceReadMixesAndEnds(t *testing.T) {
	clip, err := NewClip(48000, []float32{1, 1, 1, 1}, []float32{-1, -1, -1, -1})
	if err != nil {
		t.Fatal(err)
	}
	v := NewVoice(clip, 0.5)
	v.Play()

	out := make([]float32, 6) // three stereo frames
	out[0] = 0.25
	if n := v.Read(out, 2); n != 3 {
		t.Fatalf("Read = %d frames, want 3", n)
	}
	if out[0] != 0.75 || out[1] != -0.5 {
		t.Errorf("first frame = %v, %v; want 0.75, -0.5", out[0], out[1])
	}

	out = make([]float32, 6)
	if n := v.Read(out, 2); n != 1 {
		t.Errorf("Read at end = %d frames, want 1", n)
	}
	if v.Playing() {
		t.Error("voice playing past the clip end")
	}
	if n := v.Read(out, 2); n != 0 {
		t.Errorf("Read when stopped = %d, want 0", n)
	}
}

func TestVoiceReadUpmixesMono(t *testing.T) {
	clip, _ := NewClip(48000, []float32{0.5, 0.5})
	v := NewVoice(clip, 1)
	v.Play()
	out := make([]float32, 4)
	v.Read(out, 2)
	for i, s := range out {
		if s != 0.5 {
			t.Errorf("sample %d = %v, want 0.5", i, s)
		}
	}
}

func TestVoiceSpectrum(t *testing.T) {
	const bins = 256
	wave := utils.GenerateSineWave(2*bins, 48000, spectrum.BinFrequency(20, bins, 48000), 1)
	data := make([]float32, len(wave))
	for i, s := range wave {
		data[i] = float32(s)
	}
	clip, _ := NewClip(48000, data)
	v := NewVoice(clip, 1)

	dst := make([]float64, bins)
	v.Spectrum(dst, 0, spectrum.BlackmanHarris)
	for _, m := range dst {
		if m != 0 {
			t.Fatal("stopped voice produced a spectrum")
		}
	}

	// Stop one frame short of the end, which would stop the voice.
	v.Play()
	v.Advance(2*bins - 1)
	v.Spectrum(dst, 0, spectrum.BlackmanHarris)
	if peak := utils.FindPeakBin(dst, 0, len(dst)-1); peak != 20 {
		t.Errorf("peak bin = %d, want 20", peak)
	}

	full := dst[20]
	v.SetVolume(0.5)
	v.Spectrum(dst, 0, spectrum.BlackmanHarris)
	if math.Abs(dst[20]-full/2) > 1e-9 {
		t.Errorf("half volume peak = %v, want %v", dst[20], full/2)
	}

	// Channels past the clip fall back to its last channel.
	v.Spectrum(dst, 3, spectrum.BlackmanHarris)
	if utils.FindPeakBin(dst, 0, len(dst)-1) != 20 {
		t.Error("out-of-range channel not clamped")
	}
}

func TestVoiceSpectrumZeroAllocs(t *testing.T) {
	clip := testClip(t, 48000)
	v := NewVoice(clip, 1)
	v.Play()
	v.Advance(4096)
	dst := make([]float64, 512)
	v.Spectrum(dst, 0, spectrum.Hann)
	allocs := testing.AllocsPerRun(50, func() { v.Spectrum(dst, 0, spectrum.Hann) })
	if allocs > 0 {
		t.Errorf("Expected zero allocations in voice spectrum, got %.1f", allocs)
	}
}

func writeWAV(t *testing.T, path string, sampleRate int, data []int) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	enc := wav.NewEncoder(f, sampleRate, 16, 1, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatalf("encode: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("close encoder: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestLoadClipsFromDirectory(t *testing.T) {
	dir := t.TempDir()
	pattern := "note %03d.wav"
	writeWAV(t, filepath.Join(dir, "note 060.wav"), 44100, []int{0, 16384, -16384, 32767})

	clips := LoadClips(dir, pattern, []int{59, 60})
	if len(clips) != 1 {
		t.Fatalf("loaded %d clips, want 1", len(clips))
	}
	c := clips[60]
	if c == nil {
		t.Fatal("clip for note 60 missing")
	}
	if c.SampleRate != 44100 || c.Frames() != 4 || c.NumChannels() != 1 {
		t.Errorf("clip = %d Hz, %d frames, %d ch", c.SampleRate, c.Frames(), c.NumChannels())
	}
	if got := c.Channels[0][1]; math.Abs(float64(got)-0.5) > 1e-6 {
		t.Errorf("sample 1 = %v, want 0.5", got)
	}
}

func TestLoadClipRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.wav")
	if err := os.WriteFile(path, []byte("not a wav file at all"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadClip(path); err == nil {
		t.Error("expected error for invalid wav")
	}
}
