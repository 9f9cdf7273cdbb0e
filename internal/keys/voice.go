// SPDX-License-Identifier: MIT
package keys

import (
	"sync"

	"ringvis/internal/spectrum"
)

// Voice plays one clip. The frame loop controls it (Play, Stop, SetVolume,
// Spectrum) while the audio callback pulls samples through Read, so all state is
// guarded by a mutex.
type Voice struct {
	mu      sync.Mutex
	clip    *Clip
	pos     int // Next frame to play.
	playing bool
	volume  float64

	analyzer *spectrum.Analyzer
	history  []float64
}

var _ spectrum.Source = (*Voice)(nil)

// NewVoice creates a stopped voice. clip may be nil, which makes Play a no-op.
func NewVoice(clip *Clip, volume float64) *Voice {
	return &Voice{clip: clip, volume: volume}
}

// Clip returns the voice's clip, or nil.
func (v *Voice) Clip() *Clip { return v.clip }

// Play restarts the clip from the beginning.
func (v *Voice) Play() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.clip.Frames() == 0 {
		return
	}
	v.pos = 0
	v.playing = true
}

// Stop halts playback.
func (v *Voice) Stop() {
	v.mu.Lock()
	v.playing = false
	v.mu.Unlock()
}

func (v *Voice) Playing() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.playing
}

func (v *Voice) SetVolume(vol float64) {
	v.mu.Lock()
	v.volume = vol
	v.mu.Unlock()
}

func (v *Voice) Volume() float64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.volume
}

// Position returns the playback position in frames.
func (v *Voice) Position() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.pos
}

// Read adds up to len(out)/channels frames of the clip, scaled by volume, into
// the interleaved buffer out and advances playback. Output channels beyond the
// clip's channel count repeat its last channel. It returns the frames written.
func (v *Voice) Read(out []float32, channels int) int {
	if channels <= 0 {
		return 0
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.playing {
		return 0
	}

	frames := min(len(out)/channels, v.clip.Frames()-v.pos)
	vol := float32(v.volume)
	last := v.clip.NumChannels() - 1
	for i := range frames {
		for c := range channels {
			src := v.clip.Channels[min(c, last)]
			out[i*channels+c] += src[v.pos+i] * vol
		}
	}
	v.advance(frames)
	return frames
}

// Advance moves playback forward without producing output. It keeps voices
// progressing when no audio device pulls samples.
func (v *Voice) Advance(frames int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.playing {
		v.advance(min(frames, v.clip.Frames()-v.pos))
	}
}

func (v *Voice) advance(frames int) {
	v.pos += frames
	if v.pos >= v.clip.Frames() {
		v.playing = false
	}
}

// Spectrum analyzes the 2*len(dst) most recently played samples of channel,
// scaled by the current volume. A stopped voice yields silence.
func (v *Voice) Spectrum(dst []float64, channel int, w spectrum.WindowFunc) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.playing || v.clip.Frames() == 0 {
		clear(dst)
		return
	}
	if err := v.ensureAnalyzer(len(dst)); err != nil {
		logger.Errorf("voice spectrum: %v", err)
		clear(dst)
		return
	}

	src := v.clip.Channels[min(max(channel, 0), v.clip.NumChannels()-1)]
	n := len(v.history)
	start := v.pos - n
	for i := range n {
		j := start + i
		if j < 0 {
			v.history[i] = 0
			continue
		}
		v.history[i] = float64(src[j])
	}
	v.analyzer.Analyze(dst, v.history, w, v.volume)
}

func (v *Voice) ensureAnalyzer(bins int) error {
	if v.analyzer != nil && v.analyzer.Bins() == bins {
		return nil
	}
	a, err := spectrum.NewAnalyzer(bins)
	if err != nil {
		return err
	}
	v.analyzer = a
	v.history = make([]float64, a.FFTSize())
	return nil
}
