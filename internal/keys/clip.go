// SPDX-License-Identifier: MIT
package keys

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-audio/wav"
)

// Clip is a decoded sample held as float32 per channel in [-1, 1].
type Clip struct {
	SampleRate int
	Channels   [][]float32
}

// NewClip wraps already decoded channel data. All channels must have the same
// length.
func NewClip(sampleRate int, channels ...[]float32) (*Clip, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate %d", sampleRate)
	}
	if len(channels) == 0 {
		return nil, errors.New("clip needs at least one channel")
	}
	for _, ch := range channels[1:] {
		if len(ch) != len(channels[0]) {
			return nil, errors.New("clip channels differ in length")
		}
	}
	return &Clip{SampleRate: sampleRate, Channels: channels}, nil
}

// Frames returns the clip length in sample frames.
func (c *Clip) Frames() int {
	if c == nil || len(c.Channels) == 0 {
		return 0
	}
	return len(c.Channels[0])
}

// NumChannels returns the channel count.
func (c *Clip) NumChannels() int {
	if c == nil {
		return 0
	}
	return len(c.Channels)
}

// Duration returns the clip length in seconds.
func (c *Clip) Duration() float64 {
	if c == nil || c.SampleRate == 0 {
		return 0
	}
	return float64(c.Frames()) / float64(c.SampleRate)
}

// LoadClip decodes a PCM WAV file.
func LoadClip(path string) (*Clip, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("invalid wav file: %s", path)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	if buf == nil || buf.Format == nil || buf.Format.NumChannels < 1 {
		return nil, fmt.Errorf("invalid wav buffer: %s", path)
	}

	depth := buf.SourceBitDepth
	if depth == 0 {
		depth = int(dec.BitDepth)
	}
	if depth <= 0 || depth > 32 {
		return nil, fmt.Errorf("unsupported bit depth %d in %s", depth, path)
	}
	scale := 1 / float32(int64(1)<<(depth-1))

	nch := buf.Format.NumChannels
	frames := len(buf.Data) / nch
	channels := make([][]float32, nch)
	for c := range channels {
		channels[c] = make([]float32, frames)
	}
	for i := range frames {
		for c := range nch {
			channels[c][i] = float32(buf.Data[i*nch+c]) * scale
		}
	}
	return NewClip(buf.Format.SampleRate, channels...)
}

// LoadClips loads one clip per note from dir. pattern is a fmt template that
// receives the MIDI note number. Missing or unreadable files are logged and the
// note is left without a clip.
func LoadClips(dir, pattern string, notes []int) map[int]*Clip {
	clips := make(map[int]*Clip, len(notes))
	var missing int
	for _, note := range notes {
		path := filepath.Join(dir, fmt.Sprintf(pattern, note))
		clip, err := LoadClip(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				missing++
				logger.Debugf("no clip for note %d at %s", note, path)
			} else {
				logger.Warnf("skipping clip for note %d: %v", note, err)
			}
			continue
		}
		clips[note] = clip
	}
	if missing > 0 {
		logger.Warnf("%d of %d notes have no clip in %s", missing, len(notes), dir)
	}
	return clips
}
