// SPDX-License-Identifier: MIT
package audio

import (
	"errors"
	"fmt"
	"math"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// ErrAlreadyRecording is returned by Start on a running recorder.
var ErrAlreadyRecording = errors.New("already recording")

// RecordingFilename returns the default file name for a recording started at t.
func RecordingFilename(t time.Time) string {
	return "recording-" + t.UTC().Format("02-01-2006-150405") + ".wav"
}

// Recorder writes interleaved float32 audio to a PCM WAV file.
type Recorder struct {
	sampleRate int
	channels   int
	bitDepth   int

	isRecording int32 // Atomic flag for thread-safe state

	mu         sync.Mutex // Serializes Write against Stop.
	filename   string
	outputFile *os.File
	wavEncoder *wav.Encoder
	sampleBuf  *audio.IntBuffer // Reusable buffer for format conversion
}

// NewRecorder creates a stopped recorder. bitDepth must be 16, 24 or 32.
func NewRecorder(sampleRate, channels, bitDepth int) (*Recorder, error) {
	switch bitDepth {
	case 16, 24, 32:
	default:
		return nil, fmt.Errorf("unsupported bit depth %d", bitDepth)
	}
	if sampleRate <= 0 || channels <= 0 {
		return nil, fmt.Errorf("invalid recording format %d Hz, %d channels", sampleRate, channels)
	}
	return &Recorder{sampleRate: sampleRate, channels: channels, bitDepth: bitDepth}, nil
}

// Recording reports whether a file is open.
func (r *Recorder) Recording() bool { return atomic.LoadInt32(&r.isRecording) == 1 }

// Filename returns the current or last recording's path.
func (r *Recorder) Filename() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.filename
}

// Start creates filename and begins accepting samples.
func (r *Recorder) Start(filename string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if atomic.LoadInt32(&r.isRecording) == 1 {
		return ErrAlreadyRecording
	}

	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create recording: %w", err)
	}
	r.outputFile = file
	r.filename = filename
	r.wavEncoder = wav.NewEncoder(file, r.sampleRate, r.bitDepth, r.channels, 1)
	if r.sampleBuf == nil {
		r.sampleBuf = &audio.IntBuffer{
			Format: &audio.Format{
				NumChannels: r.channels,
				SampleRate:  r.sampleRate,
			},
			SourceBitDepth: r.bitDepth,
		}
	}

	atomic.StoreInt32(&r.isRecording, 1)
	logger.Infof("recording to %s (%d Hz, %d ch, %d bit)", filename, r.sampleRate, r.channels, r.bitDepth)
	return nil
}

// Write converts samples (interleaved, [-1, 1]) and appends them to the file.
// It is a no-op while stopped. After the first call with a given buffer size it
// does not allocate.
func (r *Recorder) Write(samples []float32) error {
	if atomic.LoadInt32(&r.isRecording) == 0 {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.wavEncoder == nil {
		return nil
	}

	if cap(r.sampleBuf.Data) < len(samples) {
		r.sampleBuf.Data = make([]int, len(samples))
	}
	r.sampleBuf.Data = r.sampleBuf.Data[:len(samples)]
	peak := float64(int64(1)<<(r.bitDepth-1) - 1)
	for i, s := range samples {
		v := math.Max(-1, math.Min(1, float64(s)))
		r.sampleBuf.Data[i] = int(v * peak)
	}
	if err := r.wavEncoder.Write(r.sampleBuf); err != nil {
		return fmt.Errorf("failed to write recording: %w", err)
	}
	return nil
}

// Stop finalizes the WAV header and closes the file.
func (r *Recorder) Stop() error {
	if atomic.LoadInt32(&r.isRecording) == 0 {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	atomic.StoreInt32(&r.isRecording, 0)

	if r.wavEncoder != nil {
		if err := r.wavEncoder.Close(); err != nil {
			return err
		}
		r.wavEncoder = nil
	}
	if r.outputFile != nil {
		if err := r.outputFile.Close(); err != nil {
			return err
		}
		r.outputFile = nil
	}
	logger.Infof("recording saved to %s", r.filename)
	return nil
}
