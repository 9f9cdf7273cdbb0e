// SPDX-License-Identifier: MIT
/*
Package audio connects the visualizer to sound hardware through PortAudio:
- Capture of a live input, noise gated, exposed as a spectrum source
- Output of the piano voices mixed in the output callback
- WAV recording of the output mix with atomic state management

Thread Safety:
- Callbacks only touch pre-allocated buffers
- Gate and recording state are atomic
- Callbacks lock their OS thread while running
*/
package audio

import (
	"errors"
	"fmt"
	"math"
	"runtime"
	"time"

	"ringvis/internal/config"
	applog "ringvis/internal/log"

	"github.com/gordonklaus/portaudio"
)

var logger = applog.For("audio")

// Mixer fills an interleaved output buffer. It is called from the output
// callback.
type Mixer interface {
	Mix(out []float32, channels int)
}

type Engine struct {
	// Core configuration and state.
	config config.AudioConfig

	// Audio input handling.
	input        *Input
	inputDevice  *portaudio.DeviceInfo
	inputLatency time.Duration
	inputStream  *portaudio.Stream

	// Audio output handling.
	mixer         Mixer
	outputDevice  *portaudio.DeviceInfo
	outputLatency time.Duration
	outputStream  *portaudio.Stream

	recorder *Recorder
}

// NewEngine resolves the configured devices. input is required when capture is
// enabled, mixer when output is enabled. PortAudio must be initialized.
func NewEngine(cfg config.AudioConfig, input *Input, mixer Mixer, recorder *Recorder) (*Engine, error) {
	e := &Engine{config: cfg, input: input, mixer: mixer, recorder: recorder}

	if cfg.InputEnabled {
		if input == nil {
			return nil, errors.New("capture enabled without an input")
		}
		dev, err := InputDevice(cfg.InputDevice)
		if err != nil {
			return nil, fmt.Errorf("input device: %w", err)
		}
		e.inputDevice = dev
		e.inputLatency = dev.DefaultHighInputLatency
		if cfg.LowLatency {
			e.inputLatency = dev.DefaultLowInputLatency
		}
	}

	if cfg.OutputEnabled {
		if mixer == nil {
			return nil, errors.New("output enabled without a mixer")
		}
		dev, err := OutputDevice(cfg.OutputDevice)
		if err != nil {
			return nil, fmt.Errorf("output device: %w", err)
		}
		e.outputDevice = dev
		e.outputLatency = dev.DefaultHighOutputLatency
		if cfg.LowLatency {
			e.outputLatency = dev.DefaultLowOutputLatency
		}
	}
	return e, nil
}

// Start opens and starts the enabled streams.
func (e *Engine) Start() error {
	if e.inputDevice != nil {
		if err := e.startInputStream(); err != nil {
			return fmt.Errorf("failed to start capture: %w", err)
		}
		logger.Infof("capturing from %s", e.inputDevice.Name)
	}
	if e.outputDevice != nil {
		if err := e.startOutputStream(); err != nil {
			return fmt.Errorf("failed to start output: %w", err)
		}
		logger.Infof("playing through %s", e.outputDevice.Name)
	}
	return nil
}

func (e *Engine) startInputStream() error {
	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Channels: e.config.InputChannels,
			Device:   e.inputDevice,
			Latency:  e.inputLatency,
		},
		FramesPerBuffer: e.config.FramesPerBuffer,
		SampleRate:      e.config.SampleRate,
	}

	stream, err := portaudio.OpenStream(params, e.processInputStream)
	if err != nil {
		return err
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return err
	}
	e.inputStream = stream
	return nil
}

func (e *Engine) startOutputStream() error {
	params := portaudio.StreamParameters{
		Output: portaudio.StreamDeviceParameters{
			Channels: e.config.OutputChannels,
			Device:   e.outputDevice,
			Latency:  e.outputLatency,
		},
		FramesPerBuffer: e.config.FramesPerBuffer,
		SampleRate:      e.config.SampleRate,
	}

	stream, err := portaudio.OpenStream(params, e.processOutputStream)
	if err != nil {
		return err
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return err
	}
	e.outputStream = stream
	return nil
}

// processInputStream is the capture callback.
// Performance Critical:
// - Runs in a dedicated OS thread (LockOSThread)
// - Uses pre-allocated buffers only
func (e *Engine) processInputStream(in []int32) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	e.input.Write(in)
}

// processOutputStream is the playback callback: mix, limit, record.
func (e *Engine) processOutputStream(out []float32) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	e.renderOutput(out)
}

func (e *Engine) renderOutput(out []float32) {
	e.mixer.Mix(out, e.config.OutputChannels)
	SoftClip(out)

	if e.recorder != nil && e.recorder.Recording() {
		if err := e.recorder.Write(out); err != nil {
			logger.Errorf("error writing to WAV file: %v", err)
		}
	}
}

// SoftClip limits samples to (-1, 1) with a tanh curve above 0.5 so stacked
// voices do not wrap.
func SoftClip(buf []float32) {
	for i, s := range buf {
		switch {
		case s > 0.5:
			buf[i] = 0.5 + 0.5*float32(math.Tanh(float64(s-0.5)*2))
		case s < -0.5:
			buf[i] = -0.5 - 0.5*float32(math.Tanh(float64(-s-0.5)*2))
		}
	}
}

// StartRecording records the output mix to filename.
func (e *Engine) StartRecording(filename string) error {
	if e.recorder == nil {
		return errors.New("no recorder configured")
	}
	return e.recorder.Start(filename)
}

// StopRecording finalizes an active recording.
func (e *Engine) StopRecording() error {
	if e.recorder == nil {
		return nil
	}
	return e.recorder.Stop()
}

// Close stops recording and both streams.
func (e *Engine) Close() error {
	var errs []error
	if err := e.StopRecording(); err != nil {
		errs = append(errs, err)
	}
	if err := stopStream(&e.inputStream); err != nil {
		errs = append(errs, fmt.Errorf("input stream: %w", err))
	}
	if err := stopStream(&e.outputStream); err != nil {
		errs = append(errs, fmt.Errorf("output stream: %w", err))
	}
	return errors.Join(errs...)
}

func stopStream(s **portaudio.Stream) error {
	if *s == nil {
		return nil
	}
	if err := (*s).Stop(); err != nil {
		return err
	}
	if err := (*s).Close(); err != nil {
		return err
	}
	*s = nil
	return nil
}
