// SPDX-License-Identifier: MIT
/*
Package render plays a scripted sequence of key taps through the pipeline
without audio hardware, writing the mixed output to a WAV file. Ticks run
back to back instead of on the wall clock.
*/
package render

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"ringvis/internal/audio"
	"ringvis/internal/config"
	"ringvis/internal/keys"
	applog "ringvis/internal/log"
	"ringvis/internal/pipeline"
)

var logger = applog.For("render")

// Options describes one offline render.
type Options struct {
	Output   string        // WAV file to write.
	Duration time.Duration // Total length rendered.
	Notes    []int         // Notes tapped in order.
	Spacing  time.Duration // Delay between consecutive taps; 0 taps all at once.
}

// Result summarizes a finished render.
type Result struct {
	Ticks      int
	Frames     int     // Audio frames written per channel.
	PeakHeight float32 // Tallest bar seen during the render.
	Last       pipeline.Frame
}

// Render builds a pipeline from cfg and clips, feeds it the scheduled taps and
// records the output mix. The keyboard is driven by the mix, as it is when an
// output device is open.
func Render(ctx context.Context, cfg config.Config, clips map[int]*keys.Clip, opts Options) (Result, error) {
	if opts.Duration <= 0 {
		return Result{}, errors.New("render duration must be positive")
	}
	cfg.Audio.OutputEnabled = true
	channels := max(1, cfg.Audio.OutputChannels)
	sampleRate := cfg.Audio.SampleRate

	p, err := pipeline.New(&cfg, clips)
	if err != nil {
		return Result{}, err
	}
	recorder, err := audio.NewRecorder(int(sampleRate), channels, cfg.Recording.BitDepth)
	if err != nil {
		return Result{}, err
	}
	if err := recorder.Start(opts.Output); err != nil {
		return Result{}, err
	}

	ready := make(chan struct{})
	close(ready)
	if err := p.Discover(ctx, ready); err != nil {
		recorder.Stop()
		return Result{}, err
	}

	dt := cfg.TickInterval().Seconds()
	ticks := int(math.Ceil(opts.Duration.Seconds()/dt - 1e-6))
	maxFrames := int(math.Ceil(dt*sampleRate)) + 1
	buf := make([]float32, maxFrames*channels)

	var res Result
	next := 0
	for i := range ticks {
		if err := ctx.Err(); err != nil {
			recorder.Stop()
			return res, err
		}
		now := float64(i) * dt
		for next < len(opts.Notes) && float64(next)*opts.Spacing.Seconds() <= now {
			if err := p.Control(pipeline.ActionTap, opts.Notes[next]); err != nil {
				logger.Warnf("skipping note %d: %v", opts.Notes[next], err)
			}
			next++
		}

		p.Loop().Step(dt)

		frames := int(math.Round(float64(i+1)*dt*sampleRate)) - int(math.Round(now*sampleRate))
		out := buf[:frames*channels]
		p.Keyboard().Mix(out, channels)
		audio.SoftClip(out)
		if err := recorder.Write(out); err != nil {
			recorder.Stop()
			return res, fmt.Errorf("failed to write audio: %w", err)
		}
		res.Frames += frames

		p.FrameInto(&res.Last)
		for _, h := range res.Last.Heights {
			res.PeakHeight = max(res.PeakHeight, h)
		}
	}
	res.Ticks = ticks

	if err := recorder.Stop(); err != nil {
		return res, err
	}
	logger.Infof("rendered %d ticks, %d frames to %s", res.Ticks, res.Frames, opts.Output)
	return res, nil
}
