// SPDX-License-Identifier: MIT
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ringvis/cmd"
	"ringvis/internal/audio"
	"ringvis/internal/config"
	"ringvis/internal/keys"
	applog "ringvis/internal/log"
	"ringvis/internal/pipeline"
	"ringvis/internal/render"
	"ringvis/internal/spectrum"
	"ringvis/internal/transport"
	"ringvis/internal/transport/udp"
	"ringvis/internal/tui"
	"ringvis/pkg/build"

	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"
)

var logger = applog.For("main")

// main is the entry point for the visualizer.
// The program flow is divided into three distinct phases:
//
// 1. Startup Phase (Cold Path):
//   - Initialize build information
//   - Parse command line arguments and configuration
//   - Execute one-off commands if requested
//   - Load the piano clips and build the pipeline
//
// 2. Concurrent Phase (Hot Path):
//   - Start the audio engine, if any device is used
//   - Run the frame loop, transports and the terminal UI
//
// 3. Shutdown Phase (Cold Path):
//   - Handle termination signals
//   - Stop recording if active
//   - Close transports and audio streams
func main() {
	// ==================== STARTUP PHASE (Cold Path) ====================

	if err := build.Initialize(); err != nil && !errors.Is(err, build.ErrIncomplete) {
		applog.Fatalf("%v", err)
	}

	opts, err := cmd.ParseArgs()
	if err != nil {
		applog.Fatalf("%v", err)
	}
	if opts == nil {
		return
	}
	cfg := opts.Config
	configureLogging(cfg, opts.Verbose)
	logger.Debugf("%s", build.GetBuildFlags())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch opts.Command {
	case cmd.CommandList:
		err = listDevices(opts.Interactive)
	case cmd.CommandRender:
		err = renderOffline(ctx, cfg, opts)
	default:
		err = run(ctx, cfg)
	}
	if err != nil {
		applog.Fatalf("%v", err)
	}
}

func configureLogging(cfg *config.Config, verbose bool) {
	level, ok := applog.ParseLevel(cfg.LogLevel)
	if !ok {
		logger.Warnf("unknown log level %q, using %s", cfg.LogLevel, level)
	}
	if verbose || cfg.Debug {
		level = applog.LevelDebug
	}
	applog.SetLevel(level)
}

func loadClips(cfg *config.Config) map[int]*keys.Clip {
	start := time.Now()
	clips := keys.LoadClips(cfg.Keys.ClipDir, cfg.Keys.ClipPattern, keys.Notes())
	logger.Infof("loaded %d clips from %s in %s", len(clips), cfg.Keys.ClipDir, time.Since(start).Round(time.Millisecond))
	return clips
}

// listDevices handles the one-off list command, which does not need the
// pipeline.
func listDevices(interactive bool) error {
	if err := audio.Initialize(); err != nil {
		return err
	}
	defer audio.Terminate()

	if !interactive {
		return audio.ListDevices(os.Stdout)
	}

	sel, ok, err := tui.PickDevice()
	if err != nil || !ok {
		return err
	}
	snippet := struct {
		Audio struct {
			InputEnabled  bool    `yaml:"input_enabled,omitempty"`
			OutputEnabled bool    `yaml:"output_enabled,omitempty"`
			InputDevice   *int    `yaml:"input_device,omitempty"`
			OutputDevice  *int    `yaml:"output_device,omitempty"`
			SampleRate    float64 `yaml:"sample_rate"`
		} `yaml:"audio"`
	}{}
	id := sel.Device.ID
	if sel.Device.MaxInputChannels > 0 {
		snippet.Audio.InputEnabled = true
		snippet.Audio.InputDevice = &id
	}
	if sel.Device.MaxOutputChannels > 0 {
		snippet.Audio.OutputEnabled = true
		snippet.Audio.OutputDevice = &id
	}
	snippet.Audio.SampleRate = sel.SampleRate

	out, err := yaml.Marshal(snippet)
	if err != nil {
		return err
	}
	fmt.Printf("# %s (%s)\n%s", sel.Device.Name, sel.Device.Kind(), out)
	return nil
}

func renderOffline(ctx context.Context, cfg *config.Config, opts *cmd.Options) error {
	output := cfg.Recording.OutputFile
	if output == "" {
		output = audio.RecordingFilename(time.Now())
	}
	res, err := render.Render(ctx, *cfg, loadClips(cfg), render.Options{
		Output:   output,
		Duration: opts.RenderDuration,
		Notes:    opts.RenderNotes,
		Spacing:  opts.RenderSpacing,
	})
	if err != nil {
		return err
	}
	fmt.Printf("Rendered %s (%d ticks, peak bar %.1f) to %s\n",
		time.Duration(res.Ticks)*cfg.TickInterval(), res.Ticks, res.PeakHeight, output)
	return nil
}

func run(ctx context.Context, cfg *config.Config) error {
	clips := loadClips(cfg)

	var (
		p        *pipeline.Pipeline
		opts     []pipeline.Option
		closers  []io.Closer
		input    *audio.Input
		recorder *audio.Recorder
	)

	useAudio := cfg.Audio.InputEnabled || cfg.Audio.OutputEnabled
	if useAudio {
		if err := audio.Initialize(); err != nil {
			return err
		}
		defer audio.Terminate()
	}
	if cfg.Audio.InputEnabled {
		input = audio.NewInput(cfg.Audio.InputChannels, 4*cfg.Spectrum.SampleLength, audio.NewGate(cfg.Audio.GateThreshold))
		opts = append(opts, pipeline.WithSources(input))
	}

	var ws *transport.WebSocketTransport
	if cfg.Transport.WebSocketEnabled {
		ws = transport.NewWebSocketTransport(cfg.Transport.WebSocketAddress, func(c transport.Command) {
			if err := p.Control(c.Action, c.Note); err != nil {
				logger.Warnf("ignoring command %+v: %v", c, err)
			}
		})
		opts = append(opts, pipeline.WithSinks(ws))
	} else if !cfg.Transport.UDPEnabled && !cfg.TUI.Enabled {
		opts = append(opts, pipeline.WithSinks(transport.NewLoggingTransport(int(cfg.Frame.TickRate))))
	}

	var err error
	p, err = pipeline.New(cfg, clips, opts...)
	if err != nil {
		return err
	}

	if cfg.Recording.Enabled {
		if !cfg.Audio.OutputEnabled {
			logger.Warnf("recording needs audio output, not recording")
		} else if recorder, err = audio.NewRecorder(int(cfg.Audio.SampleRate), cfg.Audio.OutputChannels, cfg.Recording.BitDepth); err != nil {
			return err
		}
	}

	// ==================== CONCURRENT PHASE (Hot Path) ====================

	ready := make(chan struct{})
	var engine *audio.Engine
	if useAudio {
		engine, err = audio.NewEngine(cfg.Audio, input, p.Keyboard(), recorder)
		if err != nil {
			return err
		}
		// CRITICAL: Start of real-time audio processing
		if err := engine.Start(); err != nil {
			engine.Close()
			return err
		}
		defer func() {
			if err := engine.Close(); err != nil {
				logger.Errorf("error closing audio engine: %v", err)
			}
			if recorder != nil {
				fmt.Printf("\nRecording saved to: %s\n", recorder.Filename())
			}
		}()
		if recorder != nil {
			filename := cfg.Recording.OutputFile
			if filename == "" {
				filename = audio.RecordingFilename(time.Now())
			}
			if err := engine.StartRecording(filename); err != nil {
				return err
			}
		}
	}
	close(ready)

	if ws != nil {
		if err := ws.Start(); err != nil {
			return err
		}
		closers = append(closers, ws)
	}

	if cfg.Transport.UDPEnabled {
		sender, err := udp.NewUDPSender(cfg.Transport.UDPTargetAddress)
		if err != nil {
			return err
		}
		pub, err := udp.NewUDPPublisher(cfg.Transport.UDPSendInterval, sender, p)
		if err != nil {
			sender.Close()
			return err
		}
		pub.Start()
		closers = append(closers, sender, pub)
	}

	g, gctx := errgroup.WithContext(ctx)
	gctx, cancel := context.WithCancel(gctx)
	defer cancel()

	g.Go(func() error {
		return p.Run(gctx, ready)
	})

	if cfg.TUI.Enabled {
		applog.SetOutput(io.Discard)
		g.Go(func() error {
			defer cancel()
			defer applog.SetOutput(os.Stderr)
			return tui.RunVisualizer(gctx, p, cfg.TUI.Columns)
		})
	} else {
		logger.Infof("%s running headless, %d sources, ctrl+c to stop", build.GetBuildFlags().Name, len(p.Sources()))
	}

	err = g.Wait()

	// ==================== SHUTDOWN PHASE (Cold Path) ====================

	for i := len(closers) - 1; i >= 0; i-- {
		if cerr := closers[i].Close(); cerr != nil {
			logger.Errorf("error during shutdown: %v", cerr)
		}
	}
	logger.Infof("stopped after %d ticks (%d active sources at exit)", p.Loop().Ticks(), activeSources(p.Sources()))
	return err
}

func activeSources(sources []spectrum.Source) int {
	n := 0
	for _, s := range sources {
		if s.Playing() {
			n++
		}
	}
	return n
}
