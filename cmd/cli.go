// SPDX-License-Identifier: MIT
package cmd

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"ringvis/internal/config"
	applog "ringvis/internal/log"
	"ringvis/pkg/build"

	"github.com/spf13/cobra"
)

// Commands selected on the command line.
const (
	CommandRun    = "run"
	CommandList   = "list"
	CommandRender = "render"
)

// Options is the parsed command line: the command to run and the configuration
// it runs with.
type Options struct {
	Command    string
	ConfigPath string
	Config     *config.Config
	Verbose    bool

	// list
	Interactive bool

	// render
	RenderDuration time.Duration
	RenderNotes    []int
	RenderSpacing  time.Duration
}

// flagValues holds flags that override the loaded configuration when set.
type flagValues struct {
	inputDevice  int
	outputDevice int
	sampleRate   float64
	input        bool
	output       bool
	record       bool
	outputFile   string
	noTUI        bool
	udp          bool
	udpTarget    string
	wsAddr       string
	logLevel     string
	notes        string
}

// ParseArgs parses os.Args.
func ParseArgs() (*Options, error) {
	return Parse(os.Args[1:])
}

// Parse builds Options from args. The configuration file is loaded first, then
// flags given explicitly on the command line win over it.
func Parse(args []string) (*Options, error) {
	buildInfo := build.GetBuildFlags()
	options := &Options{Command: CommandRun}
	var fv flagValues

	rootCmd := &cobra.Command{
		Use:           buildInfo.Name,
		Short:         buildInfo.Description,
		Version:       buildInfo.Version,
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(options.ConfigPath)
			if err != nil {
				return err
			}
			if err := fv.apply(cmd.Flags().Changed, cfg); err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			options.Config = cfg
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			options.Command = CommandRun
			return nil
		},
	}

	// Display help message
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	// List command
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List available audio devices",
		RunE: func(cmd *cobra.Command, args []string) error {
			options.Command = CommandList
			return nil
		},
	}
	listCmd.Flags().BoolVarP(&options.Interactive, "interactive", "i", false,
		"Pick a device interactively and print the matching configuration")
	rootCmd.AddCommand(listCmd)

	// Render command
	renderCmd := &cobra.Command{
		Use:   "render",
		Short: "Render scripted key taps to a WAV file without audio hardware",
		RunE: func(cmd *cobra.Command, args []string) error {
			options.Command = CommandRender
			notes, err := parseNotes(fv.notes)
			if err != nil {
				return err
			}
			options.RenderNotes = notes
			if options.RenderDuration <= 0 {
				return fmt.Errorf("--duration must be positive")
			}
			return nil
		},
	}
	renderCmd.Flags().DurationVar(&options.RenderDuration, "duration", 5*time.Second, "Length of the render")
	renderCmd.Flags().StringVar(&fv.notes, "notes", "60,64,67,72", "Comma separated MIDI notes to tap")
	renderCmd.Flags().DurationVar(&options.RenderSpacing, "spacing", 250*time.Millisecond, "Delay between taps")
	rootCmd.AddCommand(renderCmd)

	// Configuration
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&options.ConfigPath, "config", "", "Path to a YAML config file (default ringvis.yaml or config.yaml)")

	// Audio Device Configuration
	pf.IntVarP(&fv.inputDevice, "device", "d", config.MinDeviceID,
		"Specify input device ID. Use 'list' command to see available devices.")
	pf.IntVar(&fv.outputDevice, "output-device", config.MinDeviceID, "Output device ID")
	pf.Float64VarP(&fv.sampleRate, "sample-rate", "s", 44100, "Sample rate, measured in Hertz (Hz)")
	pf.BoolVar(&fv.input, "input", false, "Capture the input device as an extra sound source")
	pf.BoolVar(&fv.output, "play", false, "Play the piano voices through the output device")

	// Recording Configuration
	pf.BoolVarP(&fv.record, "record", "r", false, "Record the output mix")
	pf.StringVarP(&fv.outputFile, "output", "o", "",
		"Output file name. Default is recording-DD-MM-YYYY-HHMMSS.wav")

	// Transport Configuration
	pf.BoolVar(&fv.udp, "udp", false, "Publish frames over UDP")
	pf.StringVar(&fv.udpTarget, "udp-target", "", "UDP target address host:port")
	pf.StringVar(&fv.wsAddr, "ws-addr", "", "WebSocket listen address, empty string in config disables")

	// UI and Debug Configuration
	pf.BoolVar(&fv.noTUI, "no-tui", false, "Run headless without the terminal visualizer")
	pf.StringVar(&fv.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	pf.BoolVarP(&options.Verbose, "verbose", "v", false, "Show verbose output")

	rootCmd.SetArgs(args)
	if err := rootCmd.Execute(); err != nil {
		return nil, err
	}
	if options.Config == nil {
		// --help and --version stop before any command runs.
		return nil, nil
	}
	return options, nil
}

// apply copies the flags the user set onto cfg.
func (fv *flagValues) apply(changed func(name string) bool, cfg *config.Config) error {
	if changed("device") {
		cfg.Audio.InputDevice = fv.inputDevice
	}
	if changed("output-device") {
		cfg.Audio.OutputDevice = fv.outputDevice
	}
	if changed("sample-rate") {
		cfg.Audio.SampleRate = fv.sampleRate
	}
	if changed("input") {
		cfg.Audio.InputEnabled = fv.input
	}
	if changed("play") {
		cfg.Audio.OutputEnabled = fv.output
	}
	if changed("record") {
		cfg.Recording.Enabled = fv.record
	}
	if changed("output") {
		cfg.Recording.OutputFile = fv.outputFile
	}
	if changed("udp") {
		cfg.Transport.UDPEnabled = fv.udp
	}
	if changed("udp-target") {
		cfg.Transport.UDPTargetAddress = fv.udpTarget
	}
	if changed("ws-addr") {
		cfg.Transport.WebSocketAddress = fv.wsAddr
		cfg.Transport.WebSocketEnabled = fv.wsAddr != ""
	}
	if changed("no-tui") {
		cfg.TUI.Enabled = !fv.noTUI
	}
	if changed("log-level") {
		if _, ok := applog.ParseLevel(fv.logLevel); !ok {
			return fmt.Errorf("invalid --log-level %q", fv.logLevel)
		}
		cfg.LogLevel = fv.logLevel
	}
	return nil
}

func parseNotes(s string) ([]int, error) {
	var notes []int
	for _, field := range strings.Split(s, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		n, err := strconv.Atoi(field)
		if err != nil {
			return nil, fmt.Errorf("invalid note %q: %w", field, err)
		}
		notes = append(notes, n)
	}
	return notes, nil
}
