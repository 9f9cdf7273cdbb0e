// SPDX-License-Identifier: MIT
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"ringvis/internal/keys"
	"ringvis/internal/pipeline"
	"ringvis/internal/visual"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// RefreshInterval is how often the view re-reads the latest frame.
const RefreshInterval = 33 * time.Millisecond

const (
	defaultRows   = 12
	defaultOctave = 60
	keyRow        = "awsedftgyhujk" // One octave plus the top C, laid out like a piano.
)

var blocks = []rune(" ▁▂▃▄▅▆▇█")

var (
	keyStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFDF5"))
	blackStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#808080"))
	litStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#1A1A1A")).Background(lipgloss.Color("#25A065")).Bold(true)
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#A0A0A0"))
)

type visualizerKeys struct {
	Play     key.Binding
	Octave   key.Binding
	Color    key.Binding
	Quit     key.Binding
	OctaveUp key.Binding
	OctaveDn key.Binding
}

func (k visualizerKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.Play, k.Octave, k.Color, k.Quit}
}

func (k visualizerKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

var defaultKeys = visualizerKeys{
	Play:     key.NewBinding(key.WithKeys(strings.Split(keyRow, "")...), key.WithHelp("a-k", "play")),
	Octave:   key.NewBinding(key.WithKeys("z", "x"), key.WithHelp("z/x", "octave")),
	OctaveDn: key.NewBinding(key.WithKeys("z")),
	OctaveUp: key.NewBinding(key.WithKeys("x")),
	Color:    key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "colour cycle")),
	Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

type tickMsg time.Time

// VisualizerModel draws the bar ring as a row of columns tinted with the
// cycled colour, plus a playable octave of keys.
type VisualizerModel struct {
	p       *pipeline.Pipeline
	frame   pipeline.Frame
	rows    int
	octave  int // MIDI note of the leftmost key.
	cycling bool

	keys    visualizerKeys
	help    help.Model
	resized []float64
}

// NewVisualizerModel renders p with the bar ring resampled to columns.
func NewVisualizerModel(p *pipeline.Pipeline, columns int) VisualizerModel {
	if columns <= 0 {
		columns = len(p.Bars())
	}
	return VisualizerModel{
		p:       p,
		rows:    defaultRows,
		octave:  defaultOctave,
		cycling: p.Cycle().State() == visual.Cycling,
		keys:    defaultKeys,
		help:    help.New(),
		resized: make([]float64, columns),
	}
}

func tick() tea.Cmd {
	return tea.Tick(RefreshInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m VisualizerModel) Init() tea.Cmd {
	return tick()
}

func (m VisualizerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.help.Width = msg.Width
		if msg.Height > 8 {
			m.rows = min(defaultRows, msg.Height-6)
		}

	case tickMsg:
		m.p.FrameInto(&m.frame)
		return m, tick()

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Color):
			m.cycling = !m.cycling
			on := m.cycling
			cycle := m.p.Cycle()
			m.p.Post(func() {
				if on {
					cycle.Enable()
				} else {
					cycle.Disable()
				}
			})
		case key.Matches(msg, m.keys.OctaveDn):
			m.octave = max(keys.LowestNote, m.octave-12)
		case key.Matches(msg, m.keys.OctaveUp):
			m.octave = min(keys.HighestNote-len(keyRow)+1, m.octave+12)
		case key.Matches(msg, m.keys.Play):
			if note, ok := m.noteFor(msg.String()); ok {
				kb := m.p.Keyboard()
				m.p.Post(func() {
					if err := kb.Tap(note); err != nil {
						logger.Warnf("tap %d: %v", note, err)
					}
				})
			}
		}
	}
	return m, nil
}

// noteFor maps a key on the home row to a MIDI note in the current octave.
func (m VisualizerModel) noteFor(s string) (int, bool) {
	i := strings.Index(keyRow, s)
	if len(s) != 1 || i < 0 {
		return 0, false
	}
	note := m.octave + i
	if note < keys.LowestNote || note > keys.HighestNote {
		return 0, false
	}
	return note, true
}

func (m VisualizerModel) View() string {
	var sb strings.Builder

	ring := lipgloss.NewStyle()
	if m.frame.Hex != "" {
		ring = ring.Foreground(lipgloss.Color(m.frame.Hex))
	}
	Resample(m.resized, m.frame.Heights)
	sb.WriteString(ring.Render(RenderBars(m.resized, m.rows, visual.MaxBarHeight)))
	sb.WriteString("\n\n")
	sb.WriteString(m.renderKeys())
	sb.WriteString("\n\n")

	cycle := "off"
	if m.cycling {
		cycle = "on"
	}
	sb.WriteString(statusStyle.Render(fmt.Sprintf("frame %d  sources %d  colour %s (%s)  octave %s",
		m.frame.Seq, m.frame.Active, m.frame.Hex, cycle, keys.NoteName(m.octave))))
	sb.WriteString("\n")
	sb.WriteString(m.help.View(m.keys))
	return sb.String()
}

func (m VisualizerModel) renderKeys() string {
	lit := make(map[int]bool, len(m.frame.Lit))
	for _, n := range m.frame.Lit {
		lit[n] = true
	}
	cells := make([]string, 0, len(keyRow))
	for i, r := range keyRow {
		note := m.octave + i
		label := fmt.Sprintf(" %c ", r)
		switch {
		case lit[note]:
			cells = append(cells, litStyle.Render(label))
		case keys.IsWhite(note):
			cells = append(cells, keyStyle.Render(label))
		default:
			cells = append(cells, blackStyle.Render(label))
		}
	}
	return strings.Join(cells, "")
}

// Resample fills dst with heights spread across len(dst) columns. Each column
// shows the tallest bar it covers, so narrow peaks survive downsampling.
func Resample(dst []float64, heights []float32) {
	n := len(heights)
	cols := len(dst)
	if n == 0 {
		clear(dst)
		return
	}
	for c := range dst {
		lo := c * n / cols
		hi := (c + 1) * n / cols
		if hi <= lo {
			hi = lo + 1
		}
		peak := float32(0)
		for _, h := range heights[lo:hi] {
			peak = max(peak, h)
		}
		dst[c] = float64(peak)
	}
}

// RenderBars draws columns bottom-up with eighth-block glyphs. Values are
// scaled so that ceiling fills all rows.
func RenderBars(columns []float64, rows int, ceiling float64) string {
	if rows <= 0 || ceiling <= 0 {
		return ""
	}
	steps := len(blocks) - 1
	levels := make([]int, len(columns))
	for i, v := range columns {
		l := int(v / ceiling * float64(rows*steps))
		levels[i] = max(0, min(rows*steps, l))
	}

	var sb strings.Builder
	for r := rows - 1; r >= 0; r-- {
		base := r * steps
		for _, l := range levels {
			fill := max(0, min(steps, l-base))
			sb.WriteRune(blocks[fill])
		}
		if r > 0 {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

// RunVisualizer blocks until the user quits or ctx is cancelled.
func RunVisualizer(ctx context.Context, p *pipeline.Pipeline, columns int) error {
	prog := tea.NewProgram(NewVisualizerModel(p, columns), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := prog.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
