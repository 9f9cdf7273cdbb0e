// SPDX-License-Identifier: MIT
package pipeline

import (
	"errors"
	"strings"
	"testing"

	"ringvis/internal/visual"
)

func TestControlQueuesUntilNextTick(t *testing.T) {
	p := newTestPipeline(t, testConfig())
	if err := p.Control(ActionPress, testNote); err != nil {
		t.Fatalf("Control: %v", err)
	}
	k, _ := p.Keyboard().Key(testNote)
	if k.Lit() {
		t.Fatal("press applied outside the loop")
	}
	p.Loop().Step(0.016)
	if !k.Lit() {
		t.Fatal("press not applied on the next tick")
	}

	if err := p.Control(ActionRelease, testNote); err != nil {
		t.Fatal(err)
	}
	p.Loop().Step(0.016)
	if k.Lit() {
		t.Error("release not applied")
	}
}

func TestControlColor(t *testing.T) {
	p := newTestPipeline(t, testConfig())
	if err := p.Control(ActionColorOff, 0); err != nil {
		t.Fatal(err)
	}
	p.Loop().Step(0.016)
	if p.Cycle().State() != visual.Idle {
		t.Errorf("state = %s, want idle", p.Cycle().State())
	}
	if err := p.Control(ActionColorOn, 0); err != nil {
		t.Fatal(err)
	}
	p.Loop().Step(0.016)
	if p.Cycle().State() != visual.Cycling {
		t.Errorf("state = %s, want cycling", p.Cycle().State())
	}
}

func TestControlRejects(t *testing.T) {
	p := newTestPipeline(t, testConfig())
	if err := p.Control("explode", 60); !errors.Is(err, ErrUnknownAction) {
		t.Errorf("unknown action error = %v", err)
	}
	if err := p.Control(ActionTap, 5); err == nil || !strings.Contains(err.Error(), "outside keyboard range") {
		t.Errorf("out of range note error = %v", err)
	}
}

func TestFrameSummary(t *testing.T) {
	f := Frame{Seq: 4, Active: 2, Heights: []float32{1, 7.5, 3}, Hex: "#ff0000", Lit: []int{60}}
	got := f.Summary()
	for _, want := range []string{"frame 4", "2 active", "peak 7.50", "#ff0000", "1 lit"} {
		if !strings.Contains(got, want) {
			t.Errorf("Summary() = %q, missing %q", got, want)
		}
	}
}
