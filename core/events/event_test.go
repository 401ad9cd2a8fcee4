package events

import (
	"testing"

	"github.com/holiman/uint256"

	"gridledger/core/types"
)

type sample struct{ n string }

func (sample) EventType() string { return "sample" }

func (s sample) Event() *types.Event {
	return &types.Event{Type: "sample", Attributes: map[string]string{"n": s.n}}
}

type bare struct{}

func (bare) EventType() string { return "bare" }

func TestRecorderKeepsEmissionOrder(t *testing.T) {
	rec := &Recorder{}
	rec.Emit(sample{n: "1"})
	rec.Emit(bare{})
	rec.Emit(sample{n: "2"})
	got := rec.Events()
	if len(got) != 2 {
		t.Fatalf("expected 2 events, got %d", len(got))
	}
	if got[0].Attributes["n"] != "1" || got[1].Attributes["n"] != "2" {
		t.Fatalf("unexpected order: %+v", got)
	}
	rec.Reset()
	if len(rec.Events()) != 0 {
		t.Fatalf("expected empty recorder after reset")
	}
}

func TestFormatAmount(t *testing.T) {
	if FormatAmount(nil) != "0" {
		t.Fatalf("nil amount should render as zero")
	}
	if got := FormatAmount(uint256.NewInt(1500)); got != "1500" {
		t.Fatalf("unexpected amount %s", got)
	}
}
