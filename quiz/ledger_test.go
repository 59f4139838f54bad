package quiz

import (
	"errors"
	"strings"
	"testing"
)

func TestLedgerAddDefaults(t *testing.T) {
	var l Ledger

	first, err := l.Add("", "")
	if err != nil {
		t.Fatal(err)
	}
	if first.Name != "Team 1" || first.Color != Palette[0] || first.Points != BaselinePoints {
		t.Errorf("first team = %+v", first)
	}
	if first.ID == "" {
		t.Error("team id is empty")
	}

	second, err := l.Add("  Owls ", "")
	if err != nil {
		t.Fatal(err)
	}
	if second.Name != "Owls" || second.Color != Palette[1] {
		t.Errorf("second team = %+v", second)
	}
}

func TestLedgerPaletteSkipsUsedColors(t *testing.T) {
	var l Ledger

	if _, err := l.Add("A", strings.ToLower(Palette[0])); err != nil {
		t.Fatal(err)
	}
	b, err := l.Add("B", "")
	if err != nil {
		t.Fatal(err)
	}
	if b.Color != Palette[1] {
		t.Errorf("color = %q, want %q", b.Color, Palette[1])
	}
}

func TestLedgerPaletteExhausted(t *testing.T) {
	var l Ledger
	for range Palette {
		if _, err := l.Add("", ""); err != nil {
			t.Fatal(err)
		}
	}

	extra, err := l.Add("", "")
	if err != nil {
		t.Fatal(err)
	}
	if extra.Color != DefaultColor {
		t.Errorf("color = %q, want %q", extra.Color, DefaultColor)
	}
}

func TestLedgerValidation(t *testing.T) {
	var l Ledger

	if _, err := l.Add(strings.Repeat("x", maxTeamName+1), ""); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("long name: err = %v", err)
	}
	if _, err := l.Add("ok", strings.Repeat("#", maxColorValue+1)); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("long color: err = %v", err)
	}
	if len(l) != 0 {
		t.Errorf("rejected teams were added: %d", len(l))
	}

	team, _ := l.Add("ok", "")
	if _, err := l.Rename(team.ID, "   "); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("blank rename: err = %v", err)
	}
	if _, err := l.Rename("nope", "x"); !errors.Is(err, ErrNotFound) {
		t.Errorf("rename missing: err = %v", err)
	}
	if _, err := l.Recolor("nope", "#000"); !errors.Is(err, ErrNotFound) {
		t.Errorf("recolor missing: err = %v", err)
	}
}

func TestLedgerApplyAndReset(t *testing.T) {
	var l Ledger
	a, _ := l.Add("A", "")
	b, _ := l.Add("B", "")

	if err := l.Apply(a.ID, 40); err != nil {
		t.Fatal(err)
	}
	if err := l.Apply(b.ID, 101); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("apply 101: err = %v", err)
	}
	if err := l.Apply("nope", 10); !errors.Is(err, ErrNotFound) {
		t.Errorf("apply missing: err = %v", err)
	}

	if got, _ := l.Team(a.ID); got.Points != 40 {
		t.Errorf("points = %d, want 40", got.Points)
	}

	l.ResetAll()
	for _, team := range l {
		if team.Points != BaselinePoints {
			t.Errorf("%s points = %d after reset", team.Name, team.Points)
		}
	}
}

func TestLedgerRemove(t *testing.T) {
	var l Ledger
	a, _ := l.Add("A", "")
	b, _ := l.Add("B", "")

	if _, err := l.Remove(a.ID); err != nil {
		t.Fatal(err)
	}
	if len(l) != 1 || l[0].ID != b.ID {
		t.Errorf("ledger after remove = %+v", l)
	}
	if _, err := l.Remove(a.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second remove: err = %v", err)
	}
}
