package quiz

import (
	"errors"
	"testing"
)

func TestScore(t *testing.T) {
	tests := []struct {
		name            string
		current, guess  int
		correct         int
		wantDiff, wantP int
	}{
		{"exact", 100, 70, 70, 0, 100},
		{"under", 100, 60, 70, 10, 90},
		{"over", 100, 90, 70, 20, 80},
		{"floor at zero", 15, 0, 100, 100, 0},
		{"lands on zero", 20, 30, 10, 20, 0},
		{"from zero", 0, 50, 50, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			diff, points, err := Score(tt.current, tt.guess, tt.correct)
			if err != nil {
				t.Fatalf("Score(%d, %d, %d): %v", tt.current, tt.guess, tt.correct, err)
			}
			if diff != tt.wantDiff || points != tt.wantP {
				t.Errorf("Score(%d, %d, %d) = (%d, %d), want (%d, %d)",
					tt.current, tt.guess, tt.correct, diff, points, tt.wantDiff, tt.wantP)
			}
		})
	}
}

func TestScoreBounds(t *testing.T) {
	for current := MinPercent; current <= MaxPercent; current += 5 {
		for guess := MinPercent; guess <= MaxPercent; guess++ {
			for correct := MinPercent; correct <= MaxPercent; correct += 7 {
				diff, points, err := Score(current, guess, correct)
				if err != nil {
					t.Fatalf("Score(%d, %d, %d): %v", current, guess, correct, err)
				}
				if diff < 0 || diff > MaxPercent {
					t.Fatalf("Score(%d, %d, %d) difference %d out of range", current, guess, correct, diff)
				}
				if points < MinPercent || points > current {
					t.Fatalf("Score(%d, %d, %d) points %d outside [0, %d]", current, guess, correct, points, current)
				}
				if guess == correct && points != current {
					t.Fatalf("exact guess changed points: %d -> %d", current, points)
				}
			}
		}
	}
}

func TestScoreRejectsOutOfRange(t *testing.T) {
	inputs := [][3]int{
		{101, 50, 50},
		{-1, 50, 50},
		{100, 101, 50},
		{100, -5, 50},
		{100, 50, 150},
		{100, 50, -1},
	}

	for _, in := range inputs {
		_, _, err := Score(in[0], in[1], in[2])
		if !errors.Is(err, ErrInvalidInput) {
			t.Errorf("Score(%v) error = %v, want InvalidInput", in, err)
		}
	}
}
