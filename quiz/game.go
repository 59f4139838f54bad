package quiz

import (
	"cmp"
	"slices"
	"strings"
	"time"
)

const (
	DefaultGameName = "New Game"
	maxGameName     = 100
)

// Game is the authoritative state of one quiz session. Version increases
// by one with every committed change so polling clients can tell whether
// anything moved since their last read.
type Game struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
	Version    int64       `json:"version"`
	Teams      Ledger      `json:"teams"`
	Questions  QuestionSet `json:"questions"`
	ShowResult bool        `json:"show_result"`
}

// Clone returns a deep copy that shares no slices with g.
func (g *Game) Clone() *Game {
	c := *g
	c.Teams = slices.Clone(g.Teams)
	c.Questions = make(QuestionSet, len(g.Questions))
	for i, q := range g.Questions {
		q.Answers = slices.Clone(q.Answers)
		c.Questions[i] = q
	}
	return &c
}

type Summary struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	CreatedAt     time.Time `json:"created_at"`
	TeamCount     int       `json:"team_count"`
	QuestionCount int       `json:"question_count"`
}

func (g *Game) Summary() Summary {
	return Summary{
		ID:            g.ID,
		Name:          g.Name,
		CreatedAt:     g.CreatedAt,
		TeamCount:     len(g.Teams),
		QuestionCount: len(g.Questions),
	}
}

type Standing struct {
	Team
	Rank int `json:"rank"`
}

// Standings orders teams by points, highest first. Teams with equal points
// share a rank and keep their ledger order.
func (g *Game) Standings() []Standing {
	teams := slices.Clone(g.Teams)
	slices.SortStableFunc(teams, func(a, b Team) int {
		return cmp.Compare(b.Points, a.Points)
	})

	out := make([]Standing, len(teams))
	for i, t := range teams {
		rank := i + 1
		if i > 0 && t.Points == teams[i-1].Points {
			rank = out[i-1].Rank
		}
		out[i] = Standing{Team: t, Rank: rank}
	}
	return out
}

// TeamResult is one row of a scored question.
type TeamResult struct {
	TeamID        string `json:"team_id"`
	TeamName      string `json:"team_name"`
	Answer        int    `json:"answer"`
	CorrectAnswer int    `json:"correct_answer"`
	Difference    int    `json:"difference"`
	NewPoints     int    `json:"new_points"`
}

// Result is derived from a question's stored answers and the ledger; it is
// never stored on its own.
type Result struct {
	QuestionID    string       `json:"question_id"`
	CorrectAnswer int          `json:"correct_answer"`
	Results       []TeamResult `json:"results"`
}

// SavedAnswer is what a control client needs to prefill a revision form.
type SavedAnswer struct {
	TeamID     string `json:"team_id"`
	Answer     int    `json:"answer"`
	Difference int    `json:"difference"`
}

func normalizeGameName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = DefaultGameName
	}
	if len([]rune(name)) > maxGameName {
		return "", newInvalidInput("game name longer than %d characters", maxGameName)
	}
	return name, nil
}
