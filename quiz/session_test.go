package quiz

import (
	"errors"
	"slices"
	"testing"
)

// newTestGame builds a game with one team per name and a single question.
func newTestGame(t *testing.T, correct int, names ...string) (*Game, []string, string) {
	t.Helper()

	g := &Game{Name: "test"}
	ids := make([]string, len(names))
	for i, n := range names {
		team, err := g.AddTeam(n, "")
		if err != nil {
			t.Fatal(err)
		}
		ids[i] = team.ID
	}

	q, err := g.AddQuestion("How many?", correct)
	if err != nil {
		t.Fatal(err)
	}

	return g, ids, q.ID
}

func points(g *Game, id string) int {
	t, _ := g.Teams.Team(id)
	return t.Points
}

func TestSubmitScoresEveryTeam(t *testing.T) {
	g, ids, qid := newTestGame(t, 70, "A", "B")

	res, err := g.Submit(qid, []Guess{{ids[0], 60}, {ids[1], 90}})
	if err != nil {
		t.Fatal(err)
	}

	if res.CorrectAnswer != 70 || len(res.Results) != 2 {
		t.Fatalf("result = %+v", res)
	}
	want := map[string][2]int{ids[0]: {10, 90}, ids[1]: {20, 80}}
	for _, r := range res.Results {
		w := want[r.TeamID]
		if r.Difference != w[0] || r.NewPoints != w[1] || r.CorrectAnswer != 70 {
			t.Errorf("result for %s = %+v, want diff %d points %d", r.TeamName, r, w[0], w[1])
		}
	}

	if points(g, ids[0]) != 90 || points(g, ids[1]) != 80 {
		t.Errorf("ledger = %+v", g.Teams)
	}

	q, _ := g.Questions.Question(qid)
	if !q.Answered || len(q.Answers) != 2 {
		t.Errorf("question = %+v", q)
	}
}

func TestSubmitTwice(t *testing.T) {
	g, ids, qid := newTestGame(t, 70, "A")

	if _, err := g.Submit(qid, []Guess{{ids[0], 60}}); err != nil {
		t.Fatal(err)
	}
	_, err := g.Submit(qid, []Guess{{ids[0], 70}})
	if !errors.Is(err, ErrQuestionAlreadyAnswered) {
		t.Fatalf("err = %v, want QuestionAlreadyAnswered", err)
	}
	if points(g, ids[0]) != 90 {
		t.Errorf("points = %d, want 90", points(g, ids[0]))
	}
}

func TestSubmitValidation(t *testing.T) {
	tests := []struct {
		name    string
		guesses func(ids []string) []Guess
		want    error
		teams   func(ids []string) []string
	}{
		{
			name:    "missing team",
			guesses: func(ids []string) []Guess { return []Guess{{ids[0], 50}} },
			want:    ErrIncompleteSubmission,
			teams:   func(ids []string) []string { return ids[1:] },
		},
		{
			name:    "unknown team",
			guesses: func(ids []string) []Guess { return []Guess{{ids[0], 50}, {ids[1], 50}, {"ghost", 50}} },
			want:    ErrUnknownTeam,
			teams:   func([]string) []string { return []string{"ghost"} },
		},
		{
			name:    "duplicate team",
			guesses: func(ids []string) []Guess { return []Guess{{ids[0], 50}, {ids[0], 40}, {ids[1], 50}} },
			want:    ErrInvalidInput,
		},
		{
			name:    "out of range",
			guesses: func(ids []string) []Guess { return []Guess{{ids[0], 50}, {ids[1], 101}} },
			want:    ErrInvalidInput,
		},
		{
			name:    "empty",
			guesses: func([]string) []Guess { return nil },
			want:    ErrIncompleteSubmission,
			teams:   func(ids []string) []string { return ids },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, ids, qid := newTestGame(t, 50, "A", "B")
			before := g.Clone()

			_, err := g.Submit(qid, tt.guesses(ids))
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
			if tt.teams != nil {
				var qErr *Error
				if !errors.As(err, &qErr) || !slices.Equal(qErr.Teams, tt.teams(ids)) {
					t.Errorf("teams = %v, want %v", qErr.Teams, tt.teams(ids))
				}
			}

			for _, id := range ids {
				if points(g, id) != points(before, id) {
					t.Errorf("points changed on failed submit")
				}
			}
			if q, _ := g.Questions.Question(qid); q.Answered {
				t.Error("question answered after failed submit")
			}
		})
	}
}

func TestSubmitUnknownQuestion(t *testing.T) {
	g, ids, _ := newTestGame(t, 50, "A")

	_, err := g.Submit("nope", []Guess{{ids[0], 50}})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want NotFound", err)
	}
}

func TestSubmitWithoutTeams(t *testing.T) {
	g, _, qid := newTestGame(t, 50)

	for _, guesses := range [][]Guess{nil, {}} {
		if _, err := g.Submit(qid, guesses); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("err = %v, want InvalidInput", err)
		}
	}
	if q, _ := g.Questions.Question(qid); q.Answered {
		t.Error("question answered with no teams")
	}
}

func TestReviseRestoresBeforeRescoring(t *testing.T) {
	g, ids, qid := newTestGame(t, 40, "A")
	a := ids[0]

	if _, err := g.Submit(qid, []Guess{{a, 30}}); err != nil {
		t.Fatal(err)
	}
	if got := points(g, a); got != 90 {
		t.Fatalf("after submit = %d, want 90", got)
	}

	if _, err := g.Revise(qid, []Guess{{a, 50}}); err != nil {
		t.Fatal(err)
	}
	if got := points(g, a); got != 90 {
		t.Fatalf("after first revise = %d, want 90", got)
	}

	res, err := g.Revise(qid, []Guess{{a, 20}})
	if err != nil {
		t.Fatal(err)
	}
	if got := points(g, a); got != 80 {
		t.Fatalf("after second revise = %d, want 80", got)
	}
	if res.Results[0].Difference != 20 || res.Results[0].NewPoints != 80 {
		t.Errorf("result = %+v", res.Results[0])
	}

	saved, err := g.SavedAnswers(qid)
	if err != nil {
		t.Fatal(err)
	}
	if len(saved) != 1 || saved[0].Answer != 20 || saved[0].Difference != 20 {
		t.Errorf("saved = %+v", saved)
	}
}

func TestReviseIsIdempotent(t *testing.T) {
	g, ids, qid := newTestGame(t, 70, "A", "B")
	guesses := []Guess{{ids[0], 60}, {ids[1], 90}}

	if _, err := g.Submit(qid, guesses); err != nil {
		t.Fatal(err)
	}
	for range 5 {
		if _, err := g.Revise(qid, guesses); err != nil {
			t.Fatal(err)
		}
	}

	if points(g, ids[0]) != 90 || points(g, ids[1]) != 80 {
		t.Errorf("ledger = %+v", g.Teams)
	}
}

func TestReviseAcrossQuestions(t *testing.T) {
	g, ids, q1 := newTestGame(t, 50, "A")
	a := ids[0]
	q2, _ := g.AddQuestion("second", 50)

	g.Submit(q1, []Guess{{a, 20}})     // 100 -> 70
	g.Submit(q2.ID, []Guess{{a, 100}}) // 70 -> 20

	if _, err := g.Revise(q1, []Guess{{a, 50}}); err != nil {
		t.Fatal(err)
	}
	if got := points(g, a); got != 50 {
		t.Errorf("points = %d, want 50", got)
	}
}

func TestReviseWithClamping(t *testing.T) {
	g, ids, q1 := newTestGame(t, 0, "A")
	a := ids[0]
	q2, _ := g.AddQuestion("second", 0)

	g.Submit(q1, []Guess{{a, 80}})    // 100 -> 20
	g.Submit(q2.ID, []Guess{{a, 50}}) // 20 -> 0, only 20 taken

	q, _ := g.Questions.Question(q2.ID)
	if q.Answers[0].Difference != 50 || q.Answers[0].Deducted != 20 {
		t.Fatalf("answer = %+v", q.Answers[0])
	}

	if _, err := g.Revise(q2.ID, []Guess{{a, 10}}); err != nil {
		t.Fatal(err)
	}
	if got := points(g, a); got != 10 {
		t.Errorf("points = %d, want 10", got)
	}
}

func TestReviseUnanswered(t *testing.T) {
	g, ids, qid := newTestGame(t, 50, "A")

	if _, err := g.Revise(qid, []Guess{{ids[0], 50}}); !errors.Is(err, ErrQuestionNotAnswered) {
		t.Errorf("revise: err = %v", err)
	}
	if _, err := g.SavedAnswers(qid); !errors.Is(err, ErrQuestionNotAnswered) {
		t.Errorf("saved answers: err = %v", err)
	}
	if _, err := g.SavedAnswers("nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("saved answers missing: err = %v", err)
	}
}

func TestReset(t *testing.T) {
	g, ids, qid := newTestGame(t, 50, "A", "B")
	g.Submit(qid, []Guess{{ids[0], 0}, {ids[1], 100}})
	g.SetVisible(true)

	g.Reset()

	for _, id := range ids {
		if points(g, id) != BaselinePoints {
			t.Errorf("points = %d after reset", points(g, id))
		}
	}
	q, _ := g.Questions.Question(qid)
	if q.Answered || q.Answers != nil {
		t.Errorf("question after reset = %+v", q)
	}
	if g.ShowResult {
		t.Error("result still visible after reset")
	}
	if len(g.Teams) != 2 || len(g.Questions) != 1 {
		t.Error("reset removed teams or questions")
	}
}

func TestEditQuestionRescores(t *testing.T) {
	g, ids, qid := newTestGame(t, 70, "A", "B")
	g.Submit(qid, []Guess{{ids[0], 60}, {ids[1], 90}})

	correct := 90
	q, err := g.EditQuestion(qid, nil, &correct)
	if err != nil {
		t.Fatal(err)
	}
	if q.CorrectAnswer != 90 || !q.Answered {
		t.Errorf("question = %+v", q)
	}
	if points(g, ids[0]) != 70 || points(g, ids[1]) != 100 {
		t.Errorf("ledger = %+v", g.Teams)
	}

	bad := 101
	if _, err := g.EditQuestion(qid, nil, &bad); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("edit 101: err = %v", err)
	}
}

func TestEditQuestionText(t *testing.T) {
	g, _, qid := newTestGame(t, 70, "A")

	text := "  New text "
	q, err := g.EditQuestion(qid, &text, nil)
	if err != nil {
		t.Fatal(err)
	}
	if q.Text != "New text" || q.CorrectAnswer != 70 {
		t.Errorf("question = %+v", q)
	}
}

func TestRemoveQuestionRefunds(t *testing.T) {
	g, ids, q1 := newTestGame(t, 50, "A")
	a := ids[0]
	q2, _ := g.AddQuestion("second", 50)

	g.Submit(q1, []Guess{{a, 40}})    // 100 -> 90
	g.Submit(q2.ID, []Guess{{a, 20}}) // 90 -> 60

	if err := g.RemoveQuestion(q1); err != nil {
		t.Fatal(err)
	}
	if got := points(g, a); got != 70 {
		t.Errorf("points = %d, want 70", got)
	}
	if g.Questions[0].ID != q2.ID || g.Questions[0].Position != 1 {
		t.Errorf("questions = %+v", g.Questions)
	}
}

func TestRemoveTeamStripsAnswers(t *testing.T) {
	g, ids, qid := newTestGame(t, 50, "A", "B")
	g.Submit(qid, []Guess{{ids[0], 40}, {ids[1], 60}})

	if err := g.RemoveTeam(ids[0]); err != nil {
		t.Fatal(err)
	}
	q, _ := g.Questions.Question(qid)
	if !q.Answered || len(q.Answers) != 1 || q.Answers[0].TeamID != ids[1] {
		t.Errorf("question = %+v", q)
	}

	if err := g.RemoveTeam(ids[1]); err != nil {
		t.Fatal(err)
	}
	q, _ = g.Questions.Question(qid)
	if q.Answered || q.Answers != nil {
		t.Errorf("question with no teams left = %+v", q)
	}
}

func TestUpdateTeam(t *testing.T) {
	g, ids, _ := newTestGame(t, 50, "A")

	name, color := "Renamed", "#000000"
	team, err := g.UpdateTeam(ids[0], &name, &color)
	if err != nil {
		t.Fatal(err)
	}
	if team.Name != name || team.Color != color || team.Points != BaselinePoints {
		t.Errorf("team = %+v", team)
	}

	if _, err := g.UpdateTeam("nope", &name, nil); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing team: err = %v", err)
	}
}

func TestStandingsShareRank(t *testing.T) {
	g, ids, qid := newTestGame(t, 50, "A", "B", "C")
	g.Submit(qid, []Guess{{ids[0], 40}, {ids[1], 50}, {ids[2], 60}})

	st := g.Standings()
	if st[0].ID != ids[1] || st[0].Rank != 1 {
		t.Errorf("first = %+v", st[0])
	}
	if st[1].ID != ids[0] || st[1].Rank != 2 || st[2].ID != ids[2] || st[2].Rank != 2 {
		t.Errorf("tied = %+v, %+v", st[1], st[2])
	}
}

func TestCloneIsDeep(t *testing.T) {
	g, ids, qid := newTestGame(t, 50, "A")
	g.Submit(qid, []Guess{{ids[0], 40}})

	c := g.Clone()
	c.Teams[0].Points = 1
	c.Questions[0].Answers[0].Guess = 1
	c.Questions[0].Text = "changed"

	if g.Teams[0].Points == 1 || g.Questions[0].Answers[0].Guess == 1 || g.Questions[0].Text == "changed" {
		t.Error("clone shares state with original")
	}
}
