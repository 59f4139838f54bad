package quiz

import (
	"slices"
)

// Guess is a team's submitted percentage for a question.
type Guess struct {
	TeamID string `json:"team_id"`
	Answer int    `json:"answer"`
}

// checkGuesses requires exactly one in-range guess per team currently in
// the game and returns them keyed by team id.
func (g *Game) checkGuesses(guesses []Guess) (map[string]int, error) {
	if len(g.Teams) == 0 {
		return nil, newInvalidInput("game has no teams")
	}

	byTeam := make(map[string]int, len(guesses))
	var unknown []string

	for _, gs := range guesses {
		if _, ok := g.Teams.Team(gs.TeamID); !ok {
			unknown = append(unknown, gs.TeamID)
			continue
		}
		if _, dup := byTeam[gs.TeamID]; dup {
			return nil, newInvalidInput("more than one answer for team %q", gs.TeamID)
		}
		if !inPercentRange(gs.Answer) {
			return nil, newInvalidInput("answer %d for team %q out of range", gs.Answer, gs.TeamID)
		}
		byTeam[gs.TeamID] = gs.Answer
	}

	if len(unknown) > 0 {
		return nil, newUnknownTeam(unknown)
	}

	var missing []string
	for _, t := range g.Teams {
		if _, ok := byTeam[t.ID]; !ok {
			missing = append(missing, t.ID)
		}
	}
	if len(missing) > 0 {
		return nil, newIncompleteSubmission(missing)
	}

	return byTeam, nil
}

// Submit scores an unanswered question against every team's current points.
func (g *Game) Submit(questionID string, guesses []Guess) (Result, error) {
	qi := g.Questions.index(questionID)
	if qi < 0 {
		return Result{}, newNotFound("question", questionID)
	}
	if g.Questions[qi].Answered {
		return Result{}, newAlreadyAnswered(questionID)
	}

	byTeam, err := g.checkGuesses(guesses)
	if err != nil {
		return Result{}, err
	}

	return g.score(qi, byTeam)
}

// Revise rescores an answered question. Each team is first credited with
// what this question took from it, so revising with the same guesses any
// number of times leaves the ledger where a single revision would.
func (g *Game) Revise(questionID string, guesses []Guess) (Result, error) {
	qi := g.Questions.index(questionID)
	if qi < 0 {
		return Result{}, newNotFound("question", questionID)
	}
	if !g.Questions[qi].Answered {
		return Result{}, newNotAnswered(questionID)
	}

	byTeam, err := g.checkGuesses(guesses)
	if err != nil {
		return Result{}, err
	}

	return g.score(qi, byTeam)
}

// score applies guesses to question qi. Prior deductions for the question
// are refunded first; an unanswered question has none.
func (g *Game) score(qi int, byTeam map[string]int) (Result, error) {
	q := &g.Questions[qi]

	res := Result{
		QuestionID:    q.ID,
		CorrectAnswer: q.CorrectAnswer,
		Results:       make([]TeamResult, 0, len(byTeam)),
	}
	answers := make([]Answer, 0, len(byTeam))

	for _, t := range g.Teams {
		guess, ok := byTeam[t.ID]
		if !ok {
			continue
		}

		before := t.Points
		if prev, ok := q.answer(t.ID); ok {
			before = clampPoints(before + prev.Deducted)
		}

		diff, points, err := Score(before, guess, q.CorrectAnswer)
		if err != nil {
			return Result{}, err
		}
		if err := g.Teams.Apply(t.ID, points); err != nil {
			return Result{}, err
		}

		answers = append(answers, Answer{
			TeamID:     t.ID,
			Guess:      guess,
			Difference: diff,
			Deducted:   before - points,
		})
		res.Results = append(res.Results, TeamResult{
			TeamID:        t.ID,
			TeamName:      t.Name,
			Answer:        guess,
			CorrectAnswer: q.CorrectAnswer,
			Difference:    diff,
			NewPoints:     points,
		})
	}

	q.Answers = answers
	q.Answered = len(answers) > 0

	return res, nil
}

// SavedAnswers returns the guesses recorded by the last submit or revise.
func (g *Game) SavedAnswers(questionID string) ([]SavedAnswer, error) {
	q, ok := g.Questions.Question(questionID)
	if !ok {
		return nil, newNotFound("question", questionID)
	}
	if !q.Answered {
		return nil, newNotAnswered(questionID)
	}

	out := make([]SavedAnswer, len(q.Answers))
	for i, a := range q.Answers {
		out[i] = SavedAnswer{
			TeamID:     a.TeamID,
			Answer:     a.Guess,
			Difference: a.Difference,
		}
	}
	return out, nil
}

// Reset puts every team back at baseline, every question back to
// unanswered, and hides the result screen.
func (g *Game) Reset() {
	g.Teams.ResetAll()
	g.Questions.ResetAll()
	g.ShowResult = false
}

func (g *Game) SetVisible(visible bool) {
	g.ShowResult = visible
}

func (g *Game) AddTeam(name, color string) (Team, error) {
	return g.Teams.Add(name, color)
}

// UpdateTeam renames and/or recolors a team. Nil fields are left alone.
func (g *Game) UpdateTeam(teamID string, name, color *string) (Team, error) {
	t, ok := g.Teams.Team(teamID)
	if !ok {
		return Team{}, newNotFound("team", teamID)
	}

	var err error
	if name != nil {
		if t, err = g.Teams.Rename(teamID, *name); err != nil {
			return Team{}, err
		}
	}
	if color != nil {
		if t, err = g.Teams.Recolor(teamID, *color); err != nil {
			return Team{}, err
		}
	}
	return t, nil
}

// RemoveTeam drops a team along with its recorded answers. A question left
// with no answers goes back to unanswered.
func (g *Game) RemoveTeam(teamID string) error {
	if _, err := g.Teams.Remove(teamID); err != nil {
		return err
	}

	for i := range g.Questions {
		q := &g.Questions[i]
		q.Answers = slices.DeleteFunc(q.Answers, func(a Answer) bool { return a.TeamID == teamID })
		if len(q.Answers) == 0 {
			q.Answers = nil
			q.Answered = false
		}
	}
	return nil
}

func (g *Game) AddQuestion(text string, correct int) (Question, error) {
	return g.Questions.Add(text, correct)
}

// EditQuestion changes a question's text and/or correct answer. Changing the
// correct answer of an answered question rescores it with the stored guesses.
func (g *Game) EditQuestion(questionID string, text *string, correct *int) (Question, error) {
	qi := g.Questions.index(questionID)
	if qi < 0 {
		return Question{}, newNotFound("question", questionID)
	}
	if correct != nil && !inPercentRange(*correct) {
		return Question{}, newInvalidInput("correct answer %d out of range", *correct)
	}

	if text != nil {
		if _, err := g.Questions.SetText(questionID, *text); err != nil {
			return Question{}, err
		}
	}

	if correct != nil && *correct != g.Questions[qi].CorrectAnswer {
		g.Questions[qi].CorrectAnswer = *correct
		if g.Questions[qi].Answered {
			byTeam := make(map[string]int, len(g.Questions[qi].Answers))
			for _, a := range g.Questions[qi].Answers {
				byTeam[a.TeamID] = a.Guess
			}
			if _, err := g.score(qi, byTeam); err != nil {
				return Question{}, err
			}
		}
	}

	return g.Questions[qi], nil
}

// RemoveQuestion deletes a question and gives back the points it took.
func (g *Game) RemoveQuestion(questionID string) error {
	q, err := g.Questions.Remove(questionID)
	if err != nil {
		return err
	}

	for _, a := range q.Answers {
		t, ok := g.Teams.Team(a.TeamID)
		if !ok {
			continue
		}
		if err := g.Teams.Apply(t.ID, clampPoints(t.Points+a.Deducted)); err != nil {
			return err
		}
	}
	return nil
}
