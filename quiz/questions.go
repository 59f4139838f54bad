package quiz

import (
	"slices"
	"strings"
)

const (
	MaxQuestions         = 6
	DefaultCorrectAnswer = 50
	maxQuestionText      = 500
)

type Question struct {
	ID            string   `json:"id"`
	Position      int      `json:"order_num"`
	Text          string   `json:"question_text"`
	CorrectAnswer int      `json:"correct_answer"`
	Answered      bool     `json:"is_answered"`
	Answers       []Answer `json:"answers,omitempty"`
}

// Answer is one team's scored guess for a question. Deducted is the number
// of points actually taken, which can be less than Difference when the
// team's balance hit zero.
type Answer struct {
	TeamID     string `json:"team_id"`
	Guess      int    `json:"answer"`
	Difference int    `json:"difference"`
	Deducted   int    `json:"deducted"`
}

func (q Question) answer(teamID string) (Answer, bool) {
	i := slices.IndexFunc(q.Answers, func(a Answer) bool { return a.TeamID == teamID })
	if i < 0 {
		return Answer{}, false
	}
	return q.Answers[i], true
}

// QuestionSet keeps questions ordered by Position, numbered 1..N.
type QuestionSet []Question

func (s QuestionSet) index(id string) int {
	return slices.IndexFunc(s, func(q Question) bool { return q.ID == id })
}

func (s QuestionSet) Question(id string) (Question, bool) {
	i := s.index(id)
	if i < 0 {
		return Question{}, false
	}
	return s[i], true
}

func (s *QuestionSet) Add(text string, correct int) (Question, error) {
	if len(*s) >= MaxQuestions {
		return Question{}, newLimitExceeded("a game holds at most %d questions", MaxQuestions)
	}

	text = strings.TrimSpace(text)
	if err := validateQuestionText(text); err != nil {
		return Question{}, err
	}
	if !inPercentRange(correct) {
		return Question{}, newInvalidInput("correct answer %d out of range", correct)
	}

	q := Question{
		ID:            newID(),
		Position:      len(*s) + 1,
		Text:          text,
		CorrectAnswer: correct,
	}
	*s = append(*s, q)

	return q, nil
}

func (s QuestionSet) SetText(id, text string) (Question, error) {
	i := s.index(id)
	if i < 0 {
		return Question{}, newNotFound("question", id)
	}

	text = strings.TrimSpace(text)
	if err := validateQuestionText(text); err != nil {
		return Question{}, err
	}
	s[i].Text = text

	return s[i], nil
}

// Remove drops a question and renumbers the rest so positions stay dense.
func (s *QuestionSet) Remove(id string) (Question, error) {
	i := s.index(id)
	if i < 0 {
		return Question{}, newNotFound("question", id)
	}

	q := (*s)[i]
	*s = slices.Delete(*s, i, i+1)
	s.renumber()

	return q, nil
}

func (s QuestionSet) renumber() {
	for i := range s {
		s[i].Position = i + 1
	}
}

func (s QuestionSet) ResetAll() {
	for i := range s {
		s[i].Answered = false
		s[i].Answers = nil
	}
}

// AllAnswered reports whether the set is non-empty and every question has
// been scored.
func (s QuestionSet) AllAnswered() bool {
	if len(s) == 0 {
		return false
	}
	for _, q := range s {
		if !q.Answered {
			return false
		}
	}
	return true
}

func validateQuestionText(text string) error {
	if len([]rune(text)) > maxQuestionText {
		return newInvalidInput("question text longer than %d characters", maxQuestionText)
	}
	return nil
}
