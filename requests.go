package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/akimizu21/percent-app-sample/quiz"
)

const maxBodyBytes = 64 << 10

// requestError is a malformed request body. It is reported the same way as
// quiz.InvalidInput.
type requestError struct {
	msg string
}

func (e *requestError) Error() string {
	return "invalid input: " + e.msg
}

func badRequest(format string, args ...any) error {
	return &requestError{msg: fmt.Sprintf(format, args...)}
}

// decodeBody reads exactly one JSON object into dst, rejecting unknown
// fields. An empty body is allowed only when optional is set.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any, optional bool) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()

	err := dec.Decode(dst)
	switch {
	case errors.Is(err, io.EOF):
		if optional {
			return nil
		}
		return badRequest("request body is required")
	case err != nil:
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return badRequest("request body larger than %d bytes", maxErr.Limit)
		}
		return badRequest("%s", strings.TrimPrefix(err.Error(), "json: "))
	}

	if dec.More() {
		return badRequest("request body must hold a single object")
	}
	return nil
}

type createGameRequest struct {
	Name string `json:"name"`
}

type teamRequest struct {
	Name  *string `json:"name"`
	Color *string `json:"color"`
}

func (t teamRequest) requireChange() error {
	if t.Name == nil && t.Color == nil {
		return badRequest("one of name or color is required")
	}
	return nil
}

type questionRequest struct {
	QuestionText  *string `json:"question_text"`
	CorrectAnswer *int    `json:"correct_answer"`
}

func (q questionRequest) requireChange() error {
	if q.QuestionText == nil && q.CorrectAnswer == nil {
		return badRequest("one of question_text or correct_answer is required")
	}
	return nil
}

type answerEntry struct {
	TeamID *string `json:"team_id"`
	Answer *int    `json:"answer"`
}

type answersRequest struct {
	Answers []answerEntry `json:"answers"`
}

func (a answersRequest) guesses() ([]quiz.Guess, error) {
	if a.Answers == nil {
		return nil, badRequest("answers is required")
	}

	out := make([]quiz.Guess, len(a.Answers))
	for i, e := range a.Answers {
		if e.TeamID == nil || strings.TrimSpace(*e.TeamID) == "" {
			return nil, badRequest("answers[%d].team_id is required", i)
		}
		if e.Answer == nil {
			return nil, badRequest("answers[%d].answer is required", i)
		}
		out[i] = quiz.Guess{TeamID: *e.TeamID, Answer: *e.Answer}
	}
	return out, nil
}

type visibilityRequest struct {
	Show *bool `json:"show"`
}
