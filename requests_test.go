package main

import (
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
)

func decode(t *testing.T, body string, dst any, optional bool) error {
	t.Helper()
	r := httptest.NewRequest("POST", "/", strings.NewReader(body))
	return decodeBody(httptest.NewRecorder(), r, dst, optional)
}

func TestDecodeBody(t *testing.T) {
	var req createGameRequest

	if err := decode(t, `{"name":"Quiz"}`, &req, false); err != nil || req.Name != "Quiz" {
		t.Errorf("valid body: %v, %+v", err, req)
	}
	if err := decode(t, ``, &req, true); err != nil {
		t.Errorf("optional empty body: %v", err)
	}

	bad := map[string]string{
		"required empty": ``,
		"unknown field":  `{"name":"x","owner":"y"}`,
		"two objects":    `{"name":"x"} {"name":"y"}`,
		"wrong type":     `{"name":5}`,
		"not an object":  `[1,2]`,
	}
	for name, body := range bad {
		var reqErr *requestError
		if err := decode(t, body, &req, false); !errors.As(err, &reqErr) {
			t.Errorf("%s: err = %v, want requestError", name, err)
		}
	}
}

func TestAnswersRequestGuesses(t *testing.T) {
	var req answersRequest
	if err := decode(t, `{"answers":[{"team_id":"a","answer":10},{"team_id":"b","answer":0}]}`, &req, false); err != nil {
		t.Fatal(err)
	}

	guesses, err := req.guesses()
	if err != nil {
		t.Fatal(err)
	}
	if len(guesses) != 2 || guesses[1].TeamID != "b" || guesses[1].Answer != 0 {
		t.Errorf("guesses = %+v", guesses)
	}

	for _, body := range []string{
		`{}`,
		`{"answers":[{"answer":10}]}`,
		`{"answers":[{"team_id":" ","answer":10}]}`,
		`{"answers":[{"team_id":"a"}]}`,
	} {
		var req answersRequest
		if err := decode(t, body, &req, false); err != nil {
			t.Fatalf("%s: %v", body, err)
		}
		if _, err := req.guesses(); err == nil {
			t.Errorf("%s: no error", body)
		}
	}
}

func TestRequireChange(t *testing.T) {
	if err := (teamRequest{}).requireChange(); err == nil {
		t.Error("empty team request accepted")
	}
	name := "x"
	if err := (teamRequest{Name: &name}).requireChange(); err != nil {
		t.Error(err)
	}

	if err := (questionRequest{}).requireChange(); err == nil {
		t.Error("empty question request accepted")
	}
	correct := 0
	if err := (questionRequest{CorrectAnswer: &correct}).requireChange(); err != nil {
		t.Error(err)
	}
}
