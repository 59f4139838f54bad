package quiz

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a failure reported by the engine.
type Kind int

const (
	Unknown Kind = iota
	InvalidInput
	NotFound
	IncompleteSubmission
	UnknownTeam
	QuestionAlreadyAnswered
	QuestionNotAnswered
	LimitExceeded
	StorageUnavailable
)

var kindNames = map[Kind]string{
	Unknown:                 "unknown",
	InvalidInput:            "invalid_input",
	NotFound:                "not_found",
	IncompleteSubmission:    "incomplete_submission",
	UnknownTeam:             "unknown_team",
	QuestionAlreadyAnswered: "question_already_answered",
	QuestionNotAnswered:     "question_not_answered",
	LimitExceeded:           "limit_exceeded",
	StorageUnavailable:      "storage_unavailable",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return kindNames[Unknown]
}

// Error is the single error type returned by the engine. Teams lists the
// offending team ids for IncompleteSubmission and UnknownTeam.
type Error struct {
	Kind  Kind
	Teams []string
	msg   string
	err   error
}

// Sentinels for errors.Is. Any *Error of the same Kind matches.
var (
	ErrInvalidInput            = &Error{Kind: InvalidInput}
	ErrNotFound                = &Error{Kind: NotFound}
	ErrIncompleteSubmission    = &Error{Kind: IncompleteSubmission}
	ErrUnknownTeam             = &Error{Kind: UnknownTeam}
	ErrQuestionAlreadyAnswered = &Error{Kind: QuestionAlreadyAnswered}
	ErrQuestionNotAnswered     = &Error{Kind: QuestionNotAnswered}
	ErrLimitExceeded           = &Error{Kind: LimitExceeded}
	ErrStorageUnavailable      = &Error{Kind: StorageUnavailable}
)

func (e *Error) Error() string {
	if e.msg == "" {
		return strings.ReplaceAll(e.Kind.String(), "_", " ")
	}
	return e.msg
}

func (e *Error) Unwrap() error {
	return e.err
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// KindOf reports the Kind of err, or Unknown if err did not come from the engine.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Unknown
}

func newInvalidInput(format string, args ...any) *Error {
	return &Error{
		Kind: InvalidInput,
		msg:  "invalid input: " + fmt.Sprintf(format, args...),
	}
}

func newNotFound(what, id string) *Error {
	return &Error{
		Kind: NotFound,
		msg:  fmt.Sprintf("%s %q not found", what, id),
	}
}

func newIncompleteSubmission(missing []string) *Error {
	return &Error{
		Kind:  IncompleteSubmission,
		Teams: missing,
		msg:   fmt.Sprintf("incomplete submission: missing answers for teams %s", strings.Join(missing, ", ")),
	}
}

func newUnknownTeam(ids []string) *Error {
	return &Error{
		Kind:  UnknownTeam,
		Teams: ids,
		msg:   fmt.Sprintf("unknown teams in submission: %s", strings.Join(ids, ", ")),
	}
}

func newAlreadyAnswered(questionID string) *Error {
	return &Error{
		Kind: QuestionAlreadyAnswered,
		msg:  fmt.Sprintf("question %q is already answered", questionID),
	}
}

func newNotAnswered(questionID string) *Error {
	return &Error{
		Kind: QuestionNotAnswered,
		msg:  fmt.Sprintf("question %q has not been answered", questionID),
	}
}

func newLimitExceeded(format string, args ...any) *Error {
	return &Error{
		Kind: LimitExceeded,
		msg:  "limit exceeded: " + fmt.Sprintf(format, args...),
	}
}

func newStorageError(err error) *Error {
	if err == nil {
		return nil
	}
	return &Error{
		Kind: StorageUnavailable,
		msg:  fmt.Sprintf("storage unavailable: %v", err),
		err:  err,
	}
}
