package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/akimizu21/percent-app-sample/quiz"
	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog/log"
)

type questionView struct {
	ID            string `json:"id"`
	QuestionText  string `json:"question_text"`
	CorrectAnswer int    `json:"correct_answer"`
	OrderNum      int    `json:"order_num"`
	IsAnswered    bool   `json:"is_answered"`
}

// gameView is the snapshot both screens poll. Stored answers stay out of
// it; the control screen fetches them per question when revising.
type gameView struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	Version    int64          `json:"version"`
	Teams      []quiz.Team    `json:"teams"`
	Questions  []questionView `json:"questions"`
	ShowResult bool           `json:"show_result"`
}

func newQuestionView(q quiz.Question) questionView {
	return questionView{
		ID:            q.ID,
		QuestionText:  q.Text,
		CorrectAnswer: q.CorrectAnswer,
		OrderNum:      q.Position,
		IsAnswered:    q.Answered,
	}
}

func newGameView(g *quiz.Game) gameView {
	v := gameView{
		ID:         g.ID,
		Name:       g.Name,
		CreatedAt:  g.CreatedAt,
		UpdatedAt:  g.UpdatedAt,
		Version:    g.Version,
		Teams:      make([]quiz.Team, len(g.Teams)),
		Questions:  make([]questionView, len(g.Questions)),
		ShowResult: g.ShowResult,
	}
	copy(v.Teams, g.Teams)
	for i, q := range g.Questions {
		v.Questions[i] = newQuestionView(q)
	}
	return v
}

func gameETag(g *quiz.Game) string {
	return fmt.Sprintf(`W/"%s-%d"`, g.ID, g.Version)
}

type errorBody struct {
	Error   string   `json:"error"`
	Message string   `json:"message"`
	Teams   []string `json:"teams,omitempty"`
}

func statusFor(kind quiz.Kind) int {
	switch kind {
	case quiz.InvalidInput, quiz.IncompleteSubmission, quiz.UnknownTeam:
		return http.StatusBadRequest
	case quiz.NotFound:
		return http.StatusNotFound
	case quiz.QuestionAlreadyAnswered, quiz.QuestionNotAnswered:
		return http.StatusConflict
	case quiz.LimitExceeded:
		return http.StatusUnprocessableEntity
	case quiz.StorageUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any, what string, startTime time.Time) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("what", what).Msg("encode response")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	data = append(data, '\n')

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)

	written, err := w.Write(data)
	if err != nil {
		log.Debug().Err(err).Str("remote", realIP(r)).Msg("write response")
		return
	}

	logServed(r, what, status, written, startTime)
}

func writeError(w http.ResponseWriter, r *http.Request, err error, what string, startTime time.Time) {
	body := errorBody{Message: err.Error()}
	status := http.StatusInternalServerError

	var reqErr *requestError
	var qErr *quiz.Error
	switch {
	case errors.As(err, &reqErr):
		body.Error = quiz.InvalidInput.String()
		status = http.StatusBadRequest
	case errors.As(err, &qErr):
		body.Error = qErr.Kind.String()
		body.Teams = qErr.Teams
		status = statusFor(qErr.Kind)
	default:
		body.Error = quiz.Unknown.String()
		body.Message = "internal error"
	}

	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("what", what).Msg("request failed")
	}

	writeJSON(w, r, status, body, what, startTime)
}

func serveListGames(e *quiz.Engine) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		startTime := time.Now()

		games, err := e.ListGames(r.Context())
		if err != nil {
			writeError(w, r, err, "list games", startTime)
			return
		}

		writeJSON(w, r, http.StatusOK, games, "list games", startTime)
	}
}

func serveCreateGame(e *quiz.Engine) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		startTime := time.Now()

		var req createGameRequest
		if err := decodeBody(w, r, &req, true); err != nil {
			writeError(w, r, err, "create game", startTime)
			return
		}

		g, err := e.CreateGame(r.Context(), req.Name)
		if err != nil {
			writeError(w, r, err, "create game", startTime)
			return
		}

		log.Info().Str("game", g.ID).Str("name", g.Name).Msg("game created")

		writeJSON(w, r, http.StatusCreated, map[string]string{"id": g.ID, "name": g.Name}, "create game", startTime)
	}
}

// serveGame answers the polling read. A client that sends back the last
// ETag it saw gets 304 until something changes.
func serveGame(e *quiz.Engine) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		startTime := time.Now()

		g, err := e.Game(r.Context(), p.ByName("game"))
		if err != nil {
			writeError(w, r, err, "game", startTime)
			return
		}

		etag := gameETag(g)
		w.Header().Set("ETag", etag)
		w.Header().Set("Cache-Control", "no-cache")
		if r.Header.Get("If-None-Match") == etag {
			w.WriteHeader(http.StatusNotModified)
			logServed(r, "game", http.StatusNotModified, 0, startTime)
			return
		}

		writeJSON(w, r, http.StatusOK, newGameView(g), "game", startTime)
	}
}

func serveDeleteGame(e *quiz.Engine) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		startTime := time.Now()
		id := p.ByName("game")

		if err := e.DeleteGame(r.Context(), id); err != nil {
			writeError(w, r, err, "delete game", startTime)
			return
		}

		log.Info().Str("game", id).Msg("game deleted")

		writeJSON(w, r, http.StatusOK, map[string]string{"message": "Game deleted"}, "delete game", startTime)
	}
}

func serveResetGame(e *quiz.Engine) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		startTime := time.Now()
		id := p.ByName("game")

		if err := e.Reset(r.Context(), id); err != nil {
			writeError(w, r, err, "reset game", startTime)
			return
		}

		log.Info().Str("game", id).Msg("game reset")

		writeJSON(w, r, http.StatusOK, map[string]string{"message": "Game reset"}, "reset game", startTime)
	}
}

func serveResultStatus(e *quiz.Engine) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		startTime := time.Now()

		show, err := e.Visible(r.Context(), p.ByName("game"))
		if err != nil {
			writeError(w, r, err, "result status", startTime)
			return
		}

		writeJSON(w, r, http.StatusOK, map[string]bool{"show_result": show}, "result status", startTime)
	}
}

func serveShowResult(e *quiz.Engine) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		startTime := time.Now()

		var req visibilityRequest
		if err := decodeBody(w, r, &req, false); err != nil {
			writeError(w, r, err, "show result", startTime)
			return
		}
		if req.Show == nil {
			writeError(w, r, badRequest("show is required"), "show result", startTime)
			return
		}

		show, err := e.SetVisible(r.Context(), p.ByName("game"), *req.Show)
		if err != nil {
			writeError(w, r, err, "show result", startTime)
			return
		}

		writeJSON(w, r, http.StatusOK, map[string]bool{"show_result": show}, "show result", startTime)
	}
}

func serveStandings(e *quiz.Engine) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		startTime := time.Now()

		standings, err := e.Standings(r.Context(), p.ByName("game"))
		if err != nil {
			writeError(w, r, err, "standings", startTime)
			return
		}

		writeJSON(w, r, http.StatusOK, standings, "standings", startTime)
	}
}

func serveCreateTeam(e *quiz.Engine) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		startTime := time.Now()

		var req teamRequest
		if err := decodeBody(w, r, &req, true); err != nil {
			writeError(w, r, err, "create team", startTime)
			return
		}

		var name, color string
		if req.Name != nil {
			name = *req.Name
		}
		if req.Color != nil {
			color = *req.Color
		}

		t, err := e.AddTeam(r.Context(), p.ByName("game"), name, color)
		if err != nil {
			writeError(w, r, err, "create team", startTime)
			return
		}

		writeJSON(w, r, http.StatusCreated, t, "create team", startTime)
	}
}

func serveUpdateTeam(e *quiz.Engine) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		startTime := time.Now()

		var req teamRequest
		if err := decodeBody(w, r, &req, false); err != nil {
			writeError(w, r, err, "update team", startTime)
			return
		}
		if err := req.requireChange(); err != nil {
			writeError(w, r, err, "update team", startTime)
			return
		}

		t, err := e.UpdateTeam(r.Context(), p.ByName("game"), p.ByName("team"), req.Name, req.Color)
		if err != nil {
			writeError(w, r, err, "update team", startTime)
			return
		}

		writeJSON(w, r, http.StatusOK, t, "update team", startTime)
	}
}

func serveDeleteTeam(e *quiz.Engine) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		startTime := time.Now()

		if err := e.RemoveTeam(r.Context(), p.ByName("game"), p.ByName("team")); err != nil {
			writeError(w, r, err, "delete team", startTime)
			return
		}

		writeJSON(w, r, http.StatusOK, map[string]string{"message": "Team deleted"}, "delete team", startTime)
	}
}

func serveCreateQuestion(e *quiz.Engine) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		startTime := time.Now()

		var req questionRequest
		if err := decodeBody(w, r, &req, true); err != nil {
			writeError(w, r, err, "create question", startTime)
			return
		}

		text := ""
		if req.QuestionText != nil {
			text = *req.QuestionText
		}
		correct := quiz.DefaultCorrectAnswer
		if req.CorrectAnswer != nil {
			correct = *req.CorrectAnswer
		}

		q, err := e.AddQuestion(r.Context(), p.ByName("game"), text, correct)
		if err != nil {
			writeError(w, r, err, "create question", startTime)
			return
		}

		writeJSON(w, r, http.StatusCreated, newQuestionView(q), "create question", startTime)
	}
}

func serveUpdateQuestion(e *quiz.Engine) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		startTime := time.Now()

		var req questionRequest
		if err := decodeBody(w, r, &req, false); err != nil {
			writeError(w, r, err, "update question", startTime)
			return
		}
		if err := req.requireChange(); err != nil {
			writeError(w, r, err, "update question", startTime)
			return
		}

		q, err := e.EditQuestion(r.Context(), p.ByName("game"), p.ByName("question"), req.QuestionText, req.CorrectAnswer)
		if err != nil {
			writeError(w, r, err, "update question", startTime)
			return
		}

		writeJSON(w, r, http.StatusOK, newQuestionView(q), "update question", startTime)
	}
}

func serveDeleteQuestion(e *quiz.Engine) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		startTime := time.Now()

		if err := e.RemoveQuestion(r.Context(), p.ByName("game"), p.ByName("question")); err != nil {
			writeError(w, r, err, "delete question", startTime)
			return
		}

		writeJSON(w, r, http.StatusOK, map[string]string{"message": "Question deleted"}, "delete question", startTime)
	}
}

type scoreFunc func(e *quiz.Engine, r *http.Request, gameID, questionID string, guesses []quiz.Guess) (quiz.Result, error)

func submitAnswers(e *quiz.Engine, r *http.Request, gameID, questionID string, guesses []quiz.Guess) (quiz.Result, error) {
	return e.Submit(r.Context(), gameID, questionID, guesses)
}

func reviseAnswers(e *quiz.Engine, r *http.Request, gameID, questionID string, guesses []quiz.Guess) (quiz.Result, error) {
	return e.Revise(r.Context(), gameID, questionID, guesses)
}

// serveScore handles both submit and revise; they share a request shape
// and a response shape.
func serveScore(e *quiz.Engine, what string, score scoreFunc) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		startTime := time.Now()

		var req answersRequest
		if err := decodeBody(w, r, &req, false); err != nil {
			writeError(w, r, err, what, startTime)
			return
		}
		guesses, err := req.guesses()
		if err != nil {
			writeError(w, r, err, what, startTime)
			return
		}

		gameID, questionID := p.ByName("game"), p.ByName("question")
		res, err := score(e, r, gameID, questionID, guesses)
		if err != nil {
			writeError(w, r, err, what, startTime)
			return
		}

		log.Info().
			Str("game", gameID).
			Str("question", questionID).
			Int("correct", res.CorrectAnswer).
			Int("teams", len(res.Results)).
			Msg(what)

		writeJSON(w, r, http.StatusOK, res, what, startTime)
	}
}

func serveSavedAnswers(e *quiz.Engine) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		startTime := time.Now()

		answers, err := e.SavedAnswers(r.Context(), p.ByName("game"), p.ByName("question"))
		if err != nil {
			writeError(w, r, err, "saved answers", startTime)
			return
		}

		writeJSON(w, r, http.StatusOK, map[string]any{"answers": answers}, "saved answers", startTime)
	}
}

func registerAPI(cfg *Config, e *quiz.Engine, hubs *HubManager, mux *httprouter.Router) {
	api := cfg.prefix + "/api"
	game := api + "/games/:game"
	question := game + "/questions/:question"

	mux.GET(api+"/health", serveHealthCheck())

	mux.GET(api+"/games", serveListGames(e))
	mux.POST(api+"/games", serveCreateGame(e))
	mux.GET(game, serveGame(e))
	mux.DELETE(game, serveDeleteGame(e))
	mux.POST(game+"/reset", serveResetGame(e))
	mux.GET(game+"/result-status", serveResultStatus(e))
	mux.POST(game+"/show-result", serveShowResult(e))
	mux.GET(game+"/standings", serveStandings(e))
	mux.GET(game+"/qr", serveQRCode(cfg, e))
	mux.GET(game+"/ws", serveDisplaySocket(e, hubs))

	mux.POST(game+"/teams", serveCreateTeam(e))
	mux.PUT(game+"/teams/:team", serveUpdateTeam(e))
	mux.DELETE(game+"/teams/:team", serveDeleteTeam(e))

	mux.POST(game+"/questions", serveCreateQuestion(e))
	mux.PUT(question, serveUpdateQuestion(e))
	mux.DELETE(question, serveDeleteQuestion(e))
	mux.POST(question+"/submit", serveScore(e, "submit answers", submitAnswers))
	mux.POST(question+"/revise", serveScore(e, "revise answers", reviseAnswers))
	mux.GET(question+"/answers", serveSavedAnswers(e))
}
