package quiz

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// Store persists game snapshots by id. Load and Delete must report a
// missing game with an error matching ErrNotFound; any other error is
// treated as the store being unavailable.
type Store interface {
	Load(ctx context.Context, id string) (*Game, error)
	Save(ctx context.Context, g *Game) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]*Game, error)
}

type ChangeKind string

const (
	ChangeCreated    ChangeKind = "created"
	ChangeUpdated    ChangeKind = "updated"
	ChangeSubmitted  ChangeKind = "submitted"
	ChangeRevised    ChangeKind = "revised"
	ChangeReset      ChangeKind = "reset"
	ChangeVisibility ChangeKind = "visibility"
	ChangeDeleted    ChangeKind = "deleted"
)

// Change describes a committed mutation. Game is a private copy of the new
// state, or nil when the game was deleted.
type Change struct {
	Kind   ChangeKind
	GameID string
	Game   *Game
	At     time.Time
}

// Notifier is told about every committed change, after the game's lock has
// been released. Notifications for one game may arrive out of order; use
// Game.Version to discard stale ones.
type Notifier interface {
	GameChanged(ctx context.Context, c Change)
}

type entry struct {
	mu      sync.RWMutex
	game    *Game
	deleted bool
}

// Engine owns every game known to the process. It is created once at
// startup; a game enters the registry when it is created or first read
// back from the store, and leaves it only when deleted.
//
// Writes to one game are serialized by that game's lock and never block
// other games. A write clones the game, applies the change to the clone,
// saves it, and only then swaps it in, so a failure at any step leaves the
// previous state untouched. Reads share the lock and always see a whole
// committed state.
type Engine struct {
	store     Store
	clock     clockwork.Clock
	notifiers []Notifier

	mu    sync.Mutex
	games map[string]*entry

	// Deletions that happened while a store load was in flight. A load
	// that started before one of these discards what it read.
	deleteSeq  uint64
	loading    int
	tombstones map[string]uint64
}

type Option func(*Engine)

func WithClock(c clockwork.Clock) Option {
	return func(e *Engine) {
		e.clock = c
	}
}

func WithNotifier(n Notifier) Option {
	return func(e *Engine) {
		e.notifiers = append(e.notifiers, n)
	}
}

func NewEngine(store Store, opts ...Option) *Engine {
	e := &Engine{
		store: store,
		clock:      clockwork.NewRealClock(),
		games:      make(map[string]*entry),
		tombstones: make(map[string]uint64),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// entry finds a game in the registry, loading it from the store on a miss.
// The registry lock is not held during the load.
func (e *Engine) entry(ctx context.Context, id string) (*entry, error) {
	e.mu.Lock()
	if ent, ok := e.games[id]; ok {
		e.mu.Unlock()
		return ent, nil
	}
	e.loading++
	start := e.deleteSeq
	e.mu.Unlock()

	g, err := e.store.Load(ctx, id)

	e.mu.Lock()
	defer e.mu.Unlock()

	e.loading--
	deletedAt, deleted := e.tombstones[id]
	if e.loading == 0 {
		clear(e.tombstones)
	}

	if errors.Is(err, ErrNotFound) {
		return nil, newNotFound("game", id)
	}
	if err != nil {
		return nil, newStorageError(err)
	}
	if ent, ok := e.games[id]; ok {
		return ent, nil
	}
	if deleted && deletedAt > start {
		return nil, newNotFound("game", id)
	}

	ent := &entry{game: g}
	e.games[id] = ent

	return ent, nil
}

// read runs fn against the committed state of a game under a shared lock.
// fn must not retain or modify g.
func (e *Engine) read(ctx context.Context, id string, fn func(g *Game) error) error {
	ent, err := e.entry(ctx, id)
	if err != nil {
		return err
	}

	ent.mu.RLock()
	defer ent.mu.RUnlock()
	if ent.deleted {
		return newNotFound("game", id)
	}
	return fn(ent.game)
}

// mutate applies fn to a copy of the game and commits it if fn and the
// store both succeed.
func (e *Engine) mutate(ctx context.Context, id string, kind ChangeKind, fn func(g *Game) error) (*Game, error) {
	ent, err := e.entry(ctx, id)
	if err != nil {
		return nil, err
	}

	ent.mu.Lock()
	if ent.deleted {
		ent.mu.Unlock()
		return nil, newNotFound("game", id)
	}

	next := ent.game.Clone()
	if err := fn(next); err != nil {
		ent.mu.Unlock()
		return nil, err
	}
	next.Version++
	next.UpdatedAt = e.clock.Now().UTC()

	if err := e.store.Save(ctx, next); err != nil {
		ent.mu.Unlock()
		log.Error().Err(err).Str("game", id).Str("change", string(kind)).Msg("save failed")
		return nil, newStorageError(err)
	}
	ent.game = next
	snap := next.Clone()
	ent.mu.Unlock()

	e.notify(ctx, kind, id, snap)

	return snap, nil
}

// notify hands every notifier its own copy of g.
func (e *Engine) notify(ctx context.Context, kind ChangeKind, id string, g *Game) {
	at := e.clock.Now().UTC()
	if g != nil {
		at = g.UpdatedAt
	}
	for _, n := range e.notifiers {
		c := Change{Kind: kind, GameID: id, At: at}
		if g != nil {
			c.Game = g.Clone()
		}
		n.GameChanged(ctx, c)
	}
}

// insert registers and persists a brand new game under a fresh id. The id
// is reserved in the registry with its entry locked, so store I/O happens
// without holding the registry lock and nobody sees the game half made.
func (e *Engine) insert(ctx context.Context, g *Game) (*Game, error) {
	now := e.clock.Now().UTC()
	g.CreatedAt = now
	g.UpdatedAt = now
	g.Version = 1

	for {
		ent := e.reserve(g)

		_, err := e.store.Load(ctx, g.ID)
		if err == nil {
			e.release(g.ID, ent)
			continue
		}
		if !errors.Is(err, ErrNotFound) {
			e.release(g.ID, ent)
			return nil, newStorageError(err)
		}

		if err := e.store.Save(ctx, g); err != nil {
			e.release(g.ID, ent)
			log.Error().Err(err).Str("game", g.ID).Msg("save failed")
			return nil, newStorageError(err)
		}

		ent.game = g
		snap := g.Clone()
		ent.mu.Unlock()

		e.notify(ctx, ChangeCreated, snap.ID, snap)

		return snap, nil
	}
}

// reserve picks an id not in the registry for g and registers a locked,
// empty entry under it.
func (e *Engine) reserve(g *Game) *entry {
	ent := &entry{}
	ent.mu.Lock()

	e.mu.Lock()
	defer e.mu.Unlock()
	for {
		g.ID = randomGameID(gameIDLength)
		if _, taken := e.games[g.ID]; !taken {
			e.games[g.ID] = ent
			return ent
		}
	}
}

// release drops a reservation made by reserve. Anyone already waiting on
// the entry sees it as deleted.
func (e *Engine) release(id string, ent *entry) {
	ent.deleted = true
	ent.mu.Unlock()

	e.mu.Lock()
	if e.games[id] == ent {
		delete(e.games, id)
	}
	e.mu.Unlock()
}

func (e *Engine) CreateGame(ctx context.Context, name string) (*Game, error) {
	name, err := normalizeGameName(name)
	if err != nil {
		return nil, err
	}
	return e.insert(ctx, &Game{Name: name})
}

// Game returns a snapshot of the game.
func (e *Engine) Game(ctx context.Context, id string) (*Game, error) {
	var out *Game
	err := e.read(ctx, id, func(g *Game) error {
		out = g.Clone()
		return nil
	})
	return out, err
}

// ListGames summarizes every stored game, newest first.
func (e *Engine) ListGames(ctx context.Context) ([]Summary, error) {
	games, err := e.store.List(ctx)
	if err != nil {
		return nil, newStorageError(err)
	}

	slices.SortFunc(games, func(a, b *Game) int {
		return cmp.Or(b.CreatedAt.Compare(a.CreatedAt), cmp.Compare(a.ID, b.ID))
	})

	out := make([]Summary, len(games))
	for i, g := range games {
		out[i] = g.Summary()
	}
	return out, nil
}

func (e *Engine) DeleteGame(ctx context.Context, id string) error {
	ent, err := e.entry(ctx, id)
	if err != nil {
		return err
	}

	ent.mu.Lock()
	if ent.deleted {
		ent.mu.Unlock()
		return newNotFound("game", id)
	}
	if err := e.store.Delete(ctx, id); err != nil && !errors.Is(err, ErrNotFound) {
		ent.mu.Unlock()
		return newStorageError(err)
	}
	ent.deleted = true
	ent.mu.Unlock()

	e.mu.Lock()
	if e.games[id] == ent {
		delete(e.games, id)
	}
	e.deleteSeq++
	if e.loading > 0 {
		e.tombstones[id] = e.deleteSeq
	}
	e.mu.Unlock()

	e.notify(ctx, ChangeDeleted, id, nil)

	return nil
}

func (e *Engine) AddTeam(ctx context.Context, gameID, name, color string) (Team, error) {
	var t Team
	_, err := e.mutate(ctx, gameID, ChangeUpdated, func(g *Game) (err error) {
		t, err = g.AddTeam(name, color)
		return err
	})
	return t, err
}

func (e *Engine) UpdateTeam(ctx context.Context, gameID, teamID string, name, color *string) (Team, error) {
	var t Team
	_, err := e.mutate(ctx, gameID, ChangeUpdated, func(g *Game) (err error) {
		t, err = g.UpdateTeam(teamID, name, color)
		return err
	})
	return t, err
}

func (e *Engine) RemoveTeam(ctx context.Context, gameID, teamID string) error {
	_, err := e.mutate(ctx, gameID, ChangeUpdated, func(g *Game) error {
		return g.RemoveTeam(teamID)
	})
	return err
}

func (e *Engine) AddQuestion(ctx context.Context, gameID, text string, correct int) (Question, error) {
	var q Question
	_, err := e.mutate(ctx, gameID, ChangeUpdated, func(g *Game) (err error) {
		q, err = g.AddQuestion(text, correct)
		return err
	})
	return q, err
}

func (e *Engine) EditQuestion(ctx context.Context, gameID, questionID string, text *string, correct *int) (Question, error) {
	var q Question
	_, err := e.mutate(ctx, gameID, ChangeUpdated, func(g *Game) (err error) {
		q, err = g.EditQuestion(questionID, text, correct)
		return err
	})
	return q, err
}

func (e *Engine) RemoveQuestion(ctx context.Context, gameID, questionID string) error {
	_, err := e.mutate(ctx, gameID, ChangeUpdated, func(g *Game) error {
		return g.RemoveQuestion(questionID)
	})
	return err
}

// Submit scores an unanswered question. Of two concurrent submissions for
// the same question, the second fails with QuestionAlreadyAnswered.
func (e *Engine) Submit(ctx context.Context, gameID, questionID string, guesses []Guess) (Result, error) {
	var res Result
	_, err := e.mutate(ctx, gameID, ChangeSubmitted, func(g *Game) (err error) {
		res, err = g.Submit(questionID, guesses)
		return err
	})
	return res, err
}

func (e *Engine) Revise(ctx context.Context, gameID, questionID string, guesses []Guess) (Result, error) {
	var res Result
	_, err := e.mutate(ctx, gameID, ChangeRevised, func(g *Game) (err error) {
		res, err = g.Revise(questionID, guesses)
		return err
	})
	return res, err
}

func (e *Engine) SavedAnswers(ctx context.Context, gameID, questionID string) ([]SavedAnswer, error) {
	var out []SavedAnswer
	err := e.read(ctx, gameID, func(g *Game) (err error) {
		out, err = g.SavedAnswers(questionID)
		return err
	})
	return out, err
}

func (e *Engine) Reset(ctx context.Context, gameID string) error {
	_, err := e.mutate(ctx, gameID, ChangeReset, func(g *Game) error {
		g.Reset()
		return nil
	})
	return err
}

func (e *Engine) SetVisible(ctx context.Context, gameID string, visible bool) (bool, error) {
	g, err := e.mutate(ctx, gameID, ChangeVisibility, func(g *Game) error {
		g.SetVisible(visible)
		return nil
	})
	if err != nil {
		return false, err
	}
	return g.ShowResult, nil
}

func (e *Engine) Visible(ctx context.Context, gameID string) (bool, error) {
	var visible bool
	err := e.read(ctx, gameID, func(g *Game) error {
		visible = g.ShowResult
		return nil
	})
	return visible, err
}

func (e *Engine) Standings(ctx context.Context, gameID string) ([]Standing, error) {
	var out []Standing
	err := e.read(ctx, gameID, func(g *Game) error {
		out = g.Standings()
		return nil
	})
	return out, err
}
