package storage

import (
	"context"
	"sync"

	"github.com/akimizu21/percent-app-sample/quiz"
)

// Memory keeps encoded snapshots in process memory. Nothing survives a
// restart.
type Memory struct {
	mu    sync.RWMutex
	games map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{
		games: make(map[string][]byte),
	}
}

func (m *Memory) Load(_ context.Context, id string) (*quiz.Game, error) {
	m.mu.RLock()
	data, ok := m.games[id]
	m.mu.RUnlock()
	if !ok {
		return nil, notFound(id)
	}
	return decodeGame(data)
}

func (m *Memory) Save(_ context.Context, g *quiz.Game) error {
	data, err := encodeGame(g)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.games[g.ID] = data
	m.mu.Unlock()

	return nil
}

func (m *Memory) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.games[id]; !ok {
		return notFound(id)
	}
	delete(m.games, id)

	return nil
}

func (m *Memory) List(_ context.Context) ([]*quiz.Game, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*quiz.Game, 0, len(m.games))
	for _, data := range m.games {
		g, err := decodeGame(data)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, nil
}

func (m *Memory) Close() error {
	return nil
}
