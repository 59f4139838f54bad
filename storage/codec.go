// Package storage persists quiz games as whole JSON snapshots keyed by id.
package storage

import (
	"encoding/json"
	"fmt"

	"github.com/akimizu21/percent-app-sample/quiz"
)

func encodeGame(g *quiz.Game) ([]byte, error) {
	data, err := json.Marshal(g)
	if err != nil {
		return nil, fmt.Errorf("encode game %s: %w", g.ID, err)
	}
	return data, nil
}

func decodeGame(data []byte) (*quiz.Game, error) {
	var g quiz.Game
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("decode game: %w", err)
	}
	return &g, nil
}

func notFound(id string) error {
	return fmt.Errorf("game %s: %w", id, quiz.ErrNotFound)
}
