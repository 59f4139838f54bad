package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/akimizu21/percent-app-sample/quiz"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

// gameEvent is published for every committed change. It carries no game
// state; subscribers fetch the game if they need it.
type gameEvent struct {
	GameID  string          `json:"game_id"`
	Kind    quiz.ChangeKind `json:"kind"`
	Version int64           `json:"version,omitempty"`
	At      time.Time       `json:"at"`
}

// eventPublisher mirrors engine changes onto NATS subjects of the form
// <subject>.<game id>.
type eventPublisher struct {
	nc      *nats.Conn
	subject string
}

func newEventPublisher(url, subject string) (*eventPublisher, error) {
	opts := []nats.Option{
		nats.Name("percent"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				log.Warn().Err(err).Msg("NATS disconnected")
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Error().Err(err).Msg("NATS error")
		}),
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	log.Info().Str("url", nc.ConnectedUrl()).Str("subject", subject).Msg("publishing game events")

	return &eventPublisher{nc: nc, subject: subject}, nil
}

func (p *eventPublisher) subjectFor(gameID string) string {
	return p.subject + "." + gameID
}

// GameChanged publishes c. Failures are logged and otherwise ignored; the
// engine has already committed by the time it calls this.
func (p *eventPublisher) GameChanged(_ context.Context, c quiz.Change) {
	ev := gameEvent{GameID: c.GameID, Kind: c.Kind, At: c.At}
	if c.Game != nil {
		ev.Version = c.Game.Version
	}

	data, err := json.Marshal(ev)
	if err != nil {
		log.Error().Err(err).Str("game", c.GameID).Msg("marshal game event")
		return
	}

	if err := p.nc.Publish(p.subjectFor(c.GameID), data); err != nil {
		log.Warn().Err(err).Str("game", c.GameID).Str("kind", string(c.Kind)).Msg("publish game event")
	}
}

// Close flushes anything still buffered and closes the connection.
func (p *eventPublisher) Close() {
	if err := p.nc.Drain(); err != nil {
		p.nc.Close()
	}
}
