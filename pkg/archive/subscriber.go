package archive

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/tecu23/pairing-server/pkg/events"
	"github.com/tecu23/pairing-server/pkg/game"
)

const saveTimeout = 5 * time.Second

// Subscribe records every ended match published on p
func (s *Store) Subscribe(p *events.Publisher) {
	p.Subscribe(events.EventMatchEnded, s.handleMatchEnded)
}

func (s *Store) handleMatchEnded(event events.Event) {
	summary, ok := event.Payload.(game.Summary)
	if !ok {
		s.logger.Error("invalid match ended payload", zap.String("match_id", event.MatchID))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()

	if _, err := s.Save(ctx, summary); err != nil {
		s.logger.Error("failed to archive match", zap.String("match_id", summary.ID), zap.Error(err))
		return
	}

	s.logger.Debug("archived match", zap.String("match_id", summary.ID))
}
