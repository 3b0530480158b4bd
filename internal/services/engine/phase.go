package engine

import (
	"context"
	"log"

	"github.com/firesidegames/betrayal/internal/entities"
	gameerr "github.com/firesidegames/betrayal/internal/errors"
)

// phaseCycle is the repeating in-game loop. Setup feeds into it once and
// game over is only reached through an explicit win.
var phaseCycle = []entities.Phase{
	entities.PhaseNight,
	entities.PhaseDayDiscussion,
	entities.PhaseDayVote,
	entities.PhaseElimination,
}

func (s *service) AdvancePhase(ctx context.Context, gameID string) (entities.Phase, error) {
	var fromPhase entities.Phase

	updated, err := s.gameRepo.Mutate(ctx, gameID, func(game *entities.Game) error {
		fromPhase = game.Phase

		if game.Phase == entities.PhaseSetup {
			game.Phase = entities.PhaseNight
			game.Round = 1
			return nil
		}

		idx := -1
		for i, phase := range phaseCycle {
			if phase == game.Phase {
				idx = i
				break
			}
		}
		if idx < 0 {
			return gameerr.InvalidStatef("cannot advance from phase %s", game.Phase)
		}

		next := phaseCycle[(idx+1)%len(phaseCycle)]
		game.Phase = next
		if next == entities.PhaseNight {
			game.Round++
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	log.Printf("[%s] Phase: %s -> %s (round %d)", gameID, fromPhase, updated.Phase, updated.Round)
	return updated.Phase, nil
}
