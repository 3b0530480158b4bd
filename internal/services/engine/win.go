package engine

import (
	"context"
	"log"

	"golang.org/x/sync/errgroup"

	"github.com/firesidegames/betrayal/internal/entities"
)

// minimumRounds is the round floor before a shapeshifter win can be
// declared, keyed by total character count. It keeps small games from
// ending one round in. Catching the shapeshifter always ends the game
// immediately.
var minimumRounds = map[int]int{
	3: 3,
	4: 3,
	5: 3,
	6: 4,
	7: 4,
	8: 5,
}

const fallbackMinimumRounds = 3

func (s *service) CheckWinCondition(ctx context.Context, gameID string) (*WinResult, error) {
	var game *entities.Game
	var allPlayers []*entities.Player

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		game, err = s.gameRepo.Get(gctx, gameID)
		return err
	})
	g.Go(func() error {
		var err error
		allPlayers, err = s.playerRepo.ListByGame(gctx, gameID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	adversary := game.Adversary
	if adversary == nil || !adversary.Alive {
		if adversary != nil && !adversary.Hostile {
			// A loyal adversary's death is settled by the caller before
			// this check runs. Reaching here means a night kill took it
			// out; the game goes on without a shapeshifter to catch.
			return nil, nil
		}
		return &WinResult{
			Winner: WinnerVillagers,
			Reason: ReasonShapeshifterCaught,
		}, nil
	}

	humansAlive := 0
	for _, p := range allPlayers {
		if p.Alive {
			humansAlive++
		}
	}

	if humansAlive <= 1 {
		total := len(game.CharacterCast)
		floor, ok := minimumRounds[total]
		if !ok {
			log.Printf("[%s] check win: unrecognised character count %d, using round floor %d",
				gameID, total, fallbackMinimumRounds)
			floor = fallbackMinimumRounds
		}
		if game.Round < floor {
			log.Printf("[%s] Shapeshifter win deferred, round %d < minimum %d for %d characters",
				gameID, game.Round, floor, total)
			return nil, nil
		}
		return &WinResult{
			Winner: WinnerShapeshifter,
			Reason: ReasonVillageFalls,
		}, nil
	}

	return nil, nil
}
