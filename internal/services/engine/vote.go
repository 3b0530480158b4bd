package engine

import (
	"context"
	"fmt"
	"log"
	"sort"

	"github.com/firesidegames/betrayal/internal/entities"
)

func (s *service) TallyVotes(ctx context.Context, gameID string) (*VoteResult, error) {
	allPlayers, err := s.playerRepo.ListByGame(ctx, gameID)
	if err != nil {
		return nil, err
	}

	tally := make(map[string]int)
	for _, p := range allPlayers {
		if p.VotedFor != "" {
			tally[p.VotedFor]++
		}
	}

	game, err := s.gameRepo.Get(ctx, gameID)
	if err != nil {
		return nil, err
	}

	// The adversary votes too. Its vote is cleared here so it cannot
	// leak into the next round.
	adversary := game.Adversary
	if adversary != nil && adversary.Alive && adversary.VotedFor != "" {
		tally[adversary.VotedFor]++
		if _, err := s.gameRepo.Mutate(ctx, gameID, func(g *entities.Game) error {
			if g.Adversary != nil {
				g.Adversary.VotedFor = ""
			}
			return nil
		}); err != nil {
			return nil, err
		}
	}

	if len(tally) == 0 {
		return &VoteResult{Outcome: VoteOutcomeNoVotes, Tally: map[string]int{}, Tied: []string{}}, nil
	}

	maxVotes := 0
	for _, count := range tally {
		if count > maxVotes {
			maxVotes = count
		}
	}
	var leaders []string
	for character, count := range tally {
		if count == maxVotes {
			leaders = append(leaders, character)
		}
	}
	sort.Strings(leaders)

	if len(leaders) == 1 {
		log.Printf("[%s] Vote result: %s eliminated with %d votes", gameID, leaders[0], maxVotes)
		return &VoteResult{
			Outcome:    VoteOutcomeEliminated,
			Eliminated: leaders[0],
			Tally:      tally,
			Tied:       []string{},
		}, nil
	}

	eliminated := leaders[s.picker.Intn(len(leaders))]
	log.Printf("[%s] Vote tie between %v, random pick: %s", gameID, leaders, eliminated)
	return &VoteResult{
		Outcome:    VoteOutcomeTie,
		Eliminated: eliminated,
		Tally:      tally,
		Tied:       leaders,
	}, nil
}

func (s *service) EliminateCharacter(ctx context.Context, gameID, characterName string, byVote bool) (*EliminationResult, error) {
	game, err := s.gameRepo.Get(ctx, gameID)
	if err != nil {
		return nil, err
	}
	allPlayers, err := s.playerRepo.ListByGame(ctx, gameID)
	if err != nil {
		return nil, err
	}

	adversary := game.Adversary
	isAdversary := adversary != nil && adversary.Name == characterName

	result := &EliminationResult{
		WasAdversary:         isAdversary && adversary.Hostile,
		IsLoyalAdversaryLoss: isAdversary && !adversary.Hostile,
	}

	if isAdversary {
		if !adversary.Alive {
			log.Printf("[%s] eliminate: character %q already eliminated, skipping", gameID, characterName)
			return &EliminationResult{}, nil
		}
		result.Found = true
		if _, err := s.gameRepo.Mutate(ctx, gameID, func(g *entities.Game) error {
			if g.Adversary != nil {
				g.Adversary.Alive = false
			}
			return nil
		}); err != nil {
			return nil, err
		}
		if result.WasAdversary {
			result.Role = entities.RoleShapeshifter
		} else {
			// A loyal adversary is revealed with its cover role
			result.Role = adversary.Role
			if result.Role == "" {
				result.Role = entities.RoleVillager
			}
		}
	} else {
		var target *entities.Player
		for _, p := range allPlayers {
			if p.CharacterName == characterName {
				target = p
				break
			}
		}
		if target == nil {
			log.Printf("[%s] eliminate: character %q not found, skipping", gameID, characterName)
			return result, nil
		}
		// Duplicate delivery of the same elimination must not clear
		// fresh votes or append a second visible event.
		if !target.Alive {
			log.Printf("[%s] eliminate: character %q already eliminated, skipping", gameID, characterName)
			return result, nil
		}

		result.Found = true
		result.Role = target.Role
		if result.Role == "" {
			result.Role = entities.RoleVillager
		}
		if target.Role == entities.RoleHunter {
			result.NeedsHunterRevenge = true
			result.HunterCharacter = characterName
		}

		if _, err := s.playerRepo.Mutate(ctx, gameID, target.ID, func(p *entities.Player) error {
			p.Alive = false
			return nil
		}); err != nil {
			return nil, err
		}
	}

	if err := s.playerRepo.ClearVotes(ctx, gameID); err != nil {
		return nil, fmt.Errorf("failed to clear votes: %w", err)
	}

	err = s.eventRepo.Append(ctx, &entities.GameEvent{
		ID:     s.uuider.New(),
		GameID: gameID,
		Type:   entities.EventElimination,
		Round:  game.Round,
		Phase:  entities.PhaseElimination,
		Target: characterName,
		Data: map[string]any{
			"was_traitor": result.WasAdversary,
			"role":        string(result.Role),
			"by_vote":     byVote,
		},
		Visible: true,
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[%s] Eliminated %s (role=%s, traitor=%t)", gameID, characterName, result.Role, result.WasAdversary)
	return result, nil
}

func (s *service) ExecuteHunterRevenge(ctx context.Context, gameID, hunterCharacter, targetCharacter string) (*EliminationResult, error) {
	result, err := s.EliminateCharacter(ctx, gameID, targetCharacter, false)
	if err != nil {
		return nil, err
	}
	log.Printf("[%s] Hunter %s revenge kill: %s", gameID, hunterCharacter, targetCharacter)

	game, err := s.gameRepo.Get(ctx, gameID)
	if err != nil {
		return nil, err
	}

	err = s.eventRepo.Append(ctx, &entities.GameEvent{
		ID:     s.uuider.New(),
		GameID: gameID,
		Type:   entities.EventHunterRevenge,
		Round:  game.Round,
		Phase:  game.Phase,
		Actor:  hunterCharacter,
		Target: targetCharacter,
		Data: map[string]any{
			"was_traitor": result.WasAdversary,
		},
		Visible: true,
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}
