package engine

import (
	"context"
	"fmt"
	"log"

	"github.com/firesidegames/betrayal/internal/entities"
	"github.com/firesidegames/betrayal/internal/repositories/events"
)

// ResolveNight processes night actions in priority order: the adversary's
// kill, then protection, then the investigation. Deaths are reported in
// the result but applied by the caller through EliminateCharacter.
func (s *service) ResolveNight(ctx context.Context, gameID string) (*NightResult, error) {
	game, err := s.gameRepo.Get(ctx, gameID)
	if err != nil {
		return nil, err
	}
	allPlayers, err := s.playerRepo.ListByGame(ctx, gameID)
	if err != nil {
		return nil, err
	}

	alive := make([]*entities.Player, 0, len(allPlayers))
	for _, p := range allPlayers {
		if p.Alive {
			alive = append(alive, p)
		}
	}

	// Keyed by player ID so two players sharing a role cannot silently
	// overwrite each other.
	nightActions := make(map[string]string)
	for _, p := range allPlayers {
		if p.NightAction != "" && p.Role != "" {
			nightActions[p.ID] = p.NightAction
		}
	}

	roleToPlayerID := make(map[entities.Role]string)
	idToPlayer := make(map[string]*entities.Player)
	charToPlayer := make(map[string]*entities.Player)
	for _, p := range alive {
		if p.Role != "" {
			roleToPlayerID[p.Role] = p.ID
		}
		idToPlayer[p.ID] = p
		charToPlayer[p.CharacterName] = p
	}

	result := &NightResult{}
	adversary := game.Adversary

	// Step 1: the adversary's kill target, set earlier through a hidden
	// night_target event. A loyal adversary never kills.
	var killTarget string
	if adversary != nil && adversary.Alive && adversary.Hostile {
		eventLog, err := s.eventRepo.List(ctx, gameID)
		if err != nil {
			return nil, err
		}
		targets := events.FilterByType(events.FilterByRound(eventLog, game.Round), entities.EventNightTarget)
		for _, ev := range targets {
			if ev.Actor == adversary.Name {
				if _, ok := charToPlayer[ev.Target]; ok {
					killTarget = ev.Target
				}
				break
			}
		}
		if killTarget == "" {
			if len(alive) > 0 {
				killTarget = alive[s.picker.Intn(len(alive))].CharacterName
				log.Printf("[%s] Shapeshifter had no target set, picked at random: %s", gameID, killTarget)
			} else {
				log.Printf("[%s] Shapeshifter had no target and no alive players, skipping kill", gameID)
			}
		}
	}

	// Step 2: healer protection
	var protected string
	if healerID := roleToPlayerID[entities.RoleHealer]; healerID != "" {
		if target, ok := nightActions[healerID]; ok {
			protected = target
			result.Protected = target
		}
	}

	// Step 2b: bodyguard protection
	var guarded string
	bodyguardID := roleToPlayerID[entities.RoleBodyguard]
	if bodyguardID != "" {
		if target, ok := nightActions[bodyguardID]; ok {
			guarded = target
		}
	}

	// Step 3: apply the kill. Healer block spares everyone, bodyguard
	// match trades the bodyguard's life for the target's, otherwise the
	// target dies.
	if killTarget != "" {
		switch killTarget {
		case protected:
			log.Printf("[%s] Kill on %s blocked by Healer", gameID, killTarget)
		case guarded:
			if bodyguard, ok := idToPlayer[bodyguardID]; ok {
				result.Killed = bodyguard.CharacterName
				result.BodyguardSacrifice = true
				log.Printf("[%s] Bodyguard %s died protecting %s", gameID, bodyguard.CharacterName, killTarget)
			} else {
				log.Printf("[%s] Bodyguard player not found, sacrifice skipped", gameID)
			}
		default:
			result.Killed = killTarget
			if victim, ok := charToPlayer[killTarget]; ok && victim.Role == entities.RoleHunter {
				result.HunterTriggered = true
				log.Printf("[%s] Hunter %s was killed, revenge triggered", gameID, killTarget)
			}
		}
	}

	// Step 4: investigation. The drunk believes they are the seer and is
	// handed the inverted answer.
	seerID := roleToPlayerID[entities.RoleSeer]
	drunkID := roleToPlayerID[entities.RoleDrunk]

	var investigatorID, investigationTarget string
	if seerID != "" {
		if target, ok := nightActions[seerID]; ok {
			investigatorID = seerID
			investigationTarget = target
		}
	}
	if investigatorID == "" && drunkID != "" {
		if target, ok := nightActions[drunkID]; ok {
			investigatorID = drunkID
			investigationTarget = target
		}
	}

	isDrunk := false
	if investigatorID != "" && investigationTarget != "" {
		isDrunk = investigatorID == drunkID

		var truth bool
		switch {
		case adversary != nil && adversary.Name == investigationTarget:
			truth = adversary.Hostile
		case charToPlayer[investigationTarget] != nil:
			truth = charToPlayer[investigationTarget].Role == entities.RoleShapeshifter
		}

		reported := truth
		if isDrunk {
			reported = !truth
			log.Printf("[%s] Drunk investigated %s, given the wrong result", gameID, investigationTarget)
		}

		result.Investigation = &InvestigationResult{
			Character:             investigationTarget,
			IsShapeshifter:        reported,
			InvestigatingPlayerID: investigatorID,
		}
	}

	if err := s.logNightEvents(ctx, game, result, killTarget, protected, bodyguardID, idToPlayer, isDrunk); err != nil {
		return nil, err
	}

	if err := s.playerRepo.ClearNightActions(ctx, gameID); err != nil {
		return nil, fmt.Errorf("failed to clear night actions: %w", err)
	}

	return result, nil
}

// logNightEvents writes the hidden record of everything that happened at
// night for the post-game timeline.
func (s *service) logNightEvents(
	ctx context.Context,
	game *entities.Game,
	result *NightResult,
	killTarget, protected, bodyguardID string,
	idToPlayer map[string]*entities.Player,
	isDrunk bool,
) error {
	adversary := game.Adversary

	if killTarget != "" {
		actor := "shapeshifter"
		if adversary != nil {
			actor = adversary.Name
		}
		blocked := killTarget != result.Killed && !result.BodyguardSacrifice
		err := s.eventRepo.Append(ctx, &entities.GameEvent{
			ID:     s.uuider.New(),
			GameID: game.ID,
			Type:   entities.EventNightKillAttempt,
			Round:  game.Round,
			Phase:  entities.PhaseNight,
			Actor:  actor,
			Target: killTarget,
			Data: map[string]any{
				"blocked":             blocked,
				"bodyguard_sacrifice": result.BodyguardSacrifice,
			},
			Visible: false,
		})
		if err != nil {
			return err
		}
	}

	if result.BodyguardSacrifice {
		if bodyguard, ok := idToPlayer[bodyguardID]; ok {
			err := s.eventRepo.Append(ctx, &entities.GameEvent{
				ID:      s.uuider.New(),
				GameID:  game.ID,
				Type:    entities.EventBodyguardSacrifice,
				Round:   game.Round,
				Phase:   entities.PhaseNight,
				Actor:   bodyguard.CharacterName,
				Target:  killTarget,
				Visible: false,
			})
			if err != nil {
				return err
			}
		}
	}

	if protected != "" {
		actor := "healer"
		for _, p := range idToPlayer {
			if p.Role == entities.RoleHealer {
				actor = p.CharacterName
				break
			}
		}
		err := s.eventRepo.Append(ctx, &entities.GameEvent{
			ID:      s.uuider.New(),
			GameID:  game.ID,
			Type:    entities.EventNightHeal,
			Round:   game.Round,
			Phase:   entities.PhaseNight,
			Actor:   actor,
			Target:  protected,
			Visible: false,
		})
		if err != nil {
			return err
		}
	}

	if result.Investigation != nil {
		actor := "seer"
		if p, ok := idToPlayer[result.Investigation.InvestigatingPlayerID]; ok {
			actor = p.CharacterName
		}
		err := s.eventRepo.Append(ctx, &entities.GameEvent{
			ID:     s.uuider.New(),
			GameID: game.ID,
			Type:   entities.EventNightInvestigation,
			Round:  game.Round,
			Phase:  entities.PhaseNight,
			Actor:  actor,
			Target: result.Investigation.Character,
			Data: map[string]any{
				"result":   result.Investigation.IsShapeshifter,
				"is_drunk": isDrunk,
			},
			Visible: false,
		})
		if err != nil {
			return err
		}
	}

	return nil
}
