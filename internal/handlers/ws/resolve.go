package ws

import (
	"context"
	"fmt"
	"log"

	"github.com/firesidegames/betrayal/internal/entities"
	"github.com/firesidegames/betrayal/internal/services/adversary"
	"github.com/firesidegames/betrayal/internal/services/engine"
	"github.com/firesidegames/betrayal/internal/services/narrator"
	hub "github.com/firesidegames/betrayal/internal/ws"
)

// resolveVotes tallies the day vote and plays out its consequences.
// The runtime's resolution guard makes this run at most once per round
// even when the last two votes land simultaneously.
func (h *Handler) resolveVotes(ctx context.Context, gameID string) {
	rt := h.registry.get(gameID)
	if !rt.tryBeginResolve() {
		return
	}
	defer rt.endResolve()
	rt.stopVoteTimer()

	game, err := h.gameRepo.Get(ctx, gameID)
	if err != nil || game.Phase != entities.PhaseDayVote {
		return
	}

	tally, err := h.engine.TallyVotes(ctx, gameID)
	if err != nil {
		log.Printf("[%s] Vote tally failed: %v", gameID, err)
		return
	}

	if tally.Outcome == engine.VoteOutcomeNoVotes {
		log.Printf("[%s] No votes cast, the village stands paralyzed", gameID)
		h.advanceNow(ctx, gameID)
		h.notifyNarrator(gameID, narrator.EventNoElimination, map[string]any{"tally": tally.Tally})
		return
	}

	elim, err := h.engine.EliminateCharacter(ctx, gameID, tally.Eliminated, true)
	if err != nil {
		log.Printf("[%s] Elimination of %s failed: %v", gameID, tally.Eliminated, err)
		return
	}

	h.hub.BroadcastElimination(gameID, tally.Eliminated, elim.WasAdversary,
		elim.Role.DisplayName(), elim.NeedsHunterRevenge, tally.Tally)
	h.recordVoteSignals(game, tally, elim)

	// Jester exile is a solo win that preempts every other outcome
	if elim.Found && elim.Role.Capability().WinsByExile {
		h.endGame(ctx, gameID, engine.WinnerJester, engine.ReasonJesterExiled)
		return
	}
	// A loyal adversary voted out ends the game with no winner at all
	if elim.IsLoyalAdversaryLoss {
		h.endGame(ctx, gameID, engine.WinnerNobody, engine.ReasonLoyalBetrayed)
		return
	}

	win, err := h.engine.CheckWinCondition(ctx, gameID)
	if err != nil {
		log.Printf("[%s] Win check after vote failed: %v", gameID, err)
		return
	}
	if win != nil {
		h.endGame(ctx, gameID, win.Winner, win.Reason)
		return
	}

	h.advanceNow(ctx, gameID)
	h.notifyNarrator(gameID, narrator.EventElimination, map[string]any{
		"character":   tally.Eliminated,
		"was_traitor": elim.WasAdversary,
		"role":        elim.Role.DisplayName(),
		"tally":       tally.Tally,
	})
}

// recordVoteSignals feeds the day's outcome into the difficulty adapter
func (h *Handler) recordVoteSignals(game *entities.Game, tally *engine.VoteResult, elim *engine.EliminationResult) {
	adapter := h.registry.get(game.ID).difficultyAdapter(game.Difficulty)
	if elim.WasAdversary {
		adapter.RecordSignal(adversary.SignalCorrectAccusation)
		return
	}
	adapter.RecordSignal(adversary.SignalWrongElimination)

	total := 0
	for _, n := range tally.Tally {
		total += n
	}
	if total > 0 && tally.Tally[tally.Eliminated] == total {
		adapter.RecordSignal(adversary.SignalUnanimousWrongVote)
	}
	if game.AdversaryAlive() && tally.Tally[game.Adversary.Name] >= tally.Tally[tally.Eliminated]-1 &&
		tally.Tally[game.Adversary.Name] > 0 {
		adapter.RecordSignal(adversary.SignalCloseVoteAgainstAI)
	}
}

// resolveNight processes the night's actions once the last submission
// arrives. Same guard as vote resolution.
func (h *Handler) resolveNight(ctx context.Context, gameID string) {
	rt := h.registry.get(gameID)
	if !rt.tryBeginResolve() {
		return
	}
	defer rt.endResolve()

	game, err := h.gameRepo.Get(ctx, gameID)
	if err != nil || game.Phase != entities.PhaseNight {
		return
	}

	night, err := h.engine.ResolveNight(ctx, gameID)
	if err != nil {
		log.Printf("[%s] Night resolution failed: %v", gameID, err)
		return
	}

	if night.Killed != "" {
		elim, err := h.engine.EliminateCharacter(ctx, gameID, night.Killed, false)
		if err != nil {
			log.Printf("[%s] Night elimination of %s failed: %v", gameID, night.Killed, err)
			return
		}
		h.hub.BroadcastElimination(gameID, night.Killed, elim.WasAdversary,
			elim.Role.DisplayName(), night.HunterTriggered, nil)

		win, err := h.engine.CheckWinCondition(ctx, gameID)
		if err != nil {
			log.Printf("[%s] Win check after night failed: %v", gameID, err)
			return
		}
		if win != nil {
			h.endGame(ctx, gameID, win.Winner, win.Reason)
			return
		}
	}

	if inv := night.Investigation; inv != nil && inv.InvestigatingPlayerID != "" {
		text := fmt.Sprintf("%s is NOT the Shapeshifter.", inv.Character)
		if inv.IsShapeshifter {
			text = fmt.Sprintf("%s IS the Shapeshifter!", inv.Character)
		}
		h.hub.SendTo(gameID, inv.InvestigatingPlayerID, &hub.SeerResultMessage{
			Type:           hub.TypeSeerResult,
			Character:      inv.Character,
			IsShapeshifter: inv.IsShapeshifter,
			Text:           text,
		})
	}

	// The narrator describes the dawn, then drives the advance to day
	h.notifyNarrator(gameID, narrator.EventNightResolved, map[string]any{
		"eliminated":       night.Killed,
		"protected":        night.Protected,
		"hunter_triggered": night.HunterTriggered,
	})
}

func (h *Handler) notifyNarrator(gameID, eventType string, data map[string]any) {
	err := h.narrator.SendPhaseEvent(gameID, &narrator.PhaseEvent{Type: eventType, Data: data})
	if err != nil {
		log.Printf("[%s] Could not notify narrator of %s: %v", gameID, eventType, err)
		// Without a narrator session nothing will drive the advance, so
		// push the game along directly.
		if eventType == narrator.EventNightResolved ||
			eventType == narrator.EventElimination ||
			eventType == narrator.EventNoElimination {
			h.AdvancePhase(context.Background(), gameID)
		}
	}
}

// AdvancePhase moves the game one step along the phase cycle and kicks
// off whatever the new phase needs. Satisfies the narrator's
// PhaseDriver interface. Guarded so narrator-driven and player-driven
// advances cannot interleave.
func (h *Handler) AdvancePhase(ctx context.Context, gameID string) {
	rt := h.registry.get(gameID)
	if !rt.tryBeginAdvance() {
		log.Printf("[%s] Phase advance already in flight, skipping", gameID)
		return
	}
	defer rt.endAdvance()

	h.advance(ctx, gameID, rt)
}

// advanceNow is the unguarded variant for callers already inside a
// guarded resolution flow.
func (h *Handler) advanceNow(ctx context.Context, gameID string) {
	h.advance(ctx, gameID, h.registry.get(gameID))
}

func (h *Handler) advance(ctx context.Context, gameID string, rt *runtime) {
	game, err := h.gameRepo.Get(ctx, gameID)
	if err != nil || !game.IsInProgress() {
		return
	}

	next, err := h.engine.AdvancePhase(ctx, gameID)
	if err != nil {
		log.Printf("[%s] Phase advance failed: %v", gameID, err)
		return
	}
	h.hub.BroadcastPhaseChange(ctx, gameID, next, -1)

	adapter := rt.difficultyAdapter(game.Difficulty)
	switch next {
	case entities.PhaseNight:
		rt.stopPacingTimer()
		h.FireNightSelection(gameID, adapter)

	case entities.PhaseDayDiscussion:
		// The table gets a fixed window before voting opens
		stop := h.supervisor.After("discussion-"+gameID, h.discussionWindow, func(taskCtx context.Context) {
			h.AdvancePhase(taskCtx, gameID)
		})
		rt.armPacingTimer(stop)

	case entities.PhaseDayVote:
		rt.stopPacingTimer()
		h.supervisor.Go("adversary-vote-"+gameID, func(taskCtx context.Context) {
			if _, err := h.adversary.SelectVoteTarget(taskCtx, gameID, adapter); err != nil {
				log.Printf("[%s] Adversary vote selection failed: %v", gameID, err)
			}
		})
		stop := h.supervisor.After("vote-timeout-"+gameID, h.voteTimeout, func(taskCtx context.Context) {
			log.Printf("[%s] Vote window expired, resolving with cast votes", gameID)
			h.resolveVotes(taskCtx, gameID)
		})
		rt.armVoteTimer(stop)

	default:
		rt.stopPacingTimer()
	}
}

// FireNightSelection asks the adversary for tonight's target without
// blocking the caller.
func (h *Handler) FireNightSelection(gameID string, adapter *adversary.DifficultyAdapter) {
	h.supervisor.Go("adversary-night-"+gameID, func(taskCtx context.Context) {
		if _, err := h.adversary.SelectNightTarget(taskCtx, gameID, adapter); err != nil {
			log.Printf("[%s] Adversary night selection failed: %v", gameID, err)
		}
	})
}

// OnGameStarted runs the real-time side of a successful start: the
// phase broadcast, private role cards, narrator session, and the first
// night target. Called by the HTTP start handler after roles are dealt.
func (h *Handler) OnGameStarted(ctx context.Context, gameID string, cards []*hub.RoleCard) {
	h.hub.BroadcastPhaseChange(ctx, gameID, entities.PhaseNight, 1)
	h.hub.BroadcastGameStart(gameID, cards)

	if err := h.narrator.StartGame(ctx, gameID); err != nil {
		log.Printf("[%s] Could not start narrator session: %v", gameID, err)
	} else {
		h.notifyNarrator(gameID, narrator.EventGameStarted, nil)
	}

	game, err := h.gameRepo.Get(ctx, gameID)
	if err != nil {
		log.Printf("[%s] Could not load game after start: %v", gameID, err)
		return
	}
	h.FireNightSelection(gameID, h.registry.get(gameID).difficultyAdapter(game.Difficulty))
}

// endGame writes the terminal state, reveals everything, and tears the
// session down after the epilogue window.
func (h *Handler) endGame(ctx context.Context, gameID, winner, reason string) {
	game, err := h.gameRepo.Mutate(ctx, gameID, func(g *entities.Game) error {
		g.Status = entities.GameStatusFinished
		g.Phase = entities.PhaseGameOver
		g.Winner = winner
		g.WinReason = reason
		return nil
	})
	if err != nil {
		log.Printf("[%s] Could not finalize game: %v", gameID, err)
		return
	}

	list, err := h.playerRepo.ListByGame(ctx, gameID)
	if err != nil {
		log.Printf("[%s] Could not list players for reveal: %v", gameID, err)
	}
	allEvents, err := h.eventRepo.List(ctx, gameID)
	if err != nil {
		log.Printf("[%s] Could not load events for timeline: %v", gameID, err)
	}

	h.hub.BroadcastGameOver(gameID, winner, reason,
		hub.BuildReveals(list, game.Adversary), hub.BuildTimeline(allEvents))
	log.Printf("[%s] Game over, winner: %s", gameID, winner)

	if err := h.narrator.SendPhaseEvent(gameID, &narrator.PhaseEvent{
		Type: narrator.EventGameOver,
		Data: map[string]any{"winner": winner, "reason": reason},
	}); err != nil {
		log.Printf("[%s] Could not queue epilogue: %v", gameID, err)
	}
	h.narrator.StopGameAfter(gameID, narrator.EpilogueGracePeriod)

	if h.outcomes != nil {
		h.supervisor.Go("archive-"+gameID, func(taskCtx context.Context) {
			if err := h.outcomes.LogGameOutcome(taskCtx, gameID); err != nil {
				log.Printf("[%s] Could not archive outcome: %v", gameID, err)
			}
		})
	}

	h.registry.Remove(gameID)
}
