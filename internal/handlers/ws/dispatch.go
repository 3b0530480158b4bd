package ws

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strings"

	"github.com/firesidegames/betrayal/internal/entities"
	"github.com/firesidegames/betrayal/internal/services/narrator"
	hub "github.com/firesidegames/betrayal/internal/ws"
)

// maxChatLength caps free-form chat messages
const maxChatLength = 500

// clueWordPattern allows a single alphabetic word, blocking spaces and
// prompt-injection payloads before the clue reaches the narrator.
var clueWordPattern = regexp.MustCompile(`^[a-zA-Z\-']{1,30}$`)

func setConnected(connected bool) func(*entities.Player) error {
	return func(p *entities.Player) error {
		p.Connected = connected
		return nil
	}
}

func (h *Handler) dispatch(ctx context.Context, gameID, playerID string, msg *envelope) {
	switch msg.Type {
	case "ping":
		h.hub.SendTo(gameID, playerID, map[string]string{"type": hub.TypePong})
	case "ready":
		h.onReady(ctx, gameID, playerID)
	case "message":
		h.onChat(ctx, gameID, playerID, msg.Data)
	case "vote":
		h.onVote(ctx, gameID, playerID, msg.Data)
	case "night_action":
		h.onNightAction(ctx, gameID, playerID, msg.Data)
	case "hunter_revenge":
		h.onHunterRevenge(ctx, gameID, playerID, msg.Data)
	case "quick_reaction":
		h.onQuickReaction(ctx, gameID, playerID, msg.Data)
	case "spectator_clue":
		h.onSpectatorClue(ctx, gameID, playerID, msg.Data)
	case "camera_vote_frame":
		h.onCameraVoteFrame(ctx, gameID, playerID, msg.Data)
	default:
		h.hub.SendTo(gameID, playerID, hub.NewError("UNKNOWN_TYPE",
			fmt.Sprintf("Unknown message type: %q", msg.Type)))
	}
}

func (h *Handler) onReady(ctx context.Context, gameID, playerID string) {
	game, err := h.gameRepo.Get(ctx, gameID)
	if err != nil || game.Status != entities.GameStatusLobby {
		return
	}
	player, err := h.playerRepo.Mutate(ctx, gameID, playerID, func(p *entities.Player) error {
		p.Ready = true
		return nil
	})
	if err != nil {
		log.Printf("[%s] Could not mark %s ready: %v", gameID, playerID, err)
		return
	}

	name := player.CharacterName
	if name == "" {
		name = player.Name
	}
	h.hub.Broadcast(gameID, &hub.ReadyMessage{Type: hub.TypePlayerReady, CharacterName: name})
}

func (h *Handler) onChat(ctx context.Context, gameID, playerID string, data map[string]any) {
	text := strings.TrimSpace(stringField(data, "text"))
	if text == "" {
		return
	}
	if len(text) > maxChatLength {
		text = text[:maxChatLength]
	}

	game, err := h.gameRepo.Get(ctx, gameID)
	if err != nil {
		return
	}
	player, err := h.playerRepo.Get(ctx, gameID, playerID)
	if err != nil {
		return
	}
	if game.IsInProgress() && !player.Alive {
		h.hub.SendTo(gameID, playerID, hub.NewError("PLAYER_ELIMINATED", "Eliminated players cannot send messages"))
		return
	}

	speaker := player.CharacterName
	if speaker == "" {
		speaker = player.Name
	}
	h.storeAndBroadcastChat(ctx, game, playerID, speaker, text)

	h.narrator.ForwardPlayerMessage(gameID, game.Phase, speaker, text)
	h.maybeAdversaryReply(game, speaker, text)
}

// storeAndBroadcastChat persists one player line and fans it out
func (h *Handler) storeAndBroadcastChat(ctx context.Context, game *entities.Game, playerID, speaker, text string) {
	msg := &entities.ChatMessage{
		ID:              h.uuider.New(),
		GameID:          game.ID,
		Speaker:         speaker,
		SpeakerPlayerID: playerID,
		Text:            text,
		Source:          entities.ChatSourcePlayer,
		Phase:           game.Phase,
		Round:           game.Round,
	}
	if err := h.chatRepo.Append(ctx, msg); err != nil {
		log.Printf("[%s] Could not store chat from %s: %v", game.ID, speaker, err)
	}
	h.hub.BroadcastTranscript(game.ID, msg, false)
}

// maybeAdversaryReply lets the adversary answer when it is called out
// by name during day discussion. Fire-and-forget; a model failure just
// means silence.
func (h *Handler) maybeAdversaryReply(game *entities.Game, speaker, text string) {
	if game.Phase != entities.PhaseDayDiscussion || !game.AdversaryAlive() {
		return
	}
	if !strings.Contains(strings.ToLower(text), strings.ToLower(game.Adversary.Name)) {
		return
	}

	gameID := game.ID
	adapter := h.registry.get(gameID).difficultyAdapter(game.Difficulty)
	discussion := fmt.Sprintf("%s: %s", speaker, text)
	h.supervisor.Go("adversary-dialog-"+gameID, func(ctx context.Context) {
		dialog, err := h.adversary.GenerateDialog(ctx, gameID, discussion, adapter)
		if err != nil {
			log.Printf("[%s] Adversary dialog failed: %v", gameID, err)
			return
		}
		fresh, err := h.gameRepo.Get(ctx, gameID)
		if err != nil || fresh.Phase != entities.PhaseDayDiscussion {
			return
		}
		msg := &entities.ChatMessage{
			ID:      h.uuider.New(),
			GameID:  gameID,
			Speaker: dialog.CharacterName,
			Text:    dialog.Text,
			Source:  entities.ChatSourcePlayer,
			Phase:   fresh.Phase,
			Round:   fresh.Round,
		}
		if err := h.chatRepo.Append(ctx, msg); err != nil {
			log.Printf("[%s] Could not store adversary dialog: %v", gameID, err)
		}
		h.hub.BroadcastTranscript(gameID, msg, false)
		h.narrator.ForwardPlayerMessage(gameID, fresh.Phase, dialog.CharacterName, dialog.Text)
	})
}

func (h *Handler) onVote(ctx context.Context, gameID, playerID string, data map[string]any) {
	game, err := h.gameRepo.Get(ctx, gameID)
	if err != nil || game.Phase != entities.PhaseDayVote {
		h.hub.SendTo(gameID, playerID, hub.NewError("WRONG_PHASE", "Votes can only be cast during the day vote phase"))
		return
	}
	player, err := h.playerRepo.Get(ctx, gameID, playerID)
	if err != nil || !player.Alive {
		h.hub.SendTo(gameID, playerID, hub.NewError("PLAYER_ELIMINATED", "Eliminated players cannot vote"))
		return
	}

	target := strings.TrimSpace(stringField(data, "target"))
	if target == "" {
		h.hub.SendTo(gameID, playerID, hub.NewError("MISSING_TARGET", "Vote target is required"))
		return
	}

	list, err := h.playerRepo.ListByGame(ctx, gameID)
	if err != nil {
		log.Printf("[%s] Could not list players for vote: %v", gameID, err)
		return
	}
	if !aliveCharacters(list, game)[target] {
		h.hub.SendTo(gameID, playerID, hub.NewError("INVALID_TARGET",
			fmt.Sprintf("%q is not a valid alive character", target)))
		return
	}
	if player.VotedFor != "" {
		h.hub.SendTo(gameID, playerID, hub.NewError("VOTE_ALREADY_CAST", "You have already voted this round"))
		return
	}

	if _, err := h.playerRepo.Mutate(ctx, gameID, playerID, func(p *entities.Player) error {
		p.VotedFor = target
		return nil
	}); err != nil {
		log.Printf("[%s] Could not record vote from %s: %v", gameID, playerID, err)
		return
	}

	// Fresh read so the update reflects every vote cast so far
	list, err = h.playerRepo.ListByGame(ctx, gameID)
	if err != nil {
		return
	}
	votes := make(map[string]string)
	voted, alive := 0, 0
	for _, p := range list {
		if !p.Alive || p.CharacterName == "" {
			continue
		}
		alive++
		votes[p.CharacterName] = p.VotedFor
		if p.VotedFor != "" {
			voted++
		}
	}
	h.hub.BroadcastVoteUpdate(gameID, votes, voteTally(list, game))

	if voted >= alive {
		h.resolveVotes(ctx, gameID)
	}
}

func (h *Handler) onNightAction(ctx context.Context, gameID, playerID string, data map[string]any) {
	game, err := h.gameRepo.Get(ctx, gameID)
	if err != nil || game.Phase != entities.PhaseNight {
		h.hub.SendTo(gameID, playerID, hub.NewError("WRONG_PHASE", "Night actions can only be submitted during the night phase"))
		return
	}
	player, err := h.playerRepo.Get(ctx, gameID, playerID)
	if err != nil || !player.Alive {
		return
	}
	if !player.Role.Capability().HasNightAction {
		h.hub.SendTo(gameID, playerID, hub.NewError("NO_NIGHT_ACTION", "Your role has no night action"))
		return
	}

	target := strings.TrimSpace(stringField(data, "target"))
	if target == "" {
		h.hub.SendTo(gameID, playerID, hub.NewError("MISSING_TARGET", "Night action target is required"))
		return
	}

	list, err := h.playerRepo.ListByGame(ctx, gameID)
	if err != nil {
		log.Printf("[%s] Could not list players for night action: %v", gameID, err)
		return
	}
	if !aliveCharacters(list, game)[target] {
		h.hub.SendTo(gameID, playerID, hub.NewError("INVALID_TARGET",
			fmt.Sprintf("%q is not a valid alive character", target)))
		return
	}
	if target == player.CharacterName && !player.Role.Capability().CanTargetSelf {
		h.hub.SendTo(gameID, playerID, hub.NewError("INVALID_SELF_TARGET", "You cannot target yourself"))
		return
	}
	if player.NightAction != "" {
		h.hub.SendTo(gameID, playerID, hub.NewError("ALREADY_SUBMITTED", "You have already submitted your night action"))
		return
	}

	if _, err := h.playerRepo.Mutate(ctx, gameID, playerID, func(p *entities.Player) error {
		p.NightAction = target
		return nil
	}); err != nil {
		log.Printf("[%s] Could not record night action from %s: %v", gameID, playerID, err)
		return
	}

	h.hub.SendTo(gameID, playerID, &hub.NightActionReceivedMessage{
		Type:   hub.TypeNightActionReceived,
		Action: stringField(data, "action"),
		Target: target,
	})

	// Fresh read so a concurrent submission is counted
	list, err = h.playerRepo.ListByGame(ctx, gameID)
	if err != nil {
		return
	}
	for _, p := range list {
		if p.HasNightAction() && p.NightAction == "" {
			return
		}
	}
	h.resolveNight(ctx, gameID)
}

func (h *Handler) onHunterRevenge(ctx context.Context, gameID, playerID string, data map[string]any) {
	game, err := h.gameRepo.Get(ctx, gameID)
	if err != nil || !game.IsInProgress() {
		// Duplicate revenge during the epilogue is just dropped
		return
	}
	player, err := h.playerRepo.Get(ctx, gameID, playerID)
	if err != nil || !player.Role.Capability().RevengeOnDeath || player.Alive {
		h.hub.SendTo(gameID, playerID, hub.NewError("NOT_HUNTER", "Only an eliminated Hunter can take revenge"))
		return
	}

	target := strings.TrimSpace(stringField(data, "target"))
	if target == "" || target == player.CharacterName {
		h.hub.SendTo(gameID, playerID, hub.NewError("INVALID_TARGET", "Invalid hunter revenge target"))
		return
	}

	list, err := h.playerRepo.ListByGame(ctx, gameID)
	if err != nil {
		log.Printf("[%s] Could not list players for hunter revenge: %v", gameID, err)
		return
	}
	if !aliveCharacters(list, game)[target] {
		h.hub.SendTo(gameID, playerID, hub.NewError("INVALID_TARGET",
			fmt.Sprintf("%q is not a valid alive character", target)))
		return
	}

	result, err := h.engine.ExecuteHunterRevenge(ctx, gameID, player.CharacterName, target)
	if err != nil {
		log.Printf("[%s] Hunter revenge failed: %v", gameID, err)
		h.hub.SendTo(gameID, playerID, hub.NewError("INVALID_TARGET", "Invalid hunter revenge target"))
		return
	}

	h.hub.Broadcast(gameID, &hub.HunterRevengeMessage{
		Type:             hub.TypeHunterRevenge,
		HunterCharacter:  player.CharacterName,
		TargetCharacter:  target,
		TargetWasTraitor: result.WasAdversary,
	})

	if err := h.narrator.SendPhaseEvent(gameID, &narrator.PhaseEvent{
		Type: narrator.EventHunterRevenge,
		Data: map[string]any{"hunter": player.CharacterName, "target": target},
	}); err != nil {
		log.Printf("[%s] Could not notify narrator of hunter revenge: %v", gameID, err)
	}

	win, err := h.engine.CheckWinCondition(ctx, gameID)
	if err != nil {
		log.Printf("[%s] Win check after hunter revenge failed: %v", gameID, err)
		return
	}
	if win != nil {
		h.endGame(ctx, gameID, win.Winner, win.Reason)
		return
	}
	h.advanceNow(ctx, gameID)
}

func (h *Handler) onQuickReaction(ctx context.Context, gameID, playerID string, data map[string]any) {
	game, err := h.gameRepo.Get(ctx, gameID)
	if err != nil || game.Phase != entities.PhaseDayDiscussion {
		return
	}
	player, err := h.playerRepo.Get(ctx, gameID, playerID)
	if err != nil || !player.Alive {
		return
	}

	reaction := strings.TrimSpace(stringField(data, "reaction"))
	target := strings.TrimSpace(stringField(data, "target"))
	if len(target) > 80 {
		target = target[:80]
	}

	if (reaction == "suspect" || reaction == "trust") && target != "" {
		list, err := h.playerRepo.ListByGame(ctx, gameID)
		if err != nil || !aliveCharacters(list, game)[target] {
			return
		}
	}

	var text string
	switch {
	case reaction == "suspect" && target != "":
		text = fmt.Sprintf("I suspect %s.", target)
	case reaction == "trust" && target != "":
		text = fmt.Sprintf("I trust %s.", target)
	case reaction == "agree":
		text = "I agree."
	case reaction == "information":
		text = "I have information."
	default:
		return
	}

	speaker := player.CharacterName
	if speaker == "" {
		speaker = playerID
	}
	h.storeAndBroadcastChat(ctx, game, playerID, speaker, text)
	h.narrator.ForwardPlayerMessage(gameID, game.Phase, speaker, text)
}

func (h *Handler) onSpectatorClue(ctx context.Context, gameID, playerID string, data map[string]any) {
	game, err := h.gameRepo.Get(ctx, gameID)
	if err != nil || game.Phase != entities.PhaseDayDiscussion {
		h.hub.SendTo(gameID, playerID, hub.NewError("WRONG_PHASE", "Clues can only be submitted during the discussion phase"))
		return
	}
	player, err := h.playerRepo.Get(ctx, gameID, playerID)
	if err != nil || player.Alive {
		h.hub.SendTo(gameID, playerID, hub.NewError("PLAYER_NOT_SPECTATOR", "Only eliminated players can submit clues"))
		return
	}

	rt := h.registry.get(gameID)
	if rt.clueAlreadySent(playerID, game.Round) {
		h.hub.SendTo(gameID, playerID, hub.NewError("CLUE_ALREADY_SENT", "You have already submitted your clue this round"))
		return
	}

	word := strings.TrimSpace(stringField(data, "word"))
	if !clueWordPattern.MatchString(word) {
		h.hub.SendTo(gameID, playerID, hub.NewError("INVALID_CLUE",
			"Clue must be a single word (letters, hyphens, apostrophes only; max 30 chars)"))
		return
	}
	word = strings.ToLower(word)

	from := player.CharacterName
	if from == "" {
		from = "an unknown spirit"
	}

	// Deliver first; the per-round lock engages only on success
	if err := h.narrator.SendPhaseEvent(gameID, &narrator.PhaseEvent{
		Type: narrator.EventSpectatorClue,
		Data: map[string]any{"from": from, "word": word},
	}); err != nil {
		log.Printf("[%s] Could not deliver spectator clue: %v", gameID, err)
		h.hub.SendTo(gameID, playerID, hub.NewError("NARRATOR_ERROR", "Could not deliver clue, please try again"))
		return
	}

	rt.markClueSent(playerID, game.Round)
	h.hub.SendTo(gameID, playerID, &hub.ClueAcceptedMessage{Type: hub.TypeClueAccepted, Word: word})
	log.Printf("[%s] Spectator clue from %s (round %d): %q", gameID, from, game.Round, word)
}

func (h *Handler) onCameraVoteFrame(ctx context.Context, gameID, playerID string, data map[string]any) {
	game, err := h.gameRepo.Get(ctx, gameID)
	if err != nil || game.Phase != entities.PhaseDayVote {
		return
	}
	if !game.InPersonMode || playerID != game.HostPlayerID {
		return
	}

	frame := stringField(data, "frame")
	if frame == "" {
		return
	}

	count := h.narrator.CountRaisedHands(ctx, frame)
	h.hub.SendTo(gameID, playerID, &hub.CameraVoteCountMessage{
		Type:       hub.TypeCameraVoteCount,
		HandCount:  count.Count,
		Confidence: count.Confidence,
	})
}
