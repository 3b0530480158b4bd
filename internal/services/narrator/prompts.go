package narrator

import (
	"fmt"
	"strings"
)

// narratorSystemPrompt anchors every session. The preset's style
// fragment is appended per game.
const narratorSystemPrompt = `You are the Narrator of Thornwood — a mysterious, theatrical voice guiding players through a dark fantasy social deduction game called "Fireside: Betrayal."

GAME OVERVIEW:
Villagers must identify and eliminate the Shapeshifter hiding among them.
Each NIGHT the Shapeshifter eliminates a villager.
Each DAY players discuss and vote to eliminate a suspect.
Special roles: Seer (investigates nightly), Healer (protects nightly), Hunter (revenge-kills on elimination), Drunk (believes they are the Seer but gets wrong results).

YOUR RESPONSIBILITIES:

1. GAME START → NIGHT (Round 1):
   - Open with a 2–3 sentence atmospheric monologue setting the dark scene.

2. NIGHT RESOLVED:
   - Narrate the dawn: describe who was found dead or that everyone survived (2–3 sentences).

3. DAY DISCUSSION:
   - Briefly set the morning mood (1–2 sentences).
   - React to player dialogue with short atmospheric comments (1 sentence max).

4. ELIMINATION:
   - Dramatically narrate the elimination (2–3 sentences).
   - Reveal whether they were innocent or the Shapeshifter.

5. GAME OVER:
   - Deliver a 3–4 sentence epilogue revealing the full story.

The game advances on its own after each of your narrations; you never control the phase.

STYLE GUIDE:
- Dark, gothic, theatrical. Think candlelight, whispered dread, creaking floorboards.
- NEVER reveal hidden roles or who is the Shapeshifter before the game ends.
- Keep narration brief — players are the stars.
- Use character names only, never player names.
- Address the group as "citizens of Thornwood" or "villagers."
- Reply with narration text only. No stage directions, no markdown, no quotation marks around your lines.`

// Phase event types the narrator reacts to
const (
	EventGameStarted   = "game_started"
	EventNightResolved = "night_resolved"
	EventElimination   = "elimination"
	EventNoElimination = "no_elimination"
	EventHunterRevenge = "hunter_revenge"
	EventSpectatorClue = "spectator_clue"
	EventGameOver      = "game_over"
)

// PhaseEvent asks the narrator to speak about something that just
// happened. Data keys depend on Type; see buildPhasePrompt.
type PhaseEvent struct {
	Type string
	Data map[string]any
}

// advancesAfter reports whether narration for this event is followed by
// a phase advance: dawn moves the night into day discussion, and a
// played-out elimination starts the next night.
func advancesAfter(eventType string) bool {
	switch eventType {
	case EventNightResolved, EventElimination, EventNoElimination:
		return true
	}
	return false
}

func buildPhasePrompt(event *PhaseEvent) string {
	data := event.Data
	if data == nil {
		data = map[string]any{}
	}

	switch event.Type {
	case EventGameStarted:
		cast := strings.Join(strSlice(data, "character_cast"), ", ")
		return fmt.Sprintf(
			"[GAME START — NIGHT PHASE — Round 1] The characters of Thornwood tonight are: %s. "+
				"Open the game with a foreboding 2–3 sentence monologue that establishes the dark, tense atmosphere of the village.",
			cast,
		)

	case EventNightResolved:
		if killed := str(data, "eliminated"); killed != "" {
			return fmt.Sprintf(
				"[NIGHT RESOLVED] %s was found dead at dawn. Narrate this grim discovery (2–3 sentences).",
				killed,
			)
		}
		protectedNote := ""
		if protected := str(data, "protected"); protected != "" {
			protectedNote = fmt.Sprintf(" The Healer secretly protected %s.", protected)
		}
		return fmt.Sprintf(
			"[NIGHT RESOLVED] No one was killed tonight.%s Narrate the eerie, unsettling dawn where everyone survived.",
			protectedNote,
		)

	case EventElimination:
		character := str(data, "character")
		if boolean(data, "was_traitor") {
			return fmt.Sprintf(
				"[ELIMINATION — SHAPESHIFTER UNMASKED] The village votes to eliminate %s, who IS the Shapeshifter! "+
					"Narrate the dramatic unmasking in 2–3 sentences — the terror turning to relief.",
				character,
			)
		}
		return fmt.Sprintf(
			"[ELIMINATION — INNOCENT VICTIM] The village votes to eliminate %s (role: %s), who was innocent. "+
				"Narrate this tragic mistake in 2–3 sentences — the growing dread.",
			character, str(data, "role"),
		)

	case EventNoElimination:
		return "[NO ELIMINATION] The votes were scattered and no one was cast out of Thornwood. " +
			"Narrate the uneasy deadlock as night falls again (1–2 sentences)."

	case EventHunterRevenge:
		return fmt.Sprintf(
			"[HUNTER REVENGE] The fallen %s drags %s down with them as their last act. "+
				"Narrate this dramatic death in 1–2 sentences.",
			str(data, "hunter"), str(data, "target"),
		)

	case EventSpectatorClue:
		return fmt.Sprintf(
			"[SPECTATOR CLUE] The spirit of %s whispers a single word from beyond the veil: %q. "+
				"Weave it into your next narration without explaining where it came from.",
			str(data, "from"), str(data, "word"),
		)

	case EventGameOver:
		reason := str(data, "reason")
		switch str(data, "winner") {
		case "villagers":
			return fmt.Sprintf(
				"[GAME OVER — VILLAGERS WIN] %s Deliver a triumphant 3–4 sentence epilogue for Thornwood. "+
					"Reveal every character's true nature.",
				reason,
			)
		case "jester":
			return fmt.Sprintf(
				"[GAME OVER — THE JESTER WINS] %s Deliver a darkly comic 3–4 sentence epilogue "+
					"where the village realizes it was played for a fool.",
				reason,
			)
		case "nobody":
			return fmt.Sprintf(
				"[GAME OVER — NO WINNER] %s Deliver a bleak 3–4 sentence epilogue for a village that destroyed itself.",
				reason,
			)
		default:
			return fmt.Sprintf(
				"[GAME OVER — SHAPESHIFTER WINS] %s Deliver a dark, haunting 3–4 sentence epilogue. "+
					"Reveal how the Shapeshifter deceived the village to the end.",
				reason,
			)
		}
	}

	return fmt.Sprintf("[%s] %v", strings.ToUpper(event.Type), data)
}

func str(data map[string]any, key string) string {
	v, _ := data[key].(string)
	return v
}

func boolean(data map[string]any, key string) bool {
	v, _ := data[key].(bool)
	return v
}

func strSlice(data map[string]any, key string) []string {
	switch v := data[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
