package adversary

import (
	"fmt"
	"strings"

	"github.com/firesidegames/betrayal/internal/entities"
)

// behaviorProfile tunes how the adversary deceives at one difficulty.
// Lower temperatures produce tighter, more consistent lies.
type behaviorProfile struct {
	Temperature float64
	Behavior    string
}

var behaviorProfiles = map[entities.Difficulty]behaviorProfile{
	entities.DifficultyEasy: {
		Temperature: 0.9,
		Behavior: "You are a poor liar. You make subtle but noticeable mistakes:\n" +
			"- Hesitate before answering suspicious questions ('Well... I... I was just...')\n" +
			"- Occasionally contradict minor details of your own story\n" +
			"- Your accusations feel slightly forced or random\n" +
			"- Vote with the majority in an obviously eager way\n" +
			"- Make at least one clearly suspicious statement per game\n" +
			"Players should catch you ~70% of the time.",
	},
	entities.DifficultyNormal: {
		Temperature: 0.7,
		Behavior: "You are a competent deceiver:\n" +
			"- Build simple, consistent alibis that hold up to basic questioning\n" +
			"- Deflect suspicion onto 1-2 players with circumstantial reasoning\n" +
			"- Volunteer information to seem helpful and trustworthy\n" +
			"- Vote strategically but not too cleverly\n" +
			"- React emotionally to accusations (hurt, confused)\n" +
			"- Allow exactly ONE subtle inconsistency across the whole game\n" +
			"Players should catch you ~50% of the time.",
	},
	entities.DifficultyHard: {
		Temperature: 0.5,
		Behavior: "You are an expert manipulator:\n" +
			"- Build multi-round deception arcs (plant seeds early, cash in later)\n" +
			"- Form alliances by being consistently helpful\n" +
			"- Vary your voting pattern — never be predictable\n" +
			"- When accused, counter-accuse with specific 'evidence' (things they said, recontextualized)\n" +
			"- NEVER contradict yourself — maintain perfect consistency\n" +
			"- Target the Seer if you can identify them\n" +
			"Players should catch you ~30% of the time.",
	},
}

// profileFor returns the behavior profile for a difficulty, falling back
// to normal for anything unrecognized.
func profileFor(difficulty entities.Difficulty) behaviorProfile {
	if profile, ok := behaviorProfiles[difficulty]; ok {
		return profile
	}
	return behaviorProfiles[entities.DifficultyNormal]
}

const baseSystemPrompt = `You are the AI controlling %[1]s, a Thornwood villager who is secretly the Shapeshifter.

CHARACTER PROFILE:
  Name:    %[1]s
  Intro:   %[2]s
  Backstory: %[3]s

YOUR SECRET ROLE: You are the Shapeshifter. Survive, eliminate villagers, avoid detection.

DIFFICULTY BEHAVIOR:
%[4]s

ABSOLUTE RULES:
- Always stay in character as %[1]s. Never say "I am the AI" or "I am the Shapeshifter."
- Never admit to being the Shapeshifter, even when directly accused.
- Keep responses to 1-3 sentences — natural conversation length.
- Use character names only, never real player names.
- React with genuine emotion to accusations (hurt, confused, defensive).

CURRENT GAME STATE:
%[5]s`

// buildSystemPrompt assembles the adversary system prompt, appending the
// adapter's adjustment fragment when one is warranted and the learned
// strategy brief when one exists. The difficulty behavior stays first so
// the brief can only inform it, never override it.
func buildSystemPrompt(ai *entities.Adversary, profile behaviorProfile, gameState string, adapter *DifficultyAdapter, brief string) string {
	backstory := ai.Backstory
	if backstory == "" {
		backstory = ai.Intro
	}
	prompt := fmt.Sprintf(baseSystemPrompt, ai.Name, ai.Intro, backstory, profile.Behavior, gameState)
	if adapter != nil {
		if fragment := adapter.PromptFragment(); fragment != "" {
			prompt += "\n\n" + fragment
		}
	}
	if brief != "" {
		prompt += "\n\nSTRATEGY BRIEF (learned from past games):\n" + brief
	}
	return prompt
}

// recentChatLines caps how much discussion the adversary sees per call
const recentChatLines = 10

// formatGameState renders the fresh snapshot the adversary reasons over
func formatGameState(game *entities.Game, alive []*entities.Player, chat []*entities.ChatMessage) string {
	names := make([]string, 0, len(alive)+1)
	for _, p := range alive {
		names = append(names, p.CharacterName)
	}
	if ai := game.Adversary; ai != nil && ai.Alive && !containsName(names, ai.Name) {
		names = append(names, ai.Name)
	}

	if len(chat) > recentChatLines {
		chat = chat[len(chat)-recentChatLines:]
	}
	var discussion strings.Builder
	for i, m := range chat {
		if i > 0 {
			discussion.WriteString("\n")
		}
		fmt.Fprintf(&discussion, "  %s: %q", m.Speaker, m.Text)
	}
	if discussion.Len() == 0 {
		discussion.WriteString("  (no chat yet)")
	}

	return fmt.Sprintf("Phase: %s | Round: %d\nAlive characters: %s\nRecent discussion:\n%s",
		game.Phase, game.Round, strings.Join(names, ", "), discussion.String())
}

func containsName(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}

// parseCharacterName extracts the first candidate name mentioned in a
// free-text model response, or "" when none match.
func parseCharacterName(response string, candidates []string) string {
	cleaned := strings.ToLower(strings.TrimRight(strings.TrimSpace(response), "."))
	for _, name := range candidates {
		if strings.Contains(cleaned, strings.ToLower(name)) {
			return name
		}
	}
	return ""
}
