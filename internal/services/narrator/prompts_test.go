package narrator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildPhasePromptGameStarted(t *testing.T) {
	prompt := buildPhasePrompt(&PhaseEvent{
		Type: EventGameStarted,
		Data: map[string]any{
			"character_cast": []string{"Blacksmith Garin", "Merchant Elara", "Innkeeper Bram"},
		},
	})

	assert.Contains(t, prompt, "[GAME START — NIGHT PHASE — Round 1]")
	assert.Contains(t, prompt, "Blacksmith Garin, Merchant Elara, Innkeeper Bram")
	assert.Contains(t, prompt, "foreboding 2–3 sentence monologue")
}

func TestBuildPhasePromptNightResolved(t *testing.T) {
	t.Run("someone died", func(t *testing.T) {
		prompt := buildPhasePrompt(&PhaseEvent{
			Type: EventNightResolved,
			Data: map[string]any{"eliminated": "Scholar Theron"},
		})
		assert.Contains(t, prompt, "Scholar Theron was found dead at dawn")
	})

	t.Run("healer save", func(t *testing.T) {
		prompt := buildPhasePrompt(&PhaseEvent{
			Type: EventNightResolved,
			Data: map[string]any{"eliminated": "", "protected": "Herbalist Mira"},
		})
		assert.Contains(t, prompt, "No one was killed tonight. The Healer secretly protected Herbalist Mira.")
	})

	t.Run("quiet night", func(t *testing.T) {
		prompt := buildPhasePrompt(&PhaseEvent{Type: EventNightResolved})
		assert.Contains(t, prompt, "No one was killed tonight. Narrate the eerie, unsettling dawn")
	})
}

func TestBuildPhasePromptElimination(t *testing.T) {
	t.Run("shapeshifter unmasked", func(t *testing.T) {
		prompt := buildPhasePrompt(&PhaseEvent{
			Type: EventElimination,
			Data: map[string]any{"character": "Innkeeper Bram", "was_traitor": true},
		})
		assert.Contains(t, prompt, "SHAPESHIFTER UNMASKED")
		assert.Contains(t, prompt, "Innkeeper Bram, who IS the Shapeshifter!")
	})

	t.Run("innocent victim", func(t *testing.T) {
		prompt := buildPhasePrompt(&PhaseEvent{
			Type: EventElimination,
			Data: map[string]any{"character": "Huntress Reva", "was_traitor": false, "role": "hunter"},
		})
		assert.Contains(t, prompt, "INNOCENT VICTIM")
		assert.Contains(t, prompt, "Huntress Reva (role: hunter), who was innocent")
	})
}

func TestBuildPhasePromptGameOver(t *testing.T) {
	cases := []struct {
		winner string
		want   string
	}{
		{"villagers", "[GAME OVER — VILLAGERS WIN]"},
		{"shapeshifter", "[GAME OVER — SHAPESHIFTER WINS]"},
		{"jester", "[GAME OVER — THE JESTER WINS]"},
		{"nobody", "[GAME OVER — NO WINNER]"},
	}
	for _, tc := range cases {
		t.Run(tc.winner, func(t *testing.T) {
			prompt := buildPhasePrompt(&PhaseEvent{
				Type: EventGameOver,
				Data: map[string]any{"winner": tc.winner, "reason": "It is done."},
			})
			assert.Contains(t, prompt, tc.want)
			assert.Contains(t, prompt, "It is done.")
		})
	}
}

func TestBuildPhasePromptOtherEvents(t *testing.T) {
	hunter := buildPhasePrompt(&PhaseEvent{
		Type: EventHunterRevenge,
		Data: map[string]any{"hunter": "Huntress Reva", "target": "Miller Oswin"},
	})
	assert.Contains(t, hunter, "The fallen Huntress Reva drags Miller Oswin down with them")

	clue := buildPhasePrompt(&PhaseEvent{
		Type: EventSpectatorClue,
		Data: map[string]any{"from": "Scholar Theron", "word": "cellar"},
	})
	assert.Contains(t, clue, `The spirit of Scholar Theron whispers a single word from beyond the veil: "cellar"`)

	deadlock := buildPhasePrompt(&PhaseEvent{Type: EventNoElimination})
	assert.Contains(t, deadlock, "[NO ELIMINATION]")

	unknown := buildPhasePrompt(&PhaseEvent{Type: "thunderstorm", Data: map[string]any{"loud": true}})
	assert.Contains(t, unknown, "[THUNDERSTORM]")
}

func TestAdvancesAfter(t *testing.T) {
	assert.True(t, advancesAfter(EventNightResolved))
	assert.True(t, advancesAfter(EventElimination))
	assert.True(t, advancesAfter(EventNoElimination))

	assert.False(t, advancesAfter(EventGameStarted))
	assert.False(t, advancesAfter(EventHunterRevenge))
	assert.False(t, advancesAfter(EventSpectatorClue))
	assert.False(t, advancesAfter(EventGameOver))
}

func TestParseHandCount(t *testing.T) {
	t.Run("plain json", func(t *testing.T) {
		got := parseHandCount(`{"hand_count": 3, "confidence": "high"}`)
		assert.Equal(t, 3, got.Count)
		assert.Equal(t, "high", got.Confidence)
	})

	t.Run("markdown fences", func(t *testing.T) {
		got := parseHandCount("```json\n{\"hand_count\": 2, \"confidence\": \"medium\"}\n```")
		assert.Equal(t, 2, got.Count)
		assert.Equal(t, "medium", got.Confidence)
	})

	t.Run("unknown confidence becomes low", func(t *testing.T) {
		got := parseHandCount(`{"hand_count": 5, "confidence": "certain"}`)
		assert.Equal(t, 5, got.Count)
		assert.Equal(t, "low", got.Confidence)
	})

	t.Run("negative count clamps to zero", func(t *testing.T) {
		got := parseHandCount(`{"hand_count": -2, "confidence": "high"}`)
		assert.Equal(t, 0, got.Count)
	})

	t.Run("garbage degrades", func(t *testing.T) {
		got := parseHandCount("I see about three hands?")
		assert.Equal(t, 0, got.Count)
		assert.Equal(t, "low", got.Confidence)
	})
}

func TestPresetLookup(t *testing.T) {
	classic, ok := PresetByID("classic")
	assert.True(t, ok)
	assert.Equal(t, "Charon", classic.Voice)

	_, ok = PresetByID("operatic")
	assert.False(t, ok)

	assert.Equal(t, "classic", presetOrDefault("").ID)
	assert.Equal(t, "classic", presetOrDefault("operatic").ID)
	assert.Equal(t, "sinister", presetOrDefault("sinister").ID)

	all := Presets()
	all[0].ID = "mutated"
	fresh := Presets()
	assert.Equal(t, "classic", fresh[0].ID)
}
