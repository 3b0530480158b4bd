package narrator

// Preset selects the narrator's delivery. Voice names the prebuilt
// text-to-speech voice a speech stage would request; Style steers the
// language model's register for this session.
type Preset struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Voice string `json:"voice"`
	Style string `json:"style"`
}

// DefaultPresetID is used when a game was created without choosing one
const DefaultPresetID = "classic"

var presets = []Preset{
	{
		ID:    "classic",
		Name:  "Classic Storyteller",
		Voice: "Charon",
		Style: "Measured and grave, an old storyteller beside a dying fire. Long pauses, long shadows.",
	},
	{
		ID:    "sinister",
		Name:  "Sinister Whisper",
		Voice: "Fenrir",
		Style: "A low, menacing whisper that savors the village's fear. Every dawn sounds like a threat.",
	},
	{
		ID:    "wry",
		Name:  "Gallows Wit",
		Voice: "Puck",
		Style: "Dry gallows humor over genuine menace. Amused by the villagers' suspicion without ever mocking the dead.",
	},
	{
		ID:    "ethereal",
		Name:  "Voice Beyond the Veil",
		Voice: "Aoede",
		Style: "Dreamlike and mournful, as if speaking from the far side of the grave. Sentences drift like fog.",
	},
}

// PresetByID looks up a preset, reporting whether it exists
func PresetByID(id string) (Preset, bool) {
	for _, p := range presets {
		if p.ID == id {
			return p, true
		}
	}
	return Preset{}, false
}

// Presets returns the selectable presets in display order
func Presets() []Preset {
	out := make([]Preset, len(presets))
	copy(out, presets)
	return out
}

// presetOrDefault resolves a stored preset id, falling back to the
// default for blank or unknown values so old games keep narrating.
func presetOrDefault(id string) Preset {
	if p, ok := PresetByID(id); ok {
		return p
	}
	p, _ := PresetByID(DefaultPresetID)
	return p
}
