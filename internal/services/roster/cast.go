package roster

// CastSlot is one Thornwood villager identity a participant can receive
type CastSlot struct {
	Name  string
	Intro string
}

// characterCast holds the eight Thornwood identities, enough for seven
// human players plus the adversary at the largest game size.
var characterCast = []CastSlot{
	{
		Name:  "Blacksmith Garin",
		Intro: "The broad-shouldered smith hammers at his forge, sparks dancing in the dark.",
	},
	{
		Name:  "Merchant Elara",
		Intro: "The traveling merchant counts her coins by candlelight, eyes darting to the door.",
	},
	{
		Name:  "Scholar Theron",
		Intro: "The old scholar peers at ancient texts, muttering about omens in the stars.",
	},
	{
		Name:  "Herbalist Mira",
		Intro: "The herbalist tends her garden of strange flowers, humming a melody no one recognizes.",
	},
	{
		Name:  "Brother Aldric",
		Intro: "The chapel keeper lights the evening candles, his prayers a whisper against the wind.",
	},
	{
		Name:  "Innkeeper Bram",
		Intro: "The innkeeper pours ale with a steady hand, but his eyes follow everyone who enters.",
	},
	{
		Name:  "Huntress Reva",
		Intro: "The huntress sharpens her arrows by firelight, her wolf-hound growling at shadows.",
	},
	{
		Name:  "Miller Oswin",
		Intro: "The old miller keeps his wheel turning day and night, watching the river for signs only he understands.",
	},
}

// CharacterCast returns a copy of the full Thornwood cast
func CharacterCast() []CastSlot {
	cast := make([]CastSlot, len(characterCast))
	copy(cast, characterCast)
	return cast
}
