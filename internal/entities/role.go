package entities

// Role represents a character's hidden role. RoleShapeshifter exists in the
// enum but is only ever held by the AI adversary.
type Role string

const (
	RoleVillager     Role = "villager"
	RoleSeer         Role = "seer"
	RoleHealer       Role = "healer"
	RoleHunter       Role = "hunter"
	RoleDrunk        Role = "drunk"
	RoleBodyguard    Role = "bodyguard"
	RoleJester       Role = "jester"
	RoleShapeshifter Role = "shapeshifter"
)

// RoleCapability describes what a role can do. Dispatch decisions key off
// this table rather than hard-coded role sets, so adding a role means adding
// a row here.
type RoleCapability struct {
	// HasNightAction means the role submits a target during the night
	HasNightAction bool

	// CanTargetSelf permits the night action to target the actor's own character
	CanTargetSelf bool

	// RevengeOnDeath grants one retaliatory elimination after being eliminated
	RevengeOnDeath bool

	// WinsByExile means being voted out is a personal win
	WinsByExile bool
}

var roleCapabilities = map[Role]RoleCapability{
	RoleVillager:     {},
	RoleSeer:         {HasNightAction: true, CanTargetSelf: true},
	RoleHealer:       {HasNightAction: true},
	RoleHunter:       {RevengeOnDeath: true},
	RoleDrunk:        {HasNightAction: true, CanTargetSelf: true},
	RoleBodyguard:    {HasNightAction: true},
	RoleJester:       {WinsByExile: true},
	RoleShapeshifter: {},
}

// Capability returns the capability row for the role. Unknown roles get the
// zero capability, which means they can do nothing special.
func (r Role) Capability() RoleCapability {
	return roleCapabilities[r]
}

// roleDescriptions are the private cards shown to each player at game start.
var roleDescriptions = map[Role]string{
	RoleVillager: "You are a Villager of Thornwood. Survive the night and identify " +
		"the Shapeshifter hiding among you. Vote wisely during the day.",
	RoleSeer: "You are the Seer. Each night you may investigate one character " +
		"to learn whether they are the Shapeshifter.",
	RoleHealer: "You are the Healer. Each night you may protect one character " +
		"from elimination. You cannot protect yourself.",
	RoleHunter: "You are the Hunter. If you are eliminated, by vote or by night, " +
		"you immediately drag one other character to their doom.",
	RoleDrunk: "You believe you are the Seer, but something is wrong with your visions. " +
		"Your investigations always return the WRONG answer.",
	RoleBodyguard: "You are the Bodyguard. Each night you may guard one other character. " +
		"If the Shapeshifter strikes them, you die in their place.",
	RoleJester: "You are the Jester. You win alone if the village votes you out. " +
		"Act suspicious, but not too suspicious.",
	RoleShapeshifter: "You are the Shapeshifter. Blend in, sow suspicion, and eliminate the " +
		"villagers one by one before they unmask you.",
}

// Description returns the player-facing role card text
func (r Role) Description() string {
	return roleDescriptions[r]
}

// DisplayName returns the role name players see on cards and reveals
func (r Role) DisplayName() string {
	switch r {
	case RoleVillager:
		return "Villager"
	case RoleSeer:
		return "Seer"
	case RoleHealer:
		return "Healer"
	case RoleHunter:
		return "Hunter"
	case RoleDrunk:
		return "Drunk"
	case RoleBodyguard:
		return "Bodyguard"
	case RoleJester:
		return "Jester"
	case RoleShapeshifter:
		return "Shapeshifter"
	}
	return string(r)
}
