package ws

import "github.com/firesidegames/betrayal/internal/entities"

// Outbound message types. Clients switch on Type; unknown types are
// safe for them to ignore.
const (
	TypePong                = "pong"
	TypeConnected           = "connected"
	TypePlayerJoined        = "player_joined"
	TypePlayerLeft          = "player_left"
	TypePlayerReady         = "player_ready"
	TypeRole                = "role"
	TypePhaseChange         = "phase_change"
	TypeElimination         = "elimination"
	TypeVoteUpdate          = "vote_update"
	TypeNightActionReceived = "night_action_received"
	TypeSeerResult          = "seer_result"
	TypeHunterRevenge       = "hunter_revenge"
	TypeClueAccepted        = "clue_accepted"
	TypeCameraVoteCount     = "camera_vote_count"
	TypeGameOver            = "game_over"
	TypeTranscript          = "transcript"
	TypeAudio               = "audio"
	TypeError               = "error"
)

// ErrorMessage reports a rejected action to the sender only
type ErrorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// NewError builds an error message for one connection
func NewError(code, message string) *ErrorMessage {
	return &ErrorMessage{Type: TypeError, Message: message, Code: code}
}

// GameStateSnapshot is the full public state delivered on connect so a
// reconnecting client can resynchronize without extra round trips.
type GameStateSnapshot struct {
	Phase         entities.Phase           `json:"phase"`
	Round         int                      `json:"round"`
	Status        entities.GameStatus      `json:"status"`
	CharacterCast []string                 `json:"characterCast"`
	Players       []*entities.PublicPlayer `json:"players"`
	AICharacter   *AICharacterPublic       `json:"aiCharacter"`
}

// AICharacterPublic is the adversary as everyone may see it: a name and
// a pulse, nothing about alignment.
type AICharacterPublic struct {
	Name  string `json:"name"`
	Alive bool   `json:"alive"`
}

// ConnectedMessage is sent privately to a player right after register
type ConnectedMessage struct {
	Type          string             `json:"type"`
	PlayerID      string             `json:"playerId"`
	CharacterName string             `json:"characterName"`
	GameState     *GameStateSnapshot `json:"gameState"`
}

// PresenceMessage announces a player joining or leaving
type PresenceMessage struct {
	Type          string `json:"type"`
	CharacterName string `json:"characterName"`
	Count         int    `json:"count"`
}

// ReadyMessage announces a lobby ready-up
type ReadyMessage struct {
	Type          string `json:"type"`
	CharacterName string `json:"characterName"`
}

// RoleCard is one player's private identity, sent once at game start
type RoleCard struct {
	PlayerID       string `json:"-"`
	Type           string `json:"type"`
	Role           string `json:"role"`
	CharacterName  string `json:"characterName"`
	CharacterIntro string `json:"characterIntro"`
	Description    string `json:"description"`
}

// PhaseChangeMessage announces entry into a new phase
type PhaseChangeMessage struct {
	Type  string         `json:"type"`
	Phase entities.Phase `json:"phase"`
	Round int            `json:"round"`
}

// EliminationMessage announces a death and its reveal
type EliminationMessage struct {
	Type                 string         `json:"type"`
	CharacterName        string         `json:"characterName"`
	WasTraitor           bool           `json:"wasTraitor"`
	Role                 string         `json:"role"`
	TriggerHunterRevenge bool           `json:"triggerHunterRevenge"`
	Tally                map[string]int `json:"tally"`
}

// VoteUpdateMessage carries the live vote map after each ballot
type VoteUpdateMessage struct {
	Type  string            `json:"type"`
	Votes map[string]string `json:"votes"`
	Tally map[string]int    `json:"tally"`
}

// NightActionReceivedMessage privately acknowledges a night submission
type NightActionReceivedMessage struct {
	Type   string `json:"type"`
	Action string `json:"action"`
	Target string `json:"target"`
}

// SeerResultMessage privately delivers an investigation outcome
type SeerResultMessage struct {
	Type           string `json:"type"`
	Character      string `json:"character"`
	IsShapeshifter bool   `json:"isShapeshifter"`
	Text           string `json:"text"`
}

// HunterRevengeMessage announces the hunter's dying shot
type HunterRevengeMessage struct {
	Type            string `json:"type"`
	HunterCharacter string `json:"hunterCharacter"`
	TargetCharacter string `json:"targetCharacter"`
	TargetWasTraitor bool  `json:"targetWasTraitor"`
}

// ClueAcceptedMessage privately confirms a spectator clue was delivered
type ClueAcceptedMessage struct {
	Type string `json:"type"`
	Word string `json:"word"`
}

// CameraVoteCountMessage privately reports the vision hand count
type CameraVoteCountMessage struct {
	Type       string `json:"type"`
	HandCount  int    `json:"handCount"`
	Confidence string `json:"confidence"`
}

// GameOverMessage is the terminal broadcast with the full reveal
type GameOverMessage struct {
	Type             string             `json:"type"`
	Winner           string             `json:"winner"`
	Reason           string             `json:"reason"`
	CharacterReveals []*CharacterReveal `json:"characterReveals"`
	Timeline         []*TimelineRound   `json:"timeline"`
}

// TranscriptMessage carries one dialogue line. Partial lines stream a
// narration in progress and replace each other on the client; the final
// line has Partial=false and matches the stored transcript.
type TranscriptMessage struct {
	Type    string         `json:"type"`
	Speaker string         `json:"speaker"`
	Text    string         `json:"text"`
	Source  string         `json:"source"`
	Phase   entities.Phase `json:"phase,omitempty"`
	Round   int            `json:"round,omitempty"`
	Partial bool           `json:"partial,omitempty"`
}

// AudioMessage is a best-effort narrator voice chunk clients may ignore
type AudioMessage struct {
	Type       string `json:"type"`
	Data       string `json:"data"`
	SampleRate int    `json:"sampleRate"`
}
