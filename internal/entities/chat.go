package entities

import "time"

// ChatSource distinguishes who produced a transcript line
type ChatSource string

const (
	ChatSourcePlayer        ChatSource = "player"
	ChatSourceNarrator      ChatSource = "narrator"
	ChatSourceQuickReaction ChatSource = "quick_reaction"
	ChatSourceSystem        ChatSource = "system"
)

// ChatMessage is one line of the shared game transcript
type ChatMessage struct {
	ID              string     `json:"id"`
	GameID          string     `json:"game_id"`
	Speaker         string     `json:"speaker"`
	SpeakerPlayerID string     `json:"speaker_player_id,omitempty"`
	Text            string     `json:"text"`
	Source          ChatSource `json:"source"`
	Phase           Phase      `json:"phase"`
	Round           int        `json:"round"`
	Timestamp       time.Time  `json:"timestamp"`
}
