package ws

import (
	"sort"

	"github.com/firesidegames/betrayal/internal/entities"
)

// CharacterReveal unmasks one character for the post-game screen
type CharacterReveal struct {
	CharacterName string `json:"characterName"`
	PlayerName    string `json:"playerName"`
	Role          string `json:"role"`
	Alive         bool   `json:"alive"`
	IsAI          bool   `json:"isAI,omitempty"`
	IsTraitor     bool   `json:"isTraitor,omitempty"`
}

// TimelineEvent is one event as shown in the post-game timeline
type TimelineEvent struct {
	ID      string         `json:"id"`
	Type    string         `json:"type"`
	Actor   string         `json:"actor"`
	Target  string         `json:"target"`
	Data    map[string]any `json:"data"`
	Visible bool           `json:"visible"`
}

// TimelineRound groups one round's events for the post-game timeline
type TimelineRound struct {
	Round  int              `json:"round"`
	Events []*TimelineEvent `json:"events"`
}

// BuildReveals unmasks every character, humans first then the AI. A
// loyal adversary reveals its cover role; a hostile one reveals as the
// shapeshifter regardless of what it claimed.
func BuildReveals(players []*entities.Player, adversary *entities.Adversary) []*CharacterReveal {
	reveals := make([]*CharacterReveal, 0, len(players)+1)
	for _, p := range players {
		role := p.Role
		if role == "" {
			role = entities.RoleVillager
		}
		reveals = append(reveals, &CharacterReveal{
			CharacterName: p.CharacterName,
			PlayerName:    p.Name,
			Role:          string(role),
			Alive:         p.Alive,
		})
	}
	if adversary != nil {
		role := string(entities.RoleShapeshifter)
		if !adversary.Hostile {
			role = string(adversary.Role)
		}
		reveals = append(reveals, &CharacterReveal{
			CharacterName: adversary.Name,
			PlayerName:    "AI",
			Role:          role,
			Alive:         adversary.Alive,
			IsAI:          true,
			IsTraitor:     adversary.Hostile,
		})
	}
	return reveals
}

// BuildTimeline groups events by round, hidden ones included, for the
// post-game reveal. Round-zero setup events are dropped.
func BuildTimeline(events []*entities.GameEvent) []*TimelineRound {
	byRound := make(map[int][]*TimelineEvent)
	for _, ev := range events {
		if ev.Round == 0 {
			continue
		}
		byRound[ev.Round] = append(byRound[ev.Round], &TimelineEvent{
			ID:      ev.ID,
			Type:    ev.Type,
			Actor:   ev.Actor,
			Target:  ev.Target,
			Data:    ev.Data,
			Visible: ev.Visible,
		})
	}

	rounds := make([]int, 0, len(byRound))
	for r := range byRound {
		rounds = append(rounds, r)
	}
	sort.Ints(rounds)

	timeline := make([]*TimelineRound, 0, len(rounds))
	for _, r := range rounds {
		timeline = append(timeline, &TimelineRound{Round: r, Events: byRound[r]})
	}
	return timeline
}
