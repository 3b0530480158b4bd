package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/redis/go-redis/v9"

	"github.com/firesidegames/betrayal/internal/entities"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: debug-game <game-id>")
		os.Exit(1)
	}

	gameID := os.Args[1]
	ctx := context.Background()

	// Set up Redis
	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		redisURL = "redis://localhost:6379/0"
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		log.Fatalf("Failed to parse Redis URL: %v", err)
	}

	client := redis.NewClient(opts)

	// Test connection first
	if _, pingErr := client.Ping(ctx).Result(); pingErr != nil {
		log.Fatalf("Failed to connect to Redis: %v", pingErr)
	}
	defer func() {
		clientErr := client.Close()
		if clientErr != nil {
			log.Printf("Failed to close Redis connection: %v", clientErr)
		}
	}()

	data, err := client.Get(ctx, fmt.Sprintf("game:%s", gameID)).Result()
	if err != nil {
		log.Printf("Failed to get game: %v", err)
		return
	}

	var game entities.Game
	if err := json.Unmarshal([]byte(data), &game); err != nil {
		log.Printf("Failed to parse game: %v", err)
		return
	}

	fmt.Printf("Game ID: %s\n", game.ID)
	fmt.Printf("Status: %s\n", game.Status)
	fmt.Printf("Phase: %s (round %d)\n", game.Phase, game.Round)
	fmt.Printf("Difficulty: %s\n", game.Difficulty)
	fmt.Printf("Host: %s\n", game.HostPlayerID)
	fmt.Printf("Cast: %v\n", game.CharacterCast)
	if game.Adversary != nil {
		fmt.Printf("Adversary: %s (hostile=%v alive=%v suspicion=%.2f)\n",
			game.Adversary.Name, game.Adversary.Hostile, game.Adversary.Alive, game.Adversary.SuspicionLevel)
	}
	if game.Winner != "" {
		fmt.Printf("Winner: %s (%s)\n", game.Winner, game.WinReason)
	}

	// Players
	ids, err := client.SMembers(ctx, fmt.Sprintf("game:%s:players", gameID)).Result()
	if err != nil {
		log.Printf("Failed to list players: %v", err)
		return
	}
	fmt.Printf("Players: %d\n", len(ids))
	for _, id := range ids {
		raw, getErr := client.Get(ctx, fmt.Sprintf("game:%s:player:%s", gameID, id)).Result()
		if getErr != nil {
			fmt.Printf("  %s: ERROR - %v\n", id, getErr)
			continue
		}
		var p entities.Player
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			fmt.Printf("  %s: unparseable - %v\n", id, err)
			continue
		}
		fmt.Printf("  %s: %s as %q role=%s alive=%v connected=%v\n",
			p.ID, p.Name, p.CharacterName, p.Role, p.Alive, p.Connected)
	}

	// Event log
	raw, err := client.LRange(ctx, fmt.Sprintf("game:%s:events", gameID), 0, -1).Result()
	if err != nil {
		log.Printf("Failed to list events: %v", err)
		return
	}
	fmt.Printf("Events: %d\n", len(raw))
	for _, item := range raw {
		var e entities.GameEvent
		if err := json.Unmarshal([]byte(item), &e); err != nil {
			continue
		}
		fmt.Printf("  r%d %-22s actor=%q target=%q visible=%v\n",
			e.Round, e.Type, e.Actor, e.Target, e.Visible)
	}
}
