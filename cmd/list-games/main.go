package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/firesidegames/betrayal/internal/entities"
)

func main() {
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
	defer client.Close()

	// Test connection
	if _, pingErr := client.Ping(ctx).Result(); pingErr != nil {
		log.Fatalf("Failed to connect to Redis: %v", pingErr)
	}

	keys, err := client.Keys(ctx, "game:*").Result()
	if err != nil {
		log.Fatalf("Failed to get game keys: %v", err)
	}

	// "game:<id>" holds the game itself; "game:<id>:players" and the
	// like are sub-keys we skip here.
	games := make([]string, 0, len(keys))
	for _, key := range keys {
		if strings.Count(key, ":") == 1 {
			games = append(games, key)
		}
	}

	fmt.Printf("Found %d games:\n", len(games))
	for _, key := range games {
		data, getErr := client.Get(ctx, key).Result()
		if getErr != nil {
			fmt.Printf("  %s: ERROR - %v\n", key, getErr)
			continue
		}

		var game entities.Game
		if err := json.Unmarshal([]byte(data), &game); err != nil {
			fmt.Printf("  %s: %d bytes (unparseable: %v)\n", key, len(data), err)
			continue
		}

		fmt.Printf("  %s: status=%s phase=%s round=%d difficulty=%s",
			game.ID, game.Status, game.Phase, game.Round, game.Difficulty)
		if game.Winner != "" {
			fmt.Printf(" winner=%s", game.Winner)
		}
		fmt.Println()
	}
}
