package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/firesidegames/betrayal/internal/config"
	apihandler "github.com/firesidegames/betrayal/internal/handlers/api"
	wshandler "github.com/firesidegames/betrayal/internal/handlers/ws"
	"github.com/firesidegames/betrayal/internal/repositories/archive"
	"github.com/firesidegames/betrayal/internal/repositories/chat"
	"github.com/firesidegames/betrayal/internal/repositories/events"
	"github.com/firesidegames/betrayal/internal/repositories/games"
	"github.com/firesidegames/betrayal/internal/repositories/players"
	"github.com/firesidegames/betrayal/internal/services/adversary"
	"github.com/firesidegames/betrayal/internal/services/engine"
	"github.com/firesidegames/betrayal/internal/services/narrator"
	"github.com/firesidegames/betrayal/internal/services/roster"
	"github.com/firesidegames/betrayal/internal/services/strategy"
	"github.com/firesidegames/betrayal/internal/tasks"
	hub "github.com/firesidegames/betrayal/internal/ws"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	} else {
		log.Println("Loaded .env file")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Repositories: Redis when reachable, in-memory otherwise. In-memory
	// games vanish on restart, which is fine for local development.
	var (
		gameRepo    games.Repository
		playerRepo  players.Repository
		eventRepo   events.Repository
		chatRepo    chat.Repository
		redisClient *redis.Client
	)

	redisClient = redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
	if pingErr := redisClient.Ping(pingCtx).Err(); pingErr != nil {
		cancelPing()
		log.Printf("Failed to connect to Redis at %s: %v", cfg.Redis.Addr, pingErr)
		log.Println("Falling back to in-memory repositories")
		_ = redisClient.Close()
		redisClient = nil

		gameRepo = games.NewInMemoryRepository()
		playerRepo = players.NewInMemoryRepository()
		eventRepo = events.NewInMemoryRepository()
		chatRepo = chat.NewInMemoryRepository()
	} else {
		cancelPing()
		log.Printf("Connected to Redis at %s", cfg.Redis.Addr)

		gameRepo = games.NewRedisRepository(&games.RedisRepoConfig{Client: redisClient})
		playerRepo = players.NewRedisRepository(&players.RedisRepoConfig{Client: redisClient})
		eventRepo = events.NewRedisRepository(&events.RedisRepoConfig{Client: redisClient})
		chatRepo = chat.NewRedisRepository(&chat.RedisRepoConfig{Client: redisClient})
	}

	ctx := context.Background()
	model := narrator.NewModel(ctx, cfg.LLM)

	// The archive is optional: without postgres the adversary simply plays
	// without cross-game intelligence.
	var strategySvc strategy.Service
	if cfg.Postgres.DSN != "" {
		db, openErr := archive.Open(cfg.Postgres.DSN)
		if openErr != nil {
			log.Fatalf("Failed to open archive database: %v", openErr)
		}
		strategySvc = strategy.NewService(&strategy.ServiceConfig{
			ArchiveRepository: archive.NewGormRepository(db),
			GameRepository:    gameRepo,
			PlayerRepository:  playerRepo,
			EventRepository:   eventRepo,
			Model:             model,
		})
		if err := strategySvc.LoadBrief(ctx); err != nil {
			log.Printf("Could not load intelligence brief: %v", err)
		}
		log.Println("Post-game archive enabled")
	} else {
		log.Println("No POSTGRES_DSN, post-game archive disabled")
	}

	supervisor := tasks.NewSupervisor()

	connHub := hub.NewHub(&hub.Config{
		GameRepository:   gameRepo,
		PlayerRepository: playerRepo,
	})

	narratorMgr := narrator.NewManager(&narrator.ManagerConfig{
		GameRepository: gameRepo,
		ChatRepository: chatRepo,
		Broadcaster:    connHub,
		Model:          model,
		Supervisor:     supervisor,
	})

	engineSvc := engine.NewService(&engine.ServiceConfig{
		GameRepository:   gameRepo,
		PlayerRepository: playerRepo,
		EventRepository:  eventRepo,
	})
	rosterSvc := roster.NewService(&roster.ServiceConfig{
		GameRepository:   gameRepo,
		PlayerRepository: playerRepo,
	})

	adversaryCfg := &adversary.ServiceConfig{
		GameRepository:   gameRepo,
		PlayerRepository: playerRepo,
		EventRepository:  eventRepo,
		ChatRepository:   chatRepo,
		Model:            model,
	}
	if strategySvc != nil {
		adversaryCfg.BriefSource = strategySvc
	}
	adversarySvc := adversary.NewService(adversaryCfg)

	wsCfg := &wshandler.HandlerConfig{
		Hub:              connHub,
		GameRepository:   gameRepo,
		PlayerRepository: playerRepo,
		EventRepository:  eventRepo,
		ChatRepository:   chatRepo,
		Engine:           engineSvc,
		Adversary:        adversarySvc,
		Narrator:         narratorMgr,
		Supervisor:       supervisor,
		Timing:           &cfg.Game,
	}
	if strategySvc != nil {
		wsCfg.OutcomeLogger = strategySvc
	}
	wsHandler := wshandler.NewHandler(wsCfg)

	apiHandler := apihandler.NewHandler(&apihandler.HandlerConfig{
		GameRepository:   gameRepo,
		PlayerRepository: playerRepo,
		EventRepository:  eventRepo,
		Engine:           engineSvc,
		Roster:           rosterSvc,
		Narrator:         narratorMgr,
		GameStarter:      wsHandler,
		PublicBaseURL:    cfg.HTTP.PublicBaseURL,
	})

	router := gin.Default()
	apiHandler.RegisterRoutes(router)
	router.GET("/ws/:game_id", wsHandler.HandleWS)

	srv := &http.Server{
		Addr:    cfg.HTTP.Addr,
		Handler: router,
	}
	go func() {
		log.Printf("Listening on %s", cfg.HTTP.Addr)
		if serveErr := srv.ListenAndServe(); serveErr != nil && serveErr != http.ErrServerClosed {
			log.Fatalf("Server error: %v", serveErr)
		}
	}()

	sc := make(chan os.Signal, 1)
	signal.Notify(sc, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	<-sc

	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP shutdown error: %v", err)
	}
	if !supervisor.Shutdown(10 * time.Second) {
		log.Println("Background jobs did not finish in time")
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			log.Printf("Error closing Redis connection: %v", err)
		} else {
			log.Println("Closed Redis connection")
		}
	}
}
