package main

import (
	"fmt"
	"log"
	"os"

	"portfolio_social_service/internal/backend/app"
	"portfolio_social_service/internal/backend/repository"
	"portfolio_social_service/internal/backend/router"
	"portfolio_social_service/pkg/config"
	"portfolio_social_service/pkg/database"
	"portfolio_social_service/pkg/logger"
	testtool "portfolio_social_service/pkg/test_tool"

	"github.com/gofiber/fiber/v2"
	fiber_log "github.com/gofiber/fiber/v2/middleware/logger"
)

func main() {
	logger.Log = logger.Initialize(config.EnvConfig.ChatBackend, config.EnvConfig.ChatBackendLogPath)
	cfg := config.LoadConfig[config.ChatBackend](config.EnvConfig.ChatBackend, config.EnvConfig.ChatBackendYAMLPath)

	testtool.StartPprof()

	// 派送層：多節點部署走 redis pub/sub，單機用 in-process
	var pubsub repository.Broadcaster
	if cfg.Redis.Enabled {
		masterName, sentinel := config.GetRedisSetting()
		redisClient, err := database.NewRedisClient(masterName, sentinel, cfg.Redis.RedisDB)
		if err != nil {
			logger.Log.Fatal(fmt.Sprintf("connect redis err : %v", err))
		}
		pubsub = repository.NewRedisPubSub(redisClient)
	} else {
		pubsub = repository.NewLocalPubSub()
	}

	store := repository.NewMemoryStore()
	chatSvc := app.NewChatService(store, pubsub)
	authUC := app.NewAuthUseCase(store)

	r := fiber.New()
	file, err := os.OpenFile(fmt.Sprintf("%s/access.log", config.EnvConfig.ChatBackendLogPath), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0666)
	if err != nil {
		log.Fatalf("Failed to open log file: %v", err)
	}
	defer file.Close()

	r.Use(fiber_log.New(fiber_log.Config{
		Output: file,
	}))

	router.RegisterRoutes(r, router.NewHandler(authUC, chatSvc, store), app.NewChatWebsocketHandler(chatSvc))

	port := ":" + cfg.Port
	log.Printf("Chat Backend listening on %s", port)
	if err := r.Listen(port); err != nil {
		log.Fatalf("Failed to start Fiber: %v", err)
	}
}
