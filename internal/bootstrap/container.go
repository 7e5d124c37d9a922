package bootstrap

import (
	"context"
	"log"

	"ai-agenthub-be/internal/config"
	"ai-agenthub-be/internal/controller"
	"ai-agenthub-be/internal/handler"
	"ai-agenthub-be/internal/pkg/logger"
	"ai-agenthub-be/internal/pkg/mailer"
	"ai-agenthub-be/internal/pkg/serverutils"
	"ai-agenthub-be/internal/repository/implementation"
	"ai-agenthub-be/internal/repository/memory"
	"ai-agenthub-be/internal/repository/unitofwork"
	"ai-agenthub-be/internal/service"
	"ai-agenthub-be/internal/websocket"
	"ai-agenthub-be/pkg/llm"
	"ai-agenthub-be/pkg/llm/factory"

	pktNats "ai-agenthub-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// fileProcessingTopic is the in-process queue for upload context extraction.
const fileProcessingTopic = "file_processing"

type Container struct {
	// Controllers
	AuthController    controller.IAuthController
	OAuthController   controller.IOAuthController
	UserController    controller.IUserController
	ProjectController controller.IProjectController
	PromptController  controller.IPromptController
	ChatController    controller.IChatController
	FileController    controller.IFileController

	// Background Services (Exposed for main.go to run)
	ConsumerService service.IConsumerService

	// WebSockets & Notification
	NotificationHandler *handler.NotificationHandler
	WebSocketHub        *websocket.Hub
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	serverutils.ConfigureJWTSecret(cfg.App.JWTSecret)

	// 1. Core Facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	emailService := mailer.NewEmailService(
		cfg.SMTP.Host,
		cfg.SMTP.Port,
		cfg.SMTP.Email,
		cfg.SMTP.Password,
		cfg.SMTP.Email,
		cfg.SMTP.SenderName,
	)

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// 3. AI Providers
	llmProvider, err := factory.NewLLMProvider(
		cfg.Ai.LLMProvider,
		cfg.Ai.LLMModel,
		cfg.Ai.LLMBaseURL,
		cfg.Ai.OpenAIKey,
	)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize LLM Provider: %v", err)
	}
	log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Ai.LLMProvider, cfg.Ai.LLMModel)

	var fileStore llm.FileStore
	if fs, err := factory.NewFileStore(cfg.Ai.LLMProvider, cfg.Ai.LLMBaseURL, cfg.Ai.OpenAIKey); err != nil {
		log.Printf("[WARN] Provider file store unavailable: %v (uploads stay local only)", err)
	} else {
		fileStore = fs
	}

	// In-memory store for single-use OAuth login states
	stateRepo := memory.NewStateRepository()

	// 3.5 Infrastructure
	// NATS
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
	}
	natsSub, err := pktNats.NewSubscriber(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Subscriber: %v", err)
	}

	// Redis
	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{
			Addr: cfg.App.RedisURL,
		}
	}
	rdb := redis.NewClient(opt)
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis: %v", err)
	}

	// WebSocket Hub
	wsLogger := logger.NewIsolatedLogger("logs/notification.log")
	wsHub := websocket.NewHub(rdb, wsLogger)
	go wsHub.Run()

	publisherService := service.NewPublisherService(fileProcessingTopic, pubSub)
	consumerService := service.NewConsumerService(
		cfg,
		pubSub,
		fileProcessingTopic,
		uowFactory,
		natsPub,
	)

	// 4. Services
	authService := service.NewAuthService(uowFactory, emailService, natsPub)
	userService := service.NewUserService(cfg, uowFactory, natsPub)
	oauthService := service.NewOAuthService(cfg, uowFactory, stateRepo)
	projectService := service.NewProjectService(cfg, uowFactory, fileStore, natsPub)
	promptService := service.NewPromptService(uowFactory)
	chatService := service.NewChatService(uowFactory, llmProvider)
	fileService := service.NewFileService(cfg, uowFactory, fileStore, publisherService, natsPub)

	// Notification Domain
	notifRepo := implementation.NewNotificationRepository(db)
	notifService := service.NewNotificationService(notifRepo, natsSub, wsHub, sysLogger) // Hub implements NotificationDelivery

	if natsSub != nil {
		go notifService.Start()
	}

	notifHandler := handler.NewNotificationHandler(notifService, natsPub, wsHub, wsLogger)

	// 5. Controllers
	return &Container{
		NotificationHandler: notifHandler,
		WebSocketHub:        wsHub,
		AuthController:      controller.NewAuthController(authService),
		OAuthController:     controller.NewOAuthController(cfg, oauthService),
		UserController:      controller.NewUserController(userService),
		ProjectController:   controller.NewProjectController(projectService),
		PromptController:    controller.NewPromptController(promptService),
		ChatController:      controller.NewChatController(chatService),
		FileController:      controller.NewFileController(fileService),

		ConsumerService: consumerService,
	}
}
