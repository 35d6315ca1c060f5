package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/huddleapp/huddle/internal/cache"
	"github.com/huddleapp/huddle/internal/config"
	"github.com/huddleapp/huddle/internal/database"
	postgresrepo "github.com/huddleapp/huddle/internal/repository/postgres"
	"github.com/huddleapp/huddle/internal/service"
	"github.com/huddleapp/huddle/internal/storage"
	"github.com/huddleapp/huddle/internal/transport/http/handlers"
	"github.com/huddleapp/huddle/internal/transport/http/middleware"
	"github.com/huddleapp/huddle/internal/transport/ws"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cfg := config.Load()

	// Database
	pool, err := database.Connect(cfg)
	if err != nil {
		log.Fatal(err)
	}
	log.Println("Connected to database")

	// Redis: permission cache + rate limiting
	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	permCache := cache.New(redisClient, "huddle:", 5*time.Minute)
	limiter := middleware.NewLimiter(redisClient, "huddle:rl:", 120, time.Minute)

	// NATS JetStream: media attachments
	mediaStore, err := storage.NewJetStreamMediaStore(cfg.NATSURL, cfg.MediaBucket)
	if err != nil {
		log.Fatal(err)
	}
	if err := mediaStore.Init(context.Background()); err != nil {
		log.Fatal(err)
	}
	log.Println("Media bucket ready")

	// Repositories
	userRepo := postgresrepo.NewUserRepo(pool)
	deptRepo := postgresrepo.NewDepartmentRepo(pool)
	chatRepo := postgresrepo.NewChatRepo(pool)
	messageRepo := postgresrepo.NewMessageRepo(pool)
	healthRepo := postgresrepo.NewHealthRepo(pool)
	rbacRepo := postgresrepo.NewRBACRepo(pool)

	// Services
	rbacService := service.NewRBACService(rbacRepo, permCache)
	authService := service.NewAuthService(userRepo, cfg.JWTSecret)
	userService := service.NewUserService(userRepo, rbacService)
	deptService := service.NewDepartmentService(deptRepo, userRepo, rbacService)
	chatService := service.NewChatService(chatRepo, userRepo, rbacService)
	messageService := service.NewMessageService(messageRepo, chatRepo, rbacService)
	healthService := service.NewHealthService(healthRepo, userRepo, rbacService)

	// WebSocket hub + realtime notifier
	hub := ws.NewHub()
	go hub.Run()
	notifier := ws.NewHubNotifier(hub)
	authService.SetNotifier(notifier)
	messageService.SetNotifier(notifier)
	userService.SetNotifier(notifier)

	// Handlers
	authHandler := handlers.NewAuthHandler(authService)
	userHandler := handlers.NewUserHandler(userService)
	rbacHandler := handlers.NewRBACHandler(rbacService)
	deptHandler := handlers.NewDepartmentHandler(deptService)
	chatHandler := handlers.NewChatHandler(chatService)
	messageHandler := handlers.NewMessageHandler(messageService)
	healthHandler := handlers.NewHealthHandler(healthService)
	mediaHandler, err := handlers.NewMediaHandler(mediaStore, rbacService)
	if err != nil {
		log.Fatal(err)
	}

	// Auth middleware
	auth := middleware.Auth(cfg.JWTSecret)

	// Routes
	mux := http.NewServeMux()

	// Public
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status": "ok"}`))
	})
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("POST /api/v1/auth/register", authHandler.Register)
	mux.HandleFunc("POST /api/v1/auth/login", authHandler.Login)

	// Protected - Users & approval queue
	mux.Handle("GET /api/v1/users/me", auth(http.HandlerFunc(userHandler.Me)))
	mux.Handle("GET /api/v1/users/pending", auth(http.HandlerFunc(userHandler.ListPending)))
	mux.Handle("POST /api/v1/users/{id}/approve", auth(http.HandlerFunc(userHandler.Approve)))
	mux.Handle("POST /api/v1/users/{id}/reject", auth(http.HandlerFunc(userHandler.Reject)))

	// Protected - Roles & permissions
	mux.Handle("GET /api/v1/users/{id}/permissions", auth(http.HandlerFunc(rbacHandler.Effective)))
	mux.Handle("GET /api/v1/users/{id}/roles", auth(http.HandlerFunc(rbacHandler.Roles)))
	mux.Handle("POST /api/v1/users/{id}/roles", auth(http.HandlerFunc(rbacHandler.AssignRole)))
	mux.Handle("DELETE /api/v1/users/{id}/roles/{role}", auth(http.HandlerFunc(rbacHandler.RemoveRole)))
	mux.Handle("POST /api/v1/users/{id}/grants", auth(http.HandlerFunc(rbacHandler.Grant)))
	mux.Handle("DELETE /api/v1/users/{id}/grants/{permission}", auth(http.HandlerFunc(rbacHandler.Revoke)))
	mux.Handle("POST /api/v1/users/{id}/template", auth(http.HandlerFunc(rbacHandler.ApplyTemplate)))
	mux.Handle("GET /api/v1/templates", auth(http.HandlerFunc(rbacHandler.Templates)))

	// Protected - Departments & staff
	mux.Handle("POST /api/v1/departments", auth(http.HandlerFunc(deptHandler.Create)))
	mux.Handle("GET /api/v1/departments", auth(http.HandlerFunc(deptHandler.List)))
	mux.Handle("GET /api/v1/departments/{id}", auth(http.HandlerFunc(deptHandler.Get)))
	mux.Handle("PATCH /api/v1/departments/{id}", auth(http.HandlerFunc(deptHandler.Update)))
	mux.Handle("DELETE /api/v1/departments/{id}", auth(http.HandlerFunc(deptHandler.Archive)))
	mux.Handle("GET /api/v1/departments/{id}/staff", auth(http.HandlerFunc(deptHandler.ListStaff)))
	mux.Handle("POST /api/v1/departments/{id}/staff", auth(http.HandlerFunc(deptHandler.AssignStaff)))
	mux.Handle("DELETE /api/v1/departments/{id}/staff/{userId}", auth(http.HandlerFunc(deptHandler.UnassignStaff)))

	// Protected - Chats
	mux.Handle("POST /api/v1/chats", auth(http.HandlerFunc(chatHandler.Create)))
	mux.Handle("GET /api/v1/chats", auth(http.HandlerFunc(chatHandler.List)))
	mux.Handle("GET /api/v1/chats/{id}", auth(http.HandlerFunc(chatHandler.Get)))
	mux.Handle("DELETE /api/v1/chats/{id}", auth(http.HandlerFunc(chatHandler.Archive)))
	mux.Handle("GET /api/v1/chats/{id}/members", auth(http.HandlerFunc(chatHandler.ListMembers)))
	mux.Handle("POST /api/v1/chats/{id}/members", auth(http.HandlerFunc(chatHandler.AddMember)))
	mux.Handle("POST /api/v1/chats/{id}/read", auth(http.HandlerFunc(chatHandler.MarkRead)))
	mux.Handle("DELETE /api/v1/chats/{id}/members/{userId}", auth(http.HandlerFunc(chatHandler.RemoveMember)))

	// Protected - Messages
	mux.Handle("POST /api/v1/chats/{id}/messages", auth(http.HandlerFunc(messageHandler.Send)))
	mux.Handle("GET /api/v1/chats/{id}/messages", auth(http.HandlerFunc(messageHandler.List)))
	mux.Handle("PATCH /api/v1/messages/{id}", auth(http.HandlerFunc(messageHandler.Edit)))
	mux.Handle("DELETE /api/v1/messages/{id}", auth(http.HandlerFunc(messageHandler.Delete)))
	mux.Handle("POST /api/v1/messages/{id}/recall", auth(http.HandlerFunc(messageHandler.Recall)))
	mux.Handle("POST /api/v1/messages/{id}/reactions", auth(http.HandlerFunc(messageHandler.ToggleReaction)))
	mux.Handle("GET /api/v1/messages/{id}/reactions", auth(http.HandlerFunc(messageHandler.ListReactions)))

	// Protected - Health records
	mux.Handle("POST /api/v1/health-records", auth(http.HandlerFunc(healthHandler.Create)))
	mux.Handle("GET /api/v1/health-records/{id}", auth(http.HandlerFunc(healthHandler.Get)))
	mux.Handle("PATCH /api/v1/health-records/{id}", auth(http.HandlerFunc(healthHandler.Update)))
	mux.Handle("DELETE /api/v1/health-records/{id}", auth(http.HandlerFunc(healthHandler.Delete)))
	mux.Handle("GET /api/v1/players/{id}/health-records", auth(http.HandlerFunc(healthHandler.ListByPlayer)))

	// Protected - Media
	mux.Handle("POST /api/v1/media", auth(http.HandlerFunc(mediaHandler.Upload)))
	mux.Handle("GET /api/v1/media/{name}", auth(http.HandlerFunc(mediaHandler.Serve)))

	// The WebSocket upgrade needs the raw ResponseWriter, so /ws skips the
	// metrics and rate-limit wrappers.
	root := http.NewServeMux()
	root.Handle("GET /ws", ws.ServeWS(hub, cfg.JWTSecret))
	root.Handle("/", middleware.Metrics(middleware.RateLimit(limiter)(mux)))

	handler := middleware.CORS(root)

	addr := fmt.Sprintf(":%s", cfg.ServerPort)
	server := &http.Server{Addr: addr, Handler: handler}

	go func() {
		log.Printf("Starting server on %s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal(err)
		}
	}()

	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		shutdownTimeout,
		map[string]gfshutdown.Operation{
			"http-server": func(ctx context.Context) error {
				return server.Shutdown(ctx)
			},
			"database": func(ctx context.Context) error {
				pool.Close()
				return nil
			},
			"redis": func(ctx context.Context) error {
				return redisClient.Close()
			},
			"nats": func(ctx context.Context) error {
				mediaStore.Close()
				return nil
			},
		},
	)

	exitCode := <-wait
	log.Printf("Server exited with code: %d", exitCode)
	os.Exit(exitCode)
}
