package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"golang.org/x/sync/errgroup"

	"github.com/kindredhq/kindred/internal/config"
	"github.com/kindredhq/kindred/internal/database"
	"github.com/kindredhq/kindred/internal/metrics"
	postgresrepo "github.com/kindredhq/kindred/internal/repository/postgres"
	"github.com/kindredhq/kindred/internal/service"
	"github.com/kindredhq/kindred/internal/transport/http/handlers"
	"github.com/kindredhq/kindred/internal/transport/http/middleware"
	"github.com/kindredhq/kindred/internal/transport/ws"
)

func main() {
	cfg := config.Load()

	// Database
	pool, err := database.Connect(cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer pool.Close()
	log.Println("Connected to database")

	// Repositories
	userRepo := postgresrepo.NewUserRepo(pool)
	convRepo := postgresrepo.NewConversationRepo(pool)
	messageRepo := postgresrepo.NewMessageRepo(pool)
	groupRepo := postgresrepo.NewGroupRepo(pool)
	roomRepo := postgresrepo.NewLiveRoomRepo(pool)

	// Services
	authService := service.NewAuthService(userRepo, cfg.JWTSecret)
	convService := service.NewConversationService(convRepo, groupRepo, userRepo)
	messageService := service.NewMessageService(messageRepo, convRepo, groupRepo, userRepo)
	roomService := service.NewLiveRoomService(roomRepo, userRepo)
	subService := service.NewSubscriptionService(convRepo, groupRepo, roomRepo)

	// Real-time hub; subscriptions are authorized against the store
	hub := ws.NewHub(subService)
	notifier := ws.NewHubNotifier(hub)
	convService.SetNotifier(notifier)
	messageService.SetNotifier(notifier)
	roomService.SetNotifier(notifier)

	// Handlers
	authHandler := handlers.NewAuthHandler(authService)
	convHandler := handlers.NewConversationHandler(convService, messageService)
	groupHandler := handlers.NewGroupHandler(convService)
	messageHandler := handlers.NewMessageHandler(messageService)
	roomHandler := handlers.NewLiveRoomHandler(roomService)

	// Auth middleware
	auth := middleware.Auth(cfg.JWTSecret)

	// Routes
	mux := http.NewServeMux()

	// Public
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status": "ok"}`))
	})
	mux.Handle("GET /metrics", metrics.Handler())
	mux.HandleFunc("POST /api/v1/auth/register", authHandler.Register)
	mux.HandleFunc("POST /api/v1/auth/login", authHandler.Login)

	// Real-time
	mux.HandleFunc("GET /ws", ws.ServeWS(hub, cfg.JWTSecret))

	// Protected - Conversations
	mux.Handle("POST /api/v1/conversations/direct", auth(http.HandlerFunc(convHandler.CreateDirect)))
	mux.Handle("GET /api/v1/conversations", auth(http.HandlerFunc(convHandler.List)))
	mux.Handle("GET /api/v1/conversations/{id}/messages", auth(http.HandlerFunc(convHandler.ListMessages)))
	mux.Handle("POST /api/v1/conversations/{id}/messages", auth(http.HandlerFunc(messageHandler.Send)))
	mux.Handle("POST /api/v1/conversations/{id}/pin", auth(http.HandlerFunc(convHandler.Pin)))
	mux.Handle("DELETE /api/v1/conversations/{id}/pin", auth(http.HandlerFunc(convHandler.Unpin)))

	// Protected - Messages
	mux.Handle("PATCH /api/v1/messages/{id}", auth(http.HandlerFunc(messageHandler.Edit)))
	mux.Handle("DELETE /api/v1/messages/{id}", auth(http.HandlerFunc(messageHandler.Delete)))
	mux.Handle("POST /api/v1/messages/{id}/reactions", auth(http.HandlerFunc(messageHandler.React)))
	mux.Handle("POST /api/v1/messages/{id}/read", auth(http.HandlerFunc(messageHandler.MarkRead)))

	// Protected - Groups
	mux.Handle("POST /api/v1/groups", auth(http.HandlerFunc(groupHandler.Create)))
	mux.Handle("POST /api/v1/groups/{id}/join", auth(http.HandlerFunc(groupHandler.Join)))
	mux.Handle("POST /api/v1/groups/{id}/leave", auth(http.HandlerFunc(groupHandler.Leave)))

	// Protected - Live rooms
	mux.Handle("POST /api/v1/rooms", auth(http.HandlerFunc(roomHandler.Create)))
	mux.Handle("GET /api/v1/rooms/{id}", auth(http.HandlerFunc(roomHandler.Get)))
	mux.Handle("POST /api/v1/rooms/{id}/instances", auth(http.HandlerFunc(roomHandler.CreateInstance)))
	mux.Handle("PATCH /api/v1/instances/{id}/status", auth(http.HandlerFunc(roomHandler.Transition)))
	mux.Handle("POST /api/v1/instances/{id}/join", auth(http.HandlerFunc(roomHandler.Join)))
	mux.Handle("POST /api/v1/instances/{id}/leave", auth(http.HandlerFunc(roomHandler.Leave)))
	mux.Handle("POST /api/v1/instances/{id}/speakers", auth(http.HandlerFunc(roomHandler.PromoteSpeaker)))

	// Run hub and server together
	g, _ := errgroup.WithContext(context.Background())

	g.Go(func() error {
		hub.Run()
		return nil
	})

	g.Go(func() error {
		addr := fmt.Sprintf(":%s", cfg.ServerPort)
		log.Printf("Starting server on %s", addr)
		return http.ListenAndServe(addr, middleware.CORS(mux))
	})

	log.Fatal(g.Wait())
}
