package server

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"alphagate/internal/config"
	"alphagate/internal/db"
	"alphagate/internal/game"
	"alphagate/internal/identity"
	"alphagate/internal/metrics"
	"alphagate/internal/unlock"
)

func Run() error {
	appCfg := config.Load()
	if appCfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	database, err := db.Connect(appCfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer database.Close()
	if err := database.Migrate(); err != nil {
		return err
	}

	gameCfg := game.Config{
		Duration:       appCfg.GameDuration,
		TickInterval:   time.Second,
		SpawnInterval:  time.Duration(appCfg.SpawnIntervalMs) * time.Millisecond,
		TargetLifetime: time.Duration(appCfg.TargetLifetimeMs) * time.Millisecond,
		MaxTargets:     appCfg.MaxTargets,
		StreakBonus:    appCfg.StreakBonus,
		Threshold:      appCfg.UnlockThreshold,
	}

	notifier := unlock.NewNotifier()
	srv := &Server{
		Store:    database,
		Sessions: identity.NewSessions(appCfg.AdminEmails),
		Gate:     unlock.NewGate(database, appCfg.UnlockThreshold, notifier),
		Notifier: notifier,
		Games:    game.NewRegistry(gameCfg),
	}

	if len(appCfg.AdminEmails) == 0 {
		log.Println("[Server] ADMIN_EMAILS not set, no admin accounts")
	}

	addr := "0.0.0.0:" + appCfg.Port
	fmt.Printf("Server listening on http://localhost:%s\n", appCfg.Port)
	return http.ListenAndServe(addr, srv.routes())
}

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/signin", s.handleSignIn)
	mux.HandleFunc("POST /auth/signout", s.handleSignOut)
	mux.HandleFunc("GET /auth/me", s.handleMe)
	mux.HandleFunc("GET /posts", s.handleListPosts)
	mux.HandleFunc("POST /posts", s.handleCreatePost)
	mux.HandleFunc("GET /posts/{id}", s.handleGetPost)
	mux.HandleFunc("DELETE /posts/{id}", s.handleDeletePost)
	mux.HandleFunc("GET /posts/{id}/unlock", s.handleUnlockStatus)
	mux.HandleFunc("POST /posts/{id}/unlock", s.handleUnlock)
	mux.HandleFunc("GET /posts/{id}/events", s.handleUnlockEvents)
	mux.HandleFunc("GET /posts/{id}/game", s.handleGameWS)
	mux.HandleFunc("GET /admin/stats", s.handleStats)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", metrics.Handler())
	return mux
}
