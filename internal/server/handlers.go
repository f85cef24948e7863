package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"alphagate/internal/db"
	"alphagate/internal/game"
	"alphagate/internal/identity"
	"alphagate/internal/unlock"
)

const sessionCookie = "session_token"

// ContentStore is the post/unlock surface the handlers need; *db.DB
// satisfies it, tests plug in an in-memory fake.
type ContentStore interface {
	ListPosts(ctx context.Context) ([]db.Post, error)
	GetPost(ctx context.Context, id string) (*db.Post, error)
	CreatePost(ctx context.Context, title, summary, content string, images []string) (string, error)
	DeletePost(ctx context.Context, id string) error
	GetUnlockStats(ctx context.Context) (*db.UnlockStats, error)
	Ping() error
}

type Server struct {
	Store    ContentStore
	Sessions *identity.Sessions
	Gate     *unlock.Gate
	Notifier *unlock.Notifier
	Games    *game.Registry
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Println(err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// currentUser resolves the viewer from the session cookie; nil means
// anonymous.
func (s *Server) currentUser(r *http.Request) *identity.User {
	cookie, err := r.Cookie(sessionCookie)
	if err != nil {
		return nil
	}
	user, ok := s.Sessions.Get(cookie.Value)
	if !ok {
		return nil
	}
	return &user
}

func (s *Server) requireAdmin(w http.ResponseWriter, r *http.Request) *identity.User {
	user := s.currentUser(r)
	if user == nil {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return nil
	}
	if !user.Admin {
		writeError(w, http.StatusForbidden, "admin role required")
		return nil
	}
	return user
}

func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	email := strings.TrimSpace(req.Email)
	if email == "" || !strings.Contains(email, "@") {
		writeError(w, http.StatusBadRequest, "valid email required")
		return
	}

	token, user := s.Sessions.SignIn(email)
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
	})
	log.Printf("[Handle:SignIn] %s (admin=%v)\n", user.ID, user.Admin)
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleSignOut(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(sessionCookie); err == nil {
		s.Sessions.SignOut(cookie.Value)
	}
	http.SetCookie(w, &http.Cookie{
		Name:   sessionCookie,
		Path:   "/",
		MaxAge: -1,
	})
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	user := s.currentUser(r)
	if user == nil {
		writeError(w, http.StatusUnauthorized, "not signed in")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleListPosts(w http.ResponseWriter, r *http.Request) {
	posts, err := s.Store.ListPosts(r.Context())
	if err != nil {
		log.Printf("[Handle:ListPosts] %v\n", err)
		writeError(w, http.StatusInternalServerError, "listing posts failed")
		return
	}
	if posts == nil {
		posts = []db.Post{}
	}
	writeJSON(w, http.StatusOK, posts)
}

type postView struct {
	Post      db.Post `json:"post"`
	Tier      Tier    `json:"tier"`
	Unlocked  bool    `json:"unlocked"`
	Threshold int     `json:"threshold"`
}

func (s *Server) handleGetPost(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	post, err := s.Store.GetPost(r.Context(), id)
	if errors.Is(err, db.ErrNotFound) {
		writeError(w, http.StatusNotFound, "post not found")
		return
	}
	if err != nil {
		log.Printf("[Handle:GetPost] %v\n", err)
		writeError(w, http.StatusInternalServerError, "loading post failed")
		return
	}

	user := s.currentUser(r)
	unlocked := s.Gate.CheckStatus(r.Context(), user, id)
	tier := ContentTier(user != nil, false, unlocked)

	view := postView{
		Post:      *post,
		Tier:      tier,
		Unlocked:  unlocked,
		Threshold: s.Gate.Threshold(),
	}
	if tier != TierFull {
		// Summary stays public; the body and images are gated.
		view.Post.Content = ""
		view.Post.Images = nil
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleCreatePost(w http.ResponseWriter, r *http.Request) {
	if s.requireAdmin(w, r) == nil {
		return
	}

	var req struct {
		Title   string   `json:"title"`
		Summary string   `json:"summary"`
		Content string   `json:"content"`
		Images  []string `json:"images"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	if strings.TrimSpace(req.Title) == "" || strings.TrimSpace(req.Content) == "" {
		writeError(w, http.StatusBadRequest, "title and content are required")
		return
	}

	id, err := s.Store.CreatePost(r.Context(), req.Title, req.Summary, req.Content, req.Images)
	if err != nil {
		log.Printf("[Handle:CreatePost] %v\n", err)
		writeError(w, http.StatusInternalServerError, "creating post failed")
		return
	}
	log.Printf("[Handle:CreatePost] Created post %s\n", id)
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (s *Server) handleDeletePost(w http.ResponseWriter, r *http.Request) {
	if s.requireAdmin(w, r) == nil {
		return
	}

	id := r.PathValue("id")
	err := s.Store.DeletePost(r.Context(), id)
	if errors.Is(err, db.ErrNotFound) {
		writeError(w, http.StatusNotFound, "post not found")
		return
	}
	if err != nil {
		log.Printf("[Handle:DeletePost] %v\n", err)
		writeError(w, http.StatusInternalServerError, "deleting post failed")
		return
	}
	log.Printf("[Handle:DeletePost] Deleted post %s\n", id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleUnlockStatus(w http.ResponseWriter, r *http.Request) {
	user := s.currentUser(r)
	unlocked := s.Gate.CheckStatus(r.Context(), user, r.PathValue("id"))
	writeJSON(w, http.StatusOK, map[string]bool{"unlocked": unlocked})
}

func (s *Server) handleUnlock(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Score int `json:"score"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}

	user := s.currentUser(r)
	out := s.Gate.AttemptUnlock(r.Context(), user, r.PathValue("id"), req.Score)
	writeJSON(w, unlockStatusCode(out), out)
}

// unlockStatusCode maps gate outcomes onto HTTP statuses. Granted
// outcomes are 200 regardless of whether this call created the
// record.
func unlockStatusCode(out unlock.Outcome) int {
	switch {
	case out.Granted():
		return http.StatusOK
	case out.Result == unlock.ResultDeferred:
		return http.StatusUnauthorized
	case out.Reason == unlock.ReasonInvalidID:
		return http.StatusBadRequest
	case out.Reason == unlock.ReasonScoreTooLow:
		return http.StatusForbidden
	default:
		return http.StatusBadGateway
	}
}

// handleUnlockEvents streams unlock notices for one post to the
// signed-in viewer, so a grant that lands after the game dialog
// closed still reaches every open page.
func (s *Server) handleUnlockEvents(w http.ResponseWriter, r *http.Request) {
	user := s.currentUser(r)
	if user == nil {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	postID := r.PathValue("id")

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	flusher.Flush()

	notices := s.Notifier.Subscribe()
	defer s.Notifier.Unsubscribe(notices)

	for {
		select {
		case <-r.Context().Done():
			return
		case notice := <-notices:
			if notice.UserID != user.ID || notice.PostID != postID {
				continue
			}
			data, err := json.Marshal(notice)
			if err != nil {
				log.Println(err)
				continue
			}
			fmt.Fprintf(w, "event: unlock\ndata: %s\n\n", data)
			flusher.Flush()
		}
	}
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if s.requireAdmin(w, r) == nil {
		return
	}

	stats, err := s.Store.GetUnlockStats(r.Context())
	if err != nil {
		log.Printf("[Handle:Stats] %v\n", err)
		writeError(w, http.StatusInternalServerError, "loading stats failed")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.Store.Ping(); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "db_error",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":        "ok",
		"game_sessions": s.Games.Count(),
	})
}
