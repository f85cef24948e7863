package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"alphagate/internal/db"
	"alphagate/internal/game"
	"alphagate/internal/identity"
	"alphagate/internal/unlock"

	"github.com/google/uuid"
)

// memStore is an in-memory ContentStore and unlock.Store with the
// same outcome semantics as the Postgres implementation.
type memStore struct {
	mu      sync.Mutex
	posts   map[string]db.Post
	order   []string
	unlocks map[string]int
	pingErr error
}

func newMemStore() *memStore {
	return &memStore{
		posts:   make(map[string]db.Post),
		unlocks: make(map[string]int),
	}
}

func (m *memStore) ListPosts(_ context.Context) ([]db.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]db.Post, 0, len(m.order))
	for i := len(m.order) - 1; i >= 0; i-- {
		p := m.posts[m.order[i]]
		p.Content = ""
		p.Images = nil
		out = append(out, p)
	}
	return out, nil
}

func (m *memStore) GetPost(_ context.Context, id string) (*db.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.posts[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	return &p, nil
}

func (m *memStore) CreatePost(_ context.Context, title, summary, content string, images []string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.New().String()
	m.posts[id] = db.Post{
		ID: id, Title: title, Summary: summary, Content: content,
		Images: images, CreatedAt: time.Now(),
	}
	m.order = append(m.order, id)
	return id, nil
}

func (m *memStore) DeletePost(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.posts[id]; !ok {
		return db.ErrNotFound
	}
	delete(m.posts, id)
	for i, o := range m.order {
		if o == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

func (m *memStore) GetUnlockStats(_ context.Context) (*db.UnlockStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return &db.UnlockStats{TotalUnlocks: len(m.unlocks)}, nil
}

func (m *memStore) Ping() error {
	return m.pingErr
}

func (m *memStore) HasUnlocked(_ context.Context, userID, postID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.unlocks[userID+"/"+postID]
	return ok, nil
}

func (m *memStore) Unlock(_ context.Context, userID, postID string, score int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.posts[postID]; !ok {
		return unlock.ErrPostNotFound
	}
	key := userID + "/" + postID
	if _, ok := m.unlocks[key]; ok {
		return unlock.ErrDuplicate
	}
	m.unlocks[key] = score
	return nil
}

const adminEmail = "owner@example.com"

func newTestServer(t *testing.T) (*Server, *memStore, *httptest.Server) {
	t.Helper()
	return newTestServerWithGame(t, game.Config{
		Duration:       3,
		TickInterval:   5 * time.Millisecond,
		SpawnInterval:  2 * time.Millisecond,
		TargetLifetime: time.Second,
		MaxTargets:     3,
		StreakBonus:    5,
		Threshold:      100,
	})
}

func newTestServerWithGame(t *testing.T, gameCfg game.Config) (*Server, *memStore, *httptest.Server) {
	t.Helper()
	store := newMemStore()
	notifier := unlock.NewNotifier()

	srv := &Server{
		Store:    store,
		Sessions: identity.NewSessions([]string{adminEmail}),
		Gate:     unlock.NewGate(store, 100, notifier),
		Notifier: notifier,
		Games:    game.NewRegistry(gameCfg),
	}

	ts := httptest.NewServer(srv.routes())
	t.Cleanup(ts.Close)
	return srv, store, ts
}

func newClientWithJar(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatal(err)
	}
	return &http.Client{Jar: jar}
}

func signIn(t *testing.T, client *http.Client, baseURL, email string) identity.User {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"email": email})
	resp, err := client.Post(baseURL+"/auth/signin", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("signin status = %d", resp.StatusCode)
	}
	var user identity.User
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		t.Fatal(err)
	}
	return user
}

func createPost(t *testing.T, store *memStore, title string) string {
	t.Helper()
	id, err := store.CreatePost(context.Background(), title, "teaser", "the full story", nil)
	if err != nil {
		t.Fatal(err)
	}
	return id
}

func doJSON(t *testing.T, client *http.Client, method, url string, payload any) (*http.Response, []byte) {
	t.Helper()
	var body bytes.Buffer
	if payload != nil {
		if err := json.NewEncoder(&body).Encode(payload); err != nil {
			t.Fatal(err)
		}
	}
	req, err := http.NewRequest(method, url, &body)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var buf bytes.Buffer
	buf.ReadFrom(resp.Body)
	return resp, buf.Bytes()
}

func TestSignInAndMe(t *testing.T) {
	_, _, ts := newTestServer(t)
	client := newClientWithJar(t)

	user := signIn(t, client, ts.URL, "alice@example.com")
	if user.Admin {
		t.Error("alice should not be admin")
	}

	resp, body := doJSON(t, client, http.MethodGet, ts.URL+"/auth/me", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("me status = %d", resp.StatusCode)
	}
	var me identity.User
	json.Unmarshal(body, &me)
	if me.ID != user.ID {
		t.Errorf("me.ID = %q, want %q", me.ID, user.ID)
	}
}

func TestMe_Anonymous(t *testing.T) {
	_, _, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/auth/me")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}
}

func TestSignOut(t *testing.T) {
	_, _, ts := newTestServer(t)
	client := newClientWithJar(t)
	signIn(t, client, ts.URL, "alice@example.com")

	resp, _ := doJSON(t, client, http.MethodPost, ts.URL+"/auth/signout", nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("signout status = %d", resp.StatusCode)
	}

	resp, _ = doJSON(t, client, http.MethodGet, ts.URL+"/auth/me", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("me after signout = %d, want 401", resp.StatusCode)
	}
}

func TestListPosts_NewestFirst(t *testing.T) {
	_, store, ts := newTestServer(t)
	createPost(t, store, "older")
	createPost(t, store, "newer")

	resp, body := doJSON(t, http.DefaultClient, http.MethodGet, ts.URL+"/posts", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var posts []db.Post
	if err := json.Unmarshal(body, &posts); err != nil {
		t.Fatal(err)
	}
	if len(posts) != 2 {
		t.Fatalf("posts = %d, want 2", len(posts))
	}
	if posts[0].Title != "newer" {
		t.Errorf("first post = %q, want newest", posts[0].Title)
	}
	if posts[0].Content != "" {
		t.Error("list must not leak gated content")
	}
}

func TestGetPost_TierProgression(t *testing.T) {
	_, store, ts := newTestServer(t)
	postID := createPost(t, store, "gated")

	// Anonymous: summary only, sign-in prompt.
	resp, body := doJSON(t, http.DefaultClient, http.MethodGet, ts.URL+"/posts/"+postID, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var view postView
	json.Unmarshal(body, &view)
	if view.Tier != TierSignIn {
		t.Errorf("anonymous tier = %q, want %q", view.Tier, TierSignIn)
	}
	if view.Post.Content != "" {
		t.Error("anonymous view must not carry content")
	}
	if view.Post.Summary == "" {
		t.Error("summary should stay public")
	}

	// Signed in, locked: play prompt.
	client := newClientWithJar(t)
	signIn(t, client, ts.URL, "alice@example.com")
	_, body = doJSON(t, client, http.MethodGet, ts.URL+"/posts/"+postID, nil)
	json.Unmarshal(body, &view)
	if view.Tier != TierPlayToUnlock {
		t.Errorf("locked tier = %q, want %q", view.Tier, TierPlayToUnlock)
	}
	if view.Post.Content != "" {
		t.Error("locked view must not carry content")
	}
	if view.Threshold != 100 {
		t.Errorf("threshold = %d, want 100", view.Threshold)
	}

	// Qualifying unlock flips the pair to full content.
	resp, body = doJSON(t, client, http.MethodPost, ts.URL+"/posts/"+postID+"/unlock", map[string]int{"score": 120})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unlock status = %d: %s", resp.StatusCode, body)
	}

	_, body = doJSON(t, client, http.MethodGet, ts.URL+"/posts/"+postID, nil)
	json.Unmarshal(body, &view)
	if view.Tier != TierFull {
		t.Errorf("unlocked tier = %q, want %q", view.Tier, TierFull)
	}
	if view.Post.Content != "the full story" {
		t.Errorf("Content = %q", view.Post.Content)
	}
}

func TestGetPost_NotFound(t *testing.T) {
	_, _, ts := newTestServer(t)
	resp, _ := doJSON(t, http.DefaultClient, http.MethodGet, ts.URL+"/posts/"+uuid.New().String(), nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestUnlock_StatusCodes(t *testing.T) {
	_, store, ts := newTestServer(t)
	postID := createPost(t, store, "gated")

	// Anonymous submission is deferred to sign-in.
	resp, body := doJSON(t, http.DefaultClient, http.MethodPost, ts.URL+"/posts/"+postID+"/unlock", map[string]int{"score": 150})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("anonymous unlock = %d, want 401: %s", resp.StatusCode, body)
	}

	client := newClientWithJar(t)
	signIn(t, client, ts.URL, "alice@example.com")

	resp, _ = doJSON(t, client, http.MethodPost, ts.URL+"/posts/"+postID+"/unlock", map[string]int{"score": 99})
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("low score = %d, want 403", resp.StatusCode)
	}

	resp, _ = doJSON(t, client, http.MethodPost, ts.URL+"/posts/not-a-uuid/unlock", map[string]int{"score": 150})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bad id = %d, want 400", resp.StatusCode)
	}

	resp, _ = doJSON(t, client, http.MethodPost, ts.URL+"/posts/"+uuid.New().String()+"/unlock", map[string]int{"score": 150})
	if resp.StatusCode != http.StatusBadGateway {
		t.Errorf("missing post = %d, want 502", resp.StatusCode)
	}

	// First grant, then the idempotent repeat.
	resp, body = doJSON(t, client, http.MethodPost, ts.URL+"/posts/"+postID+"/unlock", map[string]int{"score": 150})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unlock = %d: %s", resp.StatusCode, body)
	}
	var out unlock.Outcome
	json.Unmarshal(body, &out)
	if out.Result != unlock.ResultUnlocked {
		t.Errorf("result = %v, want unlocked", out.Result)
	}

	resp, body = doJSON(t, client, http.MethodPost, ts.URL+"/posts/"+postID+"/unlock", map[string]int{"score": 150})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("repeat unlock = %d", resp.StatusCode)
	}
	json.Unmarshal(body, &out)
	if out.Result != unlock.ResultAlreadyUnlocked {
		t.Errorf("repeat result = %v, want already-unlocked", out.Result)
	}
}

func TestUnlockStatus(t *testing.T) {
	_, store, ts := newTestServer(t)
	postID := createPost(t, store, "gated")

	client := newClientWithJar(t)
	signIn(t, client, ts.URL, "alice@example.com")

	_, body := doJSON(t, client, http.MethodGet, ts.URL+"/posts/"+postID+"/unlock", nil)
	var status map[string]bool
	json.Unmarshal(body, &status)
	if status["unlocked"] {
		t.Error("fresh pair should be locked")
	}

	doJSON(t, client, http.MethodPost, ts.URL+"/posts/"+postID+"/unlock", map[string]int{"score": 150})

	_, body = doJSON(t, client, http.MethodGet, ts.URL+"/posts/"+postID+"/unlock", nil)
	json.Unmarshal(body, &status)
	if !status["unlocked"] {
		t.Error("pair should be unlocked after grant")
	}
}

func TestAdminBypass(t *testing.T) {
	_, store, ts := newTestServer(t)
	postID := createPost(t, store, "gated")

	client := newClientWithJar(t)
	signIn(t, client, ts.URL, adminEmail)

	// Admin unlocks with a zero score and never writes a record.
	resp, body := doJSON(t, client, http.MethodPost, ts.URL+"/posts/"+postID+"/unlock", map[string]int{"score": 0})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("admin unlock = %d: %s", resp.StatusCode, body)
	}
	if len(store.unlocks) != 0 {
		t.Error("admin bypass should not create unlock records")
	}

	var view postView
	_, body = doJSON(t, client, http.MethodGet, ts.URL+"/posts/"+postID, nil)
	json.Unmarshal(body, &view)
	if view.Tier != TierFull {
		t.Errorf("admin tier = %q, want %q", view.Tier, TierFull)
	}
}

func TestCreatePost_AdminOnly(t *testing.T) {
	_, _, ts := newTestServer(t)

	payload := map[string]any{"title": "T", "summary": "s", "content": "c"}

	resp, _ := doJSON(t, http.DefaultClient, http.MethodPost, ts.URL+"/posts", payload)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("anonymous create = %d, want 401", resp.StatusCode)
	}

	client := newClientWithJar(t)
	signIn(t, client, ts.URL, "alice@example.com")
	resp, _ = doJSON(t, client, http.MethodPost, ts.URL+"/posts", payload)
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("non-admin create = %d, want 403", resp.StatusCode)
	}

	admin := newClientWithJar(t)
	signIn(t, admin, ts.URL, adminEmail)
	resp, body := doJSON(t, admin, http.MethodPost, ts.URL+"/posts", payload)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("admin create = %d: %s", resp.StatusCode, body)
	}
	var created map[string]string
	json.Unmarshal(body, &created)
	if created["id"] == "" {
		t.Error("create should return the new post id")
	}

	resp, _ = doJSON(t, admin, http.MethodPost, ts.URL+"/posts", map[string]any{"title": "", "content": ""})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("empty post = %d, want 400", resp.StatusCode)
	}
}

func TestDeletePost_AdminOnly(t *testing.T) {
	_, store, ts := newTestServer(t)
	postID := createPost(t, store, "doomed")

	client := newClientWithJar(t)
	signIn(t, client, ts.URL, "alice@example.com")
	resp, _ := doJSON(t, client, http.MethodDelete, ts.URL+"/posts/"+postID, nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("non-admin delete = %d, want 403", resp.StatusCode)
	}

	admin := newClientWithJar(t)
	signIn(t, admin, ts.URL, adminEmail)
	resp, _ = doJSON(t, admin, http.MethodDelete, ts.URL+"/posts/"+postID, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("admin delete = %d, want 204", resp.StatusCode)
	}

	resp, _ = doJSON(t, admin, http.MethodDelete, ts.URL+"/posts/"+postID, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("double delete = %d, want 404", resp.StatusCode)
	}
}

func TestStats_AdminOnly(t *testing.T) {
	_, _, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/admin/stats")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("anonymous stats = %d, want 401", resp.StatusCode)
	}

	admin := newClientWithJar(t)
	signIn(t, admin, ts.URL, adminEmail)
	r2, body := doJSON(t, admin, http.MethodGet, ts.URL+"/admin/stats", nil)
	if r2.StatusCode != http.StatusOK {
		t.Fatalf("admin stats = %d: %s", r2.StatusCode, body)
	}
}

func TestHealth(t *testing.T) {
	_, store, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}

	store.pingErr = fmt.Errorf("connection refused")
	resp, err = http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("degraded status = %d, want 503", resp.StatusCode)
	}
}
