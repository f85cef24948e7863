package server

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"alphagate/internal/db"
	"alphagate/internal/game"
	"alphagate/internal/identity"
	"alphagate/internal/targets"

	"github.com/coder/websocket"
)

// clientMsg is the compact JSON the game client sends.
type clientMsg struct {
	Type     string  `json:"t"`
	TargetID int     `json:"id,omitempty"`
	W        float64 `json:"w,omitempty"`
	H        float64 `json:"h,omitempty"`
}

type stateMsg struct {
	T string `json:"t"`
	game.Snapshot
}

type hitMsg struct {
	T string `json:"t"`
	game.HitResult
}

type finishedMsg struct {
	T string `json:"t"`
	game.Result
}

type unlockMsg struct {
	T      string `json:"t"`
	Result string `json:"result"`
	Reason string `json:"reason,omitempty"`
}

// wsClient owns the write side of one game connection. All writes go
// through the send channel and a single write pump.
type wsClient struct {
	conn *websocket.Conn
	send chan []byte
}

func (c *wsClient) writePump(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.Write(ctx, websocket.MessageText, msg); err != nil {
				return
			}
		}
	}
}

func (c *wsClient) enqueue(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Printf("[GameWS] Marshal error: %v\n", err)
		return
	}
	select {
	case c.send <- data:
	default:
		// Slow client; the next snapshot supersedes this one.
	}
}

// handleGameWS runs the unlock mini-game over a WebSocket. The server
// owns the session: timers, spawning and scoring happen here, the
// client only reports clicks and its play-area size. When the
// countdown ends the final score goes through the unlock gate exactly
// once and the outcome is pushed back.
func (s *Server) handleGameWS(w http.ResponseWriter, r *http.Request) {
	user := s.currentUser(r)
	if user == nil {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	postID := r.PathValue("id")
	if _, err := s.Store.GetPost(r.Context(), postID); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			writeError(w, http.StatusNotFound, "post not found")
		} else {
			log.Printf("[GameWS] %v\n", err)
			writeError(w, http.StatusInternalServerError, "loading post failed")
		}
		return
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		log.Printf("[GameWS] Accept error: %v\n", err)
		return
	}
	defer conn.Close(websocket.StatusInternalError, "teardown")

	ctx := r.Context()
	sess := s.Games.Acquire(user.ID, postID)
	defer s.Games.Release(user.ID, postID)

	client := &wsClient{conn: conn, send: make(chan []byte, 32)}
	go client.writePump(ctx)
	go s.pumpGameEvents(ctx, client, sess, user, postID)

	client.enqueue(stateMsg{T: "state", Snapshot: sess.Snapshot()})

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			// Dialog closed or connection dropped; Release tears the
			// session down and any in-flight unlock completes on its
			// own detached context.
			return
		}
		var msg clientMsg
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		switch msg.Type {
		case "start":
			sess.Start()
		case "hit":
			if hr, ok := sess.Hit(msg.TargetID); ok {
				client.enqueue(hitMsg{T: "hit", HitResult: hr})
			}
		case "miss":
			sess.Miss()
		case "resize":
			sess.Resize(targets.Rect{W: msg.W, H: msg.H})
		case "quit":
			conn.Close(websocket.StatusNormalClosure, "bye")
			return
		}
	}
}

// pumpGameEvents forwards session snapshots to the client and feeds
// each finished playthrough's score through the unlock gate. A single
// in-flight flag stops overlapping submissions.
func (s *Server) pumpGameEvents(ctx context.Context, client *wsClient, sess *game.Session, user *identity.User, postID string) {
	inFlight := make(chan struct{}, 1)

	for {
		select {
		case <-ctx.Done():
			return
		case <-sess.Done():
			return
		case snap := <-sess.Events.Snapshots:
			client.enqueue(stateMsg{T: "state", Snapshot: snap})
		case res := <-sess.Events.Finished:
			client.enqueue(finishedMsg{T: "finished", Result: res})
			select {
			case inFlight <- struct{}{}:
			default:
				// A previous submission is still running; the store's
				// uniqueness constraint makes a second one pointless.
				continue
			}
			go func(score int) {
				defer func() { <-inFlight }()
				// Detached from the request context: the outcome must
				// reach the store and the notifier even if the player
				// closes the dialog mid-flight.
				subCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				out := s.Gate.AttemptUnlock(subCtx, user, postID, score)
				client.enqueue(unlockMsg{T: "unlock", Result: out.Result.String(), Reason: out.Reason})
			}(res.Score)
		}
	}
}
