package unlock

import "sync"

// Notice announces that an unlock for (user, post) landed, so open
// pages belonging to that user can flip their local flag even when
// the granting request raced a dialog close.
type Notice struct {
	UserID string `json:"userId"`
	PostID string `json:"postId"`
	Score  int    `json:"score"`
}

// Notifier fans notices out to subscribers. Sends never block: a
// subscriber with a full channel misses the notice and falls back to
// its next status check.
type Notifier struct {
	mu   sync.Mutex
	subs map[chan Notice]struct{}
}

func NewNotifier() *Notifier {
	return &Notifier{subs: make(map[chan Notice]struct{})}
}

func (n *Notifier) Subscribe() chan Notice {
	ch := make(chan Notice, 10)
	n.mu.Lock()
	n.subs[ch] = struct{}{}
	n.mu.Unlock()
	return ch
}

func (n *Notifier) Unsubscribe(ch chan Notice) {
	n.mu.Lock()
	_, ok := n.subs[ch]
	delete(n.subs, ch)
	n.mu.Unlock()
	if ok {
		close(ch)
	}
}

func (n *Notifier) Publish(notice Notice) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for ch := range n.subs {
		select {
		case ch <- notice:
		default:
		}
	}
}
