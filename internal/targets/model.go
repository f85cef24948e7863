package targets

import "time"

// Target is one transient clickable object in the play area.
// Coordinates are the top-left corner of its bounding box, in the
// client-reported play-area units.
type Target struct {
	ID        int       `json:"id"`
	X         float64   `json:"x"`
	Y         float64   `json:"y"`
	Size      float64   `json:"size"`
	Points    int       `json:"points"`
	SpawnedAt time.Time `json:"-"`
}

// Rect is a play-area extent. The zero value means the client has not
// reported its layout yet.
type Rect struct {
	W float64
	H float64
}

func (r Rect) Empty() bool {
	return r.W <= 0 || r.H <= 0
}
