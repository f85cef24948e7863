package targets

import (
	"math"
	"math/rand"
	"time"
)

const (
	MinSize = 40.0
	MaxSize = 70.0
	Margin  = 20.0

	// Smaller targets pay more: points = round((MaxSize-size)*2 + 10).
	pointsPerSizeUnit = 2
	basePoints        = 10
)

// Spawner places targets at uniformly random positions inside a play
// area. It holds no state beyond its random source; target id
// allocation belongs to the caller.
type Spawner struct {
	rng *rand.Rand
}

// NewSpawner returns a spawner drawing from rng. A nil rng gets a
// time-seeded source.
func NewSpawner(rng *rand.Rand) *Spawner {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Spawner{rng: rng}
}

// Spawn returns a new target whose full bounding box lies inside area
// with Margin clearance on every side, or nil when the area is not
// laid out yet or too small to fit one. A nil result is a
// try-again-next-tick signal, not an error.
func (s *Spawner) Spawn(area Rect, id int) *Target {
	if area.Empty() {
		return nil
	}

	size := MinSize + s.rng.Float64()*(MaxSize-MinSize)
	spanX := area.W - size - 2*Margin
	spanY := area.H - size - 2*Margin
	if spanX < 0 || spanY < 0 {
		return nil
	}

	return &Target{
		ID:        id,
		X:         Margin + s.rng.Float64()*spanX,
		Y:         Margin + s.rng.Float64()*spanY,
		Size:      size,
		Points:    PointsFor(size),
		SpawnedAt: time.Now(),
	}
}

// PointsFor computes the reward for a target of the given size.
func PointsFor(size float64) int {
	return int(math.Round((MaxSize-size)*pointsPerSizeUnit + basePoints))
}
