package game

import "time"

// Config carries every tunable of one game session. Durations are
// real intervals so tests can run the loop at millisecond speed.
type Config struct {
	Duration       int           // countdown length in ticks (seconds in production)
	TickInterval   time.Duration // countdown tick period
	SpawnInterval  time.Duration
	TargetLifetime time.Duration // oldest-target removal period
	MaxTargets     int
	StreakBonus    int // bonus points per full streak tier of 3
	Threshold      int // score needed to qualify for an unlock
}

func DefaultConfig() Config {
	return Config{
		Duration:       30,
		TickInterval:   time.Second,
		SpawnInterval:  800 * time.Millisecond,
		TargetLifetime: 2 * time.Second,
		MaxTargets:     3,
		StreakBonus:    5,
		Threshold:      100,
	}
}
