package server

// Tier is the one content state a viewer sees for a post.
type Tier string

const (
	TierLoading      = Tier("loading")
	TierSignIn       = Tier("sign-in")
	TierPlayToUnlock = Tier("play-to-unlock")
	TierFull         = Tier("full")
)

// ContentTier picks exactly one tier from the viewer's state. Pure
// decision table; order matters: an in-flight status check shows the
// skeleton regardless of the other flags.
func ContentTier(authenticated, loading, unlocked bool) Tier {
	switch {
	case loading:
		return TierLoading
	case !authenticated:
		return TierSignIn
	case !unlocked:
		return TierPlayToUnlock
	default:
		return TierFull
	}
}
