package tracker

// EpisodeLength tracks per-trajectory episode lengths against total
// environment steps.
type EpisodeLength struct {
	series
}

// NewEpisodeLength returns an EpisodeLength tracker saving to
// filename.
func NewEpisodeLength(filename string) *EpisodeLength {
	return &EpisodeLength{series{filename: filename}}
}
