package tracker

// Return tracks per-trajectory cumulative reward against total
// environment steps.
type Return struct {
	series
}

// NewReturn returns a Return tracker saving to filename.
func NewReturn(filename string) *Return {
	return &Return{series{filename: filename}}
}
