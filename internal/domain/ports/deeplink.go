package ports

// DeepLinkSource delivers one-shot "activate session" requests from outside
// the process (handoff file, CLI flag). Each request is consumed exactly
// once by the reconciler regardless of whether the session exists.
type DeepLinkSource interface {
	// Requests returns the channel of session ids to activate.
	Requests() <-chan string

	// Close stops delivery and releases the source.
	Close() error
}
