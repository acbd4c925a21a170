package publisher

import "context"

// Publisher hands newly discovered sale items to downstream consumers
type Publisher interface {
	// Publish sends one encoded item keyed by its app id
	Publish(ctx context.Context, key string, message []byte) error

	// TrimStreams caps the retained backlog
	TrimStreams(ctx context.Context) error

	// Close releases the connection
	Close() error
}
