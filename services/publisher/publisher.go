package publisher

// Publisher represents a service for publishing messages
type Publisher interface {
	// Publish publishes a message under key
	Publish(key string, message []byte) error

	// Close closes the publisher connection
	Close() error
}

// NoopPublisher drops every message
type NoopPublisher struct{}

// Publish discards the message
func (NoopPublisher) Publish(string, []byte) error { return nil }

// Close does nothing
func (NoopPublisher) Close() error { return nil }
