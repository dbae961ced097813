// Package track supplies device position providers for the self-tracking
// mode, where the agent reports the location of the device it runs on.
package track

// Provider interface defines the methods for position providers.
type Provider interface {
	GetPosition() (Position, error)
	Close() error
}
