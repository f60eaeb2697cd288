package activity

import "github.com/google/uuid"

// IDProvider issues unique identifiers for journal rows and for WebSocket
// connections.
type IDProvider interface {
	NewID() (string, error)
}

type uuidV7Provider struct{}

// NewUUIDProvider returns the IDProvider shared by the activity journal and the
// WebSocket endpoint. UUIDv7 values sort by creation time, so room event ids
// follow insertion order.
func NewUUIDProvider() IDProvider {
	return uuidV7Provider{}
}

func (uuidV7Provider) NewID() (string, error) {
	value, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return value.String(), nil
}
