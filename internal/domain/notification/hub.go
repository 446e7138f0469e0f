package notification

//go:generate go run go.uber.org/mock/mockgen -destination=mocks/mock_hub.go -package=mocks . SSEHub

import "context"

// SSEHub defines the interface for managing SSE connections
type SSEHub interface {
	Register(client *SSEClient)
	Unregister(clientID string)
	GetClientCount() int

	BroadcastToUser(userID string, message *SSEMessage)
	SendToClient(clientID string, message *SSEMessage) error

	Start(ctx context.Context)
	Stop()
}
