package services

import (
	"context"

	"assistant/models"
)

// DirectCaller issues one stateless prompt to the provider, without history
type DirectCaller interface {
	GenerateDirect(ctx context.Context, prompt string) (string, error)
}

// ChatModel sends a message to a chat model along with the prior turns
type ChatModel interface {
	SendChat(ctx context.Context, history []models.ChatMessage, message string) (string, error)
}

// VisionModel answers a text prompt about one image
type VisionModel interface {
	DescribeImage(ctx context.Context, prompt string, image []byte, mimeType string) (string, error)
}

// Generator produces the reply to a chat request. It never fails: every
// error is turned into a user-facing message.
type Generator interface {
	Generate(ctx context.Context, prompt string, file *models.FileAttachment) string
}

// Searcher answers a search query with a list of display lines
type Searcher interface {
	Search(ctx context.Context, query string) []string
}

type clientKeyCtxKey struct{}

// WithClientKey attaches the caller's identity to ctx
func WithClientKey(ctx context.Context, clientKey string) context.Context {
	return context.WithValue(ctx, clientKeyCtxKey{}, clientKey)
}

// ClientKeyFromContext returns the identity attached by WithClientKey, or ""
func ClientKeyFromContext(ctx context.Context) string {
	key, _ := ctx.Value(clientKeyCtxKey{}).(string)
	return key
}
