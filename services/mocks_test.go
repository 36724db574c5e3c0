package services

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"assistant/models"
)

type MockDirect struct {
	mock.Mock
}

func (m *MockDirect) GenerateDirect(ctx context.Context, prompt string) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}

type MockChatModel struct {
	mock.Mock
}

func (m *MockChatModel) SendChat(ctx context.Context, history []models.ChatMessage, message string) (string, error) {
	args := m.Called(ctx, history, message)
	return args.String(0), args.Error(1)
}

type MockVision struct {
	mock.Mock
}

func (m *MockVision) DescribeImage(ctx context.Context, prompt string, image []byte, mimeType string) (string, error) {
	args := m.Called(ctx, prompt, image, mimeType)
	return args.String(0), args.Error(1)
}

// echoChat replies with a numbered answer and records the history it saw
type echoChat struct {
	mu       sync.Mutex
	calls    int
	seenLens []int
}

func (e *echoChat) SendChat(ctx context.Context, history []models.ChatMessage, message string) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	e.seenLens = append(e.seenLens, len(history))
	return "reply to " + message, nil
}

type MockGenerator struct {
	mock.Mock
}

func (m *MockGenerator) Generate(ctx context.Context, prompt string, file *models.FileAttachment) string {
	args := m.Called(ctx, prompt, file)
	return args.String(0)
}

type MockSearcher struct {
	mock.Mock
}

func (m *MockSearcher) Search(ctx context.Context, query string) []string {
	args := m.Called(ctx, query)
	if results, ok := args.Get(0).([]string); ok {
		return results
	}
	return nil
}
