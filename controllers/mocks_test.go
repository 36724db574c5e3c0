package controllers

import (
	"context"

	"github.com/stretchr/testify/mock"

	"assistant/models"
	"assistant/services"
)

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

type staticReporter map[string]interface{}

func (s staticReporter) GetStatus() map[string]interface{} {
	return s
}

var (
	_ services.Generator = (*MockGenerator)(nil)
	_ services.Searcher  = (*MockSearcher)(nil)
)
