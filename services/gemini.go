package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
	"k8s.io/klog/v2"

	"assistant/models"
)

// GeminiService talks to the chat and vision models through the Gemini SDK
type GeminiService struct {
	client      *genai.Client
	chatModel   string
	visionModel string
}

var (
	_ ChatModel   = &GeminiService{}
	_ VisionModel = &GeminiService{}
)

// NewGeminiService builds an SDK client authenticated with apiKey
func NewGeminiService(ctx context.Context, apiKey, chatModel, visionModel string) (*GeminiService, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key not set")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("building gemini client: %w", err)
	}

	klog.Infof("Gemini models initialized (chat: %s, vision: %s)", chatModel, visionModel)
	return &GeminiService{
		client:      client,
		chatModel:   chatModel,
		visionModel: visionModel,
	}, nil
}

// SendChat replays history into a fresh chat and sends message
func (g *GeminiService) SendChat(ctx context.Context, history []models.ChatMessage, message string) (string, error) {
	model := g.client.GenerativeModel(g.chatModel)
	chat := model.StartChat()
	chat.History = toContents(history)

	klog.V(2).Infof("Sending chat message to %s with %d prior turns", g.chatModel, len(history))
	resp, err := chat.SendMessage(ctx, genai.Text(message))
	if err != nil {
		return "", fmt.Errorf("sending chat message: %w", err)
	}
	return responseText(resp)
}

// DescribeImage sends prompt and the image to the vision model
func (g *GeminiService) DescribeImage(ctx context.Context, prompt string, image []byte, mimeType string) (string, error) {
	model := g.client.GenerativeModel(g.visionModel)

	klog.V(2).Infof("Sending %d byte %s image to %s", len(image), mimeType, g.visionModel)
	resp, err := model.GenerateContent(ctx, genai.Text(prompt), genai.Blob{MIMEType: mimeType, Data: image})
	if err != nil {
		return "", fmt.Errorf("generating image description: %w", err)
	}
	return responseText(resp)
}

// Close frees the resources used by the client
func (g *GeminiService) Close() error {
	return g.client.Close()
}

// GetStatus returns the models in use
func (g *GeminiService) GetStatus() map[string]interface{} {
	return map[string]interface{}{
		"chat_model":   g.chatModel,
		"vision_model": g.visionModel,
	}
}

func toContents(history []models.ChatMessage) []*genai.Content {
	contents := make([]*genai.Content, 0, len(history))
	for _, msg := range history {
		role := models.RoleUser
		if msg.Role == models.RoleModel {
			role = models.RoleModel
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []genai.Part{genai.Text(msg.Content)},
		})
	}
	return contents
}

// responseText joins the text parts of the first candidate
func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		if resp != nil && resp.PromptFeedback != nil {
			return "", fmt.Errorf("prompt blocked: %v", resp.PromptFeedback.BlockReason)
		}
		return "", ErrEmptyResponse
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil {
		return "", ErrEmptyResponse
	}

	var text strings.Builder
	for _, part := range candidate.Content.Parts {
		if t, ok := part.(genai.Text); ok {
			text.WriteString(string(t))
		}
	}
	if text.Len() == 0 {
		return "", ErrEmptyResponse
	}
	return text.String(), nil
}
