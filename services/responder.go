package services

import (
	"context"
	"fmt"
	"strings"

	"k8s.io/klog/v2"

	"assistant/models"
)

// User-facing replies
const (
	MsgEmptyInput = "Hey, what's on your mind? 🤔"
	MsgThrottled  = "Whoa, slow down! Let me catch my breath. Try again in a sec! 😅"
	MsgQuota      = "Taking a quick break! Be back in a minute. ⏳"
	MsgRetry      = "Oops! Something's not right. Let's try that again! 🔄"
)

const personaTemplate = `You are a friendly, Gen-Z style AI assistant. Keep responses concise and casual.
Use emojis naturally but don't overdo it. Be helpful while maintaining a cool vibe.

User message: %s`

// Responder runs the reply fallback chain: image analysis for image
// attachments, otherwise a direct call, then the stateful chat session.
type Responder struct {
	direct   DirectCaller
	sessions *SessionStore
	images   *ImageAnalyzer
}

var _ Generator = &Responder{}

// NewResponder wires the three reply paths together
func NewResponder(direct DirectCaller, sessions *SessionStore, images *ImageAnalyzer) *Responder {
	return &Responder{
		direct:   direct,
		sessions: sessions,
		images:   images,
	}
}

// Generate returns the reply for prompt and an optional attachment
func (r *Responder) Generate(ctx context.Context, prompt string, file *models.FileAttachment) (reply string) {
	defer func() {
		if rec := recover(); rec != nil {
			klog.Errorf("Panic generating response: %v", rec)
			reply = UserMessage(NewOutcome("", fmt.Errorf("%v", rec)))
		}
	}()

	if strings.TrimSpace(prompt) == "" && file == nil {
		return MsgEmptyInput
	}

	if file.IsImage() {
		return r.images.Analyze(ctx, file.Data, prompt)
	}

	direct := NewOutcome(r.direct.GenerateDirect(ctx, prompt))
	if direct.OK() {
		return direct.Text
	}
	klog.Warningf("Direct call unavailable (%s): %v, falling back to chat session", direct.Kind, direct.Err)

	chat := NewOutcome(r.sessions.Session(ctx).Send(ctx, PersonaPrompt(prompt)))
	switch {
	case chat.OK():
	case chat.Kind.Transient():
		klog.Warningf("Chat session unavailable (%s): %v", chat.Kind, chat.Err)
	default:
		klog.Errorf("Error generating response (%s): %v", chat.Kind, chat.Err)
	}
	return UserMessage(chat)
}

// PersonaPrompt frames a user message for the chat fallback
func PersonaPrompt(prompt string) string {
	return fmt.Sprintf(personaTemplate, prompt)
}

// UserMessage turns an outcome into the text shown to the user
func UserMessage(o Outcome) string {
	switch o.Kind {
	case OutcomeSuccess:
		return o.Text
	case OutcomeThrottled:
		return MsgThrottled
	case OutcomeQuotaExhausted:
		return MsgQuota
	default:
		return fmt.Sprintf("%s (%v)", MsgRetry, o.Err)
	}
}
