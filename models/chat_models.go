package models

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"
)

// FileAttachment is an uploaded file carried inline in a chat request
type FileAttachment struct {
	MimeType string `json:"type"`
	Data     string `json:"data"` // base64 payload
}

// IsImage reports whether the attachment is declared as an image.
// The payload is not inspected; an empty or broken one fails in the image path.
func (f *FileAttachment) IsImage() bool {
	return f != nil && strings.HasPrefix(f.MimeType, "image/")
}

// FileField accepts either a single attachment object or a list of them.
// Only the first element of a list is kept.
type FileField struct {
	File *FileAttachment
}

// UnmarshalJSON implements json.Unmarshaler
func (f *FileField) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		f.File = nil
		return nil
	}

	if data[0] == '[' {
		var files []FileAttachment
		if err := json.Unmarshal(data, &files); err != nil {
			return err
		}
		if len(files) > 0 {
			f.File = &files[0]
		}
		return nil
	}

	var file FileAttachment
	if err := json.Unmarshal(data, &file); err != nil {
		return err
	}
	f.File = &file
	return nil
}

// MarshalJSON implements json.Marshaler
func (f FileField) MarshalJSON() ([]byte, error) {
	if f.File == nil {
		return []byte("null"), nil
	}
	return json.Marshal(f.File)
}

// ChatRequest represents an incoming /chat request
type ChatRequest struct {
	Prompt string    `json:"prompt"`
	File   FileField `json:"file,omitempty"`
}

// Attachment returns the request's attachment, or nil when none was sent
func (r *ChatRequest) Attachment() *FileAttachment {
	return r.File.File
}

// ChatResponse represents the reply to a /chat request
type ChatResponse struct {
	Response string `json:"response"`
}

// ChatMessage represents a single turn in a conversation history
type ChatMessage struct {
	Role      string    `json:"role"` // "user" or "model"
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}
