package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	_ "golang.org/x/image/webp"
	"k8s.io/klog/v2"
)

// ErrDecodeImage wraps every failure to turn a payload into an image
var ErrDecodeImage = errors.New("could not decode image")

const visionPromptTemplate = `Analyze this image in detail. If there's text, extract and read it.
If there are visual elements, describe them in detail.
Consider:
1. Any text content present
2. Visual elements and their arrangement
3. Colors, patterns, and notable features
4. Context and potential meaning

Additional context if provided: %s`

// ImageAnalyzer asks the vision model to describe an uploaded image
type ImageAnalyzer struct {
	model VisionModel
}

// NewImageAnalyzer creates an analyzer backed by model
func NewImageAnalyzer(model VisionModel) *ImageAnalyzer {
	return &ImageAnalyzer{model: model}
}

// Analyze decodes a base64 image and returns the model's description.
// Failures are reported in the returned text rather than as an error.
func (a *ImageAnalyzer) Analyze(ctx context.Context, base64Image, contextPrompt string) string {
	data, mimeType, err := DecodeImage(base64Image)
	if err != nil {
		klog.Errorf("Error processing image: %v", err)
		return imageFailure(err)
	}

	reply, err := a.model.DescribeImage(ctx, BuildVisionPrompt(contextPrompt), data, mimeType)
	if err == nil && strings.TrimSpace(reply) == "" {
		err = ErrEmptyResponse
	}
	if err != nil {
		klog.Errorf("Error processing image: %v", err)
		return imageFailure(err)
	}
	return reply
}

// BuildVisionPrompt returns the structured analysis prompt
func BuildVisionPrompt(contextPrompt string) string {
	return fmt.Sprintf(visionPromptTemplate, contextPrompt)
}

// DecodeImage decodes a base64 payload, optionally wrapped in a data URI,
// checks that it holds a supported raster image and returns the bytes with
// their detected MIME type.
func DecodeImage(payload string) ([]byte, string, error) {
	payload = strings.TrimSpace(payload)
	if strings.HasPrefix(payload, "data:") {
		if _, encoded, found := strings.Cut(payload, ","); found {
			payload = encoded
		}
	}
	if payload == "" {
		return nil, "", fmt.Errorf("%w: empty payload", ErrDecodeImage)
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		var rawErr error
		if data, rawErr = base64.RawStdEncoding.DecodeString(payload); rawErr != nil {
			return nil, "", fmt.Errorf("%w: %v", ErrDecodeImage, err)
		}
	}

	mimeType := mimetype.Detect(data).String()
	if !strings.HasPrefix(mimeType, "image/") {
		return nil, "", fmt.Errorf("%w: payload is %s", ErrDecodeImage, mimeType)
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrDecodeImage, err)
	}
	klog.V(2).Infof("Decoded %s image %dx%d", format, img.Bounds().Dx(), img.Bounds().Dy())

	return data, mimeType, nil
}

func imageFailure(err error) string {
	return fmt.Sprintf("I had trouble processing that image. Error: %v", err)
}
