package transcriber

import (
	"context"
	"encoding/base64"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/ethanbaker/minutes/pkg/llm"
	"github.com/openai/openai-go/v2"
)

const visionInstruction = "Extract every piece of readable text from this image. If it shows a meeting (slides, whiteboard, chat), return the text as written, one line per speaker or bullet. Return only the text."

// WhisperRecognizer transcribes audio files with the OpenAI transcription API
type WhisperRecognizer struct {
	client openai.Client
	model  string
}

func NewWhisperRecognizer(client openai.Client, model string) *WhisperRecognizer {
	if model == "" {
		model = string(openai.AudioModelWhisper1)
	}
	return &WhisperRecognizer{client: client, model: model}
}

func (r *WhisperRecognizer) Recognize(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open audio: %w", err)
	}
	defer f.Close()

	resp, err := r.client.Audio.Transcriptions.New(ctx, openai.AudioTranscriptionNewParams{
		File:  f,
		Model: openai.AudioModel(r.model),
	})
	if err != nil {
		return "", llm.Classify(err)
	}

	return resp.Text, nil
}

// VisionRecognizer reads text out of images with a vision capable chat model
type VisionRecognizer struct {
	client openai.Client
	model  string
}

func NewVisionRecognizer(client openai.Client, model string) *VisionRecognizer {
	if model == "" {
		model = string(openai.ChatModelGPT4oMini)
	}
	return &VisionRecognizer{client: client, model: model}
}

func (r *VisionRecognizer) Recognize(ctx context.Context, path string) (string, error) {
	dataURL, err := imageDataURL(path)
	if err != nil {
		return "", err
	}

	resp, err := r.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(r.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
				openai.TextContentPart(visionInstruction),
				openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{URL: dataURL}),
			}),
		},
	})
	if err != nil {
		return "", llm.Classify(err)
	}

	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}

// imageDataURL inlines an image file as a base64 data URL
func imageDataURL(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read image: %w", err)
	}

	mimeType := mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = mimeType[:i]
	}

	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}
