package transcriber

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"strings"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"github.com/ethanbaker/minutes/pkg/llm"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/vision/v1"
)

// GoogleSpeechRecognizer transcribes LINEAR16 audio with Google Cloud Speech.
// Credentials come from GOOGLE_APPLICATION_CREDENTIALS
type GoogleSpeechRecognizer struct {
	client       *speech.Client
	sampleRate   int32
	languageCode string
}

func NewGoogleSpeechRecognizer(ctx context.Context, sampleRate int32, languageCode string) (*GoogleSpeechRecognizer, error) {
	c, err := speech.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create speech client: %w", err)
	}

	if sampleRate <= 0 {
		sampleRate = 16000
	}
	if languageCode == "" {
		languageCode = "en-US"
	}

	return &GoogleSpeechRecognizer{client: c, sampleRate: sampleRate, languageCode: languageCode}, nil
}

func (r *GoogleSpeechRecognizer) Recognize(ctx context.Context, path string) (string, error) {
	audio, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read audio: %w", err)
	}

	resp, err := r.client.Recognize(ctx, &speechpb.RecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			Encoding:        speechpb.RecognitionConfig_LINEAR16,
			SampleRateHertz: r.sampleRate,
			LanguageCode:    r.languageCode,
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: audio},
		},
	})
	if err != nil {
		return "", llm.Classify(err)
	}

	var parts []string
	for _, result := range resp.Results {
		if len(result.Alternatives) == 0 {
			continue
		}
		parts = append(parts, strings.TrimSpace(result.Alternatives[0].Transcript))
	}

	return strings.Join(parts, " "), nil
}

func (r *GoogleSpeechRecognizer) Close() error {
	return r.client.Close()
}

// GoogleVisionRecognizer extracts text from images with Cloud Vision text detection
type GoogleVisionRecognizer struct {
	service *vision.Service
}

func NewGoogleVisionRecognizer(ctx context.Context) (*GoogleVisionRecognizer, error) {
	client, err := google.DefaultClient(ctx, vision.CloudVisionScope)
	if err != nil {
		return nil, fmt.Errorf("failed to load google credentials: %w", err)
	}

	service, err := vision.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("failed to create vision service: %w", err)
	}

	return &GoogleVisionRecognizer{service: service}, nil
}

func (r *GoogleVisionRecognizer) Recognize(ctx context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read image: %w", err)
	}

	req := &vision.BatchAnnotateImagesRequest{
		Requests: []*vision.AnnotateImageRequest{{
			Image:    &vision.Image{Content: base64.StdEncoding.EncodeToString(data)},
			Features: []*vision.Feature{{Type: "TEXT_DETECTION"}},
		}},
	}

	resp, err := r.service.Images.Annotate(req).Context(ctx).Do()
	if err != nil {
		return "", llm.Classify(err)
	}
	if len(resp.Responses) == 0 {
		return "", nil
	}

	res := resp.Responses[0]
	if res.Error != nil && res.Error.Message != "" {
		return "", fmt.Errorf("vision: %s", res.Error.Message)
	}
	if res.FullTextAnnotation != nil {
		return res.FullTextAnnotation.Text, nil
	}
	if len(res.TextAnnotations) > 0 {
		return res.TextAnnotations[0].Description, nil
	}

	return "", nil
}
