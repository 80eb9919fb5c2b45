package app

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/ethanbaker/minutes/internal/avatar"
	"github.com/ethanbaker/minutes/internal/events"
	"github.com/ethanbaker/minutes/internal/extraction"
	"github.com/ethanbaker/minutes/internal/metrics"
	"github.com/ethanbaker/minutes/internal/processing"
	"github.com/ethanbaker/minutes/internal/qa"
	"github.com/ethanbaker/minutes/internal/stores/meeting"
	"github.com/ethanbaker/minutes/internal/transcriber"
	"github.com/ethanbaker/minutes/pkg/llm"
	"github.com/ethanbaker/minutes/pkg/utils"
	"github.com/openai/openai-go/v2"
	"github.com/redis/go-redis/v9"
)

const agentInstructions = "You analyze meeting transcripts. Follow the task in each prompt exactly and return only what it asks for."

// App holds every long-lived component of the service
type App struct {
	Settings *Settings

	Store       *meeting.Store
	Metrics     *metrics.Metrics
	Transcriber *transcriber.Transcriber
	Extractor   *extraction.Engine
	Publisher   *events.Publisher
	Processor   *processing.Processor
	Dispatcher  *processing.Dispatcher
	Sweeper     *processing.Sweeper // nil when no schedule is set
	QA          *qa.Service
	Avatar      *avatar.Service

	closers []func() error
}

// Build wires the components described by s. A nil provider builds one from
// the LLM settings; tests pass a fake
func Build(ctx context.Context, s *Settings, provider llm.Provider) (*App, error) {
	a := &App{Settings: s, Metrics: metrics.Default}
	if err := a.build(ctx, provider); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) build(ctx context.Context, provider llm.Provider) error {
	s := a.Settings

	// Database
	dialector, err := meeting.Dialector(s.Database.Driver, s.Database.DSN)
	if err != nil {
		return err
	}
	if a.Store, err = meeting.NewStore(dialector); err != nil {
		return err
	}
	a.closers = append(a.closers, a.Store.Close)

	// OpenAI client shared by every OpenAI backed component
	var client *openai.Client
	if s.LLM.OpenAI.APIKey != "" {
		c, err := llm.NewOpenAIClient(s.LLM.OpenAI)
		if err != nil {
			return err
		}
		client = &c
	}

	if provider == nil {
		if provider, err = newProvider(s.LLM, client); err != nil {
			return err
		}
	}

	// Transcription
	speech, vision, err := a.recognizers(ctx, s.Transcriber, client)
	if err != nil {
		return err
	}
	a.Transcriber = transcriber.New(a.Store, speech, vision, s.Transcriber.MaxAttempts).WithMetrics(a.Metrics)

	// Extraction
	cfg := extraction.DefaultConfig()
	cfg.MaxTranscriptChars = s.LLM.MaxTranscriptChars
	cfg.Retry = s.LLM.Retry
	if s.LLM.PromptsFile != "" {
		if cfg.Prompts, err = extraction.LoadPrompts(s.LLM.PromptsFile); err != nil {
			return err
		}
	}
	a.Extractor = extraction.New(provider, cfg)

	// Processing
	a.Publisher = events.New(&s.Kafka, a.Metrics)
	a.closers = append(a.closers, a.Publisher.Close)

	guard, err := a.guard(ctx, s.Redis)
	if err != nil {
		return err
	}

	a.Processor = processing.NewProcessor(a.Store, a.Transcriber, a.Extractor, a.Publisher, a.Metrics)
	a.Dispatcher = processing.NewDispatcher(a.Processor, guard, a.Metrics)

	if s.Transcriber.SweepSchedule != "" {
		if a.Sweeper, err = processing.NewSweeper(a.Store, a.Dispatcher, a.Transcriber.MaxAttempts(), s.Transcriber.SweepSchedule); err != nil {
			return err
		}
	}

	// On-demand features
	instruction := utils.LoadPromptWithFallback(s.LLM.QAPromptFile, qa.DefaultInstruction)
	a.QA = qa.New(a.Store, provider, instruction, s.LLM.MaxTranscriptChars, a.Metrics)

	var synthesizer avatar.Synthesizer
	if client != nil {
		synthesizer = avatar.NewOpenAISynthesizer(*client, s.Avatar.Model, s.Avatar.Voice)
	} else {
		log.Println("[APP]: Warning, OPENAI_API_KEY not set, avatar audio is disabled")
	}
	a.Avatar = avatar.New(a.Store, synthesizer)

	return nil
}

func newProvider(s LLMSettings, client *openai.Client) (llm.Provider, error) {
	switch s.Backend {
	case BackendAgents:
		return llm.NewAgentProvider("minutes", agentInstructions, s.OpenAI.Model), nil
	default:
		if client == nil {
			return nil, errors.New("OPENAI_API_KEY not set in config or environment")
		}
		return llm.NewCompletionsProvider(*client, s.OpenAI), nil
	}
}

// recognizers builds the speech and vision backends. A nil recognizer makes
// the transcriber mark those artifacts as failed
func (a *App) recognizers(ctx context.Context, s TranscriberSettings, client *openai.Client) (speech, vision transcriber.Recognizer, err error) {
	switch s.Speech {
	case BackendOpenAI:
		if client == nil {
			return nil, nil, errors.New("SPEECH_BACKEND=openai requires OPENAI_API_KEY")
		}
		speech = transcriber.NewWhisperRecognizer(*client, s.WhisperModel)
	case BackendGoogle:
		r, err := transcriber.NewGoogleSpeechRecognizer(ctx, s.SampleRate, s.LanguageCode)
		if err != nil {
			return nil, nil, err
		}
		a.closers = append(a.closers, r.Close)
		speech = r
	}

	switch s.Vision {
	case BackendOpenAI:
		if client == nil {
			return nil, nil, errors.New("VISION_BACKEND=openai requires OPENAI_API_KEY")
		}
		vision = transcriber.NewVisionRecognizer(*client, s.VisionModel)
	case BackendGoogle:
		r, err := transcriber.NewGoogleVisionRecognizer(ctx)
		if err != nil {
			return nil, nil, err
		}
		vision = r
	}

	return speech, vision, nil
}

// guard shares the processing lock through Redis when it is configured
func (a *App) guard(ctx context.Context, s RedisSettings) (processing.Guard, error) {
	if s.URL == "" {
		return processing.NewMemoryGuard(), nil
	}

	opts, err := redis.ParseURL(s.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}

	client := redis.NewClient(opts)
	a.closers = append(a.closers, client.Close)

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to reach redis: %w", err)
	}

	log.Printf("[APP]: Using redis processing lock at %s", opts.Addr)
	return processing.NewRedisGuard(client, "", s.LockTTL), nil
}

// Start begins background work that runs alongside the API
func (a *App) Start() {
	if a.Sweeper != nil {
		a.Sweeper.Start()
	}
}

// Shutdown stops the sweeper, waits for in-flight runs and releases every
// connection
func (a *App) Shutdown(ctx context.Context) error {
	if a.Sweeper != nil {
		a.Sweeper.Stop()
	}

	var errs []error
	if a.Dispatcher != nil {
		if err := a.Dispatcher.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if err := a.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Close releases connections in reverse order of creation
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
