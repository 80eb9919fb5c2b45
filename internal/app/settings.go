// Package app turns configuration into typed settings and wires the
// services behind the API and the command line.
package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/ethanbaker/minutes/internal/extraction"
	"github.com/ethanbaker/minutes/internal/events"
	"github.com/ethanbaker/minutes/internal/processing"
	"github.com/ethanbaker/minutes/internal/transcriber"
	"github.com/ethanbaker/minutes/pkg/llm"
	"github.com/ethanbaker/minutes/pkg/utils"
	"github.com/go-sql-driver/mysql"
)

// Backend names accepted by LLM_BACKEND, SPEECH_BACKEND and VISION_BACKEND
const (
	BackendOpenAI = "openai"
	BackendAgents = "agents"
	BackendGoogle = "google"
	BackendNone   = "none"
)

// LLMSettings configures the generative model
type LLMSettings struct {
	Backend string
	OpenAI  llm.OpenAIConfig
	Retry   llm.RetryPolicy

	MaxTranscriptChars int
	PromptsFile        string // optional YAML override of the extraction prompts
	QAPromptFile       string
}

// DatabaseSettings selects the gorm driver
type DatabaseSettings struct {
	Driver string
	DSN    string
}

// RedisSettings configures the shared processing lock. An empty URL keeps the
// lock in memory
type RedisSettings struct {
	URL     string
	LockTTL time.Duration
}

// TranscriberSettings selects the speech and vision backends
type TranscriberSettings struct {
	Speech      string
	Vision      string
	MaxAttempts int

	WhisperModel  string
	VisionModel   string
	SampleRate    int32
	LanguageCode  string
	SweepSchedule string // cron spec; empty disables the sweeper
}

// AvatarSettings configures text-to-speech
type AvatarSettings struct {
	Model string
	Voice string
}

// ServerSettings configures the HTTP surface
type ServerSettings struct {
	Port           string
	AllowedOrigins []string
	APIKey         string
	UploadDir      string
}

// Settings is the complete typed configuration of the service
type Settings struct {
	Server      ServerSettings
	LLM         LLMSettings
	Database    DatabaseSettings
	Redis       RedisSettings
	Kafka       events.Config
	Transcriber TranscriberSettings
	Avatar      AvatarSettings
}

// LoadSettings reads every setting from cfg, applying defaults
func LoadSettings(cfg *utils.Config) (*Settings, error) {
	retry := llm.DefaultRetryPolicy()
	retry.Attempts = cfg.GetIntWithDefault("LLM_RETRY_ATTEMPTS", retry.Attempts)
	retry.BaseDelay = cfg.GetDuration("LLM_RETRY_BASE_DELAY", retry.BaseDelay)
	if retry.Attempts < 1 {
		return nil, fmt.Errorf("LLM_RETRY_ATTEMPTS must be at least 1")
	}

	s := &Settings{
		Server: ServerSettings{
			Port:           cfg.GetWithDefault("API_PORT", "8080"),
			AllowedOrigins: cfg.GetList("CORS_ALLOWED_ORIGINS"),
			APIKey:         cfg.Get("API_KEY"),
			UploadDir:      cfg.GetWithDefault("UPLOAD_DIR", "uploads"),
		},
		LLM: LLMSettings{
			Backend: strings.ToLower(cfg.GetWithDefault("LLM_BACKEND", BackendOpenAI)),
			OpenAI: llm.OpenAIConfig{
				APIKey:  cfg.Get("OPENAI_API_KEY"),
				BaseURL: cfg.Get("OPENAI_BASE_URL"),
				Model:   cfg.GetWithDefault("OPENAI_MODEL", "gpt-4o-mini"),
			},
			Retry:              retry,
			MaxTranscriptChars: cfg.GetIntWithDefault("MAX_TRANSCRIPT_CHARS", extraction.DefaultMaxTranscriptChars),
			PromptsFile:        cfg.Get("PROMPTS_FILE"),
			QAPromptFile:       cfg.GetWithDefault("QA_PROMPT_FILE", "prompts/qa.md"),
		},
		Database: databaseSettings(cfg),
		Redis: RedisSettings{
			URL:     cfg.Get("REDIS_URL"),
			LockTTL: cfg.GetDuration("REDIS_LOCK_TTL", processing.DefaultLockTTL),
		},
		Kafka: events.Config{
			Brokers: cfg.GetList("KAFKA_BROKERS"),
			Topic:   cfg.GetWithDefault("KAFKA_TOPIC", events.DefaultTopic),
		},
		Transcriber: TranscriberSettings{
			Speech:        strings.ToLower(cfg.GetWithDefault("SPEECH_BACKEND", BackendOpenAI)),
			Vision:        strings.ToLower(cfg.GetWithDefault("VISION_BACKEND", BackendOpenAI)),
			MaxAttempts:   cfg.GetIntWithDefault("TRANSCRIBE_MAX_ATTEMPTS", transcriber.DefaultMaxAttempts),
			WhisperModel:  cfg.Get("WHISPER_MODEL"),
			VisionModel:   cfg.Get("VISION_MODEL"),
			SampleRate:    int32(cfg.GetIntWithDefault("GOOGLE_SPEECH_SAMPLE_RATE", 16000)),
			LanguageCode:  cfg.GetWithDefault("GOOGLE_SPEECH_LANGUAGE", "en-US"),
			SweepSchedule: cfg.GetWithDefault("TRANSCRIBE_SWEEP_SCHEDULE", "@every 10m"),
		},
		Avatar: AvatarSettings{
			Model: cfg.Get("TTS_MODEL"),
			Voice: cfg.Get("TTS_VOICE"),
		},
	}

	if len(s.Server.AllowedOrigins) == 0 {
		s.Server.AllowedOrigins = []string{"http://localhost:5173"}
	}

	switch s.LLM.Backend {
	case BackendOpenAI, BackendAgents:
	default:
		return nil, fmt.Errorf("unknown LLM_BACKEND %q", s.LLM.Backend)
	}

	for name, backend := range map[string]string{"SPEECH_BACKEND": s.Transcriber.Speech, "VISION_BACKEND": s.Transcriber.Vision} {
		switch backend {
		case BackendOpenAI, BackendGoogle, BackendNone:
		default:
			return nil, fmt.Errorf("unknown %s %q", name, backend)
		}
	}

	return s, nil
}

// databaseSettings prefers an explicit DB_DSN and otherwise builds a MySQL
// DSN from the MYSQL_* variables
func databaseSettings(cfg *utils.Config) DatabaseSettings {
	db := DatabaseSettings{
		Driver: strings.ToLower(cfg.Get("DB_DRIVER")),
		DSN:    cfg.Get("DB_DSN"),
	}
	if db.DSN != "" {
		return db
	}

	if name := cfg.Get("MYSQL_DATABASE"); name != "" {
		dbConfig := mysql.Config{
			User:                 cfg.Get("MYSQL_USER"),
			Passwd:               cfg.Get("MYSQL_ROOT_PASSWORD"),
			Net:                  "tcp",
			Addr:                 fmt.Sprintf("%s:%s", cfg.GetWithDefault("MYSQL_HOST", "localhost"), cfg.GetWithDefault("MYSQL_PORT", "3306")),
			DBName:               name,
			ParseTime:            true,
			AllowNativePasswords: true,
		}
		db.Driver = "mysql"
		db.DSN = dbConfig.FormatDSN()
		return db
	}

	return db
}
