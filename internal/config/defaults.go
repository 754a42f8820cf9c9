package config

import "subconform/internal/subtitles"

const (
	defaultDataDir              = "~/.local/share/subconform"
	defaultLogDir               = "~/.local/share/subconform/logs"
	defaultAPIBind              = "127.0.0.1:7488"
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
	defaultLogRetentionDays     = 30
	defaultTranslationProvider  = ProviderMock
	defaultTranslationBatchSize = 5
	defaultTranslationContext   = 15
	defaultLLMBaseURL           = "https://openrouter.ai/api/v1/chat/completions"
	defaultLLMModel             = "google/gemini-3-flash-preview"
	defaultLLMReferer           = "https://github.com/subconform/subconform"
	defaultLLMTitle             = "subconform"
	defaultLLMTimeoutSeconds    = 60
	defaultWorkers              = 2
	defaultJobRetentionHours    = 24
	defaultNtfyTimeoutSeconds   = 10
)

// Translation providers.
const (
	ProviderMock = "mock"
	ProviderLLM  = "llm"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
			APIBind: defaultAPIBind,
		},
		Constraints: subtitles.DefaultConstraints(),
		Repair: Repair{
			MaxCompressionRatio: 0.40,
			MinGapMS:            80,
			TailExtensionMS:     2000,
			MinSplitWords:       4,
		},
		Gender: Gender{
			AmbiguityThreshold: 0.7,
		},
		Translation: Translation{
			Provider:    defaultTranslationProvider,
			BatchSize:   defaultTranslationBatchSize,
			ContextSize: defaultTranslationContext,
			UseMemory:   true,
		},
		LLM: LLM{
			BaseURL:        defaultLLMBaseURL,
			Model:          defaultLLMModel,
			Referer:        defaultLLMReferer,
			Title:          defaultLLMTitle,
			TimeoutSeconds: defaultLLMTimeoutSeconds,
		},
		Workflow: Workflow{
			Workers:           defaultWorkers,
			JobRetentionHours: defaultJobRetentionHours,
			WrapTranslations:  true,
		},
		Notifications: Notifications{
			RequestTimeoutSeconds: defaultNtfyTimeoutSeconds,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
