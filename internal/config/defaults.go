package config

const (
	defaultDataDir           = "~/.local/share/corella"
	defaultLogDir            = "~/.local/share/corella/logs"
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
	defaultFuzzyThreshold    = 0.85
	defaultAIBandLow         = 0.60
	defaultAIAcceptFloor     = 0.60
	defaultLLMBaseURL        = "https://openrouter.ai/api/v1/chat/completions"
	defaultLLMModel          = "google/gemini-3-flash-preview"
	defaultLLMTimeoutSeconds = 60
	defaultLLMRetryCount     = 2
	defaultLLMRetryBackoffMS = 500
	defaultLLMCallCap        = 50
	defaultLLMIntervalMS     = 200
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		Matching: Matching{
			FuzzyThreshold: defaultFuzzyThreshold,
			AIBandLow:      defaultAIBandLow,
			AIAcceptFloor:  defaultAIAcceptFloor,
		},
		LLM: LLM{
			BaseURL:           defaultLLMBaseURL,
			Model:             defaultLLMModel,
			TimeoutSeconds:    defaultLLMTimeoutSeconds,
			RetryCount:        defaultLLMRetryCount,
			RetryBackoffMS:    defaultLLMRetryBackoffMS,
			CallCap:           defaultLLMCallCap,
			MinCallIntervalMS: defaultLLMIntervalMS,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
