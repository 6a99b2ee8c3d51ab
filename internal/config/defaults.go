package config

const (
	defaultDataDir            = "~/.local/share/scrivener"
	defaultStagingDir         = "~/.local/share/scrivener/staging"
	defaultBlobDir            = "~/.local/share/scrivener/blobs"
	defaultLogDir             = "~/.local/share/scrivener/logs"
	defaultAPIBind            = "127.0.0.1:7966"
	defaultStatusURLBase      = "http://127.0.0.1:7966"
	defaultWarmupSeconds      = 10
	defaultBackoffSeconds     = 2
	defaultDispatchYieldMS    = 100
	defaultMaxConcurrent      = 30
	defaultLLMBaseURL         = "https://openrouter.ai/api/v1/chat/completions"
	defaultLLMModel           = "meta-llama/llama-3.3-70b-instruct"
	defaultLLMScoringModel    = "meta-llama/llama-3.1-405b-instruct"
	defaultLLMTimeoutSeconds  = 120
	defaultBridgeTimeoutSecs  = 300
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:    defaultDataDir,
			StagingDir: defaultStagingDir,
			BlobDir:    defaultBlobDir,
			LogDir:     defaultLogDir,
			APIBind:    defaultAPIBind,
		},
		Daemon: Daemon{
			WarmupSeconds:      defaultWarmupSeconds,
			BackoffSeconds:     defaultBackoffSeconds,
			DispatchYieldMS:    defaultDispatchYieldMS,
			MaxConcurrentTasks: defaultMaxConcurrent,
			StatusURLBase:      defaultStatusURLBase,
		},
		LLM: LLM{
			BaseURL:        defaultLLMBaseURL,
			Model:          defaultLLMModel,
			ScoringModel:   defaultLLMScoringModel,
			TimeoutSeconds: defaultLLMTimeoutSeconds,
		},
		Extraction: Extraction{
			TimeoutSeconds: defaultBridgeTimeoutSecs,
		},
		DocDB: DocDB{
			TimeoutSeconds: defaultBridgeTimeoutSecs,
		},
		Embeddings: Embeddings{
			TimeoutSeconds: defaultBridgeTimeoutSecs,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
