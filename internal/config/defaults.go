package config

const (
	defaultLogDir       = "~/.local/share/pillcheck/logs"
	defaultDatabasePath = "~/.local/share/pillcheck/attempts.db"
	defaultAPIBind      = "127.0.0.1:7489"

	defaultApprovalScoreThreshold = 0.65
	defaultTextScoreMinThreshold  = 0.25
	defaultMatchThreshold         = 0.6
	defaultCompositionWeight      = 0.2
	defaultMaxAttempts            = 10

	defaultReferenceBucket    = "medicine-images"
	defaultMaxReferenceImages = 5
	defaultSignedURLTTL       = 60
	defaultRequestTimeout     = 60

	defaultEmbeddingBaseURL = "https://api-inference.huggingface.co/pipeline/feature-extraction/openai/clip-vit-base-patch32"
	defaultVLMBaseURL       = "https://api-inference.huggingface.co/models/Qwen/Qwen2.5-VL-7B-Instruct"

	defaultLogFormat = "console"
	defaultLogLevel  = "info"
)

func defaultCORSOrigins() []string {
	return []string{
		"http://localhost:8080",
		"http://127.0.0.1:8080",
		"http://localhost:5173",
		"http://127.0.0.1:5173",
		"http://localhost:3000",
		"http://127.0.0.1:3000",
	}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LogDir:       defaultLogDir,
			DatabasePath: defaultDatabasePath,
			APIBind:      defaultAPIBind,
		},
		Scoring: Scoring{
			ApprovalScoreThreshold: defaultApprovalScoreThreshold,
			TextScoreMinThreshold:  defaultTextScoreMinThreshold,
			MatchThreshold:         defaultMatchThreshold,
			CompositionWeight:      defaultCompositionWeight,
			MaxAttempts:            defaultMaxAttempts,
		},
		References: References{
			Bucket:              defaultReferenceBucket,
			MaxImages:           defaultMaxReferenceImages,
			SignedURLTTLSeconds: defaultSignedURLTTL,
			TimeoutSeconds:      defaultRequestTimeout,
		},
		Embedding: Embedding{
			BaseURL:        defaultEmbeddingBaseURL,
			TimeoutSeconds: defaultRequestTimeout,
		},
		VLM: VLM{
			BaseURL:        defaultVLMBaseURL,
			TimeoutSeconds: defaultRequestTimeout,
		},
		Server: Server{
			CORSOrigins: defaultCORSOrigins(),
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
