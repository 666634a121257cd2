package model

// ================ Config ================
type ConversationConfig struct {
	TTL string `envconfig:"CONVERSATION_TTL" default:"24h"`
}

type ClassifierModelConfig struct {
	Model       string  `envconfig:"CLASSIFIER_MODEL" default:"gemini-2.0-flash"`
	MaxTokens   int     `envconfig:"CLASSIFIER_MAX_TOKENS" default:"1024"`
	Temperature float32 `envconfig:"CLASSIFIER_TEMPERATURE" default:"0.1"`
}

type SynthesizerModelConfig struct {
	Model       string  `envconfig:"SYNTHESIZER_MODEL" default:"gemini-2.0-flash"`
	MaxTokens   int     `envconfig:"SYNTHESIZER_MAX_TOKENS" default:"2048"`
	Temperature float32 `envconfig:"SYNTHESIZER_TEMPERATURE" default:"0.4"`
}

type CatalogConfig struct {
	BaseURL  string `envconfig:"CATALOG_BASE_URL"`
	CacheTTL string `envconfig:"CATALOG_CACHE_TTL" default:"5m"`
}

type WarehouseConfig struct {
	DSN        string `envconfig:"WAREHOUSE_DSN" default:"file:batchwatch.db?cache=shared"`
	QueryLimit int    `envconfig:"WAREHOUSE_QUERY_LIMIT" default:"500"`
}
