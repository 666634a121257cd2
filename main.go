package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/batchwatch-poc/server/internal/agent/model"
	"github.com/batchwatch-poc/server/internal/agent/repo"
	"github.com/batchwatch-poc/server/internal/agent/turn"
	"github.com/batchwatch-poc/server/internal/catalog"
	"github.com/batchwatch-poc/server/internal/core"
	"github.com/batchwatch-poc/server/internal/llm"
	"github.com/batchwatch-poc/server/internal/warehouse"
	logx "github.com/batchwatch-poc/server/pkg/logger"
	pkgredis "github.com/batchwatch-poc/server/pkg/redis"
)

// AppConfig defines all configurable parameters for the agent, sourced from
// environment variables (loaded from .env for local runs).
type AppConfig struct {
	Environment string `envconfig:"APP_ENV" default:"development"`

	// Infrastructure
	Redis     pkgredis.Config
	Warehouse model.WarehouseConfig
	Catalog   model.CatalogConfig

	// LLM provider
	APIKey  string `envconfig:"GEMINI_API_KEY" required:"true"`
	BaseURL string `envconfig:"GEMINI_BASE_URL"`

	// Agent configs
	Classifier   model.ClassifierModelConfig
	Synthesizer  model.SynthesizerModelConfig
	Conversation model.ConversationConfig
}

func main() {
	ctx := context.Background()

	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Warning: Could not load .env file: %v", err)
	}

	var envCfg AppConfig
	if err := envconfig.Process("", &envCfg); err != nil {
		log.Fatalf("Failed to process environment config: %v", err)
	}

	logx.Init(logx.LoggerOpts{Environment: core.ParseEnvironment(envCfg.Environment)})

	rdb, err := envCfg.Redis.New()
	if err != nil {
		log.Fatalf("Failed to initialise Redis client: %v", err)
	}
	defer rdb.Close()

	ttl, err := time.ParseDuration(envCfg.Conversation.TTL)
	if err != nil {
		log.Fatalf("Invalid CONVERSATION_TTL '%s': %v", envCfg.Conversation.TTL, err)
	}
	store := repo.NewRedisStateStore(rdb, ttl)

	// ====================================================
	// Collaborators

	geminiClient, err := llm.NewGeminiClient(ctx, llm.ClientConfig{
		APIKey:  envCfg.APIKey,
		BaseURL: envCfg.BaseURL,
	})
	if err != nil {
		log.Fatalf("Failed to create Gemini client: %v", err)
	}
	classifier, err := llm.NewClassifier(geminiClient, envCfg.Classifier)
	if err != nil {
		log.Fatalf("Failed to create classifier: %v", err)
	}
	synthesizer, err := llm.NewSynthesizer(geminiClient, envCfg.Synthesizer)
	if err != nil {
		log.Fatalf("Failed to create synthesizer: %v", err)
	}

	cacheTTL, err := time.ParseDuration(envCfg.Catalog.CacheTTL)
	if err != nil {
		log.Fatalf("Invalid CATALOG_CACHE_TTL '%s': %v", envCfg.Catalog.CacheTTL, err)
	}
	fetcher, err := catalog.NewHTTPFetcher(envCfg.Catalog.BaseURL, 15*time.Second)
	if err != nil {
		log.Fatalf("Failed to create catalog fetcher: %v", err)
	}
	cat, err := catalog.NewClient(fetcher, cacheTTL)
	if err != nil {
		log.Fatalf("Failed to create catalog client: %v", err)
	}
	cat.Prefetch(ctx)

	wh, err := warehouse.Open(envCfg.Warehouse)
	if err != nil {
		log.Fatalf("Failed to open warehouse: %v", err)
	}
	defer wh.Close()
	if err := wh.Init(ctx); err != nil {
		log.Fatalf("Failed to init warehouse schema: %v", err)
	}

	orchestrator, err := turn.NewOrchestrator(classifier, synthesizer, cat, wh, store)
	if err != nil {
		log.Fatalf("Failed to build orchestrator: %v", err)
	}

	// ====================================================
	// Demo conversation

	testQueries := []struct {
		description string
		query       string
	}{
		{
			description: "Status check by batch name",
			query:       "How is derivatives doing today?",
		},
		{
			description: "Failure drilldown in the same conversation",
			query:       "What failed?",
		},
		{
			description: "Task detail for the failed run",
			query:       "Show me the task details for that run",
		},
	}

	conversationID := uuid.NewString()

	for i, test := range testQueries {
		fmt.Printf("\nTest %d: %s\n", i+1, test.description)
		fmt.Printf("Query: %q\n", test.query)

		result, err := orchestrator.ProcessTurn(ctx, model.TurnInput{
			ConversationID: conversationID,
			Message:        test.query,
		})
		if err != nil {
			log.Fatalf("Turn %d failed: %v", i+1, err)
		}

		fmt.Printf("Response %d: %s\n", i+1, result.Text)
		if len(result.SuggestedQueries) > 0 {
			fmt.Printf("Suggestions: %v\n", result.SuggestedQueries)
		}
		for _, call := range result.ToolCalls {
			fmt.Printf("  tool: %s (%dms)\n", call.Tool, call.DurationMS)
		}
		fmt.Println("────────────────────────────────────────────────")

		time.Sleep(500 * time.Millisecond)
	}

	fmt.Println("All turns completed")
}
