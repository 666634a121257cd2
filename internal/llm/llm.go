// Package llm hosts the two language-model collaborators of the agent: the
// intent classifier and the response synthesizer. Both share one Gemini
// client and exchange strict JSON with the model; everything the rest of
// the system sees is already parsed and typed.
package llm

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	logx "github.com/batchwatch-poc/server/pkg/logger"
)

// ClientConfig holds the shared Gemini connection settings.
type ClientConfig struct {
	APIKey  string
	BaseURL string
}

// NewGeminiClient creates the shared Gemini API client.
func NewGeminiClient(ctx context.Context, config ClientConfig) (*genai.Client, error) {
	clientCfg := &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if config.BaseURL != "" {
		clientCfg.HTTPOptions.BaseURL = config.BaseURL
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		logx.Error().Err(err).Msg("Error creating Gemini client")
		return nil, fmt.Errorf("error creating Gemini client: %w", err)
	}
	return client, nil
}

func generate(ctx context.Context, client *genai.Client, modelName string, temperature float32, maxTokens int, system string, contents []*genai.Content) (string, error) {
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
		Temperature:       genai.Ptr(temperature),
		MaxOutputTokens:   int32(maxTokens),
	}
	resp, err := client.Models.GenerateContent(ctx, modelName, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	return resp.Text(), nil
}
