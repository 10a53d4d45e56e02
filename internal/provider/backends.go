package provider

import (
	"context"
	"fmt"
	"strings"

	einoark "github.com/cloudwego/eino-ext/components/model/ark"
	einogemini "github.com/cloudwego/eino-ext/components/model/gemini"
	einoollama "github.com/cloudwego/eino-ext/components/model/ollama"
	einoopenai "github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"google.golang.org/genai"
)

// reasoningPrefixes are deployment/model name prefixes of OpenAI reasoning
// models. These reject temperature and max_tokens and take
// max_completion_tokens plus an optional reasoning effort instead.
var reasoningPrefixes = []string{"o1", "o3", "o4", "codex"}

// isReasoningModel reports whether name refers to an OpenAI reasoning model.
func isReasoningModel(name string) bool {
	lower := strings.ToLower(name)
	for _, p := range reasoningPrefixes {
		if strings.HasPrefix(lower, p) {
			return true
		}
	}
	return false
}

// openAIConfig builds the shared OpenAI/Azure client config, switching to
// reasoning-model parameters where required.
func openAIConfig(name string, tuning SharedTuning) *einoopenai.ChatModelConfig {
	maxTokens := tuning.MaxTokens
	cfg := &einoopenai.ChatModelConfig{Model: name}
	if isReasoningModel(name) {
		cfg.MaxCompletionTokens = &maxTokens
		if tuning.ReasoningEffort != "" {
			cfg.ReasoningEffort = einoopenai.ReasoningEffortLevel(tuning.ReasoningEffort)
		}
		return cfg
	}
	temp := tuning.Temperature
	cfg.MaxTokens = &maxTokens
	cfg.Temperature = &temp
	return cfg
}

// newOllama constructs a ChatModel backed by a local Ollama instance.
func newOllama(ctx context.Context, cfg *Config) (model.BaseChatModel, error) {
	m, err := einoollama.NewChatModel(ctx, &einoollama.ChatModelConfig{
		BaseURL: cfg.Ollama.Host,
		Model:   cfg.Ollama.Model,
	})
	if err != nil {
		return nil, fmt.Errorf("provider: failed to create ollama model: %w", err)
	}
	return m, nil
}

// newOpenAI constructs a ChatModel backed by the OpenAI API.
func newOpenAI(ctx context.Context, cfg *Config) (model.BaseChatModel, error) {
	c := openAIConfig(cfg.OpenAI.Model, cfg.Tuning)
	c.APIKey = cfg.OpenAI.APIKey
	m, err := einoopenai.NewChatModel(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("provider: failed to create openai model: %w", err)
	}
	return m, nil
}

// newAzure constructs a ChatModel backed by Azure OpenAI Service.
func newAzure(ctx context.Context, cfg *Config) (model.BaseChatModel, error) {
	az := cfg.AzureOpenAI
	c := openAIConfig(az.Deployment, cfg.Tuning)
	c.APIKey = az.APIKey
	c.BaseURL = az.Endpoint
	c.ByAzure = true
	c.APIVersion = az.APIVersion
	// Use the deployment name as-is; the default mapper strips dots/colons
	// which breaks deployment names like "gpt-4.1".
	c.AzureModelMapperFunc = func(model string) string { return model }
	m, err := einoopenai.NewChatModel(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("provider: failed to create azure model: %w", err)
	}
	return m, nil
}

// newArk constructs a ChatModel backed by the Volcengine Ark runtime.
// ARK_BASE_URL is optional; the SDK default region endpoint is used otherwise.
func newArk(ctx context.Context, cfg *Config) (model.BaseChatModel, error) {
	maxTokens := cfg.Tuning.MaxTokens
	temp := cfg.Tuning.Temperature
	m, err := einoark.NewChatModel(ctx, &einoark.ChatModelConfig{
		Model:       cfg.Ark.Model,
		APIKey:      cfg.Ark.APIKey,
		BaseURL:     cfg.Ark.BaseURL,
		MaxTokens:   &maxTokens,
		Temperature: &temp,
	})
	if err != nil {
		return nil, fmt.Errorf("provider: failed to create ark model: %w", err)
	}
	return m, nil
}

// newGemini constructs a ChatModel backed by Google Gemini (AI Studio).
func newGemini(ctx context.Context, cfg *Config) (model.BaseChatModel, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.Gemini.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("provider: failed to create Gemini client: %w", err)
	}
	m, err := einogemini.NewChatModel(ctx, &einogemini.Config{
		Client: client,
		Model:  cfg.Gemini.Model,
	})
	if err != nil {
		return nil, fmt.Errorf("provider: failed to create gemini model: %w", err)
	}
	return m, nil
}
