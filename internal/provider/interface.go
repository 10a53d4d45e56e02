// Package provider selects and constructs the chat model that `promptfit ask`
// sends trimmed prompts to, and wraps it with callback instrumentation.
// Supported backends: Ollama, OpenAI, Azure OpenAI, Volcengine Ark, Google Gemini.
package provider

import (
	"context"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// Backend enumerates the supported LLM inference providers.
type Backend string

const (
	// BackendOllama selects a locally running Ollama instance.
	BackendOllama Backend = "ollama"
	// BackendOpenAI selects the OpenAI API.
	BackendOpenAI Backend = "openai"
	// BackendAzure selects Azure OpenAI Service.
	BackendAzure Backend = "azure"
	// BackendArk selects the Volcengine Ark model runtime.
	BackendArk Backend = "ark"
	// BackendGemini selects Google Gemini via AI Studio.
	BackendGemini Backend = "gemini"
)

// ProviderOllama holds the Ollama connection settings.
type ProviderOllama struct {
	Host  string
	Model string
}

// ProviderOpenAI holds the OpenAI credentials and model name.
type ProviderOpenAI struct {
	APIKey string
	Model  string
}

// ProviderAzureOpenAI holds the Azure OpenAI credentials and deployment.
type ProviderAzureOpenAI struct {
	APIKey     string
	Endpoint   string
	Deployment string
	APIVersion string
}

// ProviderArk holds the Volcengine Ark credentials and endpoint.
type ProviderArk struct {
	APIKey  string
	Model   string
	BaseURL string
}

// ProviderGemini holds the Google AI Studio credentials and model name.
type ProviderGemini struct {
	APIKey string
	Model  string
}

// SharedTuning holds generation parameters applied to every backend that
// supports them.
type SharedTuning struct {
	// MaxTokens caps the number of tokens the model may generate per response.
	MaxTokens int
	// Temperature controls response randomness (0.0–1.0). Ignored by
	// reasoning models.
	Temperature float32
	// ReasoningEffort is forwarded to OpenAI/Azure reasoning models
	// (low, medium, high). Empty leaves the provider default.
	ReasoningEffort string
}

// Config holds all provider-level configuration resolved from environment
// variables or explicit caller-supplied values. Only the section matching
// Backend is consulted.
type Config struct {
	Backend     Backend
	Ollama      ProviderOllama
	OpenAI      ProviderOpenAI
	AzureOpenAI ProviderAzureOpenAI
	Ark         ProviderArk
	Gemini      ProviderGemini
	Tuning      SharedTuning
}

// ModelName returns the model or deployment identifier of the selected
// backend. It is used to label instrumentation events.
func (c *Config) ModelName() string {
	switch c.Backend {
	case BackendOllama:
		return c.Ollama.Model
	case BackendOpenAI:
		return c.OpenAI.Model
	case BackendAzure:
		return c.AzureOpenAI.Deployment
	case BackendArk:
		return c.Ark.Model
	case BackendGemini:
		return c.Gemini.Model
	default:
		return ""
	}
}

// Generator is the single capability the instrumentation wrapper needs from
// a chat model. Every eino model.BaseChatModel satisfies it.
type Generator interface {
	Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error)
}

var _ Generator = (model.BaseChatModel)(nil)
