package provider

import (
	"context"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// GenerationRunName labels every instrumented model call.
const GenerationRunName = "LLM Generation"

// Instrumented wraps a Generator and reports every call to the given
// callback handlers: OnStart with the input messages and parameters, then
// OnEnd with the reply or OnError with the failure. The inner model is
// invoked with the caller's context so it emits no events of its own and
// each call produces exactly one start/end pair.
type Instrumented struct {
	inner    Generator
	cfg      model.Config
	extra    map[string]any
	handlers []callbacks.Handler
}

// InstrumentOption customises an Instrumented wrapper.
type InstrumentOption func(*Instrumented)

// WithModelConfig sets the default parameters reported on start events.
// Per-call model options override them.
func WithModelConfig(c model.Config) InstrumentOption {
	return func(i *Instrumented) { i.cfg = c }
}

// WithExtra attaches static metadata (e.g. trim statistics) to every start
// event.
func WithExtra(extra map[string]any) InstrumentOption {
	return func(i *Instrumented) { i.extra = extra }
}

// Instrument wraps inner. With no handlers the wrapper is a pass-through.
func Instrument(inner Generator, handlers []callbacks.Handler, opts ...InstrumentOption) *Instrumented {
	in := &Instrumented{inner: inner, handlers: handlers}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

// ConfigOf returns the model.Config reported for a provider Config.
func ConfigOf(cfg *Config) model.Config {
	return model.Config{
		Model:       cfg.ModelName(),
		MaxTokens:   cfg.Tuning.MaxTokens,
		Temperature: cfg.Tuning.Temperature,
	}
}

// Generate calls the wrapped model, emitting start/end or start/error events.
// Errors from the inner model are returned unchanged.
func (i *Instrumented) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	if len(i.handlers) == 0 {
		return i.inner.Generate(ctx, input, opts...)
	}

	cbCtx := callbacks.InitCallbacks(ctx, &callbacks.RunInfo{
		Name:      GenerationRunName,
		Type:      "model",
		Component: components.ComponentOfChatModel,
	}, i.handlers...)

	cbCtx = callbacks.OnStart(cbCtx, &model.CallbackInput{
		Messages: input,
		Config:   i.effectiveConfig(opts),
		Extra:    i.extra,
	})

	out, err := i.inner.Generate(ctx, input, opts...)
	if err != nil {
		callbacks.OnError(cbCtx, err)
		return nil, err
	}

	callbacks.OnEnd(cbCtx, &model.CallbackOutput{Message: out})
	return out, nil
}

// effectiveConfig overlays per-call options onto the default config.
func (i *Instrumented) effectiveConfig(opts []model.Option) *model.Config {
	c := i.cfg
	o := model.GetCommonOptions(&model.Options{}, opts...)
	if o.Model != nil {
		c.Model = *o.Model
	}
	if o.MaxTokens != nil {
		c.MaxTokens = *o.MaxTokens
	}
	if o.Temperature != nil {
		c.Temperature = *o.Temperature
	}
	return &c
}
