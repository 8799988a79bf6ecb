package backend

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino-ext/components/model/deepseek"
	"github.com/cloudwego/eino-ext/components/model/ollama"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"gaplens/pkg"
)

// liveBackend wraps an eino chat model behind the Backend capability. Every
// call is bounded by the configured timeout; expiry abandons the in-flight
// call and reports a timeout result.
type liveBackend struct {
	name    string
	model   model.BaseChatModel
	timeout time.Duration
}

// Name returns the provider name this backend was resolved for.
func (b *liveBackend) Name() string { return b.name }

// Generate invokes the chat model with the prompt as a single user message.
func (b *liveBackend) Generate(ctx context.Context, prompt string, params Params) Result {
	start := time.Now()
	callCtx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	message, err := b.model.Generate(callCtx, []*schema.Message{schema.UserMessage(prompt)})
	elapsed := time.Since(start)
	if err != nil {
		var cause error
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			cause = &pkg.BackendTimeoutError{Backend: b.name, Timeout: b.timeout}
		} else {
			cause = &pkg.BackendUnavailableError{Backend: b.name, Cause: err}
		}
		return Result{Backend: b.name, Outcome: pkg.OutcomeError, Duration: elapsed, Err: cause}
	}
	return Result{Text: message.Content, Backend: b.name, Outcome: pkg.OutcomeOK, Duration: elapsed}
}

// newChatModel constructs the eino-ext component for a provider name.
// Construction is side-effect-free: no network call happens until Generate.
func newChatModel(ctx context.Context, name string, creds Credentials, params Params) (model.BaseChatModel, error) {
	switch name {
	case "openai":
		maxTokens := params.MaxTokens
		temperature := params.Temperature
		return openai.NewChatModel(ctx, &openai.ChatModelConfig{
			APIKey:      creds.APIKey,
			BaseURL:     creds.BaseURL,
			Model:       params.Model,
			MaxTokens:   &maxTokens,
			Temperature: &temperature,
		})
	case "ollama":
		return ollama.NewChatModel(ctx, &ollama.ChatModelConfig{
			BaseURL: creds.BaseURL,
			Model:   params.Model,
		})
	case "ark":
		return ark.NewChatModel(ctx, &ark.ChatModelConfig{
			APIKey: creds.APIKey,
			Model:  params.Model,
		})
	case "deepseek":
		return deepseek.NewChatModel(ctx, &deepseek.ChatModelConfig{
			APIKey: creds.APIKey,
			Model:  params.Model,
		})
	default:
		return nil, fmt.Errorf("unknown backend: %s", name)
	}
}
