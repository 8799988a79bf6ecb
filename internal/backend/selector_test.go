package backend

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveEmptyNameIsStubWithoutFallback(t *testing.T) {
	selector := NewSelector(Config{})
	for _, name := range []string{"", StubName} {
		resolution := selector.Resolve(context.Background(), name, Params{})
		assert.Equal(t, StubName, resolution.Backend.Name())
		assert.False(t, resolution.Fallback, "asking for the stub is not a fallback")
	}
}

func TestResolveUnknownBackendFallsBack(t *testing.T) {
	selector := NewSelector(Config{})
	resolution := selector.Resolve(context.Background(), "mystery", Params{})
	assert.Equal(t, StubName, resolution.Backend.Name())
	assert.True(t, resolution.Fallback)
	assert.Contains(t, resolution.Reason, "unknown backend")
}

func TestResolveWithoutCredentialsFallsBack(t *testing.T) {
	t.Setenv("OPENROUTER_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("ARK_API_KEY", "")
	t.Setenv("DEEPSEEK_API_KEY", "")
	t.Setenv("OLLAMA_BASE_URL", "")

	selector := NewSelector(Config{})
	for _, name := range []string{"openai", "ark", "deepseek", "ollama"} {
		resolution := selector.Resolve(context.Background(), name, Params{Model: "m"})
		assert.Equal(t, StubName, resolution.Backend.Name(), name)
		assert.True(t, resolution.Fallback, name)
		assert.NotEmpty(t, resolution.Reason, name)
	}
}

func TestResolveCachesLiveInstances(t *testing.T) {
	t.Setenv("OLLAMA_BASE_URL", "http://localhost:11434")

	selector := NewSelector(Config{})
	params := Params{Model: "llama3", MaxTokens: 100}

	first := selector.Resolve(context.Background(), "ollama", params)
	require.False(t, first.Fallback)
	second := selector.Resolve(context.Background(), "ollama", params)
	assert.Same(t, first.Backend, second.Backend)

	// Different parameters key a different instance.
	third := selector.Resolve(context.Background(), "ollama", Params{Model: "llama3", MaxTokens: 200})
	assert.NotSame(t, first.Backend, third.Backend)
}

func TestStubResponsesAreDeterministic(t *testing.T) {
	stub := NewStubBackend()
	ctx := context.Background()

	prompts := map[string]string{
		"perception": "You are the perception step. Question: do we need React?",
		"analysis":   "You are the analysis step. Gaps found: GraphQL",
		"decision":   "You are the decision step. Gaps to close: GraphQL",
	}
	for step, prompt := range prompts {
		first := stub.Generate(ctx, prompt, Params{})
		second := stub.Generate(ctx, prompt, Params{})
		require.NoError(t, first.Err, step)
		assert.Equal(t, first.Text, second.Text, step)
		assert.Equal(t, StubName, first.Backend)
		assert.NotEmpty(t, first.Text, step)
	}

	// Distinct steps get distinct canned answers.
	perception := stub.Generate(ctx, prompts["perception"], Params{})
	decision := stub.Generate(ctx, prompts["decision"], Params{})
	assert.NotEqual(t, perception.Text, decision.Text)
}
