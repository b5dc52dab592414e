package chat

import (
	"context"
	"fmt"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
)

// StreamFunc receives each completion chunk as it arrives. Returning an
// error aborts the stream.
type StreamFunc func(ctx context.Context, chunk string) error

// Completer produces a streamed completion for an assembled prompt and
// returns the full response text.
type Completer interface {
	Complete(ctx context.Context, prompt Prompt, stream StreamFunc) (string, error)
}

// GenkitCompleter runs completions through a Genkit model with
// deterministic sampling. Answers should be grounded in the supplied
// context, not creative.
type GenkitCompleter struct {
	g         *genkit.Genkit
	modelName string
}

// NewGenkitCompleter wires a Completer to a registered Genkit model.
// modelName may be empty to use the Genkit instance's default model.
func NewGenkitCompleter(g *genkit.Genkit, modelName string) *GenkitCompleter {
	return &GenkitCompleter{g: g, modelName: modelName}
}

// Complete generates the answer, forwarding chunks through stream as they
// arrive.
func (c *GenkitCompleter) Complete(ctx context.Context, prompt Prompt, stream StreamFunc) (string, error) {
	opts := []ai.GenerateOption{
		ai.WithSystem(prompt.System),
		ai.WithPrompt(prompt.User),
		// Config must be a map: the provider plugins only convert
		// map[string]any (or their native config struct), and a typed
		// GenerationCommonConfig would drop the zero temperature via
		// omitempty anyway.
		ai.WithConfig(map[string]any{"temperature": 0.0}),
	}
	if c.modelName != "" {
		opts = append(opts, ai.WithModelName(c.modelName))
	}
	if stream != nil {
		opts = append(opts, ai.WithStreaming(func(ctx context.Context, chunk *ai.ModelResponseChunk) error {
			return stream(ctx, chunk.Text())
		}))
	}

	resp, err := genkit.Generate(ctx, c.g, opts...)
	if err != nil {
		return "", fmt.Errorf("generating completion: %w", err)
	}
	return resp.Text(), nil
}
