package chat

import (
	"context"
	"strings"
	"testing"

	"github.com/firebase/genkit/go/genkit"
	"github.com/google/uuid"

	"github.com/paperspeak/paperspeak/internal/file"
	"github.com/paperspeak/paperspeak/internal/log"
	"github.com/paperspeak/paperspeak/internal/testutil"
	"github.com/paperspeak/paperspeak/internal/vectorindex"
)

func newMockModel(t *testing.T, fallback string) (*genkit.Genkit, *testutil.MockLLM) {
	t.Helper()
	g := genkit.Init(context.Background())
	llm := testutil.NewMockLLM(fallback)
	llm.RegisterModel(g)
	return g, llm
}

func TestGenkitCompleter_Complete(t *testing.T) {
	g, llm := newMockModel(t, "the profit was $2M")
	completer := NewGenkitCompleter(g, "mock/test-model")

	var chunks []string
	got, err := completer.Complete(context.Background(),
		Prompt{System: "answer from the context", User: "what was the profit?"},
		func(_ context.Context, chunk string) error {
			chunks = append(chunks, chunk)
			return nil
		})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got != "the profit was $2M" {
		t.Errorf("response = %q, want %q", got, "the profit was $2M")
	}
	if streamed := strings.Join(chunks, ""); streamed != got {
		t.Errorf("streamed %q, response %q", streamed, got)
	}

	calls := llm.Calls()
	if len(calls) != 1 {
		t.Fatalf("model called %d times, want 1", len(calls))
	}
	if calls[0].UserMessage != "what was the profit?" {
		t.Errorf("user message = %q", calls[0].UserMessage)
	}
	if calls[0].System != "answer from the context" {
		t.Errorf("system message = %q", calls[0].System)
	}
}

// The provider plugins only accept map or provider-native request config;
// a typed struct fails before the request leaves the process. Assert the
// config arrives as a map with the temperature key present.
func TestGenkitCompleter_ConfigReachesModel(t *testing.T) {
	g, llm := newMockModel(t, "ok")
	completer := NewGenkitCompleter(g, "mock/test-model")

	if _, err := completer.Complete(context.Background(), Prompt{User: "hi"}, nil); err != nil {
		t.Fatalf("Complete: %v", err)
	}

	calls := llm.Calls()
	if len(calls) != 1 {
		t.Fatalf("model called %d times, want 1", len(calls))
	}
	cfg, ok := calls[0].Config.(map[string]any)
	if !ok {
		t.Fatalf("request config type = %T, want map[string]any", calls[0].Config)
	}
	temp, ok := cfg["temperature"].(float64)
	if !ok {
		t.Fatalf("temperature missing from config: %v", cfg)
	}
	if temp != 0 {
		t.Errorf("temperature = %v, want 0", temp)
	}
}

// Drives a full chat turn through genkit.Generate with a registered model
// rather than a hand mock of the Completer interface.
func TestConverse_ThroughGenkitModel(t *testing.T) {
	g, llm := newMockModel(t, "I don't know.")
	llm.AddResponse("profit", "Profit was $2M.")

	f := &file.File{ID: uuid.New(), UserID: "user-1"}
	msgs := &mockMessages{}
	svc := NewService(Config{
		Files:    &mockFiles{file: f},
		Messages: msgs,
		Index: &mockSearchIndex{results: []vectorindex.Result{
			{Key: f.ID.String() + "/page-2", Page: 2, Content: "Profit was $2M"},
		}},
		Completer: NewGenkitCompleter(g, "mock/test-model"),
		Logger:    log.NewNop(),
	})

	var streamed strings.Builder
	reply, err := svc.Converse(context.Background(), f.ID, "user-1", "What was the profit?",
		func(_ context.Context, chunk string) error {
			streamed.WriteString(chunk)
			return nil
		})
	if err != nil {
		t.Fatalf("Converse: %v", err)
	}
	if reply.Text != "Profit was $2M." {
		t.Errorf("reply = %q, want %q", reply.Text, "Profit was $2M.")
	}
	if streamed.String() != reply.Text {
		t.Errorf("streamed %q, reply %q", streamed.String(), reply.Text)
	}
	if got := msgs.appendCount(); got != 2 {
		t.Errorf("appended %d messages, want 2", got)
	}

	calls := llm.Calls()
	if len(calls) != 1 {
		t.Fatalf("model called %d times, want 1", len(calls))
	}
	if !strings.Contains(calls[0].UserMessage, "Profit was $2M") {
		t.Error("retrieved context missing from assembled prompt")
	}
	if _, ok := calls[0].Config.(map[string]any); !ok {
		t.Errorf("request config type = %T, want map[string]any", calls[0].Config)
	}
}
