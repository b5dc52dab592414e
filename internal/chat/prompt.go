package chat

import (
	"strings"

	"github.com/paperspeak/paperspeak/internal/message"
)

// DefaultPromptBudget caps the assembled user prompt in bytes. Roughly a
// 4k-token window with room left for the completion.
const DefaultPromptBudget = 12000

// systemPrompt mirrors the instruction the assistant was tuned against,
// including its original spelling.
const systemPrompt = "Use the following pieces of context (or previous conversaton if needed) to answer the users question in markdown format."

const sectionDivider = "\n\n----------------\n\n"

// Prompt is an assembled model request: one system instruction and one
// user message carrying history, retrieved context and the raw question.
type Prompt struct {
	System string
	User   string
}

// PromptInput is everything prompt assembly depends on. Assembly is a pure
// function of this struct.
type PromptInput struct {
	Question string
	History  []message.Message
	Context  []string

	// Budget caps the user prompt in bytes. Zero means DefaultPromptBudget.
	Budget int
}

// BuildPrompt assembles the model request. When the result exceeds the
// budget, whole history turns are dropped oldest first, then context
// chunks lowest-ranked first. The question itself is never trimmed.
func BuildPrompt(in PromptInput) Prompt {
	budget := in.Budget
	if budget <= 0 {
		budget = DefaultPromptBudget
	}

	history := in.History
	contexts := in.Context
	for {
		user := renderUser(in.Question, history, contexts)
		if len(user) <= budget {
			return Prompt{System: systemPrompt, User: user}
		}
		switch {
		case len(history) > 0:
			history = history[1:]
		case len(contexts) > 0:
			contexts = contexts[:len(contexts)-1]
		default:
			// Nothing left to drop; an oversized question goes through
			// as-is and the model's own limits apply.
			return Prompt{System: systemPrompt, User: user}
		}
	}
}

func renderUser(question string, history []message.Message, contexts []string) string {
	var b strings.Builder

	b.WriteString(systemPrompt)
	b.WriteString("\nIf you don't know the answer, just say that you don't know, don't try to make up an answer.")
	b.WriteString(sectionDivider)

	b.WriteString("PREVIOUS CONVERSATION:\n")
	for _, m := range history {
		if m.IsUserMessage {
			b.WriteString("User: ")
		} else {
			b.WriteString("Assistant: ")
		}
		b.WriteString(m.Text)
		b.WriteString("\n")
	}
	b.WriteString(sectionDivider)

	b.WriteString("CONTEXT:\n")
	b.WriteString(strings.Join(contexts, "\n\n"))
	b.WriteString("\n\nUSER INPUT: ")
	b.WriteString(question)

	return b.String()
}
