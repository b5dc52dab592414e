// Package chat orchestrates one conversational turn over an ingested
// document: persist the question, retrieve similar chunks, assemble the
// prompt and stream the answer back while recording it.
//
// Durability is asymmetric on purpose. The user's message is written
// before any retrieval or model call, so it survives a failed stream. The
// assistant's message is written only after the stream completes, so a
// partial answer is never persisted.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/paperspeak/paperspeak/internal/file"
	"github.com/paperspeak/paperspeak/internal/message"
	"github.com/paperspeak/paperspeak/internal/vectorindex"
)

// defaultHistoryLimit is how many previous turns feed prompt assembly.
const defaultHistoryLimit = 6

// FileStore is the slice of the file store the chat service needs.
type FileStore interface {
	ByIDForUser(ctx context.Context, id uuid.UUID, userID string) (*file.File, error)
}

// MessageStore persists and reads back conversation turns.
type MessageStore interface {
	Append(ctx context.Context, fileID uuid.UUID, userID, text string, isUserMessage bool) (*message.Message, error)
	Recent(ctx context.Context, fileID uuid.UUID, n int) ([]message.Message, error)
}

// Index is the slice of the vector index the chat service needs.
type Index interface {
	Search(ctx context.Context, namespace uuid.UUID, query string, opts ...vectorindex.SearchOption) ([]vectorindex.Result, error)
}

// Reply is the outcome of a completed turn.
type Reply struct {
	UserMessage      *message.Message
	AssistantMessage *message.Message
	Text             string
}

// Config carries the chat service's dependencies.
type Config struct {
	Files     FileStore
	Messages  MessageStore
	Index     Index
	Completer Completer
	Logger    *slog.Logger

	// TopK bounds similarity search. Zero uses the index default.
	TopK int

	// HistoryLimit bounds how many previous turns feed the prompt.
	// Zero means 6.
	HistoryLimit int

	// PromptBudget caps the assembled user prompt in bytes. Zero means
	// DefaultPromptBudget.
	PromptBudget int

	// SerializeTurns makes concurrent turns on the same file run one at
	// a time. Off by default: interleaved histories are tolerated, lost
	// writes are not possible since messages are append-only.
	SerializeTurns bool
}

// Service runs conversational turns. Safe for concurrent use.
type Service struct {
	files        FileStore
	messages     MessageStore
	index        Index
	completer    Completer
	logger       *slog.Logger
	topK         int
	historyLimit int
	promptBudget int

	turnLocks *keyedMutex
}

// NewService creates the chat service, applying defaults for optional
// configuration.
func NewService(cfg Config) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	historyLimit := cfg.HistoryLimit
	if historyLimit <= 0 {
		historyLimit = defaultHistoryLimit
	}

	s := &Service{
		files:        cfg.Files,
		messages:     cfg.Messages,
		index:        cfg.Index,
		completer:    cfg.Completer,
		logger:       logger,
		topK:         cfg.TopK,
		historyLimit: historyLimit,
		promptBudget: cfg.PromptBudget,
	}
	if cfg.SerializeTurns {
		s.turnLocks = newKeyedMutex()
	}
	return s
}

// Converse runs one turn: ownership check, persist the question, retrieve,
// complete and persist the answer. stream receives chunks as they arrive
// and may be nil.
func (s *Service) Converse(ctx context.Context, fileID uuid.UUID, userID, question string, stream StreamFunc) (*Reply, error) {
	f, err := s.files.ByIDForUser(ctx, fileID, userID)
	if err != nil {
		if errors.Is(err, file.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("loading file %s: %w", fileID, err)
	}

	if s.turnLocks != nil {
		unlock := s.turnLocks.lock(fileID.String())
		defer unlock()
	}

	userMsg, err := s.messages.Append(ctx, f.ID, userID, question, true)
	if err != nil {
		return nil, fmt.Errorf("persisting user message: %w", err)
	}

	prompt, err := s.assemble(ctx, f.ID, question)
	if err != nil {
		return nil, err
	}

	text, err := s.completer.Complete(ctx, prompt, stream)
	if err != nil {
		// The user's turn stays. The caller may retry the completion
		// without re-sending the question.
		return nil, fmt.Errorf("%w: %w", ErrCompletion, err)
	}

	assistantMsg, err := s.messages.Append(ctx, f.ID, userID, text, false)
	if err != nil {
		return nil, fmt.Errorf("persisting assistant message: %w", err)
	}

	s.logger.Info("conversation turn completed",
		"file_id", fileID,
		"user_id", userID,
		"answer_bytes", len(text),
	)
	return &Reply{UserMessage: userMsg, AssistantMessage: assistantMsg, Text: text}, nil
}

// assemble gathers retrieval context and history into one prompt.
func (s *Service) assemble(ctx context.Context, fileID uuid.UUID, question string) (Prompt, error) {
	var opts []vectorindex.SearchOption
	if s.topK > 0 {
		opts = append(opts, vectorindex.WithTopK(s.topK))
	}
	results, err := s.index.Search(ctx, fileID, question, opts...)
	if err != nil {
		return Prompt{}, fmt.Errorf("searching context: %w", err)
	}

	history, err := s.messages.Recent(ctx, fileID, s.historyLimit)
	if err != nil {
		return Prompt{}, fmt.Errorf("loading history: %w", err)
	}

	contexts := make([]string, 0, len(results))
	for _, r := range results {
		contexts = append(contexts, r.Content)
	}

	return BuildPrompt(PromptInput{
		Question: question,
		History:  history,
		Context:  contexts,
		Budget:   s.promptBudget,
	}), nil
}

// keyedMutex serializes goroutines per string key. Entries are reference
// counted and removed when the last holder unlocks.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedLock
}

type keyedLock struct {
	mu   sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*keyedLock)}
}

func (k *keyedMutex) lock(key string) (unlock func()) {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &keyedLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
