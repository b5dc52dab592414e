package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/goleak"

	"github.com/paperspeak/paperspeak/internal/file"
	"github.com/paperspeak/paperspeak/internal/log"
	"github.com/paperspeak/paperspeak/internal/message"
	"github.com/paperspeak/paperspeak/internal/vectorindex"
)

type mockFiles struct {
	file *file.File
	err  error
}

func (m *mockFiles) ByIDForUser(_ context.Context, _ uuid.UUID, _ string) (*file.File, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.file, nil
}

type appendCall struct {
	text          string
	isUserMessage bool
}

type mockMessages struct {
	mu        sync.Mutex
	appends   []appendCall
	appendErr error

	recent      []message.Message
	recentLimit int
}

func (m *mockMessages) Append(_ context.Context, fileID uuid.UUID, userID, text string, isUserMessage bool) (*message.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.appendErr != nil {
		return nil, m.appendErr
	}
	m.appends = append(m.appends, appendCall{text: text, isUserMessage: isUserMessage})
	return &message.Message{
		ID:            uuid.New(),
		Text:          text,
		IsUserMessage: isUserMessage,
		FileID:        fileID,
		UserID:        userID,
		CreatedAt:     time.Now(),
	}, nil
}

func (m *mockMessages) Recent(_ context.Context, _ uuid.UUID, n int) ([]message.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recentLimit = n
	return m.recent, nil
}

func (m *mockMessages) appendCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.appends)
}

type mockSearchIndex struct {
	results   []vectorindex.Result
	err       error
	lastQuery string
}

func (m *mockSearchIndex) Search(_ context.Context, _ uuid.UUID, query string, _ ...vectorindex.SearchOption) ([]vectorindex.Result, error) {
	m.lastQuery = query
	if m.err != nil {
		return nil, m.err
	}
	return m.results, nil
}

// mockCompleter streams fixed chunks and records the prompt it was given.
type mockCompleter struct {
	chunks []string
	err    error

	prompt Prompt
	// onComplete runs at completion time, before returning. Lets tests
	// observe state mid-turn.
	onComplete func()
}

func (m *mockCompleter) Complete(ctx context.Context, prompt Prompt, stream StreamFunc) (string, error) {
	m.prompt = prompt
	if m.onComplete != nil {
		m.onComplete()
	}
	if m.err != nil {
		return "", m.err
	}
	var full strings.Builder
	for _, chunk := range m.chunks {
		if stream != nil {
			if err := stream(ctx, chunk); err != nil {
				return "", err
			}
		}
		full.WriteString(chunk)
	}
	return full.String(), nil
}

func newTestService(files *mockFiles, messages *mockMessages, index *mockSearchIndex, completer *mockCompleter) *Service {
	return NewService(Config{
		Files:     files,
		Messages:  messages,
		Index:     index,
		Completer: completer,
		Logger:    log.NewNop(),
	})
}

func ownedFile(id uuid.UUID) *file.File {
	return &file.File{ID: id, Status: file.StatusSuccess, UserID: "user-1"}
}

func TestConverse_Success(t *testing.T) {
	fileID := uuid.New()
	files := &mockFiles{file: ownedFile(fileID)}
	messages := &mockMessages{}
	index := &mockSearchIndex{results: []vectorindex.Result{
		{Key: "k1", Page: 1, Content: "revenue was $10M"},
	}}
	completer := &mockCompleter{chunks: []string{"The revenue ", "was $10M."}}

	var streamed []string
	reply, err := newTestService(files, messages, index, completer).Converse(
		context.Background(), fileID, "user-1", "what was the revenue?",
		func(_ context.Context, chunk string) error {
			streamed = append(streamed, chunk)
			return nil
		},
	)
	if err != nil {
		t.Fatalf("Converse failed: %v", err)
	}

	if reply.Text != "The revenue was $10M." {
		t.Errorf("Text = %q", reply.Text)
	}
	if len(streamed) != 2 {
		t.Errorf("forwarded %d chunks, want 2", len(streamed))
	}
	if got := strings.Join(streamed, ""); got != reply.Text {
		t.Errorf("streamed %q != accumulated %q", got, reply.Text)
	}

	if len(messages.appends) != 2 {
		t.Fatalf("persisted %d messages, want 2", len(messages.appends))
	}
	if !messages.appends[0].isUserMessage || messages.appends[0].text != "what was the revenue?" {
		t.Errorf("first append = %+v, want user question", messages.appends[0])
	}
	if messages.appends[1].isUserMessage || messages.appends[1].text != reply.Text {
		t.Errorf("second append = %+v, want assistant answer", messages.appends[1])
	}

	if !strings.Contains(completer.prompt.User, "revenue was $10M") {
		t.Error("retrieved context missing from prompt")
	}
	if index.lastQuery != "what was the revenue?" {
		t.Errorf("search query = %q", index.lastQuery)
	}
	if messages.recentLimit != defaultHistoryLimit {
		t.Errorf("history limit = %d, want %d", messages.recentLimit, defaultHistoryLimit)
	}
}

func TestConverse_UnknownFile(t *testing.T) {
	files := &mockFiles{err: file.ErrNotFound}
	messages := &mockMessages{}
	completer := &mockCompleter{}

	_, err := newTestService(files, messages, &mockSearchIndex{}, completer).Converse(
		context.Background(), uuid.New(), "user-1", "hi", nil,
	)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
	if messages.appendCount() != 0 {
		t.Error("messages persisted for unknown file")
	}
}

func TestConverse_UserMessagePersistedBeforeCompletion(t *testing.T) {
	fileID := uuid.New()
	files := &mockFiles{file: ownedFile(fileID)}
	messages := &mockMessages{}

	completer := &mockCompleter{chunks: []string{"answer"}}
	completer.onComplete = func() {
		if messages.appendCount() != 1 {
			t.Errorf("at completion time %d messages persisted, want the user turn", messages.appendCount())
		}
	}

	_, err := newTestService(files, messages, &mockSearchIndex{}, completer).Converse(
		context.Background(), fileID, "user-1", "hi", nil,
	)
	if err != nil {
		t.Fatalf("Converse failed: %v", err)
	}
}

func TestConverse_CompletionFailure(t *testing.T) {
	fileID := uuid.New()
	files := &mockFiles{file: ownedFile(fileID)}
	messages := &mockMessages{}
	cause := errors.New("model unavailable")
	completer := &mockCompleter{err: cause}

	_, err := newTestService(files, messages, &mockSearchIndex{}, completer).Converse(
		context.Background(), fileID, "user-1", "hi", nil,
	)
	if !errors.Is(err, ErrCompletion) {
		t.Fatalf("error = %v, want ErrCompletion", err)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("error = %v, want wrapped cause", err)
	}

	// The question survives the failed stream, nothing else does.
	if len(messages.appends) != 1 || !messages.appends[0].isUserMessage {
		t.Errorf("appends = %+v, want exactly the user turn", messages.appends)
	}
}

func TestConverse_EmptySearchResults(t *testing.T) {
	fileID := uuid.New()
	files := &mockFiles{file: ownedFile(fileID)}
	messages := &mockMessages{}
	completer := &mockCompleter{chunks: []string{"I don't know."}}

	reply, err := newTestService(files, messages, &mockSearchIndex{}, completer).Converse(
		context.Background(), fileID, "user-1", "what?", nil,
	)
	if err != nil {
		t.Fatalf("Converse with empty namespace failed: %v", err)
	}
	if reply.Text != "I don't know." {
		t.Errorf("Text = %q", reply.Text)
	}
}

func TestConverse_HistoryFlowsIntoPrompt(t *testing.T) {
	fileID := uuid.New()
	files := &mockFiles{file: ownedFile(fileID)}
	messages := &mockMessages{recent: []message.Message{
		{Text: "earlier question", IsUserMessage: true},
		{Text: "earlier answer", IsUserMessage: false},
	}}
	completer := &mockCompleter{chunks: []string{"ok"}}

	_, err := newTestService(files, messages, &mockSearchIndex{}, completer).Converse(
		context.Background(), fileID, "user-1", "follow-up", nil,
	)
	if err != nil {
		t.Fatalf("Converse failed: %v", err)
	}

	if !strings.Contains(completer.prompt.User, "User: earlier question") {
		t.Error("previous user turn missing from prompt")
	}
	if !strings.Contains(completer.prompt.User, "Assistant: earlier answer") {
		t.Error("previous assistant turn missing from prompt")
	}
}

func TestKeyedMutex_SerializesSameKey(t *testing.T) {
	defer goleak.VerifyNone(t)

	km := newKeyedMutex()
	var counter int

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := km.lock("file-a")
			defer unlock()
			counter++
		}()
	}
	wg.Wait()

	if counter != 50 {
		t.Errorf("counter = %d, want 50", counter)
	}
	km.mu.Lock()
	if len(km.locks) != 0 {
		t.Errorf("%d lock entries leaked", len(km.locks))
	}
	km.mu.Unlock()
}
