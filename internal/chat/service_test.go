package chat

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devcoach-ai/devcoach/internal/guardrail"
	"github.com/devcoach-ai/devcoach/internal/listener"
	"github.com/devcoach-ai/devcoach/internal/llm"
	"github.com/devcoach-ai/devcoach/internal/memory"
	"github.com/devcoach-ai/devcoach/internal/structured"
	"github.com/devcoach-ai/devcoach/internal/vectorstore"
)

type fakeModel struct {
	mu             sync.Mutex
	invokeContent  string
	invokeErr      error
	streamChunks   []string
	streamErr      error
	toolCompletion llm.Completion
	toolErr        error
	invocations    [][]llm.Message
}

func (m *fakeModel) Name() string { return "fake-model" }

func (m *fakeModel) record(messages []llm.Message) {
	m.mu.Lock()
	m.invocations = append(m.invocations, messages)
	m.mu.Unlock()
}

func (m *fakeModel) Invoke(ctx context.Context, messages []llm.Message) (string, error) {
	m.record(messages)
	return m.invokeContent, m.invokeErr
}

func (m *fakeModel) Stream(ctx context.Context, messages []llm.Message) (<-chan llm.StreamChunk, error) {
	m.record(messages)
	ch := make(chan llm.StreamChunk)
	go func() {
		defer close(ch)
		for _, c := range m.streamChunks {
			ch <- llm.StreamChunk{Content: c}
		}
		if m.streamErr != nil {
			ch <- llm.StreamChunk{Err: m.streamErr}
		}
	}()
	return ch, nil
}

func (m *fakeModel) InvokeWithTools(ctx context.Context, messages []llm.Message, defs []llm.ToolDefinition) (*llm.Completion, error) {
	m.record(messages)
	if m.toolErr != nil {
		return nil, m.toolErr
	}
	completion := m.toolCompletion
	return &completion, nil
}

type fakeRetriever struct {
	docs []vectorstore.Document
}

func (f *fakeRetriever) Retrieve(ctx context.Context, query string) []vectorstore.Document {
	return f.docs
}

type fakeTools struct {
	result string
	err    error
	defs   []llm.ToolDefinition
	calls  []string
}

func (f *fakeTools) Definitions() []llm.ToolDefinition { return f.defs }

func (f *fakeTools) Execute(ctx context.Context, name string, args map[string]any) (string, error) {
	f.calls = append(f.calls, name)
	return f.result, f.err
}

type eventCounter struct {
	mu        sync.Mutex
	requests  int
	responses int
	errs      int
}

func (c *eventCounter) OnRequest(listener.RequestContext) {
	c.mu.Lock()
	c.requests++
	c.mu.Unlock()
}

func (c *eventCounter) OnResponse(listener.ResponseContext) {
	c.mu.Lock()
	c.responses++
	c.mu.Unlock()
}

func (c *eventCounter) OnError(listener.ErrorContext) {
	c.mu.Lock()
	c.errs++
	c.mu.Unlock()
}

func (c *eventCounter) counts() (int, int, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.requests, c.responses, c.errs
}

type svcFixture struct {
	svc    *Service
	model  *fakeModel
	mem    memory.Store
	tools  *fakeTools
	events *eventCounter
	ret    *fakeRetriever
}

func newFixture(t *testing.T) *svcFixture {
	t.Helper()
	model := &fakeModel{invokeContent: "answer"}
	mem := memory.NewInMemoryStore(10)
	ret := &fakeRetriever{}
	tls := &fakeTools{}
	events := &eventCounter{}
	notifier := listener.NewNotifier()
	notifier.AddListener(events)

	svc := NewService(Deps{
		Model:        model,
		Guard:        guardrail.New(nil),
		Memory:       mem,
		Retriever:    ret,
		Tools:        tls,
		Notifier:     notifier,
		SystemPrompt: "You are a coding coach.",
	})
	return &svcFixture{svc: svc, model: model, mem: mem, tools: tls, events: events, ret: ret}
}

func TestChatReturnsModelAnswer(t *testing.T) {
	f := newFixture(t)
	content, err := f.svc.Chat(context.Background(), "what is a goroutine?")
	require.NoError(t, err)
	assert.Equal(t, "answer", content)

	require.Len(t, f.model.invocations, 1)
	msgs := f.model.invocations[0]
	require.Len(t, msgs, 2)
	assert.Equal(t, llm.RoleSystem, msgs[0].Role)
	assert.Equal(t, "You are a coding coach.", msgs[0].Content)
	assert.Equal(t, llm.RoleUser, msgs[1].Role)

	reqs, resps, errs := f.events.counts()
	assert.Equal(t, 1, reqs)
	assert.Equal(t, 1, resps)
	assert.Zero(t, errs)
}

func TestChatGuardrailShortCircuits(t *testing.T) {
	f := newFixture(t)
	content, err := f.svc.Chat(context.Background(), "how to kill a process")
	require.NoError(t, err)
	assert.Equal(t, "Input validation failed: Sensitive word detected: kill", content)

	assert.Empty(t, f.model.invocations)
	reqs, resps, errs := f.events.counts()
	assert.Zero(t, reqs+resps+errs)
}

func TestChatModelErrorSurfaced(t *testing.T) {
	f := newFixture(t)
	f.model.invokeErr = errors.New("upstream 500")

	_, err := f.svc.Chat(context.Background(), "hello")
	require.Error(t, err)

	reqs, resps, errs := f.events.counts()
	assert.Equal(t, 1, reqs)
	assert.Zero(t, resps)
	assert.Equal(t, 1, errs)
}

func TestChatStreamWritesMemoryAfterSuccess(t *testing.T) {
	f := newFixture(t)
	f.model.streamChunks = []string{"Hel", "lo ", "there"}

	var got []string
	err := f.svc.ChatStream(context.Background(), "conv-1", "hi", func(s string) error {
		got = append(got, s)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Hel", "lo ", "there"}, got)

	turns, err := f.mem.History(context.Background(), "conv-1")
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, memory.Turn{Role: llm.RoleUser, Content: "hi"}, turns[0])
	assert.Equal(t, memory.Turn{Role: llm.RoleAssistant, Content: "Hello there"}, turns[1])

	reqs, resps, errs := f.events.counts()
	assert.Equal(t, 1, reqs)
	assert.Equal(t, 1, resps)
	assert.Zero(t, errs)
}

func TestChatStreamErrorWritesNothing(t *testing.T) {
	f := newFixture(t)
	f.model.streamChunks = []string{"partial"}
	f.model.streamErr = errors.New("connection reset")

	var got []string
	err := f.svc.ChatStream(context.Background(), "conv-1", "hi", func(s string) error {
		got = append(got, s)
		return nil
	})
	require.Error(t, err)
	assert.Equal(t, []string{"partial"}, got)

	turns, err := f.mem.History(context.Background(), "conv-1")
	require.NoError(t, err)
	assert.Empty(t, turns)

	reqs, resps, errs := f.events.counts()
	assert.Equal(t, 1, reqs)
	assert.Zero(t, resps)
	assert.Equal(t, 1, errs)
}

func TestChatStreamGuardrailEmitsRejectionOnly(t *testing.T) {
	f := newFixture(t)
	var got []string
	err := f.svc.ChatStream(context.Background(), "conv-1", "evil plan", func(s string) error {
		got = append(got, s)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Input validation failed: Sensitive word detected: evil", got[0])

	assert.Empty(t, f.model.invocations)
	turns, _ := f.mem.History(context.Background(), "conv-1")
	assert.Empty(t, turns)
	reqs, resps, errs := f.events.counts()
	assert.Zero(t, reqs+resps+errs)
}

func TestChatStreamAssemblesPrompt(t *testing.T) {
	f := newFixture(t)
	f.model.streamChunks = []string{"ok"}
	f.ret.docs = []vectorstore.Document{{Content: "notes.md\nchannels are typed conduits"}}
	require.NoError(t, f.mem.Append(context.Background(), "conv-1",
		memory.Turn{Role: llm.RoleUser, Content: "earlier question"},
		memory.Turn{Role: llm.RoleAssistant, Content: "earlier answer"},
	))

	err := f.svc.ChatStream(context.Background(), "conv-1", "and channels?", func(string) error { return nil })
	require.NoError(t, err)

	require.Len(t, f.model.invocations, 1)
	msgs := f.model.invocations[0]
	require.Len(t, msgs, 4)
	assert.Equal(t, llm.RoleSystem, msgs[0].Role)
	assert.Contains(t, msgs[0].Content, "Relevant reference material:")
	assert.Contains(t, msgs[0].Content, "channels are typed conduits")
	assert.Equal(t, "earlier question", msgs[1].Content)
	assert.Equal(t, "earlier answer", msgs[2].Content)
	assert.Equal(t, llm.Message{Role: llm.RoleUser, Content: "and channels?"}, msgs[3])
}

func TestChatStreamEmitFailureStopsAndSkipsMemory(t *testing.T) {
	f := newFixture(t)
	f.model.streamChunks = []string{"a", "b"}

	err := f.svc.ChatStream(context.Background(), "conv-1", "hi", func(string) error {
		return errors.New("client went away")
	})
	require.Error(t, err)

	turns, _ := f.mem.History(context.Background(), "conv-1")
	assert.Empty(t, turns)
	_, _, errs := f.events.counts()
	assert.Equal(t, 1, errs)
}

func TestChatWithRAGReportsSources(t *testing.T) {
	f := newFixture(t)
	f.ret.docs = []vectorstore.Document{
		{Content: "chunk a", Metadata: map[string]string{"source": "docs/notes.md"}},
		{Content: "chunk b", Metadata: map[string]string{"file_name": "guide.txt"}},
		{Content: "chunk c"},
	}

	resp, err := f.svc.ChatWithRAG(context.Background(), "question")
	require.NoError(t, err)
	assert.Equal(t, "answer", resp.Content)
	assert.Equal(t, []string{"docs/notes.md", "guide.txt", "unknown"}, resp.Sources)

	msgs := f.model.invocations[0]
	assert.Contains(t, msgs[0].Content, "chunk a\n---\nchunk b\n---\nchunk c")
}

func TestChatWithRAGEmptyRetrievalOmitsContext(t *testing.T) {
	f := newFixture(t)
	resp, err := f.svc.ChatWithRAG(context.Background(), "question")
	require.NoError(t, err)
	assert.Empty(t, resp.Sources)
	assert.Equal(t, "You are a coding coach.", f.model.invocations[0][0].Content)
}

func TestChatWithToolsExecutesAndFeedsBack(t *testing.T) {
	f := newFixture(t)
	f.model.toolCompletion = llm.Completion{
		ToolCalls: []llm.ToolCall{{
			ID:   "call-1",
			Name: "web_search",
			Args: map[string]any{"query": "go 1.24"},
		}},
	}
	f.tools.result = "Go 1.24 is out"
	f.model.invokeContent = "final answer using search"

	resp, err := f.svc.ChatWithTools(context.Background(), "what is new in go?")
	require.NoError(t, err)
	assert.Equal(t, "final answer using search", resp.Content)
	require.Len(t, resp.ToolCalls, 1)
	assert.Equal(t, "web_search", resp.ToolCalls[0].Name)
	assert.Equal(t, "Go 1.24 is out", resp.ToolCalls[0].Result)
	assert.Equal(t, []string{"web_search"}, f.tools.calls)

	// Two model invocations: the proposal and the final answer.
	require.Len(t, f.model.invocations, 2)
	final := f.model.invocations[1]
	require.Len(t, final, 4)
	assert.Equal(t, llm.RoleAssistant, final[2].Role)
	require.Len(t, final[2].ToolCalls, 1)
	assert.Equal(t, llm.RoleTool, final[3].Role)
	assert.Equal(t, "call-1", final[3].ToolCallID)
	assert.Equal(t, "Go 1.24 is out", final[3].Content)

	reqs, resps, errs := f.events.counts()
	assert.Equal(t, 2, reqs)
	assert.Equal(t, 2, resps)
	assert.Zero(t, errs)
}

func TestChatWithToolsNoCallsReturnsContent(t *testing.T) {
	f := newFixture(t)
	f.model.toolCompletion = llm.Completion{Content: "no tools needed"}

	resp, err := f.svc.ChatWithTools(context.Background(), "2+2?")
	require.NoError(t, err)
	assert.Equal(t, "no tools needed", resp.Content)
	assert.Empty(t, resp.ToolCalls)
	require.Len(t, f.model.invocations, 1)
}

func TestChatWithToolsExecutionFailureDegrades(t *testing.T) {
	f := newFixture(t)
	f.model.toolCompletion = llm.Completion{
		ToolCalls: []llm.ToolCall{{ID: "call-1", Name: "web_search", Args: map[string]any{}}},
	}
	f.tools.err = errors.New("schema violation")
	f.model.invokeContent = "answered without the tool"

	resp, err := f.svc.ChatWithTools(context.Background(), "question")
	require.NoError(t, err)
	assert.Equal(t, "answered without the tool", resp.Content)
	require.Len(t, resp.ToolCalls, 1)
	assert.Contains(t, resp.ToolCalls[0].Result, "Error:")
}

func TestChatForReportParsesModelOutput(t *testing.T) {
	f := newFixture(t)
	f.model.invokeContent = `{"name": "Dana", "suggestionList": ["study slices"]}`

	report := f.svc.ChatForReport(context.Background(), "report please")
	assert.Equal(t, "Dana", report.Name)
	assert.Equal(t, []string{"study slices"}, report.SuggestionList)

	msgs := f.model.invocations[0]
	assert.Contains(t, msgs[0].Content, "suggestionList")
}

func TestChatForReportModelErrorFallsBack(t *testing.T) {
	f := newFixture(t)
	f.model.invokeErr = errors.New("upstream down")

	report := f.svc.ChatForReport(context.Background(), "report please")
	assert.Equal(t, structured.FallbackReport(), report)
	_, _, errs := f.events.counts()
	assert.Equal(t, 1, errs)
}

func TestChatForReportGuardrail(t *testing.T) {
	f := newFixture(t)
	report := f.svc.ChatForReport(context.Background(), "kill it")
	assert.Equal(t, "Validation Failed", report.Name)
	require.Len(t, report.SuggestionList, 1)
	assert.Contains(t, report.SuggestionList[0], "Sensitive word detected")
	assert.Empty(t, f.model.invocations)
}

func TestClearAndListConversations(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.mem.Append(ctx, "conv-1", memory.Turn{Role: llm.RoleUser, Content: "x"}))
	require.NoError(t, f.mem.Append(ctx, "conv-2", memory.Turn{Role: llm.RoleUser, Content: "y"}))

	ids, err := f.svc.ListConversations(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"conv-1", "conv-2"}, ids)

	require.NoError(t, f.svc.ClearConversation(ctx, "conv-1"))
	turns, err := f.mem.History(ctx, "conv-1")
	require.NoError(t, err)
	assert.Empty(t, turns)
}

func TestChatStreamMemoryFailureDegrades(t *testing.T) {
	f := newFixture(t)
	f.model.streamChunks = []string{"ok"}
	f.svc.memory = failingMemory{}

	err := f.svc.ChatStream(context.Background(), "conv-1", "hi", func(string) error { return nil })
	require.NoError(t, err)
	reqs, resps, _ := f.events.counts()
	assert.Equal(t, 1, reqs)
	assert.Equal(t, 1, resps)
}

type failingMemory struct{}

func (failingMemory) History(context.Context, string) ([]memory.Turn, error) {
	return nil, errors.New("redis down")
}

func (failingMemory) Append(context.Context, string, ...memory.Turn) error {
	return errors.New("redis down")
}

func (failingMemory) Clear(context.Context, string) error { return errors.New("redis down") }

func (failingMemory) ListIDs(context.Context) ([]string, error) {
	return nil, errors.New("redis down")
}
