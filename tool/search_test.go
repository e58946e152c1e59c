package tool

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/hupe1980/deepresearch/core"
	"github.com/hupe1980/deepresearch/search"
)

type mockProvider struct {
	mock.Mock
}

func (m *mockProvider) Search(ctx context.Context, query string, count int) ([]search.Result, error) {
	args := m.Called(ctx, query, count)
	if res := args.Get(0); res != nil {
		return res.([]search.Result), args.Error(1)
	}
	return nil, args.Error(1)
}

func newRunningManager(topic string) *core.StateManager {
	m := core.NewStateManager()
	m.Begin(topic)
	return m
}

func TestSearchTool_Success(t *testing.T) {
	provider := new(mockProvider)
	provider.On("Search", mock.Anything, "go generics", 5).Return([]search.Result{
		{Title: "A", Link: "https://a.com", Snippet: "about a"},
		{Title: "B", Link: "https://b.com", Snippet: "about b"},
	}, nil)

	state := newRunningManager("t")
	st := NewSearchTool(provider, state)

	obs := st.Execute(context.Background(), "go generics")

	assert.Contains(t, obs, "1. A")
	assert.Contains(t, obs, "https://a.com")
	assert.Contains(t, obs, "2. B")

	s := state.State()
	assert.Len(t, s.Sources, 2)
	assert.Equal(t, "https://a.com", s.Sources[0].Link)
	provider.AssertExpectations(t)
}

func TestSearchTool_OverlappingResultsDedup(t *testing.T) {
	provider := new(mockProvider)
	provider.On("Search", mock.Anything, "q1", 5).Return([]search.Result{
		{Title: "A", Link: "https://a.com"},
		{Title: "B", Link: "https://b.com"},
	}, nil).Once()
	provider.On("Search", mock.Anything, "q2", 5).Return([]search.Result{
		{Title: "B", Link: "https://b.com/"},
		{Title: "C", Link: "https://c.com"},
	}, nil).Once()

	state := newRunningManager("t")
	st := NewSearchTool(provider, state)

	st.Execute(context.Background(), "q1")
	st.Execute(context.Background(), "q2")

	s := state.State()
	assert.Len(t, s.Sources, 3)
	assert.Equal(t, "https://a.com", s.Sources[0].Link)
	assert.Equal(t, "https://b.com", s.Sources[1].Link)
	assert.Equal(t, "https://c.com", s.Sources[2].Link)
}

func TestSearchTool_EmptyResults(t *testing.T) {
	provider := new(mockProvider)
	provider.On("Search", mock.Anything, mock.Anything, mock.Anything).Return([]search.Result{}, nil)

	st := NewSearchTool(provider, newRunningManager("t"))
	obs := st.Execute(context.Background(), "obscure query")

	assert.Contains(t, obs, "No results found")
}

func TestSearchTool_FailureIsObservationNotError(t *testing.T) {
	provider := new(mockProvider)
	provider.On("Search", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("connection refused"))

	state := newRunningManager("t")
	st := NewSearchTool(provider, state)

	obs := st.Execute(context.Background(), "q")

	assert.Contains(t, obs, "failed")
	assert.Contains(t, obs, "connection refused")

	s := state.State()
	if assert.NotEmpty(t, s.Logs) {
		assert.Equal(t, core.LogError, s.Logs[len(s.Logs)-1].Level)
	}
}

func TestSearchTool_ResultCountOption(t *testing.T) {
	provider := new(mockProvider)
	provider.On("Search", mock.Anything, "q", 3).Return([]search.Result{}, nil)

	st := NewSearchTool(provider, newRunningManager("t"), func(o *SearchToolOptions) {
		o.ResultCount = 3
	})
	st.Execute(context.Background(), "q")

	provider.AssertExpectations(t)
}
