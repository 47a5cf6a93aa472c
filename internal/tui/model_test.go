package tui

import (
	"context"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"videorag/internal/domain"
)

type fakeSession struct {
	ingested []string
	asked    []string
}

func (f *fakeSession) Ingest(_ context.Context, ref string) (domain.IngestResult, error) {
	f.ingested = append(f.ingested, ref)
	if ref == "bad" {
		return domain.IngestResult{}, domain.ErrInvalidSource
	}
	return domain.IngestResult{VideoID: ref, Chunks: 4, Summary: "A talk about bees."}, nil
}

func (f *fakeSession) Ask(_ context.Context, q string) string {
	f.asked = append(f.asked, q)
	return "Bees make honey."
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	mm, ok := next.(Model)
	require.True(t, ok)
	return mm, cmd
}

func TestIngestThenAsk(t *testing.T) {
	fs := &fakeSession{}
	m := New(context.Background(), fs, "dQw4w9WgXcQ")
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 80, Height: 30})

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.True(t, m.busy)

	m, _ = update(t, m, cmd())
	assert.False(t, m.busy)
	assert.Equal(t, []string{"dQw4w9WgXcQ"}, fs.ingested)
	assert.Equal(t, "Transcript fetched and indexed successfully (4 chunks).", m.status)
	assert.Equal(t, "A talk about bees.", m.summary)
	assert.Equal(t, focusQuestion, m.focus)

	m.question.SetValue("What do bees make?")
	m, cmd = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.Empty(t, m.question.Value())

	m, _ = update(t, m, cmd())
	require.Len(t, m.turns, 1)
	assert.Equal(t, domain.Turn{Question: "What do bees make?", Answer: "Bees make honey."}, m.turns[0])
	assert.Contains(t, m.View(), "Bees make honey.")
}

func TestIngestFailureShowsError(t *testing.T) {
	m := New(context.Background(), &fakeSession{}, "bad")
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	m, _ = update(t, m, cmd())
	assert.Contains(t, m.status, "Error: ")
	assert.Equal(t, focusURL, m.focus)
}

func TestTabSwitchesFocus(t *testing.T) {
	m := New(context.Background(), &fakeSession{}, "")
	assert.Equal(t, focusURL, m.focus)
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, focusQuestion, m.focus)
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, focusURL, m.focus)
}

func TestEnterWhileBusyIsIgnored(t *testing.T) {
	fs := &fakeSession{}
	m := New(context.Background(), fs, "abc")
	m.busy = true
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
	assert.Empty(t, fs.ingested)
	assert.Equal(t, "Still working, please wait.", m.status)
}
