package tui_test

import (
	"context"
	"testing"

	"github.com/aretw0/furrow"
	"github.com/aretw0/furrow/internal/presentation/tui"
	"github.com/aretw0/furrow/pkg/domain"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func typeText(t *testing.T, m tea.Model, text string) tea.Model {
	t.Helper()
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)})
	return m
}

// runBatch executes the commands of a batch and returns the messages they produce.
func runBatch(t *testing.T, cmd tea.Cmd) []tea.Msg {
	t.Helper()
	require.NotNil(t, cmd)
	msg := cmd()
	batch, ok := msg.(tea.BatchMsg)
	if !ok {
		return []tea.Msg{msg}
	}
	var out []tea.Msg
	for _, c := range batch {
		if c != nil {
			out = append(out, c())
		}
	}
	return out
}

func TestChat_AskRoundTrip(t *testing.T) {
	var asked []string
	ask := func(ctx context.Context, message string) furrow.Response {
		asked = append(asked, message)
		return furrow.Response{
			Success:  true,
			Response: "Light rain expected.",
			Workers:  []domain.WorkerName{domain.WorkerWeather},
		}
	}
	chat := tui.NewChat(context.Background(), ask, tui.Plain)
	var m tea.Model = chat
	require.NotNil(t, m.Init())

	m = typeText(t, m, "rain in Hassan?")
	assert.Contains(t, m.View(), "rain in Hassan?")

	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Contains(t, m.View(), "asking the workers")

	// While waiting, further input is ignored.
	_, none := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, none)

	var printCmd tea.Cmd
	for _, msg := range runBatch(t, cmd) {
		before := chat.Turns()
		var next tea.Cmd
		m, next = m.Update(msg)
		if chat.Turns() > before {
			printCmd = next
		}
	}

	assert.NotNil(t, printCmd, "the answer is printed above the prompt")
	assert.Equal(t, []string{"rain in Hassan?"}, asked)
	assert.Equal(t, 1, chat.Turns())
	assert.Contains(t, m.View(), "furrow")
	assert.NotContains(t, m.View(), "rain in Hassan?")
}

func TestChat_EmptyEnterDoesNothing(t *testing.T) {
	called := false
	chat := tui.NewChat(context.Background(), func(context.Context, string) furrow.Response {
		called = true
		return furrow.Response{}
	}, nil)

	_, cmd := chat.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
	assert.False(t, called)
}

func TestChat_Quit(t *testing.T) {
	for _, key := range []tea.KeyType{tea.KeyCtrlC, tea.KeyEsc} {
		chat := tui.NewChat(context.Background(), nil, nil)
		_, cmd := chat.Update(tea.KeyMsg{Type: key})
		require.NotNil(t, cmd)
		assert.Equal(t, tea.Quit(), cmd())
	}

	chat := tui.NewChat(context.Background(), nil, nil)
	m := typeText(t, chat, "/quit")
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}
