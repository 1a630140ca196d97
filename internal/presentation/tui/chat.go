package tui

import (
	"context"
	"strings"

	"github.com/aretw0/furrow"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// AskFunc sends one message of the running conversation to the supervisor.
type AskFunc func(ctx context.Context, message string) furrow.Response

var (
	promptStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("34")).Bold(true)
	userStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true)
	workersStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Italic(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

type answerMsg struct {
	resp furrow.Response
}

// Chat is an interactive conversation with the supervisor. Finished
// exchanges are printed above the prompt so the terminal keeps the history.
type Chat struct {
	ctx     context.Context
	ask     AskFunc
	render  func(string) (string, error)
	input   textinput.Model
	spinner spinner.Model
	waiting bool
	turns   int
}

// NewChat creates the model. render formats answers; pass Plain to skip markdown.
func NewChat(ctx context.Context, ask AskFunc, render func(string) (string, error)) *Chat {
	ti := textinput.New()
	ti.Placeholder = "Ask about weather, prices, crops... (esc to quit)"
	ti.CharLimit = 2000
	ti.Width = 72
	ti.Focus()

	if render == nil {
		render = Plain
	}
	return &Chat{
		ctx:     ctx,
		ask:     ask,
		render:  render,
		input:   ti,
		spinner: spinner.New(spinner.WithSpinner(spinner.MiniDot)),
	}
}

// Turns is the number of answered messages.
func (c *Chat) Turns() int { return c.turns }

// Init implements tea.Model.
func (c *Chat) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model.
func (c *Chat) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return c, tea.Quit
		case tea.KeyEnter:
			return c.submit()
		}

	case tea.WindowSizeMsg:
		c.input.Width = max(msg.Width-6, 10)

	case answerMsg:
		c.waiting = false
		c.turns++
		return c, tea.Println(c.format(msg.resp))

	case spinner.TickMsg:
		if !c.waiting {
			return c, nil
		}
		var cmd tea.Cmd
		c.spinner, cmd = c.spinner.Update(msg)
		return c, cmd
	}

	if c.waiting {
		return c, nil
	}
	var cmd tea.Cmd
	c.input, cmd = c.input.Update(msg)
	return c, cmd
}

func (c *Chat) submit() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(c.input.Value())
	if c.waiting || text == "" {
		return c, nil
	}
	if text == "/quit" || text == "/exit" {
		return c, tea.Quit
	}

	c.input.Reset()
	c.waiting = true
	ctx, ask := c.ctx, c.ask
	return c, tea.Batch(
		tea.Println(userStyle.Render("you › ")+text),
		c.spinner.Tick,
		func() tea.Msg {
			return answerMsg{resp: ask(ctx, text)}
		},
	)
}

func (c *Chat) format(resp furrow.Response) string {
	var b strings.Builder
	if resp.Response != "" {
		text, err := c.render(resp.Response)
		if err != nil {
			text, _ = Plain(resp.Response)
		}
		b.WriteString(strings.TrimRight(text, "\n"))
	}
	if len(resp.Workers) > 0 {
		names := make([]string, len(resp.Workers))
		for i, w := range resp.Workers {
			names[i] = w.String()
		}
		b.WriteString("\n" + workersStyle.Render("via "+strings.Join(names, ", ")))
	}
	if !resp.Success && resp.Error != "" {
		b.WriteString("\n" + errorStyle.Render(resp.Error))
	}
	return b.String() + "\n"
}

// View implements tea.Model.
func (c *Chat) View() string {
	if c.waiting {
		return c.spinner.View() + " asking the workers..."
	}
	return promptStyle.Render("furrow › ") + c.input.View()
}
