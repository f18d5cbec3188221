package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/indent"
	"github.com/muesli/reflow/wordwrap"
)

const defaultAPIURL = "http://localhost:8080"

type nutrients struct {
	Energy       float64 `json:"energy"`
	Protein      float64 `json:"protein"`
	Fat          float64 `json:"fat"`
	Carbohydrate float64 `json:"carbohydrate"`
	Salt         float64 `json:"salt"`
}

type lineItem struct {
	Food      string    `json:"food"`
	Weight    float64   `json:"weight"`
	Nutrients nutrients `json:"nutrients"`
	Note      string    `json:"note"`
}

type meal struct {
	Items []lineItem `json:"items"`
	Total lineItem   `json:"total"`
}

type apiError struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

type model struct {
	apiURL         string
	meal           meal           // The meal we are viewing
	cursor         int            // Selected line item
	status         string         // Last notice from the server
	loading        bool           // Whether a request is in flight
	loadingSpinner spinner.Model  // Loading spinner
	err            error          // Fatal error message
	width          int            // Width of the terminal
	height         int            // Height of the terminal
	viewport       viewport.Model // Viewport for the meal table
	keys           keyMap         // The key bindings shown in the viewport
	help           help.Model     // The help model in the viewport
}

type keyMap struct {
	Up       key.Binding
	Down     key.Binding
	MoveUp   key.Binding
	MoveDown key.Binding
	Delete   key.Binding
	Reset    key.Binding
	Refresh  key.Binding
	Quit     key.Binding
	Help     key.Binding
}

var keys = keyMap{
	Up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "select previous")),
	Down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "select next")),
	MoveUp:   key.NewBinding(key.WithKeys("K", "shift+up"), key.WithHelp("K", "move item up")),
	MoveDown: key.NewBinding(key.WithKeys("J", "shift+down"), key.WithHelp("J", "move item down")),
	Delete:   key.NewBinding(key.WithKeys("d", "delete"), key.WithHelp("d", "delete item")),
	Reset:    key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "reset meal")),
	Refresh:  key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
	Quit:     key.NewBinding(key.WithKeys("q", "esc", "ctrl+c"), key.WithHelp("q", "quit")),
	Help:     key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "toggle help")),
}

// ShortHelp returns keybindings to be shown in the mini help view. It's part
// of the key.Map interface.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.MoveUp, k.MoveDown, k.Delete, k.Quit, k.Help}
}

// FullHelp returns keybindings for the expanded help view. It's part of the
// key.Map interface.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down},
		{k.MoveUp, k.MoveDown, k.Delete},
		{k.Reset, k.Refresh},
		{k.Quit, k.Help},
	}
}

func initialModel(apiURL string) model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	return model{
		apiURL:         apiURL,
		loading:        true,
		viewport:       viewport.New(0, 0),
		loadingSpinner: s,
		keys:           keys,
		help:           help.New(),
	}
}

type gotMealMsg meal
type noticeMsg string
type errMsg error
type tickMsg struct{}

func (m model) Init() tea.Cmd {
	return m.request(http.MethodGet, "/meal")
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.viewport.Width = msg.Width
		m.viewport.Height = msg.Height
		m.help.Width = msg.Width
		cmd := m.render()
		return m, cmd

	case gotMealMsg:
		m.meal = meal(msg)
		m.loading = false
		m.clampCursor()
		cmd := m.render()
		return m, cmd

	case noticeMsg:
		m.status = string(msg)
		m.loading = false
		return m, nil

	case tickMsg:
		if m.loading {
			var cmd tea.Cmd
			m.loadingSpinner, cmd = m.loadingSpinner.Update(msg)
			return m, cmd
		}
		return m, nil

	case errMsg:
		m.err = msg
		m.loading = false
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit

		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
			return m, nil

		case key.Matches(msg, m.keys.Up):
			if m.cursor > 0 {
				m.cursor--
			}
			cmd := m.render()
			return m, cmd

		case key.Matches(msg, m.keys.Down):
			if m.cursor < len(m.meal.Items)-1 {
				m.cursor++
			}
			cmd := m.render()
			return m, cmd

		case key.Matches(msg, m.keys.MoveUp):
			if len(m.meal.Items) == 0 {
				return m, nil
			}
			cmd := m.action(http.MethodPost, fmt.Sprintf("/meal/items/%d/up", m.cursor), "Item moved up.")
			if m.cursor > 0 {
				m.cursor--
			}
			return m, cmd

		case key.Matches(msg, m.keys.MoveDown):
			if len(m.meal.Items) == 0 {
				return m, nil
			}
			cmd := m.action(http.MethodPost, fmt.Sprintf("/meal/items/%d/down", m.cursor), "Item moved down.")
			if m.cursor < len(m.meal.Items)-1 {
				m.cursor++
			}
			return m, cmd

		case key.Matches(msg, m.keys.Delete):
			if len(m.meal.Items) == 0 {
				return m, nil
			}
			return m, m.action(http.MethodDelete, fmt.Sprintf("/meal/items/%d", m.cursor), "Item deleted.")

		case key.Matches(msg, m.keys.Reset):
			m.cursor = 0
			return m, m.action(http.MethodPost, "/meal/reset", "Meal reset.")

		case key.Matches(msg, m.keys.Refresh):
			m.loading = true
			m.status = ""
			return m, m.request(http.MethodGet, "/meal")
		}
	}

	var vpCmd tea.Cmd
	m.viewport, vpCmd = m.viewport.Update(msg)

	var cmd tea.Cmd
	if m.loading {
		m.loadingSpinner, cmd = m.loadingSpinner.Update(msg)
		return m, tea.Batch(cmd, vpCmd)
	}
	return m, vpCmd
}

func (m *model) clampCursor() {
	if m.cursor >= len(m.meal.Items) {
		m.cursor = len(m.meal.Items) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

// render refreshes the viewport content from the current meal.
func (m *model) render() tea.Cmd {
	wrapped := wordwrap.String(mealMarkdown(m.meal, m.cursor), m.width)
	indented := indent.String(wrapped, 2)

	out, err := glamour.Render(indented, "dark")
	if err != nil {
		return func() tea.Msg { return errMsg(err) }
	}
	m.viewport.SetContent(out)
	return nil
}

func (m model) View() string {
	if m.err != nil {
		return fmt.Sprintf("Error: %v\n", m.err)
	}

	if m.loading && len(m.meal.Items) == 0 {
		return lipgloss.NewStyle().
			Width(m.width).
			Height(m.height).
			AlignVertical(lipgloss.Center).
			Align(lipgloss.Center).
			Render(
				lipgloss.JoinHorizontal(lipgloss.Center,
					m.loadingSpinner.View(),
					"Loading meal",
				),
			)
	}

	statusView := lipgloss.NewStyle().PaddingLeft(2).Foreground(lipgloss.Color("214")).Render(m.status)
	helpView := lipgloss.NewStyle().PaddingLeft(2).MarginTop(1).Render(m.help.View(m.keys))
	contentHeight := m.height - lipgloss.Height(helpView) - lipgloss.Height(statusView)
	if contentHeight < 0 {
		contentHeight = 0
	}
	m.viewport.Height = contentHeight

	return lipgloss.JoinVertical(lipgloss.Left, m.viewport.View(), statusView, helpView)
}

func mealMarkdown(ml meal, cursor int) string {
	var b strings.Builder
	b.WriteString("# Meal\n\n")
	if len(ml.Items) == 0 {
		b.WriteString("No foods selected yet.\n")
	}
	b.WriteString("| | Food | Weight (g) | Energy (kcal) | Protein (g) | Fat (g) | Carbohydrate (g) | Salt (g) | Note |\n")
	b.WriteString("|---|---|---:|---:|---:|---:|---:|---:|---|\n")
	for i, it := range ml.Items {
		marker := ""
		if i == cursor {
			marker = "▶"
		}
		writeRow(&b, marker, it)
	}
	writeRow(&b, "", ml.Total)
	return b.String()
}

func writeRow(b *strings.Builder, marker string, it lineItem) {
	n := it.Nutrients
	fmt.Fprintf(b, "| %s | %s | %.1f | %.1f | %.2f | %.2f | %.2f | %.2f | %s |\n",
		marker, escapeCell(it.Food), it.Weight, n.Energy, n.Protein, n.Fat, n.Carbohydrate, n.Salt, escapeCell(it.Note))
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

func (m model) request(method, path string) tea.Cmd {
	return tea.Batch(
		m.loadingSpinner.Tick,
		callCmd(m.apiURL, method, path, ""),
		tea.Tick(time.Millisecond*100, func(t time.Time) tea.Msg {
			return tickMsg{}
		}),
	)
}

// action runs a mutating request; the server answers with the updated meal.
func (m model) action(method, path, success string) tea.Cmd {
	return tea.Sequence(
		callCmd(m.apiURL, method, path, success),
		callCmd(m.apiURL, http.MethodGet, "/meal", ""),
	)
}

func callCmd(apiURL, method, path, success string) tea.Cmd {
	return func() tea.Msg {
		req, err := http.NewRequest(method, apiURL+path, nil)
		if err != nil {
			return errMsg(err)
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return errMsg(err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return errMsg(err)
		}

		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			var apiErr apiError
			if err := json.Unmarshal(body, &apiErr); err != nil || apiErr.Error == "" {
				return noticeMsg(resp.Status)
			}
			return noticeMsg(apiErr.Error)
		}
		if resp.StatusCode != http.StatusOK {
			return errMsg(fmt.Errorf("HTTP error: %s", resp.Status))
		}

		if success != "" {
			return noticeMsg(success)
		}

		var data meal
		if err := json.Unmarshal(body, &data); err != nil {
			return errMsg(err)
		}
		return gotMealMsg(data)
	}
}

func main() {
	apiURL := os.Getenv("NUTRICALC_URL")
	if apiURL == "" {
		apiURL = defaultAPIURL
	}

	p := tea.NewProgram(initialModel(apiURL), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running program: %v\n", err)
		os.Exit(1)
	}
}
