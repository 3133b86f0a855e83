// Package search provides the semantic search view for the TUI.
package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/sema-cli/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/sema-cli/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/sema-cli/internal/core/ports/driven"
	"github.com/custodia-labs/sema-cli/internal/core/ports/driving"
)

// resultLimit is how many hits a TUI search requests.
const resultLimit = 10

// View represents the search view with an input field and a navigable
// hit list.
type View struct {
	styles       *styles.Styles
	topicService driving.TopicService
	ctx          context.Context

	input      textinput.Model
	hits       []driven.ChunkHit
	selected   int
	searching  bool
	searched   bool
	focusInput bool
	err        error

	width  int
	height int
	ready  bool
}

// NewView creates a new search view.
func NewView(s *styles.Styles, topicService driving.TopicService) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}

	ti := textinput.New()
	ti.Placeholder = "Search your notes..."
	ti.Focus()
	ti.CharLimit = 256
	ti.Width = 50

	return &View{
		styles:       s,
		topicService: topicService,
		ctx:          context.Background(),
		input:        ti,
		focusInput:   true,
		width:        80,
		height:       24,
	}
}

// WithContext sets the context for the view.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// Init initialises the view.
func (v *View) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles messages for the search view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)

	case messages.SearchCompleted:
		v.searching = false
		v.searched = true
		v.hits = msg.Hits
		v.err = msg.Err
		v.selected = 0
		return v, nil

	case messages.ErrorOccurred:
		v.err = msg.Err
		v.searching = false
		return v, nil
	}

	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	return v, cmd
}

// handleKeyMsg processes keyboard input.
func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	if msg.Type == tea.KeyEsc {
		return v, func() tea.Msg {
			return messages.ViewChanged{View: messages.ViewMenu}
		}
	}

	if msg.Type == tea.KeyEnter && v.focusInput {
		query := strings.TrimSpace(v.input.Value())
		if query == "" {
			return v, nil
		}
		v.searching = true
		v.focusInput = false
		v.input.Blur()
		return v, v.performSearch(query)
	}

	if v.focusInput {
		var cmd tea.Cmd
		v.input, cmd = v.input.Update(msg)
		return v, cmd
	}

	switch msg.String() {
	case "up", "k":
		if v.selected > 0 {
			v.selected--
		}
	case "down", "j":
		if v.selected < len(v.hits)-1 {
			v.selected++
		}
	case "n":
		v.focusInput = true
		v.input.SetValue("")
		return v, v.input.Focus()
	}

	return v, nil
}

// performSearch returns a command that runs the search.
func (v *View) performSearch(query string) tea.Cmd {
	return func() tea.Msg {
		if v.topicService == nil {
			return messages.SearchCompleted{Err: fmt.Errorf("topic service not configured")}
		}
		hits, err := v.topicService.Search(v.ctx, query, resultLimit)
		return messages.SearchCompleted{Hits: hits, Err: err}
	}
}

// View renders the search view.
func (v *View) View() string {
	if !v.ready {
		return "Initialising..."
	}

	var b strings.Builder

	label := v.styles.Title.Render("Search: ")
	field := v.styles.InputField.Render(v.input.View())
	//nolint:misspell // lipgloss.Center is the correct constant from the library
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Center, label, field))
	b.WriteString("\n\n")

	switch {
	case v.err != nil:
		b.WriteString(v.styles.Error.Render("Error: " + v.err.Error()))
		b.WriteString("\n")

	case v.searching:
		b.WriteString(v.styles.Muted.Render("Searching..."))
		b.WriteString("\n")

	case v.searched && len(v.hits) == 0:
		b.WriteString(v.styles.Muted.Render("No results"))
		b.WriteString("\n")

	case len(v.hits) > 0:
		b.WriteString(v.styles.Subtitle.Render(fmt.Sprintf("Results (%d)", len(v.hits))))
		b.WriteString("\n\n")
		for i := range v.hits {
			b.WriteString(v.renderHit(i, &v.hits[i]))
		}
	}

	b.WriteString("\n")
	b.WriteString(v.styles.Help.Render("[Enter] Search  [j/k] Navigate  [n] New search  [Esc] Back"))

	return b.String()
}

// renderHit formats a single search hit with its topic and a snippet.
func (v *View) renderHit(index int, hit *driven.ChunkHit) string {
	var b strings.Builder

	cursor := "  "
	titleStyle := v.styles.Normal
	if index == v.selected {
		cursor = "> "
		titleStyle = v.styles.Subtitle
	}

	b.WriteString(cursor)
	b.WriteString(titleStyle.Render(fmt.Sprintf("%s (%.2f)", hit.Chunk.NoteKey.Title, hit.Score)))
	b.WriteString("\n")

	if hit.Cluster != nil && hit.Cluster.Label != "" {
		b.WriteString("    ")
		b.WriteString(v.styles.Muted.Render("Topic: " + hit.Cluster.Label))
		b.WriteString("\n")
	}

	snippet := hit.Chunk.Text
	if cut := strings.IndexByte(snippet, '\n'); cut >= 0 {
		snippet = snippet[:cut]
	}
	if len(snippet) > 100 {
		snippet = snippet[:100] + "..."
	}
	if snippet != "" {
		b.WriteString("    ")
		b.WriteString(v.styles.Muted.Render(snippet))
		b.WriteString("\n")
	}

	return b.String()
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true

	inputWidth := width - 14
	if inputWidth < 20 {
		inputWidth = 20
	}
	v.input.Width = inputWidth
}

// Reset clears the query and results.
func (v *View) Reset() {
	v.input.SetValue("")
	v.input.Focus()
	v.hits = nil
	v.selected = 0
	v.searching = false
	v.searched = false
	v.focusInput = true
	v.err = nil
}

// Query returns the current query text.
func (v *View) Query() string {
	return v.input.Value()
}

// Hits returns the current search hits.
func (v *View) Hits() []driven.ChunkHit {
	return v.hits
}

// SelectedIndex returns the currently selected hit index.
func (v *View) SelectedIndex() int {
	return v.selected
}

// Err returns the last error that occurred.
func (v *View) Err() error {
	return v.err
}
