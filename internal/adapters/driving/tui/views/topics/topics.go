// Package topics provides the topic browser view for the TUI.
package topics

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/sema-cli/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/sema-cli/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/sema-cli/internal/core/domain"
	"github.com/custodia-labs/sema-cli/internal/core/ports/driving"
)

// View represents the topic browser: a navigable list of clusters
// where the selected topic can be expanded to show its member notes.
type View struct {
	styles       *styles.Styles
	topicService driving.TopicService
	ctx          context.Context

	clusters []domain.Cluster
	selected int
	expanded map[int]bool
	loaded   bool
	err      error

	width  int
	height int
	ready  bool
}

// NewView creates a new topic browser view.
func NewView(s *styles.Styles, topicService driving.TopicService) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}

	return &View{
		styles:       s,
		topicService: topicService,
		ctx:          context.Background(),
		expanded:     make(map[int]bool),
		width:        80,
		height:       24,
	}
}

// WithContext sets the context for the view.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// Init loads the topics from the service.
func (v *View) Init() tea.Cmd {
	return v.loadTopics()
}

// loadTopics returns a command that fetches the organised clusters.
func (v *View) loadTopics() tea.Cmd {
	return func() tea.Msg {
		if v.topicService == nil {
			return messages.TopicsLoaded{Err: fmt.Errorf("topic service not configured")}
		}
		clusters, err := v.topicService.List(v.ctx)
		return messages.TopicsLoaded{Clusters: clusters, Err: err}
	}
}

// Update handles messages for the topic browser.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case messages.TopicsLoaded:
		v.loaded = true
		v.clusters = msg.Clusters
		v.err = msg.Err
		if v.selected >= len(v.clusters) {
			v.selected = 0
		}
		return v, nil

	case messages.ErrorOccurred:
		v.err = msg.Err
		return v, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "up", "k":
			if v.selected > 0 {
				v.selected--
			}
			return v, nil

		case "down", "j":
			if v.selected < len(v.clusters)-1 {
				v.selected++
			}
			return v, nil

		case "enter":
			if len(v.clusters) > 0 {
				v.expanded[v.selected] = !v.expanded[v.selected]
			}
			return v, nil

		case "r":
			// Reload from the store.
			v.loaded = false
			return v, v.loadTopics()
		}
	}

	return v, nil
}

// View renders the topic browser.
func (v *View) View() string {
	if !v.ready {
		return "Initialising..."
	}

	var b strings.Builder

	b.WriteString(v.styles.Title.Render("Topics"))
	b.WriteString("\n\n")

	switch {
	case v.err != nil:
		b.WriteString(v.styles.Error.Render("Error: " + v.err.Error()))
		b.WriteString("\n")

	case !v.loaded:
		b.WriteString(v.styles.Muted.Render("Loading topics..."))
		b.WriteString("\n")

	case len(v.clusters) == 0:
		b.WriteString(v.styles.Muted.Render("No topics yet. Run 'sema organize' first."))
		b.WriteString("\n")

	default:
		for i, cluster := range v.clusters {
			b.WriteString(v.renderCluster(i, cluster))
		}
	}

	b.WriteString("\n")
	b.WriteString(v.styles.Help.Render("[j/k] Navigate  [Enter] Expand  [r] Reload  [Esc] Back"))

	return b.String()
}

// renderCluster formats one topic line, with member titles when
// expanded.
func (v *View) renderCluster(index int, cluster domain.Cluster) string {
	var b strings.Builder

	cursor := "  "
	labelStyle := v.styles.Normal
	if index == v.selected {
		cursor = "> "
		labelStyle = v.styles.Subtitle
	}
	if cluster.ID == domain.Outlier {
		labelStyle = v.styles.Muted
	}

	marker := "+"
	if v.expanded[index] {
		marker = "-"
	}

	b.WriteString(cursor)
	b.WriteString(marker)
	b.WriteString(" ")
	b.WriteString(labelStyle.Render(fmt.Sprintf("%s (%d notes)", cluster.Label, cluster.Size())))
	b.WriteString("\n")

	if index == v.selected && cluster.Summary != "" {
		b.WriteString("     ")
		b.WriteString(v.styles.Muted.Render(cluster.Summary))
		b.WriteString("\n")
	}

	if v.expanded[index] {
		for _, member := range cluster.Members {
			b.WriteString("      ")
			b.WriteString(v.styles.Normal.Render("• " + member.Title))
			b.WriteString("\n")
		}
	}

	return b.String()
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true
}

// Reset clears the selection and collapses all topics.
func (v *View) Reset() {
	v.selected = 0
	v.expanded = make(map[int]bool)
	v.loaded = false
	v.err = nil
}

// Selected returns the currently selected index.
func (v *View) Selected() int {
	return v.selected
}

// Clusters returns the loaded clusters.
func (v *View) Clusters() []domain.Cluster {
	return v.clusters
}

// Err returns the last error that occurred.
func (v *View) Err() error {
	return v.err
}
