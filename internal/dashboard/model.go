// Package dashboard renders the live metrics view from a series.Store.
package dashboard

import (
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/rileyhilliard/stylesync/internal/series"
	"github.com/rileyhilliard/stylesync/internal/stream"
)

// LayoutMode represents the responsive layout mode based on terminal size.
type LayoutMode int

const (
	// LayoutMinimal is for terminals < 80 columns: values only, no graph
	LayoutMinimal LayoutMode = iota
	// LayoutCompact is for terminals 80-120 columns: short graph, stacked cards
	LayoutCompact
	// LayoutStandard is for terminals 120-160 columns
	LayoutStandard
	// LayoutWide is for terminals 160+ columns
	LayoutWide
)

// Width breakpoints for layout modes
const (
	BreakpointCompact  = 80
	BreakpointStandard = 120
	BreakpointWide     = 160
)

// Height breakpoints for layout adjustments
const (
	HeightMinimal  = 24
	HeightStandard = 40
)

// tickInterval refreshes relative times in the header.
const tickInterval = time.Second

// tickMsg triggers a redraw of time-relative text.
type tickMsg time.Time

// storeUpdateMsg signals the store ingested at least one snapshot.
type storeUpdateMsg struct{}

// statusUpdateMsg signals a connection event was recorded.
type statusUpdateMsg struct{}

// Model is the Bubble Tea model for the live dashboard.
type Model struct {
	store  *series.Store
	events *Events
	url    string

	updates     <-chan struct{}
	unsubscribe func()

	state  series.DashboardState
	status Status

	// clearMark is the store's ingest count when history was last cleared.
	// Points ingested before it are hidden; the store is never modified.
	clearMark uint64

	spinner spinner.Model
	now     func() time.Time

	width    int
	height   int
	showHelp bool
	quitting bool
}

// NewModel subscribes to store and renders its state. events may be nil
// when no stream client feeds the store. Call Close when the program exits.
func NewModel(store *series.Store, events *Events, url string) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Spinner{
		Frames: ConnectingSpinnerFrames,
		FPS:    150 * time.Millisecond,
	}
	sp.Style = lipgloss.NewStyle().Foreground(ColorWarning)

	updates, unsubscribe := store.Subscribe()

	m := Model{
		store:       store,
		events:      events,
		url:         url,
		updates:     updates,
		unsubscribe: unsubscribe,
		state:       store.Snapshot(),
		spinner:     sp,
		now:         time.Now,
	}
	if events != nil {
		m.status = events.Status()
	}
	return m
}

// Close stops store notifications.
func (m Model) Close() {
	if m.unsubscribe != nil {
		m.unsubscribe()
	}
}

// Init starts the spinner, the header tick and both notification pollers.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		m.tickCmd(),
		m.waitForStoreCmd(),
		m.waitForStatusCmd(),
	)
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if handled, cmd := m.HandleKeyMsg(msg); handled {
			return m, cmd
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case storeUpdateMsg:
		m.refresh()
		return m, m.waitForStoreCmd()

	case statusUpdateMsg:
		m.status = m.events.Status()
		return m, m.waitForStatusCmd()

	case tickMsg:
		return m, m.tickCmd()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View renders the dashboard.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if m.showHelp {
		return m.renderHelpOverlay()
	}
	return m.renderDashboard()
}

func (m Model) tickCmd() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// waitForStoreCmd blocks until the store signals a change. A closed channel
// ends polling.
func (m Model) waitForStoreCmd() tea.Cmd {
	updates := m.updates
	if updates == nil {
		return nil
	}
	return func() tea.Msg {
		if _, ok := <-updates; !ok {
			return nil
		}
		return storeUpdateMsg{}
	}
}

func (m Model) waitForStatusCmd() tea.Cmd {
	if m.events == nil {
		return nil
	}
	changes := m.events.Changes()
	return func() tea.Msg {
		<-changes
		return statusUpdateMsg{}
	}
}

// refresh re-reads the store and hides points older than the clear mark.
func (m *Model) refresh() {
	state := m.store.Snapshot()
	if state.Ingested < m.clearMark {
		// the store itself was reset since the mark
		m.clearMark = 0
	}

	visible := int(min(state.Ingested-m.clearMark, uint64(len(state.CPUSeries))))
	if visible == 0 {
		state.Current = nil
	}
	drop := len(state.CPUSeries) - visible
	state.CPUSeries = state.CPUSeries[drop:]
	state.LabelSeries = state.LabelSeries[drop:]
	state.MemorySeries = state.MemorySeries[drop:]
	state.DiskSeries = state.DiskSeries[drop:]
	m.state = state
}

// clearHistory hides everything ingested so far from this view.
func (m *Model) clearHistory() {
	m.clearMark = m.store.Snapshot().Ingested
	m.refresh()
}

// State returns the last store view the model rendered.
func (m Model) State() series.DashboardState {
	return m.state
}

// Loading reports whether no snapshot has been received yet.
func (m Model) Loading() bool {
	return m.state.Loading()
}

// Stale reports whether the values shown belong to a connection that is no
// longer live.
func (m Model) Stale() bool {
	if m.events == nil || m.state.Current == nil {
		return false
	}
	return m.status.State != stream.StateConnected
}

// SecondsSinceUpdate returns whole seconds since the last ingest, or -1
// before the first one.
func (m Model) SecondsSinceUpdate() int {
	if m.state.UpdatedAt.IsZero() {
		return -1
	}
	return int(m.now().Sub(m.state.UpdatedAt).Seconds())
}

// LayoutMode returns the current layout mode based on terminal width.
func (m Model) LayoutMode() LayoutMode {
	switch {
	case m.width >= BreakpointWide:
		return LayoutWide
	case m.width >= BreakpointStandard:
		return LayoutStandard
	case m.width >= BreakpointCompact:
		return LayoutCompact
	default:
		return LayoutMinimal
	}
}

// ShowFooter reports whether there is room for the key hints.
func (m Model) ShowFooter() bool {
	return m.height == 0 || m.height >= HeightMinimal
}

// GraphHeight returns the CPU graph height in rows for the terminal height.
func (m Model) GraphHeight() int {
	switch {
	case m.height >= HeightStandard:
		return 8
	case m.height >= HeightMinimal || m.height == 0:
		return 5
	default:
		return 3
	}
}
