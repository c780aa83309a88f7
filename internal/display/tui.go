package display

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/hervehildenbrand/gsock/internal/monitor"
	"github.com/hervehildenbrand/gsock/pkg/probe"
)

// Styles for the TUI
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205"))

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("240"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	rttStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("82"))

	timeoutStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	refusedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("208"))

	alertStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("141"))

	statusStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("235")).
			Padding(0, 1)

	completeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("82")).
			Bold(true)
)

// Sparkline characters (from low to high)
var sparkChars = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// maxVisibleAlerts bounds the alert log in the view.
const maxVisibleAlerts = 5

// AttemptMsg is sent when a probe attempt completes
type AttemptMsg struct {
	Attempt probe.Attempt
}

// ChangeMsg is sent when the monitor detects changes
type ChangeMsg struct {
	Changes []monitor.Change
}

// CompleteMsg is sent when the probe run is complete
type CompleteMsg struct {
	Reachable bool
}

// TUIModel is the Bubbletea model for the watch-mode TUI
type TUIModel struct {
	mu        sync.RWMutex
	target    string
	addr      string
	stats     *probe.Stats
	alerts    []monitor.Change
	complete  bool
	reachable bool
	spinner   spinner.Model
	width     int
	height    int
	startTime time.Time
}

// NewTUIModel creates a new TUI model
func NewTUIModel(target, addr string) *TUIModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	return &TUIModel{
		target:    target,
		addr:      addr,
		stats:     probe.NewStats(),
		spinner:   s,
		startTime: time.Now(),
	}
}

// AddAttempt folds an attempt into the model's statistics
func (m *TUIModel) AddAttempt(a probe.Attempt) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats.Add(a)
}

// AddChanges appends monitor alerts to the model
func (m *TUIModel) AddChanges(changes []monitor.Change) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.alerts = append(m.alerts, changes...)
	if len(m.alerts) > maxVisibleAlerts {
		m.alerts = m.alerts[len(m.alerts)-maxVisibleAlerts:]
	}
}

// SetComplete marks the probe run as complete
func (m *TUIModel) SetComplete(reachable bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.complete = true
	m.reachable = reachable
}

// Init implements tea.Model
func (m *TUIModel) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update implements tea.Model
func (m *TUIModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "r":
			m.mu.Lock()
			m.stats.Reset()
			m.alerts = nil
			m.mu.Unlock()
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case AttemptMsg:
		m.AddAttempt(msg.Attempt)

	case ChangeMsg:
		m.AddChanges(msg.Changes)

	case CompleteMsg:
		m.SetComplete(msg.Reachable)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View implements tea.Model
func (m *TUIModel) View() string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var b strings.Builder

	// Title
	title := fmt.Sprintf("gsock → %s (%s)", m.target, m.addr)
	b.WriteString(titleStyle.Render(title))
	b.WriteString("\n\n")

	// Header
	header := fmt.Sprintf("%-6s %-6s %-8s %-8s %-8s %-8s %-8s",
		"Sent", "Recv", "Loss", "Last", "Avg", "Best", "Worst")
	b.WriteString(headerStyle.Render(header))
	b.WriteString("\n")
	b.WriteString(strings.Repeat("─", 62))
	b.WriteString("\n")
	b.WriteString(m.formatStatsRow())
	b.WriteString("\n\n")

	// Sparkline of recent RTTs
	if len(m.stats.RTTHistory) > 0 {
		b.WriteString(labelStyle.Render("RTT "))
		b.WriteString(m.renderSparkline(m.stats.RTTHistory))
		b.WriteString("\n")
	}

	// Alerts
	if len(m.alerts) > 0 {
		b.WriteString("\n")
		b.WriteString(headerStyle.Render("Alerts"))
		b.WriteString("\n")
		for _, c := range m.alerts {
			b.WriteString(alertStyle.Render(c.String()))
			b.WriteString("\n")
		}
	}

	// Status bar
	b.WriteString("\n")
	b.WriteString(strings.Repeat("─", 62))
	b.WriteString("\n")
	b.WriteString(m.renderStatusBar())

	// Help
	b.WriteString("\n")
	if m.complete {
		if m.reachable {
			b.WriteString(completeStyle.Render("✓ Target reachable"))
		} else {
			b.WriteString(timeoutStyle.Render("✗ Target not reachable"))
		}
		b.WriteString(" | Press 'q' to quit")
	} else {
		b.WriteString(m.spinner.View())
		b.WriteString(" Probing... 'r' resets stats, 'q' quits")
	}

	return b.String()
}

// formatStatsRow formats the single statistics row
func (m *TUIModel) formatStatsRow() string {
	var b strings.Builder

	b.WriteString(labelStyle.Render(fmt.Sprintf("%-6d ", m.stats.Sent)))
	b.WriteString(labelStyle.Render(fmt.Sprintf("%-6d ", m.stats.Recv)))

	loss := m.stats.LossPercent()
	lossStr := fmt.Sprintf("%5.1f%%  ", loss)
	if loss > 0 {
		b.WriteString(timeoutStyle.Render(lossStr))
	} else {
		b.WriteString(labelStyle.Render(lossStr))
	}

	b.WriteString(m.renderRTTCell(m.stats.LastRTT))
	b.WriteString(m.renderRTTCell(m.stats.AvgRTT()))
	b.WriteString(m.renderRTTCell(m.stats.BestRTT))
	b.WriteString(m.renderRTTCell(m.stats.WorstRTT))

	if m.stats.Refused > 0 {
		b.WriteString(refusedStyle.Render(fmt.Sprintf(" [%d refused]", m.stats.Refused)))
	}

	return b.String()
}

// renderRTTCell formats one RTT column
func (m *TUIModel) renderRTTCell(d time.Duration) string {
	if d <= 0 {
		return timeoutStyle.Render(fmt.Sprintf("%-8s ", "-"))
	}
	ms := float64(d) / float64(time.Millisecond)
	return rttStyle.Render(fmt.Sprintf("%-8.1f ", ms))
}

// renderSparkline renders a sparkline graph from RTT values
func (m *TUIModel) renderSparkline(rtts []time.Duration) string {
	if len(rtts) == 0 {
		return ""
	}

	// Find min/max
	minRTT, maxRTT := rtts[0], rtts[0]
	for _, rtt := range rtts {
		if rtt < minRTT {
			minRTT = rtt
		}
		if rtt > maxRTT {
			maxRTT = rtt
		}
	}

	// If all same, use middle char
	if minRTT == maxRTT {
		return rttStyle.Render(strings.Repeat(string(sparkChars[3]), len(rtts)))
	}

	// Scale to sparkline characters
	var b strings.Builder
	rng := float64(maxRTT - minRTT)
	for _, rtt := range rtts {
		idx := int(float64(rtt-minRTT) / rng * float64(len(sparkChars)-1))
		if idx >= len(sparkChars) {
			idx = len(sparkChars) - 1
		}
		b.WriteRune(sparkChars[idx])
	}

	return rttStyle.Render(b.String())
}

// renderStatusBar renders the status bar
func (m *TUIModel) renderStatusBar() string {
	parts := []string{
		fmt.Sprintf("Attempts: %d", m.stats.Sent),
	}

	if m.stats.Refused > 0 {
		parts = append(parts, refusedStyle.Render("REFUSED"))
	}
	if len(m.alerts) > 0 {
		parts = append(parts, alertStyle.Render(fmt.Sprintf("ALERTS: %d", len(m.alerts))))
	}

	elapsed := time.Since(m.startTime).Round(time.Second)
	parts = append(parts, fmt.Sprintf("Time: %v", elapsed))

	return statusStyle.Render(strings.Join(parts, " │ "))
}

// RunTUI runs the TUI program
func RunTUI(target, addr string, attemptChan <-chan probe.Attempt, changeChan <-chan []monitor.Change, doneChan <-chan bool) error {
	model := NewTUIModel(target, addr)

	p := tea.NewProgram(model)

	// Goroutine to receive attempts and alerts
	go func() {
		for {
			select {
			case a, ok := <-attemptChan:
				if !ok {
					return
				}
				p.Send(AttemptMsg{Attempt: a})
			case changes, ok := <-changeChan:
				if !ok {
					return
				}
				p.Send(ChangeMsg{Changes: changes})
			case reachable, ok := <-doneChan:
				if !ok {
					return
				}
				p.Send(CompleteMsg{Reachable: reachable})
				return
			}
		}
	}()

	_, err := p.Run()
	return err
}
