package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	listTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205"))

	statusPending   = lipgloss.NewStyle().Foreground(lipgloss.Color("3")) // Yellow
	statusRunning   = lipgloss.NewStyle().Foreground(lipgloss.Color("6")) // Cyan
	statusPaused    = lipgloss.NewStyle().Foreground(lipgloss.Color("4")) // Blue
	statusCompleted = lipgloss.NewStyle().Foreground(lipgloss.Color("2")) // Green
	statusFailed    = lipgloss.NewStyle().Foreground(lipgloss.Color("1")) // Red
	statusCancelled = lipgloss.NewStyle().Foreground(lipgloss.Color("8")) // Gray

	detailTitleStyle = lipgloss.NewStyle().Bold(true)
	helpStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

func formatStatus(status string) string {
	switch status {
	case "pending":
		return statusPending.Render("● pending")
	case "running":
		return statusRunning.Render("● running")
	case "paused":
		return statusPaused.Render("● paused")
	case "completed":
		return statusCompleted.Render("● completed")
	case "failed":
		return statusFailed.Render("● failed")
	case "cancelled":
		return statusCancelled.Render("● cancelled")
	default:
		return status
	}
}

// item adapts an ExecutionItem for bubbles/list.
type item struct {
	exec ExecutionItem
}

func (i item) FilterValue() string { return i.exec.Input }
func (i item) Title() string {
	input := i.exec.Input
	if len(input) > 50 {
		input = input[:50] + "…"
	}
	return fmt.Sprintf("[%s] %s", i.exec.Workflow, input)
}
func (i item) Description() string {
	return fmt.Sprintf("%s • %s", formatStatus(i.exec.Status), i.exec.ID[:8])
}

type executionsLoadedMsg struct{ items []ExecutionItem }
type detailLoadedMsg struct{ detail *ExecutionDetail }
type errMsg struct{ err error }
type tickMsg time.Time

// App is the executions dashboard model.
type App struct {
	client   *Client
	list     list.Model
	detail   *ExecutionDetail
	showing  bool
	err      error
	width    int
	height   int
}

// NewApp creates the dashboard over an API client.
func NewApp(client *Client) *App {
	delegate := list.NewDefaultDelegate()
	l := list.New([]list.Item{}, delegate, 80, 20)
	l.Title = "Workflow Executions"
	l.SetShowStatusBar(true)
	l.SetFilteringEnabled(true)
	l.Styles.Title = listTitleStyle

	return &App{client: client, list: l}
}

// Run starts the bubbletea program.
func (a *App) Run() error {
	p := tea.NewProgram(a, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// Init kicks off the first load and the refresh ticker.
func (a *App) Init() tea.Cmd {
	return tea.Batch(a.refresh(), tick())
}

func tick() tea.Cmd {
	return tea.Tick(2*time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (a *App) refresh() tea.Cmd {
	return func() tea.Msg {
		items, err := a.client.ListExecutions()
		if err != nil {
			return errMsg{err}
		}
		return executionsLoadedMsg{items}
	}
}

func (a *App) loadDetail(id string) tea.Cmd {
	return func() tea.Msg {
		detail, err := a.client.GetExecution(id)
		if err != nil {
			return errMsg{err}
		}
		return detailLoadedMsg{detail}
	}
}

// Update handles messages.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.list.SetSize(msg.Width, msg.Height-2)
		return a, nil

	case executionsLoadedMsg:
		a.err = nil
		items := make([]list.Item, len(msg.items))
		for i, e := range msg.items {
			items[i] = item{exec: e}
		}
		a.list.SetItems(items)
		return a, nil

	case detailLoadedMsg:
		a.detail = msg.detail
		a.showing = true
		return a, nil

	case errMsg:
		a.err = msg.err
		return a, nil

	case tickMsg:
		cmds := []tea.Cmd{a.refresh(), tick()}
		if a.showing && a.detail != nil {
			cmds = append(cmds, a.loadDetail(a.detail.ID))
		}
		return a, tea.Batch(cmds...)

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			if a.showing {
				a.showing = false
				return a, nil
			}
			return a, tea.Quit
		case "r":
			return a, a.refresh()
		case "enter":
			if !a.showing {
				if sel, ok := a.list.SelectedItem().(item); ok {
					return a, a.loadDetail(sel.exec.ID)
				}
			}
		case "p":
			if a.showing && a.detail != nil {
				id := a.detail.ID
				return a, func() tea.Msg {
					if err := a.client.Pause(id); err != nil {
						return errMsg{err}
					}
					return tickMsg(time.Now())
				}
			}
		case "s":
			if a.showing && a.detail != nil {
				id := a.detail.ID
				return a, func() tea.Msg {
					if err := a.client.Resume(id); err != nil {
						return errMsg{err}
					}
					return tickMsg(time.Now())
				}
			}
		case "x":
			if a.showing && a.detail != nil {
				id := a.detail.ID
				return a, func() tea.Msg {
					if err := a.client.Cancel(id); err != nil {
						return errMsg{err}
					}
					return tickMsg(time.Now())
				}
			}
		}
	}

	var cmd tea.Cmd
	a.list, cmd = a.list.Update(msg)
	return a, cmd
}

// View renders the dashboard.
func (a *App) View() string {
	if a.err != nil {
		return fmt.Sprintf("Error: %v\n\nPress q to quit, r to retry.", a.err)
	}
	if a.showing && a.detail != nil {
		return a.detailView()
	}
	return a.list.View() + "\n" + helpStyle.Render("enter: detail • r: refresh • q: quit")
}

func (a *App) detailView() string {
	var b strings.Builder

	d := a.detail
	b.WriteString(detailTitleStyle.Render(fmt.Sprintf("Execution %s", d.ID)))
	b.WriteString(fmt.Sprintf("\n\nWorkflow: %s\nStatus:   %s\n", d.Workflow, formatStatus(d.Status)))
	if d.Error != "" {
		b.WriteString(fmt.Sprintf("Error:    %s\n", statusFailed.Render(d.Error)))
	}

	b.WriteString("\nSteps:\n")
	for i, step := range d.Steps {
		b.WriteString(fmt.Sprintf("  %d. %-10s %s\n", i+1, step.Agent, formatStatus(step.Status)))
	}

	b.WriteString("\n" + helpStyle.Render("p: pause • s: resume • x: cancel • q: back"))
	return b.String()
}
