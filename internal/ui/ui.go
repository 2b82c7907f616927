package ui

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/audioquery/internal/permissions"
)

const pollInterval = time.Second

// PermissionSource lists and answers the requests a server holds for an operator.
type PermissionSource interface {
	Pending(ctx context.Context) ([]permissions.PendingRequest, error)
	Resolve(ctx context.Context, code int, granted bool) (bool, error)
}

// PermissionModel is the operator console for the "prompt" permission policy.
type PermissionModel struct {
	ctx     context.Context
	source  PermissionSource
	width   int
	height  int
	list    list.Model
	pending []permissions.PendingRequest
	status  string
	err     error
	help    help.Model
	keys    keyMap
}

// NewPermissionModel creates a console polling source for pending requests.
func NewPermissionModel(ctx context.Context, source PermissionSource) *PermissionModel {
	l := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	l.Title = "Pending permission requests"
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)

	return &PermissionModel{
		ctx:    ctx,
		source: source,
		list:   l,
		help:   help.New(),
		keys:   newKeyMap(),
	}
}

// Init fetches the pending requests and starts polling.
func (m *PermissionModel) Init() tea.Cmd {
	return tea.Batch(m.fetchPending(), tick())
}

// Update handles incoming messages and updates the model state.
func (m *PermissionModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.list.SetSize(msg.Width-4, msg.Height-8)
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.refresh):
			return m, m.fetchPending()
		case key.Matches(msg, m.keys.grant):
			return m, m.resolveSelected(true)
		case key.Matches(msg, m.keys.deny):
			return m, m.resolveSelected(false)
		}

	case tickMsg:
		return m, tea.Batch(m.fetchPending(), tick())

	case pendingFetchedMsg:
		m.err = msg.err
		if msg.err == nil {
			m.setPending(msg.pending)
		}
		return m, nil

	case resolvedMsg:
		m.err = msg.err
		if msg.err == nil {
			verb := "denied"
			if msg.granted {
				verb = "granted"
			}
			m.status = fmt.Sprintf("%s %s (request code %d)", verb, msg.request.Permission, msg.request.Code)
		}
		return m, m.fetchPending()
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m *PermissionModel) setPending(pending []permissions.PendingRequest) {
	m.pending = pending
	items := make([]list.Item, len(pending))
	for i, p := range pending {
		items[i] = pendingItem{request: p}
	}
	m.list.SetItems(items)
}

// Selected returns the highlighted request, if any.
func (m *PermissionModel) Selected() (permissions.PendingRequest, bool) {
	item, ok := m.list.SelectedItem().(pendingItem)
	if !ok {
		return permissions.PendingRequest{}, false
	}
	return item.request, true
}

// View renders the pending list, the last outcome and the key help.
func (m *PermissionModel) View() string {
	body := m.list.View()
	if len(m.pending) == 0 {
		body = styles.Title("Pending permission requests") + "\n" + styles.Help("Nothing is waiting for an answer.")
	}

	var status string
	switch {
	case m.err != nil:
		status = styles.Err(fmt.Sprintf("Error: %v", m.err))
	case m.status != "":
		status = styles.OK(m.status)
	}

	return fmt.Sprintf("%s\n\n%s\n\n%s", body, status, m.help.ShortHelpView(m.keys.ShortHelp()))
}

func (m *PermissionModel) fetchPending() tea.Cmd {
	return func() tea.Msg {
		pending, err := m.source.Pending(m.ctx)
		return pendingFetchedMsg{pending: pending, err: err}
	}
}

func (m *PermissionModel) resolveSelected(granted bool) tea.Cmd {
	req, ok := m.Selected()
	if !ok {
		return nil
	}
	return func() tea.Msg {
		handled, err := m.source.Resolve(m.ctx, req.Code, granted)
		return resolvedMsg{request: req, granted: granted, handled: handled, err: err}
	}
}

func tick() tea.Cmd {
	return tea.Tick(pollInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}
