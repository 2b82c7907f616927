package ui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/audioquery/internal/scanner"
	"github.com/desertthunder/audioquery/internal/tasks"
)

// ScanFunc runs a scan, sending progress on the channel.
type ScanFunc func(ctx context.Context, prog chan<- tasks.ProgressUpdate) (*scanner.Result, error)

// ScanModel follows a running scan.
type ScanModel struct {
	ctx          context.Context
	cancel       context.CancelFunc
	run          ScanFunc
	spinner      spinner.Model
	progressChan chan tasks.ProgressUpdate
	progress     tasks.ProgressUpdate
	failed       int
	done         bool
	result       *scanner.Result
	err          error
	help         help.Model
	keys         keyMap
}

func NewScanModel(ctx context.Context, run ScanFunc) *ScanModel {
	ctx, cancel := context.WithCancel(ctx)
	s := spinner.New()
	s.Spinner = spinner.Dot

	return &ScanModel{
		ctx:     ctx,
		cancel:  cancel,
		run:     run,
		spinner: s,
		help:    help.New(),
		keys:    newKeyMap(),
	}
}

// Result returns the finished scan's result and error.
func (m *ScanModel) Result() (*scanner.Result, error) {
	return m.result, m.err
}

// Init starts the scan.
func (m *ScanModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.startScan())
}

// Update handles incoming messages and updates the model state.
func (m *ScanModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if key.Matches(msg, m.keys.quit) {
			m.cancel()
			if m.done {
				return m, tea.Quit
			}
		}
		return m, nil

	case progressUpdateMsg:
		m.progress = tasks.ProgressUpdate(msg)
		if _, ok := m.progress.Data.(error); ok {
			m.failed++
		}
		return m, m.waitForProgress()

	case scanCompleteMsg:
		m.done = true
		m.result = msg.result
		m.err = msg.err
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View renders the current phase or the final summary.
func (m *ScanModel) View() string {
	if m.done {
		if m.err != nil {
			return styles.Err(fmt.Sprintf("Scan failed: %v", m.err)) + "\n"
		}
		return styles.OK(Summary(m.result)) + "\n"
	}

	title := styles.Title("Scanning library")

	var phase string
	switch m.progress.Phase {
	case tasks.ScanWalk:
		phase = "Walking folders..."
	case tasks.ScanIndex:
		phase = fmt.Sprintf("Indexing (%d/%d)", m.progress.Step, m.progress.Total)
	case tasks.ScanArtwork:
		phase = "Extracting artwork..."
	case tasks.ScanPrune:
		phase = "Pruning missing files..."
	}

	var failed string
	if m.failed > 0 {
		failed = "\n" + styles.Warn(fmt.Sprintf("%d files failed", m.failed))
	}

	helpView := m.help.ShortHelpView([]key.Binding{m.keys.quit})
	return fmt.Sprintf("%s\n%s %s\n%s%s\n\n%s", title, m.spinner.View(), phase, m.progress.Message, failed, helpView)
}

// Summary describes a finished scan in one line.
func Summary(r *scanner.Result) string {
	if r == nil {
		return "No scan result"
	}
	return fmt.Sprintf("✓ Indexed %d of %d files (%d failed, %d artwork extracted, %d pruned)",
		r.Indexed, r.Found, len(r.Failed), r.Artwork, r.Pruned)
}

func (m *ScanModel) startScan() tea.Cmd {
	m.progressChan = make(chan tasks.ProgressUpdate, 50)

	go func() {
		result, err := m.run(m.ctx, m.progressChan)
		m.result = result
		m.err = err
		close(m.progressChan)
	}()

	return m.waitForProgress()
}

func (m *ScanModel) waitForProgress() tea.Cmd {
	ch := m.progressChan
	return func() tea.Msg {
		update, ok := <-ch
		if !ok {
			return scanCompleteMsg{result: m.result, err: m.err}
		}
		return progressUpdateMsg(update)
	}
}
