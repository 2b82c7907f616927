// Package permissions models the runtime storage permissions guarding the media index.
//
// A [Manager] starts from the grants in [shared.PermissionsConfig]. Requests for anything not
// yet granted are answered according to the on_request policy: "grant" and "deny" answer
// right away on another goroutine, "prompt" holds the request until [Manager.Resolve] is
// called by an operator (over HTTP or the CLI).
package permissions

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/audioquery/internal/shared"
)

// Permission names.
const (
	ReadExternalStorage  = "READ_EXTERNAL_STORAGE"
	WriteExternalStorage = "WRITE_EXTERNAL_STORAGE"
)

// Request codes tying an asynchronous result back to its request.
const (
	ReadRequestCode  = 0x01
	WriteRequestCode = 0x02
)

var ErrNoPendingRequest = errors.New("no pending permission request")

// Service checks and requests permissions. Request returns immediately; the outcome arrives
// later through whatever listener the implementation was given.
type Service interface {
	IsGranted(name string) bool
	Request(name string, code int)
}

// ResultListener receives the outcome of a request and reports whether it handled the code.
type ResultListener func(code int, granted bool) bool

// PendingRequest is a request waiting on [Manager.Resolve].
type PendingRequest struct {
	Code       int    `json:"request_code"`
	Permission string `json:"permission"`
}

// Manager implements [Service] from configuration.
type Manager struct {
	logger *log.Logger
	policy string

	mu       sync.Mutex
	granted  map[string]bool
	pending  map[int]string
	listener ResultListener
}

// NewManager creates a manager seeded with the grants in c.
func NewManager(c shared.PermissionsConfig, logger *log.Logger) *Manager {
	policy := c.OnRequest
	if policy == "" {
		policy = shared.PolicyPrompt
	}

	m := &Manager{
		logger:  logger,
		policy:  policy,
		granted: map[string]bool{},
		pending: map[int]string{},
	}
	m.granted[ReadExternalStorage] = c.Read
	m.granted[WriteExternalStorage] = c.Write
	return m
}

// SetListener sets the function told about every resolved request.
func (m *Manager) SetListener(fn ResultListener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listener = fn
}

func (m *Manager) IsGranted(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.granted[name]
}

// Request records a pending request for name under code and applies the on_request policy.
// A newer request with the same code replaces the older one.
func (m *Manager) Request(name string, code int) {
	m.mu.Lock()
	m.pending[code] = name
	m.mu.Unlock()

	switch m.policy {
	case shared.PolicyGrant:
		go m.answer(code, true)
	case shared.PolicyDeny:
		go m.answer(code, false)
	default:
		m.logger.Info("permission request waiting for operator", "permission", name, "request_code", code)
	}
}

func (m *Manager) answer(code int, granted bool) {
	if _, err := m.Resolve(code, granted); err != nil {
		m.logger.Warn("permission answer dropped", "request_code", code, "error", err)
	}
}

// Resolve answers the pending request for code. A grant is remembered for later checks.
//
// It returns what the listener reported, or [ErrNoPendingRequest] when nothing waits on code.
func (m *Manager) Resolve(code int, granted bool) (bool, error) {
	m.mu.Lock()
	name, ok := m.pending[code]
	if !ok {
		m.mu.Unlock()
		return false, fmt.Errorf("%w: request code %d", ErrNoPendingRequest, code)
	}
	delete(m.pending, code)
	if granted {
		m.granted[name] = true
	}
	listener := m.listener
	m.mu.Unlock()

	m.logger.Info("permission resolved", "permission", name, "granted", granted)
	if listener == nil {
		return false, nil
	}
	return listener(code, granted), nil
}

// Cancel forgets the request held under code without answering it.
func (m *Manager) Cancel(code int) bool {
	m.mu.Lock()
	name, ok := m.pending[code]
	delete(m.pending, code)
	m.mu.Unlock()

	if ok {
		m.logger.Info("permission request cancelled", "permission", name, "request_code", code)
	}
	return ok
}

// Pending lists the requests waiting on [Manager.Resolve], ordered by code.
func (m *Manager) Pending() []PendingRequest {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]PendingRequest, 0, len(m.pending))
	for code, name := range m.pending {
		out = append(out, PendingRequest{Code: code, Permission: name})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// Revoke withdraws a grant.
func (m *Manager) Revoke(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.granted[name] = false
}
