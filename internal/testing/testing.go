// package testing contains shared testing utilities
package testing

import (
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"sync"
	"testing"
	"time"
)

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// RecordingReply is a [models.Reply] that records every delivery.
//
// Calls counts all deliveries so tests can check a reply happened exactly once.
type RecordingReply struct {
	mu      sync.Mutex
	done    chan struct{}
	once    sync.Once
	calls   int
	value   any
	code    string
	message string
	details any
	notImpl bool
}

func NewRecordingReply() *RecordingReply {
	return &RecordingReply{done: make(chan struct{})}
}

func (r *RecordingReply) record(fn func()) {
	r.mu.Lock()
	r.calls++
	if r.calls == 1 {
		fn()
	}
	r.mu.Unlock()
	r.once.Do(func() { close(r.done) })
}

func (r *RecordingReply) Success(value any) {
	r.record(func() { r.value = value })
}

func (r *RecordingReply) Error(code, message string, details any) {
	r.record(func() { r.code, r.message, r.details = code, message, details })
}

func (r *RecordingReply) NotImplemented() {
	r.record(func() { r.notImpl = true })
}

// Wait blocks until the first delivery or fails the test after timeout.
func (r *RecordingReply) Wait(t *testing.T, timeout time.Duration) {
	t.Helper()
	select {
	case <-r.done:
	case <-time.After(timeout):
		t.Fatalf("no reply delivered within %v", timeout)
	}
}

// Delivered reports whether any delivery happened.
func (r *RecordingReply) Delivered() bool {
	select {
	case <-r.done:
		return true
	default:
		return false
	}
}

func (r *RecordingReply) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func (r *RecordingReply) Value() any {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.value
}

// ErrorCode returns the delivered error code, or "" for successes.
func (r *RecordingReply) ErrorCode() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.code
}

func (r *RecordingReply) Message() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.message
}

func (r *RecordingReply) IsNotImplemented() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.notImpl
}

// StubPermissions is a permission service with fixed grants that records requests.
type StubPermissions struct {
	mu       sync.Mutex
	Granted  map[string]bool
	Requests []PermissionRequest
}

type PermissionRequest struct {
	Name string
	Code int
}

func NewStubPermissions(granted ...string) *StubPermissions {
	s := &StubPermissions{Granted: map[string]bool{}}
	for _, name := range granted {
		s.Granted[name] = true
	}
	return s
}

func (s *StubPermissions) IsGranted(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Granted[name]
}

func (s *StubPermissions) Request(name string, code int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Requests = append(s.Requests, PermissionRequest{Name: name, Code: code})
}

func (s *StubPermissions) RequestCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Requests)
}

// WritePNG writes a solid w×h PNG to path.
func WritePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 40, B: 90, A: 255})
		}
	}

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("Failed to create %s: %v", path, err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("Failed to encode PNG: %v", err)
	}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
