package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/audioquery/internal/models"
	"github.com/desertthunder/audioquery/internal/permissions"
	"github.com/desertthunder/audioquery/internal/plugin"
	"github.com/desertthunder/audioquery/internal/shared"
)

const (
	maxBodyBytes       = 1 << 20
	defaultCallTimeout = 30 * time.Second
)

// Caller runs a call and waits for its response.
type Caller interface {
	Call(ctx context.Context, call models.Call) (plugin.Response, error)
	Attached() bool
}

// Resolver answers permission requests held for an operator.
type Resolver interface {
	Resolve(code int, granted bool) (bool, error)
	Pending() []permissions.PendingRequest
}

// ErrorBody is the "error" member of a failed reply.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
	Details any    `json:"details,omitempty"`
}

// PermissionResult is the body of POST /permission.
type PermissionResult struct {
	RequestCode int  `json:"request_code"`
	Granted     bool `json:"granted"`
}

// StatusFor maps a reply error code to an HTTP status.
func StatusFor(code string) int {
	switch code {
	case models.CodeNotImplemented:
		return http.StatusNotImplemented
	case models.CodePluginDetached:
		return http.StatusServiceUnavailable
	case models.CodeAlreadyActive, models.CodePlaylistNameExists:
		return http.StatusConflict
	case models.CodePermissionDenied:
		return http.StatusForbidden
	case models.CodeNoSource, models.CodeUnknownSource, models.CodeInvalidArgument, models.CodeNoID,
		models.CodeNoArtistIDs, models.CodeNoAlbumIDs, models.CodeNoSongIDs, models.CodeNoPlaylistIDs,
		models.CodeInvalidPlaylistName, models.CodeSongSwapNullID:
		return http.StatusBadRequest
	case models.CodeUnavailablePlaylist:
		return http.StatusNotFound
	default:
		return http.StatusUnprocessableEntity
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string, details any) {
	writeJSON(w, status, map[string]any{"error": ErrorBody{Code: code, Message: message, Details: details}})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}
	return nil
}

// CallHandler serves POST /call.
type CallHandler struct {
	caller  Caller
	timeout time.Duration
	logger  *log.Logger
}

// NewCallHandler creates a handler waiting at most timeout for each reply. A non-positive
// timeout means 30 seconds.
func NewCallHandler(caller Caller, timeout time.Duration, logger *log.Logger) *CallHandler {
	if timeout <= 0 {
		timeout = defaultCallTimeout
	}
	return &CallHandler{caller: caller, timeout: timeout, logger: logger}
}

func (h *CallHandler) Routes() []string {
	return []string{"POST /call"}
}

func (h *CallHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var call models.Call
	if err := decodeBody(w, r, &call); err != nil {
		writeError(w, http.StatusBadRequest, models.CodeInvalidArgument, err.Error(), nil)
		return
	}
	if call.Method == "" {
		writeError(w, http.StatusBadRequest, models.CodeInvalidArgument, "method is required", nil)
		return
	}
	if call.Arguments == nil {
		call.Arguments = map[string]any{}
	}
	if call.ID == "" {
		call.ID = r.Header.Get(RequestIDHeader)
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	resp, err := h.caller.Call(ctx, call)
	if err != nil {
		h.logger.Warn("call did not complete", "id", call.ID, "method", call.Method, "error", err)
		writeError(w, http.StatusGatewayTimeout, "TIMEOUT", err.Error(), nil)
		return
	}

	if resp.Failed() {
		writeError(w, StatusFor(resp.Code), resp.Code, resp.Message, resp.Details)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"result": resp.Value})
}

// PermissionHandler serves GET and POST /permission.
type PermissionHandler struct {
	resolver Resolver
	logger   *log.Logger
}

func NewPermissionHandler(resolver Resolver, logger *log.Logger) *PermissionHandler {
	return &PermissionHandler{resolver: resolver, logger: logger}
}

func (h *PermissionHandler) Routes() []string {
	return []string{"GET /permission", "POST /permission"}
}

func (h *PermissionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet {
		writeJSON(w, http.StatusOK, map[string]any{"pending": h.resolver.Pending()})
		return
	}

	var result PermissionResult
	if err := decodeBody(w, r, &result); err != nil {
		writeError(w, http.StatusBadRequest, models.CodeInvalidArgument, err.Error(), nil)
		return
	}

	handled, err := h.resolver.Resolve(result.RequestCode, result.Granted)
	if errors.Is(err, permissions.ErrNoPendingRequest) {
		writeError(w, http.StatusNotFound, "NO_PENDING_REQUEST", err.Error(), nil)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "INTERNAL", err.Error(), nil)
		return
	}

	h.logger.Info("permission resolved by operator", "request_code", result.RequestCode, "granted", result.Granted)
	writeJSON(w, http.StatusOK, map[string]any{"handled": handled})
}

// HealthHandler serves GET /health.
type HealthHandler struct {
	caller Caller
}

func NewHealthHandler(caller Caller) *HealthHandler {
	return &HealthHandler{caller: caller}
}

func (h *HealthHandler) Routes() []string {
	return []string{"GET /health"}
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "attached": h.caller.Attached()})
}

// NewRouter wires every handler behind the request id, recovery and logging middleware.
func NewRouter(caller Caller, resolver Resolver, callTimeout time.Duration, logger *log.Logger) *BasicRouter {
	logger = shared.WithLogger(logger, "component", "server")

	r := NewBasicRouter()
	r.Use(RequestID(), Recover(logger), Logging(logger))
	r.Handler(NewCallHandler(caller, callTimeout, logger))
	r.Handler(NewPermissionHandler(resolver, logger))
	r.Handler(NewHealthHandler(caller))
	return r
}
