package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/audioquery/internal/models"
	"github.com/desertthunder/audioquery/internal/permissions"
	"github.com/desertthunder/audioquery/internal/plugin"
	"github.com/desertthunder/audioquery/internal/shared"
	tu "github.com/desertthunder/audioquery/internal/testing"
)

type stubCaller struct {
	resp  plugin.Response
	err   error
	calls []models.Call
}

func (s *stubCaller) Call(ctx context.Context, call models.Call) (plugin.Response, error) {
	s.calls = append(s.calls, call)
	return s.resp, s.err
}

func (s *stubCaller) Attached() bool { return true }

type stubResolver struct {
	pending []permissions.PendingRequest
	handled bool
	err     error
	got     []PermissionResult
}

func (s *stubResolver) Resolve(code int, granted bool) (bool, error) {
	s.got = append(s.got, PermissionResult{RequestCode: code, Granted: granted})
	return s.handled, s.err
}

func (s *stubResolver) Pending() []permissions.PendingRequest { return s.pending }

func do(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var out map[string]any
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
			t.Fatalf("failed to decode response %q: %v", rec.Body.String(), err)
		}
	}
	return rec, out
}

func errorCode(body map[string]any) string {
	e, _ := body["error"].(map[string]any)
	code, _ := e["code"].(string)
	return code
}

func TestBasicRouter(t *testing.T) {
	var order []string
	mw := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	r := NewBasicRouter()
	r.Use(mw("outer"), mw("inner"))
	r.Handle(http.MethodGet, "/ping", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("pong"))
	}))

	t.Run("middleware order", func(t *testing.T) {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
		if rec.Body.String() != "pong" {
			t.Errorf("body = %q", rec.Body.String())
		}
		if want := []string{"outer", "inner"}; !reflect.DeepEqual(order, want) {
			t.Errorf("order = %v, want %v", order, want)
		}
	})

	t.Run("wrong method", func(t *testing.T) {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/ping", nil))
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("status = %d, want 405", rec.Code)
		}
	})

	t.Run("patterns", func(t *testing.T) {
		if got := r.Patterns(); !reflect.DeepEqual(got, []string{"GET /ping"}) {
			t.Errorf("patterns = %v", got)
		}
	})
}

func TestCallHandler(t *testing.T) {
	logger := shared.NewLogger(io.Discard)

	t.Run("success", func(t *testing.T) {
		caller := &stubCaller{resp: plugin.Response{Value: []models.Record{{"name": "Rock"}}}}
		rec, body := do(t, NewRouter(caller, &stubResolver{}, time.Second, logger), http.MethodPost, "/call",
			`{"method":"getGenres","arguments":{"source":"genre","sort_type":0}}`)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, body %v", rec.Code, body)
		}
		if result, _ := body["result"].([]any); len(result) != 1 {
			t.Errorf("result = %v", body["result"])
		}
		if len(caller.calls) != 1 || caller.calls[0].Method != "getGenres" {
			t.Fatalf("calls = %+v", caller.calls)
		}
		if caller.calls[0].ID == "" || caller.calls[0].ID != rec.Header().Get(RequestIDHeader) {
			t.Errorf("call id %q does not match request id %q", caller.calls[0].ID, rec.Header().Get(RequestIDHeader))
		}
	})

	tests := []struct {
		name       string
		resp       plugin.Response
		body       string
		wantStatus int
		wantCode   string
	}{
		{
			name:       "not implemented",
			resp:       plugin.Response{Code: models.CodeNotImplemented, NotImplemented: true},
			body:       `{"method":"getLyrics","arguments":{"source":"song"}}`,
			wantStatus: http.StatusNotImplemented,
			wantCode:   models.CodeNotImplemented,
		},
		{
			name:       "busy",
			resp:       plugin.Response{Code: models.CodeAlreadyActive, Message: "busy"},
			body:       `{"method":"getSongs"}`,
			wantStatus: http.StatusConflict,
			wantCode:   models.CodeAlreadyActive,
		},
		{
			name:       "missing method",
			body:       `{"arguments":{}}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   models.CodeInvalidArgument,
		},
		{
			name:       "malformed body",
			body:       `{"method":`,
			wantStatus: http.StatusBadRequest,
			wantCode:   models.CodeInvalidArgument,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			caller := &stubCaller{resp: tt.resp}
			rec, body := do(t, NewCallHandler(caller, time.Second, logger), http.MethodPost, "/call", tt.body)
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if got := errorCode(body); got != tt.wantCode {
				t.Errorf("code = %q, want %q", got, tt.wantCode)
			}
		})
	}

	t.Run("timeout", func(t *testing.T) {
		caller := &stubCaller{err: shared.ErrTimeout}
		rec, _ := do(t, NewCallHandler(caller, time.Second, logger), http.MethodPost, "/call", `{"method":"getSongs"}`)
		if rec.Code != http.StatusGatewayTimeout {
			t.Errorf("status = %d, want 504", rec.Code)
		}
	})
}

func TestPermissionHandler(t *testing.T) {
	logger := shared.NewLogger(io.Discard)

	t.Run("list pending", func(t *testing.T) {
		res := &stubResolver{pending: []permissions.PendingRequest{{Code: 1, Permission: permissions.ReadExternalStorage}}}
		rec, body := do(t, NewPermissionHandler(res, logger), http.MethodGet, "/permission", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		if pending, _ := body["pending"].([]any); len(pending) != 1 {
			t.Errorf("pending = %v", body["pending"])
		}
	})

	t.Run("resolve", func(t *testing.T) {
		res := &stubResolver{handled: true}
		rec, body := do(t, NewPermissionHandler(res, logger), http.MethodPost, "/permission", `{"request_code":2,"granted":true}`)
		if rec.Code != http.StatusOK || body["handled"] != true {
			t.Fatalf("status = %d, body %v", rec.Code, body)
		}
		if want := []PermissionResult{{RequestCode: 2, Granted: true}}; !reflect.DeepEqual(res.got, want) {
			t.Errorf("resolved %v, want %v", res.got, want)
		}
	})

	t.Run("nothing pending", func(t *testing.T) {
		res := &stubResolver{err: permissions.ErrNoPendingRequest}
		rec, _ := do(t, NewPermissionHandler(res, logger), http.MethodPost, "/permission", `{"request_code":1,"granted":false}`)
		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", rec.Code)
		}
	})
}

func TestRecover(t *testing.T) {
	h := Recover(shared.NewLogger(io.Discard))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec, body := do(t, h, http.MethodGet, "/", "")
	if rec.Code != http.StatusInternalServerError || errorCode(body) != "INTERNAL" {
		t.Errorf("status = %d, body %v", rec.Code, body)
	}
}

func TestServerWithPlugin(t *testing.T) {
	s := tu.SetupStore(t)
	lib := tu.SeedLibrary(t, s)
	logger := shared.NewLogger(io.Discard)

	pc := shared.PermissionsConfig{Read: true, OnRequest: shared.PolicyPrompt}
	perms := permissions.NewManager(pc, logger)
	p := plugin.New(s, perms, shared.DefaultConfig(), logger)
	if err := p.Attach(context.Background()); err != nil {
		t.Fatalf("failed to attach: %v", err)
	}
	defer p.Detach()

	srv := httptest.NewServer(NewRouter(p, perms, 2*time.Second, logger))
	defer srv.Close()

	post := func(path, body string) (int, map[string]any) {
		resp, err := http.Post(srv.URL+path, "application/json", strings.NewReader(body))
		if err != nil {
			t.Fatalf("POST %s failed: %v", path, err)
		}
		defer resp.Body.Close()
		var out map[string]any
		json.NewDecoder(resp.Body).Decode(&out)
		return resp.StatusCode, out
	}

	status, body := post("/call", `{"method":"getSongsById","arguments":{"source":"song","song_ids":["`+lib.Songs["Dusk"]+`"]}}`)
	if status != http.StatusOK {
		t.Fatalf("status = %d, body %v", status, body)
	}
	songs, _ := body["result"].([]any)
	if len(songs) != 1 || songs[0].(map[string]any)["title"] != "Dusk" {
		t.Errorf("result = %v", body["result"])
	}

	// The write permission is not granted, so the call blocks until an operator answers.
	done := make(chan map[string]any, 1)
	go func() {
		_, body := post("/call", `{"method":"createPlaylist","arguments":{"source":"playlist","method_type":1,"playlist_name":"Served"}}`)
		done <- body
	}()

	deadline := time.Now().Add(2 * time.Second)
	for len(perms.Pending()) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("permission was never requested")
		}
		time.Sleep(5 * time.Millisecond)
	}

	status, body = post("/permission", `{"request_code":2,"granted":false}`)
	if status != http.StatusOK {
		t.Fatalf("resolve status = %d, body %v", status, body)
	}

	select {
	case body := <-done:
		if errorCode(body) != models.CodePermissionDenied {
			t.Errorf("held call replied %v", body)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("held call never replied")
	}
}
