package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"

	"mozhi/pkg/storage"
	"mozhi/pkg/store"
	"mozhi/services/world/internal/app"
)

func newTestServer(t *testing.T, objects storage.ObjectStore) http.Handler {
	t.Helper()
	a, err := app.New(app.Config{Store: store.NewMemoryStore(), Objects: objects})
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	srv, err := New(Config{App: a})
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	return srv.Router()
}

type envelope struct {
	Success   bool             `json:"success"`
	Code      *int             `json:"code"`
	Message   string           `json:"message"`
	Result    json.RawMessage  `json:"result"`
	ErrorCode string           `json:"error_code"`
	Details   []app.FieldError `json:"details"`
	Timestamp int64            `json:"timestamp"`
}

func doJSON(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	var env envelope
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
			t.Fatalf("decode %s %s response: %v (%s)", method, path, err, rec.Body.String())
		}
	}
	return rec, env
}

func resultID(t *testing.T, env envelope) int64 {
	t.Helper()
	var v struct {
		ID int64 `json:"id"`
	}
	if err := json.Unmarshal(env.Result, &v); err != nil || v.ID == 0 {
		t.Fatalf("result has no id: %s (%v)", env.Result, err)
	}
	return v.ID
}

func TestSystemEndpoints(t *testing.T) {
	h := newTestServer(t, nil)

	rec, _ := doJSON(t, h, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Fatalf("health: %d %s", rec.Code, rec.Body.String())
	}
	rec, _ = doJSON(t, h, http.MethodGet, "/db/check", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"db":"ok"`) {
		t.Fatalf("db check: %d %s", rec.Code, rec.Body.String())
	}
	rec, _ = doJSON(t, h, http.MethodGet, "/", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "message") {
		t.Fatalf("root: %d %s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("X-Request-Id") == "" {
		t.Fatalf("expected X-Request-Id header")
	}
}

func TestListUsersEmptyEnvelope(t *testing.T) {
	h := newTestServer(t, nil)
	rec, env := doJSON(t, h, http.MethodGet, "/users", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	if !env.Success || env.Code == nil || *env.Code != 0 || env.Message == "" || env.Timestamp == 0 {
		t.Fatalf("unexpected envelope %+v", env)
	}
	if string(env.Result) != "[]" {
		t.Fatalf("result = %s, want []", env.Result)
	}
}

func TestValidationErrors(t *testing.T) {
	h := newTestServer(t, nil)

	rec, env := doJSON(t, h, http.MethodPost, "/users", `{"name": 5}`)
	if rec.Code != http.StatusUnprocessableEntity || env.ErrorCode != "VALIDATION_ERROR" || env.Success {
		t.Fatalf("type error: %d %+v", rec.Code, env)
	}
	if env.Message != "Validation error" {
		t.Fatalf("message = %q", env.Message)
	}
	if len(env.Details) != 1 || strings.Join(env.Details[0].Loc, ".") != "body.name" {
		t.Fatalf("details: %+v", env.Details)
	}

	rec, env = doJSON(t, h, http.MethodPost, "/users", `{}`)
	if rec.Code != http.StatusUnprocessableEntity || len(env.Details) != 1 || env.Details[0].Loc[1] != "name" {
		t.Fatalf("missing name: %d %+v", rec.Code, env)
	}

	rec, env = doJSON(t, h, http.MethodPost, "/users", `{"name":`)
	if rec.Code != http.StatusUnprocessableEntity || env.ErrorCode != "VALIDATION_ERROR" {
		t.Fatalf("bad json: %d %+v", rec.Code, env)
	}

	rec, env = doJSON(t, h, http.MethodGet, "/users/abc", "")
	if rec.Code != http.StatusUnprocessableEntity || env.Details[0].Loc[0] != "path" {
		t.Fatalf("bad path id: %d %+v", rec.Code, env)
	}
}

func TestUnknownRouteAndMethod(t *testing.T) {
	h := newTestServer(t, nil)
	rec, env := doJSON(t, h, http.MethodGet, "/nope", "")
	if rec.Code != http.StatusNotFound || env.ErrorCode != "HTTP_EXCEPTION" || env.Success {
		t.Fatalf("404: %d %+v", rec.Code, env)
	}
	rec, env = doJSON(t, h, http.MethodPatch, "/users", "")
	if rec.Code != http.StatusMethodNotAllowed || env.ErrorCode != "HTTP_EXCEPTION" {
		t.Fatalf("405: %d %+v", rec.Code, env)
	}
}

func TestBookScopedFlow(t *testing.T) {
	h := newTestServer(t, nil)

	_, env := doJSON(t, h, http.MethodPost, "/users", `{"name":"author"}`)
	userID := resultID(t, env)
	rec, env := doJSON(t, h, http.MethodPost, "/books", fmt.Sprintf(`{"user_id":%d,"name":"Journey","slug":"journey"}`, userID))
	if rec.Code != http.StatusCreated {
		t.Fatalf("create book: %d %s", rec.Code, rec.Body.String())
	}
	book1 := resultID(t, env)
	_, env = doJSON(t, h, http.MethodPost, "/books", fmt.Sprintf(`{"user_id":%d,"name":"Other","slug":"other"}`, userID))
	book2 := resultID(t, env)

	rec, _ = doJSON(t, h, http.MethodPost, "/books", fmt.Sprintf(`{"user_id":%d,"name":"Again","slug":"journey"}`, userID))
	if rec.Code != http.StatusConflict {
		t.Fatalf("duplicate slug: %d %s", rec.Code, rec.Body.String())
	}

	_, env = doJSON(t, h, http.MethodPost, fmt.Sprintf("/books/%d/characters", book1), `{"name":"Lin","age":17}`)
	lin := resultID(t, env)
	_, env = doJSON(t, h, http.MethodPost, fmt.Sprintf("/books/%d/characters", book2), `{"name":"Stranger"}`)
	stranger := resultID(t, env)

	rec, env = doJSON(t, h, http.MethodPost, fmt.Sprintf("/books/%d/relationships", book1),
		fmt.Sprintf(`{"source_id":%d,"target_id":%d}`, lin, stranger))
	if rec.Code != http.StatusUnprocessableEntity || len(env.Details) == 0 || env.Details[0].Loc[1] != "target_id" {
		t.Fatalf("cross-book relationship: %d %+v", rec.Code, env)
	}

	rec, _ = doJSON(t, h, http.MethodGet, fmt.Sprintf("/books/%d/characters/%d", book2, lin), "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("character through other book: %d", rec.Code)
	}

	rec, env = doJSON(t, h, http.MethodPut, fmt.Sprintf("/books/%d/characters/%d", book1, lin), `{"name":"Lin Feng"}`)
	if rec.Code != http.StatusOK || !strings.Contains(string(env.Result), `"Lin Feng"`) || !strings.Contains(string(env.Result), `"age":null`) {
		t.Fatalf("full-row update: %d %s", rec.Code, env.Result)
	}

	_, env = doJSON(t, h, http.MethodPost, fmt.Sprintf("/books/%d/events", book1), `{"title":"Trial"}`)
	eventID := resultID(t, env)
	rec, env = doJSON(t, h, http.MethodPost, fmt.Sprintf("/books/%d/acquisitions", book1),
		fmt.Sprintf(`{"event_id":%d,"character_id":%d,"kind":"skill","custom_name":"Wind Step","beast_pet_id":3}`, eventID, lin))
	if rec.Code != http.StatusUnprocessableEntity || env.Details[0].Loc[1] != "target" {
		t.Fatalf("two targets: %d %+v", rec.Code, env)
	}
	rec, env = doJSON(t, h, http.MethodPost, fmt.Sprintf("/books/%d/acquisitions", book1),
		fmt.Sprintf(`{"event_id":%d,"character_id":%d,"kind":"skill","custom_name":%q}`, eventID, lin, strings.Repeat("风", 129)))
	if rec.Code != http.StatusUnprocessableEntity || env.ErrorCode != "VALIDATION_ERROR" || env.Details[0].Loc[1] != "custom_name" {
		t.Fatalf("long custom name: %d %+v", rec.Code, env)
	}
	rec, env = doJSON(t, h, http.MethodPost, fmt.Sprintf("/books/%d/acquisitions", book1),
		fmt.Sprintf(`{"event_id":%d,"character_id":%d,"kind":"skill","custom_name":"Wind Step"}`, eventID, lin))
	if rec.Code != http.StatusCreated || !strings.Contains(string(env.Result), `"target_type":"custom"`) {
		t.Fatalf("acquisition: %d %s", rec.Code, rec.Body.String())
	}
	rec, env = doJSON(t, h, http.MethodGet, fmt.Sprintf("/books/%d/events/%d/acquisitions", book1, eventID), "")
	if rec.Code != http.StatusOK || !strings.Contains(string(env.Result), "Wind Step") {
		t.Fatalf("event acquisitions: %d %s", rec.Code, env.Result)
	}

	rec, env = doJSON(t, h, http.MethodPost, fmt.Sprintf("/books/%d/locations", book1), `{"name":"Azure","level":"moon"}`)
	if rec.Code != http.StatusUnprocessableEntity || env.Details[0].Loc[1] != "level" {
		t.Fatalf("bad level: %d %+v", rec.Code, env)
	}

	rec, _ = doJSON(t, h, http.MethodDelete, fmt.Sprintf("/books/%d", book1), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("delete book: %d", rec.Code)
	}
	rec, _ = doJSON(t, h, http.MethodGet, fmt.Sprintf("/books/%d/characters", book1), "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("characters of deleted book: %d", rec.Code)
	}
}

func coverRequest(t *testing.T, path, contentType string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	hdr := make(textproto.MIMEHeader)
	hdr.Set("Content-Disposition", `form-data; name="file"; filename="cover.png"`)
	hdr.Set("Content-Type", contentType)
	part, err := mw.CreatePart(hdr)
	if err != nil {
		t.Fatalf("create part: %v", err)
	}
	_, _ = part.Write(data)
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}
	req := httptest.NewRequest(http.MethodPut, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestCoverEndpoints(t *testing.T) {
	disabled := newTestServer(t, nil)
	rec := httptest.NewRecorder()
	disabled.ServeHTTP(rec, coverRequest(t, "/books/1/cover", "image/png", []byte("png")))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("disabled storage: %d %s", rec.Code, rec.Body.String())
	}

	h := newTestServer(t, storage.NewMemoryObjectStore())
	_, env := doJSON(t, h, http.MethodPost, "/users", `{"name":"author"}`)
	userID := resultID(t, env)
	_, env = doJSON(t, h, http.MethodPost, "/books", fmt.Sprintf(`{"user_id":%d,"name":"Covered","slug":"covered"}`, userID))
	bookID := resultID(t, env)
	path := fmt.Sprintf("/books/%d/cover", bookID)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, coverRequest(t, path, "text/plain", []byte("hi")))
	if rec.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("text cover: %d %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, coverRequest(t, path, "image/png", []byte("png-bytes")))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), path) {
		t.Fatalf("upload: %d %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	if rec.Code != http.StatusFound || !strings.HasPrefix(rec.Header().Get("Location"), "memory://") {
		t.Fatalf("get cover: %d %q", rec.Code, rec.Header().Get("Location"))
	}
}

func TestSuggestionSearchLimits(t *testing.T) {
	h := newTestServer(t, nil)
	rec, _ := doJSON(t, h, http.MethodPost, "/suggestions", `{"type":"realm","name":"Qi Refining","language":"en","popularity":3}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", rec.Code, rec.Body.String())
	}
	rec, env := doJSON(t, h, http.MethodGet, "/suggestions?type=realm&q=refin", "")
	if rec.Code != http.StatusOK || !strings.Contains(string(env.Result), "Qi Refining") {
		t.Fatalf("search: %d %s", rec.Code, env.Result)
	}
	rec, env = doJSON(t, h, http.MethodGet, "/suggestions?limit=1000", "")
	if rec.Code != http.StatusUnprocessableEntity || env.Details[0].Loc[0] != "query" {
		t.Fatalf("limit bound: %d %+v", rec.Code, env)
	}
}

func TestRateLimit(t *testing.T) {
	redis := miniredis.RunT(t)
	a, err := app.New(app.Config{Store: store.NewMemoryStore()})
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	srv, err := New(Config{App: a, RedisAddr: redis.Addr(), RateLimitPerMinute: 1})
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	defer srv.Close()
	h := srv.Router()

	rec, _ := doJSON(t, h, http.MethodGet, "/users", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("first request: %d", rec.Code)
	}
	rec, env := doJSON(t, h, http.MethodGet, "/users", "")
	if rec.Code != http.StatusTooManyRequests || env.ErrorCode != "HTTP_EXCEPTION" {
		t.Fatalf("second request: %d %+v", rec.Code, env)
	}
	rec, _ = doJSON(t, h, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("health under limit: %d", rec.Code)
	}
}

func TestNewRejectsBadProxyCIDR(t *testing.T) {
	a, err := app.New(app.Config{Store: store.NewMemoryStore()})
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	if _, err := New(Config{App: a, TrustedProxyCIDRs: []string{"not-a-cidr"}}); err == nil {
		t.Fatalf("expected error for bad proxy CIDR")
	}
}
