package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/parvaraval45-arch/feedpulse-cloudfare/internal/classifier"
	"github.com/parvaraval45-arch/feedpulse-cloudfare/internal/feedback"
	"github.com/parvaraval45-arch/feedpulse-cloudfare/internal/models"
	"github.com/parvaraval45-arch/feedpulse-cloudfare/internal/query"
	"github.com/parvaraval45-arch/feedpulse-cloudfare/internal/seed"
	"github.com/parvaraval45-arch/feedpulse-cloudfare/internal/storage"
)

func newTestRouter(t *testing.T, store storage.Storage) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	items, err := seed.Default()
	if err != nil {
		t.Fatalf("seed.Default failed: %v", err)
	}
	logger := zap.NewNop()
	svc := feedback.NewService(store, classifier.NewKeywordClassifier(models.MaxThemes), feedback.Config{SeedItems: items}, logger)
	return NewRouter(NewHandler(svc, logger), nil, logger)
}

func doRequest(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) APIError {
	t.Helper()
	var env ErrorEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("Failed to decode error envelope %q: %v", rec.Body.String(), err)
	}
	return env.Error
}

func TestHealthCheck(t *testing.T) {
	r := newTestRouter(t, storage.NewMemoryStorage())
	rec := doRequest(r, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", rec.Code)
	}
	if rec.Header().Get(headerRequestID) == "" {
		t.Error("Expected a generated request id header")
	}
}

func TestRequestIDIsEchoed(t *testing.T) {
	r := newTestRouter(t, storage.NewMemoryStorage())
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(headerRequestID, "abc-123")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if got := rec.Header().Get(headerRequestID); got != "abc-123" {
		t.Errorf("Expected request id to be echoed, got %q", got)
	}
}

func TestCreateAndFetchFeedback(t *testing.T) {
	r := newTestRouter(t, storage.NewMemoryStorage())

	rec := doRequest(r, http.MethodPost, "/api/feedback", `{"content":"The app keeps crashing on login","source":"github"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var created models.Feedback
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("Failed to decode record: %v", err)
	}
	if created.ID != 1 || created.Source != models.SourceGitHub || created.Category != models.CategoryBug {
		t.Errorf("Unexpected record %+v", created)
	}

	rec = doRequest(r, http.MethodGet, "/api/feedback/1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}

	rec = doRequest(r, http.MethodPatch, "/api/feedback/1", `{"addressed":true}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}
	var updated models.Feedback
	_ = json.Unmarshal(rec.Body.Bytes(), &updated)
	if !updated.Addressed || updated.AddressedAt == nil {
		t.Errorf("Expected addressed record, got %+v", updated)
	}
}

func TestCreateFeedback_Validation(t *testing.T) {
	r := newTestRouter(t, storage.NewMemoryStorage())

	bodies := []string{
		`{"content":"","source":"github"}`,
		`{"content":"hello","source":"email"}`,
		`{"content":42,"source":"github"}`,
		`not json`,
	}
	for _, body := range bodies {
		rec := doRequest(r, http.MethodPost, "/api/feedback", body)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("Body %s: expected status 400, got %d", body, rec.Code)
			continue
		}
		if apiErr := decodeError(t, rec); apiErr.Code != codeValidation {
			t.Errorf("Body %s: expected validation code, got %+v", body, apiErr)
		}
	}
}

func TestRequestErrors(t *testing.T) {
	r := newTestRouter(t, storage.NewMemoryStorage())

	tests := []struct {
		method, path, body string
		status             int
		code               string
	}{
		{http.MethodGet, "/api/feedback/99", "", http.StatusNotFound, codeNotFound},
		{http.MethodGet, "/api/feedback/abc", "", http.StatusBadRequest, codeValidation},
		{http.MethodPatch, "/api/feedback/99", `{"addressed":true}`, http.StatusNotFound, codeNotFound},
		{http.MethodPatch, "/api/feedback/1", `{"addressed":"yes"}`, http.StatusBadRequest, codeValidation},
		{http.MethodPatch, "/api/feedback/1", `{}`, http.StatusBadRequest, codeValidation},
		{http.MethodGet, "/api/feedback?source=email", "", http.StatusBadRequest, codeValidation},
		{http.MethodGet, "/api/feedback?sentiment=angry", "", http.StatusBadRequest, codeValidation},
		{http.MethodGet, "/api/feedback?category=rant", "", http.StatusBadRequest, codeValidation},
		{http.MethodGet, "/api/feedback?priority=0", "", http.StatusBadRequest, codeValidation},
	}
	for _, tt := range tests {
		rec := doRequest(r, tt.method, tt.path, tt.body)
		if rec.Code != tt.status {
			t.Errorf("%s %s: expected status %d, got %d", tt.method, tt.path, tt.status, rec.Code)
			continue
		}
		if apiErr := decodeError(t, rec); apiErr.Code != tt.code {
			t.Errorf("%s %s: expected code %s, got %s", tt.method, tt.path, tt.code, apiErr.Code)
		}
	}
}

func TestSeedListAndAnalytics(t *testing.T) {
	r := newTestRouter(t, storage.NewMemoryStorage())

	rec := doRequest(r, http.MethodPost, "/api/seed", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}

	rec = doRequest(r, http.MethodGet, "/api/feedback?sentiment=negative&limit=5&page=2", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}
	var list query.Result
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("Failed to decode list: %v", err)
	}
	want := query.Pagination{Page: 2, Limit: 5, Total: 11, TotalPages: 3, HasNext: true, HasPrev: true}
	if list.Pagination != want {
		t.Errorf("Pagination = %+v, want %+v", list.Pagination, want)
	}
	if len(list.Records) != 5 {
		t.Errorf("Expected 5 records on page 2, got %d", len(list.Records))
	}

	rec = doRequest(r, http.MethodGet, "/api/feedback?priority=9", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected invalid priority filter to be rejected, got %d", rec.Code)
	}

	rec = doRequest(r, http.MethodGet, "/api/feedback?dateRange=1y&page=9223372036854775807&limit=100", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected huge page to succeed, got %d", rec.Code)
	}
	var far query.Result
	if err := json.Unmarshal(rec.Body.Bytes(), &far); err != nil {
		t.Fatalf("Failed to decode list: %v", err)
	}
	if len(far.Records) != 0 || far.Pagination.Total != 24 {
		t.Errorf("Expected empty page over all 24 records, got %d records of %d", len(far.Records), far.Pagination.Total)
	}

	for _, path := range []string{"/api/stats", "/api/insights", "/api/themes"} {
		rec = doRequest(r, http.MethodGet, path, "")
		if rec.Code != http.StatusOK {
			t.Errorf("%s: expected status 200, got %d", path, rec.Code)
		}
	}

	rec = doRequest(r, http.MethodGet, "/api/stats", "")
	var stats struct {
		Total              int            `json:"total"`
		SentimentBreakdown map[string]int `json:"sentimentBreakdown"`
	}
	_ = json.Unmarshal(rec.Body.Bytes(), &stats)
	if stats.Total != 24 || len(stats.SentimentBreakdown) != 3 {
		t.Errorf("Unexpected stats %+v", stats)
	}
}

func TestEmptyInsightsShape(t *testing.T) {
	r := newTestRouter(t, storage.NewMemoryStorage())

	rec := doRequest(r, http.MethodGet, "/api/insights", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	for _, fragment := range []string{`"mostUrgentIssue":null`, `"trendingTopic":null`, `"themeDistribution":[]`, `"trend":"stable"`} {
		if !strings.Contains(body, fragment) {
			t.Errorf("Expected %s in %s", fragment, body)
		}
	}
}

type brokenStore struct {
	*storage.MemoryStorage
}

func (brokenStore) All(context.Context) ([]*models.Feedback, error) {
	return nil, errors.New("pq: connection refused")
}

func TestStoreFailureIsGeneric(t *testing.T) {
	r := newTestRouter(t, brokenStore{storage.NewMemoryStorage()})

	rec := doRequest(r, http.MethodGet, "/api/stats", "")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("Expected status 500, got %d", rec.Code)
	}
	apiErr := decodeError(t, rec)
	if apiErr.Code != codeInternal || strings.Contains(apiErr.Message, "pq") {
		t.Errorf("Expected generic internal error, got %+v", apiErr)
	}
}

func TestCORSPreflight(t *testing.T) {
	r := newTestRouter(t, storage.NewMemoryStorage())

	req := httptest.NewRequest(http.MethodOptions, "/api/feedback", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("Expected status 204, got %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Expected wildcard allow-origin, got %q", got)
	}
}
