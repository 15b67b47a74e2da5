// Package testutil holds request and JSON helpers shared by handler tests.
package testutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
)

func NewTestRequest(method, target string, body io.Reader) *http.Request {
	return httptest.NewRequest(method, target, body)
}

// NewTestRequestWithJSON encodes body and sets the JSON content type.
func NewTestRequestWithJSON(t *testing.T, method, target string, body any) *http.Request {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("encoding request body: %v", err)
	}
	req := httptest.NewRequest(method, target, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func ParseJSONResponse(t *testing.T, body []byte) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatalf("decoding response %q: %v", body, err)
	}
	return out
}

func AssertStatusCode(t *testing.T, rr *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rr.Code != want {
		t.Fatalf("expected status %d, got %d (body %s)", want, rr.Code, rr.Body.String())
	}
}

// AssertJSONContains checks a top-level key, comparing values by their
// printed form so numbers and strings compare without type juggling.
func AssertJSONContains(t *testing.T, body []byte, key string, want any) {
	t.Helper()
	got, ok := ParseJSONResponse(t, body)[key]
	if !ok {
		t.Fatalf("expected key %q in %s", key, body)
	}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Fatalf("expected %s=%v, got %v", key, want, got)
	}
}

func RandomUUID() uuid.UUID {
	return uuid.New()
}

func RandomEmail() string {
	return fmt.Sprintf("user-%s@example.com", uuid.NewString()[:8])
}

// RandomUID returns a document-store style user id.
func RandomUID() string {
	return uuid.NewString()
}
