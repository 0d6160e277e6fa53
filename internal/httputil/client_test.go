package httputil

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
)

func TestNewStandardClient(t *testing.T) {
	if NewStandardClient(nil) != http.DefaultClient {
		t.Error("nil client should fall back to http.DefaultClient")
	}
	custom := &http.Client{}
	if NewStandardClient(custom) != custom {
		t.Error("expected custom client to be returned")
	}
}

func TestMockHTTPClientReplaysResponses(t *testing.T) {
	mock := NewMockHTTPClient().
		AddResponse(http.StatusCreated, `{"id":"a"}`).
		AddError(errors.New("connection refused"))

	req, _ := http.NewRequest(http.MethodPost, "http://nocap.local/api/recordings", strings.NewReader("payload"))
	resp, err := mock.Do(req)
	if err != nil {
		t.Fatalf("Do failed: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusCreated || string(body) != `{"id":"a"}` {
		t.Errorf("got %d %q", resp.StatusCode, body)
	}

	req2, _ := http.NewRequest(http.MethodGet, "http://nocap.local/api/recordings", nil)
	if _, err := mock.Do(req2); err == nil || err.Error() != "connection refused" {
		t.Errorf("expected queued error, got %v", err)
	}

	resp, err = mock.Do(req2)
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Errorf("expected default 200, got %v %v", resp, err)
	}

	if mock.RequestCount() != 3 {
		t.Errorf("RequestCount() = %d, want 3", mock.RequestCount())
	}
	got, gotBody := mock.Request(0)
	if got.Method != http.MethodPost || string(gotBody) != "payload" {
		t.Errorf("Request(0) = %s %q", got.Method, gotBody)
	}
	if r, _ := mock.Request(9); r != nil {
		t.Error("out of range request should be nil")
	}
}
