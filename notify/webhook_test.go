package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestSend_PostsPayload(t *testing.T) {
	var got Request
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("expected json content type, got %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	notifier, err := New(Config{WebhookURL: server.URL})
	if err != nil {
		t.Fatalf("new notifier: %v", err)
	}

	req := Request{
		VendorEmail:     "plumber@example.com",
		PropertyAddress: "12 Canal St",
		LandlordName:    "Lena Landlord",
		IssueID:         "issue-1",
	}
	if err := notifier.Send(context.Background(), req); err != nil {
		t.Fatalf("send: %v", err)
	}
	if got != req {
		t.Fatalf("payload mismatch: got %+v want %+v", got, req)
	}
}

func TestSend_UpstreamFailureSurfacesBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("workflow disabled\n"))
	}))
	defer server.Close()

	notifier, err := New(Config{WebhookURL: server.URL})
	if err != nil {
		t.Fatalf("new notifier: %v", err)
	}

	err = notifier.Send(context.Background(), Request{IssueID: "issue-2"})
	if !errors.Is(err, ErrUpstream) {
		t.Fatalf("expected ErrUpstream, got %v", err)
	}
	if !strings.Contains(err.Error(), "workflow disabled") {
		t.Fatalf("expected upstream body in error, got %q", err.Error())
	}
}

func TestNew_RequiresURL(t *testing.T) {
	if _, err := New(Config{}); !errors.Is(err, ErrMissingURL) {
		t.Fatalf("expected ErrMissingURL, got %v", err)
	}
}
