package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/taskfleet/deployer-backend/pkg/domain/entities"

	"github.com/google/uuid"
)

func TestWebhookNotifierPostsRecord(t *testing.T) {
	var received entities.DeploymentRecord
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	record := entities.DeploymentRecord{
		ID:      uuid.New(),
		FleetID: "web-fleet",
		Outcome: entities.OutcomeSuccess,
	}
	n := NewWebhookNotifier(srv.URL, srv.Client())
	if err := n.Notify(context.Background(), record); err != nil {
		t.Fatalf("Notify returned error: %v", err)
	}
	if received.ID != record.ID {
		t.Fatalf("expected record %s delivered, got %s", record.ID, received.ID)
	}
}

func TestWebhookNotifierReportsHTTPErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(srv.URL, srv.Client())
	if err := n.Notify(context.Background(), entities.DeploymentRecord{}); err == nil {
		t.Fatal("expected an error for a 502 response")
	}
}
