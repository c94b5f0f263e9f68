package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"feedback-portal/internal/domain"
)

func TestListFeedback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/prod/getfeedback2" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"feedbacks":[{"id":"1","name":"John Doe","rating":"5","submittedAt":"2024-05-01T10:00:00Z"}]}`))
	}))
	defer srv.Close()

	client, err := New(srv.URL + "/prod/")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	records, err := client.ListFeedback(context.Background())
	if err != nil {
		t.Fatalf("ListFeedback: %v", err)
	}
	if len(records) != 1 || records[0].Name != "John Doe" || records[0].SubmittedAt != "2024-05-01T10:00:00Z" {
		t.Fatalf("unexpected records: %+v", records)
	}
}

func TestListFeedbackNon2xxIsFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client, _ := New(srv.URL)
	_, err := client.ListFeedback(context.Background())
	var upErr *domain.UpstreamError
	if !errors.As(err, &upErr) {
		t.Fatalf("expected UpstreamError, got %v", err)
	}
	if upErr.Status != http.StatusBadGateway {
		t.Fatalf("status = %d", upErr.Status)
	}
}

func TestListFeedbackEmptyBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	client, _ := New(srv.URL)
	records, err := client.ListFeedback(context.Background())
	if err != nil {
		t.Fatalf("ListFeedback: %v", err)
	}
	if records == nil || len(records) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", records)
	}
}

func TestLoginPassesRoleAndDecodesUser(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/login" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req loginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode: %v", err)
		}
		if req.Role != domain.RoleTrainer || req.Email != "t@example.com" {
			t.Errorf("unexpected payload %+v", req)
		}
		_, _ = w.Write([]byte(`{"user":{"id":"u1","name":"Tina","email":"t@example.com","role":"trainer"},"token":"abc"}`))
	}))
	defer srv.Close()

	client, _ := New(srv.URL)
	res, err := client.Login(context.Background(), domain.Credentials{Email: "t@example.com", Password: "secret1", Role: domain.RoleTrainer})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if res.Account.ID != "u1" || res.Account.Role != domain.RoleTrainer || res.Token != "abc" {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestSubmitFeedbackPassesUpstreamMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/submit-feedback" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message":"duplicate submission"}`))
	}))
	defer srv.Close()

	client, _ := New(srv.URL)
	err := client.SubmitFeedback(context.Background(), domain.FeedbackSubmission{Name: "a"})
	var upErr *domain.UpstreamError
	if !errors.As(err, &upErr) {
		t.Fatalf("expected UpstreamError, got %v", err)
	}
	if upErr.Message != "duplicate submission" {
		t.Fatalf("message = %q", upErr.Message)
	}
}
