package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"shiftline-backend/pkg/config"
	"shiftline-backend/pkg/database"
	"shiftline-backend/pkg/models"
	"shiftline-backend/pkg/payments"
)

// stubGateway answers like a processor that confirms everything.
type stubGateway struct{}

func (stubGateway) CreateCheckoutSession(ctx context.Context, org *models.Organization, plan models.Plan) (*payments.LaunchSession, error) {
	return &payments.LaunchSession{SessionID: "cs_stub", URL: "https://checkout.example/cs_stub"}, nil
}

func (stubGateway) FinalizeCheckout(ctx context.Context, checkoutSessionID string) (*payments.FinalizeResult, error) {
	return &payments.FinalizeResult{Paid: true, CustomerID: "cus_stub", SubscriptionID: "sub_stub", Status: "active"}, nil
}

func (stubGateway) SubscriptionState(ctx context.Context, org *models.Organization) (models.SubscriptionState, error) {
	return models.SubscriptionState{Status: models.SubStatusActive, Active: true}, nil
}

func (stubGateway) BillingPortalURL(ctx context.Context, org *models.Organization) (string, error) {
	return "https://billing.example/portal", nil
}

func testConfig() *config.Config {
	return &config.Config{
		Environment:     "test",
		Port:            "0",
		JWTSecret:       "router-test-secret",
		AllowedOrigins:  []string{"*"},
		PollInterval:    10 * time.Millisecond,
		PollMaxDuration: time.Second,
		FinalizeTimeout: time.Second,
		AdvanceDelay:    10 * time.Millisecond,
	}
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func doJSON(t *testing.T, server *httptest.Server, method, path, token string, body interface{}) (*http.Response, envelope) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	} else {
		buf.WriteString("{}")
	}

	req, err := http.NewRequest(method, server.URL+path, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := server.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("decode envelope for %s %s: %v", method, path, err)
	}
	return resp, env
}

func TestOnboardingEndToEnd(t *testing.T) {
	db := database.NewLocalDatabase(t.TempDir())
	router := NewRouter(testConfig(), db, stubGateway{})
	server := httptest.NewServer(router)
	defer server.Close()

	// Start a session.
	resp, env := doJSON(t, server, http.MethodPost, "/api/onboarding/session", "", map[string]string{"role": "manager"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("start session status = %d", resp.StatusCode)
	}
	var started struct {
		Token   string `json:"token"`
		Session struct {
			ID string `json:"id"`
		} `json:"session"`
	}
	if err := json.Unmarshal(env.Data, &started); err != nil {
		t.Fatalf("decode session: %v", err)
	}
	if started.Token == "" {
		t.Fatal("no token issued")
	}
	token := started.Token

	// Flow resolves at step 1.
	resp, env = doJSON(t, server, http.MethodGet, "/api/onboarding/flow", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get flow status = %d", resp.StatusCode)
	}
	var flowState struct {
		Step     int    `json:"step"`
		View     string `json:"view"`
		UILocked bool   `json:"ui_locked"`
	}
	json.Unmarshal(env.Data, &flowState)
	if flowState.Step != 1 || !flowState.UILocked {
		t.Errorf("flow = %+v, want step 1 with lock held", flowState)
	}

	// Create and commit an intent.
	resp, env = doJSON(t, server, http.MethodPost, "/api/onboarding/intents", token,
		map[string]string{"name": "Casa Verde", "location": "Lisbon", "timezone": "Europe/Lisbon"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create intent status = %d", resp.StatusCode)
	}
	var intentResp struct {
		Intent struct {
			ID string `json:"id"`
		} `json:"intent"`
	}
	json.Unmarshal(env.Data, &intentResp)

	resp, env = doJSON(t, server, http.MethodPost,
		fmt.Sprintf("/api/onboarding/intents/%s/commit", intentResp.Intent.ID), token,
		map[string]bool{"defer_billing_check": true})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("commit intent status = %d", resp.StatusCode)
	}
	var commitResp struct {
		Organization struct {
			ID             string `json:"id"`
			RestaurantCode string `json:"restaurant_code"`
		} `json:"organization"`
	}
	json.Unmarshal(env.Data, &commitResp)
	if commitResp.Organization.RestaurantCode == "" {
		t.Fatal("no restaurant code on committed tenant")
	}

	// A second commit of the same intent is rejected.
	resp, _ = doJSON(t, server, http.MethodPost,
		fmt.Sprintf("/api/onboarding/intents/%s/commit", intentResp.Intent.ID), token,
		map[string]bool{"defer_billing_check": true})
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("second commit status = %d, want 404", resp.StatusCode)
	}

	// Settings batch.
	resp, env = doJSON(t, server, http.MethodPost, "/api/onboarding/settings/batch", token, map[string]interface{}{
		"week_start_day": "monday",
		"staff":          []map[string]string{{"name": "Ana", "email": "ana@example.com"}},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("settings batch status = %d", resp.StatusCode)
	}
	var report struct {
		Succeeded []string `json:"succeeded"`
		Failed    []string `json:"failed"`
	}
	json.Unmarshal(env.Data, &report)
	if len(report.Failed) != 0 || len(report.Succeeded) != 2 {
		t.Errorf("batch report = %+v", report)
	}

	// Checkout and the redirect callback.
	resp, _ = doJSON(t, server, http.MethodPost, "/api/onboarding/checkout/session", token,
		map[string]string{"plan": "monthly"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("checkout session status = %d", resp.StatusCode)
	}

	resp, env = doJSON(t, server, http.MethodPost, "/api/onboarding/checkout/callback", token,
		map[string]string{"outcome": "success", "session_id": "cs_stub", "intent_id": intentResp.Intent.ID})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("callback status = %d", resp.StatusCode)
	}
	var checkoutStatus struct {
		State string `json:"state"`
	}
	json.Unmarshal(env.Data, &checkoutStatus)
	if checkoutStatus.State != "activated" {
		t.Errorf("state = %q, want activated", checkoutStatus.State)
	}
}

func TestAuthRequired(t *testing.T) {
	db := database.NewLocalDatabase(t.TempDir())
	router := NewRouter(testConfig(), db, stubGateway{})
	server := httptest.NewServer(router)
	defer server.Close()

	resp, env := doJSON(t, server, http.MethodGet, "/api/onboarding/flow", "", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
	if env.Error == nil || env.Error.Code != "UNAUTHORIZED" {
		t.Errorf("error = %+v", env.Error)
	}

	resp, _ = doJSON(t, server, http.MethodGet, "/api/onboarding/flow", "garbage-token", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("garbage token status = %d, want 401", resp.StatusCode)
	}
}

func TestCancelCallbackIsNotAnError(t *testing.T) {
	db := database.NewLocalDatabase(t.TempDir())
	router := NewRouter(testConfig(), db, stubGateway{})
	server := httptest.NewServer(router)
	defer server.Close()

	_, env := doJSON(t, server, http.MethodPost, "/api/onboarding/session", "", map[string]string{"role": "manager"})
	var started struct {
		Token string `json:"token"`
	}
	json.Unmarshal(env.Data, &started)

	resp, env := doJSON(t, server, http.MethodPost, "/api/onboarding/checkout/callback", started.Token,
		map[string]string{"outcome": "cancel"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("cancel callback status = %d, want 200", resp.StatusCode)
	}
	var status struct {
		State string `json:"state"`
	}
	json.Unmarshal(env.Data, &status)
	if status.State != "canceled" {
		t.Errorf("state = %q, want canceled", status.State)
	}
}

func TestUnknownRoute(t *testing.T) {
	db := database.NewLocalDatabase(t.TempDir())
	router := NewRouter(testConfig(), db, stubGateway{})
	server := httptest.NewServer(router)
	defer server.Close()

	resp, env := doJSON(t, server, http.MethodGet, "/api/nope", "", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
	if env.Error == nil || env.Error.Code != "NOT_FOUND" {
		t.Errorf("error = %+v", env.Error)
	}
}
