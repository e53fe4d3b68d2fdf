package httpapi

import (
	"net/http"
	"testing"

	"prostaff.org/internal/auth"
)

func TestHealthz(t *testing.T) {
	env := newTestEnv(t)
	resp := env.do(t, http.MethodGet, "/healthz", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	got := decode[map[string]any](t, resp)
	if got["status"] != "ok" {
		t.Fatalf("status field = %v", got["status"])
	}
}

func TestReadyWithoutDB(t *testing.T) {
	env := newTestEnv(t)
	resp := env.do(t, http.MethodGet, "/readyz", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestAuthTokenEndpoint(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodPost, "/v1/auth/token", "",
		map[string]any{"user": "w-1", "roles": []string{"worker"}})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	got := decode[tokenResponse](t, resp)
	if got.Token == "" {
		t.Fatal("empty token")
	}
	claims, err := auth.ParseAndValidate(got.Token)
	if err != nil {
		t.Fatalf("minted token does not validate: %v", err)
	}
	if claims.Subject != "w-1" {
		t.Fatalf("subject = %q, want w-1", claims.Subject)
	}

	for name, body := range map[string]map[string]any{
		"missing user":  {"roles": []string{"worker"}},
		"missing roles": {"user": "w-1"},
		"blank roles":   {"user": "w-1", "roles": []string{" "}},
	} {
		resp := env.do(t, http.MethodPost, "/v1/auth/token", "", body)
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("%s: status = %d, want 400", name, resp.StatusCode)
		}
		resp.Body.Close()
	}
}

func TestUnknownRouteIs404(t *testing.T) {
	env := newTestEnv(t)
	resp := env.do(t, http.MethodGet, "/v1/nope", bearerFor(t, "w-1", auth.RoleWorker), nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
	resp.Body.Close()
}
