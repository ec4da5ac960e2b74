package jwt

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestGenerateValidateRoundTrip(t *testing.T) {
	if err := Init("test-secret"); err != nil {
		t.Fatal(err)
	}

	token, err := Generate("u1", "carrier_01", RoleCarrier)
	if err != nil {
		t.Fatal(err)
	}

	claims, err := Validate(token)
	if err != nil {
		t.Fatal(err)
	}
	if claims.UserID != "u1" || claims.Username != "carrier_01" || claims.Role != RoleCarrier {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestValidateRejectsGarbage(t *testing.T) {
	if err := Init("test-secret"); err != nil {
		t.Fatal(err)
	}
	if _, err := Validate("not.a.token"); err == nil {
		t.Fatal("garbage token should not validate")
	}
}

func TestValidateRejectsWrongSecret(t *testing.T) {
	if err := Init("first-secret"); err != nil {
		t.Fatal(err)
	}
	token, err := Generate("u1", "driver_01", RoleDriver)
	if err != nil {
		t.Fatal(err)
	}

	if err := Init("second-secret"); err != nil {
		t.Fatal(err)
	}
	if _, err := Validate(token); err == nil {
		t.Fatal("token signed with a different secret should not validate")
	}
}

func TestInitRequiresSecret(t *testing.T) {
	if err := Init(""); err == nil {
		t.Fatal("empty secret should be rejected")
	}
}

func decodeErrorBody(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("expected application/json, got %q", ct)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("body is not JSON: %v", err)
	}
	return body["error"]
}

func TestRequireAuthRejectsWithJSON(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run without claims")
	})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	RequireAuth(next).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if msg := decodeErrorBody(t, rec); msg != "unauthorized" {
		t.Fatalf("unexpected error message %q", msg)
	}
}

func TestRequireRoleForbidsWithJSON(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run for the wrong role")
	})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(WithClaims(req.Context(), &Claims{UserID: "u1", Role: RoleDriver}))

	RequireRole(RoleAdmin)(next).ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
	if msg := decodeErrorBody(t, rec); msg != "forbidden" {
		t.Fatalf("unexpected error message %q", msg)
	}
}

func TestRequireRolePassesMatchingRole(t *testing.T) {
	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true })
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(WithClaims(req.Context(), &Claims{UserID: "u1", Role: RoleAdmin}))

	RequireRole(RoleAdmin)(next).ServeHTTP(rec, req)

	if !called {
		t.Fatal("matching role must pass through")
	}
}

func TestParseRole(t *testing.T) {
	for _, r := range []string{"admin", "carrier", "driver"} {
		if _, err := ParseRole(r); err != nil {
			t.Errorf("%q should parse", r)
		}
	}
	if _, err := ParseRole("superuser"); err == nil {
		t.Error("unknown role should not parse")
	}
	if _, err := ParseRole(""); err == nil {
		t.Error("empty role should not parse")
	}
}
