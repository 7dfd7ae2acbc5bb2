package auth

import (
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stellarcompass/compass/pkg/logger"
)

func TestMain(m *testing.M) {
	if err := logger.Init(); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func testService(t *testing.T) *Service {
	t.Helper()
	svc, err := NewService(&Config{
		Secret:     "0123456789abcdef0123456789abcdef",
		Issuer:     "stellar-compass",
		Audience:   "compass-admin",
		Expiration: time.Hour,
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestNewService_RejectsShortSecret(t *testing.T) {
	if _, err := NewService(&Config{Secret: "short"}); err == nil {
		t.Fatal("expected error for short secret")
	}
	if _, err := NewService(&Config{}); err == nil {
		t.Fatal("expected error for empty secret")
	}
}

func TestGenerateAndValidateToken(t *testing.T) {
	svc := testService(t)

	token, err := svc.GenerateToken("admin")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	claims, err := svc.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if claims.Subject != "admin" {
		t.Errorf("Subject = %q; want admin", claims.Subject)
	}
}

func TestValidateToken_WrongSecret(t *testing.T) {
	svc := testService(t)
	other, err := NewService(&Config{
		Secret:     "ffffffffffffffffffffffffffffffff",
		Issuer:     "stellar-compass",
		Audience:   "compass-admin",
		Expiration: time.Hour,
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	token, _ := svc.GenerateToken("admin")
	if _, err := other.ValidateToken(token); err == nil {
		t.Fatal("token signed with a different secret must not validate")
	}
}

func TestMiddleware(t *testing.T) {
	svc := testService(t)
	token, _ := svc.GenerateToken("admin")

	handler := svc.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := FromContext(r.Context()); !ok {
			t.Error("claims missing from request context")
		}
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"valid bearer", "Bearer " + token, http.StatusNoContent},
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized},
		{"garbage token", "Bearer not.a.jwt", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPut, "/api/admin/settings", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("status = %d; want %d", rec.Code, tt.want)
			}
		})
	}
}
