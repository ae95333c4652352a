package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/realmeet/slot-booking/internal/model"
	"github.com/realmeet/slot-booking/internal/utils"
)

const testSecret = "test-secret"

func runJWTAuth(t *testing.T, authorization string) (*httptest.ResponseRecorder, echo.Context) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/me", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	h := JWTAuth(testSecret)(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	if err := h(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	return rec, c
}

func TestJWTAuthStoresTypedClaims(t *testing.T) {
	tok, err := utils.NewAccessToken(testSecret, 7, model.RoleUser, 15)
	if err != nil {
		t.Fatalf("NewAccessToken: %v", err)
	}

	rec, c := runJWTAuth(t, "Bearer "+tok.Token)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	uid, ok := c.Get(ctxUserID).(uint64)
	if !ok || uid != 7 {
		t.Errorf("user_id = %v (%T), want uint64 7", c.Get(ctxUserID), c.Get(ctxUserID))
	}
	if role, _ := c.Get(ctxRole).(string); role != model.RoleUser {
		t.Errorf("role = %q, want %q", role, model.RoleUser)
	}
}

func TestJWTAuthRejectsBadTokens(t *testing.T) {
	wrongKey, err := utils.NewAccessToken("other-secret", 7, model.RoleUser, 15)
	if err != nil {
		t.Fatalf("NewAccessToken: %v", err)
	}

	cases := []struct {
		name          string
		authorization string
	}{
		{"missing header", ""},
		{"no bearer prefix", "Token abc"},
		{"garbage token", "Bearer not.a.jwt"},
		{"wrong signing key", "Bearer " + wrongKey.Token},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec, _ := runJWTAuth(t, tc.authorization)
			if rec.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want 401", rec.Code)
			}
		})
	}
}

func TestSubjectID(t *testing.T) {
	if id, ok := subjectID(float64(42)); !ok || id != 42 {
		t.Errorf("float64 subject = %d/%v, want 42/true", id, ok)
	}
	if id, ok := subjectID("42"); !ok || id != 42 {
		t.Errorf("string subject = %d/%v, want 42/true", id, ok)
	}
	for _, v := range []interface{}{float64(0), "0", "abc", nil, true} {
		if _, ok := subjectID(v); ok {
			t.Errorf("subjectID(%v) accepted, want rejection", v)
		}
	}
}
