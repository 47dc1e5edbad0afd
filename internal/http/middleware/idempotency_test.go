package middleware

import (
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestGetIdempotencyKey(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	if k, ok := GetIdempotencyKey(c); ok || k != "" {
		t.Fatalf("expected absent key, got %q ok=%v", k, ok)
	}

	c.Set(ctxKeyIdemKey, "ORD-7")
	if k, ok := GetIdempotencyKey(c); !ok || k != "ORD-7" {
		t.Fatalf("expected ORD-7, got %q ok=%v", k, ok)
	}

	// Wrong type stored under the key reads as absent.
	c.Set(ctxKeyIdemKey, 42)
	if _, ok := GetIdempotencyKey(c); ok {
		t.Fatal("non-string value must not report a key")
	}
}

func TestIdempotencyValidator_NoHeaderIsNoOp(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(IdempotencyValidator(IdempotencyOptions{}))
	r.POST("/accounts/:id/deposit", func(c *gin.Context) {
		if _, ok := GetIdempotencyKey(c); ok {
			t.Fatal("no header must leave no stashed key")
		}
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/accounts/a-1/deposit", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestIdempotencyValidator_StashesValidKey(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(IdempotencyValidator(IdempotencyOptions{}))
	var got string
	r.POST("/deposits", func(c *gin.Context) {
		got, _ = GetIdempotencyKey(c)
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/deposits", nil)
	req.Header.Set(HeaderIdempotencyKey, "base-1:WD")
	r.ServeHTTP(w, req)

	if got != "base-1:WD" {
		t.Fatalf("stashed key = %q; want base-1:WD (colon must be admitted)", got)
	}
}

func TestIdempotencyValidator_RejectsBadKeys(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(IdempotencyValidator(IdempotencyOptions{MaxLen: 16}))
	r.POST("/deposits", func(c *gin.Context) { c.Status(http.StatusOK) })

	cases := []struct {
		name string
		key  string
	}{
		{"illegal chars", "bad key with spaces"},
		{"too long", strings.Repeat("a", 17)},
		{"control chars", "x%0Ay"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/deposits", nil)
			req.Header.Set(HeaderIdempotencyKey, tc.key)
			r.ServeHTTP(w, req)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("status = %d; want 400", w.Code)
			}
			if !strings.Contains(w.Body.String(), "bad_idempotency_key") {
				t.Fatalf("body = %s", w.Body.String())
			}
		})
	}
}

func TestIdempotencyValidator_CustomPattern(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(IdempotencyValidator(IdempotencyOptions{Pattern: regexp.MustCompile(`^[0-9]+$`)}))
	r.POST("/deposits", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/deposits", nil)
	req.Header.Set(HeaderIdempotencyKey, "abc")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d; want 400 under digits-only pattern", w.Code)
	}
}
