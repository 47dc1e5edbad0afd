package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/mkurosawa/go-deposit-backend/internal/domain"
	"github.com/mkurosawa/go-deposit-backend/internal/http/middleware"
	"github.com/mkurosawa/go-deposit-backend/internal/services"
)

type ledgerCall struct {
	id     string
	amount decimal.Decimal
	key    string
}

type fakeAccountSvc struct {
	snap        *domain.AccountSnapshot
	err         error
	deposits    []ledgerCall
	withdrawals []ledgerCall
}

func (f *fakeAccountSvc) Create(ctx context.Context, owner string) (*domain.AccountSnapshot, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &domain.AccountSnapshot{ID: "a-1", Owner: owner, Balance: decimal.Zero}, nil
}

func (f *fakeAccountSvc) Get(ctx context.Context, id string) (*domain.AccountSnapshot, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.snap, nil
}

func (f *fakeAccountSvc) Deposit(ctx context.Context, id string, amount decimal.Decimal, key string) (*domain.AccountSnapshot, error) {
	f.deposits = append(f.deposits, ledgerCall{id, amount, key})
	if f.err != nil {
		return nil, f.err
	}
	return f.snap, nil
}

func (f *fakeAccountSvc) Withdraw(ctx context.Context, id string, amount decimal.Decimal, key string) (*domain.AccountSnapshot, error) {
	f.withdrawals = append(f.withdrawals, ledgerCall{id, amount, key})
	if f.err != nil {
		return nil, f.err
	}
	return f.snap, nil
}

func accountRouter(svc AccountService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.IdempotencyValidator(middleware.IdempotencyOptions{}))
	h := NewAccountHandlers(svc)
	r.POST("/accounts", h.CreateAccount)
	r.GET("/accounts/:id", h.GetAccount)
	r.POST("/accounts/:id/deposit", h.Deposit)
	r.POST("/accounts/:id/withdraw", h.Withdraw)
	return r
}

func TestCreateAccount_Created(t *testing.T) {
	r := accountRouter(&fakeAccountSvc{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/accounts", strings.NewReader(`{"owner":"alice"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d; body = %s", w.Code, w.Body.String())
	}
	var got domain.AccountSnapshot
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Owner != "alice" || !got.Balance.IsZero() {
		t.Fatalf("snapshot = %+v", got)
	}
}

func TestCreateAccount_Errors(t *testing.T) {
	cases := []struct {
		name       string
		body       string
		svcErr     error
		wantStatus int
		wantCode   string
	}{
		{"invalid json", `{`, nil, http.StatusBadRequest, ErrCodeBadRequest},
		{"missing owner", `{}`, nil, http.StatusBadRequest, ErrCodeBadRequest},
		{"owner rejected by service", `{"owner":"x"}`, services.ErrOwnerRequired, http.StatusBadRequest, ErrCodeValidation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := accountRouter(&fakeAccountSvc{err: tc.svcErr})
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/accounts", strings.NewReader(tc.body))
			req.Header.Set("Content-Type", "application/json")
			r.ServeHTTP(w, req)

			if w.Code != tc.wantStatus {
				t.Fatalf("status = %d; want %d (%s)", w.Code, tc.wantStatus, w.Body.String())
			}
			if !strings.Contains(w.Body.String(), tc.wantCode) {
				t.Fatalf("body = %s; want code %s", w.Body.String(), tc.wantCode)
			}
		})
	}
}

func TestGetAccount(t *testing.T) {
	bal := decimal.RequireFromString("12.34")
	svc := &fakeAccountSvc{snap: &domain.AccountSnapshot{ID: "a-1", Owner: "bob", Balance: bal}}
	r := accountRouter(svc)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/accounts/a-1", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	svc.err = services.ErrAccountNotFound
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/accounts/missing", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d; want 404", w.Code)
	}
	if !strings.Contains(w.Body.String(), ErrCodeNotFound) {
		t.Fatalf("body = %s", w.Body.String())
	}
}

func TestDeposit_PassesAmountAndKey(t *testing.T) {
	svc := &fakeAccountSvc{snap: &domain.AccountSnapshot{ID: "a-1", Balance: decimal.RequireFromString("50.00")}}
	r := accountRouter(svc)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/accounts/a-1/deposit", strings.NewReader(`{"amount":"50.00"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.HeaderIdempotencyKey, "K-1")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d; body = %s", w.Code, w.Body.String())
	}
	if len(svc.deposits) != 1 {
		t.Fatalf("deposit calls = %d", len(svc.deposits))
	}
	call := svc.deposits[0]
	if call.id != "a-1" || !call.amount.Equal(decimal.RequireFromString("50.00")) || call.key != "K-1" {
		t.Fatalf("call = %+v", call)
	}
}

func TestWithdraw_ErrorMapping(t *testing.T) {
	cases := []struct {
		name       string
		svcErr     error
		wantStatus int
		wantCode   string
	}{
		{"insufficient funds", services.ErrInsufficientFunds, http.StatusConflict, ErrCodeInsufficientFunds},
		{"invalid amount", services.ErrInvalidAmount, http.StatusBadRequest, ErrCodeValidation},
		{"account missing", services.ErrAccountNotFound, http.StatusNotFound, ErrCodeNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := accountRouter(&fakeAccountSvc{err: tc.svcErr})
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/accounts/a-1/withdraw", strings.NewReader(`{"amount":"10"}`))
			req.Header.Set("Content-Type", "application/json")
			r.ServeHTTP(w, req)

			if w.Code != tc.wantStatus || !strings.Contains(w.Body.String(), tc.wantCode) {
				t.Fatalf("status = %d body = %s; want %d %s", w.Code, w.Body.String(), tc.wantStatus, tc.wantCode)
			}
		})
	}
}

func TestWithdraw_NoKeyHeaderMeansBlankKey(t *testing.T) {
	svc := &fakeAccountSvc{snap: &domain.AccountSnapshot{ID: "a-1", Balance: decimal.Zero}}
	r := accountRouter(svc)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/accounts/a-1/withdraw", strings.NewReader(`{"amount":"1"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if len(svc.withdrawals) != 1 || svc.withdrawals[0].key != "" {
		t.Fatalf("withdrawals = %+v; want one call with blank key", svc.withdrawals)
	}
}
