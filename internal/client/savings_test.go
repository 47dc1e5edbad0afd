package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/mkurosawa/go-deposit-backend/internal/services"
)

var _ services.SavingsLedger = (*Savings)(nil)

func TestSavings_Withdraw_SendsKeyAndToken(t *testing.T) {
	var gotPath, gotKey, gotAuth string
	var gotBody map[string]decimal.Decimal

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get(HeaderIdempotencyKey)
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_ = json.NewEncoder(w).Encode(map[string]any{"id": "a-1", "balance": "58.00"})
	}))
	defer srv.Close()

	c := NewSavings(srv.URL, srv.Client())
	ctx := WithToken(context.Background(), "tok-123")

	snap, err := c.Withdraw(ctx, "a-1", decimal.RequireFromString("42.00"), "K:WD")
	if err != nil {
		t.Fatalf("Withdraw: %v", err)
	}
	if gotPath != "/accounts/a-1/withdraw" {
		t.Fatalf("path = %q", gotPath)
	}
	if gotKey != "K:WD" {
		t.Fatalf("Idempotency-Key = %q; want K:WD", gotKey)
	}
	if gotAuth != "Bearer tok-123" {
		t.Fatalf("Authorization = %q", gotAuth)
	}
	if !gotBody["amount"].Equal(decimal.RequireFromString("42.00")) {
		t.Fatalf("amount = %s", gotBody["amount"])
	}
	if !snap.Balance.Equal(decimal.RequireFromString("58.00")) {
		t.Fatalf("balance = %s", snap.Balance)
	}
}

func TestSavings_Deposit_NoKeyHeaderWhenBlank(t *testing.T) {
	var keyPresent bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, keyPresent = r.Header[HeaderIdempotencyKey]
		_ = json.NewEncoder(w).Encode(map[string]any{"id": "a-1", "balance": "10.00"})
	}))
	defer srv.Close()

	c := NewSavings(srv.URL, srv.Client())
	if _, err := c.Deposit(context.Background(), "a-1", decimal.RequireFromString("10"), ""); err != nil {
		t.Fatalf("Deposit: %v", err)
	}
	if keyPresent {
		t.Fatal("blank key must not produce an Idempotency-Key header")
	}
}

func TestSavings_StatusMapping(t *testing.T) {
	cases := []struct {
		status int
		want   error
	}{
		{http.StatusNotFound, services.ErrAccountNotFound},
		{http.StatusConflict, services.ErrInsufficientFunds},
	}
	for _, tc := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
			_ = json.NewEncoder(w).Encode(map[string]string{"code": "x", "message": "y"})
		}))
		c := NewSavings(srv.URL, srv.Client())
		_, err := c.Withdraw(context.Background(), "a-1", decimal.New(1, 0), "k")
		if !errors.Is(err, tc.want) {
			t.Errorf("status %d: err = %v; want %v", tc.status, err, tc.want)
		}
		srv.Close()
	}
}

func TestSavings_UnknownStatusIsStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(map[string]string{"code": "downstream", "message": "boom"})
	}))
	defer srv.Close()

	c := NewSavings(srv.URL, srv.Client())
	_, err := c.Deposit(context.Background(), "a-1", decimal.New(1, 0), "k")

	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("err = %v; want *StatusError", err)
	}
	if se.Status != http.StatusServiceUnavailable || se.Code != "downstream" {
		t.Fatalf("StatusError = %+v", se)
	}
}

func TestSavings_CreateAccountAndGet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/accounts":
			var body map[string]string
			_ = json.NewDecoder(r.Body).Decode(&body)
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(map[string]any{"id": "a-9", "owner": body["owner"], "balance": "0"})
		case r.Method == http.MethodGet && r.URL.Path == "/accounts/a-9":
			_ = json.NewEncoder(w).Encode(map[string]any{"id": "a-9", "owner": "dana", "balance": "0"})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := NewSavings(srv.URL, srv.Client())
	snap, err := c.CreateAccount(context.Background(), "dana")
	if err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}
	if snap.ID != "a-9" || snap.Owner != "dana" {
		t.Fatalf("snapshot = %+v", snap)
	}

	got, err := c.Get(context.Background(), "a-9")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.ID != "a-9" {
		t.Fatalf("got = %+v", got)
	}
}
