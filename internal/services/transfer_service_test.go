package services

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/mkurosawa/go-deposit-backend/internal/domain"
)

// ----- Fake deposit creator -----

type fakeCreator struct {
	calls []struct {
		owner     string
		principal decimal.Decimal
		rate      decimal.Decimal
		termDays  int
	}
	err error
}

func (f *fakeCreator) Create(ctx context.Context, owner string, principal, annualRate decimal.Decimal, termDays int) (*domain.TimeDeposit, error) {
	f.calls = append(f.calls, struct {
		owner     string
		principal decimal.Decimal
		rate      decimal.Decimal
		termDays  int
	}{owner, principal, annualRate, termDays})
	if f.err != nil {
		return nil, f.err
	}
	return &domain.TimeDeposit{
		ID:        "td-new",
		Owner:     owner,
		Principal: domain.RoundMoney(principal),
		TermDays:  termDays,
		Status:    domain.StatusOpen,
	}, nil
}

func req(t *testing.T, from string) TransferRequest {
	t.Helper()
	return TransferRequest{
		FromAccountID: from,
		Owner:         "alice",
		Principal:     dec(t, "1000.00"),
		AnnualRate:    dec(t, "0.10"),
		TermDays:      365,
	}
}

func TestTransfer_HappyPath(t *testing.T) {
	l := &fakeLedger{}
	c := &fakeCreator{}
	s := NewTransferService(l, c)

	id, compensated, err := s.Transfer(context.Background(), req(t, "A1"), "K")
	if err != nil {
		t.Fatalf("Transfer: %v", err)
	}
	if compensated {
		t.Fatal("no compensation expected on success")
	}
	if id != "td-new" {
		t.Fatalf("deposit id = %q; want td-new", id)
	}

	if len(l.withdraws) != 1 {
		t.Fatalf("withdraw calls = %d; want 1", len(l.withdraws))
	}
	wd := l.withdraws[0]
	if wd.accountID != "A1" || !wd.amount.Equal(dec(t, "1000.00")) || wd.key != "K:WD" {
		t.Fatalf("unexpected withdraw: %+v", wd)
	}
	if len(l.deposits) != 0 {
		t.Fatalf("no compensation expected on success, got %d deposits", len(l.deposits))
	}
	if len(c.calls) != 1 || c.calls[0].owner != "alice" {
		t.Fatalf("unexpected create calls: %+v", c.calls)
	}
}

func TestTransfer_RequiresFundingAccount(t *testing.T) {
	l := &fakeLedger{}
	s := NewTransferService(l, &fakeCreator{})

	_, _, err := s.Transfer(context.Background(), req(t, ""), "K")
	if !errors.Is(err, ErrFundingRequired) {
		t.Fatalf("err = %v; want ErrFundingRequired", err)
	}
	if len(l.withdraws)+len(l.deposits) != 0 {
		t.Fatalf("no ledger calls expected")
	}
}

func TestCreateFunded_WithdrawFailure_FailsFast(t *testing.T) {
	boom := errors.New("insufficient funds downstream")
	l := &fakeLedger{withdrawErr: boom}
	c := &fakeCreator{}
	s := NewTransferService(l, c)

	_, compensated, err := s.CreateFunded(context.Background(), req(t, "A1"), "K")
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v; want the withdraw error", err)
	}
	if compensated {
		t.Fatalf("withdraw failure must not flag compensation")
	}
	if len(c.calls) != 0 {
		t.Fatalf("create must not run after failed withdraw")
	}
	if len(l.deposits) != 0 {
		t.Fatalf("no compensating deposit expected after failed withdraw")
	}
}

func TestCreateFunded_CreateFailure_Compensates(t *testing.T) {
	createErr := errors.New("deposit store down")
	l := &fakeLedger{}
	c := &fakeCreator{err: createErr}
	s := NewTransferService(l, c)

	_, compensated, err := s.CreateFunded(context.Background(), req(t, "A1"), "K")
	if !errors.Is(err, createErr) {
		t.Fatalf("err = %v; want the original create error", err)
	}
	if !compensated {
		t.Fatalf("expected compensation to be flagged")
	}

	if len(l.withdraws) != 1 || l.withdraws[0].key != "K:WD" {
		t.Fatalf("expected exactly one :WD withdraw, got %+v", l.withdraws)
	}
	if len(l.deposits) != 1 {
		t.Fatalf("compensating deposits = %d; want 1", len(l.deposits))
	}
	cp := l.deposits[0]
	if cp.accountID != "A1" || !cp.amount.Equal(dec(t, "1000.00")) || cp.key != "K:CP" {
		t.Fatalf("unexpected compensation: %+v", cp)
	}
}

func TestCreateFunded_CompensationFailure_SurfacesOriginalError(t *testing.T) {
	createErr := errors.New("create exploded")
	compErr := errors.New("compensation also exploded")
	l := &fakeLedger{depositErr: compErr}
	c := &fakeCreator{err: createErr}
	s := NewTransferService(l, c)

	_, compensated, err := s.CreateFunded(context.Background(), req(t, "A1"), "K")
	if !errors.Is(err, createErr) {
		t.Fatalf("err = %v; want the original create error, never the compensation error", err)
	}
	if errors.Is(err, compErr) {
		t.Fatalf("compensation error must be swallowed")
	}
	if !compensated {
		t.Fatalf("compensation attempt must still be flagged")
	}
	if len(l.deposits) != 1 {
		t.Fatalf("compensation must have been attempted exactly once")
	}
}

func TestCreateFunded_NoFundingAccount_NoLedgerCalls(t *testing.T) {
	l := &fakeLedger{}
	c := &fakeCreator{}
	s := NewTransferService(l, c)

	td, compensated, err := s.CreateFunded(context.Background(), req(t, ""), "K")
	if err != nil {
		t.Fatalf("CreateFunded: %v", err)
	}
	if compensated || td == nil {
		t.Fatalf("unexpected result: td=%v compensated=%v", td, compensated)
	}
	if len(l.withdraws)+len(l.deposits) != 0 {
		t.Fatalf("no-funding path must make zero ledger calls")
	}
}

func TestCreateFunded_NoFundingAccount_CreateFailure_StillNoLedgerCalls(t *testing.T) {
	l := &fakeLedger{}
	c := &fakeCreator{err: errors.New("nope")}
	s := NewTransferService(l, c)

	_, compensated, err := s.CreateFunded(context.Background(), req(t, ""), "K")
	if err == nil || compensated {
		t.Fatalf("want create error without compensation, got err=%v compensated=%v", err, compensated)
	}
	if len(l.withdraws)+len(l.deposits) != 0 {
		t.Fatalf("no-funding path must make zero ledger calls regardless of outcome")
	}
}

func TestCreateFunded_ValidationBeforeAnyMoneyMoves(t *testing.T) {
	l := &fakeLedger{}
	c := &fakeCreator{}
	s := NewTransferService(l, c)

	bad := req(t, "A1")
	bad.Principal = decimal.Zero
	_, _, err := s.CreateFunded(context.Background(), bad, "K")
	if !errors.Is(err, ErrInvalidPrincipal) {
		t.Fatalf("err = %v; want ErrInvalidPrincipal", err)
	}
	if len(l.withdraws)+len(l.deposits)+len(c.calls) != 0 {
		t.Fatalf("validation failure must precede all downstream calls")
	}
}

func TestCreateFunded_NoKey_LegacyPath(t *testing.T) {
	l := &fakeLedger{}
	c := &fakeCreator{err: errors.New("fail to force compensation")}
	s := NewTransferService(l, c)

	_, _, _ = s.CreateFunded(context.Background(), req(t, "A1"), "")
	if len(l.withdraws) != 1 || l.withdraws[0].key != "" {
		t.Fatalf("legacy path must withdraw without a key: %+v", l.withdraws)
	}
	if len(l.deposits) != 1 || l.deposits[0].key != "" {
		t.Fatalf("legacy path must compensate without a key: %+v", l.deposits)
	}
}
