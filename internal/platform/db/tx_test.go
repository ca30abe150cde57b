package db

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
)

// stubTx satisfies pgx.Tx; calling any method panics.
type stubTx struct{ pgx.Tx }

func TestConnFromContext_Nil(t *testing.T) {
	conn := ConnFromContext(context.Background())
	if conn != nil {
		t.Error("expected nil conn from empty context")
	}
}

func TestConnFromContext_WithWrongType(t *testing.T) {
	ctx := context.WithValue(context.Background(), DBConnKey, "not-a-conn")
	if ConnFromContext(ctx) != nil {
		t.Error("expected nil when context value is wrong type")
	}
}

func TestTxFromContext_Nil(t *testing.T) {
	tx := TxFromContext(context.Background())
	if tx != nil {
		t.Error("expected nil tx from empty context")
	}
}

func TestTxFromContext_WithWrongType(t *testing.T) {
	ctx := context.WithValue(context.Background(), DBTxKey, "not-a-tx")
	if TxFromContext(ctx) != nil {
		t.Error("expected nil when context value is wrong type")
	}
}

func TestWithTx_NoConnection(t *testing.T) {
	_, _, err := WithTx(context.Background())
	if err == nil {
		t.Fatal("expected error when no connection in context")
	}
	if err.Error() != "no database connection in context" {
		t.Errorf("unexpected error message: %s", err.Error())
	}
}

func TestInTx_NoConnection(t *testing.T) {
	called := false
	err := InTx(context.Background(), nil, func(context.Context) error {
		called = true
		return nil
	})
	if err == nil {
		t.Fatal("expected error without pool or connection")
	}
	if called {
		t.Error("fn should not run without a transaction")
	}
}

func TestInTx_ReusesExistingTx(t *testing.T) {
	ctx := context.WithValue(context.Background(), DBTxKey, stubTx{})
	want := errors.New("inner failure")
	got := InTx(ctx, nil, func(inner context.Context) error {
		if TxFromContext(inner) == nil {
			t.Error("expected transaction in inner context")
		}
		return want
	})
	if !errors.Is(got, want) {
		t.Errorf("expected inner error, got %v", got)
	}
}
