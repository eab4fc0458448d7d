package storage

import (
	"bytes"
	"context"
	"io"
	"os"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/crossvenue/smartroute/internal/circuitbreaker"
	"github.com/crossvenue/smartroute/pkg/types"
	"go.uber.org/zap"
)

func testTradeRecord() *types.TradeRecord {
	return &types.TradeRecord{
		OrderID:    "order-123",
		Symbol:     "BTC-USD",
		Side:       types.SideBuy,
		EntryPrice: 50000,
		Quantity:   0.25,
		PnL:        12.5,
		Venue:      "alpha",
		Strategy:   "execution",
		RiskScore:  4.2,
		ExecutedAt: time.Now(),
	}
}

func testTriggerEvent() *circuitbreaker.TriggerEvent {
	now := time.Now()
	return &circuitbreaker.TriggerEvent{
		Policy:        "market",
		Reason:        "max_drawdown_exceeded",
		Details:       "drawdown 12.00% exceeds 10.00%",
		TriggeredAt:   now,
		CooldownUntil: now.Add(30 * time.Minute),
	}
}

func TestConsoleStorage_New(t *testing.T) {
	logger, _ := zap.NewDevelopment()

	storage := NewConsoleStorage(logger)

	if storage == nil {
		t.Fatal("expected non-nil storage")
	}

	if storage.logger == nil {
		t.Error("expected non-nil logger")
	}
}

func TestConsoleStorage_StoreTrade(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	storage := NewConsoleStorage(logger)

	record := testTradeRecord()
	ctx := context.Background()

	// Capture stdout
	oldStdout := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	err := storage.StoreTrade(ctx, record)

	// Restore stdout
	w.Close()
	os.Stdout = oldStdout

	var buf bytes.Buffer
	io.Copy(&buf, r)
	output := buf.String()

	if err != nil {
		t.Errorf("expected no error, got %v", err)
	}

	if !bytes.Contains([]byte(output), []byte("TRADE EXECUTED")) {
		t.Error("expected output to contain 'TRADE EXECUTED'")
	}

	if !bytes.Contains([]byte(output), []byte(record.OrderID)) {
		t.Errorf("expected output to contain order id %s", record.OrderID)
	}

	if !bytes.Contains([]byte(output), []byte(record.Symbol)) {
		t.Errorf("expected output to contain symbol %s", record.Symbol)
	}
}

func TestConsoleStorage_StoreTrigger(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	storage := NewConsoleStorage(logger)

	event := testTriggerEvent()
	ctx := context.Background()

	// Capture stdout
	oldStdout := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	err := storage.StoreTrigger(ctx, event)

	// Restore stdout
	w.Close()
	os.Stdout = oldStdout

	var buf bytes.Buffer
	io.Copy(&buf, r)
	output := buf.String()

	if err != nil {
		t.Errorf("expected no error, got %v", err)
	}

	if !bytes.Contains([]byte(output), []byte("CIRCUIT BREAKER TRIPPED")) {
		t.Error("expected output to contain 'CIRCUIT BREAKER TRIPPED'")
	}

	if !bytes.Contains([]byte(output), []byte(event.Reason)) {
		t.Errorf("expected output to contain reason %s", event.Reason)
	}
}

func TestConsoleStorage_Close(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	storage := NewConsoleStorage(logger)

	err := storage.Close()
	if err != nil {
		t.Errorf("expected no error on close, got %v", err)
	}
}

// TestPostgresStorage tests the PostgreSQL storage implementation using sqlmock
func TestPostgresStorage_StoreTrade(t *testing.T) {
	logger, _ := zap.NewDevelopment()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	storage := &PostgresStorage{
		db:     db,
		logger: logger,
	}

	record := testTradeRecord()
	ctx := context.Background()

	mock.ExpectExec("INSERT INTO trades").
		WithArgs(
			record.OrderID,
			record.Symbol,
			string(record.Side),
			record.EntryPrice,
			record.ExitPrice,
			record.Quantity,
			record.PnL,
			record.Venue,
			record.Strategy,
			record.RiskScore,
			sqlmock.AnyArg(), // executed_at
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err = storage.StoreTrade(ctx, record)
	if err != nil {
		t.Errorf("expected no error, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestPostgresStorage_StoreTrade_Error(t *testing.T) {
	logger, _ := zap.NewDevelopment()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	storage := &PostgresStorage{
		db:     db,
		logger: logger,
	}

	record := testTradeRecord()
	ctx := context.Background()

	mock.ExpectExec("INSERT INTO trades").
		WithArgs(
			record.OrderID,
			record.Symbol,
			string(record.Side),
			record.EntryPrice,
			record.ExitPrice,
			record.Quantity,
			record.PnL,
			record.Venue,
			record.Strategy,
			record.RiskScore,
			sqlmock.AnyArg(),
		).
		WillReturnError(sqlmock.ErrCancelled)

	err = storage.StoreTrade(ctx, record)
	if err == nil {
		t.Error("expected error, got nil")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestPostgresStorage_StoreTrigger(t *testing.T) {
	logger, _ := zap.NewDevelopment()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	storage := &PostgresStorage{
		db:     db,
		logger: logger,
	}

	event := testTriggerEvent()
	ctx := context.Background()

	mock.ExpectExec("INSERT INTO breaker_triggers").
		WithArgs(
			event.Policy,
			event.Reason,
			event.Details,
			sqlmock.AnyArg(), // triggered_at
			sqlmock.AnyArg(), // cooldown_until
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err = storage.StoreTrigger(ctx, event)
	if err != nil {
		t.Errorf("expected no error, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestPostgresStorage_Close(t *testing.T) {
	logger, _ := zap.NewDevelopment()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}

	storage := &PostgresStorage{
		db:     db,
		logger: logger,
	}

	mock.ExpectClose()

	err = storage.Close()
	if err != nil {
		t.Errorf("expected no error on close, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}
