package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/crossvenue/smartroute/internal/circuitbreaker"
	"github.com/crossvenue/smartroute/pkg/types"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

// PostgresStorage implements Storage using PostgreSQL.
type PostgresStorage struct {
	db     *sql.DB
	logger *zap.Logger
}

// PostgresConfig holds PostgreSQL configuration.
type PostgresConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
	SSLMode  string
	Logger   *zap.Logger
}

// NewPostgresStorage creates a new PostgreSQL storage.
func NewPostgresStorage(cfg *PostgresConfig) (*PostgresStorage, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	err = db.Ping()
	if err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	cfg.Logger.Info("postgres-storage-connected",
		zap.String("host", cfg.Host),
		zap.String("database", cfg.Database))

	return &PostgresStorage{
		db:     db,
		logger: cfg.Logger,
	}, nil
}

// StoreTrade inserts one completed trade record.
func (p *PostgresStorage) StoreTrade(ctx context.Context, record *types.TradeRecord) error {
	query := `
		INSERT INTO trades (
			order_id, symbol, side, entry_price, exit_price,
			quantity, pnl, venue, strategy, risk_score, executed_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11
		)
	`

	_, err := p.db.ExecContext(ctx, query,
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
		record.ExecutedAt,
	)
	if err != nil {
		return fmt.Errorf("insert trade: %w", err)
	}

	TradesStoredTotal.Inc()
	p.logger.Debug("trade-stored",
		zap.String("order-id", record.OrderID),
		zap.String("symbol", record.Symbol),
		zap.String("venue", record.Venue))

	return nil
}

// StoreTrigger inserts one circuit-breaker trigger event.
func (p *PostgresStorage) StoreTrigger(ctx context.Context, event *circuitbreaker.TriggerEvent) error {
	query := `
		INSERT INTO breaker_triggers (
			policy, reason, details, triggered_at, cooldown_until
		) VALUES (
			$1, $2, $3, $4, $5
		)
	`

	_, err := p.db.ExecContext(ctx, query,
		event.Policy,
		event.Reason,
		event.Details,
		event.TriggeredAt,
		event.CooldownUntil,
	)
	if err != nil {
		return fmt.Errorf("insert trigger: %w", err)
	}

	TriggersStoredTotal.Inc()
	p.logger.Debug("trigger-stored",
		zap.String("policy", event.Policy),
		zap.String("reason", event.Reason))

	return nil
}

// Close closes the database connection.
func (p *PostgresStorage) Close() error {
	p.logger.Info("closing-postgres-storage")
	return p.db.Close()
}
