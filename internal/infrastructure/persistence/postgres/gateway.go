package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/macromojo/macromojo/internal/infrastructure/monitoring"
	"github.com/macromojo/macromojo/internal/ports/outbound"
	apperrors "github.com/macromojo/macromojo/pkg/errors"
)

const uniqueViolation = "23505"

// Gateway implements the journal store on PostgreSQL.
// Every operation acquires its own pooled connection and runs in one transaction.
type Gateway struct {
	pool    *pgxpool.Pool
	logger  *zap.Logger
	metrics *monitoring.MetricsCollector
	tracing *monitoring.TracingProvider
}

var _ outbound.JournalStore = (*Gateway)(nil)

// NewGateway creates a gateway over an open pool. metrics and tracing may be nil.
func NewGateway(pool *pgxpool.Pool, logger *zap.Logger, metrics *monitoring.MetricsCollector, tracing *monitoring.TracingProvider) *Gateway {
	return &Gateway{
		pool:    pool,
		logger:  logger.Named("postgres-gateway"),
		metrics: metrics,
		tracing: tracing,
	}
}

// withTx acquires a connection, begins a transaction, and commits when fn
// succeeds. Any error rolls the transaction back; the connection is always released.
func (g *Gateway) withTx(ctx context.Context, op string, fn func(ctx context.Context, tx pgx.Tx) error) (err error) {
	ctx, span := g.tracing.StartDBSpan(ctx, op)
	start := time.Now()
	defer func() {
		g.metrics.DBQuery(op, time.Since(start), err)
		monitoring.RecordError(span, err)
		span.End()
	}()

	conn, err := g.pool.Acquire(ctx)
	if err != nil {
		return g.fail(op, err)
	}
	defer conn.Release()

	err = pgx.BeginFunc(ctx, conn, func(tx pgx.Tx) error {
		return fn(ctx, tx)
	})
	if err != nil {
		return g.fail(op, err)
	}
	return nil
}

// fail logs infrastructure errors and wraps them. Domain errors pass through.
func (g *Gateway) fail(op string, err error) error {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return err
	}
	g.logger.Error("Database operation failed", zap.String("operation", op), zap.Error(err))
	return apperrors.NewDatabaseError(op, err)
}

// Ping verifies the database is reachable
func (g *Gateway) Ping(ctx context.Context) error {
	return g.pool.Ping(ctx)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func userID(ctx context.Context, tx pgx.Tx, username string) (int64, bool, error) {
	var id int64
	err := tx.QueryRow(ctx, `SELECT id FROM users WHERE username = $1`, username).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return id, true, nil
}

// collectOne decodes a single row into T, returning nil when there is no row.
func collectOne[T any](rows pgx.Rows) (*T, error) {
	v, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[T])
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}
