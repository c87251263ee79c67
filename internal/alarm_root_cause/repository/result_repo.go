package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/lib/pq"

	"github.com/SickoOrange/SimpleAndReason/internal/alarm_root_cause/domain"
	"github.com/SickoOrange/SimpleAndReason/internal/alarm_root_cause/records"
	"github.com/SickoOrange/SimpleAndReason/internal/storage/postgres"
)

// RowQuerier is the part of pgxpool.Pool used to read results.
type RowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// ResultRepository reads stored records back from the result tables.
type ResultRepository struct {
	db     RowQuerier
	prefix string
}

func NewResultRepository(db RowQuerier, prefix string) *ResultRepository {
	return &ResultRepository{db: db, prefix: prefix}
}

// Get returns the record of an alarmed tag name on one day.
func (r *ResultRepository) Get(ctx context.Context, ppid string, useCase domain.UseCase, tagname, date string) (*records.Record, error) {
	table := postgres.TableName(r.prefix, ppid, string(useCase))
	query := fmt.Sprintf(`
		SELECT tagnamealert, date, afiidalert, delay_extend::text, reasons::text
		FROM %s
		WHERE tagnamealert = $1 AND date = $2`, pq.QuoteIdentifier(table))

	var (
		rec     records.Record
		reasons string
	)
	err := r.db.QueryRow(ctx, query, tagname, date).
		Scan(&rec.TagnameAlert, &rec.Date, &rec.AfiIDAlert, &rec.DelayExtend, &reasons)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrResultNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get result from %s: %w", table, err)
	}
	if err := rec.SetReasons([]byte(reasons)); err != nil {
		return nil, err
	}
	return &rec, nil
}
