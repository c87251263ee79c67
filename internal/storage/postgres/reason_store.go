package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"

	"github.com/lib/pq"
	"golang.org/x/time/rate"

	"github.com/SickoOrange/SimpleAndReason/internal/alarm_root_cause/records"
	"github.com/SickoOrange/SimpleAndReason/internal/logging"
)

// BatchSize is the number of records written per transaction.
const BatchSize = 25

var unsafeIdent = regexp.MustCompile(`[^a-z0-9_]+`)

// TableName returns the result table of a plant and use case.
func TableName(prefix, ppid, useCase string) string {
	name := strings.ToLower(strings.Join([]string{prefix, ppid, useCase}, "_"))
	return unsafeIdent.ReplaceAllString(name, "_")
}

// WriteStats tells how a write went.
type WriteStats struct {
	Written int
	// Retried counts row writes repeated after a failure.
	Retried int
	Rounds  int
}

// ReasonStore upserts shaped records into per plant and use case tables.
type ReasonStore struct {
	db      *sql.DB
	prefix  string
	limiter *rate.Limiter
}

// NewReasonStore paces retry rounds with limiter. A nil limiter never waits.
func NewReasonStore(db *sql.DB, prefix string, limiter *rate.Limiter) *ReasonStore {
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Inf, 1)
	}
	return &ReasonStore{db: db, prefix: prefix, limiter: limiter}
}

func (s *ReasonStore) Table(ppid, useCase string) string {
	return TableName(s.prefix, ppid, useCase)
}

// EnsureTable creates the result table if it does not exist.
func (s *ReasonStore) EnsureTable(ctx context.Context, table string) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			tagnamealert TEXT NOT NULL,
			date TEXT NOT NULL,
			afiidalert INTEGER NOT NULL,
			delay_extend JSONB NOT NULL,
			reasons JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (tagnamealert, date)
		)`, pq.QuoteIdentifier(table))
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create table %s: %w", table, err)
	}
	return nil
}

func upsertQuery(table string) string {
	return fmt.Sprintf(`
		INSERT INTO %s (tagnamealert, date, afiidalert, delay_extend, reasons)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (tagnamealert, date) DO UPDATE SET
			afiidalert = EXCLUDED.afiidalert,
			delay_extend = EXCLUDED.delay_extend,
			reasons = EXCLUDED.reasons,
			updated_at = NOW()`, pq.QuoteIdentifier(table))
}

type row struct {
	tagname     string
	date        string
	afiID       int
	delayExtend string
	reasons     string
}

func (r row) args() []any {
	return []any{r.tagname, r.date, r.afiID, r.delayExtend, r.reasons}
}

func toRows(recs []records.Record) ([]row, error) {
	out := make([]row, 0, len(recs))
	for _, rec := range recs {
		reasons, err := rec.ReasonsJSON()
		if err != nil {
			return nil, err
		}
		delay := rec.DelayExtend
		if delay == "" {
			delay = "{}"
		}
		out = append(out, row{
			tagname:     rec.TagnameAlert,
			date:        rec.Date,
			afiID:       rec.AfiIDAlert,
			delayExtend: delay,
			reasons:     string(reasons),
		})
	}
	return out, nil
}

// WriteRecords upserts recs into the table of ppid and useCase, keyed by alarmed
// tag name and date. Batches are written in one transaction; when a batch fails
// its rows are written one by one and the rejected ones are retried in paced
// rounds until all are accepted or ctx ends.
func (s *ReasonStore) WriteRecords(ctx context.Context, ppid, useCase string, recs []records.Record) (WriteStats, error) {
	var stats WriteStats
	if len(recs) == 0 {
		return stats, nil
	}
	table := s.Table(ppid, useCase)
	logger := logging.FromContext(ctx, "reason_store")

	rows, err := toRows(recs)
	if err != nil {
		return stats, err
	}
	query := upsertQuery(table)

	var pending []row
	for start := 0; start < len(rows); start += BatchSize {
		end := min(start+BatchSize, len(rows))
		batch := rows[start:end]
		err := s.writeBatch(ctx, query, batch)
		if err == nil {
			stats.Written += len(batch)
			continue
		}
		logger.Warnf("write_batch", "batch of %d rows into %s failed, writing rows singly: %v", len(batch), table, err)
		failed := s.writeSingly(ctx, logger, query, batch)
		stats.Written += len(batch) - len(failed)
		pending = append(pending, failed...)
	}

	for len(pending) > 0 {
		if err := s.limiter.Wait(ctx); err != nil {
			return stats, fmt.Errorf("%d records into %s still unwritten: %w", len(pending), table, err)
		}
		stats.Rounds++
		stats.Retried += len(pending)
		logger.Infof("retry", "round %d: retrying %d rejected rows into %s", stats.Rounds, len(pending), table)
		failed := s.writeSingly(ctx, logger, query, pending)
		stats.Written += len(pending) - len(failed)
		pending = failed
	}

	logger.Infof("write", "wrote %d records into %s", stats.Written, table)
	return stats, nil
}

func (s *ReasonStore) writeBatch(ctx context.Context, query string, batch []row) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, r := range batch {
		if _, err := stmt.ExecContext(ctx, r.args()...); err != nil {
			return fmt.Errorf("failed to upsert %s: %w", r.tagname, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// writeSingly upserts each row on its own and returns the rejected ones.
func (s *ReasonStore) writeSingly(ctx context.Context, logger *logging.Logger, query string, rows []row) []row {
	var failed []row
	for _, r := range rows {
		if _, err := s.db.ExecContext(ctx, query, r.args()...); err != nil {
			logger.Warnf("upsert", "row %s/%s rejected: %v", r.tagname, r.date, err)
			failed = append(failed, r)
		}
	}
	return failed
}
