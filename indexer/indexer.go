// Package indexer mirrors committed receipts into a SQL database for history
// queries. It is a read model only; the ledger never reads from it.
package indexer

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"gridledger/core/types"
)

const (
	defaultLimit = 50
	maxLimit     = 500
)

type Indexer struct {
	db     *gorm.DB
	logger *slog.Logger
}

// Open connects to the configured driver (sqlite or postgres) and migrates
// the schema.
func Open(driver, dsn string, log *slog.Logger) (*Indexer, error) {
	var dialector gorm.Dialector
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "sqlite":
		dialector = sqlite.Open(dsn)
	case "postgres":
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("indexer: unsupported driver %q", driver)
	}
	db, err := gorm.Open(dialector, &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("indexer: open %s: %w", driver, err)
	}
	return New(db, log)
}

// New wraps an existing connection.
func New(db *gorm.DB, log *slog.Logger) (*Indexer, error) {
	if log == nil {
		log = slog.Default()
	}
	if err := AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("indexer: migrate: %w", err)
	}
	return &Indexer{db: db, logger: log.With(slog.String("component", "indexer"))}, nil
}

// Record stores a receipt and its events. Re-recording a sequence number is
// a no-op.
func (ix *Indexer) Record(ctx context.Context, r *types.Receipt) error {
	if r == nil {
		return nil
	}
	return ix.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := TransitionRecord{
			Seq:        r.Seq,
			Timestamp:  r.Timestamp,
			Caller:     r.Caller.String(),
			Op:         string(r.Op),
			EventCount: len(r.Events),
			IndexedAt:  time.Now().UTC(),
		}
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&row)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		if len(r.Events) == 0 {
			return nil
		}
		rows := make([]EventRecord, 0, len(r.Events))
		for i, evt := range r.Events {
			attrs, err := json.Marshal(evt.Attributes)
			if err != nil {
				return err
			}
			rows = append(rows, EventRecord{
				Seq:        r.Seq,
				Position:   i,
				Type:       evt.Type,
				OrderID:    evt.Attributes["orderId"],
				Attributes: string(attrs),
			})
		}
		return tx.Create(&rows).Error
	})
}

// Hook adapts Record to a commit hook; failures are logged and do not affect
// the ledger.
func (ix *Indexer) Hook() func(*types.Receipt) {
	return func(r *types.Receipt) {
		if err := ix.Record(context.Background(), r); err != nil {
			ix.logger.Error("index receipt", slog.Uint64("seq", r.Seq), slog.String("error", err.Error()))
		}
	}
}

// TransitionFilter narrows a history query. Zero values match everything.
type TransitionFilter struct {
	Caller string
	Op     string
	Before uint64 // exclusive upper bound on seq
	Limit  int
}

// EventFilter narrows an event query.
type EventFilter struct {
	Type    string
	OrderID string
	Before  uint64
	Limit   int
}

// Event is an indexed event with its transition position.
type Event struct {
	Seq        uint64            `json:"seq"`
	Position   int               `json:"position"`
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultLimit
	}
	if limit > maxLimit {
		return maxLimit
	}
	return limit
}

// Transitions lists indexed transitions newest first.
func (ix *Indexer) Transitions(ctx context.Context, f TransitionFilter) ([]TransitionRecord, error) {
	q := ix.db.WithContext(ctx).Model(&TransitionRecord{})
	if f.Caller != "" {
		q = q.Where("caller = ?", f.Caller)
	}
	if f.Op != "" {
		q = q.Where("op = ?", f.Op)
	}
	if f.Before > 0 {
		q = q.Where("seq < ?", f.Before)
	}
	var out []TransitionRecord
	if err := q.Order("seq DESC").Limit(clampLimit(f.Limit)).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// Events lists indexed events newest first.
func (ix *Indexer) Events(ctx context.Context, f EventFilter) ([]Event, error) {
	q := ix.db.WithContext(ctx).Model(&EventRecord{})
	if f.Type != "" {
		q = q.Where("type = ?", f.Type)
	}
	if f.OrderID != "" {
		q = q.Where("order_id = ?", f.OrderID)
	}
	if f.Before > 0 {
		q = q.Where("seq < ?", f.Before)
	}
	var rows []EventRecord
	if err := q.Order("seq DESC").Order("position ASC").Limit(clampLimit(f.Limit)).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]Event, 0, len(rows))
	for _, row := range rows {
		attrs := map[string]string{}
		if row.Attributes != "" {
			if err := json.Unmarshal([]byte(row.Attributes), &attrs); err != nil {
				return nil, fmt.Errorf("indexer: decode event %d/%d: %w", row.Seq, row.Position, err)
			}
		}
		out = append(out, Event{Seq: row.Seq, Position: row.Position, Type: row.Type, Attributes: attrs})
	}
	return out, nil
}

// LastSeq returns the highest indexed sequence number.
func (ix *Indexer) LastSeq(ctx context.Context) (uint64, error) {
	var max sql.NullInt64
	row := ix.db.WithContext(ctx).Model(&TransitionRecord{}).Select("MAX(seq)").Row()
	if err := row.Scan(&max); err != nil {
		return 0, err
	}
	if !max.Valid {
		return 0, nil
	}
	return uint64(max.Int64), nil
}

func (ix *Indexer) Close() error {
	sqlDB, err := ix.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
