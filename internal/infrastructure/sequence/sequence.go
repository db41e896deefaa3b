// Package sequence hands out human readable references such as MVT-2026-000042.
// Each kind restarts at 1 every calendar year.
package sequence

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Format renders a reference from its parts
func Format(kind shared.SequenceKind, year int, value int64) string {
	return fmt.Sprintf("%s-%d-%06d", kind, year, value)
}

// Counter is the last value handed out for one (kind, year)
type Counter struct {
	Kind  string `gorm:"type:varchar(10);primaryKey"`
	Year  int    `gorm:"primaryKey;autoIncrement:false"`
	Value int64  `gorm:"not null"`
}

// TableName returns the table name for GORM
func (Counter) TableName() string {
	return "sequence_counters"
}

// DBGenerator keeps counters in the database. Bound to a transaction, the
// number is handed out only if the transaction commits, so references have no gaps.
type DBGenerator struct {
	db    *gorm.DB
	clock func() time.Time
}

// NewDBGenerator creates a database backed generator; clock defaults to time.Now
func NewDBGenerator(db *gorm.DB, clock func() time.Time) *DBGenerator {
	if clock == nil {
		clock = time.Now
	}
	return &DBGenerator{db: db, clock: clock}
}

// WithDB returns a generator sharing the clock but writing through db, typically a transaction
func (g *DBGenerator) WithDB(db *gorm.DB) *DBGenerator {
	return &DBGenerator{db: db, clock: g.clock}
}

// Next increments the counter of the kind for the current year.
// The upsert locks the counter row until the surrounding transaction ends.
func (g *DBGenerator) Next(ctx context.Context, kind shared.SequenceKind) (string, error) {
	year := g.clock().UTC().Year()
	var value int64
	err := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		counter := Counter{Kind: string(kind), Year: year, Value: 1}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "kind"}, {Name: "year"}},
			DoUpdates: clause.Assignments(map[string]any{"value": gorm.Expr("sequence_counters.value + 1")}),
		}).Create(&counter).Error; err != nil {
			return err
		}
		var stored Counter
		if err := tx.Where("kind = ? AND year = ?", string(kind), year).First(&stored).Error; err != nil {
			return err
		}
		value = stored.Value
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("next %s reference: %w", kind, err)
	}
	return Format(kind, year, value), nil
}

// RedisGenerator keeps counters in Redis with INCR. Numbers taken by a rolled back
// transaction are lost, so references may have gaps.
type RedisGenerator struct {
	client *redis.Client
	prefix string
	clock  func() time.Time
}

// NewRedisGenerator creates a Redis backed generator; clock defaults to time.Now
func NewRedisGenerator(client *redis.Client, prefix string, clock func() time.Time) *RedisGenerator {
	if prefix == "" {
		prefix = "stock:seq"
	}
	if clock == nil {
		clock = time.Now
	}
	return &RedisGenerator{client: client, prefix: prefix, clock: clock}
}

// Next increments the counter of the kind for the current year
func (g *RedisGenerator) Next(ctx context.Context, kind shared.SequenceKind) (string, error) {
	year := g.clock().UTC().Year()
	value, err := g.client.Incr(ctx, g.key(kind, year)).Result()
	if err != nil {
		return "", fmt.Errorf("next %s reference: %w", kind, err)
	}
	return Format(kind, year, value), nil
}

func (g *RedisGenerator) key(kind shared.SequenceKind, year int) string {
	return fmt.Sprintf("%s:%s:%d", g.prefix, kind, year)
}

var (
	_ shared.SequenceGenerator = (*DBGenerator)(nil)
	_ shared.SequenceGenerator = (*RedisGenerator)(nil)
)
