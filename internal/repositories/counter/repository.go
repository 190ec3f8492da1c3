// Package counter keeps per-day artifact sequence numbers in the store
package counter

import (
	"context"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/internal/repositories"
	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

const table = "artifact_counters"

type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

func New(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{db: db, logger: logger}
}

// Next increments and returns the counter for (category, day). The first call for a key returns 1.
func (r *Repository) Next(ctx context.Context, category, day string) (n int64, err error) {
	ctx, span := tracing.StartSpan(ctx, "counter.Repository.Next")
	defer span.End()

	log := r.logger.WithContext(ctx).WithFields(map[string]any{"category": category, "day": day})

	ctx, tx, err := r.db.GetTx(ctx, nil)
	if err != nil {
		return 0, repositories.StoreError("begin counter tx", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	ib := database.NewInsertBuilder(r.db.Flavor())
	ib.InsertInto(table).Cols("category", "day", "value").Values(category, day, 1)
	ib.OnConflictDoUpdate([]string{"category", "day"}, "value = "+table+".value + 1")
	query, args := ib.Build()

	if _, err = tx.ExecContext(ctx, query, args...); err != nil {
		log.WithError(err).Error("Failed to increment artifact counter")
		return 0, repositories.StoreError("increment counter", err)
	}

	sb := database.NewSelectBuilder(r.db.Flavor())
	sb.Select("value").From(table).Where(sb.Equal("category", category), sb.Equal("day", day))
	query, args = sb.Build()

	if err = tx.GetContext(ctx, &n, query, args...); err != nil {
		log.WithError(err).Error("Failed to read artifact counter")
		return 0, repositories.StoreError("read counter", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return 0, repositories.StoreError("commit counter", err)
	}
	return n, nil
}
