package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/abhisek/signcoach/internal/difficulty"
)

var configurationColumns = []string{
	"id", "name", "active", "updated_at",
	"signals_low", "signals_medium", "signals_high",
	"time_low", "time_medium", "time_high",
	"initial_tier", "rounds_per_zone", "min_rounds_to_complete", "min_hit_rate", "use_model",
}

// ConfigurationRecord is a stored configuration with its active flag.
type ConfigurationRecord struct {
	difficulty.Configuration
	Active bool `json:"active"`
}

// SaveActive deactivates the current configuration and inserts c as the
// new active one in a single transaction. Superseded rows are kept.
func (s *Store) SaveActive(ctx context.Context, c difficulty.Configuration) (difficulty.Configuration, error) {
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = time.Now()
	}
	c.UpdatedAt = c.UpdatedAt.UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return c, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := execStmt(ctx, tx, builder.Update(tableConfigurations).
		Set("active", false).
		Where(entsql.EQ("active", true))); err != nil {
		return c, fmt.Errorf("deactivate configuration: %w", err)
	}

	res, err := execStmt(ctx, tx, builder.Insert(tableConfigurations).
		Columns(configurationColumns[1:]...).
		Values(
			c.Name, true, c.UpdatedAt,
			c.SignalsLow, c.SignalsMedium, c.SignalsHigh,
			c.TimeLow, c.TimeMedium, c.TimeHigh,
			int(c.InitialTier), c.RoundsPerZone, c.MinRoundsToComplete, c.MinHitRate, c.UseModel,
		))
	if err != nil {
		return c, fmt.Errorf("insert configuration: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return c, fmt.Errorf("insert configuration: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return c, fmt.Errorf("commit: %w", err)
	}
	c.ID = id
	return c, nil
}

// ActiveConfiguration returns the active configuration, or ErrNotFound when
// none has been saved yet.
func (s *Store) ActiveConfiguration(ctx context.Context) (difficulty.Configuration, error) {
	sel := builder.Select(configurationColumns...).
		From(builder.Table(tableConfigurations)).
		Where(entsql.EQ("active", true)).
		OrderBy(entsql.Desc("id")).
		Limit(1)

	recs, err := s.configurations(ctx, sel)
	if err != nil {
		return difficulty.Configuration{}, err
	}
	if len(recs) == 0 {
		return difficulty.Configuration{}, fmt.Errorf("active configuration: %w", ErrNotFound)
	}
	return recs[0].Configuration, nil
}

// ConfigurationHistory returns stored configurations newest first.
func (s *Store) ConfigurationHistory(ctx context.Context, limit int) ([]ConfigurationRecord, error) {
	sel := builder.Select(configurationColumns...).
		From(builder.Table(tableConfigurations)).
		OrderBy(entsql.Desc("id"))
	if limit > 0 {
		sel.Limit(limit)
	}
	return s.configurations(ctx, sel)
}

func (s *Store) configurations(ctx context.Context, sel *entsql.Selector) ([]ConfigurationRecord, error) {
	var out []ConfigurationRecord
	err := selectRows(ctx, s.db, sel, func(rows *sql.Rows) error {
		var r ConfigurationRecord
		c := &r.Configuration
		if err := rows.Scan(
			&c.ID, &c.Name, &r.Active, &c.UpdatedAt,
			&c.SignalsLow, &c.SignalsMedium, &c.SignalsHigh,
			&c.TimeLow, &c.TimeMedium, &c.TimeHigh,
			&c.InitialTier, &c.RoundsPerZone, &c.MinRoundsToComplete, &c.MinHitRate, &c.UseModel,
		); err != nil {
			return err
		}
		out = append(out, r)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("query configurations: %w", err)
	}
	return out, nil
}

// EnsureActive returns the active configuration, seeding fallback as the
// first active record when the table is empty.
func (s *Store) EnsureActive(ctx context.Context, fallback difficulty.Configuration) (difficulty.Configuration, error) {
	c, err := s.ActiveConfiguration(ctx)
	if err == nil {
		return c, nil
	}
	if !IsNotFound(err) {
		return c, err
	}
	return s.SaveActive(ctx, fallback)
}
