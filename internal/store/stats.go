package store

import (
	"context"
	"database/sql"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"
)

// TopErrorSignalsLimit caps GlobalStats.TopErrorSignals.
const TopErrorSignalsLimit = 5

// GlobalStats aggregates every learner and session in the store.
func (s *Store) GlobalStats(ctx context.Context) (*GlobalStats, error) {
	st := &GlobalStats{}

	if err := s.count(ctx, tableLearners, nil, &st.Learners); err != nil {
		return nil, err
	}
	if err := s.count(ctx, tableSessions, nil, &st.Sessions); err != nil {
		return nil, err
	}
	if err := s.count(ctx, tableSessions, entsql.EQ("completed", true), &st.CompletedSessions); err != nil {
		return nil, err
	}
	if st.Sessions > 0 {
		st.CompletionRate = float64(st.CompletedSessions) / float64(st.Sessions)
	}

	avgs := builder.Select(entsql.Avg("hits"), entsql.Avg("misses"), entsql.Avg("avg_latency")).
		From(builder.Table(tableSessions))
	err := selectRows(ctx, s.db, avgs, func(rows *sql.Rows) error {
		var hits, misses, latency sql.NullFloat64
		if err := rows.Scan(&hits, &misses, &latency); err != nil {
			return err
		}
		st.AvgHits, st.AvgMisses, st.AvgLatency = hits.Float64, misses.Float64, latency.Float64
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("session averages: %w", err)
	}

	top := builder.Select("signal_name", entsql.As(entsql.Count("*"), "n")).
		From(builder.Table(tableErrors)).
		GroupBy("signal_name").
		OrderBy(entsql.Desc("n"), "signal_name").
		Limit(TopErrorSignalsLimit)
	st.TopErrorSignals = []SignalCount{}
	err = selectRows(ctx, s.db, top, func(rows *sql.Rows) error {
		var sc SignalCount
		if err := rows.Scan(&sc.Signal, &sc.Errors); err != nil {
			return err
		}
		st.TopErrorSignals = append(st.TopErrorSignals, sc)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("top error signals: %w", err)
	}

	return st, nil
}

func (s *Store) count(ctx context.Context, table string, pred *entsql.Predicate, dst *int) error {
	sel := builder.Select(entsql.Count("*")).From(builder.Table(table))
	if pred != nil {
		sel.Where(pred)
	}
	err := selectRows(ctx, s.db, sel, func(rows *sql.Rows) error {
		return rows.Scan(dst)
	})
	if err != nil {
		return fmt.Errorf("count %s: %w", table, err)
	}
	return nil
}
