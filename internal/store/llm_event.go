package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
)

var llmColumns = []string{
	"id", "sequence", "created_at", "provider", "model", "purpose", "input_tokens",
	"output_tokens", "latency_ms", "success", "error_message", "request_body", "response_body",
}

// AppendLLMRequest records an LLM API call event.
func (s *Store) AppendLLMRequest(ctx context.Context, data LLMRequestEventData) error {
	seqNum, err := s.seq.Next(ctx, s.db)
	if err != nil {
		return fmt.Errorf("next sequence: %w", err)
	}

	_, err = execStmt(ctx, s.db, builder.Insert(tableLLMRequests).
		Columns(llmColumns[1:]...).
		Values(seqNum, time.Now().UTC(), data.Provider, data.Model, data.Purpose, data.InputTokens,
			data.OutputTokens, data.LatencyMs, data.Success, data.ErrorMessage, data.RequestBody, data.ResponseBody))
	if err != nil {
		return fmt.Errorf("save LLM request event: %w", err)
	}

	return nil
}

// QueryLLMEvents returns LLM events newest first.
func (s *Store) QueryLLMEvents(ctx context.Context, opts QueryOpts) ([]LLMRequestEventRecord, error) {
	sel := builder.Select(llmColumns...).
		From(builder.Table(tableLLMRequests)).
		OrderBy(entsql.Desc("sequence"))

	var preds []*entsql.Predicate
	if opts.After > 0 {
		preds = append(preds, entsql.GT("sequence", opts.After))
	}
	if opts.Before > 0 {
		preds = append(preds, entsql.LT("sequence", opts.Before))
	}
	if !opts.From.IsZero() {
		preds = append(preds, entsql.GTE("created_at", opts.From.UTC()))
	}
	if !opts.To.IsZero() {
		preds = append(preds, entsql.LTE("created_at", opts.To.UTC()))
	}
	if opts.Purpose != "" {
		preds = append(preds, entsql.EQ("purpose", opts.Purpose))
	}
	if len(preds) > 0 {
		sel.Where(entsql.And(preds...))
	}
	if opts.Limit > 0 {
		sel.Limit(opts.Limit)
	}
	return s.llmEvents(ctx, sel)
}

// GetLLMEvent returns the event with id, or ErrNotFound.
func (s *Store) GetLLMEvent(ctx context.Context, id int64) (*LLMRequestEventRecord, error) {
	sel := builder.Select(llmColumns...).
		From(builder.Table(tableLLMRequests)).
		Where(entsql.EQ("id", id))
	events, err := s.llmEvents(ctx, sel)
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, fmt.Errorf("LLM event %d: %w", id, ErrNotFound)
	}
	return &events[0], nil
}

// LLMUsageByPurpose aggregates token usage per purpose.
func (s *Store) LLMUsageByPurpose(ctx context.Context) ([]LLMUsageStats, error) {
	sel := builder.Select(
		"purpose",
		entsql.Count("*"),
		entsql.Sum("input_tokens"),
		entsql.Sum("output_tokens"),
		entsql.Avg("latency_ms"),
	).
		From(builder.Table(tableLLMRequests)).
		GroupBy("purpose").
		OrderBy("purpose")

	var stats []LLMUsageStats
	err := selectRows(ctx, s.db, sel, func(rows *sql.Rows) error {
		var (
			st            LLMUsageStats
			tokIn, tokOut sql.NullInt64
			avgMs         sql.NullFloat64
		)
		if err := rows.Scan(&st.Purpose, &st.Calls, &tokIn, &tokOut, &avgMs); err != nil {
			return err
		}
		st.InputTokens = int(tokIn.Int64)
		st.OutputTokens = int(tokOut.Int64)
		st.AvgLatencyMs = int64(avgMs.Float64)
		stats = append(stats, st)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("query LLM usage: %w", err)
	}
	return stats, nil
}

func (s *Store) llmEvents(ctx context.Context, sel *entsql.Selector) ([]LLMRequestEventRecord, error) {
	var out []LLMRequestEventRecord
	err := selectRows(ctx, s.db, sel, func(rows *sql.Rows) error {
		var e LLMRequestEventRecord
		if err := rows.Scan(&e.ID, &e.Sequence, &e.Timestamp, &e.Provider, &e.Model, &e.Purpose,
			&e.InputTokens, &e.OutputTokens, &e.LatencyMs, &e.Success, &e.ErrorMessage,
			&e.RequestBody, &e.ResponseBody); err != nil {
			return err
		}
		out = append(out, e)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("query LLM events: %w", err)
	}
	return out, nil
}
