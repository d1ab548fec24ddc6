package store

import (
	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"
)

// Table names.
const (
	tableLearners       = "learners"
	tableSessions       = "sessions"
	tableAttempts       = "attempts"
	tableErrors         = "error_events"
	tableAdjustments    = "difficulty_adjustments"
	tableConfigurations = "configurations"
	tableLLMRequests    = "llm_request_events"
)

func col(name string, t field.Type) *schema.Column {
	return &schema.Column{Name: name, Type: t}
}

func nullable(c *schema.Column) *schema.Column {
	c.Nullable = true
	return c
}

func autoID() *schema.Column {
	return &schema.Column{Name: "id", Type: field.TypeInt64, Increment: true}
}

// eventTable builds an append-only event table owned by sessions through a
// foreign key on session_id. Every event carries the global sequence so
// listings can recover insertion order.
func eventTable(name string, sessions *schema.Table, cols ...*schema.Column) *schema.Table {
	id := autoID()
	seq := col("sequence", field.TypeInt64)
	sessionID := col("session_id", field.TypeString)
	createdAt := col("created_at", field.TypeTime)

	all := append([]*schema.Column{id, seq, sessionID, createdAt}, cols...)
	return &schema.Table{
		Name:       name,
		Columns:    all,
		PrimaryKey: []*schema.Column{id},
		ForeignKeys: []*schema.ForeignKey{{
			Symbol:     name + "_sessions_events",
			Columns:    []*schema.Column{sessionID},
			RefTable:   sessions,
			RefColumns: sessions.PrimaryKey,
			OnDelete:   schema.Cascade,
		}},
		Indexes: []*schema.Index{
			{Name: name + "_session_sequence", Columns: []*schema.Column{sessionID, seq}},
		},
	}
}

func tables() []*schema.Table {
	learnerID := autoID()
	identifier := &schema.Column{Name: "identifier", Type: field.TypeString, Unique: true}
	learners := &schema.Table{
		Name: tableLearners,
		Columns: []*schema.Column{
			learnerID,
			col("name", field.TypeString),
			identifier,
			col("created_at", field.TypeTime),
		},
		PrimaryKey: []*schema.Column{learnerID},
	}

	sessionID := col("id", field.TypeString)
	sessionLearner := nullable(col("learner_id", field.TypeInt64))
	startedAt := col("started_at", field.TypeTime)
	sessions := &schema.Table{
		Name: tableSessions,
		Columns: []*schema.Column{
			sessionID,
			col("sequence", field.TypeInt64),
			sessionLearner,
			startedAt,
			nullable(col("ended_at", field.TypeTime)),
			col("duration_secs", field.TypeFloat64),
			col("hits", field.TypeInt),
			col("misses", field.TypeInt),
			col("avg_latency", field.TypeFloat64),
			col("zones_completed", field.TypeInt),
			col("max_zone", field.TypeInt),
			col("initial_tier", field.TypeInt),
			col("current_tier", field.TypeInt),
			col("final_tier", field.TypeInt),
			col("status", field.TypeString),
			col("completed", field.TypeBool),
			col("sufficient_data", field.TypeBool),
			col("metrics_verified", field.TypeBool),
			col("clock_skew", field.TypeBool),
		},
		PrimaryKey: []*schema.Column{sessionID},
		Indexes: []*schema.Index{
			{Name: "sessions_learner_started", Columns: []*schema.Column{sessionLearner, startedAt}},
		},
	}

	attempts := eventTable(tableAttempts, sessions,
		col("signal_name", field.TypeString),
		nullable(col("answer", field.TypeString)),
		col("correct", field.TypeBool),
		col("latency", field.TypeFloat64),
		col("zone", field.TypeInt),
		col("round", field.TypeInt),
		col("tier", field.TypeInt),
	)

	errs := eventTable(tableErrors, sessions,
		col("signal_name", field.TypeString),
		nullable(col("answer", field.TypeString)),
		col("category", field.TypeString),
		col("latency", field.TypeFloat64),
		col("zone", field.TypeInt),
		col("tier", field.TypeInt),
		col("prior_attempts", field.TypeInt),
		nullable(col("feedback", field.TypeString)),
	)

	adjustments := eventTable(tableAdjustments, sessions,
		col("previous_tier", field.TypeInt),
		col("new_tier", field.TypeInt),
		col("justification", field.TypeString),
		col("hit_rate", field.TypeFloat64),
		col("avg_latency", field.TypeFloat64),
		col("zone", field.TypeInt),
		col("round", field.TypeInt),
	)

	configID := autoID()
	configurations := &schema.Table{
		Name: tableConfigurations,
		Columns: []*schema.Column{
			configID,
			col("name", field.TypeString),
			col("active", field.TypeBool),
			col("updated_at", field.TypeTime),
			col("signals_low", field.TypeInt),
			col("signals_medium", field.TypeInt),
			col("signals_high", field.TypeInt),
			col("time_low", field.TypeFloat64),
			col("time_medium", field.TypeFloat64),
			col("time_high", field.TypeFloat64),
			col("initial_tier", field.TypeInt),
			col("rounds_per_zone", field.TypeInt),
			col("min_rounds_to_complete", field.TypeInt),
			col("min_hit_rate", field.TypeFloat64),
			col("use_model", field.TypeBool),
		},
		PrimaryKey: []*schema.Column{configID},
	}

	llmID := autoID()
	llmRequests := &schema.Table{
		Name: tableLLMRequests,
		Columns: []*schema.Column{
			llmID,
			col("sequence", field.TypeInt64),
			col("created_at", field.TypeTime),
			col("provider", field.TypeString),
			col("model", field.TypeString),
			col("purpose", field.TypeString),
			col("input_tokens", field.TypeInt),
			col("output_tokens", field.TypeInt),
			col("latency_ms", field.TypeInt64),
			col("success", field.TypeBool),
			col("error_message", field.TypeString),
			col("request_body", field.TypeString),
			col("response_body", field.TypeString),
		},
		PrimaryKey: []*schema.Column{llmID},
	}

	return []*schema.Table{learners, sessions, attempts, errs, adjustments, configurations, llmRequests}
}
