package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// ErrDuplicate is returned when a unique learner identifier is reused.
var ErrDuplicate = errors.New("already exists")

var learnerColumns = []string{"id", "name", "identifier", "created_at"}

// CreateLearner registers a learner. A reused identifier fails with
// ErrDuplicate.
func (s *Store) CreateLearner(ctx context.Context, name, identifier string) (*Learner, error) {
	l := &Learner{Name: name, Identifier: identifier, CreatedAt: time.Now().UTC()}
	res, err := execStmt(ctx, s.db, builder.Insert(tableLearners).
		Columns("name", "identifier", "created_at").
		Values(l.Name, l.Identifier, l.CreatedAt))
	if isConstraintViolation(err) {
		return nil, fmt.Errorf("learner %q: %w", identifier, ErrDuplicate)
	}
	if err != nil {
		return nil, fmt.Errorf("save learner: %w", err)
	}
	if l.ID, err = res.LastInsertId(); err != nil {
		return nil, fmt.Errorf("save learner: %w", err)
	}
	return l, nil
}

// isConstraintViolation reports whether err is SQLITE_CONSTRAINT or one of
// its extended codes.
func isConstraintViolation(err error) bool {
	var se *sqlite.Error
	return errors.As(err, &se) && se.Code()&0xff == sqlite3.SQLITE_CONSTRAINT
}

// Learner returns the learner with id, including its session count.
func (s *Store) Learner(ctx context.Context, id int64) (*Learner, error) {
	return s.oneLearner(ctx, entsql.EQ("id", id), fmt.Sprintf("learner %d", id))
}

// LearnerByIdentifier looks a learner up by its unique identifier.
func (s *Store) LearnerByIdentifier(ctx context.Context, identifier string) (*Learner, error) {
	return s.oneLearner(ctx, entsql.EQ("identifier", identifier), fmt.Sprintf("learner %q", identifier))
}

func (s *Store) oneLearner(ctx context.Context, pred *entsql.Predicate, label string) (*Learner, error) {
	sel := builder.Select(learnerColumns...).From(builder.Table(tableLearners)).Where(pred)
	ls, err := s.learners(ctx, sel)
	if err != nil {
		return nil, err
	}
	if len(ls) == 0 {
		return nil, fmt.Errorf("%s: %w", label, ErrNotFound)
	}
	return &ls[0], nil
}

// ListLearners returns all learners ordered by name.
func (s *Store) ListLearners(ctx context.Context) ([]Learner, error) {
	sel := builder.Select(learnerColumns...).From(builder.Table(tableLearners)).OrderBy("name", "id")
	return s.learners(ctx, sel)
}

func (s *Store) learners(ctx context.Context, sel *entsql.Selector) ([]Learner, error) {
	var out []Learner
	err := selectRows(ctx, s.db, sel, func(rows *sql.Rows) error {
		var l Learner
		if err := rows.Scan(&l.ID, &l.Name, &l.Identifier, &l.CreatedAt); err != nil {
			return err
		}
		out = append(out, l)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("query learners: %w", err)
	}
	if len(out) == 0 {
		return out, nil
	}

	counts, err := s.sessionCounts(ctx)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Sessions = counts[out[i].ID]
	}
	return out, nil
}

func (s *Store) sessionCounts(ctx context.Context) (map[int64]int, error) {
	sel := builder.Select("learner_id", entsql.Count("*")).
		From(builder.Table(tableSessions)).
		Where(entsql.NotNull("learner_id")).
		GroupBy("learner_id")

	counts := make(map[int64]int)
	err := selectRows(ctx, s.db, sel, func(rows *sql.Rows) error {
		var (
			id int64
			n  int
		)
		if err := rows.Scan(&id, &n); err != nil {
			return err
		}
		counts[id] = n
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("count sessions: %w", err)
	}
	return counts, nil
}
