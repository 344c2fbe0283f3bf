package postgres

import (
	"context"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/alem-hub/mentorship-portal/internal/domain/placement"
)

// PlacementRepository implements placement.Repository.
type PlacementRepository struct {
	conn *Connection
}

// NewPlacementRepository creates a new placement repository.
func NewPlacementRepository(conn *Connection) *PlacementRepository {
	return &PlacementRepository{conn: conn}
}

func dateOrNull(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

// Upsert implements placement.Repository. A transaction-scoped advisory
// lock on the student serializes concurrent upserts, so a transition to
// placed is logged exactly once.
func (r *PlacementRepository) Upsert(ctx context.Context, p *placement.Placement) (bool, error) {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	var logged bool
	err := r.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, "placement:"+p.StudentID); err != nil {
			return err
		}

		var prev *placement.Placement
		var wasPlaced bool
		err := tx.QueryRow(ctx, `SELECT is_placed FROM placements WHERE student_id = $1`, p.StudentID).Scan(&wasPlaced)
		switch {
		case IsNoRows(err):
		case err != nil:
			return err
		default:
			prev = &placement.Placement{StudentID: p.StudentID, IsPlaced: wasPlaced}
		}

		_, err = execBuilt(ctx, tx, r.conn.sb.Insert("placements").
			Columns("student_id", "is_placed", "company", "placement_date", "updated_at").
			Values(p.StudentID, p.IsPlaced, p.Company, dateOrNull(p.Date), p.UpdatedAt).
			Suffix(`ON CONFLICT (student_id) DO UPDATE SET
				is_placed = EXCLUDED.is_placed,
				company = EXCLUDED.company,
				placement_date = EXCLUDED.placement_date,
				updated_at = EXCLUDED.updated_at`))
		if err != nil {
			return err
		}

		if !placement.ShouldLog(prev, p) {
			return nil
		}
		entry := placement.NewLogEntry(p, time.Now().UTC())
		if _, err := execBuilt(ctx, tx, r.conn.sb.Insert("placement_log").
			Columns("student_id", "company", "placement_date", "logged_at").
			Values(entry.StudentID, entry.Company, entry.PlacementDate, entry.LoggedAt)); err != nil {
			return err
		}
		logged = true
		return nil
	})
	if err != nil {
		return false, mapError("UpsertPlacement", err)
	}
	return logged, nil
}

// Get implements placement.Repository.
func (r *PlacementRepository) Get(ctx context.Context, studentID string) (*placement.Placement, error) {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	sql, args, err := r.conn.sb.Select("student_id", "is_placed", "company", "placement_date", "updated_at").
		From("placements").
		Where(squirrel.Eq{"student_id": studentID}).
		ToSql()
	if err != nil {
		return nil, err
	}

	var (
		p    placement.Placement
		date *time.Time
	)
	err = r.conn.QueryRow(ctx, sql, args...).Scan(&p.StudentID, &p.IsPlaced, &p.Company, &date, &p.UpdatedAt)
	if IsNoRows(err) {
		return nil, placement.ErrPlacementNotFound
	}
	if err != nil {
		return nil, mapError("GetPlacement", err)
	}
	if date != nil {
		p.Date = *date
	}
	return &p, nil
}

// CountPlaced implements placement.Repository.
func (r *PlacementRepository) CountPlaced(ctx context.Context) (int, error) {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	n, err := countBuilt(ctx, r.conn, r.conn.sb.Select("COUNT(*)").
		From("placements").
		Where(squirrel.Eq{"is_placed": true}))
	return n, mapError("CountPlaced", err)
}

// Trends implements placement.Repository.
func (r *PlacementRepository) Trends(ctx context.Context) ([]placement.TrendPoint, error) {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	rows, err := queryBuilt(ctx, r.conn, r.conn.sb.Select("placement_date", "COUNT(*)").
		From("placements").
		Where(squirrel.Eq{"is_placed": true}).
		Where(squirrel.NotEq{"placement_date": nil}).
		GroupBy("placement_date").
		OrderBy("placement_date"))
	if err != nil {
		return nil, mapError("PlacementTrends", err)
	}
	defer rows.Close()

	out := make([]placement.TrendPoint, 0)
	for rows.Next() {
		var tp placement.TrendPoint
		if err := rows.Scan(&tp.Date, &tp.Count); err != nil {
			return nil, mapError("PlacementTrends", err)
		}
		out = append(out, tp)
	}
	return out, mapError("PlacementTrends", rows.Err())
}

// Log implements placement.Repository.
func (r *PlacementRepository) Log(ctx context.Context) ([]*placement.LogEntry, error) {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	rows, err := queryBuilt(ctx, r.conn, r.conn.sb.
		Select("l.id", "l.student_id", "COALESCE(s.name, '')", "l.company", "l.placement_date", "l.logged_at").
		From("placement_log l").
		LeftJoin("students s ON s.id = l.student_id").
		OrderBy("l.logged_at DESC", "l.id DESC"))
	if err != nil {
		return nil, mapError("PlacementLog", err)
	}
	defer rows.Close()

	out := make([]*placement.LogEntry, 0)
	for rows.Next() {
		var e placement.LogEntry
		if err := rows.Scan(&e.ID, &e.StudentID, &e.StudentName, &e.Company, &e.PlacementDate, &e.LoggedAt); err != nil {
			return nil, mapError("PlacementLog", err)
		}
		out = append(out, &e)
	}
	return out, mapError("PlacementLog", rows.Err())
}
