package postgres

import (
	"context"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/alem-hub/mentorship-portal/internal/domain/mentorship"
)

// ══════════════════════════════════════════════════════════════════════════════
// REQUEST REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

// RequestRepository implements mentorship.RequestRepository.
type RequestRepository struct {
	conn *Connection
}

// NewRequestRepository creates a new request repository.
func NewRequestRepository(conn *Connection) *RequestRepository {
	return &RequestRepository{conn: conn}
}

var requestColumns = []string{
	"r.id", "r.student_id", "r.alumni_id", "r.message", "r.status",
	"r.created_at", "r.decided_at", "s.name", "a.name",
}

func (r *RequestRepository) selectRequests() squirrel.SelectBuilder {
	return r.conn.sb.Select(requestColumns...).
		From("mentorship_requests r").
		Join("students s ON s.id = r.student_id").
		Join("alumni a ON a.id = r.alumni_id")
}

func filterRequests(b squirrel.SelectBuilder, f mentorship.RequestFilter) squirrel.SelectBuilder {
	if f.StudentID != "" {
		b = b.Where(squirrel.Eq{"r.student_id": f.StudentID})
	}
	if f.AlumniID != "" {
		b = b.Where(squirrel.Eq{"r.alumni_id": f.AlumniID})
	}
	if f.Status != "" {
		b = b.Where(squirrel.Eq{"r.status": string(f.Status)})
	}
	return b
}

func scanRequest(row pgx.Row) (*mentorship.Request, error) {
	var (
		req    mentorship.Request
		status string
	)
	err := row.Scan(
		&req.ID, &req.StudentID, &req.AlumniID, &req.Message, &status,
		&req.CreatedAt, &req.DecidedAt, &req.StudentName, &req.AlumniName,
	)
	if err != nil {
		return nil, err
	}
	req.Status = mentorship.RequestStatus(status)
	return &req, nil
}

func (r *RequestRepository) listRequests(ctx context.Context, op string, b squirrel.SelectBuilder) ([]*mentorship.Request, error) {
	rows, err := queryBuilt(ctx, r.conn, b.OrderBy("r.created_at DESC", "r.id DESC"))
	if err != nil {
		return nil, mapError(op, err)
	}
	defer rows.Close()

	out := make([]*mentorship.Request, 0)
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, mapError(op, err)
		}
		out = append(out, req)
	}
	return out, mapError(op, rows.Err())
}

// ─────────────────────────────────────────────────────────────────────────────
// Commands
// ─────────────────────────────────────────────────────────────────────────────

// Create inserts a pending request. The partial unique index on the pair
// rejects a second active request even when two inserts race.
func (r *RequestRepository) Create(ctx context.Context, req *mentorship.Request) error {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	_, err := execBuilt(ctx, r.conn, r.conn.sb.Insert("mentorship_requests").
		Columns("id", "student_id", "alumni_id", "message", "status", "created_at").
		Values(req.ID, req.StudentID, req.AlumniID, req.Message, string(req.Status), req.CreatedAt))
	return mapError("CreateRequest", err)
}

// Decide implements mentorship.RequestRepository.
func (r *RequestRepository) Decide(ctx context.Context, id string, decision mentorship.RequestStatus, at time.Time) error {
	if !decision.IsDecision() {
		return mentorship.ErrInvalidDecision
	}

	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	tag, err := execBuilt(ctx, r.conn, r.conn.sb.Update("mentorship_requests").
		Set("status", string(decision)).
		Set("decided_at", at).
		Where(squirrel.Eq{"id": id, "status": string(mentorship.RequestPending)}))
	if err != nil {
		return mapError("DecideRequest", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	exists, err := r.exists(ctx, id)
	if err != nil {
		return mapError("DecideRequest", err)
	}
	if !exists {
		return mentorship.ErrRequestNotFound
	}
	return mentorship.ErrRequestAlreadyDecided
}

func (r *RequestRepository) exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := r.conn.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM mentorship_requests WHERE id = $1)`, id).Scan(&exists)
	return exists, err
}

// ─────────────────────────────────────────────────────────────────────────────
// Queries
// ─────────────────────────────────────────────────────────────────────────────

// GetByID implements mentorship.RequestRepository.
func (r *RequestRepository) GetByID(ctx context.Context, id string) (*mentorship.Request, error) {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	sql, args, err := r.selectRequests().Where(squirrel.Eq{"r.id": id}).ToSql()
	if err != nil {
		return nil, err
	}
	req, err := scanRequest(r.conn.QueryRow(ctx, sql, args...))
	if IsNoRows(err) {
		return nil, mentorship.ErrRequestNotFound
	}
	if err != nil {
		return nil, mapError("GetRequest", err)
	}
	return req, nil
}

// HasActive implements mentorship.RequestRepository.
func (r *RequestRepository) HasActive(ctx context.Context, studentID, alumniID string) (bool, error) {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	n, err := countBuilt(ctx, r.conn, r.conn.sb.Select("COUNT(*)").
		From("mentorship_requests").
		Where(squirrel.Eq{
			"student_id": studentID,
			"alumni_id":  alumniID,
			"status":     []string{string(mentorship.RequestPending), string(mentorship.RequestAccepted)},
		}))
	if err != nil {
		return false, mapError("HasActiveRequest", err)
	}
	return n > 0, nil
}

// List implements mentorship.RequestRepository.
func (r *RequestRepository) List(ctx context.Context, filter mentorship.RequestFilter) ([]*mentorship.Request, error) {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	return r.listRequests(ctx, "ListRequests", filterRequests(r.selectRequests(), filter))
}

// ListReadyToPropose implements mentorship.RequestRepository.
func (r *RequestRepository) ListReadyToPropose(ctx context.Context, filter mentorship.RequestFilter) ([]*mentorship.Request, error) {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	filter.Status = mentorship.RequestAccepted
	b := filterRequests(r.selectRequests(), filter).
		Where("NOT EXISTS (SELECT 1 FROM mentorship_sessions ms WHERE ms.request_id = r.id)")
	return r.listRequests(ctx, "ListReadyToPropose", b)
}

// Count implements mentorship.RequestRepository.
func (r *RequestRepository) Count(ctx context.Context, filter mentorship.RequestFilter) (int, error) {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	n, err := countBuilt(ctx, r.conn, filterRequests(
		r.conn.sb.Select("COUNT(*)").From("mentorship_requests r"), filter))
	return n, mapError("CountRequests", err)
}
