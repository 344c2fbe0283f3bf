package postgres

import (
	"context"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/alem-hub/mentorship-portal/internal/domain/mentorship"
	"github.com/alem-hub/mentorship-portal/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// SESSION REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

// SessionRepository implements mentorship.SessionRepository.
type SessionRepository struct {
	conn *Connection
}

// NewSessionRepository creates a new session repository.
func NewSessionRepository(conn *Connection) *SessionRepository {
	return &SessionRepository{conn: conn}
}

var sessionColumns = []string{
	"ms.id", "ms.request_id", "ms.student_id", "ms.alumni_id", "ms.session_date",
	"ms.mode", "ms.topics", "ms.content", "ms.meeting_link", "ms.proposed_by",
	"ms.status", "ms.created_at", "ms.confirmed_at", "ms.completed_at",
	"ms.cancelled_at", "s.name", "a.name",
}

func (r *SessionRepository) selectSessions() squirrel.SelectBuilder {
	return r.conn.sb.Select(sessionColumns...).
		From("mentorship_sessions ms").
		Join("students s ON s.id = ms.student_id").
		Join("alumni a ON a.id = ms.alumni_id")
}

func filterSessions(b squirrel.SelectBuilder, f mentorship.SessionFilter) squirrel.SelectBuilder {
	if f.StudentID != "" {
		b = b.Where(squirrel.Eq{"ms.student_id": f.StudentID})
	}
	if f.AlumniID != "" {
		b = b.Where(squirrel.Eq{"ms.alumni_id": f.AlumniID})
	}
	if f.Status != "" {
		b = b.Where(squirrel.Eq{"ms.status": string(f.Status)})
	}
	return b
}

func scanSession(row pgx.Row) (*mentorship.Session, error) {
	var (
		s                        mentorship.Session
		requestID, link          *string
		mode, proposedBy, status string
	)
	err := row.Scan(
		&s.ID, &requestID, &s.StudentID, &s.AlumniID, &s.Date,
		&mode, &s.Topics, &s.Content, &link, &proposedBy,
		&status, &s.CreatedAt, &s.ConfirmedAt, &s.CompletedAt,
		&s.CancelledAt, &s.StudentName, &s.AlumniName,
	)
	if err != nil {
		return nil, err
	}
	if requestID != nil {
		s.RequestID = *requestID
	}
	if link != nil {
		s.MeetingLink = *link
	}
	s.Mode = mentorship.Mode(mode)
	s.ProposedBy = shared.Role(proposedBy)
	s.Status = mentorship.SessionStatus(status)
	return &s, nil
}

// nullIfEmpty stores "" as NULL so unique constraints ignore it.
func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// ─────────────────────────────────────────────────────────────────────────────
// Commands
// ─────────────────────────────────────────────────────────────────────────────

// Create inserts a proposed session. uq_sessions_request turns a second
// proposal for the same request into ErrSessionAlreadyProposed.
func (r *SessionRepository) Create(ctx context.Context, session *mentorship.Session) error {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	_, err := execBuilt(ctx, r.conn, r.conn.sb.Insert("mentorship_sessions").
		Columns("id", "request_id", "student_id", "alumni_id", "session_date", "mode",
			"topics", "content", "meeting_link", "proposed_by", "status", "created_at").
		Values(session.ID, nullIfEmpty(session.RequestID), session.StudentID, session.AlumniID,
			session.Date, string(session.Mode), session.Topics, session.Content,
			nullIfEmpty(session.MeetingLink), string(session.ProposedBy), string(session.Status),
			session.CreatedAt))
	return mapError("CreateSession", err)
}

// Confirm implements mentorship.SessionRepository.
func (r *SessionRepository) Confirm(ctx context.Context, id, meetingLink string, at time.Time) error {
	if meetingLink == "" {
		return mentorship.ErrMeetingLinkRequired
	}

	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	tag, err := execBuilt(ctx, r.conn, r.conn.sb.Update("mentorship_sessions").
		Set("status", string(mentorship.SessionConfirmed)).
		Set("meeting_link", meetingLink).
		Set("confirmed_at", at).
		Where(squirrel.Eq{"id": id, "status": string(mentorship.SessionPendingConfirmation)}))
	if err != nil {
		return mapError("ConfirmSession", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}
	return r.guardFailure(ctx, "ConfirmSession", id, mentorship.ErrSessionNotPending)
}

// Transition implements mentorship.SessionRepository.
func (r *SessionRepository) Transition(ctx context.Context, id string, from, to mentorship.SessionStatus, at time.Time) error {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	b := r.conn.sb.Update("mentorship_sessions").
		Set("status", string(to)).
		Where(squirrel.Eq{"id": id, "status": string(from)})
	switch to {
	case mentorship.SessionCompleted:
		b = b.Set("completed_at", at)
	case mentorship.SessionCancelled:
		b = b.Set("cancelled_at", at)
	}

	tag, err := execBuilt(ctx, r.conn, b)
	if err != nil {
		return mapError("TransitionSession", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	guard := mentorship.ErrSessionNotPending
	if from == mentorship.SessionConfirmed {
		guard = mentorship.ErrSessionNotConfirmed
	}
	return r.guardFailure(ctx, "TransitionSession", id, guard)
}

// UpdateContent implements mentorship.SessionRepository.
func (r *SessionRepository) UpdateContent(ctx context.Context, id, content string) error {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	tag, err := execBuilt(ctx, r.conn, r.conn.sb.Update("mentorship_sessions").
		Set("content", content).
		Where(squirrel.Eq{"id": id}))
	if err != nil {
		return mapError("UpdateSessionContent", err)
	}
	if tag.RowsAffected() == 0 {
		return mentorship.ErrSessionNotFound
	}
	return nil
}

// guardFailure explains a guarded UPDATE that touched no row: either the
// session is gone or it has left the expected state.
func (r *SessionRepository) guardFailure(ctx context.Context, op, id string, guard error) error {
	var exists bool
	err := r.conn.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM mentorship_sessions WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return mapError(op, err)
	}
	if !exists {
		return mentorship.ErrSessionNotFound
	}
	return guard
}

// ─────────────────────────────────────────────────────────────────────────────
// Queries
// ─────────────────────────────────────────────────────────────────────────────

// GetByID implements mentorship.SessionRepository.
func (r *SessionRepository) GetByID(ctx context.Context, id string) (*mentorship.Session, error) {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	sql, args, err := r.selectSessions().Where(squirrel.Eq{"ms.id": id}).ToSql()
	if err != nil {
		return nil, err
	}
	session, err := scanSession(r.conn.QueryRow(ctx, sql, args...))
	if IsNoRows(err) {
		return nil, mentorship.ErrSessionNotFound
	}
	if err != nil {
		return nil, mapError("GetSession", err)
	}
	return session, nil
}

// ExistsForRequest implements mentorship.SessionRepository.
func (r *SessionRepository) ExistsForRequest(ctx context.Context, requestID string) (bool, error) {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	n, err := countBuilt(ctx, r.conn, r.conn.sb.Select("COUNT(*)").
		From("mentorship_sessions").
		Where(squirrel.Eq{"request_id": requestID}))
	if err != nil {
		return false, mapError("SessionExistsForRequest", err)
	}
	return n > 0, nil
}

// List implements mentorship.SessionRepository.
func (r *SessionRepository) List(ctx context.Context, filter mentorship.SessionFilter) ([]*mentorship.Session, error) {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	rows, err := queryBuilt(ctx, r.conn, filterSessions(r.selectSessions(), filter).
		OrderBy("ms.session_date DESC", "ms.created_at DESC"))
	if err != nil {
		return nil, mapError("ListSessions", err)
	}
	defer rows.Close()

	out := make([]*mentorship.Session, 0)
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, mapError("ListSessions", err)
		}
		out = append(out, s)
	}
	return out, mapError("ListSessions", rows.Err())
}

// Count implements mentorship.SessionRepository.
func (r *SessionRepository) Count(ctx context.Context, filter mentorship.SessionFilter) (int, error) {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	n, err := countBuilt(ctx, r.conn, filterSessions(
		r.conn.sb.Select("COUNT(*)").From("mentorship_sessions ms"), filter))
	return n, mapError("CountSessions", err)
}
