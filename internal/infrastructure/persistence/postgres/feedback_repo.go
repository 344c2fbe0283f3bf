package postgres

import (
	"context"

	"github.com/Masterminds/squirrel"

	"github.com/alem-hub/mentorship-portal/internal/domain/mentorship"
)

// FeedbackRepository implements mentorship.FeedbackRepository.
type FeedbackRepository struct {
	conn *Connection
}

// NewFeedbackRepository creates a new feedback repository.
func NewFeedbackRepository(conn *Connection) *FeedbackRepository {
	return &FeedbackRepository{conn: conn}
}

// Create implements mentorship.FeedbackRepository.
func (r *FeedbackRepository) Create(ctx context.Context, fb *mentorship.Feedback) error {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	_, err := execBuilt(ctx, r.conn, r.conn.sb.Insert("feedback").
		Columns("id", "student_id", "alumni_id", "rating", "comments", "created_at").
		Values(fb.ID, fb.StudentID, fb.AlumniID, fb.Rating.Int(), fb.Comments, fb.CreatedAt))
	return mapError("CreateFeedback", err)
}

// Summary implements mentorship.FeedbackRepository.
func (r *FeedbackRepository) Summary(ctx context.Context, alumniID string) (mentorship.RatingSummary, error) {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	sql, args, err := r.conn.sb.Select("COALESCE(SUM(rating), 0)", "COUNT(*)").
		From("feedback").
		Where(squirrel.Eq{"alumni_id": alumniID}).
		ToSql()
	if err != nil {
		return mentorship.RatingSummary{}, err
	}

	var sum, count int
	if err := r.conn.QueryRow(ctx, sql, args...).Scan(&sum, &count); err != nil {
		return mentorship.RatingSummary{}, mapError("RatingSummary", err)
	}
	return mentorship.NewRatingSummary(alumniID, sum, count), nil
}

// ListByAlumni implements mentorship.FeedbackRepository.
func (r *FeedbackRepository) ListByAlumni(ctx context.Context, alumniID string) ([]*mentorship.Feedback, error) {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	rows, err := queryBuilt(ctx, r.conn, r.conn.sb.
		Select("f.id", "f.student_id", "f.alumni_id", "f.rating", "f.comments", "f.created_at", "s.name").
		From("feedback f").
		Join("students s ON s.id = f.student_id").
		Where(squirrel.Eq{"f.alumni_id": alumniID}).
		OrderBy("f.created_at DESC", "f.id DESC"))
	if err != nil {
		return nil, mapError("ListFeedback", err)
	}
	defer rows.Close()

	out := make([]*mentorship.Feedback, 0)
	for rows.Next() {
		var (
			fb     mentorship.Feedback
			rating int
		)
		if err := rows.Scan(&fb.ID, &fb.StudentID, &fb.AlumniID, &rating, &fb.Comments, &fb.CreatedAt, &fb.StudentName); err != nil {
			return nil, mapError("ListFeedback", err)
		}
		fb.Rating = mentorship.Rating(rating)
		out = append(out, &fb)
	}
	return out, mapError("ListFeedback", rows.Err())
}

// ListByStudent implements mentorship.FeedbackRepository.
func (r *FeedbackRepository) ListByStudent(ctx context.Context, studentID string) ([]*mentorship.Feedback, error) {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	rows, err := queryBuilt(ctx, r.conn, r.conn.sb.
		Select("f.id", "f.student_id", "f.alumni_id", "f.rating", "f.comments", "f.created_at", "a.name").
		From("feedback f").
		Join("alumni a ON a.id = f.alumni_id").
		Where(squirrel.Eq{"f.student_id": studentID}).
		OrderBy("f.created_at DESC", "f.id DESC"))
	if err != nil {
		return nil, mapError("ListStudentFeedback", err)
	}
	defer rows.Close()

	out := make([]*mentorship.Feedback, 0)
	for rows.Next() {
		var (
			fb     mentorship.Feedback
			rating int
		)
		if err := rows.Scan(&fb.ID, &fb.StudentID, &fb.AlumniID, &rating, &fb.Comments, &fb.CreatedAt, &fb.AlumniName); err != nil {
			return nil, mapError("ListStudentFeedback", err)
		}
		fb.Rating = mentorship.Rating(rating)
		out = append(out, &fb)
	}
	return out, mapError("ListStudentFeedback", rows.Err())
}
