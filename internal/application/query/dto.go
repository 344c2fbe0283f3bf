// Package query contains read operations following CQRS pattern.
// Queries never modify state - they only read and return data.
// Each query is a self-contained use case with its own request/response types.
package query

import (
	"time"

	"github.com/alem-hub/mentorship-portal/internal/domain/directory"
	"github.com/alem-hub/mentorship-portal/internal/domain/mentorship"
	"github.com/alem-hub/mentorship-portal/pkg/timeutil"
)

// RequestDTO is a mentorship request as shown to its parties.
type RequestDTO struct {
	ID          string     `json:"id"`
	StudentID   string     `json:"student_id"`
	StudentName string     `json:"student_name,omitempty"`
	AlumniID    string     `json:"alumni_id"`
	AlumniName  string     `json:"alumni_name,omitempty"`
	Message     string     `json:"message"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	DecidedAt   *time.Time `json:"decided_at,omitempty"`
}

// NewRequestDTO converts a domain request.
func NewRequestDTO(r *mentorship.Request) RequestDTO {
	return RequestDTO{
		ID:          r.ID,
		StudentID:   r.StudentID,
		StudentName: r.StudentName,
		AlumniID:    r.AlumniID,
		AlumniName:  r.AlumniName,
		Message:     r.Message,
		Status:      string(r.Status),
		CreatedAt:   r.CreatedAt,
		DecidedAt:   r.DecidedAt,
	}
}

// SessionDTO is a mentorship session as shown to its parties.
type SessionDTO struct {
	ID          string `json:"id"`
	RequestID   string `json:"request_id,omitempty"`
	StudentID   string `json:"student_id"`
	StudentName string `json:"student_name,omitempty"`
	AlumniID    string `json:"alumni_id"`
	AlumniName  string `json:"alumni_name,omitempty"`
	// Date is formatted as YYYY-MM-DD.
	Date        string     `json:"date"`
	Mode        string     `json:"mode"`
	Topics      string     `json:"topics"`
	MeetingLink string     `json:"meeting_link,omitempty"`
	ProposedBy  string     `json:"proposed_by"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	ConfirmedAt *time.Time `json:"confirmed_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`
}

// NewSessionDTO converts a domain session. Content is served separately.
func NewSessionDTO(s *mentorship.Session) SessionDTO {
	return SessionDTO{
		ID:          s.ID,
		RequestID:   s.RequestID,
		StudentID:   s.StudentID,
		StudentName: s.StudentName,
		AlumniID:    s.AlumniID,
		AlumniName:  s.AlumniName,
		Date:        timeutil.FormatDateStr(s.Date),
		Mode:        string(s.Mode),
		Topics:      s.Topics,
		MeetingLink: s.MeetingLink,
		ProposedBy:  string(s.ProposedBy),
		Status:      string(s.Status),
		CreatedAt:   s.CreatedAt,
		ConfirmedAt: s.ConfirmedAt,
		CompletedAt: s.CompletedAt,
		CancelledAt: s.CancelledAt,
	}
}

// FeedbackDTO is one feedback row, on a mentor's profile or in a student's
// history. Only the counterpart's name is set.
type FeedbackDTO struct {
	ID          string    `json:"id"`
	AlumniID    string    `json:"alumni_id,omitempty"`
	AlumniName  string    `json:"alumni_name,omitempty"`
	StudentName string    `json:"student_name,omitempty"`
	Rating      int       `json:"rating"`
	Comments    string    `json:"comments"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewFeedbackDTO converts a feedback row.
func NewFeedbackDTO(f *mentorship.Feedback) FeedbackDTO {
	dto := FeedbackDTO{
		ID:          f.ID,
		AlumniName:  f.AlumniName,
		StudentName: f.StudentName,
		Rating:      f.Rating.Int(),
		Comments:    f.Comments,
		CreatedAt:   f.CreatedAt,
	}
	if f.AlumniName != "" {
		dto.AlumniID = f.AlumniID
	}
	return dto
}

// AlumniDTO is an alumni account as shown to admins.
type AlumniDTO struct {
	ID                string    `json:"id"`
	Name              string    `json:"name"`
	Email             string    `json:"email"`
	GraduatingYear    int       `json:"graduating_year"`
	Industry          string    `json:"industry"`
	Designation       string    `json:"designation"`
	YearsOfExperience int       `json:"years_of_experience"`
	Approved          bool      `json:"approved"`
	CreatedAt         time.Time `json:"created_at"`
}

// NewAlumniDTO converts a directory alumnus, leaving out the password hash.
func NewAlumniDTO(a *directory.Alumni) AlumniDTO {
	return AlumniDTO{
		ID:                a.ID,
		Name:              a.Name,
		Email:             a.Email,
		GraduatingYear:    a.GraduatingYear,
		Industry:          a.IndustryName,
		Designation:       a.Designation,
		YearsOfExperience: a.YearsOfExperience,
		Approved:          a.Approved,
		CreatedAt:         a.CreatedAt,
	}
}

// StudentDTO is a student account as shown to admins.
type StudentDTO struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Department string    `json:"department"`
	Semester   int       `json:"semester"`
	CreatedAt  time.Time `json:"created_at"`
}

// NewStudentDTO converts a directory student, leaving out the password hash.
func NewStudentDTO(s *directory.Student) StudentDTO {
	return StudentDTO{
		ID:         s.ID,
		Name:       s.Name,
		Email:      s.Email,
		Department: s.Department,
		Semester:   s.Semester,
		CreatedAt:  s.CreatedAt,
	}
}
