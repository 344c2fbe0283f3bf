package directory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStudent(t *testing.T) {
	s, err := NewStudent(NewStudentParams{
		ID:           "stu-1",
		Name:         " Asha ",
		Email:        "Asha@College.EDU",
		PasswordHash: "hash",
		Semester:     5,
	})
	require.NoError(t, err)
	assert.Equal(t, "Asha", s.Name)
	assert.Equal(t, "asha@college.edu", s.Email)

	_, err = NewStudent(NewStudentParams{ID: "x", Name: "n", Email: "not-an-email", PasswordHash: "h"})
	assert.ErrorIs(t, err, ErrInvalidEmail)

	_, err = NewStudent(NewStudentParams{ID: "x", Name: "n", Email: "a@b.c", PasswordHash: "h", Semester: 20})
	assert.ErrorIs(t, err, ErrInvalidSemester)
}

func TestNewAlumni_StartsUnapproved(t *testing.T) {
	a, err := NewAlumni(NewAlumniParams{
		ID:                "alu-1",
		Name:              "Ravi",
		Email:             "ravi@corp.com",
		PasswordHash:      "hash",
		IndustryID:        2,
		YearsOfExperience: 4,
	})
	require.NoError(t, err)
	assert.False(t, a.Approved)
	assert.False(t, a.CanMentor())

	_, err = NewAlumni(NewAlumniParams{ID: "x", Name: "n", Email: "a@b.c", PasswordHash: "h"})
	assert.ErrorIs(t, err, ErrIndustryNotFound)
}

func TestNormalizeSkills(t *testing.T) {
	got := NormalizeSkills([]string{" Go ", "", "go", "SQL", "  ", "Docker"})
	assert.Equal(t, []string{"Go", "SQL", "Docker"}, got)
	assert.Empty(t, NormalizeSkills(nil))
}
