package command

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/alem-hub/mentorship-portal/internal/domain/directory"
	"github.com/alem-hub/mentorship-portal/internal/domain/shared"
	"github.com/alem-hub/mentorship-portal/internal/infrastructure/auth"
)

func newDirectoryHandler(t *testing.T, f *fixture) *DirectoryHandler {
	t.Helper()
	tokens, err := auth.NewTokenService(auth.TokenConfig{Secret: "test", Issuer: "test", TTL: time.Hour})
	require.NoError(t, err)
	return NewDirectoryHandler(f.store.Directory(), auth.NewBcryptHasher(bcrypt.MinCost), tokens, f.bus, nil)
}

func TestRegisterAndAuthenticate_Alumni(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	h := newDirectoryHandler(t, f)

	a, err := h.RegisterAlumni(ctx, RegisterAlumniCommand{
		Name: "Dana", Email: "Dana@Corp.kz", Password: "s3cret-pass",
		GraduatingYear: 2015, IndustryID: 2, Designation: "Analyst", YearsOfExperience: 8,
	})
	require.NoError(t, err)
	assert.False(t, a.Approved)
	assert.Equal(t, "dana@corp.kz", a.Email)
	assert.NotEqual(t, "s3cret-pass", a.PasswordHash)

	login := AuthenticateCommand{Role: shared.RoleAlumni, Email: "dana@corp.kz", Password: "s3cret-pass"}
	_, err = h.Authenticate(ctx, login)
	assert.ErrorIs(t, err, shared.ErrPendingApproval)

	err = h.ApproveAlumni(ctx, ApproveAlumniCommand{Actor: student, AlumniID: a.ID})
	assert.ErrorIs(t, err, shared.ErrForbidden)
	require.NoError(t, h.ApproveAlumni(ctx, ApproveAlumniCommand{Actor: admin, AlumniID: a.ID}))

	res, err := h.Authenticate(ctx, login)
	require.NoError(t, err)
	assert.Equal(t, shared.Actor{UserID: a.ID, Role: shared.RoleAlumni}, res.Actor)
	assert.NotEmpty(t, res.Token)
	assert.Contains(t, f.bus.types(), shared.EventAlumniApproved)
}

func TestAuthenticate_WrongCredentials(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	h := newDirectoryHandler(t, f)

	_, err := h.RegisterStudent(ctx, RegisterStudentCommand{Name: "Eldar", Email: "eldar@uni.kz", Password: "password1", Semester: 3})
	require.NoError(t, err)

	tests := []AuthenticateCommand{
		{Role: shared.RoleStudent, Email: "eldar@uni.kz", Password: "password2"},
		{Role: shared.RoleStudent, Email: "nobody@uni.kz", Password: "password1"},
		{Role: shared.RoleAlumni, Email: "eldar@uni.kz", Password: "password1"},
	}
	for _, cmd := range tests {
		_, err := h.Authenticate(ctx, cmd)
		assert.ErrorIs(t, err, shared.ErrUnauthorized, "%+v", cmd)
	}

	_, err = h.Authenticate(ctx, AuthenticateCommand{Role: "root", Email: "eldar@uni.kz", Password: "password1"})
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
}

func TestRegister_Validation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	h := newDirectoryHandler(t, f)

	_, err := h.RegisterStudent(ctx, RegisterStudentCommand{Name: "X", Email: "not-an-email", Password: "password1"})
	assert.ErrorIs(t, err, shared.ErrInvalidInput)

	_, err = h.RegisterStudent(ctx, RegisterStudentCommand{Name: "X", Email: "x@uni.kz", Password: "short"})
	assert.ErrorIs(t, err, shared.ErrInvalidInput)

	_, err = h.RegisterStudent(ctx, RegisterStudentCommand{Name: "Dup", Email: "s1@uni.kz", Password: "password1"})
	assert.ErrorIs(t, err, shared.ErrAlreadyExists)

	_, err = h.RegisterAlumni(ctx, RegisterAlumniCommand{
		Name: "Y", Email: "y@corp.kz", Password: "password1", GraduatingYear: 2010, IndustryID: 42,
	})
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestReplaceSkills(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	h := newDirectoryHandler(t, f)

	applied, err := h.ReplaceSkills(ctx, ReplaceSkillsCommand{Actor: alumnus, Skills: []string{"go", "Basket Weaving", "Cloud"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"Go", "Cloud"}, applied)

	_, err = h.ReplaceSkills(ctx, ReplaceSkillsCommand{Actor: admin, Skills: []string{"Go"}})
	assert.ErrorIs(t, err, shared.ErrForbidden)
}

func TestEnsureAdmin_Idempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	h := newDirectoryHandler(t, f)
	cmd := EnsureAdminCommand{Email: "admin@uni.kz", Password: "admin-password"}

	created, err := h.EnsureAdmin(ctx, cmd)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = h.EnsureAdmin(ctx, cmd)
	require.NoError(t, err)
	assert.False(t, created)

	res, err := h.Authenticate(ctx, AuthenticateCommand{Role: shared.RoleAdmin, Email: "admin@uni.kz", Password: "admin-password"})
	require.NoError(t, err)
	assert.True(t, res.Actor.IsAdmin())

	// There is no fallback credential.
	_, err = h.Authenticate(ctx, AuthenticateCommand{Role: shared.RoleAdmin, Email: "admin@uni.kz", Password: "admin"})
	assert.ErrorIs(t, err, shared.ErrUnauthorized)
}

func TestUpsertPlacement(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	day := time.Date(2024, 7, 15, 0, 0, 0, 0, time.UTC)

	_, err := f.place.Handle(ctx, UpsertPlacementCommand{Actor: student, StudentID: "s1", IsPlaced: true, Company: "Kaspi", Date: day})
	assert.ErrorIs(t, err, shared.ErrForbidden)

	_, err = f.place.Handle(ctx, UpsertPlacementCommand{Actor: admin, StudentID: "ghost", IsPlaced: false})
	assert.ErrorIs(t, err, shared.ErrNotFound)

	_, err = f.place.Handle(ctx, UpsertPlacementCommand{Actor: admin, StudentID: "s1", IsPlaced: true, Date: day})
	assert.ErrorIs(t, err, shared.ErrInvalidInput)

	res, err := f.place.Handle(ctx, UpsertPlacementCommand{Actor: admin, StudentID: "s1", IsPlaced: false})
	require.NoError(t, err)
	assert.False(t, res.Logged)

	res, err = f.place.Handle(ctx, UpsertPlacementCommand{Actor: admin, StudentID: "s1", IsPlaced: true, Company: "Kaspi", Date: day})
	require.NoError(t, err)
	assert.True(t, res.Logged)

	res, err = f.place.Handle(ctx, UpsertPlacementCommand{Actor: admin, StudentID: "s1", IsPlaced: true, Company: "Kaspi", Date: day})
	require.NoError(t, err)
	assert.False(t, res.Logged)

	entries, err := f.store.Placements().Log(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestDirectoryErrorsCarryKinds(t *testing.T) {
	assert.ErrorIs(t, directory.ErrAwaitingApproval, shared.ErrPendingApproval)
	assert.Equal(t, shared.ErrForbidden, shared.Kind(directory.ErrAdminOnly))
}
