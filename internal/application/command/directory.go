package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/alem-hub/mentorship-portal/internal/domain/directory"
	"github.com/alem-hub/mentorship-portal/internal/domain/shared"
	"github.com/alem-hub/mentorship-portal/pkg/logger"
)

// PasswordHasher hashes and verifies passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
	// Compare returns nil only when password matches hash.
	Compare(hash, password string) error
}

// TokenIssuer signs access tokens for an authenticated actor.
type TokenIssuer interface {
	Issue(actor shared.Actor) (token string, expiresAt time.Time, err error)
}

// ══════════════════════════════════════════════════════════════════════════════
// DIRECTORY COMMANDS
// Registration, login, alumni approval and skill management. Plain
// create/update plumbing around the directory repository.
// ══════════════════════════════════════════════════════════════════════════════

// RegisterStudentCommand creates a student account.
type RegisterStudentCommand struct {
	Name       string `validate:"required,max=120"`
	Email      string `validate:"required,email"`
	Password   string `validate:"required,min=8,max=72"`
	Semester   int    `validate:"gte=0,lte=12"`
	Department string `validate:"max=120"`
	Phone      string `validate:"max=32"`
}

// RegisterAlumniCommand creates an alumni account awaiting approval.
type RegisterAlumniCommand struct {
	Name              string `validate:"required,max=120"`
	Email             string `validate:"required,email"`
	Password          string `validate:"required,min=8,max=72"`
	GraduatingYear    int    `validate:"gte=1950,lte=2100"`
	IndustryID        int    `validate:"required,gt=0"`
	Designation       string `validate:"max=120"`
	YearsOfExperience int    `validate:"gte=0,lte=70"`
	Phone             string `validate:"max=32"`
}

// AuthenticateCommand logs an account in.
type AuthenticateCommand struct {
	Role     shared.Role `validate:"required,oneof=student alumni admin"`
	Email    string      `validate:"required"`
	Password string      `validate:"required"`
}

// AuthenticateResult carries the issued token.
type AuthenticateResult struct {
	Actor     shared.Actor
	Name      string
	Token     string
	ExpiresAt time.Time
}

// ApproveAlumniCommand lets an admin approve an alumnus.
type ApproveAlumniCommand struct {
	Actor    shared.Actor
	AlumniID string `validate:"required"`
}

// ReplaceSkillsCommand replaces the actor's own skill set.
type ReplaceSkillsCommand struct {
	Actor  shared.Actor
	Skills []string `validate:"max=50,dive,max=60"`
}

// EnsureAdminCommand creates the bootstrap admin account if it is missing.
type EnsureAdminCommand struct {
	Name     string
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=8,max=72"`
}

// DirectoryHandler handles the directory commands.
type DirectoryHandler struct {
	directory directory.Repository
	hasher    PasswordHasher
	tokens    TokenIssuer
	events    publisher
	log       *logger.Logger
}

// NewDirectoryHandler creates a new DirectoryHandler.
func NewDirectoryHandler(
	dir directory.Repository,
	hasher PasswordHasher,
	tokens TokenIssuer,
	eventPublisher shared.EventPublisher,
	log *logger.Logger,
) *DirectoryHandler {
	log = orNop(log).With(logger.Component("directory"))
	return &DirectoryHandler{
		directory: dir,
		hasher:    hasher,
		tokens:    tokens,
		events:    publisher{bus: eventPublisher, log: log},
		log:       log,
	}
}

// RegisterStudent executes a RegisterStudentCommand.
func (h *DirectoryHandler) RegisterStudent(ctx context.Context, cmd RegisterStudentCommand) (*directory.Student, error) {
	if err := validateCommand("RegisterStudent", cmd); err != nil {
		return nil, err
	}
	hash, err := h.hasher.Hash(cmd.Password)
	if err != nil {
		return nil, fmt.Errorf("register_student: hash password: %w", err)
	}

	st, err := directory.NewStudent(directory.NewStudentParams{
		ID:           uuid.NewString(),
		Name:         cmd.Name,
		Email:        cmd.Email,
		PasswordHash: hash,
		Semester:     cmd.Semester,
		Department:   cmd.Department,
		Phone:        cmd.Phone,
	})
	if err != nil {
		return nil, err
	}
	if err := h.directory.CreateStudent(ctx, st); err != nil {
		return nil, fmt.Errorf("register_student: %w", err)
	}

	h.log.Info("student registered", logger.StudentID(st.ID))
	return st, nil
}

// RegisterAlumni executes a RegisterAlumniCommand.
func (h *DirectoryHandler) RegisterAlumni(ctx context.Context, cmd RegisterAlumniCommand) (*directory.Alumni, error) {
	if err := validateCommand("RegisterAlumni", cmd); err != nil {
		return nil, err
	}
	hash, err := h.hasher.Hash(cmd.Password)
	if err != nil {
		return nil, fmt.Errorf("register_alumni: hash password: %w", err)
	}

	a, err := directory.NewAlumni(directory.NewAlumniParams{
		ID:                uuid.NewString(),
		Name:              cmd.Name,
		Email:             cmd.Email,
		PasswordHash:      hash,
		GraduatingYear:    cmd.GraduatingYear,
		IndustryID:        cmd.IndustryID,
		Designation:       cmd.Designation,
		YearsOfExperience: cmd.YearsOfExperience,
		Phone:             cmd.Phone,
	})
	if err != nil {
		return nil, err
	}
	if err := h.directory.CreateAlumni(ctx, a); err != nil {
		return nil, fmt.Errorf("register_alumni: %w", err)
	}

	h.log.Info("alumnus registered, awaiting approval", logger.AlumniID(a.ID))
	return a, nil
}

// Authenticate executes an AuthenticateCommand. Unknown emails and wrong
// passwords produce the same error.
func (h *DirectoryHandler) Authenticate(ctx context.Context, cmd AuthenticateCommand) (*AuthenticateResult, error) {
	if err := validateCommand("Authenticate", cmd); err != nil {
		return nil, err
	}

	acc, err := h.directory.FindAccount(ctx, cmd.Role, cmd.Email)
	if err != nil {
		if errors.Is(err, shared.ErrUnauthorized) {
			return nil, directory.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("authenticate: %w", err)
	}
	if acc.PasswordHash == "" || h.hasher.Compare(acc.PasswordHash, cmd.Password) != nil {
		return nil, directory.ErrInvalidCredentials
	}
	if !acc.Approved {
		return nil, directory.ErrAwaitingApproval
	}

	actor, err := shared.NewActor(acc.ID, acc.Role)
	if err != nil {
		return nil, err
	}
	token, expiresAt, err := h.tokens.Issue(actor)
	if err != nil {
		return nil, fmt.Errorf("authenticate: issue token: %w", err)
	}

	h.log.Info("account authenticated", logger.UserID(acc.ID), logger.Role(string(acc.Role)))
	return &AuthenticateResult{Actor: actor, Name: acc.Name, Token: token, ExpiresAt: expiresAt}, nil
}

// ApproveAlumni executes an ApproveAlumniCommand.
func (h *DirectoryHandler) ApproveAlumni(ctx context.Context, cmd ApproveAlumniCommand) error {
	if err := validateCommand("ApproveAlumni", cmd); err != nil {
		return err
	}
	if !cmd.Actor.IsAdmin() {
		return directory.ErrAdminOnly
	}
	if err := h.directory.ApproveAlumni(ctx, cmd.AlumniID); err != nil {
		return fmt.Errorf("approve_alumni: %w", err)
	}

	h.log.Info("alumnus approved", logger.AlumniID(cmd.AlumniID), logger.UserID(cmd.Actor.UserID))
	h.events.publish(shared.NewAlumniApprovedEvent(cmd.AlumniID, cmd.Actor.UserID))
	return nil
}

// ReplaceSkills executes a ReplaceSkillsCommand and returns the skills that
// were applied. Unknown skill names are dropped.
func (h *DirectoryHandler) ReplaceSkills(ctx context.Context, cmd ReplaceSkillsCommand) ([]string, error) {
	if err := validateCommand("ReplaceSkills", cmd); err != nil {
		return nil, err
	}
	if !cmd.Actor.IsStudent() && !cmd.Actor.IsAlumni() {
		return nil, directory.ErrSkillsOwnerOnly
	}

	applied, err := h.directory.ReplaceSkills(ctx, cmd.Actor.Role, cmd.Actor.UserID, cmd.Skills)
	if err != nil {
		return nil, fmt.Errorf("replace_skills: %w", err)
	}
	return applied, nil
}

// EnsureAdmin executes an EnsureAdminCommand. It is a no-op when an admin
// with that email exists.
func (h *DirectoryHandler) EnsureAdmin(ctx context.Context, cmd EnsureAdminCommand) (created bool, err error) {
	if err := validateCommand("EnsureAdmin", cmd); err != nil {
		return false, err
	}

	_, err = h.directory.FindAccount(ctx, shared.RoleAdmin, cmd.Email)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, shared.ErrUnauthorized) {
		return false, fmt.Errorf("ensure_admin: %w", err)
	}

	hash, err := h.hasher.Hash(cmd.Password)
	if err != nil {
		return false, fmt.Errorf("ensure_admin: hash password: %w", err)
	}
	name := cmd.Name
	if name == "" {
		name = "Administrator"
	}
	acc := &directory.Account{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        cmd.Email,
		PasswordHash: hash,
		Role:         shared.RoleAdmin,
		Approved:     true,
	}
	if err := h.directory.CreateAdmin(ctx, acc); err != nil {
		if errors.Is(err, shared.ErrAlreadyExists) {
			return false, nil
		}
		return false, fmt.Errorf("ensure_admin: %w", err)
	}

	h.log.Info("bootstrap admin created", logger.UserID(acc.ID))
	return true, nil
}
