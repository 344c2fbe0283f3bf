package postgres

import (
	"context"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/alem-hub/mentorship-portal/internal/domain/directory"
	"github.com/alem-hub/mentorship-portal/internal/domain/mentorship"
	"github.com/alem-hub/mentorship-portal/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// DIRECTORY REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

// DirectoryRepository implements directory.Repository.
type DirectoryRepository struct {
	conn *Connection
}

// NewDirectoryRepository creates a new directory repository.
func NewDirectoryRepository(conn *Connection) *DirectoryRepository {
	return &DirectoryRepository{conn: conn}
}

const (
	studentSkillsExpr = `COALESCE((SELECT array_agg(sk.name ORDER BY sk.name) FROM student_skills ss JOIN skills sk ON sk.id = ss.skill_id WHERE ss.student_id = st.id), '{}')`
	alumniSkillsExpr  = `COALESCE((SELECT array_agg(sk.name ORDER BY sk.name) FROM alumni_skills als JOIN skills sk ON sk.id = als.skill_id WHERE als.alumni_id = a.id), '{}')`
	ratingsJoin       = `(SELECT alumni_id, SUM(rating) AS total, COUNT(*) AS cnt FROM feedback GROUP BY alumni_id) fr ON fr.alumni_id = a.id`
)

var alumniColumns = []string{
	"a.id", "a.name", "a.email", "a.password_hash", "a.graduating_year", "a.industry_id",
	"COALESCE(i.name, '')", "a.designation", "a.years_of_experience", "a.phone",
	"a.approved", "a.created_at", alumniSkillsExpr,
}

func (r *DirectoryRepository) selectAlumni() squirrel.SelectBuilder {
	return r.conn.sb.Select(alumniColumns...).
		From("alumni a").
		LeftJoin("industries i ON i.id = a.industry_id")
}

func scanAlumni(row pgx.Row) (*directory.Alumni, error) {
	var a directory.Alumni
	err := row.Scan(
		&a.ID, &a.Name, &a.Email, &a.PasswordHash, &a.GraduatingYear, &a.IndustryID,
		&a.IndustryName, &a.Designation, &a.YearsOfExperience, &a.Phone,
		&a.Approved, &a.CreatedAt, &a.Skills,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// containsPattern builds an ILIKE pattern matching s anywhere.
func containsPattern(s string) string {
	s = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
	return "%" + s + "%"
}

// ─────────────────────────────────────────────────────────────────────────────
// Registration & approval
// ─────────────────────────────────────────────────────────────────────────────

// CreateStudent implements directory.Repository.
func (r *DirectoryRepository) CreateStudent(ctx context.Context, s *directory.Student) error {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	_, err := execBuilt(ctx, r.conn, r.conn.sb.Insert("students").
		Columns("id", "name", "email", "password_hash", "semester", "department", "phone", "created_at").
		Values(s.ID, s.Name, s.Email, s.PasswordHash, s.Semester, s.Department, s.Phone, s.CreatedAt))
	return mapError("CreateStudent", err)
}

// CreateAlumni implements directory.Repository.
func (r *DirectoryRepository) CreateAlumni(ctx context.Context, a *directory.Alumni) error {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	_, err := execBuilt(ctx, r.conn, r.conn.sb.Insert("alumni").
		Columns("id", "name", "email", "password_hash", "graduating_year", "industry_id",
			"designation", "years_of_experience", "phone", "approved", "created_at").
		Values(a.ID, a.Name, a.Email, a.PasswordHash, a.GraduatingYear, a.IndustryID,
			a.Designation, a.YearsOfExperience, a.Phone, a.Approved, a.CreatedAt))
	return mapError("CreateAlumni", err)
}

// CreateAdmin implements directory.Repository.
func (r *DirectoryRepository) CreateAdmin(ctx context.Context, acc *directory.Account) error {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	_, err := execBuilt(ctx, r.conn, r.conn.sb.Insert("admins").
		Columns("id", "name", "email", "password_hash").
		Values(acc.ID, acc.Name, acc.Email, acc.PasswordHash))
	return mapError("CreateAdmin", err)
}

// ApproveAlumni implements directory.Repository.
func (r *DirectoryRepository) ApproveAlumni(ctx context.Context, id string) error {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	tag, err := execBuilt(ctx, r.conn, r.conn.sb.Update("alumni").
		Set("approved", true).
		Where(squirrel.Eq{"id": id}))
	if err != nil {
		return mapError("ApproveAlumni", err)
	}
	if tag.RowsAffected() == 0 {
		return directory.ErrAlumniNotFound
	}
	return nil
}

// ReplaceSkills implements directory.Repository. Unknown names are dropped;
// the delete and inserts share one transaction.
func (r *DirectoryRepository) ReplaceSkills(ctx context.Context, role shared.Role, ownerID string, names []string) ([]string, error) {
	var table, ownerColumn, linkTable string
	var notFound error
	switch role {
	case shared.RoleStudent:
		table, ownerColumn, linkTable, notFound = "students", "student_id", "student_skills", directory.ErrStudentNotFound
	case shared.RoleAlumni:
		table, ownerColumn, linkTable, notFound = "alumni", "alumni_id", "alumni_skills", directory.ErrAlumniNotFound
	default:
		return nil, directory.ErrSkillsOwnerOnly
	}

	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	normalized := directory.NormalizeSkills(names)
	lowered := make([]string, len(normalized))
	for i, n := range normalized {
		lowered[i] = strings.ToLower(n)
	}

	applied := make([]string, 0, len(normalized))
	err := r.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM `+table+` WHERE id = $1)`, ownerID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return notFound
		}

		rows, err := tx.Query(ctx, `SELECT id, name FROM skills WHERE lower(name) = ANY($1)`, lowered)
		if err != nil {
			return err
		}
		known := make(map[string]directory.Skill)
		for rows.Next() {
			var sk directory.Skill
			if err := rows.Scan(&sk.ID, &sk.Name); err != nil {
				rows.Close()
				return err
			}
			known[strings.ToLower(sk.Name)] = sk
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		if _, err := execBuilt(ctx, tx, r.conn.sb.Delete(linkTable).Where(squirrel.Eq{ownerColumn: ownerID})); err != nil {
			return err
		}

		insert := r.conn.sb.Insert(linkTable).Columns(ownerColumn, "skill_id")
		for _, low := range lowered {
			sk, ok := known[low]
			if !ok {
				continue
			}
			insert = insert.Values(ownerID, sk.ID)
			applied = append(applied, sk.Name)
		}
		if len(applied) == 0 {
			return nil
		}
		_, err = execBuilt(ctx, tx, insert)
		return err
	})
	if err != nil {
		return nil, mapError("ReplaceSkills", err)
	}
	return applied, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Lookups
// ─────────────────────────────────────────────────────────────────────────────

// GetStudent implements directory.Repository.
func (r *DirectoryRepository) GetStudent(ctx context.Context, id string) (*directory.Student, error) {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	sql, args, err := r.conn.sb.
		Select("st.id", "st.name", "st.email", "st.password_hash", "st.semester",
			"st.department", "st.phone", "st.created_at", studentSkillsExpr).
		From("students st").
		Where(squirrel.Eq{"st.id": id}).
		ToSql()
	if err != nil {
		return nil, err
	}

	var s directory.Student
	err = r.conn.QueryRow(ctx, sql, args...).Scan(
		&s.ID, &s.Name, &s.Email, &s.PasswordHash, &s.Semester,
		&s.Department, &s.Phone, &s.CreatedAt, &s.Skills,
	)
	if IsNoRows(err) {
		return nil, directory.ErrStudentNotFound
	}
	if err != nil {
		return nil, mapError("GetStudent", err)
	}
	return &s, nil
}

// GetAlumni implements directory.Repository.
func (r *DirectoryRepository) GetAlumni(ctx context.Context, id string) (*directory.Alumni, error) {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	sql, args, err := r.selectAlumni().Where(squirrel.Eq{"a.id": id}).ToSql()
	if err != nil {
		return nil, err
	}
	a, err := scanAlumni(r.conn.QueryRow(ctx, sql, args...))
	if IsNoRows(err) {
		return nil, directory.ErrAlumniNotFound
	}
	if err != nil {
		return nil, mapError("GetAlumni", err)
	}
	return a, nil
}

// FindAccount implements directory.Repository.
func (r *DirectoryRepository) FindAccount(ctx context.Context, role shared.Role, email string) (*directory.Account, error) {
	var b squirrel.SelectBuilder
	switch role {
	case shared.RoleStudent:
		b = r.conn.sb.Select("id", "name", "email", "password_hash", "TRUE").From("students")
	case shared.RoleAlumni:
		b = r.conn.sb.Select("id", "name", "email", "password_hash", "approved").From("alumni")
	case shared.RoleAdmin:
		b = r.conn.sb.Select("id", "name", "email", "password_hash", "TRUE").From("admins")
	default:
		return nil, directory.ErrInvalidCredentials
	}

	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	sql, args, err := b.Where(squirrel.Eq{"email": email}).ToSql()
	if err != nil {
		return nil, err
	}

	acc := directory.Account{Role: role}
	err = r.conn.QueryRow(ctx, sql, args...).Scan(&acc.ID, &acc.Name, &acc.Email, &acc.PasswordHash, &acc.Approved)
	if IsNoRows(err) {
		return nil, directory.ErrInvalidCredentials
	}
	if err != nil {
		return nil, mapError("FindAccount", err)
	}
	return &acc, nil
}

// ListPendingAlumni implements directory.Repository.
func (r *DirectoryRepository) ListPendingAlumni(ctx context.Context) ([]*directory.Alumni, error) {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	rows, err := queryBuilt(ctx, r.conn, r.selectAlumni().
		Where(squirrel.Eq{"a.approved": false}).
		OrderBy("a.created_at", "a.id"))
	if err != nil {
		return nil, mapError("ListPendingAlumni", err)
	}
	defer rows.Close()

	out := make([]*directory.Alumni, 0)
	for rows.Next() {
		a, err := scanAlumni(rows)
		if err != nil {
			return nil, mapError("ListPendingAlumni", err)
		}
		out = append(out, a)
	}
	return out, mapError("ListPendingAlumni", rows.Err())
}

// ListApprovedAlumniIDs implements directory.Repository.
func (r *DirectoryRepository) ListApprovedAlumniIDs(ctx context.Context) ([]string, error) {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	rows, err := queryBuilt(ctx, r.conn, r.conn.sb.Select("id").
		From("alumni").
		Where(squirrel.Eq{"approved": true}).
		OrderBy("id"))
	if err != nil {
		return nil, mapError("ListApprovedAlumniIDs", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, mapError("ListApprovedAlumniIDs", err)
	}
	return ids, nil
}

// ListStudents implements directory.Repository.
func (r *DirectoryRepository) ListStudents(ctx context.Context, limit int) ([]*directory.Student, error) {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	b := r.conn.sb.
		Select("st.id", "st.name", "st.email", "st.password_hash", "st.semester",
			"st.department", "st.phone", "st.created_at", studentSkillsExpr).
		From("students st").
		OrderBy("st.name", "st.id")
	if limit > 0 {
		b = b.Limit(uint64(limit))
	}

	rows, err := queryBuilt(ctx, r.conn, b)
	if err != nil {
		return nil, mapError("ListStudents", err)
	}
	defer rows.Close()

	out := make([]*directory.Student, 0)
	for rows.Next() {
		var s directory.Student
		if err := rows.Scan(&s.ID, &s.Name, &s.Email, &s.PasswordHash, &s.Semester,
			&s.Department, &s.Phone, &s.CreatedAt, &s.Skills); err != nil {
			return nil, mapError("ListStudents", err)
		}
		out = append(out, &s)
	}
	return out, mapError("ListStudents", rows.Err())
}

// ListAlumni implements directory.Repository.
func (r *DirectoryRepository) ListAlumni(ctx context.Context, limit int) ([]*directory.Alumni, error) {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	b := r.selectAlumni().OrderBy("a.name", "a.id")
	if limit > 0 {
		b = b.Limit(uint64(limit))
	}

	rows, err := queryBuilt(ctx, r.conn, b)
	if err != nil {
		return nil, mapError("ListAlumni", err)
	}
	defer rows.Close()

	out := make([]*directory.Alumni, 0)
	for rows.Next() {
		a, err := scanAlumni(rows)
		if err != nil {
			return nil, mapError("ListAlumni", err)
		}
		out = append(out, a)
	}
	return out, mapError("ListAlumni", rows.Err())
}

// ListIndustries implements directory.Repository.
func (r *DirectoryRepository) ListIndustries(ctx context.Context) ([]directory.Industry, error) {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	rows, err := queryBuilt(ctx, r.conn, r.conn.sb.Select("id", "name", "description").
		From("industries").
		OrderBy("name"))
	if err != nil {
		return nil, mapError("ListIndustries", err)
	}
	defer rows.Close()

	out := make([]directory.Industry, 0)
	for rows.Next() {
		var ind directory.Industry
		if err := rows.Scan(&ind.ID, &ind.Name, &ind.Description); err != nil {
			return nil, mapError("ListIndustries", err)
		}
		out = append(out, ind)
	}
	return out, mapError("ListIndustries", rows.Err())
}

// ListSkills implements directory.Repository.
func (r *DirectoryRepository) ListSkills(ctx context.Context) ([]directory.Skill, error) {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	rows, err := queryBuilt(ctx, r.conn, r.conn.sb.Select("id", "name").
		From("skills").
		OrderBy("name"))
	if err != nil {
		return nil, mapError("ListSkills", err)
	}
	defer rows.Close()

	out := make([]directory.Skill, 0)
	for rows.Next() {
		var sk directory.Skill
		if err := rows.Scan(&sk.ID, &sk.Name); err != nil {
			return nil, mapError("ListSkills", err)
		}
		out = append(out, sk)
	}
	return out, mapError("ListSkills", rows.Err())
}

// GetIndustry implements directory.Repository.
func (r *DirectoryRepository) GetIndustry(ctx context.Context, id int) (*directory.Industry, error) {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	sql, args, err := r.conn.sb.Select("id", "name", "description").
		From("industries").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, err
	}

	var ind directory.Industry
	err = r.conn.QueryRow(ctx, sql, args...).Scan(&ind.ID, &ind.Name, &ind.Description)
	if IsNoRows(err) {
		return nil, directory.ErrIndustryNotFound
	}
	if err != nil {
		return nil, mapError("GetIndustry", err)
	}
	return &ind, nil
}

// IndustrySkills implements directory.Repository.
func (r *DirectoryRepository) IndustrySkills(ctx context.Context, industryID int) ([]directory.Skill, error) {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	rows, err := queryBuilt(ctx, r.conn, r.conn.sb.Select("sk.id", "sk.name").
		From("industry_skills isk").
		Join("skills sk ON sk.id = isk.skill_id").
		Where(squirrel.Eq{"isk.industry_id": industryID}).
		OrderBy("sk.name"))
	if err != nil {
		return nil, mapError("IndustrySkills", err)
	}
	defer rows.Close()

	out := make([]directory.Skill, 0)
	for rows.Next() {
		var sk directory.Skill
		if err := rows.Scan(&sk.ID, &sk.Name); err != nil {
			return nil, mapError("IndustrySkills", err)
		}
		out = append(out, sk)
	}
	return out, mapError("IndustrySkills", rows.Err())
}

// SearchMentors implements directory.Repository.
func (r *DirectoryRepository) SearchMentors(ctx context.Context, filter directory.MentorFilter) ([]*directory.MentorProfile, error) {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	b := r.conn.sb.
		Select("a.id", "a.name", "a.designation", "a.years_of_experience",
			"COALESCE(i.name, '')", alumniSkillsExpr,
			"COALESCE(fr.total, 0)", "COALESCE(fr.cnt, 0)").
		From("alumni a").
		LeftJoin("industries i ON i.id = a.industry_id").
		LeftJoin(ratingsJoin).
		Where(squirrel.Eq{"a.approved": true})

	if name := strings.TrimSpace(filter.Name); name != "" {
		b = b.Where(squirrel.ILike{"a.name": containsPattern(name)})
	}
	if industry := strings.TrimSpace(filter.Industry); industry != "" {
		b = b.Where(squirrel.ILike{"i.name": containsPattern(industry)})
	}
	if filter.IndustryID > 0 {
		b = b.Where(squirrel.Eq{"a.industry_id": filter.IndustryID})
	}
	if skill := strings.TrimSpace(filter.Skill); skill != "" {
		b = b.Where(`EXISTS (SELECT 1 FROM alumni_skills als JOIN skills sk ON sk.id = als.skill_id
			WHERE als.alumni_id = a.id AND lower(sk.name) = lower(?))`, skill)
	}
	if filter.MinRating > 0 {
		b = b.Where("COALESCE(fr.total, 0)::float8 / NULLIF(fr.cnt, 0) >= ?", filter.MinRating)
	}

	rows, err := queryBuilt(ctx, r.conn, b.OrderBy("a.name", "a.id"))
	if err != nil {
		return nil, mapError("SearchMentors", err)
	}
	defer rows.Close()

	out := make([]*directory.MentorProfile, 0)
	for rows.Next() {
		var (
			p          directory.MentorProfile
			sum, count int
		)
		if err := rows.Scan(&p.AlumniID, &p.Name, &p.Designation, &p.YearsOfExperience,
			&p.IndustryName, &p.Skills, &sum, &count); err != nil {
			return nil, mapError("SearchMentors", err)
		}
		summary := mentorship.NewRatingSummary(p.AlumniID, sum, count)
		p.RatingAverage = summary.Rounded()
		p.RatingCount = summary.Count
		out = append(out, &p)
	}
	return out, mapError("SearchMentors", rows.Err())
}

// Counts implements directory.Repository.
func (r *DirectoryRepository) Counts(ctx context.Context) (directory.Counts, error) {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	var c directory.Counts
	err := r.conn.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM students),
			(SELECT COUNT(*) FROM alumni WHERE approved)
	`).Scan(&c.Students, &c.ApprovedAlumni)
	if err != nil {
		return directory.Counts{}, mapError("Counts", err)
	}
	return c, nil
}
