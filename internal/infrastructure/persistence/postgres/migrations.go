package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATOR
// Schema versions are applied in order, each in its own transaction, and
// recorded in schema_migrations.
// ══════════════════════════════════════════════════════════════════════════════

type migration struct {
	version int
	name    string
	up      string
	down    string
}

var migrations = []migration{
	{1, "create_directory", migration001Up, migration001Down},
	{2, "create_mentorship", migration002Up, migration002Down},
	{3, "create_placements", migration003Up, migration003Down},
	{4, "create_industry_skills", migration004Up, migration004Down},
}

// Migrator applies the embedded schema.
type Migrator struct {
	conn *Connection
}

// NewMigrator creates a Migrator.
func NewMigrator(conn *Connection) *Migrator {
	return &Migrator{conn: conn}
}

// Migrate applies every pending version and returns how many ran.
func (m *Migrator) Migrate(ctx context.Context) (int, error) {
	const ddl = `CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		applied_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
	)`
	if _, err := m.conn.Exec(ctx, ddl); err != nil {
		return 0, fmt.Errorf("%w: create schema_migrations: %v", ErrMigrationFailed, err)
	}

	applied, err := m.applied(ctx)
	if err != nil {
		return 0, err
	}

	ran := 0
	for _, mig := range migrations {
		if _, ok := applied[mig.version]; ok {
			continue
		}
		err := m.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, mig.up); err != nil {
				return err
			}
			_, err := tx.Exec(ctx, `INSERT INTO schema_migrations (version, name) VALUES ($1, $2)`, mig.version, mig.name)
			return err
		})
		if err != nil {
			return ran, fmt.Errorf("%w: version %d (%s): %v", ErrMigrationFailed, mig.version, mig.name, err)
		}
		ran++
	}
	return ran, nil
}

func (m *Migrator) applied(ctx context.Context) (map[int]time.Time, error) {
	rows, err := m.conn.Query(ctx, `SELECT version, applied_at FROM schema_migrations`)
	if err != nil {
		return nil, fmt.Errorf("query schema_migrations: %w", err)
	}
	defer rows.Close()

	out := make(map[int]time.Time)
	for rows.Next() {
		var (
			v  int
			at time.Time
		)
		if err := rows.Scan(&v, &at); err != nil {
			return nil, err
		}
		out[v] = at
	}
	return out, rows.Err()
}

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 001: CREATE DIRECTORY
// ══════════════════════════════════════════════════════════════════════════════

const migration001Up = `
-- Migration: People and reference data
-- Version: 001

CREATE TABLE IF NOT EXISTS industries (
    id SERIAL PRIMARY KEY,
    name VARCHAR(100) NOT NULL UNIQUE,
    description TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS skills (
    id SERIAL PRIMARY KEY,
    name VARCHAR(100) NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS students (
    id TEXT PRIMARY KEY,
    name VARCHAR(200) NOT NULL,
    email VARCHAR(320) NOT NULL,
    password_hash TEXT NOT NULL,
    semester INTEGER NOT NULL DEFAULT 0,
    department VARCHAR(200) NOT NULL DEFAULT '',
    phone VARCHAR(50) NOT NULL DEFAULT '',
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT uq_students_email UNIQUE (email),
    CONSTRAINT chk_students_semester CHECK (semester BETWEEN 0 AND 12)
);

CREATE TABLE IF NOT EXISTS alumni (
    id TEXT PRIMARY KEY,
    name VARCHAR(200) NOT NULL,
    email VARCHAR(320) NOT NULL,
    password_hash TEXT NOT NULL,
    graduating_year INTEGER NOT NULL DEFAULT 0,
    industry_id INTEGER NOT NULL,
    designation VARCHAR(200) NOT NULL DEFAULT '',
    years_of_experience INTEGER NOT NULL DEFAULT 0,
    phone VARCHAR(50) NOT NULL DEFAULT '',
    approved BOOLEAN NOT NULL DEFAULT FALSE,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT uq_alumni_email UNIQUE (email),
    CONSTRAINT fk_alumni_industry FOREIGN KEY (industry_id) REFERENCES industries(id),
    CONSTRAINT chk_alumni_experience CHECK (years_of_experience >= 0)
);

CREATE INDEX IF NOT EXISTS idx_alumni_approved ON alumni(approved);

CREATE TABLE IF NOT EXISTS admins (
    id TEXT PRIMARY KEY,
    name VARCHAR(200) NOT NULL,
    email VARCHAR(320) NOT NULL,
    password_hash TEXT NOT NULL,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT uq_admins_email UNIQUE (email)
);

CREATE TABLE IF NOT EXISTS student_skills (
    student_id TEXT NOT NULL REFERENCES students(id) ON DELETE CASCADE,
    skill_id INTEGER NOT NULL REFERENCES skills(id) ON DELETE CASCADE,
    PRIMARY KEY (student_id, skill_id)
);

CREATE TABLE IF NOT EXISTS alumni_skills (
    alumni_id TEXT NOT NULL REFERENCES alumni(id) ON DELETE CASCADE,
    skill_id INTEGER NOT NULL REFERENCES skills(id) ON DELETE CASCADE,
    PRIMARY KEY (alumni_id, skill_id)
);

-- Reference data
INSERT INTO industries (id, name, description) VALUES
    (1, 'Software', 'Product engineering and platforms'),
    (2, 'Finance', 'Banking, fintech and investment'),
    (3, 'Consulting', 'Management and technology consulting'),
    (4, 'Healthcare', 'Hospitals, pharma and health tech'),
    (5, 'Manufacturing', 'Industrial and hardware')
ON CONFLICT (id) DO NOTHING;
SELECT setval('industries_id_seq', (SELECT MAX(id) FROM industries));

INSERT INTO skills (id, name) VALUES
    (1, 'Go'),
    (2, 'Python'),
    (3, 'SQL'),
    (4, 'Machine Learning'),
    (5, 'Cloud'),
    (6, 'Product Management'),
    (7, 'Data Analysis'),
    (8, 'Public Speaking')
ON CONFLICT (id) DO NOTHING;
SELECT setval('skills_id_seq', (SELECT MAX(id) FROM skills));
`

const migration001Down = `
DROP TABLE IF EXISTS alumni_skills;
DROP TABLE IF EXISTS student_skills;
DROP TABLE IF EXISTS admins;
DROP TABLE IF EXISTS alumni;
DROP TABLE IF EXISTS students;
DROP TABLE IF EXISTS skills;
DROP TABLE IF EXISTS industries;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 002: CREATE MENTORSHIP
// ══════════════════════════════════════════════════════════════════════════════

const migration002Up = `
-- Migration: Requests, sessions and feedback
-- Version: 002

CREATE TABLE IF NOT EXISTS mentorship_requests (
    id TEXT PRIMARY KEY,
    student_id TEXT NOT NULL REFERENCES students(id) ON DELETE CASCADE,
    alumni_id TEXT NOT NULL REFERENCES alumni(id) ON DELETE CASCADE,
    message TEXT NOT NULL DEFAULT '',
    status VARCHAR(20) NOT NULL DEFAULT 'pending',
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    decided_at TIMESTAMP WITH TIME ZONE,

    CONSTRAINT chk_requests_status CHECK (status IN ('pending', 'accepted', 'declined')),
    CONSTRAINT chk_requests_decided CHECK ((status = 'pending') = (decided_at IS NULL))
);

-- At most one pending or accepted request per pair.
CREATE UNIQUE INDEX IF NOT EXISTS uq_requests_active_pair
    ON mentorship_requests(student_id, alumni_id)
    WHERE status IN ('pending', 'accepted');

CREATE INDEX IF NOT EXISTS idx_requests_student ON mentorship_requests(student_id, status);
CREATE INDEX IF NOT EXISTS idx_requests_alumni ON mentorship_requests(alumni_id, status);
CREATE INDEX IF NOT EXISTS idx_requests_created ON mentorship_requests(created_at DESC);

CREATE TABLE IF NOT EXISTS mentorship_sessions (
    id TEXT PRIMARY KEY,
    request_id TEXT REFERENCES mentorship_requests(id) ON DELETE SET NULL,
    student_id TEXT NOT NULL REFERENCES students(id) ON DELETE CASCADE,
    alumni_id TEXT NOT NULL REFERENCES alumni(id) ON DELETE CASCADE,
    session_date TIMESTAMP WITH TIME ZONE NOT NULL,
    mode VARCHAR(20) NOT NULL,
    topics TEXT NOT NULL DEFAULT '',
    content TEXT NOT NULL DEFAULT '',
    meeting_link TEXT,
    proposed_by VARCHAR(20) NOT NULL,
    status VARCHAR(30) NOT NULL DEFAULT 'pending_confirmation',
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    confirmed_at TIMESTAMP WITH TIME ZONE,
    completed_at TIMESTAMP WITH TIME ZONE,
    cancelled_at TIMESTAMP WITH TIME ZONE,

    CONSTRAINT uq_sessions_request UNIQUE (request_id),
    CONSTRAINT uq_sessions_meeting_link UNIQUE (meeting_link),
    CONSTRAINT chk_sessions_mode CHECK (mode IN ('online', 'in_person')),
    CONSTRAINT chk_sessions_proposer CHECK (proposed_by IN ('student', 'alumni')),
    CONSTRAINT chk_sessions_status CHECK (status IN ('pending_confirmation', 'confirmed', 'completed', 'cancelled')),
    CONSTRAINT chk_sessions_link CHECK ((meeting_link IS NOT NULL) = (status IN ('confirmed', 'completed')))
);

CREATE INDEX IF NOT EXISTS idx_sessions_student ON mentorship_sessions(student_id, status);
CREATE INDEX IF NOT EXISTS idx_sessions_alumni ON mentorship_sessions(alumni_id, status);
CREATE INDEX IF NOT EXISTS idx_sessions_date ON mentorship_sessions(session_date DESC);

-- Feedback is append-only and not tied to a session.
CREATE TABLE IF NOT EXISTS feedback (
    id TEXT PRIMARY KEY,
    student_id TEXT NOT NULL REFERENCES students(id) ON DELETE CASCADE,
    alumni_id TEXT NOT NULL REFERENCES alumni(id) ON DELETE CASCADE,
    rating SMALLINT NOT NULL,
    comments TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT chk_feedback_rating CHECK (rating BETWEEN 1 AND 5)
);

CREATE INDEX IF NOT EXISTS idx_feedback_alumni ON feedback(alumni_id, created_at DESC);
`

const migration002Down = `
DROP TABLE IF EXISTS feedback;
DROP TABLE IF EXISTS mentorship_sessions;
DROP TABLE IF EXISTS mentorship_requests;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 003: CREATE PLACEMENTS
// ══════════════════════════════════════════════════════════════════════════════

const migration003Up = `
-- Migration: Placement records and log
-- Version: 003

CREATE TABLE IF NOT EXISTS placements (
    student_id TEXT PRIMARY KEY,
    is_placed BOOLEAN NOT NULL DEFAULT FALSE,
    company VARCHAR(200) NOT NULL DEFAULT '',
    placement_date DATE,
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT fk_placements_student FOREIGN KEY (student_id) REFERENCES students(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_placements_date ON placements(placement_date) WHERE is_placed;

CREATE TABLE IF NOT EXISTS placement_log (
    id BIGSERIAL PRIMARY KEY,
    student_id TEXT NOT NULL REFERENCES students(id) ON DELETE CASCADE,
    company VARCHAR(200) NOT NULL,
    placement_date DATE NOT NULL,
    logged_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_placement_log_logged ON placement_log(logged_at DESC);
`

const migration003Down = `
DROP TABLE IF EXISTS placement_log;
DROP TABLE IF EXISTS placements;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 004: CREATE INDUSTRY SKILLS
// ══════════════════════════════════════════════════════════════════════════════

const migration004Up = `
-- Migration: Key skills per industry
-- Version: 004

CREATE TABLE IF NOT EXISTS industry_skills (
    industry_id INTEGER NOT NULL REFERENCES industries(id) ON DELETE CASCADE,
    skill_id INTEGER NOT NULL REFERENCES skills(id) ON DELETE CASCADE,
    PRIMARY KEY (industry_id, skill_id)
);

INSERT INTO industry_skills (industry_id, skill_id) VALUES
    (1, 1), (1, 2), (1, 5),
    (2, 2), (2, 3), (2, 7),
    (3, 6), (3, 7), (3, 8),
    (4, 2), (4, 4), (4, 7),
    (5, 3), (5, 6), (5, 7)
ON CONFLICT DO NOTHING;
`

const migration004Down = `
DROP TABLE IF EXISTS industry_skills;
`
