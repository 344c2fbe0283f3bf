package postgres

import (
	"context"

	"github.com/alem-hub/mentorship-portal/internal/domain/directory"
	"github.com/alem-hub/mentorship-portal/internal/domain/mentorship"
	"github.com/alem-hub/mentorship-portal/internal/domain/placement"
)

// Compile-time contract assertions.
var (
	_ mentorship.RequestRepository  = (*RequestRepository)(nil)
	_ mentorship.SessionRepository  = (*SessionRepository)(nil)
	_ mentorship.FeedbackRepository = (*FeedbackRepository)(nil)
	_ directory.Repository          = (*DirectoryRepository)(nil)
	_ placement.Repository          = (*PlacementRepository)(nil)
)

// Store bundles the repositories over one connection pool.
type Store struct {
	conn *Connection

	requests   *RequestRepository
	sessions   *SessionRepository
	feedback   *FeedbackRepository
	directory  *DirectoryRepository
	placements *PlacementRepository
}

// NewStore wires every repository to conn.
func NewStore(conn *Connection) *Store {
	return &Store{
		conn:       conn,
		requests:   NewRequestRepository(conn),
		sessions:   NewSessionRepository(conn),
		feedback:   NewFeedbackRepository(conn),
		directory:  NewDirectoryRepository(conn),
		placements: NewPlacementRepository(conn),
	}
}

func (s *Store) Requests() *RequestRepository     { return s.requests }
func (s *Store) Sessions() *SessionRepository     { return s.sessions }
func (s *Store) Feedback() *FeedbackRepository    { return s.feedback }
func (s *Store) Directory() *DirectoryRepository  { return s.directory }
func (s *Store) Placements() *PlacementRepository { return s.placements }

// Connection exposes the pool for migrations and health checks.
func (s *Store) Connection() *Connection { return s.conn }

// Ping checks the database.
func (s *Store) Ping(ctx context.Context) error {
	return mapError("Ping", s.conn.Ping(ctx))
}

// Close releases the pool.
func (s *Store) Close() {
	s.conn.Close()
}
