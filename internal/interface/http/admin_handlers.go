package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/alem-hub/mentorship-portal/internal/application/command"
	"github.com/alem-hub/mentorship-portal/internal/domain/placement"
)

// ══════════════════════════════════════════════════════════════════════════════
// ADMIN HANDLERS
// Routes are mounted behind requireRole(admin); the application handlers
// check the role again.
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) handlePendingAlumni(c *gin.Context) {
	items, err := s.deps.Directory.PendingAlumni(c.Request.Context(), mustActor(c))
	if err != nil {
		writeError(c, err)
		return
	}
	list(c, items)
}

func (s *Server) handleListUsers(c *gin.Context) {
	users, err := s.deps.Directory.Users(c.Request.Context(), mustActor(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

func (s *Server) handleApproveAlumni(c *gin.Context) {
	err := s.deps.Accounts.ApproveAlumni(c.Request.Context(), command.ApproveAlumniCommand{
		Actor:    mustActor(c),
		AlumniID: c.Param("id"),
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleSiteStatistics(c *gin.Context) {
	stats, err := s.deps.Placements.SiteStatistics(c.Request.Context(), mustActor(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (s *Server) handlePlacementTrends(c *gin.Context) {
	points, err := s.deps.Placements.Trends(c.Request.Context(), mustActor(c))
	if err != nil {
		writeError(c, err)
		return
	}
	list(c, points)
}

func (s *Server) handlePlacementLog(c *gin.Context) {
	entries, err := s.deps.Placements.Log(c.Request.Context(), mustActor(c))
	if err != nil {
		writeError(c, err)
		return
	}
	list(c, entries)
}

// ─────────────────────────────────────────────────────────────────────────────
// Placement record
// ─────────────────────────────────────────────────────────────────────────────

type placementBody struct {
	IsPlaced bool   `json:"is_placed"`
	Company  string `json:"company"`
	Date     string `json:"date"`
}

type placementResponse struct {
	StudentID string    `json:"student_id"`
	IsPlaced  bool      `json:"is_placed"`
	Company   string    `json:"company,omitempty"`
	Date      string    `json:"date,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
	// Logged is set on upsert when the write appended to the placement log.
	Logged *bool `json:"logged,omitempty"`
}

func newPlacementResponse(p *placement.Placement) placementResponse {
	out := placementResponse{
		StudentID: p.StudentID,
		IsPlaced:  p.IsPlaced,
		Company:   p.Company,
		UpdatedAt: p.UpdatedAt,
	}
	if !p.Date.IsZero() {
		out.Date = p.Date.Format(dateLayout)
	}
	return out
}

func (s *Server) handleGetPlacement(c *gin.Context) {
	p, err := s.deps.Placements.Get(c.Request.Context(), mustActor(c), c.Param("studentId"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newPlacementResponse(p))
}

// handleUpsertPlacement saves the student's placement. Only a transition to
// placed appends to the log.
func (s *Server) handleUpsertPlacement(c *gin.Context) {
	var body placementBody
	if !bindJSON(c, &body) {
		return
	}
	date, err := s.parseDate("date", body.Date)
	if err != nil {
		writeError(c, err)
		return
	}

	res, err := s.deps.UpsertPlacement.Handle(c.Request.Context(), command.UpsertPlacementCommand{
		Actor:     mustActor(c),
		StudentID: c.Param("studentId"),
		IsPlaced:  body.IsPlaced,
		Company:   body.Company,
		Date:      date,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	out := newPlacementResponse(res.Placement)
	out.Logged = &res.Logged
	c.JSON(http.StatusOK, out)
}
