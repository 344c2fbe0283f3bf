package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/alem-hub/mentorship-portal/internal/application/command"
	"github.com/alem-hub/mentorship-portal/internal/application/query"
	"github.com/alem-hub/mentorship-portal/internal/domain/directory"
	"github.com/alem-hub/mentorship-portal/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) handleRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service": "mentorship-portal",
		"version": s.config.Version,
		"api":     "/api/v1",
	})
}

// handleHealth returns 503 only when a required dependency is down.
func (s *Server) handleHealth(c *gin.Context) {
	status := s.deps.HealthChecker.Check(c.Request.Context())
	code := http.StatusOK
	if !status.Healthy {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, status)
}

func (s *Server) handleReady(c *gin.Context) {
	status := s.deps.HealthChecker.Check(c.Request.Context())
	if !status.Ready {
		c.JSON(http.StatusServiceUnavailable, gin.H{"ready": false, "message": status.Message})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ready": true})
}

func (s *Server) handleLive(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"alive": true})
}

// ══════════════════════════════════════════════════════════════════════════════
// AUTH HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

type registerStudentBody struct {
	Name       string `json:"name" binding:"required"`
	Email      string `json:"email" binding:"required"`
	Password   string `json:"password" binding:"required"`
	Semester   int    `json:"semester"`
	Department string `json:"department"`
	Phone      string `json:"phone"`
}

type registerAlumniBody struct {
	Name              string `json:"name" binding:"required"`
	Email             string `json:"email" binding:"required"`
	Password          string `json:"password" binding:"required"`
	GraduatingYear    int    `json:"graduating_year"`
	IndustryID        int    `json:"industry_id" binding:"required"`
	Designation       string `json:"designation"`
	YearsOfExperience int    `json:"years_of_experience"`
	Phone             string `json:"phone"`
}

type loginBody struct {
	Role     string `json:"role" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type accountResponse struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	Approved bool   `json:"approved"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	UserID    string    `json:"user_id"`
	Role      string    `json:"role"`
	Name      string    `json:"name"`
}

func (s *Server) handleRegisterStudent(c *gin.Context) {
	var body registerStudentBody
	if !bindJSON(c, &body) {
		return
	}

	st, err := s.deps.Accounts.RegisterStudent(c.Request.Context(), command.RegisterStudentCommand{
		Name:       body.Name,
		Email:      body.Email,
		Password:   body.Password,
		Semester:   body.Semester,
		Department: body.Department,
		Phone:      body.Phone,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, accountResponse{
		ID: st.ID, Name: st.Name, Email: st.Email, Role: shared.RoleStudent.String(), Approved: true,
	})
}

// handleRegisterAlumni creates an account that cannot log in until an admin
// approves it.
func (s *Server) handleRegisterAlumni(c *gin.Context) {
	var body registerAlumniBody
	if !bindJSON(c, &body) {
		return
	}

	a, err := s.deps.Accounts.RegisterAlumni(c.Request.Context(), command.RegisterAlumniCommand{
		Name:              body.Name,
		Email:             body.Email,
		Password:          body.Password,
		GraduatingYear:    body.GraduatingYear,
		IndustryID:        body.IndustryID,
		Designation:       body.Designation,
		YearsOfExperience: body.YearsOfExperience,
		Phone:             body.Phone,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, accountResponse{
		ID: a.ID, Name: a.Name, Email: a.Email, Role: shared.RoleAlumni.String(), Approved: a.Approved,
	})
}

func (s *Server) handleLogin(c *gin.Context) {
	var body loginBody
	if !bindJSON(c, &body) {
		return
	}

	res, err := s.deps.Accounts.Authenticate(c.Request.Context(), command.AuthenticateCommand{
		Role:     shared.Role(body.Role),
		Email:    body.Email,
		Password: body.Password,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, loginResponse{
		Token:     res.Token,
		ExpiresAt: res.ExpiresAt,
		UserID:    res.Actor.UserID,
		Role:      res.Actor.Role.String(),
		Name:      res.Name,
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// DIRECTORY HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) handleListIndustries(c *gin.Context) {
	items, err := s.deps.Directory.Industries(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	list(c, items)
}

// handleGetIndustry shows an industry with its key skills and mentors. A
// non-numeric id is reported as an unknown industry.
func (s *Server) handleGetIndustry(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		writeError(c, directory.ErrIndustryNotFound)
		return
	}
	detail, err := s.deps.Directory.Industry(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

func (s *Server) handleListSkills(c *gin.Context) {
	items, err := s.deps.Directory.Skills(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	list(c, items)
}

// handleFindMentors searches approved alumni by name, industry, skill and
// minimum average rating.
func (s *Server) handleFindMentors(c *gin.Context) {
	minRating, err := queryFloat(c, "min_rating")
	if err != nil {
		writeError(c, err)
		return
	}

	mentors, err := s.deps.Directory.FindMentors(c.Request.Context(), query.FindMentorsQuery{
		Name:      c.Query("name"),
		Industry:  c.Query("industry"),
		Skill:     c.Query("skill"),
		MinRating: minRating,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	list(c, mentors)
}

func (s *Server) handleTopMentors(c *gin.Context) {
	limit, err := queryInt(c, "limit", s.config.TopMentorsLimit)
	if err != nil {
		writeError(c, err)
		return
	}

	top, err := s.deps.Ratings.TopMentors(c.Request.Context(), limit)
	if err != nil {
		writeError(c, err)
		return
	}
	list(c, top)
}

type ratingResponse struct {
	AlumniID   string  `json:"alumni_id"`
	HasRatings bool    `json:"has_ratings"`
	Average    float64 `json:"average"`
	Rounded    float64 `json:"rounded"`
	Count      int     `json:"count"`
}

func (s *Server) handleMentorRating(c *gin.Context) {
	summary, err := s.deps.Ratings.AverageRating(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, ratingResponse{
		AlumniID:   summary.AlumniID,
		HasRatings: summary.HasRatings,
		Average:    summary.Value,
		Rounded:    summary.Rounded(),
		Count:      summary.Count,
	})
}

func (s *Server) handleMentorFeedback(c *gin.Context) {
	items, err := s.deps.Ratings.ListFeedback(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	list(c, items)
}

type replaceSkillsBody struct {
	Skills []string `json:"skills"`
}

func (s *Server) handleReplaceSkills(c *gin.Context) {
	var body replaceSkillsBody
	if !bindJSON(c, &body) {
		return
	}

	skills, err := s.deps.Accounts.ReplaceSkills(c.Request.Context(), command.ReplaceSkillsCommand{
		Actor:  mustActor(c),
		Skills: body.Skills,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	if skills == nil {
		skills = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"skills": skills})
}
