package http

import (
	"encoding/json"
	"math"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/alem-hub/mentorship-portal/internal/application/command"
	"github.com/alem-hub/mentorship-portal/internal/application/query"
	"github.com/alem-hub/mentorship-portal/internal/domain/mentorship"
)

// ══════════════════════════════════════════════════════════════════════════════
// REQUEST HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

type createRequestBody struct {
	AlumniID string `json:"alumni_id" binding:"required"`
	Message  string `json:"message"`
}

type decideRequestBody struct {
	Decision string `json:"decision" binding:"required"`
}

func (s *Server) handleCreateRequest(c *gin.Context) {
	var body createRequestBody
	if !bindJSON(c, &body) {
		return
	}

	req, err := s.deps.CreateRequest.Handle(c.Request.Context(), command.CreateRequestCommand{
		Actor:    mustActor(c),
		AlumniID: body.AlumniID,
		Message:  body.Message,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, query.NewRequestDTO(req))
}

func (s *Server) handleListRequests(c *gin.Context) {
	items, err := s.deps.Lifecycle.ListByStatus(c.Request.Context(), query.ListRequestsQuery{
		Actor:  mustActor(c),
		Status: c.Query("status"),
	})
	if err != nil {
		writeError(c, err)
		return
	}
	list(c, items)
}

// handleReadyToPropose lists accepted requests that have no session yet.
func (s *Server) handleReadyToPropose(c *gin.Context) {
	items, err := s.deps.Lifecycle.ReadyToPropose(c.Request.Context(), mustActor(c))
	if err != nil {
		writeError(c, err)
		return
	}
	list(c, items)
}

func (s *Server) handleDecideRequest(c *gin.Context) {
	var body decideRequestBody
	if !bindJSON(c, &body) {
		return
	}

	req, err := s.deps.DecideRequest.Handle(c.Request.Context(), command.DecideRequestCommand{
		Actor:     mustActor(c),
		RequestID: c.Param("id"),
		Decision:  body.Decision,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, query.NewRequestDTO(req))
}

// ══════════════════════════════════════════════════════════════════════════════
// SESSION HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

type proposeSessionBody struct {
	RequestID string `json:"request_id" binding:"required"`
	Date      string `json:"date" binding:"required"`
	Mode      string `json:"mode" binding:"required"`
	Topics    string `json:"topics"`
}

type contentBody struct {
	Content string `json:"content"`
}

func (s *Server) handleProposeSession(c *gin.Context) {
	var body proposeSessionBody
	if !bindJSON(c, &body) {
		return
	}
	date, err := s.parseDate("date", body.Date)
	if err != nil {
		writeError(c, err)
		return
	}

	sess, err := s.deps.ProposeSession.Handle(c.Request.Context(), command.ProposeSessionCommand{
		Actor:     mustActor(c),
		RequestID: body.RequestID,
		Date:      date,
		Mode:      body.Mode,
		Topics:    body.Topics,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, query.NewSessionDTO(sess))
}

func (s *Server) handleListSessions(c *gin.Context) {
	items, err := s.deps.Lifecycle.ListSessions(c.Request.Context(), query.ListSessionsQuery{
		Actor:  mustActor(c),
		Status: c.Query("status"),
	})
	if err != nil {
		writeError(c, err)
		return
	}
	list(c, items)
}

// handleConfirmSession is answered by the counter-party of the proposer. The
// meeting link is issued here.
func (s *Server) handleConfirmSession(c *gin.Context) {
	sess, err := s.deps.ConfirmSession.Handle(c.Request.Context(), command.ConfirmSessionCommand{
		Actor:     mustActor(c),
		SessionID: c.Param("id"),
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, query.NewSessionDTO(sess))
}

func (s *Server) handleCompleteSession(c *gin.Context) {
	sess, err := s.deps.SessionTransition.Complete(c.Request.Context(), command.CompleteSessionCommand{
		Actor:     mustActor(c),
		SessionID: c.Param("id"),
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, query.NewSessionDTO(sess))
}

func (s *Server) handleCancelSession(c *gin.Context) {
	sess, err := s.deps.SessionTransition.Cancel(c.Request.Context(), command.CancelSessionCommand{
		Actor:     mustActor(c),
		SessionID: c.Param("id"),
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, query.NewSessionDTO(sess))
}

func (s *Server) handleRecordContent(c *gin.Context) {
	var body contentBody
	if !bindJSON(c, &body) {
		return
	}

	err := s.deps.RecordContent.Handle(c.Request.Context(), command.RecordContentCommand{
		Actor:     mustActor(c),
		SessionID: c.Param("id"),
		Content:   body.Content,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleGetContent(c *gin.Context) {
	content, err := s.deps.Lifecycle.GetContent(c.Request.Context(), mustActor(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, content)
}

// ══════════════════════════════════════════════════════════════════════════════
// FEEDBACK & STUDENT HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// feedbackBody takes the rating as any JSON number so that fractions become
// InvalidRating (422) instead of a binding error.
type feedbackBody struct {
	AlumniID string      `json:"alumni_id" binding:"required"`
	Rating   json.Number `json:"rating"`
	Comments string      `json:"comments"`
}

// ratingValue converts the decoded rating. A missing rating is 0, which the
// domain rejects like any other out-of-range value.
func ratingValue(n json.Number) (int, error) {
	if n == "" {
		return 0, nil
	}
	f, err := n.Float64()
	if err != nil || f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return 0, mentorship.ErrRatingOutOfRange
	}
	return int(f), nil
}

func (s *Server) handleSubmitFeedback(c *gin.Context) {
	var body feedbackBody
	if !bindJSON(c, &body) {
		return
	}
	rating, err := ratingValue(body.Rating)
	if err != nil {
		writeError(c, err)
		return
	}

	fb, err := s.deps.SubmitFeedback.Handle(c.Request.Context(), command.SubmitFeedbackCommand{
		Actor:    mustActor(c),
		AlumniID: body.AlumniID,
		Rating:   rating,
		Comments: body.Comments,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, query.NewFeedbackDTO(fb))
}

func (s *Server) handleStudentStats(c *gin.Context) {
	stats, err := s.deps.Lifecycle.StudentStats(c.Request.Context(), mustActor(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (s *Server) handleStudentFeedback(c *gin.Context) {
	history, err := s.deps.Lifecycle.StudentFeedback(c.Request.Context(), mustActor(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, history)
}
