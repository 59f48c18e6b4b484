package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/TJerry3s/SCI-90test/internal/domain"
	"github.com/TJerry3s/SCI-90test/internal/middleware"
	"github.com/TJerry3s/SCI-90test/internal/report"
)

type answersRequest struct {
	Answers []*int `json:"answers"`
}

type progressRequest struct {
	Answers      []*int `json:"answers"`
	CurrentIndex int    `json:"current_index"`
}

type issueTokensRequest struct {
	Count int    `json:"count"`
	Label string `json:"label"`
}

// writeError maps a service error onto an APIError response.
func (s *Server) writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	code := domain.ErrCodeInternalServer
	message := "internal server error"

	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		status, code, message = http.StatusBadRequest, domain.ErrCodeValidation, verr.Error()
	case errors.Is(err, domain.ErrInvalidInput):
		status, code, message = http.StatusBadRequest, domain.ErrCodeInvalidInput, err.Error()
	case errors.Is(err, domain.ErrNotFound):
		status, code, message = http.StatusNotFound, domain.ErrCodeNotFound, err.Error()
	case errors.Is(err, domain.ErrDeviceMismatch):
		status, code, message = http.StatusForbidden, domain.ErrCodeDeviceMismatch, err.Error()
	case errors.Is(err, domain.ErrSessionCompleted):
		status, code, message = http.StatusConflict, domain.ErrCodeCompleted, err.Error()
	case errors.Is(err, domain.ErrUnauthorized):
		status, code, message = http.StatusUnauthorized, domain.ErrCodeAuthentication, err.Error()
	default:
		s.logger.WithError(err).WithField("request_id", c.GetString(middleware.RequestIDKey)).
			Error("Request failed")
	}

	c.AbortWithStatusJSON(status, domain.NewAPIError(code, message, "", c.GetString(middleware.RequestIDKey)))
}

func (s *Server) badRequest(c *gin.Context, message string, err error) {
	details := ""
	if err != nil {
		details = err.Error()
	}
	c.AbortWithStatusJSON(http.StatusBadRequest, domain.NewAPIError(
		domain.ErrCodeInvalidInput, message, details, c.GetString(middleware.RequestIDKey)))
}

func queryInt(c *gin.Context, key string, def int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", key)
	}
	return v, nil
}

func deviceID(c *gin.Context) string {
	return c.GetHeader(middleware.DeviceIDHeader)
}

func (s *Server) handleQuestions(c *gin.Context) {
	offset, err := queryInt(c, "offset", 0)
	if err != nil {
		s.badRequest(c, err.Error(), nil)
		return
	}
	limit, err := queryInt(c, "limit", domain.ItemCount)
	if err != nil {
		s.badRequest(c, err.Error(), nil)
		return
	}

	items, total := s.service.Questions(offset, limit)
	c.JSON(http.StatusOK, gin.H{
		"items":  items,
		"total":  total,
		"offset": offset,
		"limit":  limit,
		"scale":  gin.H{"min": domain.MinAnswer, "max": domain.MaxAnswer},
	})
}

func (s *Server) handleFactors(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"factors": s.service.Factors()})
}

func (s *Server) handleInterpretation(c *gin.Context) {
	avg, err := strconv.ParseFloat(c.Query("average"), 64)
	if err != nil {
		s.badRequest(c, "average must be a number", err)
		return
	}
	if !domain.ValidAverage(avg) {
		s.badRequest(c, fmt.Sprintf("average must be between %d and %d", domain.MinAnswer, domain.MaxAnswer), nil)
		return
	}

	c.JSON(http.StatusOK, s.service.Interpret(c.Param("name"), avg))
}

func (s *Server) handleScore(c *gin.Context) {
	var req answersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, "invalid request body", err)
		return
	}

	result, err := s.service.Score(domain.AnswerVector(req.Answers))
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"result": result,
		"report": report.Build(s.service.Engine(), result),
	})
}

func (s *Server) handleGetSession(c *gin.Context) {
	sess, err := s.service.Session(c.Request.Context(), c.Param("token"), deviceID(c))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

func (s *Server) handleBindDevice(c *gin.Context) {
	sess, err := s.service.BindDevice(c.Request.Context(), c.Param("token"), deviceID(c))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

func (s *Server) handleSaveProgress(c *gin.Context) {
	var req progressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, "invalid request body", err)
		return
	}

	sess, err := s.service.SaveProgress(c.Request.Context(), c.Param("token"), deviceID(c),
		domain.AnswerVector(req.Answers), req.CurrentIndex)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

func (s *Server) handleSubmit(c *gin.Context) {
	var req answersRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			s.badRequest(c, "invalid request body", err)
			return
		}
	}

	var answers domain.AnswerVector
	if req.Answers != nil {
		answers = domain.AnswerVector(req.Answers)
	}

	result, err := s.service.Submit(c.Request.Context(), c.Param("token"), deviceID(c), answers)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": result})
}

func (s *Server) handleResult(c *gin.Context) {
	result, err := s.service.Result(c.Request.Context(), c.Param("token"), deviceID(c))
	if err != nil {
		s.writeError(c, err)
		return
	}

	rep := report.Build(s.service.Engine(), result)
	switch c.DefaultQuery("format", "json") {
	case "text":
		c.String(http.StatusOK, rep.Text())
	case "json":
		c.JSON(http.StatusOK, gin.H{"result": result, "report": rep})
	default:
		s.badRequest(c, "format must be json or text", nil)
	}
}

func (s *Server) handleIssueTokens(c *gin.Context) {
	var req issueTokensRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, "invalid request body", err)
		return
	}

	issued, err := s.service.IssueTokens(c.Request.Context(), req.Count, req.Label)
	if err != nil {
		s.writeError(c, err)
		return
	}

	tokens := make([]string, len(issued))
	for i, sess := range issued {
		tokens[i] = sess.Token
	}
	c.JSON(http.StatusCreated, gin.H{"tokens": tokens, "label": req.Label})
}

func (s *Server) handleListSessions(c *gin.Context) {
	limit, err := queryInt(c, "limit", 50)
	if err != nil {
		s.badRequest(c, err.Error(), nil)
		return
	}
	offset, err := queryInt(c, "offset", 0)
	if err != nil {
		s.badRequest(c, err.Error(), nil)
		return
	}

	sessions, total, err := s.service.ListSessions(c.Request.Context(), limit, offset)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessions": sessions, "total": total})
}

func (s *Server) handleDeleteSession(c *gin.Context) {
	if err := s.service.DeleteSession(c.Request.Context(), c.Param("token")); err != nil {
		s.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleStats(c *gin.Context) {
	stats, err := s.service.Stats(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (s *Server) handleExport(c *gin.Context) {
	c.Header("Content-Type", "application/json")
	c.Header("Content-Disposition", `attachment; filename="sessions.json"`)
	if err := s.service.ExportSessions(c.Request.Context(), c.Writer); err != nil {
		s.writeError(c, err)
	}
}

func (s *Server) handleImport(c *gin.Context) {
	imported, skipped, err := s.service.ImportSessions(c.Request.Context(), c.Request.Body)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"imported": imported, "skipped": skipped})
}
