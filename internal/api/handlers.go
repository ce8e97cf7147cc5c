package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/neuro-risk-client/internal/domain"
	"github.com/neuro-risk-client/internal/history"
	"github.com/neuro-risk-client/internal/middleware"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// AssessmentResponse is returned by the assessment endpoints
type AssessmentResponse struct {
	ID          string                       `json:"id,omitempty"`
	Condition   domain.ConditionKind         `json:"condition"`
	DisplayName string                       `json:"displayName"`
	Result      *domain.RiskAssessmentResult `json:"result"`
}

// HistoryListResponse is returned by GET /api/v1/history
type HistoryListResponse struct {
	Records []*history.Record `json:"records"`
	Total   int64             `json:"total"`
	Limit   int               `json:"limit"`
	Offset  int               `json:"offset"`
}

func (s *Server) handleAssess(c *gin.Context) {
	kind, features, ok := s.bindSubmission(c)
	if !ok {
		return
	}

	rec, err := s.stack.Recorder.AssessAndRecord(c.Request.Context(), kind, features)
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, AssessmentResponse{
		ID:          rec.ID,
		Condition:   kind,
		DisplayName: kind.DisplayName(),
		Result:      &rec.Result,
	})
}

func (s *Server) handleScoreLocally(c *gin.Context) {
	kind, features, ok := s.bindSubmission(c)
	if !ok {
		return
	}

	result, err := s.stack.Client.ScoreLocally(kind, features)
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, AssessmentResponse{
		Condition:   kind,
		DisplayName: kind.DisplayName(),
		Result:      result,
	})
}

// bindSubmission parses the condition path parameter and the raw feature body
func (s *Server) bindSubmission(c *gin.Context) (domain.ConditionKind, map[string]interface{}, bool) {
	kind, err := domain.ParseConditionKind(c.Param("condition"))
	if err != nil {
		s.abort(c, http.StatusUnprocessableEntity, domain.ErrUnknownCondition, err.Error(), "")
		return "", nil, false
	}

	var features map[string]interface{}
	if err := c.ShouldBindJSON(&features); err != nil {
		s.abort(c, http.StatusBadRequest, domain.ErrInvalidInput, "request body must be a JSON object of features", err.Error())
		return "", nil, false
	}

	return kind, features, true
}

func (s *Server) handleListHistory(c *gin.Context) {
	store := s.historyStore()
	if store == nil {
		s.historyDisabled(c)
		return
	}

	filter, err := parseFilter(c)
	if err != nil {
		s.abort(c, http.StatusBadRequest, domain.ErrInvalidInput, err.Error(), "")
		return
	}

	ctx := c.Request.Context()
	records, err := store.List(ctx, filter)
	if err != nil {
		s.writeError(c, err)
		return
	}
	total, err := store.Count(ctx, filter)
	if err != nil {
		s.writeError(c, err)
		return
	}
	if records == nil {
		records = []*history.Record{}
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = history.DefaultListLimit
	}
	c.JSON(http.StatusOK, HistoryListResponse{
		Records: records,
		Total:   total,
		Limit:   limit,
		Offset:  filter.Offset,
	})
}

func (s *Server) handleGetHistory(c *gin.Context) {
	store := s.historyStore()
	if store == nil {
		s.historyDisabled(c)
		return
	}

	rec, err := store.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (s *Server) handleDeleteHistory(c *gin.Context) {
	store := s.historyStore()
	if store == nil {
		s.historyDisabled(c)
		return
	}

	if err := store.Delete(c.Request.Context(), c.Param("id")); err != nil {
		s.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleExportHistory(c *gin.Context) {
	store := s.historyStore()
	if store == nil {
		s.historyDisabled(c)
		return
	}

	format := strings.ToLower(c.DefaultQuery("format", "json"))
	stamp := time.Now().UTC().Format("20060102-150405")

	var (
		buf         bytes.Buffer
		err         error
		contentType string
	)
	switch format {
	case "json":
		err = history.ExportJSON(c.Request.Context(), store, &buf)
		contentType = "application/json"
	case "xlsx":
		err = history.ExportXLSX(c.Request.Context(), store, &buf)
		contentType = xlsxContentType
	default:
		s.abort(c, http.StatusBadRequest, domain.ErrInvalidInput, fmt.Sprintf("unsupported export format %q", format), "use json or xlsx")
		return
	}
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="assessments-%s.%s"`, stamp, format))
	c.Data(http.StatusOK, contentType, buf.Bytes())
}

func parseFilter(c *gin.Context) (history.Filter, error) {
	var f history.Filter

	if v := c.Query("condition"); v != "" {
		kind, err := domain.ParseConditionKind(v)
		if err != nil {
			return f, err
		}
		f.Condition = kind
	}
	if v := c.Query("source"); v != "" {
		src := domain.ResultSource(strings.ToLower(v))
		if src != domain.SourceRemote && src != domain.SourceFallback {
			return f, fmt.Errorf("unknown source %q", v)
		}
		f.Source = src
	}
	if v := c.Query("since"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return f, fmt.Errorf("since must be an RFC 3339 timestamp")
		}
		f.Since = t
	}
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return f, fmt.Errorf("limit must be a non-negative integer")
		}
		f.Limit = n
	}
	if v := c.Query("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return f, fmt.Errorf("offset must be a non-negative integer")
		}
		f.Offset = n
	}
	return f, nil
}

// writeError maps service and storage errors onto HTTP status codes
func (s *Server) writeError(c *gin.Context, err error) {
	var (
		unavailable *domain.HeuristicUnavailableError
		validation  *domain.ValidationError
	)

	switch {
	case errors.As(err, &validation):
		s.abort(c, http.StatusBadRequest, domain.ErrValidation, validation.Error(), validation.Field)

	case errors.As(err, &unavailable):
		if gwErr, ok := domain.IsGatewayError(unavailable.Cause); ok {
			s.abort(c, http.StatusBadGateway, gwErr.Code(), gwErr.UserMessage(), unavailable.Error())
			return
		}
		s.abort(c, http.StatusUnprocessableEntity, domain.ErrHeuristicUnavailable, unavailable.Error(), "")

	case errors.Is(err, context.DeadlineExceeded):
		s.abort(c, http.StatusGatewayTimeout, domain.ErrGatewayTimeout, "request timed out", "")

	case errors.Is(err, context.Canceled):
		s.abort(c, 499, domain.ErrInternalServer, "request cancelled", "")

	case errors.Is(err, history.ErrNotFound):
		s.abort(c, http.StatusNotFound, domain.ErrNotFound, "assessment not found", c.Param("id"))

	default:
		if gwErr, ok := domain.IsGatewayError(err); ok {
			s.abort(c, http.StatusBadGateway, gwErr.Code(), gwErr.UserMessage(), gwErr.Error())
			return
		}
		s.logger.WithError(err).WithField("path", c.Request.URL.Path).Error("Unhandled request error")
		s.abort(c, http.StatusInternalServerError, domain.ErrInternalServer, "internal server error", "")
	}
}

func (s *Server) historyDisabled(c *gin.Context) {
	s.abort(c, http.StatusServiceUnavailable, domain.ErrStorage, "assessment history is disabled", "")
}

func (s *Server) abort(c *gin.Context, status int, code, message, details string) {
	appErr := domain.NewAppError(code, message, details, c.GetString(middleware.CorrelationIDKey))
	_ = c.Error(appErr)
	c.AbortWithStatusJSON(status, gin.H{"error": appErr})
}
