package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/neuro-risk-client/internal/domain"
	"github.com/neuro-risk-client/internal/history"
	"github.com/neuro-risk-client/pkg/external"
)

// AssessRiskParams defines parameters for the assess_risk and score_locally tools
type AssessRiskParams struct {
	Condition string                 `json:"condition"`
	Features  map[string]interface{} `json:"features"`
}

// AssessRiskResult defines the result structure for assess_risk and score_locally
type AssessRiskResult struct {
	AssessmentID string                       `json:"assessment_id,omitempty"`
	Condition    string                       `json:"condition"`
	Result       *domain.RiskAssessmentResult `json:"result"`
}

// ListHistoryParams defines parameters for the list_history tool
type ListHistoryParams struct {
	Condition string `json:"condition,omitempty"`
	Source    string `json:"source,omitempty"`
	Limit     int    `json:"limit,omitempty"`
	Offset    int    `json:"offset,omitempty"`
}

// ListHistoryResult defines the result structure for list_history
type ListHistoryResult struct {
	Records []*history.Record `json:"records"`
	Total   int64             `json:"total"`
}

// ExportHistoryParams defines parameters for the export_history tool
type ExportHistoryParams struct {
	Format string `json:"format,omitempty"`
}

// ExportHistoryResult defines the result structure for export_history
type ExportHistoryResult struct {
	Path    string `json:"path"`
	Format  string `json:"format"`
	Records int64  `json:"records"`
}

// CheckEndpointsParams takes no arguments
type CheckEndpointsParams struct{}

// CheckEndpointsResult defines the result structure for check_endpoints
type CheckEndpointsResult struct {
	Endpoints []external.HealthStatus `json:"endpoints"`
}

// handleAssessRisk handles the assess_risk tool invocation
func (s *Server) handleAssessRisk(ctx context.Context, req *mcp.CallToolRequest, params AssessRiskParams) (*mcp.CallToolResult, any, error) {
	s.logger.WithFields(logrus.Fields{"tool": "assess_risk", "condition": params.Condition}).Info("Tool invoked")

	kind, errResult := s.parseSubmission(params)
	if errResult != nil {
		return errResult, nil, nil
	}

	rec, err := s.stack.Recorder.AssessAndRecord(ctx, kind, params.Features)
	if err != nil {
		return s.assessmentErrorResult(err), nil, nil
	}

	result := AssessRiskResult{
		AssessmentID: rec.ID,
		Condition:    string(kind),
		Result:       &rec.Result,
	}
	return s.createResult(summarize(kind, &rec.Result), result), result, nil
}

// handleScoreLocally handles the score_locally tool invocation
func (s *Server) handleScoreLocally(ctx context.Context, req *mcp.CallToolRequest, params AssessRiskParams) (*mcp.CallToolResult, any, error) {
	s.logger.WithFields(logrus.Fields{"tool": "score_locally", "condition": params.Condition}).Info("Tool invoked")

	kind, errResult := s.parseSubmission(params)
	if errResult != nil {
		return errResult, nil, nil
	}

	scored, err := s.stack.Client.ScoreLocally(kind, params.Features)
	if err != nil {
		return s.assessmentErrorResult(err), nil, nil
	}

	result := AssessRiskResult{Condition: string(kind), Result: scored}
	return s.createResult(summarize(kind, scored), result), result, nil
}

// handleListHistory handles the list_history tool invocation
func (s *Server) handleListHistory(ctx context.Context, req *mcp.CallToolRequest, params ListHistoryParams) (*mcp.CallToolResult, any, error) {
	s.logger.WithField("tool", "list_history").Info("Tool invoked")

	if s.store == nil {
		return s.createErrorResult("History unavailable", errors.New("assessment history is disabled")), nil, nil
	}

	filter := history.Filter{Limit: params.Limit, Offset: params.Offset}
	if params.Limit < 0 || params.Offset < 0 {
		return s.createErrorResult("Invalid parameters", errors.New("limit and offset must not be negative")), nil, nil
	}
	if params.Condition != "" {
		kind, err := domain.ParseConditionKind(params.Condition)
		if err != nil {
			return s.createErrorResult("Invalid parameters", err), nil, nil
		}
		filter.Condition = kind
	}
	if params.Source != "" {
		src := domain.ResultSource(strings.ToLower(params.Source))
		if src != domain.SourceRemote && src != domain.SourceFallback {
			return s.createErrorResult("Invalid parameters", fmt.Errorf("unknown source %q", params.Source)), nil, nil
		}
		filter.Source = src
	}

	records, err := s.store.List(ctx, filter)
	if err != nil {
		return s.createErrorResult("Failed to list history", err), nil, nil
	}
	total, err := s.store.Count(ctx, filter)
	if err != nil {
		return s.createErrorResult("Failed to count history", err), nil, nil
	}
	if records == nil {
		records = []*history.Record{}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d of %d assessments", len(records), total)
	for _, rec := range records {
		fmt.Fprintf(&b, "\n- %s %s: %.1f%% %s (%s)", rec.CreatedAt.Format(time.RFC3339),
			rec.Condition.DisplayName(), rec.Result.RiskPercentage, rec.Result.RiskLevel, rec.Result.Source)
	}

	result := ListHistoryResult{Records: records, Total: total}
	return s.createResult(b.String(), result), result, nil
}

// handleExportHistory handles the export_history tool invocation
func (s *Server) handleExportHistory(ctx context.Context, req *mcp.CallToolRequest, params ExportHistoryParams) (*mcp.CallToolResult, any, error) {
	s.logger.WithField("tool", "export_history").Info("Tool invoked")

	if s.store == nil {
		return s.createErrorResult("History unavailable", errors.New("assessment history is disabled")), nil, nil
	}

	format := strings.ToLower(params.Format)
	if format == "" {
		format = "json"
	}
	if format != "json" && format != "xlsx" {
		return s.createErrorResult("Invalid parameters", fmt.Errorf("unsupported export format %q", params.Format)), nil, nil
	}

	dir := s.exportDir
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return s.createErrorResult("Failed to create export directory", err), nil, nil
	}

	path := filepath.Join(dir, fmt.Sprintf("assessments-%s.%s", time.Now().UTC().Format("20060102-150405"), format))
	f, err := os.Create(path)
	if err != nil {
		return s.createErrorResult("Failed to create export file", err), nil, nil
	}

	if format == "xlsx" {
		err = history.ExportXLSX(ctx, s.store, f)
	} else {
		err = history.ExportJSON(ctx, s.store, f)
	}
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(path)
		return s.createErrorResult("Export failed", err), nil, nil
	}

	count, err := s.store.Count(ctx, history.Filter{})
	if err != nil {
		count = -1
	}

	result := ExportHistoryResult{Path: path, Format: format, Records: count}
	return s.createResult(fmt.Sprintf("Exported assessment history to %s", path), result), result, nil
}

// handleCheckEndpoints handles the check_endpoints tool invocation
func (s *Server) handleCheckEndpoints(ctx context.Context, req *mcp.CallToolRequest, params CheckEndpointsParams) (*mcp.CallToolResult, any, error) {
	s.logger.WithField("tool", "check_endpoints").Info("Tool invoked")

	statuses := s.stack.ProbeEndpoints(ctx)

	var b strings.Builder
	for i, st := range statuses {
		if i > 0 {
			b.WriteString("\n")
		}
		switch {
		case st.Healthy:
			fmt.Fprintf(&b, "%s: healthy (%dms)", st.Condition.DisplayName(), st.Latency.Milliseconds())
		case st.Error != "":
			fmt.Fprintf(&b, "%s: unavailable, %s", st.Condition.DisplayName(), st.Error)
		default:
			fmt.Fprintf(&b, "%s: unhealthy (status %d)", st.Condition.DisplayName(), st.Status)
		}
	}

	result := CheckEndpointsResult{Endpoints: statuses}
	return s.createResult(b.String(), result), result, nil
}

func (s *Server) parseSubmission(params AssessRiskParams) (domain.ConditionKind, *mcp.CallToolResult) {
	if params.Condition == "" {
		return "", s.createErrorResult("Missing required parameter", errors.New("condition is required"))
	}
	kind, err := domain.ParseConditionKind(params.Condition)
	if err != nil {
		return "", s.createErrorResult("Invalid parameters", err)
	}
	if len(params.Features) == 0 {
		return "", s.createErrorResult("Missing required parameter", errors.New("features is required"))
	}
	return kind, nil
}

// assessmentErrorResult turns an assessment failure into a tool error the
// agent can act on
func (s *Server) assessmentErrorResult(err error) *mcp.CallToolResult {
	var unavailable *domain.HeuristicUnavailableError
	switch {
	case domain.IsValidationError(err):
		return s.createErrorResult("Invalid features", err)
	case errors.As(err, &unavailable):
		if gwErr, ok := domain.IsGatewayError(unavailable.Cause); ok {
			return s.createErrorResult(gwErr.UserMessage(), fmt.Errorf("no local heuristic exists for %s", unavailable.Condition.DisplayName()))
		}
		return s.createErrorResult("No local heuristic", err)
	default:
		if gwErr, ok := domain.IsGatewayError(err); ok {
			return s.createErrorResult(gwErr.UserMessage(), err)
		}
		s.logger.WithError(err).Error("Assessment failed")
		return s.createErrorResult("Assessment failed", err)
	}
}

func summarize(kind domain.ConditionKind, r *domain.RiskAssessmentResult) string {
	text := fmt.Sprintf("%s risk: %.1f%% (%s), confidence %.2f", kind.DisplayName(), r.RiskPercentage, r.RiskLevel, r.Confidence)
	if r.Source == domain.SourceFallback {
		text += ", scored by the local heuristic"
	} else if r.ModelUsed != "" {
		text += ", model " + r.ModelUsed
	}
	return text
}

// createResult returns a summary line followed by the JSON payload
func (s *Server) createResult(summary string, payload interface{}) *mcp.CallToolResult {
	content := []mcp.Content{&mcp.TextContent{Text: summary}}
	if data, err := json.MarshalIndent(payload, "", "  "); err == nil {
		content = append(content, &mcp.TextContent{Text: string(data)})
	}
	return &mcp.CallToolResult{Content: content}
}

// createErrorResult creates a standardized error result for tool calls
func (s *Server) createErrorResult(message string, err error) *mcp.CallToolResult {
	errorText := fmt.Sprintf("Error: %s", message)
	if err != nil {
		errorText += fmt.Sprintf(" - %v", err)
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: errorText},
		},
		IsError: true,
	}
}
