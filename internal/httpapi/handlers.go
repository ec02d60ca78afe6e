package httpapi

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/lexilabs/lexid/internal/casefile"
	"github.com/lexilabs/lexid/internal/store"
	"github.com/lexilabs/lexid/internal/verdict"
)

// maxUploadBytes bounds evidence file size.
const maxUploadBytes = 20 << 20 // 20MB

// HealthResponse is the body for GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

// ScreenIncidentRequest is the body for POST /screen-incident.
type ScreenIncidentRequest struct {
	Incident string `json:"incident"`
}

// IncidentRequest is the body for POST /incident.
type IncidentRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// IncidentResponse is the body for a successful incident registration.
type IncidentResponse struct {
	ID string `json:"id"`
}

// ClaimRequest is the body for POST /claim.
type ClaimRequest struct {
	CaseID string `json:"case_id"`
	Side   string `json:"side"`
	Text   string `json:"text"`
}

// UploadResponse acknowledges an evidence upload. The acknowledgment covers
// the required path only; enrichment outcomes are not surfaced to uploaders.
type UploadResponse struct {
	Status string `json:"status"`
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

func (s *Server) handleScreenIncident(c echo.Context) error {
	var req ScreenIncidentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Incident == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "incident text is required")
	}

	return c.JSON(http.StatusOK, s.cases.Screen(c.Request().Context(), req.Incident))
}

func (s *Server) handleCreateIncident(c echo.Context) error {
	var req IncidentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Title == "" || req.Description == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "title and description are required")
	}

	id, err := s.cases.RegisterIncident(c.Request().Context(), req.Title, req.Description)
	if err != nil {
		if errors.Is(err, casefile.ErrStoreDegraded) {
			return echo.NewHTTPError(http.StatusServiceUnavailable, "store unavailable, registration not confirmed")
		}
		s.logger.Error("incident registration failed", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "registration failed")
	}

	return c.JSON(http.StatusOK, IncidentResponse{ID: id})
}

func (s *Server) handleSubmitClaim(c echo.Context) error {
	var req ClaimRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.CaseID == "" || req.Text == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "case_id and text are required")
	}
	if !validSide(req.Side) {
		return echo.NewHTTPError(http.StatusBadRequest, "side must be A or B")
	}

	row, err := s.cases.AddClaim(c.Request().Context(), req.CaseID, req.Side, req.Text)
	if err != nil {
		if errors.Is(err, casefile.ErrStoreDegraded) {
			return echo.NewHTTPError(http.StatusServiceUnavailable, "store unavailable, claim not confirmed")
		}
		s.logger.Error("claim submission failed", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "claim submission failed")
	}

	return c.JSON(http.StatusOK, row)
}

func (s *Server) handleUploadEvidence(c echo.Context) error {
	caseID := c.FormValue("case_id")
	side := c.FormValue("side")
	if caseID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "case_id is required")
	}
	if !validSide(side) {
		return echo.NewHTTPError(http.StatusBadRequest, "side must be A or B")
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "file is required")
	}
	if fileHeader.Size > maxUploadBytes {
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, "file too large")
	}

	f, err := fileHeader.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "cannot read file")
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxUploadBytes+1))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "cannot read file")
	}
	if len(data) > maxUploadBytes {
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, "file too large")
	}

	// Enrichment failures are terminal outcomes, not upload failures: the
	// uploader receives ok whenever the required path held.
	if _, err := s.cases.AddEvidence(c.Request().Context(), caseID, side, fileHeader.Filename, data); err != nil {
		s.logger.Error("evidence ingestion failed", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "evidence ingestion failed")
	}

	return c.JSON(http.StatusOK, UploadResponse{Status: "ok"})
}

func (s *Server) handleHistory(c echo.Context) error {
	caseID := c.Param("case_id")
	if caseID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "case_id is required")
	}
	return c.JSON(http.StatusOK, s.cases.History(c.Request().Context(), caseID))
}

func (s *Server) handleVerdict(c echo.Context) error {
	caseID := c.QueryParam("case_id")
	if caseID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "case_id is required")
	}

	score, err := strconv.ParseFloat(c.QueryParam("score"), 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "score must be a number")
	}
	caseType := c.QueryParam("case_type")

	// A degraded count is ambiguous between "no facts" and "store
	// unreachable"; a verdict must not present it as a real fact count.
	factsCount, status := s.cases.CountFacts(c.Request().Context(), caseID)
	if status == store.StatusDegraded {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "store unavailable, fact count not confirmed")
	}

	result, err := verdict.DecideWithReason(score, caseType, factsCount)
	if err != nil {
		var invalid *verdict.InvalidCaseTypeError
		if errors.As(err, &invalid) {
			return echo.NewHTTPError(http.StatusBadRequest, invalid.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "verdict computation failed")
	}

	return c.JSON(http.StatusOK, result)
}

func validSide(side string) bool {
	return side == "A" || side == "B"
}
