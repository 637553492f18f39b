// README: Report handlers: file a report, admin list and resolve.
package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"carpool/internal/http/middleware"
	"carpool/internal/modules/report"
	"carpool/internal/types"
)

type ReportService interface {
	Create(ctx context.Context, cmd report.CreateCommand) (*report.Report, error)
	List(ctx context.Context, status report.Status, limit, offset int) ([]report.Report, error)
	Resolve(ctx context.Context, id types.ID, resolution string) (*report.Report, error)
}

type ReportHandler struct {
	reports ReportService
}

func NewReportHandler(svc ReportService) *ReportHandler {
	return &ReportHandler{reports: svc}
}

type createReportReq struct {
	RideID         string        `json:"ride_id"`
	ReportedUserID string        `json:"reported_user_id"`
	Reason         report.Reason `json:"reason"`
	Details        string        `json:"details"`
}

func (h *ReportHandler) Create(c *gin.Context) {
	var req createReportReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	cmd := report.CreateCommand{
		ReporterID: types.ID(middleware.CallerUID(c)),
		Reason:     req.Reason,
		Details:    req.Details,
	}
	if req.RideID != "" {
		id := types.ID(req.RideID)
		if !id.Valid() {
			writeError(c, http.StatusBadRequest, "invalid ride_id")
			return
		}
		cmd.RideID = &id
	}
	if req.ReportedUserID != "" {
		id := types.ID(req.ReportedUserID)
		cmd.ReportedUserID = &id
	}

	r, err := h.reports.Create(c.Request.Context(), cmd)
	if err != nil {
		writeReportError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, r)
}

// List handles GET /api/admin/reports?status=open|resolved.
func (h *ReportHandler) List(c *gin.Context) {
	limit, ok := queryInt(c, "limit", 50)
	if !ok {
		return
	}
	offset, ok := queryInt(c, "offset", 0)
	if !ok {
		return
	}
	list, err := h.reports.List(c.Request.Context(), report.Status(c.Query("status")), limit, offset)
	if err != nil {
		writeReportError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, map[string]any{"reports": list})
}

type resolveReportReq struct {
	Resolution string `json:"resolution"`
}

func (h *ReportHandler) Resolve(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req resolveReportReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	r, err := h.reports.Resolve(c.Request.Context(), id, req.Resolution)
	if err != nil {
		writeReportError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, r)
}
