package controllers

import (
	"net/http"

	"trendzn-restful/auth"
	"trendzn-restful/metrics"
	"trendzn-restful/models"
	"trendzn-restful/services"

	restfulspec "github.com/emicklei/go-restful-openapi/v2"
	restful "github.com/emicklei/go-restful/v3"
)

type AnalyticsController struct {
	analytics services.AnalyticsService
	tokens    *auth.TokenService
	metrics   *metrics.Metrics
	errs      errorWriter
}

type SnapshotResponse struct {
	Message  string                    `json:"message"`
	Snapshot *models.AnalyticsSnapshot `json:"snapshot"`
}

const defaultHistoryDays = 7

func newAnalyticsController(opts *Options) *AnalyticsController {
	return &AnalyticsController{
		analytics: opts.Analytics,
		tokens:    opts.Tokens,
		metrics:   opts.Metrics,
		errs:      opts.errorWriter(),
	}
}

func (ctl *AnalyticsController) RegisterRoutes(ws *restful.WebService) {
	ws.Path("/api/analytics").Produces(restful.MIME_JSON).
		Filter(ctl.tokens.AuthFilter()).
		Filter(auth.RequireRole(models.RoleAdmin))
	tags := []string{"analytics"}

	ws.Route(ws.POST("/update").To(ctl.updateHandler).
		Doc("Recompute today's snapshot").
		Metadata(restfulspec.KeyOpenAPITags, tags).
		Returns(http.StatusOK, "Analytics updated", SnapshotResponse{}).
		Returns(http.StatusForbidden, "Admin access required", ErrorResponse{}))

	ws.Route(ws.GET("").To(ctl.historyHandler).
		Doc("Daily snapshots, oldest first").
		Param(ws.QueryParameter("days", "Number of days (default 7, max 365)").DataType("integer").DefaultValue("7")).
		Metadata(restfulspec.KeyOpenAPITags, tags).
		Writes([]models.AnalyticsSnapshot{}).
		Returns(http.StatusOK, "OK", []models.AnalyticsSnapshot{}).
		Returns(http.StatusBadRequest, "Invalid days", ErrorResponse{}))
}

func (ctl *AnalyticsController) updateHandler(req *restful.Request, resp *restful.Response) {
	snap, err := ctl.analytics.Refresh(req.Request.Context())
	ctl.metrics.RecordAnalyticsRefresh(err)
	if err != nil {
		ctl.errs.write(req, resp, err)
		return
	}
	writeJSON(resp, http.StatusOK, SnapshotResponse{Message: "Analytics updated", Snapshot: snap})
}

func (ctl *AnalyticsController) historyHandler(req *restful.Request, resp *restful.Response) {
	days := defaultHistoryDays
	if req.QueryParameter("days") != "" {
		days = queryInt(req, "days")
	}
	snapshots, err := ctl.analytics.History(req.Request.Context(), days)
	if err != nil {
		ctl.errs.write(req, resp, err)
		return
	}
	writeJSON(resp, http.StatusOK, snapshots)
}
