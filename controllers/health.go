package controllers

import (
	"net/http"
	"time"

	restfulspec "github.com/emicklei/go-restful-openapi/v2"
	restful "github.com/emicklei/go-restful/v3"
)

type HealthController struct {
	started time.Time
}

type HealthResponse struct {
	Status    string  `json:"status"`
	Timestamp string  `json:"timestamp"`
	Uptime    float64 `json:"uptime" description:"Seconds since the process started"`
}

func (ctl *HealthController) RegisterRoutes(ws *restful.WebService) {
	ws.Path("/api/health").Produces(restful.MIME_JSON)
	ws.Route(ws.GET("").To(ctl.healthHandler).
		Doc("Liveness probe").
		Metadata(restfulspec.KeyOpenAPITags, []string{"health"}).
		Writes(HealthResponse{}).
		Returns(http.StatusOK, "OK", HealthResponse{}))
}

func (ctl *HealthController) healthHandler(req *restful.Request, resp *restful.Response) {
	now := time.Now()
	writeJSON(resp, http.StatusOK, HealthResponse{
		Status:    "OK",
		Timestamp: now.UTC().Format(time.RFC3339Nano),
		Uptime:    now.Sub(ctl.started).Seconds(),
	})
}
