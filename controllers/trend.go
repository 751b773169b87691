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

type TrendController struct {
	trends         services.TrendService
	tokens         *auth.TokenService
	metrics        *metrics.Metrics
	maxUploadBytes int64
	errs           errorWriter
}

type TrendListResponse struct {
	Trends      []models.Trend `json:"trends"`
	TotalPages  int            `json:"totalPages"`
	CurrentPage int            `json:"currentPage"`
	Total       int64          `json:"total"`
}

type TrendResponse struct {
	Message string        `json:"message,omitempty"`
	Trend   *models.Trend `json:"trend"`
}

type ViewsResponse struct {
	Message string `json:"message"`
	Views   int64  `json:"views"`
}

func newTrendController(opts *Options) *TrendController {
	return &TrendController{
		trends:         opts.Trends,
		tokens:         opts.Tokens,
		metrics:        opts.Metrics,
		maxUploadBytes: opts.MaxUploadBytes,
		errs:           opts.errorWriter(),
	}
}

func (ctl *TrendController) RegisterRoutes(ws *restful.WebService) {
	ws.Path("/api/trends").Produces(restful.MIME_JSON)
	tags := []string{"trends"}

	ws.Route(ws.GET("").To(ctl.listHandler).
		Doc("List trends, newest first").
		Param(ws.QueryParameter("category", "Category filter, \"all\" for every category").DataType("string")).
		Param(ws.QueryParameter("status", "trending, viral, hot or rising").DataType("string")).
		Param(ws.QueryParameter("page", "Page number (default 1)").DataType("integer").DefaultValue("1")).
		Param(ws.QueryParameter("limit", "Trends per page (default 10)").DataType("integer").DefaultValue("10")).
		Metadata(restfulspec.KeyOpenAPITags, tags).
		Writes(TrendListResponse{}).
		Returns(http.StatusOK, "OK", TrendListResponse{}).
		Returns(http.StatusBadRequest, "Invalid status", ErrorResponse{}))

	ws.Route(ws.GET("/{id}").To(ctl.getHandler).
		Doc("Get a trend").
		Param(ws.PathParameter("id", "Trend id").DataType("integer")).
		Metadata(restfulspec.KeyOpenAPITags, tags).
		Writes(TrendResponse{}).
		Returns(http.StatusOK, "OK", TrendResponse{}).
		Returns(http.StatusNotFound, "Trend not found", ErrorResponse{}))

	ws.Route(ws.POST("").Consumes("multipart/form-data").Filter(ctl.tokens.AuthFilter()).To(ctl.createHandler).
		Doc("Create a trend with an optional image").
		Param(ws.FormParameter("title", "Title").DataType("string").Required(true)).
		Param(ws.FormParameter("description", "Description").DataType("string").Required(true)).
		Param(ws.FormParameter("category", "Category").DataType("string").Required(true)).
		Param(ws.FormParameter("status", "Status (default trending)").DataType("string")).
		Param(ws.FormParameter("tags", "Comma separated tags").DataType("string")).
		Param(ws.FormParameter("image", "Image file").DataType("file")).
		Metadata(restfulspec.KeyOpenAPITags, tags).
		Returns(http.StatusCreated, "Trend created", TrendResponse{}).
		Returns(http.StatusBadRequest, "Invalid input", ErrorResponse{}).
		Returns(http.StatusUnauthorized, "Unauthorized", ErrorResponse{}))

	ws.Route(ws.POST("/{id}/view").Filter(ctl.tokens.OptionalAuthFilter()).To(ctl.viewHandler).
		Doc("Record a view").
		Param(ws.PathParameter("id", "Trend id").DataType("integer")).
		Metadata(restfulspec.KeyOpenAPITags, tags).
		Returns(http.StatusOK, "View recorded", ViewsResponse{}).
		Returns(http.StatusNotFound, "Trend not found", ErrorResponse{}).
		Returns(http.StatusUnauthorized, "Invalid token", ErrorResponse{}))
}

func (ctl *TrendController) listHandler(req *restful.Request, resp *restful.Response) {
	page, err := ctl.trends.List(req.Request.Context(), services.TrendQuery{
		Category: req.QueryParameter("category"),
		Status:   req.QueryParameter("status"),
		Page:     queryInt(req, "page"),
		Limit:    queryInt(req, "limit"),
	})
	if err != nil {
		ctl.errs.write(req, resp, err)
		return
	}
	writeJSON(resp, http.StatusOK, TrendListResponse{
		Trends:      page.Items,
		TotalPages:  page.TotalPages,
		CurrentPage: page.CurrentPage,
		Total:       page.Total,
	})
}

func (ctl *TrendController) getHandler(req *restful.Request, resp *restful.Response) {
	id, err := pathID(req, "id")
	if err != nil {
		ctl.errs.write(req, resp, err)
		return
	}
	trend, err := ctl.trends.Get(req.Request.Context(), id)
	if err != nil {
		ctl.errs.write(req, resp, err)
		return
	}
	writeJSON(resp, http.StatusOK, TrendResponse{Trend: trend})
}

func (ctl *TrendController) createHandler(req *restful.Request, resp *restful.Response) {
	owner, _ := auth.CurrentIdentity(req)
	form, err := parseUploadForm(req, resp, ctl.maxUploadBytes)
	if err != nil {
		ctl.errs.write(req, resp, err)
		return
	}
	img, err := form.image("image")
	if err != nil {
		ctl.errs.write(req, resp, err)
		return
	}

	trend, err := ctl.trends.Create(req.Request.Context(), owner, &services.CreateTrendInput{
		Title:       form.value("title"),
		Description: form.value("description"),
		Category:    form.value("category"),
		Status:      form.value("status"),
		Tags:        splitTags(form.value("tags")),
	}, img)
	if err != nil {
		ctl.errs.write(req, resp, err)
		return
	}
	if img != nil {
		ctl.metrics.RecordUpload("trend")
	}
	writeJSON(resp, http.StatusCreated, TrendResponse{Message: "Trend created successfully", Trend: trend})
}

func (ctl *TrendController) viewHandler(req *restful.Request, resp *restful.Response) {
	id, err := pathID(req, "id")
	if err != nil {
		ctl.errs.write(req, resp, err)
		return
	}
	views, err := ctl.trends.RecordView(req.Request.Context(), id)
	if err != nil {
		ctl.errs.write(req, resp, err)
		return
	}
	_, member := auth.CurrentIdentity(req)
	ctl.metrics.RecordEngagement("view", member)
	writeJSON(resp, http.StatusOK, ViewsResponse{Message: "View recorded", Views: views})
}
