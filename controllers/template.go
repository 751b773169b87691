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

type TemplateController struct {
	templates      services.TemplateService
	tokens         *auth.TokenService
	metrics        *metrics.Metrics
	maxUploadBytes int64
	errs           errorWriter
}

type TemplateListResponse struct {
	Templates   []models.Template `json:"templates"`
	TotalPages  int               `json:"totalPages"`
	CurrentPage int               `json:"currentPage"`
	Total       int64             `json:"total"`
}

type TemplateResponse struct {
	Message  string           `json:"message,omitempty"`
	Template *models.Template `json:"template"`
}

type UsesResponse struct {
	Message string `json:"message"`
	Uses    int64  `json:"uses"`
}

func newTemplateController(opts *Options) *TemplateController {
	return &TemplateController{
		templates:      opts.Templates,
		tokens:         opts.Tokens,
		metrics:        opts.Metrics,
		maxUploadBytes: opts.MaxUploadBytes,
		errs:           opts.errorWriter(),
	}
}

func (ctl *TemplateController) RegisterRoutes(ws *restful.WebService) {
	ws.Path("/api/templates").Produces(restful.MIME_JSON)
	tags := []string{"templates"}

	ws.Route(ws.GET("").To(ctl.listHandler).
		Doc("List templates; category=popular sorts by uses and rating").
		Param(ws.QueryParameter("category", "Category filter, \"all\" or \"popular\"").DataType("string")).
		Param(ws.QueryParameter("page", "Page number (default 1)").DataType("integer").DefaultValue("1")).
		Param(ws.QueryParameter("limit", "Templates per page (default 10)").DataType("integer").DefaultValue("10")).
		Metadata(restfulspec.KeyOpenAPITags, tags).
		Writes(TemplateListResponse{}).
		Returns(http.StatusOK, "OK", TemplateListResponse{}))

	ws.Route(ws.GET("/{id}").To(ctl.getHandler).
		Doc("Get a template").
		Param(ws.PathParameter("id", "Template id").DataType("integer")).
		Metadata(restfulspec.KeyOpenAPITags, tags).
		Writes(TemplateResponse{}).
		Returns(http.StatusOK, "OK", TemplateResponse{}).
		Returns(http.StatusNotFound, "Template not found", ErrorResponse{}))

	ws.Route(ws.POST("").Consumes("multipart/form-data").Filter(ctl.tokens.AuthFilter()).To(ctl.createHandler).
		Doc("Create a template").
		Param(ws.FormParameter("name", "Name").DataType("string").Required(true)).
		Param(ws.FormParameter("description", "Description").DataType("string")).
		Param(ws.FormParameter("category", "Category").DataType("string").Required(true)).
		Param(ws.FormParameter("icon", "Icon (default 🎭)").DataType("string")).
		Param(ws.FormParameter("tags", "Comma separated tags").DataType("string")).
		Param(ws.FormParameter("image", "Image file").DataType("file").Required(true)).
		Metadata(restfulspec.KeyOpenAPITags, tags).
		Returns(http.StatusCreated, "Template created", TemplateResponse{}).
		Returns(http.StatusBadRequest, "Image is required", ErrorResponse{}).
		Returns(http.StatusUnauthorized, "Unauthorized", ErrorResponse{}))

	ws.Route(ws.POST("/{id}/use").Filter(ctl.tokens.OptionalAuthFilter()).To(ctl.useHandler).
		Doc("Record a template use").
		Param(ws.PathParameter("id", "Template id").DataType("integer")).
		Metadata(restfulspec.KeyOpenAPITags, tags).
		Returns(http.StatusOK, "Usage recorded", UsesResponse{}).
		Returns(http.StatusNotFound, "Template not found", ErrorResponse{}).
		Returns(http.StatusUnauthorized, "Invalid token", ErrorResponse{}))
}

func (ctl *TemplateController) listHandler(req *restful.Request, resp *restful.Response) {
	page, err := ctl.templates.List(req.Request.Context(), services.TemplateQuery{
		Category: req.QueryParameter("category"),
		Page:     queryInt(req, "page"),
		Limit:    queryInt(req, "limit"),
	})
	if err != nil {
		ctl.errs.write(req, resp, err)
		return
	}
	writeJSON(resp, http.StatusOK, TemplateListResponse{
		Templates:   page.Items,
		TotalPages:  page.TotalPages,
		CurrentPage: page.CurrentPage,
		Total:       page.Total,
	})
}

func (ctl *TemplateController) getHandler(req *restful.Request, resp *restful.Response) {
	id, err := pathID(req, "id")
	if err != nil {
		ctl.errs.write(req, resp, err)
		return
	}
	template, err := ctl.templates.Get(req.Request.Context(), id)
	if err != nil {
		ctl.errs.write(req, resp, err)
		return
	}
	writeJSON(resp, http.StatusOK, TemplateResponse{Template: template})
}

func (ctl *TemplateController) createHandler(req *restful.Request, resp *restful.Response) {
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

	template, err := ctl.templates.Create(req.Request.Context(), owner, &services.CreateTemplateInput{
		Name:        form.value("name"),
		Description: form.value("description"),
		Category:    form.value("category"),
		Icon:        form.value("icon"),
		Tags:        splitTags(form.value("tags")),
	}, img)
	if err != nil {
		ctl.errs.write(req, resp, err)
		return
	}
	ctl.metrics.RecordUpload("template")
	writeJSON(resp, http.StatusCreated, TemplateResponse{Message: "Template created successfully", Template: template})
}

func (ctl *TemplateController) useHandler(req *restful.Request, resp *restful.Response) {
	id, err := pathID(req, "id")
	if err != nil {
		ctl.errs.write(req, resp, err)
		return
	}
	uses, err := ctl.templates.RecordUse(req.Request.Context(), id)
	if err != nil {
		ctl.errs.write(req, resp, err)
		return
	}
	_, member := auth.CurrentIdentity(req)
	ctl.metrics.RecordEngagement("use", member)
	writeJSON(resp, http.StatusOK, UsesResponse{Message: "Usage recorded", Uses: uses})
}
