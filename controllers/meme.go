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

type MemeController struct {
	memes          services.MemeService
	tokens         *auth.TokenService
	metrics        *metrics.Metrics
	maxUploadBytes int64
	errs           errorWriter
}

type MemeListResponse struct {
	Memes       []models.Meme `json:"memes"`
	TotalPages  int           `json:"totalPages"`
	CurrentPage int           `json:"currentPage"`
	Total       int64         `json:"total"`
}

type MemeResponse struct {
	Message string       `json:"message"`
	Meme    *models.Meme `json:"meme"`
}

func newMemeController(opts *Options) *MemeController {
	return &MemeController{
		memes:          opts.Memes,
		tokens:         opts.Tokens,
		metrics:        opts.Metrics,
		maxUploadBytes: opts.MaxUploadBytes,
		errs:           opts.errorWriter(),
	}
}

func (ctl *MemeController) RegisterRoutes(ws *restful.WebService) {
	ws.Path("/api/memes").Produces(restful.MIME_JSON).Filter(ctl.tokens.AuthFilter())
	tags := []string{"memes"}

	ws.Route(ws.GET("").To(ctl.listHandler).
		Doc("List the caller's memes, newest first").
		Param(ws.QueryParameter("page", "Page number (default 1)").DataType("integer").DefaultValue("1")).
		Param(ws.QueryParameter("limit", "Memes per page (default 10)").DataType("integer").DefaultValue("10")).
		Metadata(restfulspec.KeyOpenAPITags, tags).
		Writes(MemeListResponse{}).
		Returns(http.StatusOK, "OK", MemeListResponse{}).
		Returns(http.StatusUnauthorized, "Unauthorized", ErrorResponse{}))

	ws.Route(ws.POST("").Consumes("multipart/form-data").To(ctl.createHandler).
		Doc("Save a meme rendered by the client").
		Param(ws.FormParameter("title", "Title").DataType("string").Required(true)).
		Param(ws.FormParameter("templateId", "Source template").DataType("integer")).
		Param(ws.FormParameter("trendId", "Source trend").DataType("integer")).
		Param(ws.FormParameter("image", "Rendered image").DataType("file").Required(true)).
		Metadata(restfulspec.KeyOpenAPITags, tags).
		Returns(http.StatusCreated, "Meme created", MemeResponse{}).
		Returns(http.StatusBadRequest, "Invalid input", ErrorResponse{}).
		Returns(http.StatusUnauthorized, "Unauthorized", ErrorResponse{}))
}

func (ctl *MemeController) listHandler(req *restful.Request, resp *restful.Response) {
	owner, _ := auth.CurrentIdentity(req)
	page, err := ctl.memes.List(req.Request.Context(), owner, queryInt(req, "page"), queryInt(req, "limit"))
	if err != nil {
		ctl.errs.write(req, resp, err)
		return
	}
	writeJSON(resp, http.StatusOK, MemeListResponse{
		Memes:       page.Items,
		TotalPages:  page.TotalPages,
		CurrentPage: page.CurrentPage,
		Total:       page.Total,
	})
}

func (ctl *MemeController) createHandler(req *restful.Request, resp *restful.Response) {
	owner, _ := auth.CurrentIdentity(req)
	form, err := parseUploadForm(req, resp, ctl.maxUploadBytes)
	if err != nil {
		ctl.errs.write(req, resp, err)
		return
	}
	input := &services.CreateMemeInput{Title: form.value("title")}
	if input.TemplateID, err = optionalID(form.value("templateId")); err != nil {
		ctl.errs.write(req, resp, err)
		return
	}
	if input.TrendID, err = optionalID(form.value("trendId")); err != nil {
		ctl.errs.write(req, resp, err)
		return
	}
	img, err := form.image("image")
	if err != nil {
		ctl.errs.write(req, resp, err)
		return
	}

	meme, err := ctl.memes.Create(req.Request.Context(), owner, input, img)
	if err != nil {
		ctl.errs.write(req, resp, err)
		return
	}
	ctl.metrics.RecordUpload("meme")
	writeJSON(resp, http.StatusCreated, MemeResponse{Message: "Meme created successfully", Meme: meme})
}
