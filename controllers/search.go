package controllers

import (
	"net/http"

	"trendzn-restful/services"

	restfulspec "github.com/emicklei/go-restful-openapi/v2"
	restful "github.com/emicklei/go-restful/v3"
)

type SearchController struct {
	search services.SearchService
	errs   errorWriter
}

func newSearchController(opts *Options) *SearchController {
	return &SearchController{search: opts.Search, errs: opts.errorWriter()}
}

func (ctl *SearchController) RegisterRoutes(ws *restful.WebService) {
	ws.Path("/api/search").Produces(restful.MIME_JSON)

	ws.Route(ws.GET("").To(ctl.searchHandler).
		Doc("Search trends and templates by title, description and tags").
		Param(ws.QueryParameter("q", "Search text").DataType("string").Required(true)).
		Param(ws.QueryParameter("type", "all, trends or templates").DataType("string").DefaultValue("all")).
		Metadata(restfulspec.KeyOpenAPITags, []string{"search"}).
		Returns(http.StatusOK, "At most five matches per kind", nil).
		Returns(http.StatusBadRequest, "Search query is required", ErrorResponse{}))
}

func (ctl *SearchController) searchHandler(req *restful.Request, resp *restful.Response) {
	result, err := ctl.search.Search(req.Request.Context(), req.QueryParameter("q"), req.QueryParameter("type"))
	if err != nil {
		ctl.errs.write(req, resp, err)
		return
	}
	// Only the kinds that were searched appear in the body.
	body := map[string]any{}
	if result.Trends != nil {
		body["trends"] = result.Trends
	}
	if result.Templates != nil {
		body["templates"] = result.Templates
	}
	writeJSON(resp, http.StatusOK, body)
}
