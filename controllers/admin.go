package controllers

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"trendzn-restful/auth"
	"trendzn-restful/models"
	"trendzn-restful/services"

	restfulspec "github.com/emicklei/go-restful-openapi/v2"
	restful "github.com/emicklei/go-restful/v3"
)

const xlsxMIME = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type AdminController struct {
	admin     services.AdminService
	trends    services.TrendService
	templates services.TemplateService
	tokens    *auth.TokenService
	errs      errorWriter
}

type UserListResponse struct {
	Users       []models.User `json:"users"`
	TotalPages  int           `json:"totalPages"`
	CurrentPage int           `json:"currentPage"`
	Total       int64         `json:"total"`
}

type UpdatedUserResponse struct {
	Message string       `json:"message"`
	User    *models.User `json:"user"`
}

type AuditResponse struct {
	Entries []models.UserAudit `json:"entries"`
}

func newAdminController(opts *Options) *AdminController {
	return &AdminController{
		admin:     opts.Admin,
		trends:    opts.Trends,
		templates: opts.Templates,
		tokens:    opts.Tokens,
		errs:      opts.errorWriter(),
	}
}

func (ctl *AdminController) RegisterRoutes(ws *restful.WebService) {
	ws.Path("/api/admin").Produces(restful.MIME_JSON).
		Filter(ctl.tokens.AuthFilter()).
		Filter(auth.RequireRole(models.RoleAdmin))
	tags := []string{"admin"}

	ws.Route(ws.GET("/stats").To(ctl.statsHandler).
		Doc("Platform totals and 24h growth").
		Metadata(restfulspec.KeyOpenAPITags, tags).
		Writes(services.DashboardStats{}).
		Returns(http.StatusOK, "OK", services.DashboardStats{}).
		Returns(http.StatusForbidden, "Admin access required", ErrorResponse{}))

	ws.Route(ws.GET("/users").To(ctl.listUsersHandler).
		Doc("List users").
		Param(ws.QueryParameter("search", "Case-insensitive match on username or e-mail").DataType("string")).
		Param(ws.QueryParameter("page", "Page number (default 1)").DataType("integer").DefaultValue("1")).
		Param(ws.QueryParameter("limit", "Users per page (default 10)").DataType("integer").DefaultValue("10")).
		Metadata(restfulspec.KeyOpenAPITags, tags).
		Writes(UserListResponse{}).
		Returns(http.StatusOK, "OK", UserListResponse{}).
		Returns(http.StatusForbidden, "Admin access required", ErrorResponse{}))

	ws.Route(ws.GET("/users/export").Produces(xlsxMIME, restful.MIME_JSON).To(ctl.exportUsersHandler).
		Doc("Download all users as a spreadsheet").
		Metadata(restfulspec.KeyOpenAPITags, tags).
		Returns(http.StatusOK, "Spreadsheet", nil).
		Returns(http.StatusForbidden, "Admin access required", ErrorResponse{}))

	ws.Route(ws.PUT("/users/{id}").Consumes(restful.MIME_JSON).To(ctl.updateUserHandler).
		Doc("Change a user's role or active flag").
		Param(ws.PathParameter("id", "User id").DataType("integer")).
		Metadata(restfulspec.KeyOpenAPITags, tags).
		Reads(services.UpdateUserInput{}).
		Writes(UpdatedUserResponse{}).
		Returns(http.StatusOK, "User updated", UpdatedUserResponse{}).
		Returns(http.StatusBadRequest, "Invalid role or self-demotion", ErrorResponse{}).
		Returns(http.StatusNotFound, "User not found", ErrorResponse{}))

	ws.Route(ws.POST("/users/{id}/toggle-active").To(ctl.toggleActiveHandler).
		Doc("Flip a user's active flag").
		Param(ws.PathParameter("id", "User id").DataType("integer")).
		Metadata(restfulspec.KeyOpenAPITags, tags).
		Returns(http.StatusOK, "User updated", UpdatedUserResponse{}).
		Returns(http.StatusNotFound, "User not found", ErrorResponse{}))

	ws.Route(ws.GET("/users/{id}/audit").To(ctl.auditHandler).
		Doc("Role and status changes of a user, newest first").
		Param(ws.PathParameter("id", "User id").DataType("integer")).
		Metadata(restfulspec.KeyOpenAPITags, tags).
		Writes(AuditResponse{}).
		Returns(http.StatusOK, "OK", AuditResponse{}).
		Returns(http.StatusNotFound, "User not found", ErrorResponse{}))

	ws.Route(ws.DELETE("/trends/{id}").To(ctl.deleteTrendHandler).
		Doc("Delete a trend and its image").
		Param(ws.PathParameter("id", "Trend id").DataType("integer")).
		Metadata(restfulspec.KeyOpenAPITags, tags).
		Returns(http.StatusOK, "Trend deleted", MessageResponse{}).
		Returns(http.StatusNotFound, "Trend not found", ErrorResponse{}))

	ws.Route(ws.DELETE("/templates/{id}").To(ctl.deleteTemplateHandler).
		Doc("Delete a template and its image").
		Param(ws.PathParameter("id", "Template id").DataType("integer")).
		Metadata(restfulspec.KeyOpenAPITags, tags).
		Returns(http.StatusOK, "Template deleted", MessageResponse{}).
		Returns(http.StatusNotFound, "Template not found", ErrorResponse{}))
}

func (ctl *AdminController) statsHandler(req *restful.Request, resp *restful.Response) {
	stats, err := ctl.admin.Stats(req.Request.Context())
	if err != nil {
		ctl.errs.write(req, resp, err)
		return
	}
	writeJSON(resp, http.StatusOK, stats)
}

func (ctl *AdminController) listUsersHandler(req *restful.Request, resp *restful.Response) {
	page, err := ctl.admin.ListUsers(req.Request.Context(), req.QueryParameter("search"), queryInt(req, "page"), queryInt(req, "limit"))
	if err != nil {
		ctl.errs.write(req, resp, err)
		return
	}
	writeJSON(resp, http.StatusOK, UserListResponse{
		Users:       page.Items,
		TotalPages:  page.TotalPages,
		CurrentPage: page.CurrentPage,
		Total:       page.Total,
	})
}

func (ctl *AdminController) exportUsersHandler(req *restful.Request, resp *restful.Response) {
	// Buffered so a failure can still be reported as JSON.
	var buf bytes.Buffer
	if err := ctl.admin.ExportUsers(req.Request.Context(), &buf); err != nil {
		ctl.errs.write(req, resp, err)
		return
	}
	name := fmt.Sprintf("users-%s.xlsx", time.Now().UTC().Format(models.DayLayout))
	resp.Header().Set("Content-Type", xlsxMIME)
	resp.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	resp.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	resp.WriteHeader(http.StatusOK)
	_, _ = resp.Write(buf.Bytes())
}

func (ctl *AdminController) updateUserHandler(req *restful.Request, resp *restful.Response) {
	id, err := pathID(req, "id")
	if err != nil {
		ctl.errs.write(req, resp, err)
		return
	}
	input := new(services.UpdateUserInput)
	if err := req.ReadEntity(input); err != nil {
		writeJSON(resp, http.StatusBadRequest, ErrorResponse{Error: "Invalid request body"})
		return
	}
	actor, _ := auth.CurrentIdentity(req)
	user, err := ctl.admin.UpdateUser(req.Request.Context(), actor, id, input)
	if err != nil {
		ctl.errs.write(req, resp, err)
		return
	}
	writeJSON(resp, http.StatusOK, UpdatedUserResponse{Message: "User updated successfully", User: user})
}

func (ctl *AdminController) toggleActiveHandler(req *restful.Request, resp *restful.Response) {
	id, err := pathID(req, "id")
	if err != nil {
		ctl.errs.write(req, resp, err)
		return
	}
	actor, _ := auth.CurrentIdentity(req)
	user, err := ctl.admin.ToggleUserActive(req.Request.Context(), actor, id)
	if err != nil {
		ctl.errs.write(req, resp, err)
		return
	}
	msg := "User deactivated"
	if user.IsActive {
		msg = "User activated"
	}
	writeJSON(resp, http.StatusOK, UpdatedUserResponse{Message: msg, User: user})
}

func (ctl *AdminController) auditHandler(req *restful.Request, resp *restful.Response) {
	id, err := pathID(req, "id")
	if err != nil {
		ctl.errs.write(req, resp, err)
		return
	}
	entries, err := ctl.admin.UserAudit(req.Request.Context(), id)
	if err != nil {
		ctl.errs.write(req, resp, err)
		return
	}
	writeJSON(resp, http.StatusOK, AuditResponse{Entries: entries})
}

func (ctl *AdminController) deleteTrendHandler(req *restful.Request, resp *restful.Response) {
	id, err := pathID(req, "id")
	if err != nil {
		ctl.errs.write(req, resp, err)
		return
	}
	if err := ctl.trends.Delete(req.Request.Context(), id); err != nil {
		ctl.errs.write(req, resp, err)
		return
	}
	writeJSON(resp, http.StatusOK, MessageResponse{Message: "Trend deleted successfully"})
}

func (ctl *AdminController) deleteTemplateHandler(req *restful.Request, resp *restful.Response) {
	id, err := pathID(req, "id")
	if err != nil {
		ctl.errs.write(req, resp, err)
		return
	}
	if err := ctl.templates.Delete(req.Request.Context(), id); err != nil {
		ctl.errs.write(req, resp, err)
		return
	}
	writeJSON(resp, http.StatusOK, MessageResponse{Message: "Template deleted successfully"})
}
