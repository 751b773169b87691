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

type AuthController struct {
	auth    services.AuthService
	tokens  *auth.TokenService
	limiter restful.FilterFunction
	metrics *metrics.Metrics
	errs    errorWriter
}

// AuthResponse is returned by register and login.
type AuthResponse struct {
	Message string       `json:"message"`
	Token   string       `json:"token"`
	User    *models.User `json:"user"`
}

type UserResponse struct {
	User *models.User `json:"user"`
}

func newAuthController(opts *Options) *AuthController {
	return &AuthController{
		auth:    opts.Auth,
		tokens:  opts.Tokens,
		limiter: opts.AuthLimiter,
		metrics: opts.Metrics,
		errs:    opts.errorWriter(),
	}
}

func (ctl *AuthController) RegisterRoutes(ws *restful.WebService) {
	ws.Path("/api/auth").Consumes(restful.MIME_JSON).Produces(restful.MIME_JSON)
	tags := []string{"auth"}

	register := ws.POST("/register").To(ctl.registerHandler).
		Doc("Register a new user").
		Metadata(restfulspec.KeyOpenAPITags, tags).
		Reads(services.RegisterInput{}).
		Returns(http.StatusCreated, "User created", AuthResponse{}).
		Returns(http.StatusBadRequest, "Missing fields or user already exists", ErrorResponse{}).
		Returns(http.StatusTooManyRequests, "Rate limited", ErrorResponse{})
	login := ws.POST("/login").To(ctl.loginHandler).
		Doc("Log in with e-mail and password").
		Metadata(restfulspec.KeyOpenAPITags, tags).
		Reads(services.LoginInput{}).
		Returns(http.StatusOK, "Login successful", AuthResponse{}).
		Returns(http.StatusBadRequest, "Invalid credentials", ErrorResponse{}).
		Returns(http.StatusForbidden, "Account is disabled", ErrorResponse{}).
		Returns(http.StatusTooManyRequests, "Rate limited", ErrorResponse{})
	if ctl.limiter != nil {
		register.Filter(ctl.limiter)
		login.Filter(ctl.limiter)
	}
	ws.Route(register)
	ws.Route(login)

	ws.Route(ws.GET("/verify").Filter(ctl.tokens.AuthFilter()).To(ctl.verifyHandler).
		Doc("Resolve the current user from the bearer token").
		Metadata(restfulspec.KeyOpenAPITags, tags).
		Writes(UserResponse{}).
		Returns(http.StatusOK, "Token is valid", UserResponse{}).
		Returns(http.StatusUnauthorized, "Missing, invalid or revoked token", ErrorResponse{}))
}

func (ctl *AuthController) registerHandler(req *restful.Request, resp *restful.Response) {
	input := new(services.RegisterInput)
	if err := req.ReadEntity(input); err != nil {
		writeJSON(resp, http.StatusBadRequest, ErrorResponse{Error: "Invalid request body"})
		return
	}
	result, err := ctl.auth.Register(req.Request.Context(), input)
	ctl.metrics.RecordAuth("register", err)
	if err != nil {
		ctl.errs.write(req, resp, err)
		return
	}
	writeJSON(resp, http.StatusCreated, AuthResponse{Message: "User created successfully", Token: result.Token, User: result.User})
}

func (ctl *AuthController) loginHandler(req *restful.Request, resp *restful.Response) {
	input := new(services.LoginInput)
	if err := req.ReadEntity(input); err != nil {
		writeJSON(resp, http.StatusBadRequest, ErrorResponse{Error: "Invalid request body"})
		return
	}
	result, err := ctl.auth.Login(req.Request.Context(), input)
	ctl.metrics.RecordAuth("login", err)
	if err != nil {
		ctl.errs.write(req, resp, err)
		return
	}
	writeJSON(resp, http.StatusOK, AuthResponse{Message: "Login successful", Token: result.Token, User: result.User})
}

func (ctl *AuthController) verifyHandler(req *restful.Request, resp *restful.Response) {
	id, _ := auth.CurrentIdentity(req)
	user, err := ctl.auth.CurrentUser(req.Request.Context(), id)
	if err != nil {
		ctl.errs.write(req, resp, err)
		return
	}
	writeJSON(resp, http.StatusOK, UserResponse{User: user})
}
