package controllers

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"trendzn-restful/auth"
	"trendzn-restful/metrics"
	"trendzn-restful/services"

	restfulspec "github.com/emicklei/go-restful-openapi/v2"
	restful "github.com/emicklei/go-restful/v3"
	"github.com/go-openapi/spec"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Options carries everything the HTTP layer depends on.
type Options struct {
	Tokens    *auth.TokenService
	Auth      services.AuthService
	Trends    services.TrendService
	Templates services.TemplateService
	Memes     services.MemeService
	Admin     services.AdminService
	Analytics services.AnalyticsService
	Search    services.SearchService

	// MaxUploadBytes bounds a single image upload.
	MaxUploadBytes int64
	// UploadDir is served under /uploads/ when set (local image store).
	UploadDir string
	// Verbose exposes internal error messages to clients.
	Verbose bool
	// AuthLimiter, when set, guards register and login.
	AuthLimiter restful.FilterFunction
	// Metrics defaults to a fresh registry.
	Metrics *metrics.Metrics
	Log     *zap.Logger
	Started time.Time
}

func (o *Options) errorWriter() errorWriter {
	return errorWriter{log: o.Log, verbose: o.Verbose}
}

const requestIDHeader = "X-Request-ID"

// NewContainer builds the go-restful container serving the whole API.
func NewContainer(opts Options) *restful.Container {
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.New(prometheus.NewRegistry())
	}
	if opts.Started.IsZero() {
		opts.Started = time.Now()
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 10 << 20
	}
	log := opts.Log.Named("http")

	c := restful.NewContainer()
	c.Router(restful.CurlyRouter{})
	c.DoNotRecover(false)
	c.RecoverHandler(recoverHandler(log))
	c.ServiceErrorHandler(serviceErrorHandler)
	c.Filter(requestIDFilter)
	c.Filter(accessLog(log))
	c.Filter(opts.Metrics.Filter())

	routes := []interface{ RegisterRoutes(*restful.WebService) }{
		newAuthController(&opts),
		newTrendController(&opts),
		newTemplateController(&opts),
		newMemeController(&opts),
		newAdminController(&opts),
		newAnalyticsController(&opts),
		newSearchController(&opts),
		&HealthController{started: opts.Started},
	}
	for _, ctl := range routes {
		ws := new(restful.WebService)
		ctl.RegisterRoutes(ws)
		c.Add(ws)
	}

	c.Add(restfulspec.NewOpenAPIService(restfulspec.Config{
		WebServices:                   c.RegisteredWebServices(),
		APIPath:                       "/apidocs.json",
		PostBuildSwaggerObjectHandler: enrichSwaggerObject,
	}))

	c.Handle("/metrics", opts.Metrics.Handler())
	if opts.UploadDir != "" {
		c.Handle("/uploads/", http.StripPrefix("/uploads/", http.FileServer(http.Dir(opts.UploadDir))))
	}
	return c
}

func enrichSwaggerObject(swo *spec.Swagger) {
	swo.Info = &spec.Info{
		InfoProps: spec.InfoProps{
			Title:       "TrendzN API",
			Description: "Trends, meme templates and user memes",
			Version:     "1.0.0",
		},
	}
	swo.SecurityDefinitions = spec.SecurityDefinitions{
		"bearer": spec.APIKeyAuth("Authorization", "header"),
	}
	swo.Tags = []spec.Tag{
		{TagProps: spec.TagProps{Name: "auth", Description: "Registration, login and token verification"}},
		{TagProps: spec.TagProps{Name: "trends", Description: "Trending topics"}},
		{TagProps: spec.TagProps{Name: "templates", Description: "Meme templates"}},
		{TagProps: spec.TagProps{Name: "memes", Description: "The caller's memes"}},
		{TagProps: spec.TagProps{Name: "admin", Description: "Administrator dashboard"}},
		{TagProps: spec.TagProps{Name: "analytics", Description: "Daily platform snapshots"}},
	}
}

func requestIDFilter(req *restful.Request, resp *restful.Response, chain *restful.FilterChain) {
	id := req.HeaderParameter(requestIDHeader)
	if id == "" {
		id = uuid.NewString()
	}
	resp.Header().Set(requestIDHeader, id)
	chain.ProcessFilter(req, resp)
}

func accessLog(log *zap.Logger) restful.FilterFunction {
	return func(req *restful.Request, resp *restful.Response, chain *restful.FilterChain) {
		startTime := time.Now()

		chain.ProcessFilter(req, resp)

		log.Info("Request",
			zap.String("client_ip", req.Request.RemoteAddr),
			zap.String("method", req.Request.Method),
			zap.String("path", req.Request.URL.Path),
			zap.String("route", req.SelectedRoutePath()),
			zap.Int("status_code", resp.StatusCode()),
			zap.Duration("latency", time.Since(startTime)),
			zap.String("user_agent", req.Request.UserAgent()),
			zap.String("request_id", resp.Header().Get(requestIDHeader)),
		)
	}
}

func recoverHandler(log *zap.Logger) restful.RecoverHandleFunction {
	return func(reason interface{}, w http.ResponseWriter) {
		log.Error("Recovered from panic",
			zap.String("reason", fmt.Sprint(reason)),
			zap.ByteString("stack", debug.Stack()),
		)
		w.Header().Set("Content-Type", restful.MIME_JSON)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"Internal server error"}`))
	}
}

// serviceErrorHandler renders routing failures (404, 405, 406, 415) in the
// API's error format.
func serviceErrorHandler(serr restful.ServiceError, req *restful.Request, resp *restful.Response) {
	msg := serr.Message
	if serr.Code == http.StatusNotFound {
		msg = "Route not found"
	}
	writeJSON(resp, serr.Code, ErrorResponse{Error: msg})
}
