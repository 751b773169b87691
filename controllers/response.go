package controllers

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"trendzn-restful/apperrors"
	"trendzn-restful/storage"

	restful "github.com/emicklei/go-restful/v3"
	"go.uber.org/zap"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

func writeJSON(resp *restful.Response, status int, body any) {
	_ = resp.WriteHeaderAndJson(status, body, restful.MIME_JSON)
}

// errorWriter maps service errors onto responses.
type errorWriter struct {
	log     *zap.Logger
	verbose bool
}

func (w errorWriter) write(req *restful.Request, resp *restful.Response, err error) {
	kind := apperrors.KindOf(err)
	if kind == apperrors.KindInternal {
		w.log.Error("Request failed",
			zap.String("method", req.Request.Method),
			zap.String("path", req.Request.URL.Path),
			zap.Error(err),
		)
	}
	writeJSON(resp, kind.HTTPStatus(), ErrorResponse{Error: apperrors.PublicMessage(err, w.verbose)})
}

func pathID(req *restful.Request, name string) (uint, error) {
	id, err := strconv.ParseUint(req.PathParameter(name), 10, 32)
	if err != nil || id == 0 {
		return 0, apperrors.Validation("Invalid id")
	}
	return uint(id), nil
}

// queryInt returns 0 for a missing or malformed value so paging falls back
// to its defaults.
func queryInt(req *restful.Request, name string) int {
	n, err := strconv.Atoi(req.QueryParameter(name))
	if err != nil {
		return 0
	}
	return n
}

func optionalID(value string) (*uint, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	id, err := strconv.ParseUint(value, 10, 32)
	if err != nil || id == 0 {
		return nil, apperrors.Validation("Invalid reference id")
	}
	v := uint(id)
	return &v, nil
}

func splitTags(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			tags = append(tags, p)
		}
	}
	return tags
}

// uploadForm parses a multipart body whose size is bounded by the upload
// limit plus room for the text fields.
type uploadForm struct {
	req      *restful.Request
	maxBytes int64
}

const formOverhead = 1 << 20

func parseUploadForm(req *restful.Request, resp *restful.Response, maxBytes int64) (*uploadForm, error) {
	req.Request.Body = http.MaxBytesReader(resp.ResponseWriter, req.Request.Body, maxBytes+formOverhead)
	if err := req.Request.ParseMultipartForm(maxBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, apperrors.Validation("File too large")
		}
		return nil, apperrors.Validation("Invalid multipart form")
	}
	return &uploadForm{req: req, maxBytes: maxBytes}, nil
}

func (f *uploadForm) value(name string) string {
	return f.req.Request.FormValue(name)
}

// image returns nil when the field carries no file.
func (f *uploadForm) image(field string) (*storage.Image, error) {
	file, header, err := f.req.Request.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.Validation("Invalid file upload")
	}
	defer func(file multipart.File) { _ = file.Close() }(file)
	return storage.PrepareImage(field, header.Filename, file, f.maxBytes)
}
