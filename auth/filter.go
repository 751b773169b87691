package auth

import (
	"context"
	"net/http"
	"strings"

	restful "github.com/emicklei/go-restful/v3"
)

type contextKey string

const identityKey contextKey = "identity"

// identityAttribute is the go-restful request attribute holding the Identity.
const identityAttribute = "identity"

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// FromContext returns the identity stored by the auth filters.
func FromContext(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(identityKey).(*Identity)
	return id, ok && id != nil
}

// CurrentIdentity returns the identity attached to a go-restful request.
func CurrentIdentity(req *restful.Request) (*Identity, bool) {
	id, ok := req.Attribute(identityAttribute).(*Identity)
	return id, ok && id != nil
}

func writeError(resp *restful.Response, status int, msg string) {
	_ = resp.WriteHeaderAndJson(status, map[string]string{"error": msg}, restful.MIME_JSON)
}

// BearerToken extracts the token from an "Authorization: Bearer <token>"
// header value. The scheme is matched case-insensitively.
func BearerToken(header string) (string, bool) {
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	return parts[1], true
}

func attach(req *restful.Request, id *Identity) {
	req.SetAttribute(identityAttribute, id)
	req.Request = req.Request.WithContext(WithIdentity(req.Request.Context(), id))
}

// AuthFilter rejects requests without a valid bearer token.
func (s *TokenService) AuthFilter() restful.FilterFunction {
	return func(req *restful.Request, resp *restful.Response, chain *restful.FilterChain) {
		header := req.HeaderParameter("Authorization")
		if header == "" {
			writeError(resp, http.StatusUnauthorized, "Access token required")
			return
		}
		token, ok := BearerToken(header)
		if !ok {
			writeError(resp, http.StatusUnauthorized, "Invalid token")
			return
		}
		id, err := s.Verify(token)
		if err != nil {
			writeError(resp, http.StatusUnauthorized, "Invalid token")
			return
		}

		attach(req, id)
		chain.ProcessFilter(req, resp)
	}
}

// OptionalAuthFilter attaches an identity when a token is present and
// proceeds anonymously otherwise. A present but invalid token is rejected.
func (s *TokenService) OptionalAuthFilter() restful.FilterFunction {
	return func(req *restful.Request, resp *restful.Response, chain *restful.FilterChain) {
		header := req.HeaderParameter("Authorization")
		if header == "" {
			chain.ProcessFilter(req, resp)
			return
		}
		token, ok := BearerToken(header)
		if !ok {
			writeError(resp, http.StatusUnauthorized, "Invalid token")
			return
		}
		id, err := s.Verify(token)
		if err != nil {
			writeError(resp, http.StatusUnauthorized, "Invalid token")
			return
		}
		attach(req, id)
		chain.ProcessFilter(req, resp)
	}
}

// RequireRole only lets callers with the given role through. It must run
// after AuthFilter.
func RequireRole(role string) restful.FilterFunction {
	return func(req *restful.Request, resp *restful.Response, chain *restful.FilterChain) {
		id, ok := CurrentIdentity(req)
		if !ok {
			writeError(resp, http.StatusUnauthorized, "Access token required")
			return
		}
		if id.Role != role {
			writeError(resp, http.StatusForbidden, strings.ToUpper(role[:1])+role[1:]+" access required")
			return
		}
		chain.ProcessFilter(req, resp)
	}
}
