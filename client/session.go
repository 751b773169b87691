// Package client is a Go client for the TrendzN API that keeps the signed-in
// user and bearer token for the lifetime of a session.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"trendzn-restful/models"
	"trendzn-restful/services"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// APIError is a non-2xx response from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("trendzn: %d %s", e.Status, e.Message)
}

// IsUnauthorized reports whether err is a 401 or 403 from the server.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && (apiErr.Status == http.StatusUnauthorized || apiErr.Status == http.StatusForbidden)
}

type Session struct {
	baseURL string
	http    *http.Client
	tokens  TokenStore
	log     *zap.Logger

	mu   sync.RWMutex
	user *models.User
}

// NewSession talks to the API rooted at baseURL, e.g. "http://localhost:5000/api".
func NewSession(baseURL string, tokens TokenStore, httpClient *http.Client, log *zap.Logger) *Session {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if tokens == nil {
		tokens = NewMemoryTokenStore()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Session{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		tokens:  tokens,
		log:     log.Named("client"),
	}
}

// CurrentUser returns a copy of the signed-in user, or nil.
func (s *Session) CurrentUser() *models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

func (s *Session) IsAdmin() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user != nil && s.user.Role == models.RoleAdmin
}

func (s *Session) setUser(u *models.User) {
	s.mu.Lock()
	s.user = u
	s.mu.Unlock()
}

func (s *Session) clear() {
	s.setUser(nil)
	if err := s.tokens.Clear(); err != nil {
		s.log.Warn("Failed to clear stored token", zap.Error(err))
	}
}

type authResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// Hydrate restores the session from the stored token. Any verification
// failure signs the session out.
func (s *Session) Hydrate(ctx context.Context) error {
	token, err := s.tokens.Load()
	if err != nil {
		return err
	}
	if token == "" {
		s.setUser(nil)
		return nil
	}

	var out struct {
		User *models.User `json:"user"`
	}
	if err := s.Do(ctx, http.MethodGet, "/auth/verify", nil, &out); err != nil {
		s.log.Info("Stored token rejected", zap.Error(err))
		s.clear()
		return err
	}
	if out.User == nil {
		s.clear()
		return errors.New("trendzn: verify response carried no user")
	}
	s.setUser(out.User)
	return nil
}

func (s *Session) Login(ctx context.Context, email, password string) (*models.User, error) {
	return s.authenticate(ctx, "/auth/login", map[string]string{"email": email, "password": password})
}

func (s *Session) Register(ctx context.Context, username, email, password string) (*models.User, error) {
	return s.authenticate(ctx, "/auth/register", map[string]string{"username": username, "email": email, "password": password})
}

func (s *Session) authenticate(ctx context.Context, path string, body any) (*models.User, error) {
	var out authResponse
	if err := s.Do(ctx, http.MethodPost, path, body, &out); err != nil {
		return nil, err
	}
	if out.Token == "" || out.User == nil {
		return nil, errors.New("trendzn: auth response carried no token")
	}
	if err := s.tokens.Save(out.Token); err != nil {
		return nil, err
	}
	s.setUser(out.User)
	return s.CurrentUser(), nil
}

func (s *Session) Logout() error {
	s.setUser(nil)
	return s.tokens.Clear()
}

// Do sends a JSON request with the stored token attached and decodes a 2xx
// body into out. A 401 or 403 response signs the session out.
func (s *Session) Do(ctx context.Context, method, path string, body, out any) error {
	if body == nil {
		return s.send(ctx, method, path, nil, "", out)
	}
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}
	return s.send(ctx, method, path, bytes.NewReader(data), "application/json", out)
}

func (s *Session) send(ctx context.Context, method, path string, body io.Reader, contentType string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	token, err := s.tokens.Load()
	if err != nil {
		return err
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		var payload struct {
			Error string `json:"error"`
		}
		if json.NewDecoder(resp.Body).Decode(&payload) == nil && payload.Error != "" {
			apiErr.Message = payload.Error
		}
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			s.clear()
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s %s: %w", method, path, err)
	}
	return nil
}

type TrendQuery struct {
	Category string
	Status   string
	Page     int
	Limit    int
}

func pageValues(page, limit int) url.Values {
	v := url.Values{}
	if page > 0 {
		v.Set("page", strconv.Itoa(page))
	}
	if limit > 0 {
		v.Set("limit", strconv.Itoa(limit))
	}
	return v
}

func withQuery(path string, v url.Values) string {
	if len(v) == 0 {
		return path
	}
	return path + "?" + v.Encode()
}

func (s *Session) Trends(ctx context.Context, q TrendQuery) Result[[]models.Trend] {
	v := pageValues(q.Page, q.Limit)
	if q.Category != "" {
		v.Set("category", q.Category)
	}
	if q.Status != "" {
		v.Set("status", q.Status)
	}
	var out struct {
		Trends []models.Trend `json:"trends"`
	}
	err := s.Do(ctx, http.MethodGet, withQuery("/trends", v), nil, &out)
	return Result[[]models.Trend]{Data: out.Trends, Err: err}
}

// Templates lists templates; category "popular" sorts by usage.
func (s *Session) Templates(ctx context.Context, category string, page, limit int) Result[[]models.Template] {
	v := pageValues(page, limit)
	if category != "" {
		v.Set("category", category)
	}
	var out struct {
		Templates []models.Template `json:"templates"`
	}
	err := s.Do(ctx, http.MethodGet, withQuery("/templates", v), nil, &out)
	return Result[[]models.Template]{Data: out.Templates, Err: err}
}

func (s *Session) MyMemes(ctx context.Context, page, limit int) Result[[]models.Meme] {
	var out struct {
		Memes []models.Meme `json:"memes"`
	}
	err := s.Do(ctx, http.MethodGet, withQuery("/memes", pageValues(page, limit)), nil, &out)
	return Result[[]models.Meme]{Data: out.Memes, Err: err}
}

func (s *Session) RecordView(ctx context.Context, trendID uint) (int64, error) {
	var out struct {
		Views int64 `json:"views"`
	}
	err := s.Do(ctx, http.MethodPost, fmt.Sprintf("/trends/%d/view", trendID), nil, &out)
	return out.Views, err
}

func (s *Session) UseTemplate(ctx context.Context, templateID uint) (int64, error) {
	var out struct {
		Uses int64 `json:"uses"`
	}
	err := s.Do(ctx, http.MethodPost, fmt.Sprintf("/templates/%d/use", templateID), nil, &out)
	return out.Uses, err
}

// SaveMeme uploads a rendered meme. templateID and trendID are optional;
// zero leaves them unset.
func (s *Session) SaveMeme(ctx context.Context, title string, templateID, trendID uint, filename string, image io.Reader) (*models.Meme, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := w.WriteField("title", title); err != nil {
		return nil, err
	}
	if templateID != 0 {
		if err := w.WriteField("templateId", strconv.FormatUint(uint64(templateID), 10)); err != nil {
			return nil, err
		}
	}
	if trendID != 0 {
		if err := w.WriteField("trendId", strconv.FormatUint(uint64(trendID), 10)); err != nil {
			return nil, err
		}
	}
	part, err := w.CreateFormFile("image", filename)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, image); err != nil {
		return nil, fmt.Errorf("reading image: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	var out struct {
		Meme *models.Meme `json:"meme"`
	}
	if err := s.send(ctx, http.MethodPost, "/memes", &buf, w.FormDataContentType(), &out); err != nil {
		return nil, err
	}
	return out.Meme, nil
}

type SearchResult struct {
	Trends    []models.Trend    `json:"trends"`
	Templates []models.Template `json:"templates"`
}

// Search matches q against trends and templates. kind may be "", "trends"
// or "templates".
func (s *Session) Search(ctx context.Context, q, kind string) (*SearchResult, error) {
	v := url.Values{"q": {q}}
	if kind != "" {
		v.Set("type", kind)
	}
	var out SearchResult
	if err := s.Do(ctx, http.MethodGet, withQuery("/search", v), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Home is the first screen: trending topics and popular templates.
type Home struct {
	Trends    Result[[]models.Trend]
	Templates Result[[]models.Template]
}

// LoadHome hydrates the session and then fetches trends and popular
// templates concurrently. Failed lists fall back to the bundled samples.
func (s *Session) LoadHome(ctx context.Context) *Home {
	if err := s.Hydrate(ctx); err != nil {
		s.log.Debug("Continuing signed out", zap.Error(err))
	}

	var home Home
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		home.Trends = WithPlaceholder(s.Trends(gctx, TrendQuery{Limit: 6}), SampleTrends)
		return nil
	})
	g.Go(func() error {
		home.Templates = WithPlaceholder(s.Templates(gctx, "popular", 1, 8), SampleTemplates)
		return nil
	})
	_ = g.Wait()
	return &home
}

func (s *Session) AdminStats(ctx context.Context) (*services.DashboardStats, error) {
	var out services.DashboardStats
	if err := s.Do(ctx, http.MethodGet, "/admin/stats", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UserPage is one page of the admin user list.
type UserPage struct {
	Users       []models.User `json:"users"`
	TotalPages  int           `json:"totalPages"`
	CurrentPage int           `json:"currentPage"`
	Total       int64         `json:"total"`
}

func (s *Session) ListUsers(ctx context.Context, search string, page, limit int) (*UserPage, error) {
	v := pageValues(page, limit)
	if search != "" {
		v.Set("search", search)
	}
	var out UserPage
	if err := s.Do(ctx, http.MethodGet, withQuery("/admin/users", v), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateUser changes a user's role and/or active flag; nil leaves the field
// as it is.
func (s *Session) UpdateUser(ctx context.Context, id uint, role *string, isActive *bool) (*models.User, error) {
	return s.adminUser(ctx, http.MethodPut, fmt.Sprintf("/admin/users/%d", id), services.UpdateUserInput{Role: role, IsActive: isActive})
}

func (s *Session) ToggleUserActive(ctx context.Context, id uint) (*models.User, error) {
	return s.adminUser(ctx, http.MethodPost, fmt.Sprintf("/admin/users/%d/toggle-active", id), nil)
}

func (s *Session) adminUser(ctx context.Context, method, path string, body any) (*models.User, error) {
	var out struct {
		User *models.User `json:"user"`
	}
	if err := s.Do(ctx, method, path, body, &out); err != nil {
		return nil, err
	}
	return out.User, nil
}
