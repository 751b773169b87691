package services

import (
	"context"
	"strings"

	"trendzn-restful/apperrors"
	"trendzn-restful/models"
	"trendzn-restful/repositories"
)

type SearchService interface {
	Search(ctx context.Context, q, kind string) (*SearchResult, error)
}

const (
	SearchAll       = "all"
	SearchTrends    = "trends"
	SearchTemplates = "templates"

	searchLimit = 5
)

// SearchResult leaves a list nil when its kind was not searched.
type SearchResult struct {
	Trends    []models.Trend
	Templates []models.Template
}

type searchService struct {
	trends    repositories.TrendRepository
	templates repositories.TemplateRepository
}

var _ SearchService = (*searchService)(nil)

func NewSearchService(trends repositories.TrendRepository, templates repositories.TemplateRepository) SearchService {
	return &searchService{trends: trends, templates: templates}
}

func (s *searchService) Search(ctx context.Context, q, kind string) (*SearchResult, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, apperrors.Validation("Search query is required")
	}
	if kind == "" {
		kind = SearchAll
	}
	if kind != SearchAll && kind != SearchTrends && kind != SearchTemplates {
		return nil, apperrors.Validation("type must be one of all, trends, templates")
	}

	result := &SearchResult{}
	if kind == SearchAll || kind == SearchTrends {
		trends, err := s.trends.Search(ctx, q, searchLimit)
		if err != nil {
			return nil, apperrors.Internal("searching trends", err)
		}
		result.Trends = append([]models.Trend{}, trends...)
	}
	if kind == SearchAll || kind == SearchTemplates {
		templates, err := s.templates.Search(ctx, q, searchLimit)
		if err != nil {
			return nil, apperrors.Internal("searching templates", err)
		}
		result.Templates = append([]models.Template{}, templates...)
	}
	return result, nil
}
