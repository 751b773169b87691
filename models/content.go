package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

const (
	StatusTrending = "trending"
	StatusViral    = "viral"
	StatusHot      = "hot"
	StatusRising   = "rising"
)

func ValidTrendStatus(status string) bool {
	switch status {
	case StatusTrending, StatusViral, StatusHot, StatusRising:
		return true
	}
	return false
}

const DefaultTemplateIcon = "🎭"

// TagSeparator delimits tags in the lower-cased search column. It cannot
// appear inside a tag.
const TagSeparator = "\x1f"

// TagIndex renders tags as "\x1fa\x1fb\x1f" so a LIKE on the column only
// matches text inside tags.
func TagIndex(tags []string) string {
	if len(tags) == 0 {
		return ""
	}
	return TagSeparator + strings.ToLower(strings.Join(tags, TagSeparator)) + TagSeparator
}

type Trend struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Title       string    `gorm:"size:255;not null" json:"title"`
	Description string    `gorm:"type:text;not null" json:"description"`
	Category    string    `gorm:"size:64;not null;index" json:"category"`
	ImageURL    string    `json:"imageUrl"`
	ImageKey    string    `json:"-"`
	Views       int64     `gorm:"not null;default:0" json:"views"`
	Shares      int64     `gorm:"not null;default:0" json:"shares"`
	MemeScore   float64   `gorm:"not null;default:0" json:"memeScore"`
	Status      string    `gorm:"size:16;not null;index" json:"status"`
	Tags        []string  `gorm:"serializer:json;type:text" json:"tags"`
	TagIndex    string    `gorm:"type:text" json:"-"`
	CreatedByID uint      `gorm:"index" json:"createdById"`
	CreatedBy   *Author   `gorm:"foreignKey:CreatedByID" json:"createdBy,omitempty"`
	CreatedAt   time.Time `gorm:"index" json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func (t *Trend) BeforeSave(*gorm.DB) error {
	t.TagIndex = TagIndex(t.Tags)
	return nil
}

type Template struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"size:255;not null" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	Category    string    `gorm:"size:64;not null;index" json:"category"`
	ImageURL    string    `gorm:"not null" json:"imageUrl"`
	ImageKey    string    `json:"-"`
	Icon        string    `gorm:"size:16" json:"icon"`
	Uses        int64     `gorm:"not null;default:0" json:"uses"`
	Rating      float64   `gorm:"not null;default:0" json:"rating"`
	Tags        []string  `gorm:"serializer:json;type:text" json:"tags"`
	TagIndex    string    `gorm:"type:text" json:"-"`
	IsPopular   bool      `gorm:"not null;index" json:"isPopular"`
	CreatedByID uint      `gorm:"index" json:"createdById"`
	CreatedBy   *Author   `gorm:"foreignKey:CreatedByID" json:"createdBy,omitempty"`
	CreatedAt   time.Time `gorm:"index" json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func (t *Template) BeforeSave(*gorm.DB) error {
	t.TagIndex = TagIndex(t.Tags)
	return nil
}

type Meme struct {
	ID          uint         `gorm:"primaryKey" json:"id"`
	Title       string       `gorm:"size:255;not null" json:"title"`
	ImageURL    string       `gorm:"not null" json:"imageUrl"`
	ImageKey    string       `json:"-"`
	TemplateID  *uint        `gorm:"index" json:"templateId,omitempty"`
	Template    *TemplateRef `gorm:"foreignKey:TemplateID" json:"template,omitempty"`
	TrendID     *uint        `gorm:"index" json:"trendId,omitempty"`
	Trend       *TrendRef    `gorm:"foreignKey:TrendID" json:"trend,omitempty"`
	CreatedByID uint         `gorm:"index;not null" json:"createdById"`
	Views       int64        `gorm:"not null;default:0" json:"views"`
	Likes       int64        `gorm:"not null;default:0" json:"likes"`
	Shares      int64        `gorm:"not null;default:0" json:"shares"`
	IsPublic    bool         `gorm:"not null" json:"isPublic"`
	CreatedAt   time.Time    `gorm:"index" json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

type TemplateRef struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
	Icon string `json:"icon"`
}

func (TemplateRef) TableName() string { return "templates" }

type TrendRef struct {
	ID    uint   `json:"id"`
	Title string `json:"title"`
}

func (TrendRef) TableName() string { return "trends" }

// AnalyticsSnapshot holds the platform totals for one calendar day (UTC).
type AnalyticsSnapshot struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	Day            string    `gorm:"uniqueIndex;size:10;not null" json:"date"`
	TotalUsers     int64     `json:"totalUsers"`
	TotalTrends    int64     `json:"totalTrends"`
	TotalTemplates int64     `json:"totalTemplates"`
	TotalMemes     int64     `json:"totalMemes"`
	TotalViews     int64     `json:"totalViews"`
	TotalShares    int64     `json:"totalShares"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

const DayLayout = "2006-01-02"

// AllModels lists every model migrated at startup.
func AllModels() []any {
	return []any{
		&User{},
		&UserAudit{},
		&Trend{},
		&Template{},
		&Meme{},
		&AnalyticsSnapshot{},
	}
}
