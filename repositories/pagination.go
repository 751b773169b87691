package repositories

import (
	"strings"
	"time"

	"trendzn-restful/models"

	"gorm.io/gorm"
)

var newestFirst = []string{"created_at DESC", "id DESC"}

// Page selects a window of a list. Number is 1-based.
type Page struct {
	Number int
	Size   int
}

func (p Page) Offset() int {
	if p.Number < 1 {
		return 0
	}
	return (p.Number - 1) * p.Size
}

// findPage counts the rows matched by query and loads the requested window
// in the given order with the named associations preloaded. Every order must
// end on a unique column so that pages never overlap.
func findPage(query *gorm.DB, page Page, dest any, orders []string, preloads ...string) (int64, error) {
	base := query.Session(&gorm.Session{})

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return 0, err
	}

	find := base
	for _, o := range orders {
		find = find.Order(o)
	}
	for _, p := range preloads {
		find = find.Preload(p)
	}
	if err := find.Offset(page.Offset()).Limit(page.Size).Find(dest).Error; err != nil {
		return 0, err
	}
	return total, nil
}

// likePattern builds a case-insensitive substring pattern escaped with '!'.
func likePattern(s string) string {
	r := strings.NewReplacer("!", "!!", "%", "!%", "_", "!_", models.TagSeparator, "")
	return "%" + r.Replace(strings.ToLower(s)) + "%"
}

func createdBefore(query *gorm.DB, before time.Time) *gorm.DB {
	if before.IsZero() {
		return query
	}
	return query.Where("created_at < ?", before)
}
