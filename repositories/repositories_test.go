package repositories

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"trendzn-restful/config"
	"trendzn-restful/database"
	"trendzn-restful/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Open(config.DatabaseConfig{
		Driver: "sqlite",
		DSN:    filepath.Join(t.TempDir(), "repo.db"),
	}, zap.NewNop())
	require.NoError(t, err)
	return db
}

func seedUser(t *testing.T, db *gorm.DB, name string) *models.User {
	t.Helper()
	u := &models.User{Username: name, Email: name + "@example.com", Password: "x", Role: models.RoleUser, IsActive: true}
	require.NoError(t, db.Create(u).Error)
	return u
}

func TestTrendPagesDoNotOverlap(t *testing.T) {
	db := setupTestDB(t)
	repo := NewTrendRepository(db)
	ctx := context.Background()
	owner := seedUser(t, db, "owner")

	// Identical timestamps force the id tie-break.
	ts := time.Now()
	for i := 0; i < 25; i++ {
		trend := &models.Trend{
			Title: fmt.Sprintf("trend %d", i), Description: "d", Category: "funny",
			Status: models.StatusTrending, CreatedByID: owner.ID, CreatedAt: ts,
		}
		require.NoError(t, repo.Create(ctx, trend))
	}

	seen := map[uint]bool{}
	for p := 1; p <= 3; p++ {
		items, total, err := repo.List(ctx, TrendFilter{}, Page{Number: p, Size: 10})
		require.NoError(t, err)
		assert.Equal(t, int64(25), total)
		for _, it := range items {
			assert.False(t, seen[it.ID], "trend %d returned twice", it.ID)
			seen[it.ID] = true
			require.NotNil(t, it.CreatedBy)
			assert.Equal(t, "owner", it.CreatedBy.Username)
		}
	}
	assert.Len(t, seen, 25)
}

func TestTrendFilters(t *testing.T) {
	db := setupTestDB(t)
	repo := NewTrendRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &models.Trend{Title: "a", Description: "d", Category: "funny", Status: models.StatusViral}))
	require.NoError(t, repo.Create(ctx, &models.Trend{Title: "b", Description: "d", Category: "funny", Status: models.StatusHot}))
	require.NoError(t, repo.Create(ctx, &models.Trend{Title: "c", Description: "d", Category: "sports", Status: models.StatusViral}))

	items, total, err := repo.List(ctx, TrendFilter{Category: "funny"}, Page{Number: 1, Size: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, items, 2)

	n, err := repo.Count(ctx, TrendFilter{Status: models.StatusViral})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	items, total, err = repo.List(ctx, TrendFilter{Category: "gaming"}, Page{Number: 1, Size: 10})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, items)
}

func TestConcurrentIncrementsAreExact(t *testing.T) {
	db := setupTestDB(t)
	trends := NewTrendRepository(db)
	templates := NewTemplateRepository(db)
	ctx := context.Background()

	trend := &models.Trend{Title: "t", Description: "d", Category: "c", Status: models.StatusTrending, Views: 3}
	require.NoError(t, trends.Create(ctx, trend))
	tpl := &models.Template{Name: "drake", Category: "classic", ImageURL: "/uploads/x.png"}
	require.NoError(t, templates.Create(ctx, tpl))

	const n = 25
	var wg sync.WaitGroup
	errs := make(chan error, 2*n)
	for i := 0; i < n; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := trends.IncrementViews(ctx, trend.ID)
			errs <- err
		}()
		go func() {
			defer wg.Done()
			_, err := templates.IncrementUses(ctx, tpl.ID)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	got, err := trends.FindByID(ctx, trend.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3+n), got.Views)

	gotTpl, err := templates.FindByID(ctx, tpl.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(n), gotTpl.Uses)
}

func TestIncrementMissingRow(t *testing.T) {
	db := setupTestDB(t)
	_, err := NewTrendRepository(db).IncrementViews(context.Background(), 404)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	_, err = NewTemplateRepository(db).IncrementUses(context.Background(), 404)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestIncrementReturnsNewValue(t *testing.T) {
	db := setupTestDB(t)
	repo := NewTrendRepository(db)
	ctx := context.Background()
	trend := &models.Trend{Title: "t", Description: "d", Category: "c", Status: models.StatusTrending, Views: 41}
	require.NoError(t, repo.Create(ctx, trend))

	v, err := repo.IncrementViews(ctx, trend.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(42), v)
}

func TestTemplatePopularitySort(t *testing.T) {
	db := setupTestDB(t)
	repo := NewTemplateRepository(db)
	ctx := context.Background()

	for _, tpl := range []models.Template{
		{Name: "low", Category: "a", ImageURL: "u", Uses: 1, Rating: 5},
		{Name: "top", Category: "b", ImageURL: "u", Uses: 10, Rating: 1},
		{Name: "mid-better", Category: "a", ImageURL: "u", Uses: 5, Rating: 4.5},
		{Name: "mid", Category: "a", ImageURL: "u", Uses: 5, Rating: 3},
	} {
		tpl := tpl
		require.NoError(t, repo.Create(ctx, &tpl))
	}

	items, _, err := repo.List(ctx, TemplateFilter{SortByPopularity: true}, Page{Number: 1, Size: 10})
	require.NoError(t, err)
	require.Len(t, items, 4)
	names := []string{items[0].Name, items[1].Name, items[2].Name, items[3].Name}
	assert.Equal(t, []string{"top", "mid-better", "mid", "low"}, names)
}

func TestSearchEscapesWildcards(t *testing.T) {
	db := setupTestDB(t)
	repo := NewTrendRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &models.Trend{Title: "100% Distracted Boyfriend", Description: "d", Category: "c", Status: models.StatusTrending}))
	require.NoError(t, repo.Create(ctx, &models.Trend{Title: "Cats", Description: "d", Category: "c", Status: models.StatusTrending, Tags: []string{"Kitten"}}))

	found, err := repo.Search(ctx, "100%", 5)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "100% Distracted Boyfriend", found[0].Title)

	found, err = repo.Search(ctx, "%", 5)
	require.NoError(t, err)
	assert.Len(t, found, 1)

	found, err = repo.Search(ctx, "kitten", 5)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Cats", found[0].Title)
}

func TestSearchMatchesTagTextOnly(t *testing.T) {
	db := setupTestDB(t)
	trends := NewTrendRepository(db)
	templates := NewTemplateRepository(db)
	ctx := context.Background()

	require.NoError(t, trends.Create(ctx, &models.Trend{Title: "a", Description: "d", Category: "c", Status: models.StatusTrending, Tags: []string{"cats", "dogs"}}))
	require.NoError(t, trends.Create(ctx, &models.Trend{Title: "b", Description: "d", Category: "c", Status: models.StatusTrending, Tags: []string{"<3 & more"}}))
	require.NoError(t, templates.Create(ctx, &models.Template{Name: "n", Category: "c", ImageURL: "/u.png", Tags: []string{"Reaction"}}))

	// JSON punctuation around stored tags is not searchable.
	for _, q := range []string{`"`, ",", "[", "]"} {
		found, err := trends.Search(ctx, q, 5)
		require.NoError(t, err)
		assert.Empty(t, found, "query %q", q)
	}

	found, err := trends.Search(ctx, "<3 &", 5)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "b", found[0].Title)

	found, err = trends.Search(ctx, "dog", 5)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, []string{"cats", "dogs"}, found[0].Tags)

	tpls, err := templates.Search(ctx, "REACT", 5)
	require.NoError(t, err)
	assert.Len(t, tpls, 1)

	// A query cannot span two tags.
	found, err = trends.Search(ctx, "cats"+models.TagSeparator+"dogs", 5)
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestUserSearchAndCounts(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	seedUser(t, db, "alice")
	seedUser(t, db, "bob")
	carol := seedUser(t, db, "carol")
	carol.IsActive = false
	require.NoError(t, repo.Update(ctx, carol))

	users, total, err := repo.List(ctx, UserFilter{Search: "ALI"}, Page{Number: 1, Size: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, "alice", users[0].Username)

	active, err := repo.Count(ctx, UserFilter{ActiveOnly: true})
	require.NoError(t, err)
	assert.Equal(t, int64(2), active)

	old, err := repo.Count(ctx, UserFilter{CreatedBefore: time.Now().Add(-24 * time.Hour)})
	require.NoError(t, err)
	assert.Zero(t, old)
}

func TestAnalyticsUpsertKeepsOneRowPerDay(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAnalyticsRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, &models.AnalyticsSnapshot{Day: "2024-05-01", TotalUsers: 1}))
	require.NoError(t, repo.Upsert(ctx, &models.AnalyticsSnapshot{Day: "2024-05-01", TotalUsers: 7}))
	require.NoError(t, repo.Upsert(ctx, &models.AnalyticsSnapshot{Day: "2024-05-02", TotalUsers: 8}))

	got, err := repo.FindByDay(ctx, "2024-05-01")
	require.NoError(t, err)
	assert.Equal(t, int64(7), got.TotalUsers)

	all, err := repo.Since(ctx, "2024-05-01")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "2024-05-01", all[0].Day)
	assert.Equal(t, "2024-05-02", all[1].Day)
}

func TestMemesScopedToOwner(t *testing.T) {
	db := setupTestDB(t)
	repo := NewMemeRepository(db)
	ctx := context.Background()
	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")

	require.NoError(t, repo.Create(ctx, &models.Meme{Title: "a1", ImageURL: "u", CreatedByID: alice.ID, IsPublic: true}))
	require.NoError(t, repo.Create(ctx, &models.Meme{Title: "b1", ImageURL: "u", CreatedByID: bob.ID, IsPublic: true}))

	memes, total, err := repo.List(ctx, MemeFilter{OwnerID: alice.ID}, Page{Number: 1, Size: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, "a1", memes[0].Title)
}
