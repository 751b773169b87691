package services

import (
	"context"
	"errors"
	"testing"

	"trendzn-restful/apperrors"
	"trendzn-restful/repositories"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(mysql.New(mysql.Config{Conn: sqlDB, SkipInitializeWithVersion: true}), &gorm.Config{
		DisableAutomaticPing: true,
		Logger:               logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return db, mock
}

func TestStoreFailureIsInternal(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery("SELECT count").WillReturnError(errors.New("connection reset by peer"))

	admin := NewAdminService(
		repositories.NewUserRepository(db),
		repositories.NewTrendRepository(db),
		repositories.NewTemplateRepository(db),
		repositories.NewMemeRepository(db),
		Paging{DefaultSize: 10, MaxSize: 100},
		zap.NewNop(),
	)

	_, err := admin.Stats(context.Background())
	requireKind(t, err, apperrors.KindInternal)
	assert.Equal(t, "Internal server error", apperrors.PublicMessage(err, false))
	assert.Contains(t, apperrors.PublicMessage(err, true), "connection reset")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLookupFailureIsNotReportedAsMissing(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery("SELECT \\* FROM `trends`").WillReturnError(errors.New("deadlock"))

	trends := NewTrendService(repositories.NewTrendRepository(db), nil, Paging{DefaultSize: 10, MaxSize: 100}, zap.NewNop())
	_, err := trends.Get(context.Background(), 1)
	requireKind(t, err, apperrors.KindInternal)
	assert.NoError(t, mock.ExpectationsWereMet())
}
