package database

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"trendzn-restful/config"
	"trendzn-restful/models"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open connects to the configured database and migrates every model.
func Open(cfg config.DatabaseConfig, log *zap.Logger) (*gorm.DB, error) {
	// GORM logger configuration
	newLogger := logger.New(
		zap.NewStdLog(log.Named("gorm")),
		logger.Config{
			SlowThreshold:             time.Second, // Slow SQL threshold
			LogLevel:                  gormLevel(log),
			IgnoreRecordNotFoundError: true,
			ParameterizedQueries:      true,
			Colorful:                  false,
		},
	)

	var dialector gorm.Dialector
	switch cfg.Driver {
	case "mysql":
		dialector = mysql.Open(cfg.DSN)
	case "sqlite":
		dialector = sqlite.Open(sqliteDSN(cfg.DSN))
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:                                   newLogger,
		DisableForeignKeyConstraintWhenMigrating: true,
		TranslateError:                           true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	if cfg.Driver == "sqlite" {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get sql.DB: %w", err)
		}
		// SQLite allows a single writer.
		sqlDB.SetMaxOpenConns(1)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(models.AllModels()...); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

// InitDB opens the database from AppConfig and seeds the bootstrap admin.
// It panics on failure.
func InitDB(log *zap.Logger) *gorm.DB {
	db, err := Open(config.AppConfig.Database, log)
	if err != nil {
		panic(err)
	}
	log.Info("Database connection successful and migrations complete.", zap.String("driver", config.AppConfig.Database.Driver))

	if err := SeedAdmin(db, config.AppConfig.Admin, log); err != nil {
		log.Error("Failed to seed admin user", zap.Error(err))
	}
	return db
}

// SeedAdmin creates the configured administrator when no admin exists yet.
func SeedAdmin(db *gorm.DB, admin config.AdminConfig, log *zap.Logger) error {
	if admin.Email == "" || admin.Password == "" {
		return nil
	}

	var existing models.User
	err := db.Where("role = ?", models.RoleAdmin).First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("checking for admin: %w", err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(admin.Password), 12)
	if err != nil {
		return fmt.Errorf("hashing admin password: %w", err)
	}
	username := admin.Username
	if username == "" {
		username = "admin"
	}
	user := models.User{
		Username: username,
		Email:    strings.ToLower(admin.Email),
		Password: string(hashed),
		Role:     models.RoleAdmin,
		IsActive: true,
	}
	if err := db.Create(&user).Error; err != nil {
		return fmt.Errorf("creating admin: %w", err)
	}
	log.Info("Created initial admin user", zap.String("username", username))
	return nil
}

func sqliteDSN(dsn string) string {
	if strings.Contains(dsn, "?") {
		return dsn
	}
	return dsn + "?_busy_timeout=5000&_journal_mode=WAL"
}

func gormLevel(log *zap.Logger) logger.LogLevel {
	if log.Core().Enabled(zapcore.DebugLevel) {
		return logger.Info
	}
	return logger.Warn
}
