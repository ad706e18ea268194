package database

import (
	"fmt"
	"time"

	"github.com/CANDRY15/flashprint/config"
	"github.com/CANDRY15/flashprint/model"
	"github.com/CANDRY15/flashprint/utils/logger"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type GORMStore struct {
	db  *gorm.DB
	log *logger.Logger
}

// DSN builds the PostgreSQL connection string shared by GORM and the lib/pq probe
func DSN(env *config.EnvironmentVariable) string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
		env.DB_HOST,
		env.DB_USER,
		env.DB_PASSWORD,
		env.DB_NAME,
		env.DB_PORT,
		env.DB_SSLMODE,
	)
}

// StartGORM initializes a GORM connection to PostgreSQL
func StartGORM(env *config.EnvironmentVariable, log *logger.Logger) (*GORMStore, error) {
	gormLogger := gormlogger.Default.LogMode(gormlogger.Warn)
	if env.IsProduction() {
		gormLogger = gormlogger.Default.LogMode(gormlogger.Error)
	}

	db, err := gorm.Open(postgres.Open(DSN(env)), &gorm.Config{
		Logger:      gormLogger,
		PrepareStmt: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(50)
	sqlDB.SetConnMaxLifetime(time.Hour)

	log.Info("connected to PostgreSQL", "host", env.DB_HOST, "db", env.DB_NAME)

	return &GORMStore{db: db, log: log}, nil
}

// NewGORMStore wraps an already opened connection
func NewGORMStore(db *gorm.DB, log *logger.Logger) *GORMStore {
	return &GORMStore{db: db, log: log}
}

// Models lists every persisted model in migration order
func Models() []interface{} {
	return []interface{}{
		// Accounts
		&model.User{},
		&model.UserRole{},
		&model.JWTTokenBlacklist{},

		// Catalogue
		&model.Faculty{},
		&model.Syllabus{},
		&model.SyllabusEvent{},

		// Marketing site
		&model.SiteContent{},

		// Audit & logging
		&model.AdminAuditLog{},
		&model.CronJobLog{},
	}
}

// Init runs AutoMigrate and rewrites legacy promotion labels
func (s *GORMStore) Init() error {
	s.log.Info("running AutoMigrate", "models", len(Models()))

	if err := s.db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("automigrate: %w", err)
	}

	migrated, err := MigrateLegacyPromotions(s.db)
	if err != nil {
		return err
	}
	if migrated > 0 {
		s.log.Info("migrated legacy promotion labels", "rows", migrated)
	}
	return nil
}

// MigrateLegacyPromotions rewrites L1/L2/L3 rows to Bac1/Bac2/Bac3
func MigrateLegacyPromotions(db *gorm.DB) (int64, error) {
	var total int64
	for legacy, canonical := range model.LegacyPromotions {
		result := db.Model(&model.Syllabus{}).Where("year = ?", legacy).Update("year", canonical)
		if result.Error != nil {
			return total, fmt.Errorf("failed to migrate promotion %s: %w", legacy, result.Error)
		}
		total += result.RowsAffected
	}
	return total, nil
}

// Close closes the database connection
func (s *GORMStore) Close() error {
	s.log.Info("closing PostgreSQL connection")
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// GetDB returns the GORM DB instance for use in services/handlers
func (s *GORMStore) GetDB() *gorm.DB {
	return s.db
}

// HealthCheck verifies the database connection is alive
func (s *GORMStore) HealthCheck() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}
