package database

import (
	"errors"
	"fmt"

	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"crm-auth-service/internal/model"
	"crm-auth-service/pkg/config"
)

var db *gorm.DB

// InitDB connects to postgres, migrates the schema and seeds the stock
// plans.
func InitDB(cfg *config.Config) error {
	// PreferSimpleProtocol prevents "prepared statement already exists"
	// errors behind connection poolers.
	pgConfig := postgres.Config{
		DSN:                  cfg.DB.GetDSN(),
		PreferSimpleProtocol: true,
	}

	var err error
	db, err = gorm.Open(postgres.New(pgConfig), &gorm.Config{
		Logger: gormlogger.Default.LogMode(cfg.DB.LogLevel),
	})
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("get database connection: %w", err)
	}
	if cfg.DB.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.DB.MaxIdleConns)
	}
	if cfg.DB.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.DB.MaxOpenConns)
	}
	if cfg.DB.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.DB.ConnMaxLifetime)
	}

	if err := db.AutoMigrate(
		&model.User{},
		&model.Tenant{},
		&model.Membership{},
		&model.Plan{},
	); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	return seedPlans(db)
}

// GetDB returns the database instance
func GetDB() *gorm.DB {
	return db
}

// seedPlans creates the stock plans when they do not exist yet. Existing
// rows are left untouched so operator edits survive restarts.
func seedPlans(db *gorm.DB) error {
	plans := []model.Plan{
		{
			Name: model.PlanStarter,
			Features: datatypes.JSONMap{
				"crm":             true,
				"whatsapp":        false,
				"ai_agents":       false,
				"lead_extraction": false,
				"user_management": false,
				"reports":         false,
			},
			LeadLimit:     500,
			QueryLimit:    1000,
			InstanceLimit: 1,
		},
		{
			Name: model.PlanGrowth,
			Features: datatypes.JSONMap{
				"crm":             true,
				"whatsapp":        true,
				"ai_agents":       false,
				"lead_extraction": true,
				"user_management": true,
				"reports":         true,
			},
			LeadLimit:     5000,
			QueryLimit:    20000,
			InstanceLimit: 3,
		},
		{
			Name: model.PlanEnterprise,
			Features: datatypes.JSONMap{
				"crm":             true,
				"whatsapp":        true,
				"ai_agents":       true,
				"lead_extraction": true,
				"user_management": true,
				"reports":         true,
			},
			LeadLimit:     100000,
			QueryLimit:    500000,
			InstanceLimit: 20,
		},
	}

	for _, plan := range plans {
		var existing model.Plan
		err := db.Where("name = ?", plan.Name).First(&existing).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err := db.Create(&plan).Error; err != nil {
			return fmt.Errorf("seed plan %s: %w", plan.Name, err)
		}
	}
	return nil
}
