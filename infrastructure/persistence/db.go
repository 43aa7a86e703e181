package persistence

import (
	"database/sql"
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"social-scheduler/domain/model"
	"social-scheduler/infrastructure/configuration"
	"social-scheduler/infrastructure/logger"
)

func mysqlDSN() string {
	cfg := configuration.C.Database.MySql
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Name)
}

// NewRepositories opens the local MySQL database through GORM and migrates
// the schema. Used for local development; production runs on MSSQL/Postgres.
func NewRepositories() (*gorm.DB, error) {
	db, err := gorm.Open(mysql.Open(mysqlDSN()), &gorm.Config{})
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("Cannot open MySQL via GORM")
		return nil, err
	}
	if err := db.AutoMigrate(&model.ScheduledPost{}, &model.User{}); err != nil {
		return nil, err
	}
	return db, nil
}

// NewNativeDb opens the local MySQL database as a plain *sql.DB.
func NewNativeDb() (*sql.DB, error) {
	gormDb, err := NewRepositories()
	if err != nil {
		return nil, err
	}
	db, err := gormDb.DB()
	if err != nil {
		return nil, err
	}
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(5 * time.Minute)
	if err := db.Ping(); err != nil {
		return nil, err
	}
	return db, nil
}
