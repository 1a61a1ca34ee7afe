package store

import (
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Open establishes the Postgres connection pool and migrates the schema,
// following the teacher's db/postgres.go connection-pool settings
// (idle/open/lifetime) adapted to our models.
func Open(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(
		&Submission{},
		&MetadataObject{},
		&File{},
		&Registration{},
		&ApiKey{},
	); err != nil {
		return nil, err
	}
	return db, nil
}
