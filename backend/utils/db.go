package utils

import (
	"fmt"

	"lingua/backend/config"
	"lingua/backend/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// InitDB открывает соединение с Postgres. TranslateError нужен, чтобы
// нарушение уникального индекса попыток приходило как gorm.ErrDuplicatedKey.
func InitDB(cfg *config.Config) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, err
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	return db, nil
}

// Migrate прогоняет автомиграцию всех таблиц
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.LoginHistory{},
		&models.Course{},
		&models.AccessCode{},
		&models.CourseUnlock{},
		&models.CourseProgress{},
		&models.ContentProgress{},
		&models.Exercise{},
		&models.Attempt{},
		&models.Completion{},
		&models.AccessLog{},
		&models.DailyActivity{},
	)
}
