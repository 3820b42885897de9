// Package store persists users, recipes and likes through gorm.
package store

import (
	"errors"
	"fmt"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"recipebox/models"
)

var (
	ErrNotFound    = errors.New("record not found")
	ErrDuplicate   = errors.New("duplicate record")
	// ErrUnknownUser is returned when a write references a user that no longer exists.
	ErrUnknownUser = errors.New("user does not exist")
)

// Open connects to MySQL. Callers run Migrate before serving.
func Open(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("connect mysql: %w", err)
	}
	return db, nil
}

// Migrate creates or updates the users, recipes and likes tables.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.User{}, &models.Recipe{}, &models.Like{}); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// unknownUser maps a foreign key violation on a user reference to ErrUnknownUser.
// Only call it where the other references were checked first.
func unknownUser(err error) error {
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return ErrUnknownUser
	}
	return err
}
