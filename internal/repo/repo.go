package repo

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

var ErrNotFound = gorm.ErrRecordNotFound

type GormRepo struct {
	DB *gorm.DB
}

func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// IsDuplicate reports a unique-constraint violation from either driver.
func IsDuplicate(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key")
}
