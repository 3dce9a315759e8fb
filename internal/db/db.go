package db

import (
	"github.com/glebarez/sqlite"
	"github.com/pkg/errors"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/imposterai/imposter/internal/chat"
	"github.com/imposterai/imposter/internal/models"
)

// Connect opens a gorm DB for the configured driver. sqlite (pure Go) is the
// default; mysql is selected for deployments with a real DSN.
func Connect(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case "mysql":
		dialector = mysql.Open(dsn)
	case "", "sqlite":
		dialector = sqlite.Open(dsn)
	default:
		return nil, errors.Errorf("unsupported db driver: %q", driver)
	}

	gdb, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, errors.Wrapf(err, "open %s database", driver)
	}
	return gdb, nil
}

// AutoMigrate creates or updates every table the backend uses.
func AutoMigrate(gdb *gorm.DB) error {
	err := gdb.AutoMigrate(
		&models.User{},
		&chat.Personality{},
		&chat.Chat{},
	)
	return errors.Wrap(err, "automigrate")
}
