// Package dbtest provides an in-memory sqlite database for package tests.
package dbtest

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/oggyb/matchfeed/internal/db"
)

// New opens a private in-memory database with the full schema migrated.
func New(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, time.Now().UnixNano())
	gdb, err := db.Open(sqlite.Open(dsn), logger.Default.LogMode(logger.Silent))
	require.NoError(t, err)

	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.Migrate(gdb))
	t.Cleanup(func() { _ = sqlDB.Close() })
	return gdb
}

// UserOpts describes a test user. Zero values mean "unset".
type UserOpts struct {
	Username string
	Gender   string
	Age      int // whole years, 0 leaves the birthday empty
	Verified bool
	Name     string
}

// CreateUser inserts a user with a birthday a little past the requested age.
func CreateUser(t *testing.T, gdb *gorm.DB, o UserOpts) db.User {
	t.Helper()

	u := db.User{
		Username:     o.Username,
		Email:        o.Username + "@test.com",
		PasswordHash: "x",
		Gender:       o.Gender,
		IsVerified:   o.Verified,
	}
	if o.Age > 0 {
		b := db.Now().AddDate(-o.Age, -2, 0)
		u.Birthday = &b
	}
	if o.Name != "" {
		name := o.Name
		u.Name = &name
	}
	require.NoError(t, gdb.Create(&u).Error)
	return u
}

// SetPreferences stores preferences for userID.
func SetPreferences(t *testing.T, gdb *gorm.DB, p db.Preferences) {
	t.Helper()
	require.NoError(t, gdb.Save(&p).Error)
}
