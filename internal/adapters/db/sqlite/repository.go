package sqlite

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/SolidPro12/Asset-Management-System-sub000/internal/domain"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	moderncsqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

type Repository struct {
	db *gorm.DB
}

var _ domain.Store = (*Repository)(nil)

// Open opens the database at path with a single writer connection, WAL
// journaling, enforced foreign keys and a busy timeout.
func Open(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Dialector{
		DriverName: "sqlite",
		DSN:        withPragmas(path),
	}, &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Warn),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	return db, nil
}

func withPragmas(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)"
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Transact runs fn in one transaction bound to a repository over the same
// transaction. Any error from fn rolls everything back.
func (r *Repository) Transact(ctx context.Context, fn func(repo domain.Repository) error) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Repository{db: tx})
	})
	return translate(err)
}

// translate maps driver and gorm errors onto the domain error kinds. Errors
// that already carry a domain kind pass through untouched.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if domain.KindOf(err) != domain.KindInternal {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %v", domain.ErrNotFound, err)
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", domain.ErrUnavailable, err)
	}

	var sqliteErr *moderncsqlite.Error
	if errors.As(err, &sqliteErr) {
		code := sqliteErr.Code()
		switch code & 0xff {
		case sqlite3.SQLITE_CONSTRAINT:
			if code == sqlite3.SQLITE_CONSTRAINT_CHECK || strings.Contains(err.Error(), "CHECK constraint failed") {
				return fmt.Errorf("%w: %v", domain.ErrValidation, err)
			}
			return fmt.Errorf("%w: %v", domain.ErrConflict, err)
		case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
			return fmt.Errorf("%w: %v", domain.ErrUnavailable, err)
		}
	}

	msg := err.Error()
	switch {
	case strings.Contains(msg, "UNIQUE constraint failed"), strings.Contains(msg, "FOREIGN KEY constraint failed"):
		return fmt.Errorf("%w: %v", domain.ErrConflict, err)
	case strings.Contains(msg, "CHECK constraint failed"):
		return fmt.Errorf("%w: %v", domain.ErrValidation, err)
	case strings.Contains(msg, "database is locked"):
		return fmt.Errorf("%w: %v", domain.ErrUnavailable, err)
	}
	return err
}

func notFound(what string, id uint) error {
	return fmt.Errorf("%w: %s %d", domain.ErrNotFound, what, id)
}

// lostRace is returned by conditional updates that matched no row.
func lostRace(what string, id uint, expected string) error {
	return fmt.Errorf("%w: %s %d is no longer %s", domain.ErrConflict, what, id, expected)
}

func defaultLimit(limit, fallback, max int) int {
	if limit <= 0 {
		return fallback
	}
	if limit > max {
		return max
	}
	return limit
}

func likePattern(query string) string {
	return "%" + strings.TrimSpace(query) + "%"
}

func stringPtr(v string) *string {
	return &v
}

func derefString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
