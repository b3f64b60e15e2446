package artifact

import (
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/statforge/statcast-harvester/pkg/statcast"
)

// Record is the catalog's metadata row for one published artifact.
// Complete means the artifact holds every row the provider reports for
// its scope; Immutable means it will never be re-fetched or rewritten.
type Record struct {
	ID           uint   `gorm:"primaryKey"`
	Season       int    `gorm:"uniqueIndex:idx_artifact"`
	GameType     string `gorm:"uniqueIndex:idx_artifact"`
	Category     string `gorm:"uniqueIndex:idx_artifact"`
	Date         string `gorm:"uniqueIndex:idx_artifact"` // ISO date; empty for cumulative artifacts
	FileName     string
	RowCount     int
	ExpectedRows int
	Complete     bool
	Immutable    bool
	FetchedAt    time.Time
}

// Catalog is the sqlite-backed artifact metadata index.
type Catalog struct {
	db *gorm.DB
}

// OpenCatalog opens (or creates) the catalog database at path.
func OpenCatalog(path string) (*Catalog, error) {
	if path == "" {
		return nil, fmt.Errorf("catalog path is required")
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}

	if err := db.AutoMigrate(&Record{}); err != nil {
		return nil, fmt.Errorf("migrate catalog: %w", err)
	}

	return &Catalog{db: db}, nil
}

// Close releases the underlying database handle.
func (c *Catalog) Close() error {
	sqlDB, err := c.db.DB()
	if err != nil {
		return fmt.Errorf("catalog db handle: %w", err)
	}
	return sqlDB.Close()
}

// Daily looks up the non-batted-ball artifact record for a date.
// Returns (nil, nil) when no record exists.
func (c *Catalog) Daily(date statcast.Date) (*Record, error) {
	var rec Record
	err := c.db.
		Where("category = ? AND date = ?", string(statcast.CategoryNonBBE), date.String()).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("catalog daily lookup: %w", err)
	}
	return &rec, nil
}

// Cumulative looks up the batted-ball artifact record for a season.
// Returns (nil, nil) when no record exists.
func (c *Catalog) Cumulative(season int, gt statcast.GameType) (*Record, error) {
	var rec Record
	err := c.db.
		Where("category = ? AND season = ? AND game_type = ?",
			string(statcast.CategoryBBE), season, string(gt)).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("catalog cumulative lookup: %w", err)
	}
	return &rec, nil
}

// Upsert inserts or replaces the record for its artifact scope
// (season, game type, category, date).
func (c *Catalog) Upsert(rec *Record) error {
	var existing Record
	err := c.db.
		Where("season = ? AND game_type = ? AND category = ? AND date = ?",
			rec.Season, rec.GameType, rec.Category, rec.Date).
		First(&existing).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		// new record
	case err != nil:
		return fmt.Errorf("catalog upsert lookup: %w", err)
	default:
		rec.ID = existing.ID
	}

	if err := c.db.Save(rec).Error; err != nil {
		return fmt.Errorf("catalog upsert: %w", err)
	}
	return nil
}
