package artifact

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/statforge/statcast-harvester/pkg/statcast"
)

func testCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := OpenCatalog(filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestCatalogDailyLifecycle(t *testing.T) {
	c := testCatalog(t)
	date := statcast.NewDate(2023, 4, 1)

	rec, err := c.Daily(date)
	require.NoError(t, err)
	assert.Nil(t, rec, "missing record should be (nil, nil)")

	require.NoError(t, c.Upsert(&Record{
		Season:       2023,
		GameType:     string(statcast.GameTypeRegular),
		Category:     string(statcast.CategoryNonBBE),
		Date:         date.String(),
		FileName:     DailyFileName(date),
		RowCount:     2500,
		ExpectedRows: 2500,
		Complete:     true,
		Immutable:    false,
		FetchedAt:    time.Now(),
	}))

	rec, err = c.Daily(date)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, 2500, rec.RowCount)
	assert.True(t, rec.Complete)
	assert.False(t, rec.Immutable)
}

func TestCatalogUpsertReplacesByScope(t *testing.T) {
	c := testCatalog(t)
	date := statcast.NewDate(2023, 4, 1)

	base := Record{
		Season:   2023,
		GameType: string(statcast.GameTypeRegular),
		Category: string(statcast.CategoryNonBBE),
		Date:     date.String(),
		FileName: DailyFileName(date),
		RowCount: 2000,
	}
	require.NoError(t, c.Upsert(&base))

	updated := base
	updated.ID = 0
	updated.RowCount = 2500
	updated.Complete = true
	updated.Immutable = true
	require.NoError(t, c.Upsert(&updated))

	rec, err := c.Daily(date)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, 2500, rec.RowCount)
	assert.True(t, rec.Immutable)
	assert.Equal(t, base.ID, rec.ID, "upsert must reuse the existing row")
}

func TestCatalogCumulative(t *testing.T) {
	c := testCatalog(t)

	rec, err := c.Cumulative(2023, statcast.GameTypeRegular)
	require.NoError(t, err)
	assert.Nil(t, rec)

	require.NoError(t, c.Upsert(&Record{
		Season:   2023,
		GameType: string(statcast.GameTypeRegular),
		Category: string(statcast.CategoryBBE),
		FileName: CumulativeFileName(2023, statcast.GameTypeRegular),
		RowCount: 40000,
		Complete: true,
	}))

	rec, err = c.Cumulative(2023, statcast.GameTypeRegular)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, 40000, rec.RowCount)

	// Scoped by game type.
	rec, err = c.Cumulative(2023, statcast.GameTypeWS)
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestCatalogSeparatesCategories(t *testing.T) {
	c := testCatalog(t)
	date := statcast.NewDate(2023, 4, 1)

	require.NoError(t, c.Upsert(&Record{
		Season:   2023,
		GameType: string(statcast.GameTypeRegular),
		Category: string(statcast.CategoryBBE),
		FileName: CumulativeFileName(2023, statcast.GameTypeRegular),
	}))

	// The cumulative record must not satisfy a daily lookup.
	rec, err := c.Daily(date)
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestOpenCatalogRequiresPath(t *testing.T) {
	_, err := OpenCatalog("")
	assert.Error(t, err)
}
