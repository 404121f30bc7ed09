package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/threat-zone-service/internal/domain"
	"github.com/couchcryptid/threat-zone-service/internal/observability"
)

// --- fakes ---

type fakeRow struct {
	name       string
	mw         float64
	thresholds []byte
	err        error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*dest[0].(*string) = r.name
	*dest[1].(*float64) = r.mw
	*dest[2].(*[]byte) = r.thresholds
	return nil
}

type fakeBatchResults struct {
	n       int
	execErr error
}

func (b *fakeBatchResults) Exec() (pgconn.CommandTag, error) {
	b.n++
	return pgconn.NewCommandTag("INSERT 0 1"), b.execErr
}
func (b *fakeBatchResults) Query() (pgx.Rows, error) { return nil, errors.New("not implemented") }
func (b *fakeBatchResults) QueryRow() pgx.Row         { return fakeRow{err: errors.New("not implemented")} }
func (b *fakeBatchResults) Close() error              { return nil }

type fakeDB struct {
	row     fakeRow
	args    []any
	execs   []string
	batch   *pgx.Batch
	results *fakeBatchResults
	execErr error
}

func (f *fakeDB) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	f.execs = append(f.execs, sql)
	return pgconn.NewCommandTag("CREATE TABLE"), f.execErr
}

func (f *fakeDB) QueryRow(_ context.Context, _ string, args ...any) pgx.Row {
	f.args = args
	return f.row
}

func (f *fakeDB) SendBatch(_ context.Context, b *pgx.Batch) pgx.BatchResults {
	f.batch = b
	if f.results == nil {
		f.results = &fakeBatchResults{}
	}
	return f.results
}

// --- tests ---

func TestCatalog_LookupChemical(t *testing.T) {
	db := &fakeDB{row: fakeRow{
		name:       "ammonia",
		mw:         17.03,
		thresholds: []byte(`{"AEGL-1":"30 ppm","AEGL-3":"1100 ppm"}`),
	}}
	c := NewCatalog(db)

	chem, err := c.LookupChemical(context.Background(), "  Ammonia ")
	require.NoError(t, err)

	assert.Equal(t, []any{"ammonia"}, db.args, "name is normalized before querying")
	assert.Equal(t, "ammonia", chem.Name)
	assert.Equal(t, 17.03, chem.MolecularWeight)
	assert.Equal(t, "1100 ppm", chem.Thresholds["AEGL-3"])
}

func TestCatalog_LookupChemical_NotFound(t *testing.T) {
	c := NewCatalog(&fakeDB{row: fakeRow{err: pgx.ErrNoRows}})

	_, err := c.LookupChemical(context.Background(), "unobtainium")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrChemicalNotFound)
}

func TestCatalog_LookupChemical_Errors(t *testing.T) {
	t.Run("query failure", func(t *testing.T) {
		c := NewCatalog(&fakeDB{row: fakeRow{err: errors.New("connection reset")}})
		_, err := c.LookupChemical(context.Background(), "ammonia")
		require.Error(t, err)
		assert.NotErrorIs(t, err, domain.ErrChemicalNotFound)
		assert.Contains(t, err.Error(), "connection reset")
	})

	t.Run("corrupt thresholds", func(t *testing.T) {
		c := NewCatalog(&fakeDB{row: fakeRow{name: "ammonia", mw: 17.03, thresholds: []byte(`[1,2]`)}})
		_, err := c.LookupChemical(context.Background(), "ammonia")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "decode thresholds")
	})
}

func TestCatalog_EnsureSchema(t *testing.T) {
	db := &fakeDB{}
	c := NewCatalog(db)

	require.NoError(t, c.EnsureSchema(context.Background()))

	require.Len(t, db.execs, 1)
	assert.Contains(t, db.execs[0], "CREATE TABLE IF NOT EXISTS chemicals")
	require.NotNil(t, db.batch)
	assert.Equal(t, len(seeds), db.batch.Len())
	assert.Equal(t, len(seeds), db.results.n)
}

func TestCatalog_EnsureSchema_Errors(t *testing.T) {
	t.Run("create table", func(t *testing.T) {
		c := NewCatalog(&fakeDB{execErr: errors.New("permission denied")})
		err := c.EnsureSchema(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "create chemicals table")
	})

	t.Run("seed", func(t *testing.T) {
		db := &fakeDB{results: &fakeBatchResults{execErr: errors.New("disk full")}}
		err := NewCatalog(db).EnsureSchema(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "seed ammonia")
	})
}

func TestSeeds_AreConsistent(t *testing.T) {
	for _, chem := range seeds {
		t.Run(chem.Name, func(t *testing.T) {
			assert.Equal(t, normalizeName(chem.Name), chem.Name)
			assert.Greater(t, chem.MolecularWeight, 0.0)
			levels := domain.OrderedLevels(chem.FamilyThresholds("ALL"))
			assert.NotEmpty(t, levels)
		})
	}
}

// --- cached catalog ---

type countingCatalog struct {
	calls int
	chem  domain.Chemical
	err   error
}

func (c *countingCatalog) LookupChemical(_ context.Context, _ string) (domain.Chemical, error) {
	c.calls++
	return c.chem, c.err
}

func TestCachedCatalog_HitAfterMiss(t *testing.T) {
	inner := &countingCatalog{chem: domain.Chemical{Name: "chlorine", MolecularWeight: 70.9}}
	metrics := observability.NewMetricsForTesting()
	c := NewCachedCatalog(inner, 4, metrics)

	first, err := c.LookupChemical(context.Background(), "Chlorine")
	require.NoError(t, err)
	second, err := c.LookupChemical(context.Background(), "chlorine")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, inner.calls)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.CatalogLookups.WithLabelValues("miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.CatalogLookups.WithLabelValues("hit")))
}

func TestCachedCatalog_FailuresNotCached(t *testing.T) {
	inner := &countingCatalog{err: domain.ErrChemicalNotFound}
	metrics := observability.NewMetricsForTesting()
	c := NewCachedCatalog(inner, 4, metrics)

	_, err := c.LookupChemical(context.Background(), "x")
	require.ErrorIs(t, err, domain.ErrChemicalNotFound)
	inner.err = errors.New("timeout")
	_, err = c.LookupChemical(context.Background(), "x")
	require.Error(t, err)

	assert.Equal(t, 2, inner.calls)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.CatalogLookups.WithLabelValues("not_found")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.CatalogLookups.WithLabelValues("error")))
}
