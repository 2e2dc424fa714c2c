package enricher

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "plz.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func expectPlzUpsert(mock pgxmock.PgxPoolIface, rows int64) {
	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TEMP TABLE`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_tmp_upsert_plz_coordinates"}, []string{"plz", "lat", "lng"}).
		WillReturnResult(rows)
	mock.ExpectExec(`INSERT INTO "plz_coordinates"`).
		WillReturnResult(pgxmock.NewResult("INSERT", rows))
	mock.ExpectCommit()
	mock.ExpectRollback()
}

func TestLoadReference(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	path := writeTempCSV(t, "PLZ,Lat,Lng\n10115,52.53,13.38\n1067.0,51.06,13.74\n")
	expectPlzUpsert(mock, 2)

	n, err := LoadReference(context.Background(), mock, path, LoadOptions{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadReference_SkipsInvalidRows(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	// bad postcode, bad latitude, then one good row
	path := writeTempCSV(t, "plz,lat,lng\nabc,52.53,13.38\n10115,north,13.38\n60311,50.11,8.68\n")
	expectPlzUpsert(mock, 1)

	n, err := LoadReference(context.Background(), mock, path, LoadOptions{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestLoadReference_MissingColumn(t *testing.T) {
	path := writeTempCSV(t, "plz,lat\n10115,52.53\n")

	_, err := LoadReference(context.Background(), nil, path, LoadOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "lng")
}

func TestLoadReference_FileNotFound(t *testing.T) {
	_, err := LoadReference(context.Background(), nil, "/nonexistent/plz.csv", LoadOptions{})
	assert.Error(t, err)
}
