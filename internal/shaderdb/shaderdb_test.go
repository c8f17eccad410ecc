package shaderdb

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "all_shaders.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadCSV(t *testing.T) {
	path := writeCSV(t, `shader,package,extra
ed8.fx#AAAA,M_T1000.pkg,foo
ed8.fx#BBBB,M_T2000.pkg
ed8.fx#CCCC,None
ed8.fx#DDDD,
malformed
ed8.fx#EEEE,M_T3000.pkg,x,y,z
`)

	db, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 3, db.Len())

	pkg, ok := db.Lookup("ed8.fx#AAAA")
	require.True(t, ok)
	assert.Equal(t, "M_T1000.pkg", pkg)

	// Header row is data-shaped but must be skipped.
	_, ok = db.Lookup("shader")
	assert.False(t, ok)

	// "None" and empty donor fields mean no known donor.
	_, ok = db.Lookup("ed8.fx#CCCC")
	assert.False(t, ok)
	_, ok = db.Lookup("ed8.fx#DDDD")
	assert.False(t, ok)

	// Rows with extra columns still load.
	pkg, ok = db.Lookup("ed8.fx#EEEE")
	require.True(t, ok)
	assert.Equal(t, "M_T3000.pkg", pkg)
}

func TestLoadMissingDatabase(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.csv"))
	assert.ErrorIs(t, err, ErrDatabaseMissing)

	_, err = Load(filepath.Join(t.TempDir(), "nope.db"))
	assert.ErrorIs(t, err, ErrDatabaseMissing)
}

func TestImportCSVRoundTrip(t *testing.T) {
	csvPath := writeCSV(t, `shader,package
ed8.fx#AAAA,M_T1000.pkg
ed8.fx#BBBB,M_T2000.pkg
ed8.fx#CCCC,None
`)
	dbPath := filepath.Join(t.TempDir(), "all_shaders.db")

	n, err := ImportCSV(csvPath, dbPath)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	fromCSV, err := Load(csvPath)
	require.NoError(t, err)
	fromSQLite, err := Load(dbPath)
	require.NoError(t, err)

	require.Equal(t, fromCSV.Len(), fromSQLite.Len())
	for _, shader := range []string{"ed8.fx#AAAA", "ed8.fx#BBBB"} {
		want, ok := fromCSV.Lookup(shader)
		require.True(t, ok)
		got, ok := fromSQLite.Lookup(shader)
		require.True(t, ok)
		assert.Equal(t, want, got)
	}
}

func TestImportCSVMissingSource(t *testing.T) {
	_, err := ImportCSV(filepath.Join(t.TempDir(), "nope.csv"), filepath.Join(t.TempDir(), "out.db"))
	assert.True(t, errors.Is(err, ErrDatabaseMissing))
}
