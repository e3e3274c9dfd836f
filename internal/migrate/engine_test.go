package migrate

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeMigration(t *testing.T, dir, filename, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, filename), []byte(body), 0o644))
}

func TestDiscoverOrdersByVersion(t *testing.T) {
	dir := t.TempDir()
	writeMigration(t, dir, "0002_add_index.sql", "CREATE INDEX x ON y (z);")
	writeMigration(t, dir, "0001_init.sql", "CREATE TABLE y (z INT);")
	writeMigration(t, dir, "not_a_migration.txt", "ignored")

	e := New(nil, dir)
	migrations, err := e.Discover()
	require.NoError(t, err)
	require.Len(t, migrations, 2)
	assert.Equal(t, int64(1), migrations[0].Version)
	assert.Equal(t, "init", migrations[0].Name)
	assert.Equal(t, int64(2), migrations[1].Version)
	assert.Equal(t, "add_index", migrations[1].Name)
}

func TestAddScaffoldsNextVersion(t *testing.T) {
	dir := t.TempDir()
	writeMigration(t, dir, "0001_init.sql", "CREATE TABLE y (z INT);")

	e := New(nil, dir)
	m, err := e.Add("Add Wallet Index")
	require.NoError(t, err)
	assert.Equal(t, int64(2), m.Version)
	assert.Equal(t, "add_wallet_index", m.Name)

	contents, err := os.ReadFile(m.Path)
	require.NoError(t, err)
	assert.Contains(t, string(contents), "version: 2")
}

func TestAddFirstMigrationStartsAtOne(t *testing.T) {
	dir := t.TempDir()
	e := New(nil, dir)
	m, err := e.Add("init")
	require.NoError(t, err)
	assert.Equal(t, int64(1), m.Version)
}

func TestMigrateAppliesOnlyPending(t *testing.T) {
	dir := t.TempDir()
	writeMigration(t, dir, "0001_init.sql", "CREATE TABLE foo (id INT);")
	writeMigration(t, dir, "0002_add_bar.sql", "ALTER TABLE foo ADD COLUMN bar TEXT;")

	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS schema_migrations").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT version FROM schema_migrations").
		WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow(1))

	mock.ExpectBegin()
	mock.ExpectExec("ALTER TABLE foo ADD COLUMN bar TEXT").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO schema_migrations").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	e := New(db, dir)
	require.NoError(t, e.Migrate(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "add_wallet_index", slugify("Add Wallet Index"))
	assert.Equal(t, "foo_bar", slugify("  foo__bar!! "))
}
