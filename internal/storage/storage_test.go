package storage

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/dirk.krummacker/contacts-assistant/internal/logger"
	"gitlab.com/dirk.krummacker/contacts-assistant/internal/model"
)

// createMockObjects builds a mock database handle and a mock object for defining our expected SQL
// calls.
func createMockObjects(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	return db, mock
}

// contact is a comparable snapshot of a record.
type contact struct {
	Name     string
	Phones   []string
	Birthday string
}

// snapshot converts the directory into plain values in iteration order.
func snapshot(d *model.Directory) []contact {
	var result []contact
	for name, record := range d.All() {
		c := contact{Name: name}
		for _, p := range record.Phones() {
			c.Phones = append(c.Phones, p.String())
		}
		if b, ok := record.Birthday(); ok {
			c.Birthday = b.String()
		}
		result = append(result, c)
	}
	return result
}

// sampleDirectory builds a directory with two contacts, one of them with a birthday and a
// duplicate phone.
func sampleDirectory(t *testing.T) *model.Directory {
	d := model.NewDirectory()
	erika, err := model.NewRecord("Erika", "2222222222", "1111111111", "2222222222")
	require.NoError(t, err)
	require.NoError(t, erika.SetBirthday("02.03.1969"))
	d.AddRecord(erika)
	rudi, err := model.NewRecord("Rudi")
	require.NoError(t, err)
	d.AddRecord(rudi)
	return d
}

// TestSave saves two contacts. It expects that the tables are cleared and that contacts and
// phones are written in order within one transaction.
func TestSave(t *testing.T) {
	db, mock := createMockObjects(t)
	defer db.Close()

	// Define expectations on SQL statements
	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM phones").WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec("DELETE FROM contacts").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO contacts").
		WithArgs(0, "Erika", "02.03.1969").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO phones").
		WithArgs(0, 0, "2222222222").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO phones").
		WithArgs(0, 1, "1111111111").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO phones").
		WithArgs(0, 2, "2222222222").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO contacts").
		WithArgs(1, "Rudi", nil).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	store := NewStore(db, DriverSQLite, logger.NewNop())
	require.NoError(t, store.Save(context.Background(), sampleDirectory(t)))
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("there were unfulfilled expectations: %s", err)
	}
}

// TestSaveFailure lets an insert fail. It expects that the error is returned and the
// transaction is rolled back.
func TestSaveFailure(t *testing.T) {
	db, mock := createMockObjects(t)
	defer db.Close()

	// Define expectations on SQL statements
	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM phones").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DELETE FROM contacts").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO contacts").WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	store := NewStore(db, DriverMySQL, logger.NewNop())
	err := store.Save(context.Background(), sampleDirectory(t))
	assert.ErrorContains(t, err, "disk full")
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("there were unfulfilled expectations: %s", err)
	}
}

// TestLoad reads two contacts and their phones. It expects the contacts in id order and the
// phones in sequence order.
func TestLoad(t *testing.T) {
	db, mock := createMockObjects(t)
	defer db.Close()

	// Define expectations on SQL statements
	mock.ExpectQuery("SELECT id, name, birthday FROM contacts").
		WillReturnRows(mock.NewRows([]string{"id", "name", "birthday"}).
			AddRow(0, "Erika", "02.03.1969").
			AddRow(1, "Rudi", nil))
	mock.ExpectQuery("SELECT contact_id, seq, number FROM phones").
		WillReturnRows(mock.NewRows([]string{"contact_id", "seq", "number"}).
			AddRow(0, 0, "2222222222").
			AddRow(0, 1, "1111111111").
			AddRow(0, 2, "2222222222"))

	store := NewStore(db, DriverSQLite, logger.NewNop())
	dir, err := store.Load(context.Background())
	require.NoError(t, err)
	if diff := cmp.Diff(snapshot(sampleDirectory(t)), snapshot(dir)); diff != "" {
		t.Errorf("loaded directory mismatch (-want +got):\n%s", diff)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("there were unfulfilled expectations: %s", err)
	}
}

// TestLoadInvalidValues reads a phone and a birthday that do not pass validation. It expects
// that loading fails with ErrInvalidFormat.
func TestLoadInvalidValues(t *testing.T) {
	tests := []struct {
		birthday interface{}
		number   string
	}{
		{birthday: nil, number: "0815"},
		{birthday: "30.02.1969", number: "1111111111"},
	}
	for _, tt := range tests {
		db, mock := createMockObjects(t)
		defer db.Close()

		// Define expectations on SQL statements
		mock.ExpectQuery("SELECT id, name, birthday FROM contacts").
			WillReturnRows(mock.NewRows([]string{"id", "name", "birthday"}).
				AddRow(0, "Erika", tt.birthday))
		mock.ExpectQuery("SELECT contact_id, seq, number FROM phones").
			WillReturnRows(mock.NewRows([]string{"contact_id", "seq", "number"}).
				AddRow(0, 0, tt.number))

		store := NewStore(db, DriverSQLite, logger.NewNop())
		_, err := store.Load(context.Background())
		assert.ErrorIs(t, err, model.ErrInvalidFormat)
	}
}

// TestLoadQueryError expects that a failing query is reported.
func TestLoadQueryError(t *testing.T) {
	db, mock := createMockObjects(t)
	defer db.Close()

	mock.ExpectQuery("SELECT id, name, birthday FROM contacts").
		WillReturnError(errors.New("connection refused"))

	store := NewStore(db, DriverMySQL, logger.NewNop())
	_, err := store.Load(context.Background())
	assert.ErrorContains(t, err, "connection refused")
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("there were unfulfilled expectations: %s", err)
	}
}

// TestMigrate expects that both tables are created if missing.
func TestMigrate(t *testing.T) {
	db, mock := createMockObjects(t)
	defer db.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS contacts").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS phones").WillReturnResult(sqlmock.NewResult(0, 0))

	store := NewStore(db, DriverMySQL, logger.NewNop())
	require.NoError(t, store.Migrate(context.Background()))
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("there were unfulfilled expectations: %s", err)
	}
}

// TestFileRoundTrip saves a directory to a SQLite file and loads it again. It expects the same
// names, phones, birthdays and order.
func TestFileRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "addressbook.db")
	want := sampleDirectory(t)

	require.NoError(t, SaveFile(ctx, want, path))
	got, err := LoadFile(ctx, path)
	require.NoError(t, err)
	if diff := cmp.Diff(snapshot(want), snapshot(got)); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
	erika, ok := got.FindRecord("Erika")
	require.True(t, ok)
	b, _ := erika.Birthday()
	assert.Equal(t, 1969, b.Date().Year())
}

// TestFileSaveOverwrites saves two different directories to the same file. It expects that only
// the second one is loaded.
func TestFileSaveOverwrites(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "addressbook.db")
	require.NoError(t, SaveFile(ctx, sampleDirectory(t), path))

	second := model.NewDirectory()
	require.NoError(t, second.AddPhone("Berta", "3333333333"))
	require.NoError(t, SaveFile(ctx, second, path))

	got, err := LoadFile(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, []contact{{Name: "Berta", Phones: []string{"3333333333"}}}, snapshot(got))
}

// TestFileLoadMissing expects an empty directory for a missing file, and that the file is not
// created.
func TestFileLoadMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.db")
	dir, err := LoadFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 0, dir.Len())
	_, err = os.Stat(path)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

// TestFileLoadCorrupt expects that a file which is not a database is reported.
func TestFileLoadCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "addressbook.db")
	require.NoError(t, os.WriteFile(path, bytes.Repeat([]byte("not a database "), 512), 0o644))
	_, err := LoadFile(context.Background(), path)
	assert.Error(t, err)
}

// TestFileSaveEmpty expects that an empty directory can be saved and loaded.
func TestFileSaveEmpty(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "addressbook.db")
	require.NoError(t, SaveFile(ctx, model.NewDirectory(), path))
	dir, err := LoadFile(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, 0, dir.Len())
}

// seedScript inserts one contact with a phone and a birthday.
const seedScript = `
INSERT INTO contacts (id, name, birthday)
	VALUES (0, 'Erika', '02.03.1969');
INSERT INTO phones (contact_id, seq, number) VALUES (0, 0, '1111111111');
`

// TestExecScript executes a script with two statements, one of them spanning two lines. It
// expects one call per statement.
func TestExecScript(t *testing.T) {
	db, mock := createMockObjects(t)
	defer db.Close()

	mock.ExpectExec("INSERT INTO contacts \\(id, name, birthday\\)\\s+VALUES").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO phones").WillReturnResult(sqlmock.NewResult(0, 1))

	store := NewStore(db, DriverMySQL, logger.NewNop())
	require.NoError(t, store.ExecScript(context.Background(), strings.NewReader(seedScript)))
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("there were unfulfilled expectations: %s", err)
	}
}

// TestExecScriptFailures expects that failing and unterminated statements are reported.
func TestExecScriptFailures(t *testing.T) {
	db, mock := createMockObjects(t)
	defer db.Close()
	store := NewStore(db, DriverMySQL, logger.NewNop())

	mock.ExpectExec("DROP TABLE contacts").WillReturnError(errors.New("access denied"))
	err := store.ExecScript(context.Background(), strings.NewReader("DROP TABLE contacts;\n"))
	assert.ErrorContains(t, err, "access denied")

	err = store.ExecScript(context.Background(), strings.NewReader("SELECT 1"))
	assert.ErrorContains(t, err, "not terminated")
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("there were unfulfilled expectations: %s", err)
	}
}

// TestFileMigrateAndSeed creates a new SQLite file, seeds it with a script and loads it. It
// expects the seeded contact.
func TestFileMigrateAndSeed(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "addressbook.db")
	store := NewFileStore(path, logger.NewNop())
	assert.Equal(t, path, store.Path())

	require.NoError(t, store.Migrate(ctx))
	_, err := os.Stat(path)
	require.NoError(t, err)

	require.NoError(t, store.ExecScript(ctx, strings.NewReader(seedScript)))
	dir, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []contact{{Name: "Erika", Phones: []string{"1111111111"}, Birthday: "02.03.1969"}}, snapshot(dir))
}

// TestFileRoundTripSpecialName saves to a file whose name contains URI characters. It expects
// that exactly this file is written and that loading it returns the saved contacts.
func TestFileRoundTripSpecialName(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "book?mode=ro#1.db")
	want := sampleDirectory(t)

	require.NoError(t, SaveFile(ctx, want, path))
	_, err := os.Stat(path)
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "book"))
	assert.True(t, errors.Is(err, os.ErrNotExist))

	got, err := LoadFile(ctx, path)
	require.NoError(t, err)
	if diff := cmp.Diff(snapshot(want), snapshot(got)); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

// TestFileDSN expects that a question mark in the path is escaped in the file URI.
func TestFileDSN(t *testing.T) {
	dsn, err := fileDSN("/data/book?mode=ro.db")
	require.NoError(t, err)
	assert.Equal(t, "file:///data/book%3Fmode=ro.db", dsn)
}
