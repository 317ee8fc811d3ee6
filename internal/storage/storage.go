// Package storage persists the whole address book. The default destination is a single SQLite
// file; a MySQL server can be used instead.
package storage

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"gitlab.com/dirk.krummacker/contacts-assistant/internal/logger"
	"gitlab.com/dirk.krummacker/contacts-assistant/internal/model"
)

// Supported database drivers.
const (
	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"
)

// schema creates the tables if they are missing. The statements are valid for SQLite and MySQL.
var schema = []string{`
	CREATE TABLE IF NOT EXISTS contacts (
		id       INTEGER      NOT NULL PRIMARY KEY,
		name     VARCHAR(255) NOT NULL,
		birthday VARCHAR(10)  NULL
	)`, `
	CREATE TABLE IF NOT EXISTS phones (
		contact_id INTEGER     NOT NULL,
		seq        INTEGER     NOT NULL,
		number     VARCHAR(10) NOT NULL,
		PRIMARY KEY (contact_id, seq)
	)`,
}

const (
	insertContact = `
		INSERT INTO contacts (id, name, birthday)
		VALUES (:id, :name, :birthday)`
	insertPhone = `
		INSERT INTO phones (contact_id, seq, number)
		VALUES (?, ?, ?)`
	selectContacts = `
		SELECT id, name, birthday FROM contacts ORDER BY id`
	selectPhones = `
		SELECT contact_id, seq, number FROM phones ORDER BY contact_id, seq`
)

// contactRow is a row of the contacts table. The id is the position of the contact in the
// address book.
type contactRow struct {
	Id       int64   `db:"id"`
	Name     string  `db:"name"`
	Birthday *string `db:"birthday"`
}

// phoneRow is a row of the phones table. Seq is the position of the phone within its contact.
type phoneRow struct {
	ContactId int64  `db:"contact_id"`
	Seq       int    `db:"seq"`
	Number    string `db:"number"`
}

// Store reads and writes the address book through a sqlx database handle.
type Store struct {
	db  *sqlx.DB
	log *logger.Logger
}

// NewStore wraps the sql database. The database can be a SQLite file, a MySQL server, or a mock
// database within unit tests.
func NewStore(sqlDB *sql.DB, driver string, log *logger.Logger) *Store {
	bindName := driver
	if driver == DriverSQLite {
		// sqlx knows the bind type of SQLite under the name of the cgo driver.
		bindName = "sqlite3"
	}
	return &Store{db: sqlx.NewDb(sqlDB, bindName), log: log}
}

// CreateDatabase returns a connection to the MySQL server at host (host:port). The database
// itself has to exist already; the tables are created by Migrate.
func CreateDatabase(user, password, host, database string) (*sql.DB, error) {
	cfg := mysql.NewConfig()
	cfg.User = user
	cfg.Passwd = password
	cfg.Net = "tcp"
	cfg.Addr = host
	cfg.DBName = database
	sqlDB, err := sql.Open(DriverMySQL, cfg.FormatDSN())
	if err != nil {
		return nil, fmt.Errorf("storage: opening mysql: %w", err)
	}
	return sqlDB, nil
}

// Close closes the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Migrate creates the tables that do not exist yet.
func (s *Store) Migrate(ctx context.Context) error {
	for _, statement := range schema {
		if _, err := s.db.ExecContext(ctx, statement); err != nil {
			return fmt.Errorf("storage: creating schema: %w", err)
		}
	}
	return nil
}

// Save replaces the stored address book by dir. Everything happens in one transaction, so a
// failed save leaves the previous content in place.
func (s *Store) Save(ctx context.Context, dir *model.Directory) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage: beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM phones"); err != nil {
		return fmt.Errorf("storage: clearing phones: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM contacts"); err != nil {
		return fmt.Errorf("storage: clearing contacts: %w", err)
	}
	var id int64
	for name, record := range dir.All() {
		row := contactRow{Id: id, Name: name}
		if b, ok := record.Birthday(); ok {
			text := b.String()
			row.Birthday = &text
		}
		if _, err := tx.NamedExecContext(ctx, insertContact, &row); err != nil {
			return fmt.Errorf("storage: writing contact '%s': %w", name, err)
		}
		for seq, phone := range record.Phones() {
			if _, err := tx.ExecContext(ctx, insertPhone, id, seq, phone.String()); err != nil {
				return fmt.Errorf("storage: writing phone of contact '%s': %w", name, err)
			}
		}
		id++
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage: committing: %w", err)
	}
	s.log.Debug("address book saved", "contacts", dir.Len())
	return nil
}

// Load reads the stored address book. Every stored value is validated again, so a tampered
// database is reported instead of producing invalid records.
func (s *Store) Load(ctx context.Context) (*model.Directory, error) {
	var contacts []contactRow
	if err := s.db.SelectContext(ctx, &contacts, selectContacts); err != nil {
		return nil, fmt.Errorf("storage: reading contacts: %w", err)
	}
	var phones []phoneRow
	if err := s.db.SelectContext(ctx, &phones, selectPhones); err != nil {
		return nil, fmt.Errorf("storage: reading phones: %w", err)
	}
	numbers := make(map[int64][]string, len(contacts))
	for _, p := range phones {
		numbers[p.ContactId] = append(numbers[p.ContactId], p.Number)
	}

	dir := model.NewDirectory()
	for _, c := range contacts {
		record, err := model.NewRecord(c.Name, numbers[c.Id]...)
		if err != nil {
			return nil, fmt.Errorf("storage: contact %d: %w", c.Id, err)
		}
		if c.Birthday != nil {
			if err := record.SetBirthday(*c.Birthday); err != nil {
				return nil, fmt.Errorf("storage: contact %d: %w", c.Id, err)
			}
		}
		dir.AddRecord(record)
	}
	s.log.Debug("address book loaded", "contacts", dir.Len())
	return dir, nil
}

// ExecScript executes the SQL statements read from r, for example to seed a new database.
// Statements may span several lines and end with a line containing a semicolon.
func (s *Store) ExecScript(ctx context.Context, r io.Reader) error {
	scanner := bufio.NewScanner(r)
	builder := strings.Builder{}
	count := 0
	for scanner.Scan() {
		line := scanner.Text()
		builder.WriteString(line)
		builder.WriteString(" ")
		if strings.Contains(line, ";") {
			if _, err := s.db.ExecContext(ctx, builder.String()); err != nil {
				return fmt.Errorf("storage: executing statement %d: %w", count+1, err)
			}
			count++
			builder = strings.Builder{}
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("storage: reading script: %w", err)
	}
	if rest := strings.TrimSpace(builder.String()); rest != "" {
		return fmt.Errorf("storage: statement %d is not terminated by a semicolon", count+1)
	}
	s.log.Info("script executed", "statements", count)
	return nil
}

// FileStore keeps the address book in a single SQLite file.
type FileStore struct {
	path string
	log  *logger.Logger
}

// NewFileStore returns a FileStore for the file at path. The file is not touched until Load or
// Save is called.
func NewFileStore(path string, log *logger.Logger) *FileStore {
	return &FileStore{path: path, log: log}
}

// Path returns the location of the file.
func (f *FileStore) Path() string {
	return f.path
}

// Load reads the address book from the file. A file that does not exist yields an empty address
// book and is not created.
func (f *FileStore) Load(ctx context.Context) (*model.Directory, error) {
	if _, err := os.Stat(f.path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			f.log.Info("no address book found, starting empty", "path", f.path)
			return model.NewDirectory(), nil
		}
		return nil, fmt.Errorf("storage: %w", err)
	}
	var dir *model.Directory
	err := f.withStore(ctx, func(s *Store) error {
		var err error
		dir, err = s.Load(ctx)
		return err
	})
	return dir, err
}

// Save writes the address book to the file, replacing its previous content.
func (f *FileStore) Save(ctx context.Context, dir *model.Directory) error {
	return f.withStore(ctx, func(s *Store) error {
		return s.Save(ctx, dir)
	})
}

// Migrate creates the file and its tables if they do not exist yet.
func (f *FileStore) Migrate(ctx context.Context) error {
	return f.withStore(ctx, func(*Store) error { return nil })
}

// ExecScript executes the SQL statements read from r against the file.
func (f *FileStore) ExecScript(ctx context.Context, r io.Reader) error {
	return f.withStore(ctx, func(s *Store) error {
		return s.ExecScript(ctx, r)
	})
}

// withStore opens the file, makes sure the tables exist and runs fn.
func (f *FileStore) withStore(ctx context.Context, fn func(*Store) error) (err error) {
	dsn, err := fileDSN(f.path)
	if err != nil {
		return fmt.Errorf("storage: %s: %w", f.path, err)
	}
	sqlDB, err := sql.Open(DriverSQLite, dsn)
	if err != nil {
		return fmt.Errorf("storage: opening %s: %w", f.path, err)
	}
	s := NewStore(sqlDB, DriverSQLite, f.log.With("path", f.path))
	defer func() {
		if closeErr := s.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("storage: closing %s: %w", f.path, closeErr)
		}
	}()
	if err := s.Migrate(ctx); err != nil {
		return fmt.Errorf("storage: %s: %w", f.path, err)
	}
	return fn(s)
}

// fileDSN turns the path into a file URI. Characters like '?' and '#' are escaped, so they are
// part of the file name and not taken as connection parameters.
func fileDSN(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	slashed := filepath.ToSlash(abs)
	if !strings.HasPrefix(slashed, "/") {
		slashed = "/" + slashed
	}
	return (&url.URL{Scheme: "file", Path: slashed}).String(), nil
}

// LoadFile reads the address book stored at path.
func LoadFile(ctx context.Context, path string) (*model.Directory, error) {
	return NewFileStore(path, logger.NewNop()).Load(ctx)
}

// SaveFile stores the address book at path.
func SaveFile(ctx context.Context, dir *model.Directory, path string) error {
	return NewFileStore(path, logger.NewNop()).Save(ctx, dir)
}
