package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"

	"gitlab.com/dirk.krummacker/contacts-assistant/internal/assistant"
	"gitlab.com/dirk.krummacker/contacts-assistant/internal/config"
	"gitlab.com/dirk.krummacker/contacts-assistant/internal/logger"
	"gitlab.com/dirk.krummacker/contacts-assistant/internal/model"
	"gitlab.com/dirk.krummacker/contacts-assistant/internal/service"
	"gitlab.com/dirk.krummacker/contacts-assistant/internal/storage"
)

var version = "dev"

// Globals are the flags shared by all commands.
type Globals struct {
	Config string `help:"Path of the YAML configuration file." default:"assistant.yaml" type:"path"`
	Book   string `help:"Path of the SQLite address book file." type:"path"`
	Driver string `help:"Storage backend, sqlite or mysql."`
}

// CLI is the top-level command structure of the assistant.
type CLI struct {
	Globals

	Version   kong.VersionFlag `help:"Show version." short:"V"`
	Chat      ChatCmd          `cmd:"" default:"1" help:"Talk to the assistant on the console (default)."`
	Serve     ServeCmd         `cmd:"" help:"Serve the address book over HTTP."`
	Birthdays BirthdaysCmd     `cmd:"" help:"Print the upcoming birthdays and exit."`
	Migrate   MigrateCmd       `cmd:"" help:"Create the tables of the address book and optionally run a SQL script."`
}

// ChatCmd runs the command loop on stdin and stdout.
type ChatCmd struct{}

// ServeCmd runs the HTTP interface until interrupted.
type ServeCmd struct {
	Address string `help:"Address to listen on, overrides server.address."`
}

// BirthdaysCmd prints the birthdays report.
type BirthdaysCmd struct {
	Days int `help:"Number of days to look ahead, overrides birthdays.window_days." default:"-1"`
}

// MigrateCmd creates the schema of the configured database.
type MigrateCmd struct {
	File string `help:"SQL script to execute after the tables were created." type:"existingfile"`
}

// bookStore is where the address book is loaded from and saved to.
type bookStore interface {
	Load(ctx context.Context) (*model.Directory, error)
	Save(ctx context.Context, dir *model.Directory) error
	Migrate(ctx context.Context) error
	ExecScript(ctx context.Context, r io.Reader) error
}

// environment holds everything a command needs.
type environment struct {
	cfg   *config.Config
	log   *logger.Logger
	store bookStore
	close func() error
}

// setup loads the configuration with env and flag overrides, builds the logger and opens the
// store.
func setup(ctx context.Context, g *Globals) (*environment, error) {
	cfg, err := loadConfig(g)
	if err != nil {
		return nil, err
	}
	log, err := logger.New(cfg.Log.Mode)
	if err != nil {
		return nil, err
	}
	store, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		log.Sync()
		return nil, err
	}
	return &environment{cfg: cfg, log: log, store: store, close: closeStore}, nil
}

// shutdown closes the store and flushes the logger.
func (e *environment) shutdown() {
	if err := e.close(); err != nil {
		e.log.Warn("closing address book failed", "error", err)
	}
	e.log.Sync()
}

// loadConfig reads the config file and applies env and flag overrides in this order.
func loadConfig(g *Globals) (*config.Config, error) {
	cfg, err := config.Load(g.Config)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if g.Book != "" {
		cfg.Book.Path = g.Book
	}
	if g.Driver != "" {
		cfg.Book.Driver = g.Driver
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openStore returns the store of the configured driver and a function to release it. The tables
// of a MySQL database are created if missing; a SQLite file takes care of that itself.
func openStore(ctx context.Context, cfg *config.Config, log *logger.Logger) (bookStore, func() error, error) {
	switch cfg.Book.Driver {
	case storage.DriverMySQL:
		mysqlCfg := cfg.Book.MySQL
		sqlDB, err := storage.CreateDatabase(mysqlCfg.User, mysqlCfg.Password, mysqlCfg.Host, mysqlCfg.Database)
		if err != nil {
			return nil, nil, err
		}
		store := storage.NewStore(sqlDB, storage.DriverMySQL, log.With("host", mysqlCfg.Host))
		if err := store.Migrate(ctx); err != nil {
			store.Close()
			return nil, nil, err
		}
		return store, store.Close, nil
	default:
		return storage.NewFileStore(cfg.Book.Path, log), func() error { return nil }, nil
	}
}

// Run executes the chat command. The address book is saved when the session ends normally.
func (c *ChatCmd) Run(g *Globals) error {
	ctx := context.Background()
	env, err := setup(ctx, g)
	if err != nil {
		return fmt.Errorf("chat: %w", err)
	}
	defer env.shutdown()

	book, err := env.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("chat: %w", err)
	}
	env.log.Info("address book loaded", "contacts", book.Len())

	a := assistant.New(book,
		assistant.WithWindow(env.cfg.Birthdays.WindowDays),
		assistant.WithLogger(env.log),
		assistant.WithSaver(func(d *model.Directory) error {
			return env.store.Save(ctx, d)
		}),
	)
	if err := a.Run(ctx, os.Stdin, os.Stdout); err != nil {
		return fmt.Errorf("chat: %w", err)
	}
	if err := env.store.Save(ctx, book); err != nil {
		return fmt.Errorf("chat: %w", err)
	}
	env.log.Info("address book saved", "contacts", book.Len())
	return nil
}

// Run executes the serve command. Every change is saved right away; the server stops on
// SIGINT or SIGTERM.
func (s *ServeCmd) Run(g *Globals) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	env, err := setup(ctx, g)
	if err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	defer env.shutdown()
	if s.Address != "" {
		env.cfg.Server.Address = s.Address
	}

	book, err := env.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("serve: %w", err)
	}

	svc := service.New(book, service.Options{
		Window: env.cfg.Birthdays.WindowDays,
		Log:    env.log,
		Save: func(d *model.Directory) error {
			return env.store.Save(context.Background(), d)
		},
	})
	server := &http.Server{
		Addr:              env.cfg.Server.Address,
		Handler:           svc.SetupHttpRouter(env.cfg.Server.Logging),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		env.log.Info("listening", "address", server.Addr, "contacts", book.Len())
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}
	env.log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}

// Run executes the birthdays command.
func (b *BirthdaysCmd) Run(g *Globals) error {
	ctx := context.Background()
	env, err := setup(ctx, g)
	if err != nil {
		return fmt.Errorf("birthdays: %w", err)
	}
	defer env.shutdown()

	book, err := env.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("birthdays: %w", err)
	}
	window := env.cfg.Birthdays.WindowDays
	if b.Days >= 0 {
		window = b.Days
	}
	return printBirthdays(os.Stdout, book, window)
}

// printBirthdays writes the reply of the birthdays command for book.
func printBirthdays(w io.Writer, book *model.Directory, window int) error {
	reply, err := assistant.New(book, assistant.WithWindow(window)).Dispatch("birthdays")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, reply.Message)
	return err
}

// Run executes the migrate command.
func (m *MigrateCmd) Run(g *Globals) error {
	ctx := context.Background()
	env, err := setup(ctx, g)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	defer env.shutdown()

	if err := env.store.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	if m.File == "" {
		return nil
	}
	script, err := os.Open(m.File) // nosemgrep
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	defer script.Close()
	if err := env.store.ExecScript(ctx, script); err != nil {
		return fmt.Errorf("migrate: %s: %w", m.File, err)
	}
	return nil
}

// Usage examples on the command line:
// > go run ./cmd/assistant
// > go run ./cmd/assistant --book=friends.db birthdays --days=30
// > PORT=8080 GIN_LOGGING=OFF go run ./cmd/assistant serve
// > DBHOST=localhost DBUSER=dirk DBPWD=secret go run ./cmd/assistant --driver=mysql migrate --file=scripts/database.sql
func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("assistant"),
		kong.Description("A personal assistant for contacts, phone numbers and birthdays."),
		kong.Vars{"version": version},
	)
	if err := ctx.Run(&cli.Globals); err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
		os.Exit(1)
	}
}
