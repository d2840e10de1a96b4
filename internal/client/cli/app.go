package cli

import (
	"bufio"
	"context"
	"database/sql"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/dkovalev/assetvault/internal/client/cache"
	"github.com/dkovalev/assetvault/internal/client/config"
	"github.com/dkovalev/assetvault/internal/client/models"
	"github.com/dkovalev/assetvault/internal/client/reconcile"
	"github.com/dkovalev/assetvault/internal/client/registry"
	"github.com/dkovalev/assetvault/internal/client/scan"
	"github.com/dkovalev/assetvault/internal/filex"
	"github.com/dkovalev/assetvault/internal/hashx"
	"github.com/dkovalev/assetvault/internal/logging"
)

type App struct {
	config     *config.Config
	db         *sql.DB
	cache      cache.Cache
	registry   *registry.HTTPClient
	hasher     *hashx.Pool
	reconciler *reconcile.Reconciler
	scanner    *scan.Scanner
	reader     *bufio.Reader
	out        io.Writer
	userName   string
}

func NewApp(c *config.Config) (*App, error) {

	ctx := context.Background()

	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	dbPath := c.CachePath
	if !filepath.IsAbs(dbPath) {
		dir, err := filex.EnsureSubdDir("data")
		if err != nil {
			return nil, err
		}
		dbPath = filepath.Join(dir, dbPath)
	}

	db, err := cache.Open(ctx, dbPath)
	if err != nil {
		return nil, err
	}

	store := cache.NewSQLiteCache(db, logger)
	reg := registry.NewHTTPClient(c.ServerURL, nil)
	pool := hashx.NewPool(c.HashWorkers)
	rec := reconcile.New(store, reg, pool, logger, models.OpenOptions{})

	return &App{
		config:     c,
		db:         db,
		cache:      store,
		registry:   reg,
		hasher:     pool,
		reconciler: rec,
		scanner:    scan.NewScanner(store),
		reader:     bufio.NewReader(os.Stdin),
		out:        os.Stdout,
	}, nil
}

func (a *App) isLoggedIn() bool {
	return a.registry.Token() != ""
}

func (a *App) Close() {
	a.hasher.Close()
	_ = a.db.Close()
}

func (a *App) Run(ctx context.Context) {
	defer a.Close()
	scanner := bufio.NewScanner(os.Stdin)
	runREPL(ctx, a, a.statusLine, scanner)
}

func (a *App) statusLine() string {
	if a.isLoggedIn() {
		return a.userName
	}
	return "not logged in"
}
