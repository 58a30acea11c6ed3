package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/andrebq/lostminer/internal/logutil"
	"github.com/cespare/xxhash/v2"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"
)

type (
	// ContentModel selects which uniqueness/ownership rules apply to contents.
	//
	// CompositeUnique: (name, version) is unique and deleting an author
	// deletes their contents.
	//
	// IndependentUnique: name and version are each unique and an author
	// with contents cannot be deleted.
	ContentModel string

	Options struct {
		ContentModel ContentModel
		// Clock is used to stamp created_at columns, defaults to time.Now
		Clock func() time.Time
	}

	Store struct {
		db    *sql.DB
		model ContentModel
		now   func() time.Time
	}
)

const (
	CompositeUnique   = ContentModel("composite")
	IndependentUnique = ContentModel("independent")

	databaseFile = "lostminer.db"
)

var (
	//go:embed migrations/*.sql
	migrations embed.FS

	// goose keeps its configuration in package level variables
	migrateMu sync.Mutex

	contentModelIndexes = map[ContentModel][]uniqueDef{
		CompositeUnique: {
			{name: "uidx_contents_name_version", columns: []string{"name", "version"}},
		},
		IndependentUnique: {
			{name: "uidx_contents_name", columns: []string{"name"}},
			{name: "uidx_contents_version", columns: []string{"version"}},
		},
	}
)

func ParseContentModel(s string) (ContentModel, error) {
	switch m := ContentModel(strings.ToLower(strings.TrimSpace(s))); m {
	case CompositeUnique, IndependentUnique:
		return m, nil
	case "":
		return CompositeUnique, nil
	}
	return "", InvalidContentModel{Model: s}
}

func openDatabase(ctx context.Context, dir string) (*sql.DB, error) {
	err := os.MkdirAll(dir, 0755)
	if err != nil {
		return nil, fmt.Errorf("unable to create directory %v to store the database, cause %w", dir, err)
	}
	file := filepath.Join(dir, databaseFile)
	connstr := fmt.Sprintf("file:%v?_journal=wal&_foreign_keys=on&_busy_timeout=5000&mode=rwc", file)
	conn, err := sql.Open("sqlite3", connstr)
	if err != nil {
		return nil, fmt.Errorf("unable to open %v, cause %v", file, err)
	}
	err = conn.PingContext(ctx)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("unable to ping database %v, cause %v", file, err)
	}
	return conn, nil
}

// Open loads (creating if needed) the database kept under dir and brings
// its schema up to date.
func Open(ctx context.Context, dir string, opts Options) (*Store, error) {
	if opts.ContentModel == "" {
		opts.ContentModel = CompositeUnique
	}
	if _, ok := contentModelIndexes[opts.ContentModel]; !ok {
		return nil, InvalidContentModel{Model: string(opts.ContentModel)}
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	conn, err := openDatabase(ctx, dir)
	if err != nil {
		return nil, err
	}
	s := &Store{db: conn, model: opts.ContentModel, now: opts.Clock}
	err = s.init(ctx)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("unable to init database at %v, cause %w", dir, err)
	}
	return s, nil
}

func (s *Store) init(ctx context.Context) error {
	err := s.migrate(ctx)
	if err != nil {
		return err
	}
	return s.applyContentModel(ctx)
}

func (s *Store) migrate(ctx context.Context) error {
	migrateMu.Lock()
	defer migrateMu.Unlock()
	goose.SetBaseFS(migrations)
	goose.SetLogger(logutil.GooseLogger(logutil.GetOrDefault(ctx)))
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("unable to configure migrations, cause %w", err)
	}
	if err := goose.UpContext(ctx, s.db, "migrations"); err != nil {
		return fmt.Errorf("unable to run migrations, cause %w", err)
	}
	return nil
}

// applyContentModel creates the unique indexes of the selected model, refusing
// to proceed if the contents table carries a unique index of the other one.
func (s *Store) applyContentModel(ctx context.Context) error {
	td, err := loadTableDef(ctx, s.db, "contents")
	if err != nil {
		return fmt.Errorf("unable to inspect contents table, cause %w", err)
	}
	for model, indexes := range contentModelIndexes {
		if model == s.model {
			continue
		}
		for _, idx := range indexes {
			if td.hasUniqueColumns(idx.columns) {
				return ContentModelMismatch{Configured: s.model, Found: model}
			}
		}
	}
	for _, idx := range contentModelIndexes[s.model] {
		if td.hasUniqueColumns(idx.columns) {
			continue
		}
		_, err := s.db.ExecContext(ctx, idx.createStmt(td.name))
		if err != nil {
			return fmt.Errorf("unable to apply content model %v, cause %w", s.model, err)
		}
	}
	return nil
}

func (s *Store) ContentModel() ContentModel {
	return s.model
}

func (s *Store) Users() *Users {
	return &Users{db: s.db, model: s.model}
}

func (s *Store) Connections() *Connections {
	return &Connections{db: s.db, now: s.now}
}

func (s *Store) Contents() *Contents {
	return &Contents{db: s.db, now: s.now}
}

func (s *Store) Comments() *Comments {
	return &Comments{db: s.db, now: s.now}
}

func (s *Store) Close() error {
	return s.db.Close()
}

func hashURL(u string) int64 {
	return int64(xxhash.Sum64String(u))
}

func toUnix(t time.Time) int64 {
	return t.UTC().UnixNano()
}

func fromUnix(n int64) time.Time {
	return time.Unix(0, n).UTC()
}
