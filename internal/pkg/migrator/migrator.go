package migrator

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/cellsync/cellsync/internal/pkg/metrics"
)

const (
	StatementBreakpoint = "--> statement-breakpoint"
	JournalPath         = "meta/_journal.json"
	StateTable          = "__drizzle_migrations"
)

// MySQL errors that mean the object is already there.
const (
	ErrTableExists     = 1050
	ErrDuplicateColumn = 1060
	ErrDuplicateKey    = 1061
)

type JournalEntry struct {
	Idx         int    `json:"idx"`
	Version     string `json:"version"`
	When        int64  `json:"when"`
	Tag         string `json:"tag"`
	Breakpoints bool   `json:"breakpoints"`
}

type Journal struct {
	Version string         `json:"version"`
	Dialect string         `json:"dialect"`
	Entries []JournalEntry `json:"entries"`
}

type Report struct {
	Applied    []string `json:"applied"`
	Skipped    []string `json:"skipped"`
	Statements int      `json:"statements"`
	Tolerated  int      `json:"tolerated"`
}

type Migrator struct {
	db      *gorm.DB
	metrics *metrics.Metrics
	now     func() time.Time
}

func New(db *gorm.DB, m *metrics.Metrics) *Migrator {
	return &Migrator{db: db, metrics: m, now: time.Now}
}

// Apply runs the migrations found in dir.
func (m *Migrator) Apply(ctx context.Context, dir string) (*Report, error) {
	return m.ApplyFS(ctx, os.DirFS(dir))
}

// ApplyFS applies every pending migration file in journal order, or in
// lexical order when there is no journal. Already-recorded files are skipped
// by content hash. The first non-tolerated statement error aborts the run.
func (m *Migrator) ApplyFS(ctx context.Context, fsys fs.FS) (*Report, error) {
	db := m.db.WithContext(ctx)

	files, err := migrationFiles(fsys)
	if err != nil {
		return nil, err
	}
	log.Infof("[Migrator] found %d migrations", len(files))

	if err := db.Exec("CREATE TABLE IF NOT EXISTS " + StateTable +
		" (id SERIAL PRIMARY KEY, hash text NOT NULL, created_at bigint)").Error; err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", StateTable, err)
	}
	var hashes []string
	if err := db.Table(StateTable).Pluck("hash", &hashes).Error; err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", StateTable, err)
	}
	applied := make(map[string]bool, len(hashes))
	for _, h := range hashes {
		applied[h] = true
	}

	report := &Report{}
	for _, f := range files {
		content, err := fs.ReadFile(fsys, f.name)
		if err != nil {
			return report, fmt.Errorf("failed to read %s: %w", f.name, err)
		}
		sum := sha256.Sum256(content)
		hash := hex.EncodeToString(sum[:])
		if applied[hash] {
			report.Skipped = append(report.Skipped, f.tag)
			continue
		}

		for _, stmt := range SplitStatements(string(content)) {
			report.Statements++
			err := db.Exec(stmt).Error
			switch {
			case err == nil:
				m.metrics.ObserveMigrationStatement("applied")
			case IsAlreadyExists(err):
				report.Tolerated++
				m.metrics.ObserveMigrationStatement("tolerated")
				log.Infof("[Migrator] %s: object already exists, continuing", f.tag)
			default:
				m.metrics.ObserveMigrationStatement("failed")
				return report, fmt.Errorf("migration %s failed at %q: %w", f.tag, preview(stmt), err)
			}
		}

		when := f.when
		if when == 0 {
			when = m.now().UnixMilli()
		}
		if err := db.Exec("INSERT INTO "+StateTable+" (hash, created_at) VALUES (?, ?)", hash, when).Error; err != nil {
			return report, fmt.Errorf("failed to record %s: %w", f.tag, err)
		}
		report.Applied = append(report.Applied, f.tag)
		log.Infof("[Migrator] applied %s", f.tag)
	}
	return report, nil
}

type migrationFile struct {
	name string
	tag  string
	when int64
}

func migrationFiles(fsys fs.FS) ([]migrationFile, error) {
	raw, err := fs.ReadFile(fsys, JournalPath)
	if err == nil {
		var j Journal
		if err := json.Unmarshal(raw, &j); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", JournalPath, err)
		}
		sort.SliceStable(j.Entries, func(a, b int) bool { return j.Entries[a].Idx < j.Entries[b].Idx })
		files := make([]migrationFile, 0, len(j.Entries))
		for _, e := range j.Entries {
			files = append(files, migrationFile{name: e.Tag + ".sql", tag: e.Tag, when: e.When})
		}
		return files, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read %s: %w", JournalPath, err)
	}

	names, err := fs.Glob(fsys, "*.sql")
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	files := make([]migrationFile, 0, len(names))
	for _, n := range names {
		files = append(files, migrationFile{name: n, tag: strings.TrimSuffix(path.Base(n), ".sql")})
	}
	return files, nil
}

// SplitStatements splits a migration on breakpoints and drops blank parts.
func SplitStatements(content string) []string {
	var out []string
	for _, part := range strings.Split(content, StatementBreakpoint) {
		if s := strings.TrimSpace(part); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// IsAlreadyExists reports MySQL "table/column/key already exists" errors.
func IsAlreadyExists(err error) bool {
	var myErr *mysql.MySQLError
	if !errors.As(err, &myErr) {
		return false
	}
	switch myErr.Number {
	case ErrTableExists, ErrDuplicateColumn, ErrDuplicateKey:
		return true
	}
	return false
}

func preview(stmt string) string {
	if len(stmt) > 100 {
		return stmt[:100] + "..."
	}
	return stmt
}
