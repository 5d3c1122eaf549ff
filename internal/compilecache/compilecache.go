// Package compilecache is the on-disk cache of compiled artifact
// bundles, keyed by a hash of the job that produced them (rig, plan,
// template library, presets, audio content hash). The render paths store
// each finished render here but do not consult the cache before
// compiling, so re-running the same job still runs C1-C5. Grounded on
// the teacher's internal/storage/db.go (WAL-mode SQLite, embedded
// numbered migrations) and blobs.go's content-addressed get/put shape,
// retargeted from audio waveform/embedding blobs to JSON-serialized
// render artifacts.
package compilecache

import (
	"crypto/sha256"
	"database/sql"
	"embed"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/cartomix/twinklr/internal/compiler"
	"github.com/cartomix/twinklr/internal/report"
	"github.com/cartomix/twinklr/internal/xsq"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// DB wraps the SQLite-backed compile cache.
type DB struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens (creating if absent) the cache database under dataDir and
// applies any pending migrations.
func Open(dataDir string, logger *slog.Logger) (*DB, error) {
	if logger == nil {
		logger = slog.Default()
	}
	path := filepath.Join(dataDir, "compilecache.db")

	sqlDB, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=ON")
	if err != nil {
		return nil, fmt.Errorf("compilecache: open %s: %w", path, err)
	}
	if _, err := sqlDB.Exec("PRAGMA journal_mode=WAL"); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("compilecache: enable WAL: %w", err)
	}

	store := &DB{db: sqlDB, logger: logger}
	if err := store.migrate(); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (d *DB) Close() error {
	return d.db.Close()
}

func (d *DB) migrate() error {
	if _, err := d.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		return fmt.Errorf("compilecache: create migrations table: %w", err)
	}

	var current int
	if err := d.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&current); err != nil {
		return fmt.Errorf("compilecache: read schema version: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("compilecache: read migrations: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		var version int
		if _, err := fmt.Sscanf(entry.Name(), "%d_", &version); err != nil || version <= current {
			continue
		}
		content, err := migrationsFS.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return fmt.Errorf("compilecache: read migration %s: %w", entry.Name(), err)
		}
		d.logger.Info("compilecache: applying migration", "version", version, "file", entry.Name())
		if _, err := d.db.Exec(string(content)); err != nil {
			return fmt.Errorf("compilecache: apply migration %s: %w", entry.Name(), err)
		}
		if _, err := d.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("compilecache: record migration %s: %w", entry.Name(), err)
		}
	}
	return nil
}

// Key hashes everything that determines a render's output: the job file's
// raw bytes (rig, templates, presets, plan) plus the audio collaborator's
// content hash, so any change to either invalidates the cache entry.
func Key(jobBytes []byte, audioContentHash string) string {
	h := sha256.New()
	h.Write(jobBytes)
	h.Write([]byte(audioContentHash))
	return hex.EncodeToString(h.Sum(nil))
}

// Entry is one cached compile result.
type Entry struct {
	PlanHash  string
	MediaFile string
	Document  xsq.Document
	Segments  []compiler.Segment
	Report    report.ComplianceReport
	CreatedAt time.Time
}

// Get looks up a cached entry by plan hash. The bool is false on a clean
// miss (not an error).
func (d *DB) Get(planHash string) (*Entry, bool, error) {
	row := d.db.QueryRow(`
		SELECT media_file, document_json, segments_json, report_json, created_at
		FROM compile_cache WHERE plan_hash = ?
	`, planHash)

	var mediaFile string
	var documentJSON, segmentsJSON, reportJSON []byte
	var createdAt time.Time

	err := row.Scan(&mediaFile, &documentJSON, &segmentsJSON, &reportJSON, &createdAt)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("compilecache: get %s: %w", planHash, err)
	}

	var e Entry
	e.PlanHash = planHash
	e.MediaFile = mediaFile
	e.CreatedAt = createdAt
	if err := json.Unmarshal(documentJSON, &e.Document); err != nil {
		return nil, false, fmt.Errorf("compilecache: decode document: %w", err)
	}
	if err := json.Unmarshal(segmentsJSON, &e.Segments); err != nil {
		return nil, false, fmt.Errorf("compilecache: decode segments: %w", err)
	}
	if err := json.Unmarshal(reportJSON, &e.Report); err != nil {
		return nil, false, fmt.Errorf("compilecache: decode report: %w", err)
	}
	return &e, true, nil
}

// Put stores (or replaces) a compile result under planHash.
func (d *DB) Put(planHash, mediaFile string, doc xsq.Document, segments []compiler.Segment, rpt report.ComplianceReport) error {
	documentJSON, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("compilecache: encode document: %w", err)
	}
	segmentsJSON, err := json.Marshal(segments)
	if err != nil {
		return fmt.Errorf("compilecache: encode segments: %w", err)
	}
	reportJSON, err := json.Marshal(rpt)
	if err != nil {
		return fmt.Errorf("compilecache: encode report: %w", err)
	}

	_, err = d.db.Exec(`
		INSERT INTO compile_cache (plan_hash, media_file, document_json, segments_json, report_json)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(plan_hash) DO UPDATE SET
			media_file = excluded.media_file,
			document_json = excluded.document_json,
			segments_json = excluded.segments_json,
			report_json = excluded.report_json,
			created_at = CURRENT_TIMESTAMP
	`, planHash, mediaFile, documentJSON, segmentsJSON, reportJSON)
	if err != nil {
		return fmt.Errorf("compilecache: put %s: %w", planHash, err)
	}
	return nil
}
