package footprint

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"

	"github.com/banshee-data/lidarclass/internal/cloud"
	"github.com/banshee-data/lidarclass/internal/geo"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// DefaultQuery selects live footprints whose envelope intersects the bbox.
// Placeholders are bbox XMin, XMax, YMin, YMax in that order. Deployments
// backed by a PostGIS-style store override this with a `geometry && envelope
// AND NOT destroyed` query.
const DefaultQuery = `SELECT geometry FROM footprints
WHERE xmax >= ? AND xmin <= ? AND ymax >= ? AND ymin <= ? AND NOT destroyed`

// DefaultTimeout bounds the one blocking query issued per tile.
const DefaultTimeout = 30 * time.Second

// DBSource fetches footprints from a vector database through database/sql.
type DBSource struct {
	// DSN is the database location.
	DSN string
	// Query overrides DefaultQuery when set.
	Query string
	// Timeout bounds one Fetch; zero means DefaultTimeout.
	Timeout time.Duration

	db *sql.DB
}

// Open connects and bootstraps the schema. Safe to call once up front; Fetch
// opens lazily otherwise.
func (s *DBSource) Open() error {
	if s.db != nil {
		return nil
	}
	db, err := sql.Open("sqlite", s.DSN)
	if err != nil {
		return fmt.Errorf("%w: open %s: %v", ErrSourceUnavailable, s.DSN, err)
	}
	if err := Bootstrap(db); err != nil {
		db.Close()
		return err
	}
	s.db = db
	return nil
}

// Close releases the connection.
func (s *DBSource) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// Fetch returns the dissolved footprints intersecting bbox. A CRS other than
// the one recorded in the store fails with ErrCrsMismatch.
func (s *DBSource) Fetch(ctx context.Context, bbox cloud.BBox, crs int) (geo.PolygonSet, error) {
	if err := s.Open(); err != nil {
		return geo.PolygonSet{}, err
	}
	timeout := s.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var srid int
	if err := s.db.QueryRowContext(ctx, `SELECT srid FROM footprint_meta LIMIT 1`).Scan(&srid); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return geo.PolygonSet{}, fmt.Errorf("%w: store has no srid recorded", ErrCrsMismatch)
		}
		return geo.PolygonSet{}, fmt.Errorf("%w: read srid: %v", ErrSourceUnavailable, err)
	}
	if srid != crs {
		return geo.PolygonSet{}, fmt.Errorf("%w: store is EPSG:%d, requested EPSG:%d", ErrCrsMismatch, srid, crs)
	}

	query := s.Query
	if query == "" {
		query = DefaultQuery
	}
	rows, err := s.db.QueryContext(ctx, query, bbox.XMin, bbox.XMax, bbox.YMin, bbox.YMax)
	if err != nil {
		return geo.PolygonSet{}, fmt.Errorf("%w: query: %v", ErrSourceUnavailable, err)
	}
	defer rows.Close()

	set := geo.PolygonSet{CRS: crs}
	for rows.Next() {
		var wkt string
		if err := rows.Scan(&wkt); err != nil {
			return geo.PolygonSet{}, fmt.Errorf("%w: scan: %v", ErrSourceUnavailable, err)
		}
		mp, err := geo.ParseWKT(wkt)
		if err != nil {
			return geo.PolygonSet{}, fmt.Errorf("parse footprint geometry: %w", err)
		}
		if len(mp) > 0 {
			set.Features = append(set.Features, mp)
		}
	}
	if err := rows.Err(); err != nil {
		return geo.PolygonSet{}, fmt.Errorf("%w: rows: %v", ErrSourceUnavailable, err)
	}
	return set.Dissolve(), nil
}

// Bootstrap applies the embedded schema migrations.
func Bootstrap(db *sql.DB) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}
	drv, err := sqlite.WithInstance(db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("%w: migration driver: %v", ErrSourceUnavailable, err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", drv)
	if err != nil {
		return fmt.Errorf("init migrations: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate footprint schema: %w", err)
	}
	return nil
}

// SetSRID records the store's spatial reference, once.
func SetSRID(db *sql.DB, srid int) error {
	if _, err := db.Exec(`DELETE FROM footprint_meta`); err != nil {
		return err
	}
	_, err := db.Exec(`INSERT INTO footprint_meta (srid) VALUES (?)`, srid)
	return err
}

// InsertWKT adds one footprint with its precomputed envelope. Used by tests
// and by tooling that mirrors a remote store locally.
func InsertWKT(db *sql.DB, wkt string, destroyed bool) error {
	mp, err := geo.ParseWKT(wkt)
	if err != nil {
		return err
	}
	env := mp.Envelope()
	_, err = db.Exec(
		`INSERT INTO footprints (geometry, xmin, ymin, xmax, ymax, destroyed) VALUES (?, ?, ?, ?, ?, ?)`,
		wkt, env.XMin, env.YMin, env.XMax, env.YMax, destroyed,
	)
	return err
}
