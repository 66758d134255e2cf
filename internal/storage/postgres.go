package storage

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"strings"

	_ "github.com/lib/pq"

	"github.com/xaenox/watt-guardian/internal/telemetry"
)

//go:embed migrations.sql
var migrations embed.FS

const sampleColumns = 5

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// PostgresArchive appends tick samples and notifications to PostgreSQL.
// It is write-only: nothing is read back into the simulation.
type PostgresArchive struct {
	db *sql.DB
}

func NewPostgresArchive(config DatabaseConfig) (*PostgresArchive, error) {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		config.Host, config.Port, config.User, config.Password, config.DBName, config.SSLMode)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("error connecting to the database: %w", err)
	}

	archive, err := NewPostgresArchiveFromDB(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return archive, nil
}

// NewPostgresArchiveFromDB wraps an open handle and applies the schema.
func NewPostgresArchiveFromDB(db *sql.DB) (*PostgresArchive, error) {
	archive := &PostgresArchive{db: db}
	if err := archive.initializeSchema(); err != nil {
		return nil, fmt.Errorf("error initializing database schema: %w", err)
	}
	return archive, nil
}

func (s *PostgresArchive) initializeSchema() error {
	migrationSQL, err := migrations.ReadFile("migrations.sql")
	if err != nil {
		return fmt.Errorf("error reading migrations file: %w", err)
	}

	if _, err := s.db.Exec(string(migrationSQL)); err != nil {
		return fmt.Errorf("error executing migrations: %w", err)
	}
	return nil
}

func (s *PostgresArchive) Name() string { return "postgres" }

// Write stores one telemetry event. All samples of a tick go in a single
// statement.
func (s *PostgresArchive) Write(ctx context.Context, ev telemetry.Event) error {
	switch ev.Kind {
	case telemetry.EventSamples:
		return s.insertSamples(ctx, ev.Samples)
	case telemetry.EventNotification:
		if ev.Notification == nil {
			return nil
		}
		n := ev.Notification
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO notifications (id, title, message, type, ts)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (id) DO NOTHING`,
			n.ID, n.Title, n.Message, string(n.Type), n.Timestamp)
		if err != nil {
			return fmt.Errorf("error archiving notification %d: %w", n.ID, err)
		}
		return nil
	default:
		return nil
	}
}

func (s *PostgresArchive) insertSamples(ctx context.Context, samples []telemetry.Sample) error {
	if len(samples) == 0 {
		return nil
	}

	var query strings.Builder
	query.WriteString("INSERT INTO energy_entries (appliance_id, appliance_name, ts, energy_kwh, power_kw) VALUES ")
	args := make([]any, 0, len(samples)*sampleColumns)
	for i, sample := range samples {
		if i > 0 {
			query.WriteString(", ")
		}
		base := i * sampleColumns
		fmt.Fprintf(&query, "($%d, $%d, $%d, $%d, $%d)", base+1, base+2, base+3, base+4, base+5)
		args = append(args,
			sample.ApplianceID,
			sample.ApplianceName,
			sample.Entry.Timestamp,
			sample.Entry.EnergyKWh,
			sample.Entry.PowerKW,
		)
	}

	if _, err := s.db.ExecContext(ctx, query.String(), args...); err != nil {
		return fmt.Errorf("error archiving %d samples: %w", len(samples), err)
	}
	return nil
}

func (s *PostgresArchive) Close() error {
	return s.db.Close()
}
