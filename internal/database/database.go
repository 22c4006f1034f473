package database

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	log "github.com/sirupsen/logrus"
)

// Service represents a service that interacts with a database.
type Service interface {
	// Health returns a map of health status information.
	// The keys and values in the map are service-specific.
	Health() map[string]string

	// Close terminates the database connection.
	// It returns an error if the connection cannot be closed.
	Close() error
}

type service struct {
	db *sql.DB
}

// NewPostgres opens the transactional connection pool. The change-feed
// listener does NOT use this pool; it holds its own dedicated connection so
// slow broadcast consumers never contend with settlement transactions.
func NewPostgres(databaseURL string) (*sql.DB, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	return db, nil
}

func New(db *sql.DB) Service {
	return &service{db: db}
}

// Health checks the health of the database connection by pinging the database.
// It returns a map with keys indicating various health statistics.
func (s *service) Health() map[string]string {
	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	stats := make(map[string]string)

	err := s.db.PingContext(ctx)
	if err != nil {
		stats["status"] = "down"
		stats["error"] = fmt.Sprintf("db down: %v", err)
		return stats
	}

	stats["status"] = "up"
	stats["message"] = "It's healthy"

	dbStats := s.db.Stats()
	stats["open_connections"] = strconv.Itoa(dbStats.OpenConnections)
	stats["in_use"] = strconv.Itoa(dbStats.InUse)
	stats["idle"] = strconv.Itoa(dbStats.Idle)
	stats["wait_count"] = strconv.FormatInt(dbStats.WaitCount, 10)
	stats["wait_duration"] = dbStats.WaitDuration.String()
	stats["max_idle_closed"] = strconv.FormatInt(dbStats.MaxIdleClosed, 10)
	stats["max_lifetime_closed"] = strconv.FormatInt(dbStats.MaxLifetimeClosed, 10)

	if dbStats.OpenConnections > 40 {
		stats["message"] = "The database is experiencing heavy load."
	}
	if dbStats.WaitCount > 1000 {
		stats["message"] = "The database has a high number of wait events, indicating potential bottlenecks."
	}

	return stats
}

// Close closes the database connection.
func (s *service) Close() error {
	log.Info("Disconnected from database")
	return s.db.Close()
}

// Init creates tables and the campaign change-feed trigger. Idempotent, so it
// runs unconditionally at startup.
func Init(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS campaigns (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			title VARCHAR(255) NOT NULL,
			description TEXT NOT NULL,
			target_amount DECIMAL(12,2) NOT NULL,
			raised_amount DECIMAL(12,2) DEFAULT 0,
			creator_name VARCHAR(255) NOT NULL,
			creator_email VARCHAR(255),
			creator_phone VARCHAR(15),
			creator_pan VARCHAR(10),
			ngo_name VARCHAR(255),
			ngo_address TEXT,
			ngo_website VARCHAR(255),
			image VARCHAR(255) NOT NULL,
			end_date TIMESTAMP NOT NULL,
			supporters INTEGER DEFAULT 0,
			location VARCHAR(255),
			category VARCHAR(100),
			status VARCHAR(50) DEFAULT 'pending',
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS donations (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			campaign_id UUID REFERENCES campaigns(id) ON DELETE CASCADE,
			donor_name VARCHAR(255) NOT NULL,
			donor_pan VARCHAR(10),
			donor_email VARCHAR(255),
			anonymous BOOLEAN DEFAULT FALSE,
			amount DECIMAL(12,2) NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			razorpay_order_id VARCHAR(255) UNIQUE,
			razorpay_payment_id VARCHAR(255) UNIQUE,
			status VARCHAR(50) DEFAULT 'pending'
		)`,
		`CREATE TABLE IF NOT EXISTS users (
			id UUID PRIMARY KEY,
			full_name TEXT,
			email TEXT UNIQUE NOT NULL,
			password_hash TEXT NOT NULL,
			user_type TEXT NOT NULL DEFAULT 'user',
			account_type TEXT,
			mobile_number VARCHAR(15),
			ngo_id VARCHAR(100),
			dob DATE,
			address TEXT,
			city TEXT,
			pincode VARCHAR(10),
			country TEXT,
			occupation TEXT
		)`,
		// The trigger fires on the actual row mutation, not on the application
		// call, so even a manual UPDATE of raised_amount still propagates to
		// connected viewers.
		`CREATE OR REPLACE FUNCTION notify_campaign_update()
		RETURNS TRIGGER AS $$
		DECLARE
			campaign_data JSON;
		BEGIN
			SELECT json_build_object(
				'id', NEW.id,
				'raised_amount', NEW.raised_amount,
				'target_amount', NEW.target_amount,
				'supporters', NEW.supporters
			) INTO campaign_data;
			PERFORM pg_notify('campaign_updates', campaign_data::text);
			RETURN NEW;
		END;
		$$ LANGUAGE plpgsql`,
		`DO $$
		BEGIN
			IF NOT EXISTS (SELECT 1 FROM pg_trigger WHERE tgname = 'campaign_update_trigger') THEN
				CREATE TRIGGER campaign_update_trigger
				AFTER UPDATE OF raised_amount ON campaigns
				FOR EACH ROW
				EXECUTE FUNCTION notify_campaign_update();
			END IF;
		END;
		$$`,
	}

	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}

	log.Info("Database tables and triggers initialized")
	return nil
}
