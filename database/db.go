package database

import (
	"database/sql"
	"log"
	"sync"

	"github.com/edupay/fincore/cache"
	"github.com/edupay/fincore/config"
)

// Declare a package-level variable to hold the singleton instance.
// Ensure the instance is not accessible outside the package.
var instance *Datasource
var once sync.Once

type Datasource struct {
	Conn  *sql.DB
	Cache cache.Cache
}

func NewDataSource(configuration *config.Configuration) (IDataSource, error) {
	con, err := GetDBConnection(configuration)
	if err != nil {
		return nil, err
	}
	return con, nil
}

// GetDBConnection provides a global access point to the instance and initializes it if it's not already.
func GetDBConnection(configuration *config.Configuration) (*Datasource, error) {
	var err error
	once.Do(func() {
		con, errConn := ConnectDB(configuration.DataSource.Dns)
		if errConn != nil {
			err = errConn
			return
		}
		ca, errCache := cache.NewCache()
		if errCache != nil {
			err = errCache
			return
		}
		instance = &Datasource{Conn: con, Cache: ca}
	})
	if err != nil {
		return nil, err
	}
	return instance, nil
}

func ConnectDB(dns string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dns)
	if err != nil {
		return nil, err
	}
	err = db.Ping()
	if err != nil {
		log.Printf("database connection error: %v", err)
		return nil, err
	}
	err = createAccountTable(db)
	if err != nil {
		return nil, err
	}
	err = createTransactionTable(db)
	if err != nil {
		return nil, err
	}
	err = createConversionTable(db)
	if err != nil {
		return nil, err
	}
	err = createRevenueShareTable(db)
	if err != nil {
		return nil, err
	}
	err = createReservationTable(db)
	if err != nil {
		return nil, err
	}
	err = createVerificationAttemptTable(db)
	if err != nil {
		return nil, err
	}
	return db, nil
}

// createAccountTable creates a PostgreSQL table for the Account struct.
// The balance column is a cache over the transactions table; it is only
// written in the same SQL transaction as the log row explaining the change.
func createAccountTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS accounts (
			id SERIAL PRIMARY KEY,
			account_id TEXT NOT NULL UNIQUE,
			principal_id TEXT NOT NULL,
			principal_kind TEXT NOT NULL,
			currency TEXT NOT NULL,
			balance NUMERIC(20,2) NOT NULL DEFAULT 0 CHECK (balance >= 0),
			version BIGINT NOT NULL DEFAULT 1,
			created_at TIMESTAMP NOT NULL DEFAULT NOW(),
			UNIQUE (principal_id, principal_kind, currency)
		)
	`)
	if err != nil {
		log.Printf("Error creating accounts table: %v", err)
	}
	return err
}

// createTransactionTable creates a PostgreSQL table for the Transaction
// struct. The partial unique index on reference is the idempotency guard for
// retried external events.
func createTransactionTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS transactions (
			id SERIAL PRIMARY KEY,
			transaction_id TEXT NOT NULL UNIQUE,
			principal_id TEXT NOT NULL,
			principal_kind TEXT NOT NULL,
			currency TEXT NOT NULL,
			amount NUMERIC(20,2) NOT NULL CHECK (amount > 0),
			kind TEXT NOT NULL CHECK (kind IN ('credit', 'debit')),
			balance_after NUMERIC(20,2) NOT NULL,
			reference TEXT,
			note TEXT,
			created_at TIMESTAMP NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		log.Printf("Error creating transactions table: %v", err)
		return err
	}
	_, err = db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS transactions_reference_key
		ON transactions (reference) WHERE reference <> ''
	`)
	if err != nil {
		log.Printf("Error creating transactions reference index: %v", err)
	}
	return err
}

// createConversionTable creates a PostgreSQL table for the Conversion struct
func createConversionTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS conversions (
			id SERIAL PRIMARY KEY,
			conversion_id TEXT NOT NULL UNIQUE,
			principal_id TEXT NOT NULL,
			principal_kind TEXT NOT NULL,
			from_currency TEXT NOT NULL,
			to_currency TEXT NOT NULL,
			from_amount NUMERIC(20,2) NOT NULL,
			to_amount NUMERIC(20,2) NOT NULL,
			rate NUMERIC(24,8) NOT NULL,
			fee NUMERIC(20,2) NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		log.Printf("Error creating conversions table: %v", err)
	}
	return err
}

// createRevenueShareTable creates a PostgreSQL table for the RevenueShare struct
func createRevenueShareTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS revenue_shares (
			id SERIAL PRIMARY KEY,
			share_id TEXT NOT NULL UNIQUE,
			sale_reference TEXT NOT NULL UNIQUE,
			principal_id TEXT NOT NULL,
			principal_kind TEXT NOT NULL,
			gross_amount NUMERIC(20,2) NOT NULL,
			commission_rate NUMERIC(5,2) NOT NULL,
			platform_share NUMERIC(20,2) NOT NULL,
			seller_share NUMERIC(20,2) NOT NULL,
			currency TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		log.Printf("Error creating revenue_shares table: %v", err)
	}
	return err
}

// createReservationTable creates a PostgreSQL table for the Reservation struct
func createReservationTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS reservations (
			id SERIAL PRIMARY KEY,
			reservation_id TEXT NOT NULL UNIQUE,
			principal_id TEXT NOT NULL,
			principal_kind TEXT NOT NULL,
			resource_type TEXT NOT NULL,
			reserved_amount NUMERIC(20,2) NOT NULL CHECK (reserved_amount > 0),
			consumed_amount NUMERIC(20,2) NOT NULL DEFAULT 0,
			refunded_amount NUMERIC(20,2) NOT NULL DEFAULT 0,
			status TEXT NOT NULL CHECK (status IN ('reserved', 'consumed', 'refunded', 'partially_refunded')),
			unlimited BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMP NOT NULL DEFAULT NOW(),
			resolved_at TIMESTAMP
		)
	`)
	if err != nil {
		log.Printf("Error creating reservations table: %v", err)
	}
	return err
}

// createVerificationAttemptTable creates a PostgreSQL table tracking
// gateway verification attempts that did not settle.
func createVerificationAttemptTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS verification_attempts (
			id SERIAL PRIMARY KEY,
			reference TEXT NOT NULL UNIQUE,
			attempts INT NOT NULL DEFAULT 1,
			last_status TEXT NOT NULL,
			last_checked_at TIMESTAMP NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		log.Printf("Error creating verification_attempts table: %v", err)
	}
	return err
}
