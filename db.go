package main

import (
	"database/sql"
	"log"

	_ "github.com/lib/pq" // PostgreSQL driver
)

// initDB opens the Postgres connection the store and ledger adapters
// share. The schema (users, user_attributes, likes) is created by the
// migration script in the deployment repo.
func initDB(databaseURL string) *sql.DB {
	if databaseURL == "" {
		databaseURL = "user=admin password=password dbname=matchdb sslmode=disable"
		log.Println("Warning: DATABASE_URL not set, using default connection string")
	}

	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		log.Fatal("Error connecting to the database:", err)
	}
	if err := db.Ping(); err != nil {
		log.Fatal("Cannot reach the database:", err)
	}
	log.Println("Database connection established successfully")
	return db
}
