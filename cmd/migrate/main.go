package main

import (
	"database/sql"
	"flag"
	"fmt"
	"log"

	"snapbuzz/pkg/config"
	"snapbuzz/pkg/database"

	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
)

func main() {
	var (
		dir     = flag.String("dir", "migrations", "directory with migration files")
		command = flag.String("command", "up", "migration command (up, down, status, create)")
		name    = flag.String("name", "", "name for new migration (used with create command)")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if *command == "create" {
		if *name == "" {
			log.Fatal("Name is required for create command")
		}
		if err := goose.Create(nil, *dir, *name, "sql"); err != nil {
			log.Fatalf("Failed to create migration: %v", err)
		}
		fmt.Printf("Created migration: %s\n", *name)
		return
	}

	db, err := sql.Open("postgres", database.DSN(cfg))
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	if err := goose.SetDialect("postgres"); err != nil {
		log.Fatalf("Failed to set dialect: %v", err)
	}

	if err := run(db, *command, *dir); err != nil {
		log.Fatalf("Migration %s failed: %v", *command, err)
	}
}

func run(db *sql.DB, command, dir string) error {
	switch command {
	case "up":
		if err := goose.Up(db, dir); err != nil {
			return err
		}
		fmt.Println("Migrations applied successfully")
	case "down":
		if err := goose.Down(db, dir); err != nil {
			return err
		}
		fmt.Println("Migrations rolled back successfully")
	case "status":
		return goose.Status(db, dir)
	default:
		return fmt.Errorf("unknown command: %s", command)
	}
	return nil
}
