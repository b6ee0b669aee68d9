package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mcdev12/luckydraw/go/internal/auth"
	"github.com/mcdev12/luckydraw/go/internal/dbconfig"
)

const defaultUsersFile = "go/internal/assets/demo_users.json"

type DemoUser struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func main() {
	ctx := context.Background()

	// 1) Load the demo users
	path := defaultUsersFile
	if len(os.Args) > 1 {
		path = os.Args[1]
	}
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read JSON: %v\n", err)
		os.Exit(1)
	}
	var demo []DemoUser
	if err := json.Unmarshal(data, &demo); err != nil {
		fmt.Fprintf(os.Stderr, "unmarshal JSON: %v\n", err)
		os.Exit(1)
	}

	// 2) Connect using shared dbconfig
	cfg, err := dbconfig.NewConfigFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "db config: %v\n", err)
		os.Exit(1)
	}
	pool, err := pgxpool.New(ctx, cfg.DSN())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to connect: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	// 3) Insert, skipping users that already exist
	total, inserted, skipped, errs := len(demo), 0, 0, 0
	for _, u := range demo {
		hash, err := auth.HashPassword(u.Password)
		if err != nil {
			fmt.Fprintf(os.Stderr, "hash password for %s: %v\n", u.Username, err)
			errs++
			continue
		}
		tag, err := pool.Exec(ctx, `
            INSERT INTO users (id, username, email, password_hash)
            VALUES ($1, $2, $3, $4)
            ON CONFLICT DO NOTHING
        `, uuid.New(), u.Username, u.Email, hash)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error inserting user %s: %v\n", u.Username, err)
			errs++
			continue
		}
		if tag.RowsAffected() == 1 {
			inserted++
		} else {
			skipped++
		}
	}

	fmt.Printf("Users: total=%d inserted=%d skipped=%d errors=%d\n", total, inserted, skipped, errs)
	if errs > 0 {
		os.Exit(1)
	}
}
