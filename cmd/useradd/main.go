// Command useradd creates a login user in the users table. It reads the same
// environment as the API and takes the password from stdin.
//
//	printf '%s' "$PASSWORD" | useradd -username alice
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"profile-api/internal/auth"
	"profile-api/internal/config"
	"profile-api/internal/users"
	"profile-api/pkg/logger"
	"profile-api/pkg/utils"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	username := flag.String("username", "", "login name of the new user")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}
	log := logger.New(cfg.App.Env)

	password, err := readPassword(os.Stdin)
	if err != nil {
		log.Error("read password failed", "err", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	id, err := run(ctx, cfg, *username, password)
	if err != nil {
		log.Error("create user failed", "username", *username, "err", err)
		os.Exit(1)
	}
	log.Info("user created", "username", *username, "user_id", id)
}

func run(ctx context.Context, cfg config.Config, username, password string) (int64, error) {
	if strings.TrimSpace(username) == "" {
		return 0, errors.New("-username is required")
	}

	hasher := auth.NewPasswordHasher(
		auth.WithAlgorithm(cfg.Password.Algorithm),
		auth.WithBcryptCost(cfg.Password.BcryptCost),
	)
	hash, err := hasher.Hash(password)
	if err != nil {
		return 0, err
	}

	db, err := utils.OpenPostgres(ctx, utils.PostgresDriver, cfg.PostgresDSN(), utils.PostgresPoolConfig{MaxOpenConns: 1})
	if err != nil {
		return 0, err
	}
	defer db.Close()

	store := users.NewPostgresStore(db)
	if err := store.EnsureSchema(ctx); err != nil {
		return 0, err
	}
	return store.Create(ctx, auth.StoredIdentity{
		Username:          username,
		PasswordHash:      hash,
		PasswordChangedAt: time.Now().UTC(),
	})
}

// readPassword takes the first line of r without its line ending.
func readPassword(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return "", fmt.Errorf("empty password on stdin")
	}
	return line, nil
}
