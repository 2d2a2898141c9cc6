// Command tableaudit scans database schemas for tables missing the
// project naming prefix and exits non-zero when violations exist.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rcarraroia/renum/internal/config"
	"github.com/rcarraroia/renum/internal/ops/audit"
)

func main() {
	fs := flag.NewFlagSet("tableaudit", flag.ExitOnError)
	prefix := fs.String("prefix", "renum_", "required table name prefix")
	schemaList := fs.String("schemas", "public", "comma-separated schemas to scan")
	dsn := fs.String("dsn", "", "database DSN (defaults to service config)")
	_ = fs.Parse(os.Args[1:])

	violations, err := run(*prefix, *schemaList, *dsn)
	if err != nil {
		fmt.Fprintf(os.Stderr, "tableaudit: %v\n", err)
		os.Exit(1)
	}
	if violations > 0 {
		os.Exit(1)
	}
}

func run(prefix, schemaList, dsn string) (int, error) {
	if dsn == "" {
		cfg, err := config.Load()
		if err != nil {
			return 0, fmt.Errorf("load config: %w", err)
		}
		dsn = cfg.Postgres.DSN
	}

	var schemas []string
	for _, s := range strings.Split(schemaList, ",") {
		if s = strings.TrimSpace(s); s != "" {
			schemas = append(schemas, s)
		}
	}
	if len(schemas) == 0 {
		return 0, fmt.Errorf("no schemas given")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return 0, fmt.Errorf("connect: %w", err)
	}
	defer pool.Close()

	reports, err := audit.New(pool, prefix).Audit(ctx, schemas)
	if err != nil {
		return 0, err
	}

	if err := audit.WriteReport(os.Stdout, prefix, reports); err != nil {
		return 0, err
	}

	violations := 0
	for _, r := range reports {
		violations += r.Violations()
	}
	return violations, nil
}
