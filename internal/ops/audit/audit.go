// Package audit checks that database tables follow the project naming
// convention. Every table this service owns carries a common prefix so
// it can coexist with other services in a shared database.
package audit

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"
)

// Table describes one audited table.
type Table struct {
	Schema string
	Name   string
	// Compliant is true when the name carries the expected prefix.
	Compliant bool
}

// SchemaReport lists the audit outcome for one schema.
type SchemaReport struct {
	Schema string
	Tables []Table
}

// Violations counts the non-compliant tables in the report.
func (r SchemaReport) Violations() int {
	n := 0
	for _, t := range r.Tables {
		if !t.Compliant {
			n++
		}
	}
	return n
}

// Auditor scans pg_catalog for tables missing the expected prefix.
type Auditor struct {
	pool   *pgxpool.Pool
	prefix string
}

// New returns an Auditor that flags tables not starting with prefix.
func New(pool *pgxpool.Pool, prefix string) *Auditor {
	return &Auditor{pool: pool, prefix: prefix}
}

// Audit scans the given schemas concurrently and returns one report per
// schema, ordered by schema name.
func (a *Auditor) Audit(ctx context.Context, schemas []string) ([]SchemaReport, error) {
	reports := make([]SchemaReport, len(schemas))

	g, ctx := errgroup.WithContext(ctx)
	for i, schema := range schemas {
		g.Go(func() error {
			report, err := a.auditSchema(ctx, schema)
			if err != nil {
				return fmt.Errorf("audit schema %s: %w", schema, err)
			}
			reports[i] = report
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(reports, func(i, j int) bool { return reports[i].Schema < reports[j].Schema })
	return reports, nil
}

func (a *Auditor) auditSchema(ctx context.Context, schema string) (SchemaReport, error) {
	report := SchemaReport{Schema: schema}

	rows, err := a.pool.Query(ctx, `
		SELECT c.relname
		FROM pg_catalog.pg_class c
		JOIN pg_catalog.pg_namespace n ON n.oid = c.relnamespace
		WHERE n.nspname = $1 AND c.relkind = 'r'
		ORDER BY c.relname`, schema)
	if err != nil {
		return report, err
	}
	defer rows.Close()

	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return report, err
		}
		report.Tables = append(report.Tables, Table{
			Schema:    schema,
			Name:      name,
			Compliant: strings.HasPrefix(name, a.prefix),
		})
	}
	return report, rows.Err()
}

// WriteReport renders the audit outcome as an aligned text table.
func WriteReport(w io.Writer, prefix string, reports []SchemaReport) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SCHEMA\tTABLE\tSTATUS")
	total := 0
	for _, r := range reports {
		for _, t := range r.Tables {
			status := "ok"
			if !t.Compliant {
				status = "missing prefix " + prefix
				total++
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\n", t.Schema, t.Name, status)
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if total > 0 {
		fmt.Fprintf(w, "\n%d table(s) violate the %q prefix convention\n", total, prefix)
	}
	return nil
}
