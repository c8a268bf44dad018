package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/openhrx/fieldgate/modules/fieldperm/domain/types"
	"github.com/openhrx/fieldgate/modules/fieldperm/infrastructure/persistence"
	"github.com/openhrx/fieldgate/modules/fieldperm/services"
	"github.com/openhrx/fieldgate/pkg/authz"
)

func main() {
	if len(os.Args) < 2 {
		fatalf("usage: fieldtool <resolve|grants-smoke> [args]")
	}

	switch os.Args[1] {
	case "resolve":
		resolve(os.Args[2:])
	case "grants-smoke":
		grantsSmoke(os.Args[2:])
	default:
		fatalf("unknown subcommand: %s", os.Args[1])
	}
}

// resolve answers one (subject, model, field) question from the casbin
// policy files, for checking rule configuration before deploying it.
func resolve(args []string) {
	fs := flag.NewFlagSet("resolve", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	var (
		modelPath  string
		policyPath string
		subjectID  string
		role       string
		model      string
		field      string
	)
	fs.StringVar(&modelPath, "model-conf", "config/access/model.conf", "casbin model path")
	fs.StringVar(&policyPath, "policy", "config/access/policy.csv", "casbin policy path")
	fs.StringVar(&subjectID, "subject", "", "subject id")
	fs.StringVar(&role, "role", "", "subject role slug")
	fs.StringVar(&model, "model", "", "model key")
	fs.StringVar(&field, "field", "", "field name")
	if err := fs.Parse(args); err != nil {
		fatal(err)
	}
	if subjectID == "" || model == "" || field == "" {
		fatalf("missing --subject/--model/--field")
	}

	store, err := authz.NewStore(modelPath, policyPath, authz.ModeEnforce)
	if err != nil {
		fatal(err)
	}

	rs, err := types.NewRuleSetBuilder(model).Nominate(field).Build()
	if err != nil {
		fatal(err)
	}
	registry, err := types.NewRegistry(rs)
	if err != nil {
		fatal(err)
	}

	resolver := services.NewResolver(store, registry, false)
	target := cliTarget{model: strings.ToLower(strings.TrimSpace(model))}
	subject := types.Principal{ID: subjectID, Role: role}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	allowed, err := resolver.Resolve(ctx, target, subject, field)
	if err != nil {
		fatal(err)
	}
	if allowed {
		fmt.Printf("allow: %s may change %s.%s\n", subject.SubjectID(), target.ModelKey(), field)
		return
	}
	fmt.Printf("deny: %s may not change %s.%s\n", subject.SubjectID(), target.ModelKey(), field)
	os.Exit(1)
}

// grantsSmoke verifies the fieldperm.grants table is reachable and answers
// a lookup for the given subject.
func grantsSmoke(args []string) {
	fs := flag.NewFlagSet("grants-smoke", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	var (
		url       string
		tenantID  string
		subjectID string
	)
	fs.StringVar(&url, "url", "", "postgres connection string")
	fs.StringVar(&tenantID, "tenant", "", "tenant id")
	fs.StringVar(&subjectID, "subject", "", "subject id")
	if err := fs.Parse(args); err != nil {
		fatal(err)
	}
	if url == "" || subjectID == "" {
		fatalf("missing --url/--subject")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		fatal(err)
	}
	defer pool.Close()

	store := persistence.NewGrantPGStore(pool, tenantID)
	labels, err := store.ListLabels(ctx, subjectID)
	if err != nil {
		fatal(err)
	}
	fmt.Printf("subject %s holds %d grant(s)\n", subjectID, len(labels))
	for _, label := range labels {
		fmt.Println("  " + label)
	}
}

type cliTarget struct {
	model string
}

func (t cliTarget) ModelKey() string { return t.model }

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "fieldtool:", err)
	os.Exit(2)
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "fieldtool: "+format+"\n", args...)
	os.Exit(2)
}
