// Package main provides CLI for identifier pool management.
// Usage: loader load --type claim-ref --tenant <uuid> --env production --file refs.txt
//        loader list --type claim-ref --tenant <uuid> --env production
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"refnum/internal/core/id"
	"refnum/internal/core/scope"
	"refnum/internal/domain/identifiers"
	"refnum/internal/infrastructure/storage/postgres"
	"refnum/internal/infrastructure/storage/postgres/number_repo"
	"refnum/pkg/logger"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	ctx := context.Background()

	switch os.Args[1] {
	case "load":
		loadPool(ctx)
	case "list":
		listPool(ctx)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`Refnum Identifier Pool CLI

Usage:
  loader <command> [options]

Commands:
  load      Bulk-load identifiers into a pool (all-or-nothing)
  list      List available identifiers in a pool
  help      Show this help

Options (load/list):
  --type     Identifier type (required)
  --tenant   Tenant UUID (required)
  --product  Product UUID (optional, omit for tenant-level pools)
  --env      Environment: development|staging|production (required)
  --file     Path to file with one identifier per line (load only)

Environment Variables:
  DATABASE_URL    Connection string (required)

Examples:
  loader load --type green-card --tenant 0192... --env production --file cards.txt
  loader list --type green-card --tenant 0192... --env production`)
}

type poolFlags struct {
	identifierType string
	sc             scope.Scope
	file           string
}

func parsePoolFlags(cmd string, args []string, needFile bool) poolFlags {
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	identifierType := fs.String("type", "", "identifier type")
	tenant := fs.String("tenant", "", "tenant UUID")
	product := fs.String("product", "", "product UUID (optional)")
	env := fs.String("env", "", "environment")
	file := fs.String("file", "", "identifier file")
	_ = fs.Parse(args)

	fail := func(msg string) {
		fmt.Fprintln(os.Stderr, "Error: "+msg)
		fs.Usage()
		os.Exit(1)
	}

	if *identifierType == "" {
		fail("--type is required")
	}
	tenantID, err := id.Parse(*tenant)
	if err != nil {
		fail("--tenant must be a valid UUID")
	}
	environment, err := scope.ParseEnvironment(*env)
	if err != nil {
		fail(err.Error())
	}
	productID := id.Nil()
	if *product != "" {
		if productID, err = id.Parse(*product); err != nil {
			fail("--product must be a valid UUID")
		}
	}
	if needFile && *file == "" {
		fail("--file is required")
	}

	return poolFlags{
		identifierType: *identifierType,
		sc:             scope.New(tenantID, productID, environment),
		file:           *file,
	}
}

func newService(ctx context.Context, log *logger.Logger) (*identifiers.Service, *postgres.Pool) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL is required")
	}

	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(dsn))
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}

	txManager := postgres.NewTxManager(pool)
	repo := number_repo.NewIdentifierRepo(txManager)
	return identifiers.NewService(repo, txManager, log), pool
}

func loadPool(ctx context.Context) {
	log := logger.Default()
	flags := parsePoolFlags("load", os.Args[2:], true)

	idents, err := readIdentifiers(flags.file)
	if err != nil {
		log.Fatalw("failed to read identifier file", "file", flags.file, "error", err)
	}

	svc, pool := newService(ctx, log)
	defer pool.Close()

	if err := svc.LoadPool(ctx, flags.identifierType, flags.sc, idents); err != nil {
		log.Fatalw("pool load rejected", "error", err)
	}
	fmt.Printf("Loaded %d identifiers of type %s into scope %s\n",
		len(idents), flags.identifierType, flags.sc)
}

func listPool(ctx context.Context) {
	log := logger.Default()
	flags := parsePoolFlags("list", os.Args[2:], false)

	svc, pool := newService(ctx, log)
	defer pool.Close()

	idents, err := svc.ListAvailable(ctx, flags.identifierType, flags.sc)
	if err != nil {
		log.Fatalw("failed to list pool", "error", err)
	}

	fmt.Printf("%d available %s identifiers in scope %s\n",
		len(idents), flags.identifierType, flags.sc)
	for _, ident := range idents {
		fmt.Println("  " + ident)
	}
}

func readIdentifiers(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var idents []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		idents = append(idents, line)
	}
	return idents, scanner.Err()
}
