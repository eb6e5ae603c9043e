// Command propql-explain compiles a filter definition and prints the
// resulting SQL expression. It serves as a development aid for inspecting
// what a stored filter turns into.
//
// Examples:
//
//	propql-explain -filter '{"key":"$browser","value":"Chrome"}'
//	propql-explain -scope person -filter '[{"key":"email","operator":"icontains","value":"@example.com"}]'
//	propql-explain -expr 'properties.$browser = "Chrome" and event != "$pageview"'
//	propql-explain -db catalog.db -team 2 -entity-action 42
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	propql "github.com/nlstn/go-propql"
	"github.com/nlstn/go-propql/ast"
	"github.com/nlstn/go-propql/timings"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func main() {
	var (
		teamID       = flag.Int("team", 1, "team id to compile for")
		scope        = flag.String("scope", "event", "compilation scope: event, person, session, replay, replay_entity")
		filterJSON   = flag.String("filter", "", "filter definition as JSON (object, list, or group)")
		exprInput    = flag.String("expr", "", "expression string to parse instead of a JSON filter")
		entityEvent  = flag.String("entity-event", "", "compile an event entity with this event name")
		entityAction = flag.Int("entity-action", 0, "compile an action entity with this action id")
		dbPath       = flag.String("db", "", "sqlite catalog database (omit for an empty in-memory catalog)")
		dsn          = flag.String("dsn", "", "postgres catalog DSN, overrides -db")
		testAccounts = flag.Bool("test-accounts", false, "also compile the team's test account filters")
		showTimings  = flag.Bool("timings", false, "print phase timings after compiling")
	)
	flag.Parse()

	if *exprInput != "" {
		expr, err := propql.ParseExpr(*exprInput)
		if err != nil {
			log.Fatal("parse failed: ", err)
		}
		printExpr("expr", expr)
		return
	}

	compiler, recorder, err := buildCompiler(*teamID, *dbPath, *dsn)
	if err != nil {
		log.Fatal(err)
	}

	compiled := false

	if *filterJSON != "" {
		var input any
		if err := json.Unmarshal([]byte(*filterJSON), &input); err != nil {
			log.Fatal("invalid -filter JSON: ", err)
		}
		expr, err := compiler.PropertyToExpr(input, propql.Scope(*scope))
		if err != nil {
			log.Fatal("compile failed: ", err)
		}
		printExpr("filter", expr)
		compiled = true
	}

	if *entityEvent != "" || *entityAction != 0 {
		entity := propql.Entity{Kind: propql.EntityEvent, Event: entityEvent}
		if *entityAction != 0 {
			entity = propql.Entity{Kind: propql.EntityAction, ActionID: *entityAction}
		}
		expr, err := compiler.EntityToExpr(entity)
		if err != nil {
			log.Fatal("entity compile failed: ", err)
		}
		printExpr("entity", expr)
		compiled = true
	}

	if *testAccounts {
		expr, err := compiler.TestAccountFiltersExpr()
		if err != nil {
			log.Fatal("test account filters failed: ", err)
		}
		printExpr("test_accounts", expr)
		compiled = true
	}

	if !compiled {
		flag.Usage()
		os.Exit(2)
	}

	if *showTimings {
		for phase, seconds := range recorder.ToMap() {
			fmt.Printf("%-40s %.6fs\n", phase, seconds)
		}
	}
}

func buildCompiler(teamID int, dbPath, dsn string) (*propql.Compiler, *timings.Timings, error) {
	recorder := timings.New()
	team := &propql.Team{ID: teamID}

	opts := []propql.Option{
		propql.WithTimings(recorder),
		propql.WithStores(propql.NewMemoryStores().Stores()),
	}

	var dialector gorm.Dialector
	switch {
	case dsn != "":
		dialector = postgres.Open(dsn)
	case dbPath != "":
		dialector = sqlite.Open(dbPath)
	}

	if dialector != nil {
		db, err := gorm.Open(dialector, &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		})
		if err != nil {
			return nil, nil, fmt.Errorf("open catalog: %w", err)
		}
		if err := db.First(team, teamID).Error; err != nil {
			return nil, nil, fmt.Errorf("load team %d: %w", teamID, err)
		}
		opts = []propql.Option{
			propql.WithTimings(recorder),
			propql.WithDB(db),
		}
	}

	compiler, err := propql.New(team, opts...)
	if err != nil {
		return nil, nil, err
	}
	return compiler, recorder, nil
}

func printExpr(label string, expr ast.Expr) {
	sql, err := ast.Print(expr)
	if err != nil {
		log.Fatal("print failed: ", err)
	}
	fmt.Printf("%s: %s\n", label, sql)
}
