// Command migrate applies, reverts and inspects schema migrations.
//
//	migrate up
//	migrate down [N]
//	migrate status
//	migrate new <name>
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"go-gin-gorm-users/internal/core/config"
	"go-gin-gorm-users/internal/core/database"
	"go-gin-gorm-users/internal/core/logger"
	"go-gin-gorm-users/internal/core/migrate"
	"go-gin-gorm-users/internal/migrations"
)

const usage = `usage: migrate [-config file] <command>

commands:
  up          apply every pending migration
  down [N]    revert the newest N migrations (default 1)
  status      list migrations and whether they are applied
  new <name>  print a stub for the next migration
`

func main() {
	_ = godotenv.Load()
	configPath := flag.String("config", "", "YAML config file (defaults to CONFIG_PATH)")
	flag.Usage = func() { fmt.Fprint(flag.CommandLine.Output(), usage) }
	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	if flag.Arg(0) == "new" {
		if err := scaffold(flag.Args()[1:]); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log, cleanup := logger.New(logger.FromConfig(cfg.Log))
	defer cleanup()

	db, err := database.NewGorm(database.OptsFromConfig(cfg.DB))
	if err != nil {
		log.Fatal("db open", zap.Error(err))
	}
	defer func() { _ = database.Close(db) }()

	m, err := migrate.New(db, log, migrations.All()...)
	if err != nil {
		log.Fatal("migrations", zap.Error(err))
	}
	if err := run(context.Background(), m, flag.Args()); err != nil {
		log.Error("migrate failed", zap.Error(err))
		cleanup()
		os.Exit(1)
	}
}

func run(ctx context.Context, m *migrate.Migrator, args []string) error {
	switch args[0] {
	case "up":
		ran, err := m.Up(ctx)
		fmt.Printf("applied %d migration(s)\n", len(ran))
		return err
	case "down":
		steps := 1
		if len(args) > 1 {
			n, err := strconv.Atoi(args[1])
			if err != nil || n < 1 {
				return fmt.Errorf("down: %q is not a positive number", args[1])
			}
			steps = n
		}
		reverted, err := m.Down(ctx, steps)
		fmt.Printf("reverted %d migration(s)\n", len(reverted))
		return err
	case "status":
		st, err := m.Status(ctx)
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "VERSION\tNAME\tAPPLIED")
		for _, s := range st {
			applied := "pending"
			if s.Applied {
				applied = s.AppliedAt.Format(time.RFC3339)
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\n", s.Version, s.Name, applied)
		}
		return tw.Flush()
	}
	return fmt.Errorf("unknown command %q\n%s", args[0], usage)
}

var nameRe = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

func scaffold(args []string) error {
	if len(args) != 1 || !nameRe.MatchString(args[0]) {
		return errors.New("new: want one snake_case name, e.g. migrate new add_users_last_login")
	}
	fmt.Printf(`// add to internal/migrations.All()
{
	Version: %q,
	Name:    %q,
	Up: func(tx *gorm.DB) error {
		return nil
	},
	Down: func(tx *gorm.DB) error {
		return nil
	},
},
`, migrate.NextVersion(time.Now()), args[0])
	return nil
}
