// Command storectl runs back-office maintenance tasks against the store
// database: schema migrations, catalogue seeding and role grants.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"paloma-store/internal/config"
	"paloma-store/internal/database"
	"paloma-store/internal/migrate"
	"paloma-store/internal/model"
	"paloma-store/internal/repository"
	"paloma-store/internal/service"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "storectl",
		Usage: "maintenance tasks for the paloma-store database",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "env-file",
				Usage:   "optional .env file read before the environment",
				EnvVars: []string{"ENV_FILE"},
				Value:   ".env",
			},
		},
		Before: func(c *cli.Context) error {
			return os.Setenv("ENV_FILE", c.String("env-file"))
		},
		Commands: []*cli.Command{
			{
				Name:  "migrate",
				Usage: "apply or revert schema migrations",
				Subcommands: []*cli.Command{
					{Name: "up", Usage: "apply every pending migration", Action: withPool(migrateUp)},
					{Name: "down", Usage: "revert every applied migration", Action: withPool(migrateDown)},
					{Name: "version", Usage: "print the applied schema version", Action: withPool(migrateVersion)},
				},
			},
			{
				Name:      "seed",
				Usage:     "load categories and products from a JSON file",
				ArgsUsage: "<file.json>",
				Action:    withPool(seedCatalogue),
			},
			{
				Name:      "grant-admin",
				Usage:     "give an existing account the admin role",
				ArgsUsage: "<email>",
				Action:    withPool(grantAdmin),
			},
			{
				Name:   "ping",
				Usage:  "check the database connection",
				Action: withPool(ping),
			},
		},
	}
}

// env is what every command runs with.
type env struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// withPool loads configuration, opens the pool and closes it after fn.
func withPool(fn func(c *cli.Context, e env) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		cfg, err := config.LoadForTools()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		// command output goes to stdout, logs stay out of its way
		cfg.Logger.Output = "stderr"
		logger := config.NewLogger(cfg.Logger)

		pool, err := database.NewPool(c.Context, cfg.Database, logger)
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		defer pool.Close()

		return fn(c, env{pool: pool, logger: logger})
	}
}

func migrateUp(c *cli.Context, e env) error {
	if err := migrate.Up(c.Context, e.pool, e.logger); err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, "migrations applied")
	return nil
}

func migrateDown(c *cli.Context, e env) error {
	if err := migrate.Down(c.Context, e.pool, e.logger); err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, "migrations reverted")
	return nil
}

func migrateVersion(c *cli.Context, e env) error {
	version, dirty, err := migrate.Version(c.Context, e.pool, e.logger)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "version %d (dirty: %t)\n", version, dirty)
	return nil
}

func seedCatalogue(c *cli.Context, e env) error {
	if c.NArg() != 1 {
		return cli.Exit("seed takes exactly one file argument", 2)
	}

	f, err := os.Open(c.Args().First())
	if err != nil {
		return fmt.Errorf("failed to open seed file: %w", err)
	}
	defer f.Close()

	file, err := readSeed(f)
	if err != nil {
		return err
	}

	productRepo := repository.NewProductRepository(e.pool, e.logger)
	categories := service.NewCategoryService(repository.NewCategoryRepository(e.pool, e.logger), productRepo, e.logger)
	products := service.NewProductService(productRepo, e.logger)

	res, err := seed(c.Context, file, categories, products, e.logger)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "categories created: %d, existing: %d, products created: %d\n",
		res.CategoriesCreated, res.CategoriesExisting, res.ProductsCreated)
	return nil
}

func grantAdmin(c *cli.Context, e env) error {
	if c.NArg() != 1 {
		return cli.Exit("grant-admin takes exactly one e-mail argument", 2)
	}

	auth := service.NewAuthService(repository.NewUserRepository(e.pool, e.logger), bcrypt.DefaultCost, e.logger)
	if err := auth.GrantRole(c.Context, c.Args().First(), model.RoleAdmin); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "%s is now an admin\n", c.Args().First())
	return nil
}

func ping(c *cli.Context, e env) error {
	var dbName string
	if err := e.pool.QueryRow(c.Context, "SELECT current_database()").Scan(&dbName); err != nil {
		return fmt.Errorf("query failed: %w", err)
	}
	fmt.Fprintf(c.App.Writer, "Successfully connected to database: %s\n", dbName)
	return nil
}
