package cmd

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"github.com/northstarhq/api/internal/infra/postgres"
)

var (
	version string

	// Global flags
	flagDatabaseURL string
	flagContext     string
	flagOutput      string
	flagVerbose     bool
)

var rootCmd = &cobra.Command{
	Use:   "northstar-admin",
	Short: "Northstar platform administration CLI",
	Long: `northstar-admin is a CLI for operating a Northstar deployment.

It connects directly to the platform database to manage system
admins, inspect workspaces, and run maintenance operations that
have no HTTP surface.

Use "northstar-admin config set-context" to store a connection.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// SetVersion sets the CLI version from build flags.
func SetVersion(v string) {
	version = v
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&flagDatabaseURL, "db", "", "Database URL (env: DATABASE_URL)")
	rootCmd.PersistentFlags().StringVarP(&flagContext, "context", "c", "", "Use specific context (env: NORTHSTAR_CONTEXT)")
	rootCmd.PersistentFlags().StringVarP(&flagOutput, "output", "o", "table", "Output format: table, json, yaml")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Enable verbose output")

	rootCmd.AddCommand(versionCmd)
}

func initConfig() {
	if flagDatabaseURL == "" {
		flagDatabaseURL = os.Getenv("DATABASE_URL")
	}
	if flagDatabaseURL == "" {
		flagDatabaseURL = resolveFromConfigFile()
	}
}

func resolveFromConfigFile() string {
	ctxName := flagContext
	if ctxName == "" {
		ctxName = os.Getenv("NORTHSTAR_CONTEXT")
	}

	cfg, err := loadConfig()
	if err != nil {
		return ""
	}

	if ctxName == "" {
		ctxName = cfg.CurrentContext
	}

	ctx := cfg.GetContext(ctxName)
	if ctx == nil {
		return ""
	}
	return ctx.Context.DatabaseURL
}

// mustDB opens the platform database or exits.
func mustDB() *postgres.DB {
	if flagDatabaseURL == "" {
		fmt.Fprintln(os.Stderr, "Error: database not configured. Use --db, DATABASE_URL, or 'northstar-admin config set-context'")
		os.Exit(1)
	}

	db, err := sql.Open("postgres", flagDatabaseURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: open database: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: ping database: %v\n", err)
		os.Exit(1)
	}

	return &postgres.DB{DB: db}
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show CLI version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("northstar-admin version %s\n", version)
		fmt.Printf("  Go:       %s\n", runtime.Version())
		fmt.Printf("  OS/Arch:  %s/%s\n", runtime.GOOS, runtime.GOARCH)
	},
}
