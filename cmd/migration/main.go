package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gitlab.com/dirk.krummacker/tourist-registry/internal/config"
	"gitlab.com/dirk.krummacker/tourist-registry/internal/logger"
	"gitlab.com/dirk.krummacker/tourist-registry/internal/store"
)

// Usage examples on the command line:
// > go run main.go
// > TOURISTS_DATABASE_DRIVER=mysql TOURISTS_DATABASE_DSN="dirk:bullo92@tcp(localhost)/test" go run main.go --file=../../scripts/seed.sql
// > go run main.go --print-schema
func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var file string
	var printSchema bool

	cmd := &cobra.Command{
		Use:   "migration",
		Short: "Create the tourist table and optionally run an SQL file",
		Long: "Creates the tourist table of the configured database if it does not exist yet. With --file, " +
			"the statements of the given file are executed afterwards, one per ';'-terminated line group.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if printSchema {
				ddl, err := store.Schema(cfg.Database.Driver)
				if err != nil {
					return err
				}
				fmt.Fprint(cmd.OutOrStdout(), ddl)
				return nil
			}
			return migrate(cmd.Context(), cfg, logger.New(cfg.Log), file)
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "an SQL file to execute after the schema was created")
	cmd.Flags().BoolVar(&printSchema, "print-schema", false, "print the schema of the configured driver and exit")
	return cmd
}

// migrate ensures the schema and runs the statements of file, if one is given.
func migrate(ctx context.Context, cfg *config.Config, log zerolog.Logger, file string) error {
	touristStore, err := store.Open(cfg.Database, log)
	if err != nil {
		return err
	}
	defer touristStore.Close()

	if err := touristStore.EnsureSchema(ctx); err != nil {
		return err
	}
	log.Info().Str("driver", cfg.Database.Driver).Msg("tourist table is present")
	if file == "" {
		return nil
	}

	readFile, err := os.Open(file) // nosemgrep
	if err != nil {
		return err
	}
	defer readFile.Close()

	statements, err := splitStatements(readFile)
	if err != nil {
		return fmt.Errorf("reading %s: %w", file, err)
	}
	for i, statement := range statements {
		if _, err := touristStore.DB().ExecContext(ctx, statement); err != nil {
			return fmt.Errorf("statement %d of %s: %w", i+1, file, err)
		}
	}
	log.Info().Int("statements", len(statements)).Str("file", file).Msg("sql file executed")
	return nil
}

// splitStatements joins lines until one contains a ';' and returns the resulting statements.
// Trailing lines without a ';' are returned as a final statement.
func splitStatements(r io.Reader) ([]string, error) {
	var statements []string
	fileScanner := bufio.NewScanner(r)
	fileScanner.Split(bufio.ScanLines)
	builder := strings.Builder{}
	for fileScanner.Scan() {
		line := fileScanner.Text()
		builder.WriteString(line)
		builder.WriteString(" ")
		if strings.Contains(line, ";") {
			statements = appendStatement(statements, builder.String())
			builder = strings.Builder{}
		}
	}
	if err := fileScanner.Err(); err != nil {
		return nil, err
	}
	return appendStatement(statements, builder.String()), nil
}

func appendStatement(statements []string, statement string) []string {
	if strings.TrimSpace(statement) == "" {
		return statements
	}
	return append(statements, strings.TrimSpace(statement))
}
