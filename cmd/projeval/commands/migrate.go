package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/projeval/migrations"
	"github.com/wonny/projeval/pkg/database"
)

// migrateCmd represents the migrate command
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "DB 스키마 마이그레이션",
	Long: `내장된 migrations/*.sql 을 순서대로 적용합니다.

적용된 파일은 schema_migrations 에 기록되어 다시 실행되지 않습니다.
동시 실행은 advisory lock 으로 직렬화됩니다.

Example:
  go run ./cmd/projeval migrate`,
	RunE: runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	db, err := database.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	applied, err := database.Migrate(ctx, db.Pool, migrations.FS, log.Zerolog())
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	if len(applied) == 0 {
		fmt.Println("✅ Schema is up to date")
		return nil
	}
	fmt.Printf("✅ Applied %d migration(s):\n", len(applied))
	for _, name := range applied {
		fmt.Printf("   - %s\n", name)
	}
	return nil
}
