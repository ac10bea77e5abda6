package cmd

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/monomemo/monomemo/database/models"
	"github.com/spf13/cobra"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// migrateCmd 数据库迁移命令
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Database migration tools",
	Long:  `Migrate data from one database to another (e.g., SQLite to PostgreSQL).`,
}

// migrateRunCmd 执行迁移命令
var migrateRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Run database migration",
	Long: `Run database migration from source to target database.

Examples:
  # Migrate from SQLite to PostgreSQL
  monomemo migrate run --from-sqlite ./data/monomemo.db --to-postgres "host=localhost user=postgres password=secret dbname=monomemo port=5432"`,
	Run: func(cmd *cobra.Command, args []string) {
		fromSQLite, _ := cmd.Flags().GetString("from-sqlite")
		toPostgres, _ := cmd.Flags().GetString("to-postgres")
		skipConfirm, _ := cmd.Flags().GetBool("yes")
		batchSize, _ := cmd.Flags().GetInt("batch-size")

		if err := runMigration(fromSQLite, toPostgres, skipConfirm, batchSize); err != nil {
			log.Fatalf("Migration failed: %v", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(migrateRunCmd)

	migrateRunCmd.Flags().String("from-sqlite", "", "Source SQLite file path")
	migrateRunCmd.Flags().String("to-postgres", "", "Target PostgreSQL connection string")
	migrateRunCmd.Flags().Bool("yes", false, "Skip confirmation prompt")
	migrateRunCmd.Flags().Int("batch-size", 100, "Batch size for data migration")
}

// migrateStats 迁移统计
type migrateStats struct {
	users    int
	devices  int
	memories int
	images   int
	skipped  int
	errors   []string
}

// runMigration 执行数据库迁移
func runMigration(fromSQLite, toPostgres string, skipConfirm bool, batchSize int) error {
	if fromSQLite == "" || toPostgres == "" {
		return fmt.Errorf("both --from-sqlite and --to-postgres are required")
	}

	log.Printf("Migrating from sqlite to postgres")
	log.Printf("Source: %s", fromSQLite)

	sourceDB, err := openDatabase(sqlite.Open(fromSQLite))
	if err != nil {
		return fmt.Errorf("failed to connect to source database: %w", err)
	}
	sqlDB, _ := sourceDB.DB()
	defer sqlDB.Close()

	targetDB, err := openDatabase(postgres.Open(toPostgres))
	if err != nil {
		return fmt.Errorf("failed to connect to target database: %w", err)
	}
	sqlDB2, _ := targetDB.DB()
	defer sqlDB2.Close()

	if !skipConfirm {
		fmt.Println("\nWarning: This will migrate all data from source to target database.")
		fmt.Print("Do you want to continue? [y/N]: ")
		var response string
		fmt.Scanln(&response)
		if response != "y" && response != "Y" {
			fmt.Println("Migration cancelled.")
			return nil
		}
	}

	stats := &migrateStats{}

	// 自动迁移目标数据库结构
	log.Println("Migrating database schema...")
	if err := targetDB.AutoMigrate(
		&models.User{},
		&models.Device{},
		&models.Memory{},
		&models.Image{},
	); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}

	ctx := context.Background()

	log.Println("Migrating users...")
	if err := copyAll[models.User](ctx, sourceDB, targetDB, &stats.users, stats); err != nil {
		return err
	}

	log.Println("Migrating devices...")
	if err := copyAll[models.Device](ctx, sourceDB, targetDB, &stats.devices, stats); err != nil {
		return err
	}

	log.Println("Migrating memories...")
	if err := copyBatched[models.Memory](ctx, sourceDB, targetDB, batchSize, &stats.memories, stats); err != nil {
		return err
	}

	log.Println("Migrating images...")
	if err := copyBatched[models.Image](ctx, sourceDB, targetDB, batchSize, &stats.images, stats); err != nil {
		return err
	}

	printMigrateStats(stats)

	if len(stats.errors) > 0 {
		return fmt.Errorf("migration completed with %d errors", len(stats.errors))
	}

	log.Println("Migration completed successfully!")
	return nil
}

// openDatabase 打开数据库连接
func openDatabase(dialector gorm.Dialector) (*gorm.DB, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)

	return db, nil
}

// copyAll 整表复制，已存在的记录跳过
func copyAll[T any](ctx context.Context, sourceDB, targetDB *gorm.DB, counter *int, stats *migrateStats) error {
	var rows []T
	if err := sourceDB.WithContext(ctx).Find(&rows).Error; err != nil {
		return err
	}

	for i := range rows {
		result := targetDB.WithContext(ctx).Create(&rows[i])
		if result.Error != nil {
			stats.skipped++
			continue
		}
		*counter++
	}
	return nil
}

// copyBatched 分批复制大表
func copyBatched[T any](ctx context.Context, sourceDB, targetDB *gorm.DB, batchSize int, counter *int, stats *migrateStats) error {
	offset := 0
	for {
		var rows []T
		if err := sourceDB.WithContext(ctx).Limit(batchSize).Offset(offset).Find(&rows).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}

		for i := range rows {
			result := targetDB.WithContext(ctx).Create(&rows[i])
			if result.Error != nil {
				stats.skipped++
				continue
			}
			*counter++
		}

		offset += batchSize
	}
}

// printMigrateStats 打印迁移统计
func printMigrateStats(stats *migrateStats) {
	fmt.Println()
	fmt.Println("========================================")
	fmt.Println("       Migration Statistics")
	fmt.Println("========================================")
	fmt.Printf("Users migrated:    %d\n", stats.users)
	fmt.Printf("Devices migrated:  %d\n", stats.devices)
	fmt.Printf("Memories migrated: %d\n", stats.memories)
	fmt.Printf("Images migrated:   %d\n", stats.images)
	fmt.Printf("Skipped records:   %d\n", stats.skipped)
	fmt.Println("========================================")

	if len(stats.errors) > 0 {
		fmt.Println("\nErrors encountered:")
		for _, err := range stats.errors {
			fmt.Printf("  - %s\n", err)
		}
	}
}
