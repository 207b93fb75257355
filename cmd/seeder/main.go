package main

import (
	"DevcampAPI/internal"
	"DevcampAPI/internal/config"
	"DevcampAPI/internal/db"
	"DevcampAPI/internal/logger"
	"DevcampAPI/internal/resource"
	"DevcampAPI/internal/seed"
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
)

func main() {
	importFlag := flag.Bool("i", false, "import seed data")
	deleteFlag := flag.Bool("d", false, "delete all data")
	migrateFlag := flag.Bool("m", false, "apply migrations first (postgres)")
	dirFlag := flag.String("dir", "", "seed directory (default <repo>/seed)")
	flag.Parse()

	if *importFlag == *deleteFlag {
		fmt.Fprintln(os.Stderr, "usage: seeder -i | -d")
		os.Exit(2)
	}

	cfg := config.LoadConfig()
	root, _ := internal.FindRepoRoot()
	if err := logger.Init(root); err != nil {
		fmt.Fprintf(os.Stderr, "log init failed: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	dir := *dirFlag
	if dir == "" {
		dir = filepath.Join(root, "seed")
	}

	ctx := context.Background()
	reg, err := resource.InitRegistry(cfg.ResourcesDir)
	if err != nil {
		fail("registry_init_failed", err)
	}
	st, err := db.OpenStore(ctx, cfg, reg, *migrateFlag)
	if err != nil {
		fail("store_init_failed", err)
	}
	defer func() { _ = st.Close(ctx) }()

	if *importFlag {
		counts, err := seed.Import(ctx, st, reg, dir)
		if err != nil {
			fail("seed_import_failed", err)
		}
		fmt.Printf("Data imported: %v\n", counts)
		return
	}
	if err := seed.Delete(ctx, st, reg); err != nil {
		fail("seed_delete_failed", err)
	}
	fmt.Println("Data deleted")
}

func fail(event string, err error) {
	logger.Error(event, map[string]any{"error": err.Error()})
	fmt.Fprintf(os.Stderr, "%s: %v\n", event, err)
	logger.Sync()
	os.Exit(1)
}
