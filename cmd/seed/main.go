package main

import (
	"fmt"
	"log"
	"strings"

	"github.com/CANDRY15/flashprint/config"
	"github.com/CANDRY15/flashprint/database"
	"github.com/CANDRY15/flashprint/services"
	"github.com/CANDRY15/flashprint/utils/cache"
	"github.com/CANDRY15/flashprint/utils/logger"
)

func main() {
	// Load environment variables
	if err := config.LoadENV(); err != nil {
		log.Println("Warning: .env file not found, using system environment variables")
	}

	env, err := config.Get()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zl, err := logger.New(env.ENVIRONMENT, env.LOG_LEVEL)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer zl.Sync()

	store, err := database.StartGORM(env, zl)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer store.Close()

	separator := strings.Repeat("=", 60)
	fmt.Println(separator)
	fmt.Println("FlashPrint - Database Seeding")
	fmt.Println(separator)
	fmt.Println()

	// Migrations first so a fresh database can be seeded in one go
	if err := store.Init(); err != nil {
		log.Fatalf("❌ Migration failed: %v", err)
	}

	// The admin grant goes through the role service so a cached has_role
	// answer in Redis is dropped
	var roleCache services.RoleCache
	if redisCache, err := cache.NewRedisCache(env.REDIS_URL); err != nil {
		zl.Warn("Redis unavailable, role cache will not be invalidated", "error", err)
	} else {
		defer redisCache.Close()
		roleCache = redisCache
	}
	roles := services.NewRoleService(store.GetDB(), roleCache, zl)

	if err := database.NewSeeder(store.GetDB(), roles, zl).SeedAll(env.ADMIN_EMAIL, env.ADMIN_PASSWORD); err != nil {
		log.Fatalf("❌ Seeding failed: %v", err)
	}

	fmt.Println()
	fmt.Println(separator)
	fmt.Println("🎉 Seeding completed successfully!")
	fmt.Println(separator)
	fmt.Println()
	fmt.Println("Default site content is inserted without overwriting edits.")
	fmt.Println("Admin user created from ADMIN_EMAIL and ADMIN_PASSWORD environment variables.")
	fmt.Println("If not set, admin user creation is skipped.")
	fmt.Println()
}
