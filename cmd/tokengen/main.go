package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"storefront/internal/config"
	"storefront/internal/controller"
	"storefront/internal/database"

	"github.com/rs/zerolog"
)

func main() {
	// Configure logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log := zerolog.New(os.Stderr).With().Timestamp().Logger()

	if len(os.Args) < 4 {
		fmt.Println("Usage: tokengen <config_path> <token_name> <expires_in_days>")
		fmt.Println("Example: tokengen config/config.json \"Initial Admin Token\" 365")
		os.Exit(1)
	}

	configPath := os.Args[1]
	tokenName := os.Args[2]
	expiresInDays, err := strconv.Atoi(os.Args[3])
	if err != nil {
		log.Fatal().Msgf("Invalid expires_in_days value: %v", err)
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatal().Msgf("Failed to load configuration: %v", err)
	}

	db, err := database.New(cfg)
	if err != nil {
		log.Fatal().Msgf("Failed to connect to MongoDB: %v", err)
	}

	var expiresAt *time.Time
	if expiresInDays > 0 {
		t := time.Now().AddDate(0, 0, expiresInDays)
		expiresAt = &t
	}

	tc := controller.NewToken(db)
	rawToken, _, err := tc.GenerateToken(context.Background(), tokenName, controller.RoleAdmin, expiresAt)
	if err != nil {
		log.Fatal().Msgf("Failed to create token: %v", err)
	}

	fmt.Println("Admin token created successfully!")
	fmt.Println("Token:", rawToken)
	fmt.Println("IMPORTANT: Save this token securely. It won't be shown again.")
}
