package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"go.uber.org/zap"

	"silver-jubilee-backend/config"
	"silver-jubilee-backend/database"
	"silver-jubilee-backend/services"
)

// Crée le premier compte admin, ou remplace son mot de passe avec -reset.
// Le mot de passe peut venir de ADMIN_SEED_PASSWORD pour ne pas apparaître dans l'historique shell.
func main() {
	username := flag.String("username", "admin", "nom d'utilisateur admin")
	password := flag.String("password", "", "mot de passe (sinon ADMIN_SEED_PASSWORD)")
	reset := flag.Bool("reset", false, "remplacer le mot de passe d'un compte existant")
	flag.Parse()

	if *password == "" {
		*password = os.Getenv("ADMIN_SEED_PASSWORD")
	}
	if *password == "" {
		log.Fatal("❌ Mot de passe requis: -password ou ADMIN_SEED_PASSWORD")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Erreur lors du chargement de la configuration: %v", err)
	}

	zlog := zap.NewNop()
	if err := database.Connect(cfg.MongoURI, cfg.MongoDB, zlog); err != nil {
		log.Fatalf("❌ Erreur de connexion à MongoDB: %v", err)
	}
	defer database.Close()

	auth := services.NewAdminAuthService(
		database.NewAdminRepository(database.DB),
		services.NewMemoryLoginLimiter(cfg.Login.MaxFailures, cfg.Login.Window),
		cfg.AdminJWTSecret, cfg.AdminTokenTTL, zlog, nil,
	)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	created, err := auth.EnsureAdmin(ctx, *username, *password, *reset)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}
	if created {
		fmt.Printf("✅ Compte admin %q créé\n", *username)
		return
	}
	fmt.Printf("✅ Mot de passe de %q remplacé\n", *username)
}
