package main

import (
	"context"
	"fmt"
	"log"

	"github.com/gorilla/sessions"
	"github.com/joho/godotenv"

	"petcare-portal/core"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := core.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	ctx := context.Background()

	logCloser, err := core.SetupLogging(cfg, "api.log")
	if err != nil {
		log.Fatalf("failed to setup logging: %v", err)
	}
	defer logCloser.Close()

	db, err := core.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}
	defer db.Close()

	if err := core.EnsureSchema(ctx, db); err != nil {
		log.Fatalf("failed to ensure schema: %v", err)
	}

	redisClient, err := core.NewRedisClient(cfg.RedisURL)
	if err != nil {
		log.Fatalf("failed to connect redis: %v", err)
	}
	defer redisClient.Close()

	// Gorilla cookie store for CSRF/OAuth-state session management.
	store := sessions.NewCookieStore([]byte(cfg.SessionKey))

	members := core.NewPgMemberRepository(db)
	externals := core.NewPgExternalMemberRepository(db)
	hasher := core.NewBcryptHasher()
	resolver := core.NewStoreIdentityResolver(members, externals, hasher)
	issuer := core.NewJWTSessionIssuer(cfg.TokenSecret, cfg.TokenTTL)
	tickets := core.NewRedisResetTicketStore(redisClient, cfg.ResetTicketTTL)
	google := core.NewGoogleAuthenticator(cfg)

	if err := core.BootstrapAdmin(ctx, members, hasher, cfg); err != nil {
		log.Fatalf("bootstrap admin failed: %v", err)
	}

	router := core.NewRouter(cfg, store, resolver, issuer, members, externals, tickets, google, hasher)

	addr := fmt.Sprintf(":%s", cfg.Port)
	log.Printf("starting api server on %s", addr)
	if err := router.Run(addr); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}
