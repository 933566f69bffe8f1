package app

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/ScottAgirs/keystone-nextjs-auth/internal/auth/credentials"
	"github.com/ScottAgirs/keystone-nextjs-auth/internal/auth/handler"
	"github.com/ScottAgirs/keystone-nextjs-auth/internal/auth/link"
	"github.com/ScottAgirs/keystone-nextjs-auth/internal/auth/provider"
	"github.com/ScottAgirs/keystone-nextjs-auth/internal/auth/provider/auth0"
	"github.com/ScottAgirs/keystone-nextjs-auth/internal/auth/provider/google"
	"github.com/ScottAgirs/keystone-nextjs-auth/internal/auth/resolver"
	"github.com/ScottAgirs/keystone-nextjs-auth/internal/config"
	"github.com/ScottAgirs/keystone-nextjs-auth/internal/keystone"
	"github.com/ScottAgirs/keystone-nextjs-auth/internal/middleware"
	"github.com/ScottAgirs/keystone-nextjs-auth/internal/session"
)

func setupHTTP(ctx context.Context, cfg config.Config) (*gin.Engine, func() error, error) {

	infra, err := setupInfra(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	// ----------------------------
	// Dependencies
	// ----------------------------

	list := keystone.NewPostgresList(infra.DB.DB, keystone.TableName(cfg.ListKey))
	identityResolver := resolver.NewListResolver(list, cfg.IdentityField, cfg.ProtectIdentities)

	fieldMaps, err := cfg.FieldMaps()
	if err != nil {
		return nil, nil, err
	}

	linker := link.NewOrchestrator(
		identityResolver,
		list,
		fieldMaps,
		cfg.AutoCreate,
		link.NewRedisLocker(infra.Redis.Client),
	)

	sessions := session.NewMaterializer(identityResolver, list, cfg.ListKey, cfg.SessionData)
	codec := session.NewCodec(cfg.SessionSecret)
	revoked := session.NewRevocationStore(infra.Redis.Client)

	var creds *credentials.Service
	if cfg.PasswordSecretField != "" {
		creds = credentials.NewService(list, cfg.PasswordEmailField, cfg.PasswordSecretField)
	}

	var providers []provider.OAuthProvider

	if cfg.GoogleClientID != "" {
		googleProvider, err := google.New(
			ctx,
			cfg.GoogleClientID,
			cfg.GoogleClientSecret,
			cfg.GoogleRedirectURL,
		)
		if err != nil {
			return nil, nil, err
		}
		providers = append(providers, googleProvider)
	}

	if cfg.Auth0Issuer != "" {
		auth0Provider, err := auth0.New(
			ctx,
			cfg.Auth0Issuer,
			cfg.Auth0ClientID,
			cfg.Auth0ClientSecret,
			cfg.Auth0RedirectURL,
			cfg.Auth0Connection,
		)
		if err != nil {
			return nil, nil, err
		}
		providers = append(providers, auth0Provider)
	}

	registry := provider.NewRegistry(providers...)
	log.Info().Strs("providers", registry.Names()).Msg("oauth providers registered")

	authHandler := handler.NewHandler(
		registry,
		linker,
		sessions,
		codec,
		revoked,
		creds,
	)

	authMiddleware := middleware.NewAuthMiddleware(codec, sessions, revoked)

	// ----------------------------
	// Router
	// ----------------------------

	router := gin.New()
	router.Use(gin.Recovery())

	// ----------------------------
	// Public Routes
	// ----------------------------

	authHandler.RegisterRoutes(router)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// ----------------------------
	// Protected Routes
	// ----------------------------

	authed := router.Group("/")
	authed.Use(authMiddleware.RequireAuth())

	authed.GET("/auth/session", authHandler.Session)

	api := authed.Group("/api")

	api.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"ok": true})
	})

	api.GET("/me", func(c *gin.Context) {
		tok, _ := middleware.TokenFromContext(c)
		c.JSON(200, gin.H{
			"item_id":  tok.ItemID,
			"list_key": tok.ListKey,
		})
	})

	// ----------------------------
	// Cleanup
	// ----------------------------

	return router, func() error {
		return infra.DB.Close()
	}, nil
}
