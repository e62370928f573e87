// Package config loads and validates the configuration of the link rule service.
//
// Values come from the environment through cleanenv struct tags. An optional
// .env file is applied first with godotenv.
//
// # Loading
//
//	cfg, err := config.Load(".env")
//	if err != nil {
//		slog.Error("Failed to load configuration", "error", err)
//		os.Exit(-1)
//	}
//	if err := cfg.Validate(); err != nil {
//		slog.Error("Invalid configuration", "error", err)
//		os.Exit(-1)
//	}
//
// # Sections
//
//   - Store: LINK_STORE (memory, file, postgres, graphcool), LINK_DATA_DIR, LINK_TOKEN_ISSUER (jwt, graphcool)
//   - Database: IDM_PG_HOST, IDM_PG_PORT, IDM_PG_DATABASE, IDM_PG_USER, IDM_PG_PASSWORD, IDM_PG_SCHEMA
//   - Graphcool: GC_SERVICE_ID, GC_ROOT_TOKEN or GC_ROOT_TOKEN_1..3, GC_SIMPLE_API_URL, GC_SYSTEM_API_URL, GC_HTTP_TIMEOUT
//   - Jwt: JWT_SECRET, JWT_ISSUER, JWT_AUDIENCE, JWT_EXPIRY
//   - Rule: REDIRECT_URL, TOKEN_CLAIM
//   - RateLimit: LINK_RATE_LIMIT_ENABLED, LINK_RATE_LIMIT_CAPACITY, LINK_RATE_LIMIT_REFILL_RATE
//
// Validate only checks the sections the selected store and issuer need.
// Validation helpers (RequireNonEmpty, RequireValidURL, RequireOneOf, ...)
// collect every problem into a ValidationErrors value instead of stopping at
// the first one:
//
//	err := config.Validate(func() config.ValidationErrors {
//		return config.CollectErrors(
//			config.RequireNonEmpty("GC_SERVICE_ID", serviceID),
//			config.RequireValidURL("REDIRECT_URL", redirectURL),
//		)
//	})
package config
