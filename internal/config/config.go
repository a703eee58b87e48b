package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr string
	SiteID   string

	DBDriver string
	DBDSN    string

	AuthSecret    string
	AdminUser     string
	AdminPassHash string // bcrypt

	EnableLocalAuth bool

	CORSOrigins []string
}

func FromEnv() Config {
	// Optional .env for local development; a missing file is fine.
	_ = godotenv.Load()

	return Config{
		HTTPAddr:        envOr("HTTP_ADDR", ":8080"),
		SiteID:          envOr("SITE_ID", "local"),
		DBDriver:        envOr("DB_DRIVER", "sqlite"),
		DBDSN:           envOr("DB_DSN", ""),
		AuthSecret:      envOr("AUTH_HMAC_SECRET", "supersecret-dev-key"),
		AdminUser:       envOr("ADMIN_USER", "admin"),
		AdminPassHash:   envOr("ADMIN_PASS_HASH", "$2y$12$pyZAiWaTfVtM7UElIRStvOC3gNbnp70nmQU4eYopLGBfCJr1DOvji"),
		EnableLocalAuth: envBool("ENABLE_LOCAL_AUTH", true),
		CORSOrigins:     csvOr("CORS_ORIGINS", "http://localhost:3000"),
	}
}

func envOr(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

func envBool(k string, def bool) bool {
	switch os.Getenv(k) {
	case "1", "true", "TRUE", "yes", "YES":
		return true
	case "0", "false", "FALSE", "no", "NO":
		return false
	default:
		return def
	}
}

func csvOr(k, def string) []string {
	v := envOr(k, def)
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
