package checker

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Credentials holds provider secrets.
type Credentials struct {
	AppFollowAPIKey    string
	DataForSEOLogin    string
	DataForSEOPassword string
}

// LoadDotEnv loads KEY=VALUE pairs from the given files (default ".env") into the
// process environment. Variables already set are left alone and missing files are
// ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
	}
	return nil
}

// CredentialsFromEnv reads provider credentials from the environment.
func CredentialsFromEnv() Credentials {
	return Credentials{
		AppFollowAPIKey:    firstEnv("APPFOLLOW_API_KEY"),
		DataForSEOLogin:    firstEnv("DATAFORSEO_LOGIN", "DATAFORSEO_USERNAME", "DATAFORSEO_EMAIL"),
		DataForSEOPassword: firstEnv("DATAFORSEO_PASSWORD", "DATAFORSEO_PASS"),
	}
}

// Merge fills empty fields from fallback.
func (c Credentials) Merge(fallback Credentials) Credentials {
	if c.AppFollowAPIKey == "" {
		c.AppFollowAPIKey = fallback.AppFollowAPIKey
	}
	if c.DataForSEOLogin == "" {
		c.DataForSEOLogin = fallback.DataForSEOLogin
	}
	if c.DataForSEOPassword == "" {
		c.DataForSEOPassword = fallback.DataForSEOPassword
	}
	return c
}

func firstEnv(keys ...string) string {
	for _, key := range keys {
		if value := strings.TrimSpace(os.Getenv(key)); value != "" {
			return value
		}
	}
	return ""
}

func errMissing(what string) error {
	return fmt.Errorf("%s not set", what)
}
