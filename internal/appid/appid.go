package appid

import (
	"context"
	"os"
	"strings"

	"github.com/fulmenhq/gofulmen/appidentity"

	appidentityassets "github.com/brandlens/brandlens/internal/assets/appidentity"
)

func init() {
	// Explicit identity paths (FULMEN_APP_IDENTITY_PATH) stay authoritative; the
	// embedded copy only covers standalone binaries.
	_ = appidentity.RegisterEmbeddedIdentityYAML(appidentityassets.YAML)
}

// Get resolves the application identity. When discovery fails without an explicit
// identity path, the built-in identity is returned.
func Get(ctx context.Context) (*appidentity.Identity, error) {
	identity, err := appidentity.Get(ctx)
	if err == nil {
		return identity, nil
	}
	if strings.TrimSpace(os.Getenv(appidentity.EnvIdentityPath)) != "" {
		return nil, err
	}
	return Default(), nil
}

// Default is the identity compiled into the binary.
func Default() *appidentity.Identity {
	return &appidentity.Identity{
		BinaryName:  "brandlens",
		Vendor:      "brandlens",
		EnvPrefix:   "BRANDLENS_",
		ConfigName:  "brandlens",
		Description: "Brand and app name uniqueness evaluator",
		Metadata:    appidentity.Metadata{TelemetryNamespace: "brandlens"},
	}
}
