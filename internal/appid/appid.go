// Package appid resolves the application identity used for help text, config
// paths, environment prefixes and telemetry namespaces.
package appid

import (
	"context"
	"os"
	"strings"

	"github.com/fulmenhq/gofulmen/appidentity"
)

// Default returns the built-in identity of the aptoseidon binary.
func Default() *appidentity.Identity {
	return &appidentity.Identity{
		BinaryName:  "aptoseidon",
		Vendor:      "aptoseidon",
		EnvPrefix:   "APTOSEIDON_",
		ConfigName:  "aptoseidon",
		Description: "Evidence-driven trust assessment for crypto projects",
	}
}

// Get returns the identity declared by a .fulmen/app.yaml when one is
// discoverable, otherwise the built-in default.
//
// An explicit FULMEN_APP_IDENTITY_PATH stays authoritative: if it is set and
// cannot be loaded, the error is returned.
func Get(ctx context.Context) (*appidentity.Identity, error) {
	identity, err := appidentity.Get(ctx)
	if err == nil && identity != nil {
		return identity, nil
	}
	if strings.TrimSpace(os.Getenv(appidentity.EnvIdentityPath)) != "" {
		return nil, err
	}
	return Default(), nil
}
