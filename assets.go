// Package formwizard ships the default onboarding layout and the HTTP API
// contract as embedded assets so binaries work without a checkout.
package formwizard

import (
	"embed"
	"fmt"
	"io/fs"

	"github.com/goliatone/go-formwizard/pkg/layout"
)

//go:embed assets/seed.yaml assets/openapi.yaml
var embeddedAssets embed.FS

const (
	seedAsset    = "seed.yaml"
	openAPIAsset = "openapi.yaml"
)

// AssetsFS exposes the embedded assets rooted at the assets directory.
//
// Typical use:
//
//	data, _ := fs.ReadFile(formwizard.AssetsFS(), "openapi.yaml")
func AssetsFS() fs.FS {
	sub, err := fs.Sub(embeddedAssets, "assets")
	if err != nil {
		return embeddedAssets
	}
	return sub
}

// SeedDocument returns the raw default layout document.
func SeedDocument() []byte {
	data, err := fs.ReadFile(AssetsFS(), seedAsset)
	if err != nil {
		panic(fmt.Sprintf("formwizard: embedded seed missing: %v", err))
	}
	return data
}

// DefaultLayout decodes the embedded seed into a renumbered tree.
func DefaultLayout() (*layout.Form, error) {
	return layout.Decode(SeedDocument(), seedAsset)
}

// OpenAPIDocument returns the raw API contract.
func OpenAPIDocument() []byte {
	data, err := fs.ReadFile(AssetsFS(), openAPIAsset)
	if err != nil {
		panic(fmt.Sprintf("formwizard: embedded openapi document missing: %v", err))
	}
	return data
}
