package migrate

import (
	_ "embed"

	"sbm/config"
)

//go:embed fragments/stellantis.css
var stellantisFragments []byte

// brandFragments returns the predetermined style block appended unconditionally
// to every generated stylesheet of the family, or nil when the family has none.
func brandFragments(b config.BrandFamily) []byte {
	if b.HasFragments() {
		return stellantisFragments
	}
	return nil
}
