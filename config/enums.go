package config

import "fmt"

// Brand family of the dealer theme being migrated. Some families get fixed
// predetermined style fragments appended to every generated stylesheet.
type BrandFamily string

const (
	BrandFamilyNone       BrandFamily = "none"
	BrandFamilyStellantis BrandFamily = "stellantis"
)

// HasFragments reports whether predetermined style fragments exist for the family.
func (b BrandFamily) HasFragments() bool {
	return b == BrandFamilyStellantis
}

// Logical stylesheet group inside a dealer theme.
type ThemeGroup int

const (
	ThemeGroupInterior ThemeGroup = iota
	ThemeGroupListing
	ThemeGroupDetail
	ThemeGroupHome
)

var themeGroupNames = map[ThemeGroup]string{
	ThemeGroupInterior: "interior",
	ThemeGroupListing:  "listing",
	ThemeGroupDetail:   "detail",
	ThemeGroupHome:     "home",
}

func (g ThemeGroup) String() string {
	if n, ok := themeGroupNames[g]; ok {
		return n
	}
	// this should never happen
	panic("unsupported theme group requested")
}

// OutputName returns target stylesheet file name for the group.
func (g ThemeGroup) OutputName() string {
	switch g {
	case ThemeGroupInterior:
		return "sb-inside.scss"
	case ThemeGroupListing:
		return "sb-vrp.scss"
	case ThemeGroupDetail:
		return "sb-vdp.scss"
	case ThemeGroupHome:
		return "sb-home.scss"
	default:
		// this should never happen
		panic("unsupported theme group requested")
	}
}

// AllThemeGroups lists groups in processing order.
func AllThemeGroups() []ThemeGroup {
	return []ThemeGroup{ThemeGroupInterior, ThemeGroupListing, ThemeGroupDetail, ThemeGroupHome}
}

// ParseThemeGroup converts group name to ThemeGroup value.
func ParseThemeGroup(name string) (ThemeGroup, error) {
	for g, n := range themeGroupNames {
		if n == name {
			return g, nil
		}
	}
	return 0, fmt.Errorf("unknown theme group %q", name)
}

// ThemeGroupNames returns names of all supported groups in processing order.
func ThemeGroupNames() []string {
	names := make([]string, 0, len(themeGroupNames))
	for _, g := range AllThemeGroups() {
		names = append(names, g.String())
	}
	return names
}
