package migrate

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"sbm/config"
	"sbm/state"
)

func testEnv(t *testing.T) (context.Context, *state.LocalEnv) {
	t.Helper()
	ctx := state.ContextWithEnv(context.Background())
	env := state.EnvFromContext(ctx)

	cfg, err := config.LoadConfiguration("")
	if err != nil {
		t.Fatalf("unable to load default configuration: %v", err)
	}
	env.Cfg = cfg
	env.Log = zap.NewNop()
	return ctx, env
}

func writeSource(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

const interiorSource = `@import "variables";

@mixin flexbox() {
  display: flex;
}

.header {
  @include flexbox();
  color: $primary;
}
`

const sharedPartial = `$primary: #0055a5;
$gap: 12px;
`

func TestProcessThemeMigratesLocatableGroups(t *testing.T) {
	src, dst := t.TempDir(), t.TempDir()
	writeSource(t, src, "sb-inside.scss", interiorSource)
	writeSource(t, src, "_variables.scss", sharedPartial)
	writeSource(t, src, "css/home.scss", ".hero {\n  margin: $gap;\n}\n")

	ctx, env := testEnv(t)
	written, err := processTheme(ctx, env, src, dst, zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(written) != 2 {
		t.Fatalf("expected interior and home groups written, got %v", written)
	}

	data, err := os.ReadFile(filepath.Join(dst, "sb-inside.scss"))
	if err != nil {
		t.Fatal(err)
	}
	out := string(data)
	for _, want := range []string{":root {", "--primary: #0055a5;", "color: var(--primary);", "display: flex;"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q, got:\n%s", want, out)
		}
	}
	for _, banned := range []string{"@import", "@mixin", "@include", "$primary"} {
		if strings.Contains(out, banned) {
			t.Errorf("expected no %q in output, got:\n%s", banned, out)
		}
	}

	home, err := os.ReadFile(filepath.Join(dst, "sb-home.scss"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(home), "margin: var(--gap);") {
		t.Errorf("expected partial declarations visible to the home group, got:\n%s", home)
	}
}

func TestProcessThemeSkipsMissingGroups(t *testing.T) {
	src, dst := t.TempDir(), t.TempDir()
	writeSource(t, src, "sb-vdp.scss", ".price { color: red; }\n")

	ctx, env := testEnv(t)
	written, err := processTheme(ctx, env, src, dst, zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(written) != 1 || filepath.Base(written[0]) != "sb-vdp.scss" {
		t.Fatalf("expected only the detail group, got %v", written)
	}
}

func TestProcessThemeHonorsOverwriteFlag(t *testing.T) {
	src, dst := t.TempDir(), t.TempDir()
	writeSource(t, src, "sb-inside.scss", ".a { color: red; }\n")
	writeSource(t, dst, "sb-inside.scss", "existing")

	ctx, env := testEnv(t)
	if _, err := processTheme(ctx, env, src, dst, zap.NewNop()); err == nil {
		t.Fatal("expected error for existing output without overwrite")
	}

	env.Overwrite = true
	if _, err := processTheme(ctx, env, src, dst, zap.NewNop()); err != nil {
		t.Fatalf("unexpected error with overwrite: %v", err)
	}
	data, _ := os.ReadFile(filepath.Join(dst, "sb-inside.scss"))
	if string(data) == "existing" {
		t.Error("expected the output to be replaced")
	}
}

func TestProcessThemeAppendsBrandFragments(t *testing.T) {
	src, dst := t.TempDir(), t.TempDir()
	writeSource(t, src, "sb-inside.scss", ".a { color: red; }\n")

	ctx, env := testEnv(t)
	env.Cfg.Migration.Brand = config.BrandFamilyStellantis

	if _, err := processTheme(ctx, env, src, dst, zap.NewNop()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	data, _ := os.ReadFile(filepath.Join(dst, "sb-inside.scss"))
	if !strings.Contains(string(data), ".oem-banner-disclaimer") {
		t.Errorf("expected brand fragments appended, got:\n%s", data)
	}

	if got := brandFragments(config.BrandFamilyNone); got != nil {
		t.Error("expected no fragments for brand family none")
	}
}

func TestProcessThemeRecordsStats(t *testing.T) {
	src, dst := t.TempDir(), t.TempDir()
	writeSource(t, src, "sb-inside.scss", ".a { color: red; }\n.b { color: blue; }\n")

	ctx, env := testEnv(t)
	ledger, err := state.OpenLedger(filepath.Join(t.TempDir(), "stats.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer ledger.Close()
	env.Stats = ledger

	if _, err := processTheme(ctx, env, src, dst, zap.NewNop()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	total, err := ledger.LinesMigrated(filepath.Base(src))
	if err != nil {
		t.Fatal(err)
	}
	if total == 0 {
		t.Error("expected migrated lines recorded in the ledger")
	}
}

func TestFindEntryPrefersCanonicalName(t *testing.T) {
	src := t.TempDir()
	writeSource(t, src, "sb-inside.scss", "a")
	writeSource(t, src, "nested/inside.scss", "b")

	entry, err := findEntry(src, config.ThemeGroupInterior)
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(entry) != "sb-inside.scss" || strings.Contains(entry, "nested") {
		t.Errorf("expected the canonical entry, got %s", entry)
	}
}

func TestFindEntryFallsBackToVariants(t *testing.T) {
	src := t.TempDir()
	writeSource(t, src, "styles/vrp.scss", "a")

	entry, err := findEntry(src, config.ThemeGroupListing)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasSuffix(entry, filepath.Join("styles", "vrp.scss")) {
		t.Errorf("expected the variant entry, got %s", entry)
	}

	if _, err := findEntry(src, config.ThemeGroupHome); err == nil {
		t.Error("expected an error for a group with no entry")
	}
}

func TestWriteAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "deep", "out.scss")

	if err := writeAtomic(path, []byte("content")); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "content" {
		t.Errorf("unexpected content %q", data)
	}

	// no stray temp files left behind
	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Errorf("expected only the output file, got %d entries", len(entries))
	}
}
