// Package migrate orchestrates a theme migration: it locates the source
// stylesheets of every logical group, runs the transformation pipeline,
// validates and writes the results, and optionally proves them against the
// live watch-compiler.
package migrate

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	cli "github.com/urfave/cli/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"sbm/config"
	"sbm/repair"
	"sbm/state"
	"sbm/transform"
	"sbm/validate"
)

// entry candidates per group, tried in order against the source tree
var groupGlobs = map[config.ThemeGroup][]string{
	config.ThemeGroupInterior: {"sb-inside.scss", "**/sb-inside.scss", "**/inside.scss"},
	config.ThemeGroupListing:  {"sb-vrp.scss", "**/sb-vrp.scss", "**/vrp.scss", "**/listings.scss"},
	config.ThemeGroupDetail:   {"sb-vdp.scss", "**/sb-vdp.scss", "**/vdp.scss"},
	config.ThemeGroupHome:     {"sb-home.scss", "**/sb-home.scss", "**/home.scss", "**/homepage.scss"},
}

const partialsGlob = "**/_*.scss"

// Run is the migrate subcommand action.
func Run(ctx context.Context, cmd *cli.Command) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Log.Named("migrate")

	src := cmd.Args().Get(0)
	if len(src) == 0 {
		return errors.New("no theme source directory has been specified")
	}
	if src, err = filepath.Abs(src); err != nil {
		return err
	}
	if fi, err := os.Stat(src); err != nil || !fi.IsDir() {
		return fmt.Errorf("theme source is not a directory: %s", src)
	}

	dst := cmd.Args().Get(1)
	if len(dst) == 0 {
		if dst, err = os.Getwd(); err != nil {
			return fmt.Errorf("unable to get working directory: %w", err)
		}
	}
	if dst, err = filepath.Abs(dst); err != nil {
		return err
	}
	if cmd.Args().Len() > 2 {
		log.Warn("Malformed command line, too many destinations", zap.Strings("ignoring", cmd.Args().Slice()[2:]))
	}

	env.Overwrite, env.Verify = cmd.Bool("overwrite"), cmd.Bool("verify")

	if env.Stats, err = state.OpenLedger(env.Cfg.Migration.StatsDB); err != nil {
		// accounting trouble should never stop a migration
		log.Warn("Stats ledger unavailable", zap.Error(err))
	}
	defer func() {
		if er := env.Stats.Close(); er != nil {
			err = multierr.Append(err, er)
		}
	}()

	log.Info("Migration starting", zap.String("source", src), zap.String("destination", dst))
	defer func(start time.Time) {
		log.Info("Migration completed", zap.Duration("elapsed", time.Since(start)))
	}(time.Now())

	written, err := processTheme(ctx, env, src, dst, log)
	if err != nil {
		return err
	}
	if len(written) == 0 {
		return errors.New("no theme groups could be processed")
	}

	if env.Verify {
		return verifyOutputs(ctx, env, dst, written, log)
	}
	return nil
}

// processTheme migrates every locatable group and returns the written output
// paths. Unreadable groups are skipped with a warning, not treated as fatal.
func processTheme(ctx context.Context, env *state.LocalEnv, src, dst string, log *zap.Logger) ([]string, error) {
	theme := filepath.Base(src)
	partials := loadPartials(src, log)

	var written []string
	for _, group := range config.AllThemeGroups() {
		if err := ctx.Err(); err != nil {
			return written, err
		}

		entry, err := findEntry(src, group)
		if err != nil {
			log.Warn("Skipping theme group", zap.Stringer("group", group), zap.Error(err))
			continue
		}
		data, err := os.ReadFile(entry)
		if err != nil {
			log.Warn("Skipping theme group", zap.Stringer("group", group), zap.Error(err))
			continue
		}

		outPath, err := migrateGroup(ctx, env, theme, group, string(data), partials, src, dst, log)
		if err != nil {
			return written, err
		}
		written = append(written, outPath)
	}

	if total, err := env.Stats.LinesMigrated(theme); err == nil && total > 0 {
		log.Info("Ledger updated", zap.String("theme", theme), zap.Int64("lines_migrated_to_date", total))
	}
	return written, nil
}

// migrateGroup runs the pipeline over one group and writes the result.
// Partials are prepended to the entry content so declarations they carry are
// visible to the passes once imports are gone.
func migrateGroup(ctx context.Context, env *state.LocalEnv, theme string, group config.ThemeGroup,
	entry, partials, src, dst string, log *zap.Logger) (string, error) {

	name := group.OutputName()
	source := entry
	if partials != "" {
		source = partials + "\n" + entry
	}

	if env.Rpt != nil {
		env.Rpt.StoreData(fmt.Sprintf("before/%s", name), []byte(source))
	}

	c := transform.NewContext(name, source)
	p := transform.NewPipeline(transform.Options{
		AssetBaseURL: env.Cfg.Migration.AssetBaseURL,
		SourceDir:    src,
	}, log)
	sum := p.Run(c)

	v := validate.NewValidator(validate.Options{
		CompilerPath: env.Cfg.Compiler.BinaryPath,
		Timeout:      env.Cfg.Compiler.Timeout.Std(),
	}, log)
	res := v.Validate(ctx, name, c.CurrentContent)

	outcome := "ok"
	if !res.IsValid {
		outcome = "syntax-errors"
		for _, e := range res.Errors {
			log.Warn("Validation error",
				zap.String("stylesheet", name), zap.String("kind", string(e.Kind)),
				zap.String("message", e.Message), zap.Int("line", e.Line))
		}
	}
	if res.HasRemainingSCSS {
		log.Warn("Manual review needed, unconverted constructs remain",
			zap.String("stylesheet", name), zap.Strings("tokens", res.RemainingTokens))
	}

	content := c.CurrentContent
	if frag := brandFragments(env.Cfg.Migration.Brand); frag != nil {
		content = content + "\n" + string(frag)
	}

	outPath := filepath.Join(dst, name)
	if _, err := os.Stat(outPath); err == nil && !env.Overwrite {
		return "", fmt.Errorf("output file already exists: %s", outPath)
	}
	if err := writeAtomic(outPath, []byte(content)); err != nil {
		return "", err
	}

	runFormatter(ctx, env.Cfg.Migration.FormatterPath, outPath, log)

	if env.Rpt != nil {
		env.Rpt.Store(fmt.Sprintf("after/%s", name), outPath)
	}
	if err := env.Stats.Record(state.MigrationRecord{
		Theme:              theme,
		Group:              group.String(),
		SourceLines:        sum.SourceLines,
		OutputLines:        sum.OutputLines,
		VariablesConverted: sum.VariablesConverted,
		MixinsConverted:    sum.MixinsConverted,
		FunctionsConverted: sum.FunctionsConverted,
		ImportsRemoved:     sum.ImportsRemoved,
		Elapsed:            sum.Elapsed,
		Outcome:            outcome,
	}); err != nil {
		log.Warn("Unable to record migration stats", zap.Error(err))
	}

	log.Info("Theme group migrated",
		zap.Stringer("group", group),
		zap.String("output", outPath),
		zap.Int("variables", sum.VariablesConverted),
		zap.Int("mixins", sum.MixinsConverted),
		zap.Int("mixins_flagged", sum.MixinsFlagged),
		zap.Int("functions", sum.FunctionsConverted),
		zap.Int("imports_removed", sum.ImportsRemoved),
		zap.Int("size_delta", sum.SizeDelta),
		zap.String("outcome", outcome))
	return outPath, nil
}

// verifyOutputs drives the written files through the compile-verify-repair
// loop against the live watch-compiler.
func verifyOutputs(ctx context.Context, env *state.LocalEnv, dst string, files []string, log *zap.Logger) error {
	loop := repair.NewLoop(repair.Options{
		WatchedDir:     dst,
		MaxRetries:     env.Cfg.Repair.MaxRetries,
		MaxEscalations: env.Cfg.Repair.MaxEscalations,
		PollInterval:   env.Cfg.Repair.PollInterval.Std(),
		CompileWait:    env.Cfg.Repair.CompileWait.Std(),
		CleanupWait:    env.Cfg.Repair.CleanupWait.Std(),
		LogTail:        env.Cfg.Compiler.LogTail,
	}, nil, repair.NewDockerLogSource(env.Cfg.Compiler.ContainerName), log)

	out, err := loop.Run(ctx, files)
	// the report lists every line the fixers altered and must reach the user
	// even when verification fails
	if out != nil && out.Report != "" {
		if env.Rpt != nil {
			env.Rpt.StoreData("verify/review-report.txt", []byte(out.Report))
		}
		fmt.Fprint(os.Stdout, out.Report)
	}
	if err != nil {
		return fmt.Errorf("verification failed: %w", err)
	}
	return nil
}

// findEntry locates the entry stylesheet of a group in the source tree.
func findEntry(src string, group config.ThemeGroup) (string, error) {
	fsys := os.DirFS(src)
	for _, pattern := range groupGlobs[group] {
		matches, err := doublestar.Glob(fsys, pattern)
		if err != nil {
			return "", err
		}
		sort.Strings(matches)
		for _, m := range matches {
			if strings.HasPrefix(filepath.Base(m), "sbmtest-") {
				continue
			}
			return filepath.Join(src, filepath.FromSlash(m)), nil
		}
	}
	return "", fmt.Errorf("no entry stylesheet found for group %q", group)
}

// loadPartials concatenates every partial in the source tree in name order.
// A missing or unreadable partial is logged and skipped.
func loadPartials(src string, log *zap.Logger) string {
	matches, err := doublestar.Glob(os.DirFS(src), partialsGlob)
	if err != nil || len(matches) == 0 {
		return ""
	}
	sort.Strings(matches)

	var b strings.Builder
	for _, m := range matches {
		data, err := os.ReadFile(filepath.Join(src, filepath.FromSlash(m)))
		if err != nil {
			log.Warn("Skipping partial", zap.String("partial", m), zap.Error(err))
			continue
		}
		b.Write(data)
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// runFormatter invokes the optional external formatter over the written file.
// An absent formatter is a skipped step, never an error.
func runFormatter(ctx context.Context, formatter, path string, log *zap.Logger) {
	if formatter == "" {
		return
	}
	bin, err := exec.LookPath(formatter)
	if err != nil {
		log.Debug("Formatter not found, skipping", zap.String("formatter", formatter))
		return
	}
	if out, err := exec.CommandContext(ctx, bin, "--write", path).CombinedOutput(); err != nil {
		log.Warn("Formatter failed, output left unformatted",
			zap.String("file", path), zap.Error(err), zap.ByteString("output", out))
	}
}

// writeAtomic writes data via a temporary file in the destination directory
// followed by a rename.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("unable to create output directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("unable to stage output file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("unable to stage output file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("unable to stage output file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("unable to write output file: %w", err)
	}
	return nil
}
