package migrate

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	cli "github.com/urfave/cli/v3"

	"sbm/config"
	"sbm/state"
)

// Verify is the verify subcommand action. It drives already migrated
// stylesheets through the compile-verify-repair loop without touching the
// migration itself.
func Verify(ctx context.Context, cmd *cli.Command) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Log.Named("verify")

	dir := cmd.Args().Get(0)
	if len(dir) == 0 {
		if dir, err = os.Getwd(); err != nil {
			return fmt.Errorf("unable to get working directory: %w", err)
		}
	}
	if dir, err = filepath.Abs(dir); err != nil {
		return err
	}
	if fi, err := os.Stat(dir); err != nil || !fi.IsDir() {
		return fmt.Errorf("watched directory does not exist: %s", dir)
	}

	var files []string
	for _, group := range config.AllThemeGroups() {
		path := filepath.Join(dir, group.OutputName())
		if fi, err := os.Stat(path); err == nil && !fi.IsDir() {
			files = append(files, path)
		}
	}
	if len(files) == 0 {
		return errors.New("no migrated stylesheets found to verify")
	}

	return verifyOutputs(ctx, env, dir, files, log)
}
