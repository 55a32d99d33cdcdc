package transform

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/h2non/filetype"
	"go.uber.org/zap"
)

// relative asset reference as found in legacy themes: url(../images/foo.png),
// optionally quoted, with any number of leading parent segments
var relativeURLPattern = regexp.MustCompile(`url\(\s*['"]?((?:\.\./)+)images/([^'")]+)['"]?\s*\)`)

// PathsPass rewrites relative asset references to absolute ones under the
// configured base URL. When the referenced asset can be found next to the
// source it is sniffed to confirm it really is an image.
func (p *Pipeline) PathsPass(c *Context) {
	c.ProcessingStep = "paths"

	if !relativeURLPattern.MatchString(c.CurrentContent) {
		return
	}

	count := 0
	c.CurrentContent = relativeURLPattern.ReplaceAllStringFunc(c.CurrentContent, func(match string) string {
		m := relativeURLPattern.FindStringSubmatch(match)
		asset := m[2]
		count++

		if p.opts.SourceDir != "" {
			p.verifyAsset(c, asset)
		}
		return fmt.Sprintf("url('%s')", path.Join(p.opts.AssetBaseURL, asset))
	})

	p.log.Debug("Asset paths rewritten", zap.String("stylesheet", c.Name), zap.Int("count", count))
	c.RecordTransformation("paths")
}

// verifyAsset sniffs the referenced file when it exists and records a warning
// for anything that is not a real image.
func (p *Pipeline) verifyAsset(c *Context, asset string) {
	full := filepath.Join(p.opts.SourceDir, "images", filepath.FromSlash(asset))
	f, err := os.Open(full)
	if err != nil {
		// missing assets are common in legacy themes, not worth a warning
		return
	}
	defer f.Close()

	head := make([]byte, 261)
	n, _ := f.Read(head)
	if n == 0 {
		c.Warn(fmt.Sprintf("referenced asset %q is empty", asset))
		return
	}
	if !filetype.IsImage(head[:n]) && !strings.HasSuffix(strings.ToLower(asset), ".svg") {
		c.Warn(fmt.Sprintf("referenced asset %q does not look like an image", asset))
	}
}
