package repair

import (
	"sort"
	"strings"
	"text/template"

	sprig "github.com/go-task/slim-sprig/v3"
	"github.com/maruel/natural"
)

// reportTemplate renders the per-file, per-line review report of everything
// the loop removed to make the output compile.
const reportTemplate = `Removed constructs requiring manual review
{{ repeat 42 "=" }}
{{ range .Files }}
{{ .Name }} ({{ len .Lines }} line{{ if ne (len .Lines) 1 }}s{{ end }}):
{{- range .Lines }}
  line {{ .Line }}: {{ .Content }}
{{- end }}
{{ end }}
{{ repeat 42 "=" }}
Total lines removed: {{ .Total }}
`

type reportFile struct {
	Name  string
	Lines []Removal
}

type reportData struct {
	Files []reportFile
	Total int
}

// renderReport groups removals per file in natural name order and renders the
// human review report. Empty input yields an empty report.
func renderReport(removals []Removal) string {
	if len(removals) == 0 {
		return ""
	}

	byFile := make(map[string][]Removal)
	for _, r := range removals {
		byFile[r.File] = append(byFile[r.File], r)
	}

	names := make([]string, 0, len(byFile))
	for name := range byFile {
		names = append(names, name)
	}
	sort.Sort(natural.StringSlice(names))

	data := reportData{Total: len(removals)}
	for _, name := range names {
		lines := byFile[name]
		sort.Slice(lines, func(i, j int) bool { return lines[i].Line < lines[j].Line })
		data.Files = append(data.Files, reportFile{Name: name, Lines: lines})
	}

	tmpl := template.Must(template.New("report").Funcs(sprig.TxtFuncMap()).Parse(reportTemplate))
	var b strings.Builder
	if err := tmpl.Execute(&b, data); err != nil {
		// template and data are fully under our control
		return ""
	}
	return b.String()
}
