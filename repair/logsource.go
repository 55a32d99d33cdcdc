package repair

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// LogSource yields the most recent lines of the watch-compiler's log stream.
// The stream is the only source of error detail: there is no structured API,
// matching is done purely on text.
type LogSource interface {
	Tail(ctx context.Context, n int) ([]string, error)
}

type dockerLogs struct {
	container string
}

// NewDockerLogSource tails the log of a named container via the docker CLI.
func NewDockerLogSource(container string) LogSource {
	return &dockerLogs{container: container}
}

func (d *dockerLogs) Tail(ctx context.Context, n int) ([]string, error) {
	if n <= 0 {
		n = 100
	}
	// docker writes container output to both streams
	out, err := exec.CommandContext(ctx,
		"docker", "logs", "--tail", strconv.Itoa(n), d.container).CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("tailing logs of container %q: %w", d.container, err)
	}

	var lines []string
	for _, l := range strings.Split(string(out), "\n") {
		if strings.TrimSpace(l) != "" {
			lines = append(lines, l)
		}
	}
	return lines, nil
}
