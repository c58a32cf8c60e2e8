// Package formatter runs an optional external formatter (prettier, say) over
// content before it is saved. Formatting is strictly best-effort: no
// configured command means content passes through untouched, and a failing
// command means the caller saves the unformatted content and tells the user.
package formatter

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/ben-elliot-nice/cxone-expert-enhancements-sub001/internal/model"
)

// Formatter pipes content through one external command.
type Formatter struct {
	argv    []string
	timeout time.Duration
}

// New returns a Formatter for argv, or nil when argv is empty (formatting
// disabled). The command receives content on stdin and must print the
// formatted result to stdout; a "{lang}" argument is replaced with the item's
// language so one command can serve both CSS and HTML.
func New(argv []string) *Formatter {
	if len(argv) == 0 {
		return nil
	}
	return &Formatter{argv: argv, timeout: 15 * time.Second}
}

// Enabled reports whether f will do anything. Nil-safe.
func (f *Formatter) Enabled() bool { return f != nil }

// Format runs the command over content. A nil Formatter passes content
// through. Errors carry the command's stderr so toasts can show the cause.
func (f *Formatter) Format(ctx context.Context, content string, lang model.Language) (string, error) {
	if f == nil {
		return content, nil
	}
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	args := make([]string, 0, len(f.argv)-1)
	for _, a := range f.argv[1:] {
		args = append(args, strings.ReplaceAll(a, "{lang}", string(lang)))
	}
	cmd := exec.CommandContext(ctx, f.argv[0], args...)
	cmd.Stdin = strings.NewReader(content)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return "", fmt.Errorf("%s: %s", f.argv[0], msg)
	}
	return stdout.String(), nil
}
