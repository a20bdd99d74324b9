package merge

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
)

// run executes the ffmpeg binary with the given arguments and folds any
// stderr output into the returned error.
func (m *FFmpegMerger) run(ctx context.Context, args []string) error {
	m.logger.Debug("Invoking ffmpeg",
		slog.String("binary", m.binary),
		slog.String("args", strings.Join(args, " ")),
	)

	cmd := exec.CommandContext(ctx, m.binary, args...) //nolint:gosec
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("ffmpeg merge: %w: %s", err, strings.TrimSpace(string(output)))
	}

	return nil
}
