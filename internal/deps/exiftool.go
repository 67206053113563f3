package deps

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

const exiftoolProbeTimeout = 5 * time.Second

// ProbeExiftool reports whether the configured exiftool binary can actually
// run, not just whether it resolves on PATH. A stale symlink or a Perl
// install missing its modules passes LookPath but fails as soon as the embed
// stage invokes it, so the probe executes "exiftool -ver" and records the
// reported version.
func ProbeExiftool(ctx context.Context, command string) Status {
	status := CheckBinaries([]Requirement{{
		Name:        "ExifTool",
		Command:     command,
		Description: "Writes agency metadata into image headers",
	}})[0]
	if !status.Available {
		return status
	}

	probeCtx, cancel := context.WithTimeout(ctx, exiftoolProbeTimeout)
	defer cancel()

	output, err := exec.CommandContext(probeCtx, status.Command, "-ver").Output()
	if err != nil {
		status.Available = false
		status.Detail = fmt.Sprintf("%q failed: %v", status.Command+" -ver", err)
		return status
	}

	if version := strings.TrimSpace(string(output)); version != "" {
		status.Detail = "version " + version
	}
	return status
}
