package cli

import (
	"fmt"
	"os"

	"github.com/raphaelgruber/matchlight-go/internal/metrics"
)

// printStats writes per-operation request timings to stderr.
func printStats(s metrics.Snapshot) {
	if len(s.Operations) == 0 {
		return
	}
	fmt.Fprintf(os.Stderr, "\nRequest Statistics (%.1fs)\n", s.UptimeSeconds)
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════\n")
	for _, op := range s.Operations {
		fmt.Fprintf(os.Stderr, "%s:\n", op.Operation)
		fmt.Fprintf(os.Stderr, "  Calls: %d, Failures: %d, Retries: %d, Total: %dms\n",
			op.Count, op.Failures, op.Retries, op.TotalTimeMs)
		fmt.Fprintf(os.Stderr, "  Time: avg %.1fms, min %dms, max %dms\n",
			op.AvgTimeMs, op.MinTimeMs, op.MaxTimeMs)
	}
}
