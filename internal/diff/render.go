package diff

import (
	"fmt"
	"strings"
)

// Render formats a FileDiff as a unified diff string, the shape the edit
// workflow (C4's CheckEdit) and the edit-family tools both pass around as
// plain text rather than the structured Hunk/Line form above.
func (fd *FileDiff) Render() string {
	var b strings.Builder
	oldPath, newPath := fd.OldPath, fd.NewPath
	if oldPath == "" {
		oldPath = "/dev/null"
	}
	if newPath == "" {
		newPath = "/dev/null"
	}
	fmt.Fprintf(&b, "--- %s\n", oldPath)
	fmt.Fprintf(&b, "+++ %s\n", newPath)

	for _, h := range fd.Hunks {
		fmt.Fprintf(&b, "@@ -%d,%d +%d,%d @@\n", h.OldStart, h.OldCount, h.NewStart, h.NewCount)
		for _, line := range h.Lines {
			switch line.Type {
			case LineAdded:
				b.WriteString("+" + line.Content + "\n")
			case LineRemoved:
				b.WriteString("-" + line.Content + "\n")
			default:
				b.WriteString(" " + line.Content + "\n")
			}
		}
	}
	return b.String()
}

// ComputeUnifiedDiff is a convenience wrapper combining ComputeDiff and
// Render for callers that only want the text form.
func ComputeUnifiedDiff(oldPath, newPath, oldContent, newContent string) string {
	return DefaultEngine.ComputeDiff(oldPath, newPath, oldContent, newContent).Render()
}
