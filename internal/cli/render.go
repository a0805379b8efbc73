package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ppiankov/newsbrief/internal/model"
)

const rule = "═══════════════════════════════════════════════════════════"

// renderText writes a human-readable brief
func renderText(w io.Writer, a *model.Artifact) error {
	var b strings.Builder

	fmt.Fprintf(&b, "%s\n", rule)
	fmt.Fprintf(&b, "  Brief %s\n", a.Key)
	fmt.Fprintf(&b, "%s\n\n", rule)
	fmt.Fprintf(&b, "  Generated: %s\n", a.GeneratedAt.UTC().Format("2006-01-02 15:04 MST"))
	if a.ModelID != "" {
		fmt.Fprintf(&b, "  Model:     %s\n", a.ModelID)
	}
	if a.UsedFallback {
		b.WriteString("  Mode:      fallback (newest articles, not analysed)\n")
	}
	b.WriteString("\n")

	for i, e := range a.Entries {
		it := e.Item
		fmt.Fprintf(&b, "%d. %s\n", i+1, it.Title)
		fmt.Fprintf(&b, "   %s", it.Source)
		if it.Date != "" {
			fmt.Fprintf(&b, " · %s", it.Date)
		}
		if it.Category != "" {
			fmt.Fprintf(&b, " · %s", it.Category)
		}
		b.WriteString("\n")
		if it.URL != "" {
			fmt.Fprintf(&b, "   %s\n", it.URL)
		}
		fmt.Fprintf(&b, "   Takeaway: %s\n", it.Takeaway)
		if it.StrategicRelevance != "" {
			fmt.Fprintf(&b, "   Why it matters: %s\n", it.StrategicRelevance)
		}
		fmt.Fprintf(&b, "   Horizon: %s | %s | Signal: %s\n", it.TimeHorizon, it.RiskOpportunity, it.SignalStrength)
		for _, action := range it.ActionItems {
			fmt.Fprintf(&b, "   → %s\n", action)
		}
		if len(e.Related) > 0 {
			b.WriteString("   Related:\n")
			for _, r := range e.Related {
				fmt.Fprintf(&b, "     - %s (%s, %.2f)\n", r.Title, r.Source, r.Score)
			}
		}
		b.WriteString("\n")
	}

	if verbose {
		d := a.Diagnostics
		if d.ParseStrategy != "" {
			fmt.Fprintf(&b, "  parse strategy: %s\n", d.ParseStrategy)
		}
		if d.GatewayError != "" {
			fmt.Fprintf(&b, "  gateway error:  %s\n", d.GatewayError)
		}
		for _, warn := range d.Warnings {
			fmt.Fprintf(&b, "  warning:        %s\n", warn)
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// writeJSON writes the artifact as indented JSON, creating parent directories
func writeJSON(path string, a *model.Artifact) error {
	data, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal artifact: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

var filenameReplacer = strings.NewReplacer(
	"/", "_",
	"\\", "_",
	":", "_",
	"*", "_",
	"?", "_",
	"\"", "_",
	"<", "_",
	">", "_",
	"|", "_",
	" ", "-",
)

// sanitizeFilename sanitizes a string for use as a filename
func sanitizeFilename(s string) string {
	s = filenameReplacer.Replace(s)

	// Limit length
	if len(s) > 100 {
		s = s[:100]
	}

	return s
}
