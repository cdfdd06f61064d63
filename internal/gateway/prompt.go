package gateway

import (
	"bytes"
	"fmt"
	"strings"

	"cupidx/internal/util/jsonutil"
)

const persona = "You are CupidX, an emotionally-intelligent AI compatibility coach."

// promptSpec defines the sections for a coaching prompt.
type promptSpec struct {
	Purpose string
	Input   map[string]any
	Rules   []string
	Tone    string
	Output  string
}

// render lays the spec out as [SECTION] blocks. Empty sections are skipped.
func (p promptSpec) render() (string, error) {
	if strings.TrimSpace(p.Purpose) == "" {
		return "", fmt.Errorf("gateway: prompt purpose is empty")
	}
	var buf bytes.Buffer
	writeSection(&buf, "ROLE", persona)
	writeSection(&buf, "PURPOSE", p.Purpose)
	if len(p.Input) > 0 {
		in, err := jsonutil.MarshalNoEscape(p.Input)
		if err != nil {
			return "", fmt.Errorf("gateway: encode prompt input: %w", err)
		}
		writeSection(&buf, "INPUT", string(in))
	}
	writeSection(&buf, "RULES", formatList(p.Rules))
	writeSection(&buf, "TONE", p.Tone)
	writeSection(&buf, "OUTPUT", p.Output)
	return strings.TrimSpace(buf.String()), nil
}

func writeSection(buf *bytes.Buffer, name, body string) {
	body = strings.TrimSpace(body)
	if body == "" {
		return
	}
	buf.WriteString("[" + name + "]\n")
	buf.WriteString(body)
	buf.WriteString("\n\n")
}

func formatList(items []string) string {
	var b strings.Builder
	for _, it := range items {
		if strings.TrimSpace(it) == "" {
			continue
		}
		b.WriteString("- ")
		b.WriteString(strings.TrimSpace(it))
		b.WriteString("\n")
	}
	return b.String()
}
