package httphandler

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderMarkdown(t *testing.T) {
	tests := []struct {
		name        string
		src         string
		contains    []string
		notContains []string
	}{
		{name: "empty", src: ""},
		{name: "whitespace only", src: "  \n\t "},
		{
			name:     "gate code in bold",
			src:      "Gate code **4821**",
			contains: []string{"<strong>4821</strong>"},
		},
		{
			name:     "hard wraps",
			src:      "Ring bell\nAsk for facilities",
			contains: []string{"<br"},
		},
		{
			name:     "checklist",
			src:      "- [x] badge issued\n- [ ] escort booked",
			contains: []string{"<li>", "badge issued", "escort booked"},
		},
		{
			name:        "script stripped",
			src:         `Park in bay 3 <script>alert("x")</script>`,
			contains:    []string{"Park in bay 3"},
			notContains: []string{"<script>"},
		},
		{
			name:        "javascript link stripped",
			src:         "[map](javascript:alert(1))",
			notContains: []string{"javascript:"},
		},
		{
			name:     "portal link opens in new tab",
			src:      "[BMS portal](https://bms.example.com/login)",
			contains: []string{`href="https://bms.example.com/login"`, `target="_blank"`, "nofollow"},
		},
		{
			name:        "event handler stripped",
			src:         `<a href="https://x.example" onclick="steal()">door</a>`,
			contains:    []string{"door"},
			notContains: []string{"onclick"},
		},
		{
			name:     "access table",
			src:      "| Door | Code |\n|---|---|\n| Roof | 7730 |",
			contains: []string{"<table>", "<td>7730</td>"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RenderMarkdown(tt.src)
			if strings.TrimSpace(tt.src) == "" {
				assert.Empty(t, got)
				return
			}
			for _, want := range tt.contains {
				assert.Contains(t, got, want)
			}
			for _, unwanted := range tt.notContains {
				assert.NotContains(t, got, unwanted)
			}
		})
	}
}
