package render

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/bggsnap/bggsnap/types"
)

func sampleArtifacts() []types.ArtifactMeta {
	createdAt := time.Date(2026, 8, 25, 3, 15, 0, 0, time.UTC)
	return []types.ArtifactMeta{
		{
			Name:       "bggsnap_20260825T031500Z_run1.tar.gz",
			RunID:      "run1",
			Trigger:    types.TriggerSchedule,
			CreatedAt:  createdAt,
			ExpiresAt:  createdAt.Add(types.RetentionPeriod),
			FileCount:  12,
			TotalBytes: 4096,
			URL:        "file:///artifacts/a.tar.gz",
		},
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input   string
		want    Format
		wantErr bool
	}{
		{"json", FormatJSON, false},
		{"TABLE", FormatTable, false},
		{"yaml", FormatYAML, false},
		{"", "", false},
		{"xml", "", true},
	}

	for _, tt := range tests {
		got, err := ParseFormat(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseFormat(%q) err = %v, wantErr %v", tt.input, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestRender_JSON(t *testing.T) {
	var buf bytes.Buffer
	r := NewRendererWithWriter(FormatJSON, &buf)

	if err := r.Render(sampleArtifacts()); err != nil {
		t.Fatalf("render: %v", err)
	}

	var decoded []map[string]any
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded[0]["run_id"] != "run1" {
		t.Errorf("unexpected decode %v", decoded)
	}
}

func TestRender_Table(t *testing.T) {
	var buf bytes.Buffer
	r := NewRendererWithWriter(FormatTable, &buf)

	if err := r.Render(sampleArtifacts()); err != nil {
		t.Fatalf("render: %v", err)
	}

	out := buf.String()
	for _, want := range []string{"name", "run_id", "bggsnap_20260825T031500Z_run1.tar.gz"} {
		if !strings.Contains(out, want) {
			t.Errorf("table output missing %q:\n%s", want, out)
		}
	}
}

func TestRender_TableEmptySlice(t *testing.T) {
	var buf bytes.Buffer
	r := NewRendererWithWriter(FormatTable, &buf)

	if err := r.Render([]types.ArtifactMeta{}); err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(buf.String(), "(no results)") {
		t.Errorf("expected placeholder, got %q", buf.String())
	}
}

func TestRender_YAML(t *testing.T) {
	var buf bytes.Buffer
	r := NewRendererWithWriter(FormatYAML, &buf)

	if err := r.Render(map[string]string{"status": "success"}); err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(buf.String(), "status: success") {
		t.Errorf("unexpected yaml %q", buf.String())
	}
}

func TestRender_StructTable(t *testing.T) {
	var buf bytes.Buffer
	r := NewRendererWithWriter(FormatTable, &buf)

	if err := r.Render(sampleArtifacts()[0]); err != nil {
		t.Fatalf("render: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "name:") || !strings.Contains(out, "file_count:") {
		t.Errorf("struct table missing fields:\n%s", out)
	}
}
