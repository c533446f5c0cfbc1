package publish

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gridform/internal/scenario"
)

func runScenario(t *testing.T) *scenario.Result {
	t.Helper()
	f, err := scenario.Parse(strings.NewReader(`
name: report
documents:
  - id: outer
    cols: [pref, 20px]
    rows: [pref, pref]
    components:
      - {embed: inner, col: 2, row: 2}
  - id: inner
    readOnly: true
views:
  - {id: main, document: outer}
steps:
  - {op: add, component: title, class: Label, col: 1, row: 1, colSpan: 2}
  - {op: set, component: title, property: text, value: "a|b"}
  - {op: group-row, index: 1, group: 3}
  - {op: undo, view: main}
`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	res, err := scenario.Run(context.Background(), f, scenario.WithRunID("run-report"))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	return res
}

func TestRenderIndexMarkdown(t *testing.T) {
	t.Parallel()

	md, err := RenderIndexMarkdown(runScenario(t))
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	for _, want := range []string{
		"# report",
		"- Run: run-report",
		"[outer](documents/outer.md) (2×2)",
		"Shows `outer` (home), cursor 2 of 3.",
		"- [ ] group row 1: 0 -> 3 in outer",
		`a\|b`,
	} {
		if !strings.Contains(md, want) {
			t.Fatalf("expected %q in index:\n%s", want, md)
		}
	}
}

func TestRenderDocumentMarkdown(t *testing.T) {
	t.Parallel()

	res := runScenario(t)
	outer, _ := res.Snapshot("outer")
	md := RenderDocumentMarkdown(outer)
	for _, want := range []string{
		"| 1 `fill:pref` | `title` 2×1 | ↳ |",
		"- `inner` nested form at 2,2 1x1, see [inner](inner.md)",
		"  - text: a|b",
	} {
		if !strings.Contains(md, want) {
			t.Fatalf("expected %q in page:\n%s", want, md)
		}
	}

	inner, _ := res.Snapshot("inner")
	if !strings.Contains(RenderDocumentMarkdown(inner), "Read-only.") {
		t.Fatalf("expected read-only note")
	}
}

func TestWriteResultPages_Overwrite(t *testing.T) {
	t.Parallel()

	res := runScenario(t)
	dir := t.TempDir()
	out, err := WriteResultPages(res, dir, WriteOptions{})
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if len(out.Written) != 3 {
		t.Fatalf("expected index + 2 documents, got %v", out.Written)
	}
	if _, err := os.Stat(filepath.Join(dir, "documents", "inner.md")); err != nil {
		t.Fatalf("expected inner page: %v", err)
	}

	if _, err := WriteResultPages(res, dir, WriteOptions{}); err == nil || !strings.Contains(err.Error(), "file exists") {
		t.Fatalf("expected file exists error, got %v", err)
	}
	if _, err := WriteResultPages(res, dir, WriteOptions{Overwrite: true}); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	if _, err := WriteResultPages(res, " ", WriteOptions{}); err == nil {
		t.Fatalf("expected missing --to error")
	}
}
