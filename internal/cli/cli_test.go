package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const twoByTwo = `
name: two by two
documents:
  - id: form
    cols: [pref, pref]
    rows: [pref, pref]
views:
  - {id: main, document: form}
  - {id: side, document: form}
steps:
  - {op: insert-row, view: main, index: 2, spec: 12px}
  - {op: add, view: main, component: ok, class: Button, col: 1, row: 2}
  - {op: undo, view: side}
  - {op: redo, view: main}
`

func runCLI(t *testing.T, args []string) (stdout []byte, stderr []byte, err error) {
	t.Helper()

	cmd := NewRootCmd()

	var outBuf bytes.Buffer
	var errBuf bytes.Buffer
	cmd.SetOut(&outBuf)
	cmd.SetErr(&errBuf)
	cmd.SetArgs(args)

	e := cmd.Execute()
	return outBuf.Bytes(), errBuf.Bytes(), e
}

func mustData(t *testing.T, args ...string) any {
	t.Helper()
	stdout, stderr, err := runCLI(t, args)
	if err != nil {
		t.Fatalf("command failed: gridform %v\nerr: %v\nstderr:\n%s", args, err, string(stderr))
	}
	var env map[string]any
	if err := json.Unmarshal(stdout, &env); err != nil {
		t.Fatalf("unmarshal stdout as json envelope: %v\nstdout:\n%s", err, string(stdout))
	}
	data, ok := env["data"]
	if !ok {
		t.Fatalf("expected data key, got: %v", env)
	}
	return data
}

func writeScenario(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write scenario: %v", err)
	}
	return path
}

func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("GRIDFORM_CONFIG_DIR", dir)
	t.Setenv("GRIDFORM_JOURNAL", "")
	t.Setenv("GRIDFORM_FORMAT", "")
	t.Setenv("GRIDFORM_LOG_LEVEL", "")
	t.Setenv("GRIDFORM_HISTORY_LIMIT", "")
	return dir
}

func TestRun_JSONOutput(t *testing.T) {
	isolate(t)
	path := writeScenario(t, twoByTwo)

	data := mustData(t, "run", path, "--run-id", "run-cli").(map[string]any)
	if got := data["runId"]; got != "run-cli" {
		t.Fatalf("runId: got %v", got)
	}
	docs := data["documents"].([]any)
	if len(docs) != 1 {
		t.Fatalf("expected one document, got %d", len(docs))
	}
	rows := docs[0].(map[string]any)["rows"].([]any)
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	views := data["views"].([]any)
	for _, v := range views {
		m := v.(map[string]any)
		if m["cursor"].(float64) != 2 {
			t.Fatalf("view %v: expected cursor 2, got %v", m["id"], m["cursor"])
		}
	}
	if evs := data["events"].([]any); len(evs) != 4 {
		t.Fatalf("expected 4 events, got %d", len(evs))
	}
}

func TestRun_JournalThenList(t *testing.T) {
	isolate(t)
	path := writeScenario(t, twoByTwo)
	journalDir := filepath.Join(t.TempDir(), "journal")

	for _, backend := range []string{"jsonl", "sqlite"} {
		t.Run(backend, func(t *testing.T) {
			t.Setenv("GRIDFORM_JOURNAL", backend)
			dir := filepath.Join(journalDir, backend)
			mustData(t, "run", path, "--journal", "--journal-dir", dir, "--run-id", "run-"+backend)

			evs := mustData(t, "journal", "list", "--journal-dir", dir, "--doc", "form").([]any)
			if len(evs) != 4 {
				t.Fatalf("expected 4 events, got %d", len(evs))
			}
			first := evs[0].(map[string]any)
			if first["type"] != "edit.invoke" || first["viewId"] != "main" || first["runId"] != "run-"+backend {
				t.Fatalf("unexpected first event: %v", first)
			}

			evs = mustData(t, "journal", "list", "--journal-dir", dir, "--limit", "1").([]any)
			if len(evs) != 1 || evs[0].(map[string]any)["type"] != "edit.redo" {
				t.Fatalf("expected the most recent event only, got %v", evs)
			}

			evs = mustData(t, "journal", "list", "--journal-dir", dir, "--doc", "other").([]any)
			if len(evs) != 0 {
				t.Fatalf("expected no events for other doc, got %d", len(evs))
			}
		})
	}
}

func TestRun_TextOutput(t *testing.T) {
	isolate(t)
	path := writeScenario(t, twoByTwo)

	stdout, stderr, err := runCLI(t, []string{"run", path, "--format", "text", "--no-color"})
	if err != nil {
		t.Fatalf("run: %v\nstderr:\n%s", err, string(stderr))
	}
	out := string(stdout)
	for _, want := range []string{"two by two", "view side", "ok", "fill:12px"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestRun_FailingStepReportsError(t *testing.T) {
	isolate(t)
	path := writeScenario(t, `
documents: [{id: form}]
views: [{id: main, document: form}]
steps:
  - {op: delete-row, index: 1}
`)
	_, stderr, err := runCLI(t, []string{"run", path})
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(string(stderr), "last row") {
		t.Fatalf("expected error on stderr, got: %s", string(stderr))
	}
}

func TestRun_ConfigSuppliesFormat(t *testing.T) {
	dir := isolate(t)
	if err := os.WriteFile(filepath.Join(dir, "config.json"), []byte(`{"format":"edn"}`), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	stdout, _, err := runCLI(t, []string{"spec", "20px"})
	if err != nil {
		t.Fatalf("spec: %v", err)
	}
	if !strings.HasPrefix(strings.TrimSpace(string(stdout)), "{:data") {
		t.Fatalf("expected edn output from config, got: %s", string(stdout))
	}

	t.Setenv("GRIDFORM_FORMAT", "json")
	data := mustData(t, "spec", "20px")
	if data.([]any)[0].(map[string]any)["normalized"] != "fill:20px" {
		t.Fatalf("unexpected spec output: %v", data)
	}
}

func TestSpec_RejectsInvalid(t *testing.T) {
	isolate(t)
	_, stderr, err := runCLI(t, []string{"spec", "pref", "fill:20furlongs"})
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(string(stderr), "20furlongs") {
		t.Fatalf("expected offending input in error, got: %s", string(stderr))
	}
}

func TestDocs_ListAndShow(t *testing.T) {
	isolate(t)
	data := mustData(t, "docs").(map[string]any)
	topics := data["topics"].([]any)
	found := false
	for _, tp := range topics {
		if tp == "scenarios" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected scenarios topic, got %v", topics)
	}

	stdout, _, err := runCLI(t, []string{"docs", "scenarios", "--raw"})
	if err != nil {
		t.Fatalf("docs --raw: %v", err)
	}
	if !strings.HasPrefix(string(stdout), "# Scenarios") {
		t.Fatalf("expected raw markdown, got: %s", string(stdout))
	}

	stdout, _, err = runCLI(t, []string{"docs", "specs", "--format", "text", "--no-color"})
	if err != nil {
		t.Fatalf("docs text: %v", err)
	}
	if !strings.Contains(string(stdout), "Placement specs") {
		t.Fatalf("expected rendered topic, got: %s", string(stdout))
	}

	if _, _, err := runCLI(t, []string{"docs", "nope"}); err == nil {
		t.Fatalf("expected unknown topic error")
	}
}

func TestPublish_WritesPages(t *testing.T) {
	isolate(t)
	path := writeScenario(t, twoByTwo)
	to := t.TempDir()

	data := mustData(t, "publish", path, "--to", to).(map[string]any)
	written := data["written"].([]any)
	if len(written) != 2 {
		t.Fatalf("expected index and one document page, got %v", written)
	}
	b, err := os.ReadFile(filepath.Join(to, "documents", "form.md"))
	if err != nil {
		t.Fatalf("read page: %v", err)
	}
	if !strings.Contains(string(b), "`ok`") {
		t.Fatalf("expected placed button in page:\n%s", string(b))
	}
	if _, _, err := runCLI(t, []string{"publish", path, "--to", to}); err == nil {
		t.Fatalf("expected error when pages exist")
	}
}

func TestRoot_RejectsBadLogLevel(t *testing.T) {
	isolate(t)
	if _, _, err := runCLI(t, []string{"docs", "--log-level", "loud"}); err == nil {
		t.Fatalf("expected invalid log level error")
	}
}
