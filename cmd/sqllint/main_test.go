package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLintRepositoryQueries(t *testing.T) {
	violations, err := lint([]string{filepath.Join("..", "..", "internal", "sqlinline")})
	if err != nil {
		t.Fatalf("lint: %v", err)
	}
	if len(violations) != 0 {
		t.Fatalf("expected clean queries, got %v", violations)
	}
}

func TestLintFlagsMissingMarker(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "q.go", "package q\n\nconst QBad = `select id from runs where id = $1`\n\nconst Note = \"select a style\"\n")

	violations, err := lint([]string{dir})
	if err != nil {
		t.Fatalf("lint: %v", err)
	}
	if len(violations) != 1 {
		t.Fatalf("expected one violation, got %v", violations)
	}
	if violations[0].name != "QBad" || violations[0].line != 3 {
		t.Fatalf("unexpected violation %+v", violations[0])
	}
}

func TestLintFlagsDuplicateMarkers(t *testing.T) {
	dir := t.TempDir()
	marker := "--sql 11111111-2222-4333-8444-555555555555"
	writeFile(t, dir, "a.go", "package q\n\nconst QA = `"+marker+"\nselect 1 from a;`\n")
	writeFile(t, dir, "b.go", "package q\n\nconst QB = `"+marker+"\nselect 1 from b;`\n")

	violations, err := lint([]string{dir})
	if err != nil {
		t.Fatalf("lint: %v", err)
	}
	if len(violations) != 1 {
		t.Fatalf("expected one duplicate, got %v", violations)
	}
	if !strings.Contains(violations[0].message, "already used by QA") {
		t.Fatalf("unexpected message %q", violations[0].message)
	}
}

func TestLintSkipsTestFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "q_test.go", "package q\n\nconst QBad = `select id from runs`\n")

	violations, err := lint([]string{dir})
	if err != nil {
		t.Fatalf("lint: %v", err)
	}
	if len(violations) != 0 {
		t.Fatalf("expected test files to be skipped, got %v", violations)
	}
}
