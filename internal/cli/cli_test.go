package cli

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseLevels(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []int
		wantErr bool
	}{
		{"single value", "30", []int{30}, false},
		{"multiple values", "30,60,100", []int{30, 60, 100}, false},
		{"whitespace trimmed", " 30 , 60 ", []int{30, 60}, false},
		{"empty parts skipped", "30,,60", []int{30, 60}, false},
		{"zero and hundred", "0,100", []int{0, 100}, false},
		{"not a number", "abc", nil, true},
		{"out of range", "150", nil, true},
		{"negative", "-5", nil, true},
		{"empty string", "", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseLevels(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("parseLevels(%q) = %v, want error", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseLevels(%q) error: %v", tt.input, err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("parseLevels(%q) = %v, want %v", tt.input, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("parseLevels(%q)[%d] = %d, want %d", tt.input, i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestReadLines_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "texts.txt")
	content := "first line\n\n  second line  \n\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	lines, err := readLines([]string{path})
	if err != nil {
		t.Fatalf("readLines error: %v", err)
	}
	want := []string{"first line", "second line"}
	if len(lines) != len(want) {
		t.Fatalf("lines = %v, want %v", lines, want)
	}
	for i := range lines {
		if lines[i] != want[i] {
			t.Errorf("lines[%d] = %q, want %q", i, lines[i], want[i])
		}
	}
}

func TestReadLines_EmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.txt")
	if err := os.WriteFile(path, []byte("\n\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := readLines([]string{path}); err == nil {
		t.Fatal("expected error for empty input")
	}
}

func TestReadLines_MissingFile(t *testing.T) {
	if _, err := readLines([]string{"/nonexistent/file.txt"}); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestTextFromArgsOrStdin_Arg(t *testing.T) {
	got, err := textFromArgsOrStdin([]string{"hello"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "hello" {
		t.Errorf("got %q, want %q", got, "hello")
	}
}
