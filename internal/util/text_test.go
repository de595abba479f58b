package util

import "testing"

func TestSanitizePostgresText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "plain utf8",
			input: "hello world",
			want:  "hello world",
		},
		{
			name:  "contains null byte",
			input: "hel\x00lo",
			want:  "hello",
		},
		{
			name:  "contains invalid utf8",
			input: string([]byte{'a', 0xff, 'b'}),
			want:  "ab",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SanitizePostgresText(tt.input)
			if got != tt.want {
				t.Fatalf("unexpected sanitized value: got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDedupeStrings(t *testing.T) {
	got := DedupeStrings([]string{"b", "a", "", "b", "c", "a"})
	want := []string{"b", "a", "c"}
	if len(got) != len(want) {
		t.Fatalf("unexpected length: got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("unexpected value at %d: got %v, want %v", i, got, want)
		}
	}
}

func TestChunkRange(t *testing.T) {
	var windows [][2]int
	err := ChunkRange(7, 3, func(start, end int) error {
		windows = append(windows, [2]int{start, end})
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := [][2]int{{0, 3}, {3, 6}, {6, 7}}
	if len(windows) != len(want) {
		t.Fatalf("unexpected windows: %v", windows)
	}
	for i := range want {
		if windows[i] != want[i] {
			t.Fatalf("unexpected window %d: got %v, want %v", i, windows[i], want[i])
		}
	}
}
