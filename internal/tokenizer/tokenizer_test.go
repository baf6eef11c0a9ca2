package tokenizer

import (
	"reflect"
	"testing"
)

func TestExtract(t *testing.T) {
	tests := []struct {
		name   string
		chunks []string
		want   [][]string
	}{
		{
			name:   "Complete lines in one chunk",
			chunks: []string{"foo\nbar\n"},
			want:   [][]string{{"foo", "bar"}},
		},
		{
			name:   "Fragment carried across chunks",
			chunks: []string{"foo\nba", "r\nbaz"},
			want:   [][]string{{"foo"}, {"bar"}},
		},
		{
			name:   "Fragment split mid-delimiter-less run",
			chunks: []string{"ab", "cd", "ef\n"},
			want:   [][]string{nil, nil, {"abcdef"}},
		},
		{
			name:   "Empty lines preserved",
			chunks: []string{"\n\nx\n"},
			want:   [][]string{{"", "", "x"}},
		},
		{
			name:   "No terminator yields nothing",
			chunks: []string{"partial"},
			want:   [][]string{nil},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tok := New()
			for i, chunk := range tt.chunks {
				got := tok.Extract([]byte(chunk))
				if !reflect.DeepEqual(got, tt.want[i]) {
					t.Errorf("Extract(chunk %d) = %v, want %v", i, got, tt.want[i])
				}
			}
		})
	}
}

func TestFlush(t *testing.T) {
	tok := New()
	tok.Extract([]byte("done\nrest"))

	if !tok.Pending() {
		t.Fatal("Pending() = false, want true after unterminated fragment")
	}
	if got := tok.Flush(); got != "rest" {
		t.Errorf("Flush() = %q, want %q", got, "rest")
	}
	if tok.Pending() {
		t.Error("Pending() = true after Flush")
	}
}

func TestCustomDelimiter(t *testing.T) {
	tok := NewDelimited("\r\n")
	got := tok.Extract([]byte("a\r\nb\nc\r\n"))
	want := []string{"a", "b\nc"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Extract() = %v, want %v", got, want)
	}
}
