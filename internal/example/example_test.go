package example

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestID_StringAndCompare(t *testing.T) {
	a := NewID("docs/a.md", 3)
	b := NewID("docs/a.md", 10)
	c := NewID("docs/b.md", 1)

	assert.Equal(t, "docs/a.md:3", a.String())
	assert.Negative(t, a.Compare(b))
	assert.Negative(t, b.Compare(c))
	assert.Positive(t, c.Compare(a))
	assert.Zero(t, a.Compare(NewID("docs/a.md", 3)))

	ids := []ID{c, b, a}
	slices.SortFunc(ids, ID.Compare)
	assert.Equal(t, []ID{a, b, c}, ids)
}

func TestNewQuery(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr string
	}{
		{name: "single line", input: "1 + 1\n"},
		{name: "empty line", input: "\n"},
		{name: "no trailing LF", input: "1 + 1", wantErr: "does not end with LF"},
		{name: "embedded LF", input: "1\n+ 1\n", wantErr: "newline before end"},
		{name: "carriage return", input: "1 + 1\r\n", wantErr: "found CR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := NewQuery(tt.input)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.input, q.String())
			assert.Equal(t, []byte(tt.input), q.Bytes())
		})
	}
}

func TestParseReplEntries(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []ReplEntry
	}{
		{
			name:  "single result",
			input: "nix-repl> 1 + 1\n2\n\n",
			want: []ReplEntry{
				{Query: MustQuery("1 + 1\n"), ExpectedResult: "2"},
			},
		},
		{
			name:  "assignment without output",
			input: "nix-repl> a = 1\n\n",
			want: []ReplEntry{
				{Query: MustQuery("a = 1\n"), ExpectedResult: ""},
			},
		},
		{
			name:  "two entries",
			input: "nix-repl> 1 + 1\n2\n\nnix-repl> \"a\" + \"b\"\n\"ab\"\n\n",
			want: []ReplEntry{
				{Query: MustQuery("1 + 1\n"), ExpectedResult: "2"},
				{Query: MustQuery("\"a\" + \"b\"\n"), ExpectedResult: "\"ab\""},
			},
		},
		{
			name:  "assignment then lookup",
			input: "nix-repl> b = \"b\"\n\nnix-repl> 1\n1\n\n",
			want: []ReplEntry{
				{Query: MustQuery("b = \"b\"\n"), ExpectedResult: ""},
				{Query: MustQuery("1\n"), ExpectedResult: "1"},
			},
		},
		{
			name:  "multiline result",
			input: "nix-repl> { a=1; b=2; }\n{\n  a = 1\n  b = 2\n}\n\n",
			want: []ReplEntry{
				{Query: MustQuery("{ a=1; b=2; }\n"), ExpectedResult: "{\n  a = 1\n  b = 2\n}"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseReplEntries(tt.input, DefaultPrompt)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseReplEntries_Errors(t *testing.T) {
	_, err := ParseReplEntries("nix-shnepl> nope\ndope\n", DefaultPrompt)
	assert.ErrorIs(t, err, ErrMissingPrompt)
	assert.Contains(t, err.Error(), "prompt")

	_, err = ParseReplEntries("nix-repl> 1 + 1", DefaultPrompt)
	assert.ErrorIs(t, err, ErrMissingLineFeed)

	_, err = ParseReplEntries("nix-repl> 1 + 1\r\n2\n", DefaultPrompt)
	assert.ErrorContains(t, err, "found CR")
}

func TestParseReplEntries_CustomPrompt(t *testing.T) {
	got, err := ParseReplEntries(">>> 2 * 3\n6\n", ">>> ")
	require.NoError(t, err)
	assert.Equal(t, []ReplEntry{{Query: MustQuery("2 * 3\n"), ExpectedResult: "6"}}, got)
}

func TestExampleSumType(t *testing.T) {
	id := NewID("x.md", 1)
	repl, err := NewReplExample(id, "nix-repl> 1\n1\n", DefaultPrompt)
	require.NoError(t, err)

	examples := []Example{repl, ExpressionExample{ID: NewID("x.md", 9), Expression: "null"}}
	assert.Equal(t, id, examples[0].ExampleID())
	assert.Equal(t, NewID("x.md", 9), examples[1].ExampleID())
}
