package answer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    Payload
		wantErr bool
	}{
		{
			name: "plain object",
			raw:  `{"answer": "Men are born free.", "quotes": ["all men are naturally in a state of perfect freedom"]}`,
			want: Payload{
				Answer: "Men are born free.",
				Quotes: []string{"all men are naturally in a state of perfect freedom"},
			},
		},
		{
			name: "json fence",
			raw:  "```json\n{\"answer\": \"Yes.\", \"quotes\": [\"a\", \"b\"]}\n```",
			want: Payload{Answer: "Yes.", Quotes: []string{"a", "b"}},
		},
		{
			name: "bare fence with surrounding whitespace",
			raw:  "\n  ```\n{\"answer\": \"Yes.\"}\n```  \n",
			want: Payload{Answer: "Yes."},
		},
		{
			name: "misspelled quotes key",
			raw:  `{"Answer": "No.", "qoutes": ["not so"]}`,
			want: Payload{Answer: "No.", Quotes: []string{"not so"}},
		},
		{
			name: "upper case keys",
			raw:  `{"ANSWER": "Maybe.", "QUOTES": ["perhaps"]}`,
			want: Payload{Answer: "Maybe.", Quotes: []string{"perhaps"}},
		},
		{
			name: "non string quotes dropped",
			raw:  `{"answer": "x", "quotes": ["keep", 3, null, {"q": "no"}, "  ", "also keep"]}`,
			want: Payload{Answer: "x", Quotes: []string{"keep", "also keep"}},
		},
		{
			name: "null quotes",
			raw:  `{"answer": "x", "quotes": null}`,
			want: Payload{Answer: "x"},
		},
		{
			name: "empty answer is still a payload",
			raw:  `{"answer": "", "quotes": []}`,
			want: Payload{},
		},
		{name: "prose", raw: "The answer is that men are free.", wantErr: true},
		{name: "empty", raw: "   ", wantErr: true},
		{name: "missing answer", raw: `{"reply": "hi", "quotes": []}`, wantErr: true},
		{name: "answer not string", raw: `{"answer": 42}`, wantErr: true},
		{name: "quotes not array", raw: `{"answer": "x", "quotes": "single"}`, wantErr: true},
		{name: "top level array", raw: `["answer"]`, wantErr: true},
		{name: "truncated json", raw: "```json\n{\"answer\": \"cut off", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.raw)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrMalformedPayload)
				assert.Equal(t, Payload{}, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStripFence(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "no fence", in: "  text  ", want: "text"},
		{name: "language tag", in: "```json\n{}\n```", want: "{}"},
		{name: "no language", in: "```\nbody\n```", want: "body"},
		{name: "single line", in: "```{}```", want: "{}"},
		{name: "unterminated", in: "```json\n{}", want: "```json\n{}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripFence(tt.in))
		})
	}
}

func TestPayload_Empty(t *testing.T) {
	assert.True(t, Payload{}.Empty())
	assert.True(t, Payload{Answer: "  "}.Empty())
	assert.False(t, Payload{Answer: "a"}.Empty())
	assert.False(t, Payload{Quotes: []string{"q"}}.Empty())
}
