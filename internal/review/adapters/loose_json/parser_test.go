package loosejson

import (
	"reflect"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    any
		wantErr bool
	}{
		{
			name:  "well-formed json object",
			input: `{"confidenceThreshold": 0.8, "reviewComment": "ok"}`,
			want:  map[string]any{"confidenceThreshold": 0.8, "reviewComment": "ok"},
		},
		{
			name:  "well-formed json array",
			input: `["a", "b"]`,
			want:  []any{"a", "b"},
		},
		{
			name:  "unquoted keys and single quotes",
			input: `{confidenceThreshold: 1, reviewComment: 'passed'}`,
			want:  map[string]any{"confidenceThreshold": 1, "reviewComment": "passed"},
		},
		{
			name:  "surrounding prose",
			input: "Here is my verdict:\n{\"confidenceThreshold\": 0.3, \"reviewComment\": \"needs {work}\"}\nThanks!",
			want:  map[string]any{"confidenceThreshold": 0.3, "reviewComment": "needs {work}"},
		},
		{
			name:  "markdown fence",
			input: "```json\n{confidenceThreshold: 0.9, reviewComment: \"fine\"}\n```",
			want:  map[string]any{"confidenceThreshold": 0.9, "reviewComment": "fine"},
		},
		{
			name:  "apostrophe in unquoted value",
			input: `{confidenceThreshold: 0.3, reviewComment: the code doesn't spin}`,
			want:  map[string]any{"confidenceThreshold": 0.3, "reviewComment": "the code doesn't spin"},
		},
		{
			name:  "first decodable block wins",
			input: `Verdict [final]: {"confidenceThreshold": 0.9, "reviewComment": "ok"}`,
			want:  []any{"final"},
		},
		{
			name:  "unbracketed yaml mapping in fence",
			input: "```yaml\nconfidenceThreshold: 0.4\nreviewComment: can't verify\n```",
			want:  map[string]any{"confidenceThreshold": 0.4, "reviewComment": "can't verify"},
		},
		{
			name:    "empty input",
			input:   "   ",
			wantErr: true,
		},
		{
			name:    "plain prose",
			input:   "I could not review this pull request.",
			wantErr: true,
		},
		{
			name:    "unbalanced object",
			input:   `{"confidenceThreshold": 1`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Parse() expected error, got %#v", got)
				}
				if !IsParseError(err) {
					t.Errorf("Parse() error = %v, want ParseError", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse() unexpected error: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Parse() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestParseObject_SkipsLeadingArray(t *testing.T) {
	got, err := ParseObject(`Verdict [final]: {"confidenceThreshold": 0.9, "reviewComment": "ok"}`)
	if err != nil {
		t.Fatalf("ParseObject() unexpected error: %v", err)
	}
	want := map[string]any{"confidenceThreshold": 0.9, "reviewComment": "ok"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ParseObject() = %#v, want %#v", got, want)
	}
}

func TestParseObject_NoObject(t *testing.T) {
	tests := []string{
		`[1, 2]`,
		`see [a] and [b]`,
		`42`,
	}
	for _, input := range tests {
		if _, err := ParseObject(input); !IsParseError(err) {
			t.Errorf("ParseObject(%q) error = %v, want ParseError", input, err)
		}
	}
}

func TestNextBlock(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		want   string
		wantOK bool
	}{
		{name: "nested", input: `x {"a": {"b": [1]}} y`, want: `{"a": {"b": [1]}}`, wantOK: true},
		{name: "bracket in string", input: `{"a": "}"}`, want: `{"a": "}"}`, wantOK: true},
		{name: "escaped quote", input: `{"a": "\"}"}`, want: `{"a": "\"}"}`, wantOK: true},
		{name: "apostrophe in plain scalar", input: `{a: don't [x]} tail`, want: `{a: don't [x]}`, wantOK: true},
		{name: "single quoted string", input: `{a: '}'}`, want: `{a: '}'}`, wantOK: true},
		{name: "skips unbalanced opener", input: `[oops {"a": 1}`, want: `{"a": 1}`, wantOK: true},
		{name: "none", input: `nothing here`, wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _, ok := nextBlock(tt.input)
			if ok != tt.wantOK {
				t.Fatalf("nextBlock() ok = %v, want %v", ok, tt.wantOK)
			}
			if got != tt.want {
				t.Errorf("nextBlock() = %q, want %q", got, tt.want)
			}
		})
	}
}
