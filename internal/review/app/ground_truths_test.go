package app

import (
	"reflect"
	"testing"
)

func TestSplitGroundTruths(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{
			name: "array of strings",
			raw:  `["Widgets must spin", " Spin speed is configurable "]`,
			want: []string{"Widgets must spin", "Spin speed is configurable"},
		},
		{
			name: "array wrapped in a single-key object",
			raw:  `{"groundTruths": ["Widgets must spin", "Widgets are blue"]}`,
			want: []string{"Widgets must spin", "Widgets are blue"},
		},
		{
			name: "fenced wrapped array",
			raw:  "```json\n{truths: [Widgets must spin]}\n```",
			want: []string{"Widgets must spin"},
		},
		{
			name: "non-string items are re-encoded",
			raw:  `["Widgets must spin", {"rule": "x"}, 3, null]`,
			want: []string{"Widgets must spin", `{"rule":"x"}`, "3"},
		},
		{
			name: "bullet lines",
			raw:  "* Widgets must spin\n- Widgets are blue\n",
			want: []string{"Widgets must spin", "Widgets are blue"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := splitGroundTruths(tt.raw); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("splitGroundTruths() = %#v, want %#v", got, tt.want)
			}
		})
	}
}
