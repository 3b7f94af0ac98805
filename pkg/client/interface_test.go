package client

import "testing"

func TestSanitizeJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", `{"score": 80}`, `{"score": 80}`},
		{"fenced", "```json\n{\"score\": 80}\n```", `{"score": 80}`},
		{"prose around", `Sure! Here it is: {"score": 80} Hope that helps.`, `{"score": 80}`},
		{"trailing comma", `{"a": [1, 2,], "b": 3,}`, `{"a": [1, 2], "b": 3}`},
		{"block comment", `{"a": 1 /* note */}`, `{"a": 1 }`},
		{"line comment", "{\n// header\n\"a\": 1\n}", "{\n\n\"a\": 1\n}"},
		{"inline comment", "{\n\"a\": 1 // one\n}", "{\n\"a\": 1\n}"},
		{"url survives", `{"u": "http://x"}`, `{"u": "http://x"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeJSON(tt.in); got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}
