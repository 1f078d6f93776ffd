package slug

import "testing"

func TestMake(t *testing.T) {
	tests := []struct {
		name  string
		title string
		want  string
	}{
		{
			name:  "punctuation and case",
			title: "My Paper: A Study!",
			want:  "my-paper-a-study",
		},
		{
			name:  "plain title",
			title: "Bayesian Phylogenetics",
			want:  "bayesian-phylogenetics",
		},
		{
			name:  "diacritics stripped",
			title: "Étude über Reproducibilité",
			want:  "etude-uber-reproducibilite",
		},
		{
			name:  "whitespace collapsed",
			title: "  spaced   out\ttitle  ",
			want:  "spaced-out-title",
		},
		{
			name:  "existing dashes collapsed",
			title: "pre--existing --- dashes",
			want:  "pre-existing-dashes",
		},
		{
			name:  "leading and trailing trimmed",
			title: "-edges-",
			want:  "edges",
		},
		{
			name:  "digits kept",
			title: "COVID-19 Modelling (2024)",
			want:  "covid-19-modelling-2024",
		},
		{
			name:  "empty",
			title: "",
			want:  "",
		},
		{
			name:  "only punctuation",
			title: "?!#$",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Make(tt.title)
			if got != tt.want {
				t.Errorf("Make(%q) = %q, want %q", tt.title, got, tt.want)
			}
		})
	}
}

func TestMake_Idempotent(t *testing.T) {
	titles := []string{
		"My Paper: A Study!",
		"Étude über Reproducibilité",
		"already-a-slug",
		"Mixed CASE With 123",
	}

	for _, title := range titles {
		once := Make(title)
		twice := Make(once)
		if once != twice {
			t.Errorf("Make not idempotent for %q: first %q, second %q", title, once, twice)
		}
	}
}
