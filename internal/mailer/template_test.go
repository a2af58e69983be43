package mailer

import (
	"testing"
)

func TestRenderTemplate(t *testing.T) {
	tests := []struct {
		name  string
		tmpl  string
		attrs map[string]string
		want  string
	}{
		{
			name: "all attributes present",
			tmpl: "Hi {{first_name}} {{last_name}} at {{company}}",
			attrs: map[string]string{
				"first_name": "Ann", "last_name": "Lee", "company": "Acme",
			},
			want: "Hi Ann Lee at Acme",
		},
		{
			name:  "missing company falls back",
			tmpl:  "Hi {{first_name}}, re {{company}}",
			attrs: map[string]string{"first_name": "Ann"},
			want:  "Hi Ann, re your company",
		},
		{
			name:  "missing first name falls back to there",
			tmpl:  "Hi {{first_name}}",
			attrs: map[string]string{},
			want:  "Hi there",
		},
		{
			name:  "last name falls back to empty",
			tmpl:  "Dear {{first_name}} {{last_name}}",
			attrs: map[string]string{"first_name": "Ann"},
			want:  "Dear Ann ",
		},
		{
			name:  "full name trims single-sided names",
			tmpl:  "{{full_name}}",
			attrs: map[string]string{"last_name": "Lee"},
			want:  "Lee",
		},
		{
			name:  "full name falls back to there when both empty",
			tmpl:  "Hello {{full_name}}",
			attrs: map[string]string{"company": "Acme"},
			want:  "Hello there",
		},
		{
			name:  "position and email fall back to empty",
			tmpl:  "{{position}}|{{email}}",
			attrs: map[string]string{},
			want:  "|",
		},
		{
			name:  "repeated placeholders all replaced",
			tmpl:  "{{first_name}} {{first_name}} {{first_name}}",
			attrs: map[string]string{"first_name": "Ann"},
			want:  "Ann Ann Ann",
		},
		{
			name:  "unrecognized placeholder left verbatim",
			tmpl:  "Hi {{first_name}}, code {{discount_code}}",
			attrs: map[string]string{"first_name": "Ann"},
			want:  "Hi Ann, code {{discount_code}}",
		},
		{
			name:  "no placeholders",
			tmpl:  "plain text",
			attrs: map[string]string{"first_name": "Ann"},
			want:  "plain text",
		},
		{
			name:  "empty template",
			tmpl:  "",
			attrs: map[string]string{"first_name": "Ann"},
			want:  "",
		},
		{
			name:  "html in attribute values is not escaped",
			tmpl:  "Hi {{first_name}}",
			attrs: map[string]string{"first_name": "Ann <b>&co</b>"},
			want:  "Hi Ann <b>&co</b>",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RenderTemplate(tt.tmpl, tt.attrs)
			if got != tt.want {
				t.Errorf("RenderTemplate() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRenderTemplate_Deterministic(t *testing.T) {
	tmpl := "Hi {{first_name}} of {{company}}, {{full_name}}"
	attrs := map[string]string{"first_name": "Ann", "company": "Acme"}

	first := RenderTemplate(tmpl, attrs)
	for i := 0; i < 10; i++ {
		if got := RenderTemplate(tmpl, attrs); got != first {
			t.Fatalf("rendering is not deterministic: %q vs %q", got, first)
		}
	}
}
