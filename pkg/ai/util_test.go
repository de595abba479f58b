package ai

import (
	"testing"
)

type summaryOut struct {
	Title   string `json:"title"`
	Summary string `json:"summary"`
}

func TestUnmarshalFlexible_SummaryVariants(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  summaryOut
	}{
		{
			name:  "valid json object",
			input: `{"title":"Acme litigation","summary":"Parties to the Acme dispute."}`,
			want:  summaryOut{Title: "Acme litigation", Summary: "Parties to the Acme dispute."},
		},
		{
			name:  "unquoted keys and single quotes",
			input: `{title: 'Acme litigation', summary: 'Parties.'}`,
			want:  summaryOut{Title: "Acme litigation", Summary: "Parties."},
		},
		{
			name:  "trailing comma",
			input: `{"title":"Acme litigation","summary":"Parties.",}`,
			want:  summaryOut{Title: "Acme litigation", Summary: "Parties."},
		},
		{
			name:  "missing end bracket",
			input: `{"title":"Acme litigation","summary":"Parties."`,
			want:  summaryOut{Title: "Acme litigation", Summary: "Parties."},
		},
		{
			name:  "double encoded",
			input: `"{\"title\": \"Acme litigation\", \"summary\": \"Parties.\"}"`,
			want:  summaryOut{Title: "Acme litigation", Summary: "Parties."},
		},
		{
			name:  "duplicate leading brace",
			input: "{\n{\n  \"title\": \"Acme litigation\", \"summary\": \"Parties.\"\n}\n",
			want:  summaryOut{Title: "Acme litigation", Summary: "Parties."},
		},
		{
			name:  "markdown code fence",
			input: "```json\n{\"title\": \"Acme litigation\", \"summary\": \"Parties.\"}\n```",
			want:  summaryOut{Title: "Acme litigation", Summary: "Parties."},
		},
		{
			name:  "bare code fence",
			input: "```\n{\"title\": \"Acme litigation\", \"summary\": \"Parties.\"}\n```",
			want:  summaryOut{Title: "Acme litigation", Summary: "Parties."},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var got summaryOut
			if err := UnmarshalFlexible(tc.input, &got); err != nil {
				t.Fatalf("UnmarshalFlexible() error = %v", err)
			}
			if got != tc.want {
				t.Fatalf("UnmarshalFlexible() got = %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestUnmarshalFlexible_ArrayVariants(t *testing.T) {
	input := `[{title:'A'},{title:'B',}]`
	var got []summaryOut
	if err := UnmarshalFlexible(input, &got); err != nil {
		t.Fatalf("UnmarshalFlexible() error = %v", err)
	}
	if len(got) != 2 || got[0].Title != "A" || got[1].Title != "B" {
		t.Fatalf("UnmarshalFlexible() got = %+v, want two entries A,B", got)
	}
}

func TestUnmarshalFlexible_Unrecoverable(t *testing.T) {
	var got summaryOut
	if err := UnmarshalFlexible("hello", &got); err == nil {
		t.Fatalf("UnmarshalFlexible() expected error for unrecoverable input")
	}
}

func TestGenerateSchema(t *testing.T) {
	schema, err := GenerateSchema(&summaryOut{})
	if err != nil {
		t.Fatalf("GenerateSchema() error = %v", err)
	}
	if schema["type"] != "object" {
		t.Fatalf("expected object schema, got %v", schema["type"])
	}
	props, ok := schema["properties"].(map[string]any)
	if !ok {
		t.Fatalf("expected properties map, got %T", schema["properties"])
	}
	for _, key := range []string{"title", "summary"} {
		if _, ok := props[key]; !ok {
			t.Fatalf("expected property %q in schema", key)
		}
	}
	if _, ok := schema["$schema"]; ok {
		t.Fatalf("expected $schema to be stripped")
	}
}

func TestApplyOptions(t *testing.T) {
	opts := ApplyOptions(GenerateOptions{Model: "default", Temperature: 0.3},
		WithModel("custom"),
		WithTemperature(0.1),
		WithSystemPrompts("a", "b"),
		WithSchema("summary", map[string]any{"type": "object"}),
	)
	if opts.Model != "custom" || opts.Temperature != 0.1 {
		t.Fatalf("unexpected options: %+v", opts)
	}
	if len(opts.SystemPrompts) != 2 || opts.SchemaName != "summary" || opts.Schema == nil {
		t.Fatalf("unexpected options: %+v", opts)
	}
}

func TestCountAndTruncateTokens(t *testing.T) {
	text := "The Supreme Court reversed the judgment of the Court of Appeals."
	n, err := CountTokens(text)
	if err != nil {
		t.Skipf("tokenizer unavailable: %v", err)
	}
	if n == 0 {
		t.Fatalf("expected tokens for non-empty text")
	}

	cut, err := TruncateToTokens(text, 5)
	if err != nil {
		t.Fatalf("TruncateToTokens() error = %v", err)
	}
	if len(cut) >= len(text) {
		t.Fatalf("expected truncated text, got %q", cut)
	}

	same, err := TruncateToTokens(text, 1000)
	if err != nil || same != text {
		t.Fatalf("expected text unchanged, got %q, %v", same, err)
	}
}
