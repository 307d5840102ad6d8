package classifier

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestCleanModelJSON(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"plain object", `{"type":"query"}`, `{"type":"query"}`},
		{"fenced json", "```json\n[{\"type\":\"expense\"}]\n```", `[{"type":"expense"}]`},
		{"bare fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"chatter around object", "Claro! {\"a\":{\"b\":2}} listo", `{"a":{"b":2}}`},
		{"chatter around array", "aquí: [1,2] fin", `[1,2]`},
		{"no json", "lo siento", "lo siento"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cleanModelJSON(tt.raw); got != tt.want {
				t.Errorf("cleanModelJSON(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestBuildPrompt(t *testing.T) {
	p := BuildPrompt("Gasté  500\n en   comida", []string{"comida", "viajes"})

	if !strings.Contains(p, "'Gasté 500 en comida'") {
		t.Errorf("message whitespace should be collapsed:\n%s", p)
	}
	if !strings.Contains(p, `Categorías existentes: ["comida", "viajes"]`) {
		t.Errorf("categories missing from prompt:\n%s", p)
	}
	if !strings.Contains(p, `"type": "exchange"`) {
		t.Error("prompt should describe the exchange format")
	}
}

func TestStatic(t *testing.T) {
	s := Static{Responses: map[string]string{"resumen": `{"type":"query","query_type":"summary"}`}}

	got, err := s.Classify(context.Background(), " resumen ", nil)
	if err != nil || !strings.Contains(string(got), "summary") {
		t.Fatalf("Classify() = %s, %v", got, err)
	}

	_, err = s.Classify(context.Background(), "otra cosa", nil)
	if !IsUnavailable(err) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}

	s.Fallback = `{}`
	got, err = s.Classify(context.Background(), "otra cosa", nil)
	if err != nil || string(got) != `{}` {
		t.Fatalf("fallback = %s, %v", got, err)
	}
}

func TestFunc(t *testing.T) {
	boom := errors.New("boom")
	f := Func(func(context.Context, string, []string) ([]byte, error) { return nil, boom })
	if _, err := f.Classify(context.Background(), "x", nil); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
}
