// Package classifier turns a free-text message into the intent JSON the
// ledger understands. The model is an external dependency; everything it
// returns is validated again by the intent package.
package classifier

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrUnavailable wraps failures of the remote model.
var ErrUnavailable = errors.New("classifier unavailable")

// Classifier returns the raw intent JSON for a user message. categories are
// the names currently in the registry so the model can reuse them.
type Classifier interface {
	Classify(ctx context.Context, text string, categories []string) ([]byte, error)
}

// Func adapts a function to Classifier.
type Func func(ctx context.Context, text string, categories []string) ([]byte, error)

func (f Func) Classify(ctx context.Context, text string, categories []string) ([]byte, error) {
	return f(ctx, text, categories)
}

// Static answers from a fixed table keyed by the exact message text. Unknown
// messages yield Fallback, or an error when Fallback is empty.
type Static struct {
	Responses map[string]string
	Fallback  string
}

func (s Static) Classify(_ context.Context, text string, _ []string) ([]byte, error) {
	if r, ok := s.Responses[strings.TrimSpace(text)]; ok {
		return []byte(r), nil
	}
	if s.Fallback != "" {
		return []byte(s.Fallback), nil
	}
	return nil, fmt.Errorf("%w: no canned response for %q", ErrUnavailable, text)
}

const systemInstruction = "You are a financial assistant that ONLY responds in valid JSON format."

// BuildPrompt renders the instructions sent with every message.
func BuildPrompt(message string, categories []string) string {
	message = strings.Join(strings.Fields(message), " ")

	quoted := make([]string, len(categories))
	for i, c := range categories {
		quoted[i] = fmt.Sprintf("%q", c)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Analiza el siguiente mensaje financiero y devuelve la respuesta en JSON: '%s'\n\n", message)
	fmt.Fprintf(&b, "Categorías existentes: [%s]\n", strings.Join(quoted, ", "))
	b.WriteString(promptBody)
	return b.String()
}

const promptBody = `
Para CONSULTAS (resumen, balance, etc) usar este formato:
{
    "type": "query",
    "query_type": "summary"|"balance",
    "money_type": "cash"|"bank"|"all"
}

Para TRANSACCIONES usar este formato (siempre en array):
[
    {
        "type": "expense"|"income",
        "amount": float,
        "description": string,
        "money_type": "bank"|"cash",
        "category": string,
        "currency": string,
        "should_create_category": boolean,
        "category_reason": string
    }
]

Para CAMBIO DE DIVISAS usar este formato:
{
    "type": "exchange",
    "amount": float,
    "target_amount": float,
    "source_currency": string,
    "target_currency": string,
    "money_type": "bank"|"cash"
}

REGLAS:
1. Si el mensaje es una consulta como "resumen", "balance", "cuánto tengo", "mostrame" → Usar formato de CONSULTAS
2. Si el mensaje es sobre gastos/ingresos → Usar formato de TRANSACCIONES
3. Si el mensaje es sobre cambio de divisas → Usar formato de CAMBIO
4. Para pagos de tarjeta de crédito o servicios financieros → category: "financiero"
5. Para transferencias o tarjeta → money_type: "bank"
6. Para efectivo → money_type: "cash"
7. Convertir TODOS los montos a números (sin el símbolo $)
8. Si no se menciona moneda → currency: "ARS"
9. NO incluir texto fuera de la estructura JSON

Ejemplos:
1. "Dame un resumen" →
{"type": "query", "query_type": "summary", "money_type": "all"}

2. "Gasté $100 en comida" →
[{"type": "expense", "amount": 100.0, "description": "Comida", "money_type": "cash", "category": "comida", "currency": "ARS", "should_create_category": false, "category_reason": ""}]

3. "Cambié 100 USD a 90000 pesos" →
{"type": "exchange", "amount": 100.0, "target_amount": 90000.0, "source_currency": "USD", "target_currency": "ARS", "money_type": "cash"}

Palabras clave:
- Consultas: "resumen", "balance", "cuánto tengo", "mostrar", "dame"
- Gastos: "gasté", "pagué", "compré", "tarjeta"
- Ingresos: "cobré", "recibí", "ingresé", "deposité"
- Cambios: "cambié", "convertí", "pasé de"
`

// cleanModelJSON strips Markdown fences and any chatter around the first
// JSON object or array of a model reply.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		idx := strings.Index(s, "\n")
		if idx == -1 {
			return s
		}
		s = strings.TrimSpace(s[idx+1:])
	}
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}
	s = strings.TrimSpace(s)

	start := strings.IndexAny(s, "[{")
	if start == -1 {
		return s
	}
	closing := "]"
	if s[start] == '{' {
		closing = "}"
	}
	if end := strings.LastIndex(s, closing); end > start {
		s = s[start : end+1]
	}
	return strings.TrimSpace(s)
}
