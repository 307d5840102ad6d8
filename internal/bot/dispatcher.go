// Package bot is the conversation surface of the ledger: slash commands and
// free text routed through the classifier, answered with Spanish replies.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"gastos/internal/classifier"
	"gastos/internal/core"
	"gastos/internal/services"
	"gastos/internal/session"
)

// Message is one incoming chat message.
type Message struct {
	UserID  int64
	GroupID int64
	Text    string
}

// Reply is the text answer plus the data behind it for richer renderers.
type Reply struct {
	Text     string                `json:"text"`
	Balances []core.Balances       `json:"balances,omitempty"`
	Summary  *core.Summary         `json:"summary,omitempty"`
	Slices   []core.CategoryAmount `json:"slices,omitempty"`
	Entries  []core.Entry          `json:"entries,omitempty"`
}

const (
	msgUnreadable  = "Perdón, no pude procesar tu mensaje. ¿Podrías reformularlo?"
	msgRephrase    = "Perdón, no entendí bien ese mensaje. ¿Podrías decirlo de otra forma?"
	msgInvalidAmt  = "❌ El monto tiene que ser mayor a cero."
	msgRetry       = "Hubo un error procesando tu mensaje. ¿Podrías intentarlo de nuevo?"
	msgNothingTodo = "No hay ninguna operación de borrado pendiente."
)

const welcome = `¡Bienvenido a tu gestor de gastos personal! 📊

Simplemente contame sobre tus gastos o ingresos en lenguaje natural:
- "Gasté $500 en comida"
- "Ingresé $1000 de sueldo"
- "Cambié 100 USD a 90000 pesos"
- "Cuánto tengo en efectivo?"
- "Dame un resumen"

Comandos:
/listar [all|categoría] - Últimas transacciones
/borrar <id> - Borra una transacción
/renombrar <categoría> <nuevo_nombre> - Renombra una categoría
/categorias - Lista las categorías
/borrar_todo - Borrar todas las transacciones ⚠️`

// command names, with their English aliases
var commands = map[string]string{
	"start":       "start",
	"help":        "start",
	"ayuda":       "start",
	"listar":      "listar",
	"list":        "listar",
	"borrar":      "borrar",
	"delete":      "borrar",
	"renombrar":   "renombrar",
	"rename":      "renombrar",
	"categorias":  "categorias",
	"categories":  "categorias",
	"borrar_todo": "borrar_todo",
	"clear":       "borrar_todo",
	"confirmar":   "confirmar",
	"confirm":     "confirmar",
}

// Dispatcher processes messages one at a time, start to finish.
type Dispatcher struct {
	mu         sync.Mutex
	ledger     *services.LedgerService
	classifier classifier.Classifier
	guard      *session.ClearGuard
	listLimit  int
}

func NewDispatcher(ledger *services.LedgerService, c classifier.Classifier, guard *session.ClearGuard, listLimit int) *Dispatcher {
	if listLimit <= 0 {
		listLimit = 10
	}
	return &Dispatcher{
		ledger:     ledger,
		classifier: c,
		guard:      guard,
		listLimit:  listLimit,
	}
}

// Handle answers one message. Failures become replies; nothing here is
// fatal to the conversation.
func (d *Dispatcher) Handle(ctx context.Context, msg Message) Reply {
	d.mu.Lock()
	defer d.mu.Unlock()

	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return Reply{Text: msgUnreadable}
	}

	if !strings.HasPrefix(text, "/") {
		if d.guard.Cancel(msg.GroupID) {
			slog.InfoContext(ctx, "Pending clear cancelled", "group_id", msg.GroupID)
		}
		return d.handleText(ctx, msg, text)
	}

	fields := strings.Fields(text[1:])
	name := ""
	if len(fields) > 0 {
		// Telegram style /cmd@botname
		name, _, _ = strings.Cut(strings.ToLower(fields[0]), "@")
	}
	args := fields[min(1, len(fields)):]
	cmd, ok := commands[name]

	if cmd != "confirmar" {
		d.guard.Cancel(msg.GroupID)
	}
	if !ok {
		return Reply{Text: "Comando desconocido. Usá /start para ver los comandos disponibles."}
	}

	slog.InfoContext(ctx, "Command received", "command", cmd, "group_id", msg.GroupID, "user_id", msg.UserID)

	switch cmd {
	case "start":
		return Reply{Text: welcome}
	case "listar":
		return d.list(ctx, msg.GroupID, args)
	case "borrar":
		return d.remove(ctx, msg.GroupID, args)
	case "renombrar":
		return d.rename(ctx, args)
	case "categorias":
		return d.categories(ctx)
	case "borrar_todo":
		return d.requestClear(ctx, msg.GroupID)
	default:
		return d.confirmClear(ctx, msg.GroupID)
	}
}

func (d *Dispatcher) handleText(ctx context.Context, msg Message, text string) Reply {
	categories, err := d.ledger.Categories(ctx)
	if err != nil {
		return d.failure(ctx, msg, err)
	}

	raw, err := d.classifier.Classify(ctx, text, categories)
	if err != nil {
		slog.ErrorContext(ctx, "Classifier failed", "group_id", msg.GroupID, "error", err)
		return Reply{Text: msgUnreadable}
	}

	by := services.Author{UserID: msg.UserID, GroupID: msg.GroupID}
	res, err := d.ledger.ApplyRaw(ctx, by, raw)
	if err != nil {
		return d.failure(ctx, msg, err)
	}

	if res.Answer != nil {
		r := Reply{Text: formatAnswer(*res.Answer), Balances: res.Answer.Balances, Summary: res.Answer.Summary}
		if s := res.Answer.Summary; s != nil {
			for _, bal := range s.Balances {
				r.Slices = append(r.Slices, core.ExpenseSlices(s.ByCategory[bal.Currency])...)
			}
		}
		return r
	}
	return Reply{Text: formatRecorded(res.Recorded), Entries: res.Recorded}
}

// failure maps an error class to the reply the user sees.
func (d *Dispatcher) failure(ctx context.Context, msg Message, err error) Reply {
	switch {
	case errors.Is(err, core.ErrMalformedIntent):
		slog.WarnContext(ctx, "Malformed intent", "group_id", msg.GroupID, "error", err)
		return Reply{Text: msgRephrase}
	case errors.Is(err, core.ErrInvalidAmount):
		slog.WarnContext(ctx, "Invalid amount", "group_id", msg.GroupID, "error", err)
		return Reply{Text: msgInvalidAmt}
	default:
		slog.ErrorContext(ctx, "Error processing message", "group_id", msg.GroupID, "error", err)
		return Reply{Text: msgRetry}
	}
}

func (d *Dispatcher) list(ctx context.Context, groupID int64, args []string) Reply {
	limit, category := d.listLimit, ""
	if len(args) > 0 {
		if strings.EqualFold(args[0], "all") {
			limit = 0
		} else {
			category = core.NormalizeName(args[0])
			names, err := d.ledger.Categories(ctx)
			if err != nil {
				return d.failure(ctx, Message{GroupID: groupID}, err)
			}
			if !contains(names, category) {
				text := "❌ Categoría no válida. Las categorías disponibles son:\n" + strings.Join(names, ", ")
				if s := closestName(category, names); s != "" {
					text += fmt.Sprintf("\n¿Quisiste decir '%s'?", s)
				}
				return Reply{Text: text}
			}
		}
	}

	entries, err := d.ledger.ListRecent(ctx, groupID, limit, category)
	if err != nil {
		return d.failure(ctx, Message{GroupID: groupID}, err)
	}
	if len(entries) == 0 {
		text := "No hay transacciones"
		if category != "" {
			text += fmt.Sprintf(" en la categoría '%s'", category)
		}
		return Reply{Text: text + " para mostrar."}
	}
	return Reply{Text: formatListing(entries, category), Entries: entries}
}

func (d *Dispatcher) remove(ctx context.Context, groupID int64, args []string) Reply {
	if len(args) == 0 {
		return Reply{Text: "❌ Tenés que especificar el ID de la transacción a borrar.\nUsá /listar para ver los IDs disponibles."}
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return Reply{Text: "❌ El ID debe ser un número.\nUsá /listar para ver los IDs disponibles."}
	}

	ok, err := d.ledger.DeleteTransaction(ctx, groupID, id)
	if err != nil {
		return d.failure(ctx, Message{GroupID: groupID}, err)
	}
	if !ok {
		return Reply{Text: "❌ No se encontró la transacción o no tenés permiso para borrarla."}
	}
	return Reply{Text: fmt.Sprintf("✅ Transacción %d borrada correctamente.", id)}
}

func (d *Dispatcher) rename(ctx context.Context, args []string) Reply {
	names, err := d.ledger.Categories(ctx)
	if err != nil {
		return d.failure(ctx, Message{}, err)
	}
	if len(args) < 2 {
		return Reply{Text: "❌ Tenés que especificar la categoría original y el nuevo nombre.\n\n" +
			"Uso: /renombrar categoria_original nuevo_nombre\n\n" +
			"Categorías actuales:\n" + bulletList(names) + "\n\n" +
			"Ejemplo: /renombrar comida alimentos"}
	}

	oldName, newName := core.NormalizeName(args[0]), core.NormalizeName(args[1])
	err = d.ledger.RenameCategory(ctx, oldName, newName)
	switch {
	case err == nil:
		return Reply{Text: fmt.Sprintf("✅ Categoría '%s' renombrada a '%s'.", oldName, newName)}
	case errors.Is(err, core.ErrNotFound):
		text := fmt.Sprintf("❌ La categoría '%s' no existe.", oldName)
		if s := closestName(oldName, names); s != "" {
			text += fmt.Sprintf(" ¿Quisiste decir '%s'?", s)
		}
		return Reply{Text: text}
	case errors.Is(err, core.ErrConflict):
		return Reply{Text: fmt.Sprintf("❌ Ya existe una categoría llamada '%s'.", newName)}
	default:
		return d.failure(ctx, Message{}, err)
	}
}

func (d *Dispatcher) categories(ctx context.Context) Reply {
	names, err := d.ledger.Categories(ctx)
	if err != nil {
		return d.failure(ctx, Message{}, err)
	}
	return Reply{Text: "Categorías actuales:\n" + bulletList(names)}
}

func (d *Dispatcher) requestClear(ctx context.Context, groupID int64) Reply {
	count, err := d.ledger.CountTransactions(ctx, groupID)
	if err != nil {
		return d.failure(ctx, Message{GroupID: groupID}, err)
	}
	d.guard.Request(groupID, count)
	slog.InfoContext(ctx, "Clear requested", "group_id", groupID, "count", count)

	return Reply{Text: fmt.Sprintf("⚠️ ¿Estás seguro de que querés borrar TODAS las transacciones (%d en total)?\n"+
		"Esta acción:\n"+
		"- Borrará todas las transacciones\n"+
		"- Reiniciará los IDs desde 1\n"+
		"- Mantendrá las categorías existentes\n"+
		"- No se puede deshacer\n\n"+
		"Escribí /confirmar para proceder.", count)}
}

func (d *Dispatcher) confirmClear(ctx context.Context, groupID int64) Reply {
	if !d.guard.Confirm(groupID) {
		return Reply{Text: msgNothingTodo}
	}
	if _, err := d.ledger.ClearAll(ctx, groupID); err != nil {
		return d.failure(ctx, Message{GroupID: groupID}, err)
	}
	return Reply{Text: "✅ Se borraron todas las transacciones.\nLos próximos registros comenzarán desde el ID 1."}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
