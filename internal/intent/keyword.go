package intent

import (
	"context"

	"github.com/ariefcatur/go-chat-orders/internal/conversation"
	"github.com/ariefcatur/go-chat-orders/internal/parse"
)

var (
	modifyWords = []string{"cambiar", "cambia", "cambialo", "modificar", "modifica", "cancelar", "cancela", "cancelalo", "editar", "agrega", "agregar", "agregale", "suma", "sumale", "reduci", "reducir", "quita", "quitale", "confirmo", "confirmar", "confirma"}
	orderWords  = []string{"pedido", "quiero", "necesito", "comprar", "compro", "encargar", "haceme", "pedir", "ordenar"}
	stockWords  = []string{"stock", "cuanto", "cuantos", "cuantas", "tenes", "tienen", "disponible", "disponibles", "colores", "talles", "que hay", "hay"}
	adviceWords = []string{"recomendas", "recomienda", "recomendacion", "conviene", "mejor", "aconsejas", "sirve", "para que", "ideal"}
	greetWords  = []string{"hola", "buenas", "buen dia", "buenos dias", "buenas tardes", "gracias", "chau"}
)

// KeywordClassifier is the deterministic classifier used when no model is
// configured. Messages without any signal score below the default threshold so
// the router can fall back to remembered context.
type KeywordClassifier struct{}

func (KeywordClassifier) Classify(_ context.Context, message string, c conversation.Context) (Classification, error) {
	m := parse.Parse(message)
	editVerb := m.Has(modifyWords...)
	switch m.Op {
	case parse.OpCancel, parse.OpConfirm, parse.OpReduce:
		editVerb = true
	case parse.OpAdd:
		editVerb = editVerb || m.Quantity > 0
	}

	switch {
	case editVerb && c.LastOrderID != "":
		return Classification{Label: ModifyOrder, Confidence: 0.8, Reason: "edit verb with a recent order"}, nil
	case m.Has(orderWords...) && (m.Quantity > 0 || m.HasProductNoun):
		return Classification{Label: CreateOrder, Confidence: 0.8, Reason: "order keyword"}, nil
	case m.Has(adviceWords...):
		return Classification{Label: Advisory, Confidence: 0.7, Reason: "advice keyword"}, nil
	case m.Has(stockWords...):
		return Classification{Label: CheckStock, Confidence: 0.8, Reason: "stock keyword"}, nil
	case m.Quantity > 0 && m.HasProductNoun:
		return Classification{Label: CreateOrder, Confidence: 0.7, Reason: "quantity and product"}, nil
	case m.HasProductNoun:
		return Classification{Label: CheckStock, Confidence: 0.6, Reason: "product mentioned"}, nil
	case m.Has(greetWords...):
		return Classification{Label: Unrecognized, Confidence: 0.9, Reason: "greeting"}, nil
	case m.Has(orderWords...):
		return Classification{Label: CreateOrder, Confidence: 0.4, Reason: "order keyword without product"}, nil
	}
	return Classification{Label: Unrecognized, Confidence: 0.3, Reason: "no keywords"}, nil
}

var _ Classifier = KeywordClassifier{}
