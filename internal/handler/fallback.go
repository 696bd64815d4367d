package handler

import (
	"context"

	"github.com/ariefcatur/go-chat-orders/internal/conversation"
)

// Menu lists what the desk understands, with an example for each.
var Menu = []string{
	"Consultar stock: \"¿tenés camisetas rojas talle M?\"",
	"Hacer un pedido: \"quiero 100 pantalones negros\"",
	"Modificar tu pedido (hasta 5 minutos): \"agregar 20 más\"",
	"Pedir una recomendación: \"¿qué me conviene para un evento?\"",
}

type Fallback struct{}

func (Fallback) Handle(_ context.Context, _ Request) (Reply, conversation.Patch, error) {
	return Reply{Title: "¡Hola! No estoy seguro de qué necesitás. Puedo ayudarte con:", Menu: Menu}, conversation.Patch{}, nil
}

// Apology is sent when a handler fails unexpectedly.
func Apology() Reply {
	return Reply{Title: "Disculpá, tuve un problema técnico. ¿Podrías repetir tu consulta?", Menu: Menu}
}
