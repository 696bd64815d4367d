// Package handler holds the specialised responders the router dispatches to.
// Each one reads the parsed message and context, talks to the catalog or the
// ledger, and returns a reply plus a context patch.
package handler

import (
	"context"

	"github.com/ariefcatur/go-chat-orders/internal/conversation"
	"github.com/ariefcatur/go-chat-orders/internal/parse"
)

type Request struct {
	UserID  string
	Text    string
	Message parse.Message
	Context conversation.Context
}

func NewRequest(userID, text string, c conversation.Context) Request {
	return Request{UserID: userID, Text: text, Message: parse.Parse(text), Context: c}
}

type Handler interface {
	Handle(ctx context.Context, req Request) (Reply, conversation.Patch, error)
}

type Func func(ctx context.Context, req Request) (Reply, conversation.Patch, error)

func (f Func) Handle(ctx context.Context, req Request) (Reply, conversation.Patch, error) {
	return f(ctx, req)
}
