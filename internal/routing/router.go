// Package routing classifies each message, picks the handler for its intent and
// keeps the per-user conversation context current.
package routing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ariefcatur/go-chat-orders/internal/conversation"
	"github.com/ariefcatur/go-chat-orders/internal/handler"
	"github.com/ariefcatur/go-chat-orders/internal/intent"
)

const DefaultThreshold = 0.5

type Handlers struct {
	Stock    handler.Handler
	Order    handler.Handler
	Modify   handler.Handler
	Advisory handler.Handler
	Fallback handler.Handler
}

// Observer receives one call per routed message.
type Observer interface {
	ObserveRoute(label string, confidence float64, refined, failed bool, took time.Duration)
}

type Result struct {
	UserID     string
	Label      intent.Label
	Confidence float64
	// Refined is set when a low-confidence attribute-only message was
	// treated as a refinement of the remembered stock query.
	Refined bool
	// Unavailable is set when the classifier failed and the fallback answered.
	Unavailable bool
	Reply       handler.Reply
	Context     conversation.Context
}

type Router struct {
	classifier intent.Classifier
	contexts   conversation.Store
	handlers   Handlers
	threshold  float64
	log        *zap.Logger
	observer   Observer
}

func NewRouter(c intent.Classifier, contexts conversation.Store, h Handlers, threshold float64, log *zap.Logger) *Router {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if log == nil {
		log = zap.NewNop()
	}
	if h.Fallback == nil {
		h.Fallback = handler.Fallback{}
	}
	return &Router{classifier: c, contexts: contexts, handlers: h, threshold: threshold, log: log}
}

func (r *Router) WithObserver(o Observer) *Router {
	r.observer = o
	return r
}

// Route handles one message for userID. Callers must not route two messages of
// the same user concurrently; Dispatcher guarantees that.
func (r *Router) Route(ctx context.Context, userID, text string) (Result, error) {
	start := time.Now()
	c, err := r.contexts.Load(ctx, userID)
	if err != nil {
		return Result{}, fmt.Errorf("load context: %w", err)
	}
	req := handler.NewRequest(userID, text, c)
	res := Result{UserID: userID}

	cl, err := r.classifier.Classify(ctx, text, c)
	switch {
	case err != nil:
		if !errors.Is(err, intent.ErrClassificationUnavailable) {
			err = fmt.Errorf("%w: %v", intent.ErrClassificationUnavailable, err)
		}
		r.log.Warn("classifier unavailable", zap.String("user_id", userID), zap.Error(err))
		res.Label, res.Unavailable = intent.Unrecognized, true
	case cl.Confidence < r.threshold:
		if req.Message.AttributeOnly() && !c.LastFilter.IsEmpty() {
			res.Label, res.Refined = intent.CheckStock, true
		} else {
			res.Label = intent.Unrecognized
		}
		res.Confidence = cl.Confidence
	default:
		res.Label, res.Confidence = cl.Label, cl.Confidence
	}

	reply, patch, herr := r.dispatch(ctx, res.Label, req)
	if herr != nil {
		r.log.Error("handler failed", zap.String("user_id", userID), zap.String("intent", string(res.Label)), zap.Error(herr))
		reply, patch = handler.Apology(), conversation.Patch{}
	}
	res.Reply = reply

	patch = conversation.WithIntent(string(res.Label)).Merge(patch)
	if res.Context, err = r.contexts.Update(ctx, userID, patch); err != nil {
		r.log.Warn("update context", zap.String("user_id", userID), zap.Error(err))
		res.Context = c
	}

	if r.observer != nil {
		r.observer.ObserveRoute(string(res.Label), res.Confidence, res.Refined, herr != nil, time.Since(start))
	}
	r.log.Debug("routed", zap.String("user_id", userID), zap.String("intent", string(res.Label)),
		zap.Float64("confidence", res.Confidence), zap.Bool("refined", res.Refined))
	return res, nil
}

func (r *Router) dispatch(ctx context.Context, label intent.Label, req handler.Request) (handler.Reply, conversation.Patch, error) {
	var h handler.Handler
	switch label {
	case intent.CheckStock:
		h = r.handlers.Stock
	case intent.CreateOrder:
		h = r.handlers.Order
	case intent.ModifyOrder:
		h = r.handlers.Modify
	case intent.Advisory:
		h = r.handlers.Advisory
	case intent.Unrecognized:
		h = r.handlers.Fallback
	default:
		return handler.Reply{}, conversation.Patch{}, fmt.Errorf("unhandled intent %q", label)
	}
	if h == nil {
		h = r.handlers.Fallback
	}
	return h.Handle(ctx, req)
}
