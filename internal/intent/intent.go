// Package intent classifies a message into one of a closed set of labels.
package intent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ariefcatur/go-chat-orders/internal/conversation"
)

type Label string

const (
	CheckStock   Label = "check_stock"
	CreateOrder  Label = "create_order"
	ModifyOrder  Label = "modify_order"
	Advisory     Label = "advisory"
	Unrecognized Label = "unrecognized"
)

// Labels lists every label the router must handle.
var Labels = []Label{CheckStock, CreateOrder, ModifyOrder, Advisory, Unrecognized}

func (l Label) Valid() bool {
	for _, x := range Labels {
		if x == l {
			return true
		}
	}
	return false
}

type Classification struct {
	Label      Label
	Confidence float64
	Reason     string
}

// Classifier is the external model. Implementations may be slow or fail.
type Classifier interface {
	Classify(ctx context.Context, message string, c conversation.Context) (Classification, error)
}

var ErrClassificationUnavailable = errors.New("classification unavailable")

// ClassifierFunc adapts a function to Classifier.
type ClassifierFunc func(ctx context.Context, message string, c conversation.Context) (Classification, error)

func (f ClassifierFunc) Classify(ctx context.Context, message string, c conversation.Context) (Classification, error) {
	return f(ctx, message, c)
}

type timeoutClassifier struct {
	next    Classifier
	timeout time.Duration
}

// WithTimeout bounds next. Any failure, including the deadline, becomes
// ErrClassificationUnavailable; a label outside the closed set does too.
func WithTimeout(next Classifier, d time.Duration) Classifier {
	return &timeoutClassifier{next: next, timeout: d}
}

func (t *timeoutClassifier) Classify(ctx context.Context, message string, c conversation.Context) (Classification, error) {
	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	type result struct {
		cl  Classification
		err error
	}
	ch := make(chan result, 1)
	go func() {
		cl, err := t.next.Classify(ctx, message, c)
		ch <- result{cl, err}
	}()

	select {
	case <-ctx.Done():
		return Classification{}, fmt.Errorf("%w: %v", ErrClassificationUnavailable, ctx.Err())
	case r := <-ch:
		if r.err != nil {
			return Classification{}, fmt.Errorf("%w: %v", ErrClassificationUnavailable, r.err)
		}
		if !r.cl.Label.Valid() {
			return Classification{}, fmt.Errorf("%w: unknown label %q", ErrClassificationUnavailable, r.cl.Label)
		}
		return r.cl, nil
	}
}
