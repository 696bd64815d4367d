package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-chat-orders/internal/catalog"
	"github.com/ariefcatur/go-chat-orders/internal/handler"
	"github.com/ariefcatur/go-chat-orders/internal/mailbox"
	"github.com/ariefcatur/go-chat-orders/internal/orders"
	"github.com/ariefcatur/go-chat-orders/pkg/apierror"
)

type handlers struct{ d Deps }

type MessageRequest struct {
	UserID    string `json:"user_id"`
	MessageID string `json:"message_id"`
	Text      string `json:"text"`
}

type MessageResponse struct {
	UserID     string  `json:"user_id"`
	MessageID  string  `json:"message_id,omitempty"`
	Intent     string  `json:"intent"`
	Confidence float64 `json:"confidence"`
	Refined    bool    `json:"refined,omitempty"`
	Reply      string  `json:"reply"`
	Duplicate  bool    `json:"duplicate,omitempty"`
}

func (h *handlers) postMessage(w http.ResponseWriter, r *http.Request) {
	var req MessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierror.Write(w, apierror.BadRequest("invalid json"))
		return
	}
	var missing []apierror.FieldError
	if strings.TrimSpace(req.UserID) == "" {
		missing = append(missing, apierror.FieldError{Field: "user_id", Message: "required"})
	}
	if strings.TrimSpace(req.Text) == "" {
		missing = append(missing, apierror.FieldError{Field: "text", Message: "required"})
	}
	if len(missing) > 0 {
		apierror.Write(w, apierror.ValidationError("invalid message", missing...))
		return
	}

	ctx := r.Context()
	if req.MessageID != "" && h.d.Guard != nil {
		first, err := h.d.Guard.Claim(ctx, req.MessageID)
		if err != nil {
			h.d.Log.Warn("dedup unavailable, routing anyway", zap.String("message_id", req.MessageID), zap.Error(err))
			first = true
		}
		if !first {
			h.duplicate(ctx, w, req)
			return
		}
	}

	res, err := h.d.Dispatcher.Dispatch(ctx, req.UserID, req.Text)
	if h.d.Metrics != nil {
		h.d.Metrics.Inflight.Set(float64(h.d.Dispatcher.Active()))
	}
	if err != nil && req.MessageID != "" && h.d.Guard != nil {
		if rerr := h.d.Guard.Release(context.WithoutCancel(ctx), req.MessageID); rerr != nil {
			h.d.Log.Warn("release claim", zap.String("message_id", req.MessageID), zap.Error(rerr))
		}
	}
	if errors.Is(err, mailbox.ErrClosed) {
		apierror.Write(w, apierror.ServiceUnavailable("shutting down"))
		return
	}
	if err != nil {
		h.d.Log.Error("dispatch failed", zap.String("user_id", req.UserID), zap.Error(err))
		apierror.Write(w, apierror.InternalError(""))
		return
	}

	out := MessageResponse{
		UserID:     req.UserID,
		MessageID:  req.MessageID,
		Intent:     string(res.Label),
		Confidence: res.Confidence,
		Refined:    res.Refined,
		Reply:      res.Reply.Truncate(handler.MaxReplyChars),
	}
	if req.MessageID != "" && h.d.Guard != nil {
		if b, err := json.Marshal(out); err == nil {
			if err := h.d.Guard.SaveReply(context.WithoutCancel(ctx), req.MessageID, b); err != nil {
				h.d.Log.Warn("cache reply", zap.String("message_id", req.MessageID), zap.Error(err))
			}
		}
	}
	writeJSON(w, http.StatusOK, out)
}

// duplicate answers a redelivered message with the first reply when it is
// still cached, or a bare acknowledgement otherwise.
func (h *handlers) duplicate(ctx context.Context, w http.ResponseWriter, req MessageRequest) {
	if h.d.Metrics != nil {
		h.d.Metrics.Duplicates.Inc()
	}
	if b, ok, err := h.d.Guard.Reply(ctx, req.MessageID); err == nil && ok {
		var prev MessageResponse
		if json.Unmarshal(b, &prev) == nil {
			prev.Duplicate = true
			writeJSON(w, http.StatusOK, prev)
			return
		}
	}
	writeJSON(w, http.StatusAccepted, MessageResponse{UserID: req.UserID, MessageID: req.MessageID, Duplicate: true})
}

type OrderResponse struct {
	orders.Order
	StatusAt         orders.Status `json:"status_at"`
	TotalCents       int64         `json:"total_cents"`
	TotalQty         int           `json:"total_qty"`
	Editable         bool          `json:"editable"`
	RemainingSeconds int64         `json:"remaining_seconds"`
}

func (h *handlers) getOrder(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	o, err := h.d.Ledger.Get(ctx, id)
	if errors.Is(err, orders.ErrNotFound) {
		apierror.Write(w, apierror.NotFound("order not found"))
		return
	}
	if err != nil {
		h.d.Log.Error("get order", zap.String("order_id", id), zap.Error(err))
		apierror.Write(w, apierror.InternalError(""))
		return
	}
	writeJSON(w, http.StatusOK, h.orderView(o, h.d.Ledger.Now()))
}

func (h *handlers) orderView(o orders.Order, now time.Time) OrderResponse {
	window := h.d.Ledger.EditWindow()
	return OrderResponse{
		Order:            o,
		StatusAt:         o.StatusAt(now, window),
		TotalCents:       o.TotalCents(),
		TotalQty:         o.TotalQty(),
		Editable:         o.Status == orders.StatusOpen && o.WithinWindow(now, window),
		RemainingSeconds: int64(o.Remaining(now, window) / time.Second),
	}
}

func (h *handlers) listUserOrders(w http.ResponseWriter, r *http.Request) {
	limit, ok := limitParam(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()
	list, err := h.d.Ledger.ListForUser(ctx, chi.URLParam(r, "id"), limit)
	if err != nil {
		h.d.Log.Error("list orders", zap.Error(err))
		apierror.Write(w, apierror.InternalError(""))
		return
	}
	now := h.d.Ledger.Now()
	out := make([]OrderResponse, 0, len(list))
	for _, o := range list {
		out = append(out, h.orderView(o, now))
	}
	writeJSON(w, http.StatusOK, out)
}

// limitParam reads ?limit= (1..200, default 20) and answers 400 when invalid.
func limitParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	s := r.URL.Query().Get("limit")
	if s == "" {
		return 20, true
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 || n > 200 {
		apierror.Write(w, apierror.ValidationError("invalid limit",
			apierror.FieldError{Field: "limit", Message: "must be between 1 and 200"}))
		return 0, false
	}
	return n, true
}

func (h *handlers) listProducts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()
	q := r.URL.Query()

	var (
		ps  []catalog.Product
		err error
	)
	if low := q.Get("low_stock"); low == "1" || low == "true" {
		threshold := h.d.LowStockThreshold
		if s := q.Get("threshold"); s != "" {
			n, convErr := strconv.Atoi(s)
			if convErr != nil || n < 0 {
				apierror.Write(w, apierror.ValidationError("invalid threshold",
					apierror.FieldError{Field: "threshold", Message: "must be a non-negative integer"}))
				return
			}
			threshold = n
		}
		ps, err = h.d.Catalog.LowStock(ctx, threshold)
	} else {
		ps, err = h.d.Catalog.Query(ctx, catalog.Filter{Type: q.Get("type"), Color: q.Get("color"), Size: q.Get("size")})
	}
	if err != nil {
		h.d.Log.Error("list products", zap.Error(err))
		apierror.Write(w, apierror.InternalError(""))
		return
	}
	if ps == nil {
		ps = []catalog.Product{}
	}
	writeJSON(w, http.StatusOK, ps)
}

func (h *handlers) getTranscript(w http.ResponseWriter, r *http.Request) {
	limit, ok := limitParam(w, r)
	if !ok {
		return
	}
	entries, err := h.d.Transcript.Recent(r.Context(), chi.URLParam(r, "id"), limit)
	if err != nil {
		h.d.Log.Error("read transcript", zap.Error(err))
		apierror.Write(w, apierror.InternalError(""))
		return
	}
	writeJSON(w, http.StatusOK, entries)
}
