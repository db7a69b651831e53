package handlers

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	apperrors "elbiefit/pkg/errors"
)

// DemoResetter restores the shared demo account
type DemoResetter interface {
	Reset(ctx context.Context, userSub string) error
}

type DemoHandler struct {
	Responder
	resets DemoResetter
}

func NewDemoHandler(resp Responder, resets DemoResetter) *DemoHandler {
	return &DemoHandler{Responder: resp, resets: resets}
}

// Reset handles POST /demo/reset
func (h *DemoHandler) Reset(w http.ResponseWriter, r *http.Request) {
	sub, err := currentUser(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	if err := h.resets.Reset(r.Context(), sub); err != nil {
		h.recordReset(resetResult(err))
		h.fail(w, r, err)
		return
	}

	h.recordReset("ok")
	h.logger.Info("Demo account reset", zap.String("user_sub", sub))
	trigger(w, EventDemoReset)
}

func (h *DemoHandler) recordReset(result string) {
	if h.metrics != nil {
		h.metrics.RecordDemoReset(result)
	}
}

func resetResult(err error) string {
	switch {
	case apperrors.IsType(err, apperrors.ErrorTypeCooldown):
		return "cooldown"
	case apperrors.IsType(err, apperrors.ErrorTypeForbidden):
		return "forbidden"
	case apperrors.IsNotFound(err):
		return "disabled"
	default:
		return "error"
	}
}
