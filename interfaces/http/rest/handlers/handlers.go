package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"elbiefit/application/ports"
	"elbiefit/domain/keys"
	"elbiefit/domain/units"
	"elbiefit/interfaces/http/rest/views"
	"elbiefit/pkg/common"
	apperrors "elbiefit/pkg/errors"
	"elbiefit/pkg/observability"
)

// htmx response headers and events
const (
	HeaderTrigger  = "HX-Trigger"
	HeaderRedirect = "HX-Redirect"

	EventSetChanged = "workoutSetChanged"
	EventDemoReset  = "demoResetDone"
)

// Renderer draws templates by name
type Renderer interface {
	Render(w http.ResponseWriter, r *http.Request, status int, name string, data views.Data)
}

// Responder carries what every handler needs to answer a request
type Responder struct {
	views   Renderer
	errors  *apperrors.ErrorHandler
	metrics *observability.Collector
	logger  *zap.Logger
}

// NewResponder bundles the shared response helpers. metrics may be nil.
func NewResponder(renderer Renderer, errs *apperrors.ErrorHandler, metrics *observability.Collector, logger *zap.Logger) Responder {
	return Responder{
		views:   renderer,
		errors:  errs,
		metrics: metrics,
		logger:  logger,
	}
}

func (b Responder) fail(w http.ResponseWriter, r *http.Request, err error) {
	b.record(err)
	b.errors.Handle(w, r, err)
}

func (b Responder) failJSON(w http.ResponseWriter, r *http.Request, err error) {
	b.record(err)
	b.errors.HandleJSON(w, r, err)
}

func (b Responder) record(err error) {
	if b.metrics == nil {
		return
	}
	errType := string(apperrors.ErrorTypeInternal)
	if appErr := apperrors.GetAppError(err); appErr != nil {
		errType = string(appErr.Type)
	}
	b.metrics.RecordError(errType)
}

func (b Responder) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		b.logger.Error("Failed to encode response", zap.Error(err))
	}
}

// trigger answers 204 and fires a client-side htmx event
func trigger(w http.ResponseWriter, event string) {
	w.Header().Set(HeaderTrigger, event)
	w.WriteHeader(http.StatusNoContent)
}

func currentUser(r *http.Request) (string, error) {
	sub, ok := common.GetUserSub(r.Context())
	if !ok {
		return "", apperrors.NewUnauthorizedError("Not authenticated")
	}
	return sub, nil
}

func pathDate(r *http.Request) (time.Time, error) {
	date, err := keys.ParseDate(chi.URLParam(r, "date"))
	if err != nil {
		return time.Time{}, apperrors.NewBadRequestError("Invalid date").WithCause(err)
	}
	return date, nil
}

func pathSetNumber(r *http.Request) (int, error) {
	n, err := strconv.Atoi(chi.URLParam(r, "setNumber"))
	if err != nil || n < 1 {
		return 0, apperrors.NewBadRequestError("Invalid set number")
	}
	return n, nil
}

// unitSystem is the caller's preferred unit system; users without a
// profile get metric
func unitSystem(ctx context.Context, profiles ports.ProfileRepository, userSub string) (string, error) {
	profile, err := profiles.GetProfile(ctx, userSub)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return units.Metric, nil
		}
		return "", err
	}
	if profile.Preferences.Units == "" {
		return units.Metric, nil
	}
	return profile.Preferences.Units, nil
}

func unitData(system string) views.Data {
	return views.Data{
		"units":       system,
		"weight_unit": units.WeightUnit(system),
	}
}
