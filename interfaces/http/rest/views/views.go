// Package views renders the server-side HTML pages and htmx fragments.
package views

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"elbiefit/domain/keys"
	"elbiefit/domain/units"
	"elbiefit/pkg/common"
	apperrors "elbiefit/pkg/errors"
)

//go:embed templates/*.html
var templateFS embed.FS

// Full pages, wrapped in the base layout
var pageNames = []string{"home", "error", "workouts", "workout_detail", "exercises", "profile"}

// Fragments swapped in by htmx
var fragmentNames = []string{"new_form", "edit_meta_form", "set_form", "set_edit_form"}

// Data is the template context of one render
type Data map[string]any

// Options configures the shared values every render receives
type Options struct {
	DefaultTheme string
	IsDemoUser   func(userSub string) bool
	Clock        func() time.Time
}

type Views struct {
	fragments *template.Template
	pages     map[string]*template.Template
	opts      Options
	logger    *zap.Logger
}

var funcs = template.FuncMap{
	"date": keys.FormatDate,
	"join": strings.Join,
	"weight": func(kg *decimal.Decimal, system string) string {
		if kg == nil {
			return ""
		}
		return units.Display(*kg, system).String()
	},
}

// New parses the embedded templates
func New(opts Options, logger *zap.Logger) (*Views, error) {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.IsDemoUser == nil {
		opts.IsDemoUser = func(string) bool { return false }
	}

	patterns := []string{"templates/base.html"}
	for _, name := range fragmentNames {
		patterns = append(patterns, "templates/"+name+".html")
	}
	shared, err := template.New("views").Funcs(funcs).ParseFS(templateFS, patterns...)
	if err != nil {
		return nil, fmt.Errorf("parse shared templates: %w", err)
	}

	// Pages are cloned before anything executes; html/template refuses to
	// clone afterwards.
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		page, err := shared.Clone()
		if err != nil {
			return nil, fmt.Errorf("clone for %s: %w", name, err)
		}
		if _, err := page.ParseFS(templateFS, "templates/"+name+".html"); err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		pages[name] = page
	}

	return &Views{
		fragments: shared,
		pages:     pages,
		opts:      opts,
		logger:    logger,
	}, nil
}

// Render writes a page or fragment with the given status. Every render gets
// theme, current_year, is_demo_user and weight_unit.
func (v *Views) Render(w http.ResponseWriter, r *http.Request, status int, name string, data Data) {
	data = v.withDefaults(r, data)

	var buf bytes.Buffer
	var err error
	if page, ok := v.pages[name]; ok {
		err = page.ExecuteTemplate(&buf, "base", data)
	} else {
		err = v.fragments.ExecuteTemplate(&buf, name, data)
	}
	if err != nil {
		v.logger.Error("Template render failed", zap.String("template", name), zap.Error(err))
		http.Error(w, apperrors.GenericMessage, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		v.logger.Debug("Response write failed", zap.String("template", name), zap.Error(err))
	}
}

// RenderError draws the themed error page
func (v *Views) RenderError(w http.ResponseWriter, r *http.Request, status int, message string) {
	v.Render(w, r, status, "error", Data{
		"status":  status,
		"message": message,
	})
}

func (v *Views) withDefaults(r *http.Request, data Data) Data {
	if data == nil {
		data = Data{}
	}
	sub, _ := common.GetUserSub(r.Context())

	data["theme"] = common.GetTheme(r.Context(), v.opts.DefaultTheme)
	data["current_year"] = v.opts.Clock().Year()
	data["is_demo_user"] = sub != "" && v.opts.IsDemoUser(sub)
	if _, ok := data["units"]; !ok {
		data["units"] = units.Metric
	}
	if _, ok := data["weight_unit"]; !ok {
		data["weight_unit"] = units.WeightUnit(data["units"].(string))
	}
	if _, ok := data["errors"]; !ok {
		data["errors"] = apperrors.FieldErrors(nil)
	}
	return data
}
