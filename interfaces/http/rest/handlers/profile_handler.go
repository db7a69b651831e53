package handlers

import (
	"net/http"

	"elbiefit/application/ports"
	"elbiefit/domain/models"
	"elbiefit/interfaces/http/rest/views"
	"elbiefit/pkg/common"
	apperrors "elbiefit/pkg/errors"
)

// ProfileHandler handles the profile page and its two forms
type ProfileHandler struct {
	Responder
	profiles ports.ProfileRepository
	themes   []string
	allowed  map[string]struct{}
}

func NewProfileHandler(resp Responder, profiles ports.ProfileRepository, themes []string) *ProfileHandler {
	return &ProfileHandler{
		Responder: resp,
		profiles:  profiles,
		themes:    themes,
		allowed:   themeSet(themes),
	}
}

// Get handles GET /profile/
func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	sub, err := currentUser(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	profile, err := h.profiles.GetProfile(r.Context(), sub)
	if err != nil {
		if apperrors.IsNotFound(err) {
			h.record(err)
			h.views.Render(w, r, http.StatusNotFound, "profile", views.Data{"profile": (*models.Profile)(nil)})
			return
		}
		h.fail(w, r, err)
		return
	}
	h.render(w, r, http.StatusOK, profile, nil, nil, nil)
}

// UpdateAccount handles POST /profile/account
func (h *ProfileHandler) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	sub, err := currentUser(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	in := models.AccountUpdateInput{
		DisplayName: r.PostFormValue("display_name"),
		Timezone:    r.PostFormValue("timezone"),
	}
	if err := in.Validate(); err != nil {
		h.rerender(w, r, sub, err, &in, nil)
		return
	}

	profile, err := h.profiles.UpdateAccount(r.Context(), sub, in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.render(w, r, http.StatusOK, profile, nil, nil, nil)
}

// UpdatePreferences handles POST /profile/preferences. The theme cookie is
// refreshed so the next page load uses the new theme.
func (h *ProfileHandler) UpdatePreferences(w http.ResponseWriter, r *http.Request) {
	sub, err := currentUser(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	in := models.PreferencesUpdateInput{
		ShowTips: r.PostFormValue("show_tips") != "",
		Theme:    r.PostFormValue("theme"),
		Units:    r.PostFormValue("units"),
	}
	if err := in.Validate(); err != nil {
		h.rerender(w, r, sub, err, nil, &in)
		return
	}

	profile, err := h.profiles.UpdatePreferences(r.Context(), sub, in)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	if _, ok := h.allowed[profile.Preferences.Theme]; ok {
		http.SetCookie(w, themeCookie(profile.Preferences.Theme))
		r = r.WithContext(common.WithTheme(r.Context(), profile.Preferences.Theme))
	}
	h.render(w, r, http.StatusOK, profile, nil, nil, nil)
}

// rerender shows the page again with the submitted values and their field
// errors
func (h *ProfileHandler) rerender(w http.ResponseWriter, r *http.Request, sub string, validation error, account *models.AccountUpdateInput, prefs *models.PreferencesUpdateInput) {
	profile, err := h.profiles.GetProfile(r.Context(), sub)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.record(validation)
	h.render(w, r, http.StatusBadRequest, profile, account, prefs, apperrors.FieldsOf(validation))
}

func (h *ProfileHandler) render(w http.ResponseWriter, r *http.Request, status int, profile *models.Profile, account *models.AccountUpdateInput, prefs *models.PreferencesUpdateInput, fields apperrors.FieldErrors) {
	if account == nil {
		account = &models.AccountUpdateInput{DisplayName: profile.DisplayName, Timezone: profile.Timezone}
	}
	if prefs == nil {
		prefs = &models.PreferencesUpdateInput{
			ShowTips: profile.Preferences.ShowTips,
			Theme:    profile.Preferences.Theme,
			Units:    profile.Preferences.Units,
		}
	}

	data := unitData(profile.Preferences.Units)
	data["profile"] = profile
	data["account"] = account
	data["preferences"] = prefs
	data["themes"] = h.themes
	data["errors"] = fields
	h.views.Render(w, r, status, "profile", data)
}
