package rest_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"elbiefit/application/services"
	"elbiefit/domain/keys"
	"elbiefit/infrastructure/config"
	"elbiefit/infrastructure/persistence/badger"
	"elbiefit/infrastructure/persistence/repository"
	"elbiefit/infrastructure/seed"
	"elbiefit/interfaces/http/rest"
	"elbiefit/interfaces/http/rest/middleware"
	"elbiefit/pkg/auth"
	apperrors "elbiefit/pkg/errors"
	"elbiefit/pkg/observability"
	"elbiefit/pkg/ratelimit"
)

const (
	userSub = "lisa"
	demoSub = "demo-sub"
)

// tokenVerifier accepts "token-<sub>"
type tokenVerifier struct{}

func (tokenVerifier) Verify(_ context.Context, raw string) (*auth.Claims, error) {
	sub, ok := strings.CutPrefix(raw, "token-")
	if !ok || sub == "" {
		return nil, apperrors.NewUnauthorizedError("Invalid token")
	}
	claims := &auth.Claims{Email: sub + "@example.com", TokenUse: "id"}
	claims.Subject = sub
	return claims, nil
}

type fakeProvider struct{}

func (fakeProvider) LoginURL() string { return "https://elbiefit.auth.example.com/oauth2/authorize" }

func (fakeProvider) Exchange(_ context.Context, code string) (*auth.Tokens, error) {
	if code != "good-code" {
		return nil, apperrors.NewBadRequestError("Token exchange failed")
	}
	return &auth.Tokens{IDToken: "token-" + userSub, AccessToken: "access", RefreshToken: "refresh", ExpiresIn: 3600}, nil
}

type denyAll struct{}

func (denyAll) Hit(context.Context, string, int, time.Duration) (ratelimit.Decision, error) {
	return ratelimit.Decision{Allowed: false, RetryAfter: 42}, nil
}

type fixture struct {
	handler  http.Handler
	workouts *repository.WorkoutRepository
	profiles *repository.ProfileRepository
}

func testConfig() *config.Config {
	return &config.Config{
		ProjectName: "ElbieFit",
		Version:     "1.2.3",
		BuildTime:   "2025-11-14T09:00:00Z",
		Environment: "test",
		Theme: config.ThemeConfig{
			Default:          "light",
			Themes:           []string{"light", "dark", "system"},
			ExcludedPrefixes: []string{"/static", "/healthz", "/meta", "/metrics"},
		},
		RateLimit: config.RateLimitConfig{
			ReadPerMin:       120,
			WritePerMin:      30,
			DemoReadPerMin:   60,
			DemoWritePerMin:  10,
			TTL:              180 * time.Second,
			ExcludedPrefixes: []string{"/static", "/healthz", "/meta", "/metrics"},
		},
		Demo: config.DemoConfig{SessionCookieName: "demo_session_id"},
	}
}

func build(t *testing.T, cfg *config.Config, hitter middleware.Hitter) fixture {
	t.Helper()
	store, err := badger.NewStore(badger.Options{}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	now := time.Date(2025, 11, 14, 9, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	logger := zap.NewNop()

	profiles := repository.NewProfileRepository(store, logger, clock)
	exercises := repository.NewExerciseRepository(store, logger, clock)
	workouts := repository.NewWorkoutRepository(store, logger, clock)
	resets := repository.NewDemoResetRepository(store, logger, clock)
	seeder := seed.NewSeeder(profiles, exercises, workouts, logger, clock)

	_, err = seeder.SeedDataset(context.Background(), userSub, seed.DatasetTest)
	require.NoError(t, err)

	deps := rest.Dependencies{
		Workouts:  workouts,
		Exercises: exercises,
		Profiles:  profiles,
		DemoReset: services.NewDemoResetService(demoSub, 5*time.Minute, resets, seeder, logger),
		Verifier:  tokenVerifier{},
		Provider:  fakeProvider{},
		Metrics:   observability.NewCollector("elbiefit_test"),
		Clock:     clock,
	}
	if hitter != nil {
		deps.Limiter = hitter
		cfg.RateLimit.Enabled = true
	}

	router, err := rest.NewRouter(cfg, deps, logger).Setup()
	require.NoError(t, err)
	return fixture{handler: router, workouts: workouts, profiles: profiles}
}

type request struct {
	method string
	path   string
	form   url.Values
	sub    string
	htmx   bool
	json   bool
}

func (f fixture) do(req request) *httptest.ResponseRecorder {
	var body *strings.Reader
	if req.form != nil {
		body = strings.NewReader(req.form.Encode())
	} else {
		body = strings.NewReader("")
	}
	r := httptest.NewRequest(req.method, req.path, body)
	if req.form != nil {
		r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if req.sub != "" {
		r.AddCookie(&http.Cookie{Name: "id_token", Value: "token-" + req.sub})
	}
	if req.htmx {
		r.Header.Set("HX-Request", "true")
	}
	if req.json {
		r.Header.Set("Accept", "application/json")
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, r)
	return rec
}

func cookieNamed(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func date(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := keys.ParseDate(s)
	require.NoError(t, err)
	return d
}

func TestProbes(t *testing.T) {
	f := build(t, testConfig(), nil)

	t.Run("Should report health", func(t *testing.T) {
		rec := f.do(request{method: http.MethodGet, path: "/healthz"})
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	})

	t.Run("Should report build metadata", func(t *testing.T) {
		rec := f.do(request{method: http.MethodGet, path: "/meta"})
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"app_name":"ElbieFit","version":"1.2.3","build_time":"2025-11-14T09:00:00Z","environment":"test"}`, rec.Body.String())
	})

	t.Run("Should expose metrics", func(t *testing.T) {
		f.do(request{method: http.MethodGet, path: "/healthz"})
		rec := f.do(request{method: http.MethodGet, path: "/metrics"})
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "elbiefit_test_http_requests_total")
	})

	t.Run("Should render the home page and a themed 404", func(t *testing.T) {
		rec := f.do(request{method: http.MethodGet, path: "/"})
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "Welcome to ElbieFit")

		rec = f.do(request{method: http.MethodGet, path: "/nowhere"})
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Contains(t, rec.Body.String(), "Page not found")
	})
}

func TestAuthentication(t *testing.T) {
	f := build(t, testConfig(), nil)

	t.Run("Should send page navigations to login", func(t *testing.T) {
		rec := f.do(request{method: http.MethodGet, path: "/workout/all"})
		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "/auth/login", rec.Header().Get("Location"))
	})

	t.Run("Should ask htmx to navigate to login", func(t *testing.T) {
		rec := f.do(request{method: http.MethodGet, path: "/workout/all", htmx: true})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "/auth/login", rec.Header().Get("HX-Redirect"))
	})

	t.Run("Should redirect login to the identity provider", func(t *testing.T) {
		rec := f.do(request{method: http.MethodGet, path: "/auth/login"})
		assert.Equal(t, http.StatusFound, rec.Code)
		assert.Equal(t, "https://elbiefit.auth.example.com/oauth2/authorize", rec.Header().Get("Location"))
	})

	t.Run("Should set session cookies on callback", func(t *testing.T) {
		prefs := url.Values{"theme": {"dark"}, "units": {"metric"}}
		require.Equal(t, http.StatusOK, f.do(request{method: http.MethodPost, path: "/profile/preferences", form: prefs, sub: userSub}).Code)

		rec := f.do(request{method: http.MethodGet, path: "/auth/callback?code=good-code"})
		assert.Equal(t, http.StatusFound, rec.Code)
		assert.Equal(t, "/auth/me", rec.Header().Get("Location"))

		id := cookieNamed(rec, "id_token")
		require.NotNil(t, id)
		assert.Equal(t, "token-lisa", id.Value)
		assert.Equal(t, 3600, id.MaxAge)
		assert.True(t, id.HttpOnly)
		assert.True(t, id.Secure)
		assert.Equal(t, http.SameSiteNoneMode, id.SameSite)

		refresh := cookieNamed(rec, "refresh_token")
		require.NotNil(t, refresh)
		assert.Equal(t, 7*24*3600, refresh.MaxAge)

		theme := cookieNamed(rec, "theme")
		require.NotNil(t, theme)
		assert.Equal(t, "dark", theme.Value)
	})

	t.Run("Should reject a callback without a valid code", func(t *testing.T) {
		rec := f.do(request{method: http.MethodGet, path: "/auth/callback?code=stolen"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Nil(t, cookieNamed(rec, "id_token"))
	})

	t.Run("Should describe the signed in user", func(t *testing.T) {
		rec := f.do(request{method: http.MethodGet, path: "/auth/me", sub: userSub})
		require.Equal(t, http.StatusOK, rec.Code)

		var body struct {
			ID      string `json:"id"`
			Profile struct {
				DisplayName string `json:"display_name"`
			} `json:"profile"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, userSub, body.ID)
		assert.Equal(t, "Lisa Test", body.Profile.DisplayName)
	})

	t.Run("Should answer 404 JSON for a user without a profile", func(t *testing.T) {
		rec := f.do(request{method: http.MethodGet, path: "/auth/me", sub: "nobody"})
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Contains(t, rec.Body.String(), `"type":"NOT_FOUND"`)
	})

	t.Run("Should clear session cookies on logout", func(t *testing.T) {
		rec := f.do(request{method: http.MethodGet, path: "/auth/logout", sub: userSub})
		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "/", rec.Header().Get("Location"))
		for _, name := range []string{"id_token", "access_token", "refresh_token"} {
			c := cookieNamed(rec, name)
			require.NotNil(t, c, name)
			assert.Less(t, c.MaxAge, 0, name)
		}
	})
}

func TestWorkoutPages(t *testing.T) {
	ctx := context.Background()

	t.Run("Should list the user's workouts", func(t *testing.T) {
		f := build(t, testConfig(), nil)
		rec := f.do(request{method: http.MethodGet, path: "/workout/all", sub: userSub})
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "Lower Body Strength")
		assert.Contains(t, rec.Body.String(), `href="/workout/2025-11-06/W2"`)
	})

	t.Run("Should create a workout and redirect to it", func(t *testing.T) {
		f := build(t, testConfig(), nil)
		rec := f.do(request{
			method: http.MethodPost, path: "/workout/create", sub: userSub,
			form: url.Values{"date": {"2025-11-20"}, "name": {"Pull Day"}},
		})
		require.Equal(t, http.StatusSeeOther, rec.Code)
		location := rec.Header().Get("Location")
		assert.True(t, strings.HasPrefix(location, "/workout/2025-11-20/"), location)

		rec = f.do(request{method: http.MethodGet, path: location, sub: userSub})
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "Pull Day")
	})

	t.Run("Should echo field errors for an invalid workout", func(t *testing.T) {
		f := build(t, testConfig(), nil)
		rec := f.do(request{
			method: http.MethodPost, path: "/workout/create", sub: userSub,
			form: url.Values{"date": {"20-11-2025"}, "name": {"  "}},
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "enter a valid date (YYYY-MM-DD)")
		assert.Contains(t, rec.Body.String(), "field-error")
	})

	t.Run("Should show sets and default the add form from the last set", func(t *testing.T) {
		f := build(t, testConfig(), nil)
		rec := f.do(request{method: http.MethodGet, path: "/workout/2025-11-06/W2", sub: userSub})
		require.Equal(t, http.StatusOK, rec.Code)
		body := rec.Body.String()
		assert.Contains(t, body, "Back Squat")
		assert.Contains(t, body, "Deadlift")
		assert.Contains(t, body, `name="reps" min="1" value="5"`)
		assert.Contains(t, body, `value="60"`)
		assert.Contains(t, body, "exercise_id="+seed.ExerciseID(seed.DatasetTest, "DEADLIFT"))
	})

	t.Run("Should 404 an unknown workout and 400 a bad date", func(t *testing.T) {
		f := build(t, testConfig(), nil)
		assert.Equal(t, http.StatusNotFound, f.do(request{method: http.MethodGet, path: "/workout/2025-11-06/nope", sub: userSub}).Code)
		assert.Equal(t, http.StatusBadRequest, f.do(request{method: http.MethodGet, path: "/workout/06-11-2025/W2", sub: userSub}).Code)
	})

	t.Run("Should update metadata in place when the date is unchanged", func(t *testing.T) {
		f := build(t, testConfig(), nil)
		rec := f.do(request{
			method: http.MethodPost, path: "/workout/2025-11-06/W2/meta", sub: userSub, htmx: true,
			form: url.Values{"date": {"2025-11-06"}, "name": {"Leg Day"}, "tags": {"legs, heavy"}, "notes": {"felt strong"}},
		})
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "Leg Day")

		workout, sets, err := f.workouts.GetWorkoutWithSets(ctx, userSub, date(t, "2025-11-06"), "W2")
		require.NoError(t, err)
		assert.Equal(t, []string{"legs", "heavy"}, workout.Tags)
		assert.Equal(t, "felt strong", workout.Notes)
		assert.Len(t, sets, 2)
	})

	t.Run("Should move the workout and signal a client redirect", func(t *testing.T) {
		f := build(t, testConfig(), nil)
		rec := f.do(request{
			method: http.MethodPost, path: "/workout/2025-11-06/W2/meta", sub: userSub, htmx: true,
			form: url.Values{"date": {"2025-11-07"}, "name": {"Lower Body Strength"}},
		})
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, "/workout/2025-11-07/W2", rec.Header().Get("HX-Redirect"))

		_, sets, err := f.workouts.GetWorkoutWithSets(ctx, userSub, date(t, "2025-11-07"), "W2")
		require.NoError(t, err)
		assert.Len(t, sets, 2)
		_, _, err = f.workouts.GetWorkoutWithSets(ctx, userSub, date(t, "2025-11-06"), "W2")
		assert.True(t, apperrors.IsNotFound(err))
	})

	t.Run("Should render the edit form with current values", func(t *testing.T) {
		f := build(t, testConfig(), nil)
		rec := f.do(request{method: http.MethodGet, path: "/workout/2025-11-06/W2/edit-meta", sub: userSub, htmx: true})
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `value="legs, strength"`)
		assert.NotContains(t, rec.Body.String(), "<html")
	})

	t.Run("Should delete a workout with its sets", func(t *testing.T) {
		f := build(t, testConfig(), nil)
		rec := f.do(request{method: http.MethodDelete, path: "/workout/2025-11-06/W2", sub: userSub})
		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "/workout/all", rec.Header().Get("Location"))

		_, err := f.workouts.GetSet(ctx, userSub, date(t, "2025-11-06"), "W2", 1)
		assert.True(t, apperrors.IsNotFound(err))
	})
}

func TestSetFragments(t *testing.T) {
	ctx := context.Background()
	squat := seed.ExerciseID(seed.DatasetTest, "SQUAT")

	t.Run("Should add a set and trigger a refresh", func(t *testing.T) {
		f := build(t, testConfig(), nil)
		rec := f.do(request{
			method: http.MethodPost, path: "/workout/2025-11-06/W2/set/add?exercise_id=" + squat, sub: userSub, htmx: true,
			form: url.Values{"reps": {"5"}, "weight": {"100"}, "rpe": {"9"}},
		})
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, "workoutSetChanged", rec.Header().Get("HX-Trigger"))

		set, err := f.workouts.GetSet(ctx, userSub, date(t, "2025-11-06"), "W2", 3)
		require.NoError(t, err)
		assert.Equal(t, squat, set.ExerciseID)
		assert.Equal(t, 5, set.Reps)
		assert.Equal(t, "100", set.WeightKG.String())
		assert.Equal(t, 9, *set.RPE)
	})

	t.Run("Should store pounds as kilograms for imperial users", func(t *testing.T) {
		f := build(t, testConfig(), nil)
		prefs := url.Values{"theme": {"light"}, "units": {"imperial"}}
		require.Equal(t, http.StatusOK, f.do(request{method: http.MethodPost, path: "/profile/preferences", form: prefs, sub: userSub}).Code)

		rec := f.do(request{
			method: http.MethodPost, path: "/workout/2025-11-06/W2/set/add?exercise_id=" + squat, sub: userSub, htmx: true,
			form: url.Values{"reps": {"5"}, "weight": {"220.46226218"}},
		})
		require.Equal(t, http.StatusNoContent, rec.Code)

		set, err := f.workouts.GetSet(ctx, userSub, date(t, "2025-11-06"), "W2", 3)
		require.NoError(t, err)
		assert.True(t, set.WeightKG.Equal(decimal.NewFromInt(100)), set.WeightKG.String())

		page := f.do(request{method: http.MethodGet, path: "/workout/2025-11-06/W2", sub: userSub})
		assert.Contains(t, page.Body.String(), "Weight (lb)")
	})

	t.Run("Should reject a set without reps", func(t *testing.T) {
		f := build(t, testConfig(), nil)
		rec := f.do(request{
			method: http.MethodPost, path: "/workout/2025-11-06/W2/set/add?exercise_id=" + squat, sub: userSub, htmx: true,
			form: url.Values{"reps": {"many"}},
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "enter a whole number of reps")

		_, err := f.workouts.GetSet(ctx, userSub, date(t, "2025-11-06"), "W2", 3)
		assert.True(t, apperrors.IsNotFound(err))
	})

	t.Run("Should edit and delete sets", func(t *testing.T) {
		f := build(t, testConfig(), nil)

		form := f.do(request{method: http.MethodGet, path: "/workout/2025-11-06/W2/set/1/edit", sub: userSub, htmx: true})
		assert.Equal(t, http.StatusOK, form.Code)
		assert.Contains(t, form.Body.String(), `id="set-1"`)

		rec := f.do(request{
			method: http.MethodPost, path: "/workout/2025-11-06/W2/set/1", sub: userSub, htmx: true,
			form: url.Values{"reps": {"10"}, "weight": {"42.5"}},
		})
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, "workoutSetChanged", rec.Header().Get("HX-Trigger"))

		set, err := f.workouts.GetSet(ctx, userSub, date(t, "2025-11-06"), "W2", 1)
		require.NoError(t, err)
		assert.Equal(t, 10, set.Reps)
		assert.Equal(t, "42.5", set.WeightKG.String())
		assert.Nil(t, set.RPE)

		rec = f.do(request{method: http.MethodDelete, path: "/workout/2025-11-06/W2/set/2", sub: userSub, htmx: true})
		assert.Equal(t, http.StatusNoContent, rec.Code)
		_, err = f.workouts.GetSet(ctx, userSub, date(t, "2025-11-06"), "W2", 2)
		assert.True(t, apperrors.IsNotFound(err))
	})

	t.Run("Should 404 a missing set", func(t *testing.T) {
		f := build(t, testConfig(), nil)
		rec := f.do(request{method: http.MethodGet, path: "/workout/2025-11-06/W2/set/9/edit", sub: userSub, htmx: true})
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestProfilePages(t *testing.T) {
	ctx := context.Background()

	t.Run("Should render the profile", func(t *testing.T) {
		f := build(t, testConfig(), nil)
		rec := f.do(request{method: http.MethodGet, path: "/profile/", sub: userSub})
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "Lisa Test")
		assert.Contains(t, rec.Body.String(), "14 November 2025")
	})

	t.Run("Should 404 without a profile", func(t *testing.T) {
		f := build(t, testConfig(), nil)
		rec := f.do(request{method: http.MethodGet, path: "/profile/", sub: "nobody"})
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Contains(t, rec.Body.String(), "Profile not found.")
	})

	t.Run("Should update the account", func(t *testing.T) {
		f := build(t, testConfig(), nil)
		rec := f.do(request{
			method: http.MethodPost, path: "/profile/account", sub: userSub,
			form: url.Values{"display_name": {"Lisa T"}, "timezone": {"America/New_York"}},
		})
		assert.Equal(t, http.StatusOK, rec.Code)

		profile, err := f.profiles.GetProfile(ctx, userSub)
		require.NoError(t, err)
		assert.Equal(t, "Lisa T", profile.DisplayName)
		assert.Equal(t, "America/New_York", profile.Timezone)
	})

	t.Run("Should keep submitted values when the account is invalid", func(t *testing.T) {
		f := build(t, testConfig(), nil)
		rec := f.do(request{
			method: http.MethodPost, path: "/profile/account", sub: userSub,
			form: url.Values{"display_name": {"Lisa T"}, "timezone": {"Mars/Olympus"}},
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), `value="Mars/Olympus"`)
		assert.Contains(t, rec.Body.String(), "field-error")

		profile, err := f.profiles.GetProfile(ctx, userSub)
		require.NoError(t, err)
		assert.Equal(t, "Europe/London", profile.Timezone)
	})

	t.Run("Should save preferences and refresh the theme cookie", func(t *testing.T) {
		f := build(t, testConfig(), nil)
		rec := f.do(request{
			method: http.MethodPost, path: "/profile/preferences", sub: userSub,
			form: url.Values{"theme": {"dark"}, "units": {"imperial"}},
		})
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `data-theme="dark"`)

		theme := cookieNamed(rec, "theme")
		require.NotNil(t, theme)
		assert.Equal(t, "dark", theme.Value)
		assert.Equal(t, 365*24*3600, theme.MaxAge)
		assert.Equal(t, http.SameSiteLaxMode, theme.SameSite)
		assert.True(t, theme.HttpOnly)

		profile, err := f.profiles.GetProfile(ctx, userSub)
		require.NoError(t, err)
		assert.False(t, profile.Preferences.ShowTips)
		assert.Equal(t, "imperial", profile.Preferences.Units)
	})

	t.Run("Should reject an unknown theme", func(t *testing.T) {
		f := build(t, testConfig(), nil)
		rec := f.do(request{
			method: http.MethodPost, path: "/profile/preferences", sub: userSub,
			form: url.Values{"theme": {"neon"}, "units": {"metric"}},
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Nil(t, cookieNamed(rec, "theme"))
	})
}

func TestExercisesPage(t *testing.T) {
	f := build(t, testConfig(), nil)

	t.Run("Should list the catalogue", func(t *testing.T) {
		rec := f.do(request{method: http.MethodGet, path: "/exercise/all", sub: userSub})
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "Kettlebell Swing")
		assert.Contains(t, rec.Body.String(), "quads, glutes, hamstrings")
	})
}

func TestDemoReset(t *testing.T) {
	t.Run("Should reset the demo account", func(t *testing.T) {
		f := build(t, testConfig(), nil)
		rec := f.do(request{method: http.MethodPost, path: "/demo/reset", sub: demoSub, htmx: true})
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, "demoResetDone", rec.Header().Get("HX-Trigger"))

		profile, err := f.profiles.GetProfile(context.Background(), demoSub)
		require.NoError(t, err)
		assert.Equal(t, "Demo User", profile.DisplayName)

		rec = f.do(request{method: http.MethodPost, path: "/demo/reset", sub: demoSub, htmx: true})
		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	})

	t.Run("Should forbid other users", func(t *testing.T) {
		f := build(t, testConfig(), nil)
		rec := f.do(request{method: http.MethodPost, path: "/demo/reset", sub: userSub, htmx: true})
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("Should show the reset button only to the demo user", func(t *testing.T) {
		f := build(t, testConfig(), nil)
		f.do(request{method: http.MethodPost, path: "/demo/reset", sub: demoSub, htmx: true})

		demo := f.do(request{method: http.MethodGet, path: "/workout/all", sub: demoSub})
		assert.Contains(t, demo.Body.String(), `hx-post="/demo/reset"`)
		other := f.do(request{method: http.MethodGet, path: "/workout/all", sub: userSub})
		assert.NotContains(t, other.Body.String(), `hx-post="/demo/reset"`)
	})
}

func TestRateLimiting(t *testing.T) {
	f := build(t, testConfig(), denyAll{})

	t.Run("Should deny limited routes", func(t *testing.T) {
		rec := f.do(request{method: http.MethodGet, path: "/workout/all", sub: userSub})
		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		assert.Equal(t, "42", rec.Header().Get("Retry-After"))
		assert.Contains(t, rec.Header().Get("Content-Type"), "text/plain")
		assert.Equal(t, apperrors.RateLimitMessage, strings.TrimSpace(rec.Body.String()))
	})

	t.Run("Should leave excluded routes alone", func(t *testing.T) {
		rec := f.do(request{method: http.MethodGet, path: "/healthz"})
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}
