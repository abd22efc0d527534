package main

import (
	"encoding/json"
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vyrodovalexey/jwtguard/internal/auth"
	"github.com/vyrodovalexey/jwtguard/internal/authz"
	"github.com/vyrodovalexey/jwtguard/internal/middleware"
	"github.com/vyrodovalexey/jwtguard/internal/observability"
)

// Scopes required by the sample routes.
const (
	scopeReadPatient  = "read:gdm_patient"
	scopeWriteMessage = "write:gdm_message"
	scopeReadSystem   = "read:system"
)

// routes builds the router. The middleware order matches the request
// lifecycle: recovery outermost, then request id, tracing, and logging.
func (a *application) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recovery(a.logger),
		middleware.RequestID(),
		middleware.Tracing(),
		middleware.Logging(a.logger),
		middleware.NoCache(),
	)

	r.Get("/running", a.running)
	r.Get("/health", a.checker.HealthHandler())
	r.Get("/ready", a.checker.ReadinessHandler())
	r.Handle("/metrics", promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}))

	r.Route("/dhos/v1", func(r chi.Router) {
		r.With(a.guard.Protect(authz.Allow())).Get("/me", a.me)

		r.With(a.guard.Protect(authz.Or(
			authz.And(
				authz.ScopesPresent(scopeReadPatient),
				authz.FieldInPathMatchesClaim("patient_id", "patient_id"),
			),
			authz.KeyPresent("clinician_id"),
		))).Get("/patient/{patient_id}", a.patient)

		r.With(a.guard.Protect(authz.And(
			authz.ScopesPresent(scopeWriteMessage),
			authz.FieldInBodyMatchesClaim("sender", "clinician_id"),
		))).Post("/message", a.message)

		r.With(a.guard.Protect(authz.NonProductionOnly())).Get("/debug/claims", a.debugClaims)

		if a.system != nil {
			r.With(a.guard.Protect(authz.And(
				authz.ScopesPresent(scopeReadSystem),
				authz.KeyPresent("clinician_id"),
			))).Get("/system/{system_id}/check", a.systemCheck)
		}

		names := make([]string, 0, len(a.policies))
		for name := range a.policies {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			r.With(a.guard.Protect(a.policies[name])).Get("/policy/"+name, a.policyCheck(name))
		}
	})

	return r
}

func (a *application) running(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"running": true})
}

func (a *application) me(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"user":   auth.CurrentUser(r.Context()),
		"scopes": auth.ScopesFromContext(r.Context()),
	})
}

func (a *application) patient(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"patient_id": chi.URLParam(r, "patient_id"),
		"viewer":     auth.CurrentUser(r.Context()),
	})
}

func (a *application) message(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid body"})
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"sender":  body["sender"],
		"content": body["content"],
	})
}

func (a *application) debugClaims(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"claims": auth.ClaimsFromContext(r.Context()).Raw(),
		"scopes": auth.ScopesFromContext(r.Context()),
	})
}

// systemCheck fetches a system token without returning it.
func (a *application) systemCheck(w http.ResponseWriter, r *http.Request) {
	systemID := chi.URLParam(r, "system_id")
	header, err := a.system.AddSystemJWT(r.Context(), nil, systemID)
	if err != nil {
		a.logger.WithContext(r.Context()).Warn("system token unavailable",
			observability.String("system_id", systemID),
			observability.Error(err),
		)
		writeJSON(w, http.StatusBadGateway, map[string]any{"error": "system token unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"system_id":  systemID,
		"authorized": header.Get(auth.HeaderAuthorization) != "",
	})
}

func (a *application) policyCheck(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"policy": name,
			"user":   auth.CurrentUser(r.Context()),
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set(auth.HeaderContentType, auth.ContentTypeJSON)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
