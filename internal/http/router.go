package http

import (
	"net/http"
	"strings"
)

type RouterConfig struct {
	Conflicts *ConflictHandler
	Rules     *RuleHandler
	Profiles  *ProfileHandler
	Calendars *CalendarHandler
	// Metrics serves GET /metrics when set.
	Metrics http.Handler
	// Auth wraps every route except /health.
	Auth       func(http.Handler) http.Handler
	Middleware []func(http.Handler) http.Handler
}

func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()

	if cfg.Conflicts != nil {
		mux.HandleFunc("/conflicts", only(http.MethodGet, cfg.Conflicts.List))
		mux.HandleFunc("/conflicts/scan", only(http.MethodPost, cfg.Conflicts.Scan))
		mux.HandleFunc("/conflicts/resolve", only(http.MethodPost, cfg.Conflicts.Resolve))
		mux.HandleFunc("/snapshot/apply", only(http.MethodPost, cfg.Conflicts.ApplySnapshot))
		mux.HandleFunc("/snapshot/reset", only(http.MethodPost, cfg.Conflicts.ResetSnapshot))
		mux.HandleFunc("/save", only(http.MethodPost, cfg.Conflicts.Save))
	}

	if cfg.Rules != nil {
		mux.HandleFunc("/rules", func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				cfg.Rules.List(w, r)
			case http.MethodPost:
				cfg.Rules.Create(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPost)
			}
		})
		mux.HandleFunc("/rules/", func(w http.ResponseWriter, r *http.Request) {
			rest := strings.TrimPrefix(r.URL.Path, "/rules/")
			id, action, _ := strings.Cut(rest, "/")
			if id == "" {
				http.NotFound(w, r)
				return
			}
			r = r.WithContext(ContextWithRuleID(r.Context(), id))
			switch action {
			case "":
				switch r.Method {
				case http.MethodPut:
					cfg.Rules.Update(w, r)
				case http.MethodDelete:
					cfg.Rules.Delete(w, r)
				default:
					methodNotAllowed(w, http.MethodPut, http.MethodDelete)
				}
			case "duplicate":
				only(http.MethodPost, cfg.Rules.Duplicate)(w, r)
			case "toggle":
				only(http.MethodPost, cfg.Rules.Toggle)(w, r)
			default:
				http.NotFound(w, r)
			}
		})
	}

	if cfg.Profiles != nil {
		mux.HandleFunc("/profiles", func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				cfg.Profiles.List(w, r)
			case http.MethodPost:
				cfg.Profiles.Create(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPost)
			}
		})
		mux.HandleFunc("/profiles/refresh", only(http.MethodPost, cfg.Profiles.Refresh))
		mux.HandleFunc("/profiles/", func(w http.ResponseWriter, r *http.Request) {
			name := strings.TrimPrefix(r.URL.Path, "/profiles/")
			if name == "" || strings.Contains(name, "/") {
				http.NotFound(w, r)
				return
			}
			r = r.WithContext(ContextWithProfileName(r.Context(), name))
			switch r.Method {
			case http.MethodPut:
				cfg.Profiles.Update(w, r)
			case http.MethodDelete:
				cfg.Profiles.Delete(w, r)
			default:
				methodNotAllowed(w, http.MethodPut, http.MethodDelete)
			}
		})
	}

	if cfg.Calendars != nil {
		mux.HandleFunc("/calendars", only(http.MethodGet, cfg.Calendars.List))
		mux.HandleFunc("/calendars/", func(w http.ResponseWriter, r *http.Request) {
			// {name}/entries or {name}/entries/{id}
			parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/calendars/"), "/")
			if len(parts) < 2 || len(parts) > 3 || parts[0] == "" || parts[1] != "entries" {
				http.NotFound(w, r)
				return
			}
			ctx := ContextWithCalendarName(r.Context(), parts[0])
			if len(parts) == 2 {
				only(http.MethodPost, cfg.Calendars.AddEntry)(w, r.WithContext(ctx))
				return
			}
			if parts[2] == "" {
				http.NotFound(w, r)
				return
			}
			ctx = ContextWithEntryID(ctx, parts[2])
			only(http.MethodDelete, cfg.Calendars.RemoveEntry)(w, r.WithContext(ctx))
		})
	}

	if cfg.Metrics != nil {
		mux.Handle("/metrics", cfg.Metrics)
	}

	var protected http.Handler = mux
	if cfg.Auth != nil {
		protected = cfg.Auth(protected)
	}

	root := http.NewServeMux()
	root.HandleFunc("/health", only(http.MethodGet, health))
	root.Handle("/", protected)

	var handler http.Handler = root
	if len(cfg.Middleware) > 0 {
		for i := len(cfg.Middleware) - 1; i >= 0; i-- {
			if cfg.Middleware[i] != nil {
				handler = cfg.Middleware[i](handler)
			}
		}
	}

	return handler
}

func only(method string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			methodNotAllowed(w, method)
			return
		}
		handler(w, r)
	}
}

func health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}` + "\n"))
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	if len(allowed) > 0 {
		w.Header().Set("Allow", strings.Join(allowed, ", "))
	}
	http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
}
