package http

import (
	"net/http"
	"strings"

	"github.com/example/raid-controller/internal/arbitration"
)

type RouterConfig struct {
	Sessions   *SessionHandler
	Damage     *DamageHandler
	Admin      *AdminHandler
	Notices    http.Handler
	Middleware []func(http.Handler) http.Handler
}

func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()

	if cfg.Sessions != nil {
		mux.HandleFunc("/sessions", func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				cfg.Sessions.List(w, r)
			case http.MethodPost:
				cfg.Sessions.Start(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPost)
			}
		})
		mux.HandleFunc("/sessions/", func(w http.ResponseWriter, r *http.Request) {
			r, ok := withActorID(w, r, strings.TrimPrefix(r.URL.Path, "/sessions/"))
			if !ok {
				return
			}
			switch r.Method {
			case http.MethodPut:
				cfg.Sessions.Update(w, r)
			case http.MethodDelete:
				cfg.Sessions.End(w, r)
			default:
				methodNotAllowed(w, http.MethodPut, http.MethodDelete)
			}
		})
		mux.HandleFunc("/actors/", func(w http.ResponseWriter, r *http.Request) {
			rest := strings.TrimPrefix(r.URL.Path, "/actors/")
			idPart, action, _ := strings.Cut(rest, "/")
			r, ok := withActorID(w, r, idPart)
			if !ok {
				return
			}
			switch action {
			case "status":
				if r.Method != http.MethodGet {
					methodNotAllowed(w, http.MethodGet)
					return
				}
				cfg.Sessions.Status(w, r)
			case "refresh":
				if r.Method != http.MethodPost {
					methodNotAllowed(w, http.MethodPost)
					return
				}
				cfg.Sessions.Refresh(w, r)
			default:
				http.NotFound(w, r)
			}
		})
	}

	if cfg.Damage != nil {
		mux.HandleFunc("/damage", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			cfg.Damage.Evaluate(w, r)
		})
		mux.HandleFunc("/fire-origins", func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				cfg.Damage.ListOrigins(w, r)
			case http.MethodPost:
				cfg.Damage.RecordOrigin(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPost)
			}
		})
	}

	if cfg.Admin != nil {
		mux.HandleFunc("/wipes", func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				cfg.Admin.ListWipes(w, r)
			case http.MethodPost:
				cfg.Admin.RecordWipe(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPost)
			}
		})
		mux.HandleFunc("/rules", func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				cfg.Admin.GetRules(w, r)
			case http.MethodPut:
				cfg.Admin.ApplyRules(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPut)
			}
		})
	}

	if cfg.Notices != nil {
		mux.Handle("/notices", cfg.Notices)
	}

	var handler http.Handler = mux
	if len(cfg.Middleware) > 0 {
		for i := len(cfg.Middleware) - 1; i >= 0; i-- {
			if cfg.Middleware[i] != nil {
				handler = cfg.Middleware[i](handler)
			}
		}
	}

	return handler
}

func withActorID(w http.ResponseWriter, r *http.Request, raw string) (*http.Request, bool) {
	if raw == "" {
		http.NotFound(w, r)
		return r, false
	}
	id, err := arbitration.ParseActorID(raw)
	if err != nil || id == 0 {
		newResponder(LoggerFromContext(r.Context())).writeError(r.Context(), w, http.StatusBadRequest, errInvalidActorID)
		return r, false
	}
	return r.WithContext(ContextWithActorID(r.Context(), id)), true
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	if len(allowed) > 0 {
		w.Header().Set("Allow", strings.Join(allowed, ", "))
	}
	http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
}
