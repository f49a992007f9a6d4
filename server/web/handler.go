package web

import (
	"embed"
	"html/template"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/unblurai/unblur/pkg/navigator"
	"github.com/unblurai/unblur/pkg/recognizer"
	"github.com/unblurai/unblur/pkg/session"

	"github.com/go-chi/chi/v5"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	CookieName = "unblur_session"

	DefaultTimeout = 2 * time.Minute
)

type Handler struct {
	navigator  *navigator.Navigator
	store      *session.Store
	recognizer *recognizer.Recognizer

	timeout time.Duration
	logger  *slog.Logger

	templates map[navigator.View]*template.Template

	wg sync.WaitGroup
}

type Option func(*Handler)

func WithTimeout(timeout time.Duration) Option {
	return func(h *Handler) {
		h.timeout = timeout
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) {
		h.logger = logger
	}
}

func New(nav *navigator.Navigator, store *session.Store, r *recognizer.Recognizer, options ...Option) (*Handler, error) {
	h := &Handler{
		navigator:  nav,
		store:      store,
		recognizer: r,

		timeout: DefaultTimeout,
	}

	for _, option := range options {
		option(h)
	}

	if h.logger == nil {
		h.logger = slog.Default()
	}

	templates, err := parseTemplates()

	if err != nil {
		return nil, err
	}

	h.templates = templates

	return h, nil
}

// Attach registers one page per navigator route plus the form actions.
func (h *Handler) Attach(r chi.Router) {
	for _, route := range h.navigator.Routes() {
		r.Get(route.Path, h.handleView)
	}

	r.Post("/", h.handleRecognize)

	r.Post("/result/reset", h.handleReset)
	r.Post("/result/clear", h.handleClear)
	r.Post("/result/refine", h.handleRefine)
}

// AttachSession registers the session endpoints relative to the api router.
func (h *Handler) AttachSession(r chi.Router) {
	r.Get("/session", h.handleSession)
	r.Get("/session/events", h.handleSessionEvents)
}

func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	http.NotFound(w, r)
}

// state returns the caller's session, issuing a new cookie if the caller
// has none or an expired one.
func (h *Handler) state(w http.ResponseWriter, r *http.Request) *session.State {
	var id string

	if c, err := r.Cookie(CookieName); err == nil {
		id = c.Value
	}

	sid, state := h.store.GetOrCreate(id)

	if sid != id {
		http.SetCookie(w, &http.Cookie{
			Name:  CookieName,
			Value: sid,
			Path:  "/",

			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}

	return state
}

func (h *Handler) redirect(w http.ResponseWriter, r *http.Request, name string) {
	route, ok := h.navigator.Lookup(name)

	if !ok {
		http.NotFound(w, r)
		return
	}

	http.Redirect(w, r, route.Path, http.StatusSeeOther)
}
