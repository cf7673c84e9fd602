// Package lockhttp exposes a lock store over HTTP.
//
//	GET    /locks        list all locks
//	DELETE /locks        release all locks
//	PUT    /locks/{key}  acquire, the body is the payload
//	GET    /locks/{key}  read a lock
//	HEAD   /locks/{key}  200 when the lock is held, 404 otherwise
//	PATCH  /locks/{key}  replace the payload
//	DELETE /locks/{key}  release a lock
package lockhttp

import (
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"github.com/enverbisevac/locker/errors"
	"github.com/enverbisevac/locker/lock"
	"github.com/go-chi/chi/v5"
	"github.com/go-logr/logr"
	"github.com/google/uuid"
)

var errInvalidJSON = errors.New("body is not a valid JSON document")

// Handler serves the lock routes.
type Handler struct {
	config Config
	store  lock.Store
	router chi.Router
}

// NewHandler returns a handler backed by store, usually a *lock.Manager.
func NewHandler(store lock.Store, options ...Option) *Handler {
	config := Config{
		MaxBodySize: DefaultMaxBodySize,
	}
	for _, opt := range options {
		opt.Apply(&config)
	}

	h := &Handler{
		config: config,
		store:  store,
	}

	r := chi.NewRouter()
	r.Route("/locks", func(r chi.Router) {
		r.Get("/", h.list)
		r.Delete("/", h.clear)
		r.Put("/{key}", h.acquire)
		r.Get("/{key}", h.get)
		r.Head("/{key}", h.exists)
		r.Patch("/{key}", h.update)
		r.Delete("/{key}", h.delete)
	})
	h.router = r

	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

type lockView struct {
	ID           uuid.UUID `json:"id" yaml:"id"`
	Key          string    `json:"key" yaml:"key"`
	CanonicalKey string    `json:"canonical_key" yaml:"canonical_key"`
	Payload      any       `json:"payload" yaml:"payload"`
	CreatedAt    time.Time `json:"created_at" yaml:"created_at"`
	ModifiedAt   time.Time `json:"modified_at" yaml:"modified_at"`
}

func newView(l *lock.Lock, contentType string) (lockView, error) {
	view := lockView{
		ID:           l.ID(),
		Key:          l.Key(),
		CanonicalKey: l.CanonicalKey(),
		Payload:      l.Payload(),
		CreatedAt:    l.CreatedAt(),
		ModifiedAt:   l.ModifiedAt(),
	}
	if contentType == contentTypeYAML {
		var payload any
		if err := l.Decode(&payload); err != nil {
			return view, err
		}
		view.Payload = payload
	}
	return view, nil
}

func keyParam(r *http.Request) string {
	key := chi.URLParam(r, "key")
	if r.URL.RawPath == "" {
		return key
	}
	if unescaped, err := url.PathUnescape(key); err == nil {
		return unescaped
	}
	return key
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	locks, err := h.store.List(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}

	contentType, _ := negotiate(r)
	views := make([]lockView, 0, len(locks))
	for _, l := range locks {
		view, err := newView(l, contentType)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		views = append(views, view)
	}
	h.respond(w, r, http.StatusOK, views)
}

func (h *Handler) clear(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Clear(r.Context()); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) acquire(w http.ResponseWriter, r *http.Request) {
	payload, err := h.payload(w, r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	l, err := lock.New(keyParam(r), payload)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.store.Acquire(r.Context(), l); err != nil {
		h.fail(w, r, err)
		return
	}
	h.respondLock(w, r, http.StatusCreated, l)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	l, err := h.store.Get(r.Context(), keyParam(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.respondLock(w, r, http.StatusOK, l)
}

func (h *Handler) exists(w http.ResponseWriter, r *http.Request) {
	ok, err := h.store.Exists(r.Context(), keyParam(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	payload, err := h.payload(w, r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	key := keyParam(r)
	if err := h.store.Update(r.Context(), key, payload); err != nil {
		h.fail(w, r, err)
		return
	}

	l, err := h.store.Get(r.Context(), key)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.respondLock(w, r, http.StatusOK, l)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Delete(r.Context(), keyParam(r)); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) payload(w http.ResponseWriter, r *http.Request) (json.RawMessage, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.config.MaxBodySize)

	payload, err := decodePayload(r)
	if err != nil {
		return nil, errors.Validation("invalid lock payload").AddError(err)
	}
	return payload, nil
}

func (h *Handler) respondLock(w http.ResponseWriter, r *http.Request, status int, l *lock.Lock) {
	contentType, _ := negotiate(r)
	view, err := newView(l, contentType)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.respond(w, r, status, view)
}

func (h *Handler) respond(w http.ResponseWriter, r *http.Request, status int, v any) {
	contentType, marshal := negotiate(r)

	data, err := marshal(v)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// fail writes err with its mapped status. Server side failures are
// logged, client errors are not.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if status := errors.HttpStatus(err); status >= http.StatusInternalServerError {
		logr.FromContextOrDiscard(r.Context()).Error(err, "lock request failed",
			"method", r.Method, "path", r.URL.Path, "status", status)
	}
	if rerr := errors.Response(w, err); rerr != nil {
		logr.FromContextOrDiscard(r.Context()).Error(rerr, "cannot write error response")
	}
}
