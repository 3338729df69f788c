package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/acksell/electro/dynamodb/binder"
	"github.com/acksell/electro/dynamodb/engine"
	"github.com/acksell/electro/dynamodb/filter"
	"github.com/acksell/electro/dynamodb/surface"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

type response struct {
	Data    any    `json:"data"`
	Message string `json:"message"`
}

type handler struct {
	node   surface.Node
	logger zerolog.Logger
}

func (h *handler) keyValues(r *http.Request) map[string]any {
	values := make(map[string]any, len(h.node.Args))
	for _, a := range h.node.Args {
		if v := chi.URLParam(r, a.Name); v != "" {
			values[a.Name] = v
		}
	}
	return values
}

// options reads limit, table, params, raw and delete from the query string.
func (h *handler) options(r *http.Request) (binder.Options, error) {
	q := r.URL.Query()
	opts := binder.Options{
		Table:  q.Get("table"),
		DryRun: flag(q.Get("params")),
		Raw:    flag(q.Get("raw")),
		Delete: flag(q.Get("delete")),
	}
	if l := q.Get("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil {
			return binder.Options{}, fmt.Errorf("%w: limit is not a number: %q", binder.ErrInvalidOption, l)
		}
		opts.Limit = n
	}
	return opts, nil
}

func flag(v string) bool {
	b, err := strconv.ParseBool(v)
	return err == nil && b
}

func (h *handler) query(w http.ResponseWriter, r *http.Request) {
	opts, err := h.options(r)
	if err != nil {
		h.fail(w, err)
		return
	}
	filters, err := filter.CompileAll(h.node.Instance.Attributes(), r.URL.Query()["filter"])
	if err != nil {
		h.fail(w, err)
		return
	}

	res, err := h.node.Binding.Invoke(r.Context(), h.keyValues(r), filters, opts)
	if err != nil {
		h.fail(w, err)
		return
	}
	switch {
	case opts.DryRun:
		writeJSON(w, http.StatusOK, response{Data: res.Params})
	case opts.Delete:
		writeJSON(w, http.StatusOK, response{Data: res.Removed, Message: "Removed!"})
	default:
		writeJSON(w, http.StatusOK, response{Data: res.Items})
	}
}

func (h *handler) create(w http.ResponseWriter, r *http.Request) {
	body, ok := h.body(w, r)
	if !ok {
		return
	}
	opts, err := h.options(r)
	if err != nil {
		h.fail(w, err)
		return
	}
	item, err := h.node.Actions.Create(r.Context(), body, opts)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, response{Data: item, Message: "Created!"})
}

func (h *handler) patch(w http.ResponseWriter, r *http.Request) {
	body, ok := h.body(w, r)
	if !ok {
		return
	}
	opts, err := h.options(r)
	if err != nil {
		h.fail(w, err)
		return
	}
	item, err := h.node.Actions.Patch(r.Context(), h.keyValues(r), body, opts)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, response{Data: item, Message: "Updated!"})
}

func (h *handler) remove(w http.ResponseWriter, r *http.Request) {
	opts, err := h.options(r)
	if err != nil {
		h.fail(w, err)
		return
	}
	item, err := h.node.Actions.Remove(r.Context(), h.keyValues(r), opts)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, response{Data: item, Message: "Removed!"})
}

func (h *handler) body(w http.ResponseWriter, r *http.Request) (map[string]any, bool) {
	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, response{Data: map[string]any{}, Message: "invalid JSON body: " + err.Error()})
		return nil, false
	}
	return body, true
}

func (h *handler) fail(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, engine.ErrConditionFailed):
		status = http.StatusConflict
	case binder.IsUserError(err):
		status = http.StatusBadRequest
	}
	if status == http.StatusInternalServerError {
		h.logger.Error().Err(err).Str("node", h.node.Use()).Msg("request failed")
	}
	writeJSON(w, status, response{Data: map[string]any{}, Message: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
