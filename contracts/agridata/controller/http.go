package controller

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"go.dedis.ch/agrireg"
	"go.dedis.ch/agrireg/contracts/agridata"
	"go.dedis.ch/agrireg/core/ledger"
	"go.dedis.ch/agrireg/core/store"
	proxyhttp "go.dedis.ch/agrireg/proxy/http"
)

// DefaultPrefix is the default path under which the registry is served.
const DefaultPrefix = "/agridata"

type countResponse struct {
	Count uint64 `json:"count"`
}

type errorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"requestId,omitempty"`
}

// queryHandler serves the read-only queries of the registry as JSON.
type queryHandler struct {
	prefix   string
	ledger   *ledger.Ledger
	registry *agridata.Registry
	logger   zerolog.Logger
}

func newQueryHandler(prefix string, l *ledger.Ledger, r *agridata.Registry) queryHandler {
	return queryHandler{
		prefix:   strings.TrimSuffix(prefix, "/"),
		ledger:   l,
		registry: r,
		logger:   agrireg.Logger.With().Str("role", "agridata http").Logger(),
	}
}

// ServeHTTP dispatches the request on the path relative to the prefix. The
// hash of "hashes/{hash}" is read from the escaped path so that it can hold
// slashes.
func (h queryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.fail(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	path := strings.TrimPrefix(r.URL.EscapedPath(), h.prefix)
	route, param, _ := strings.Cut(strings.TrimPrefix(path, "/"), "/")

	if route == "hashes" && param != "" {
		hash, err := url.PathUnescape(param)
		if err != nil {
			h.fail(w, r, http.StatusBadRequest, "invalid hash")
			return
		}

		h.entryByHash(w, r, hash)
		return
	}

	param = strings.TrimSuffix(param, "/")

	switch {
	case strings.Contains(param, "/"):
		h.fail(w, r, http.StatusNotFound, "unknown path")
	case route == "count" && param == "":
		h.count(w, r)
	case route == "config" && param == "":
		h.config(w, r)
	case route == "entries" && param != "":
		h.entryByID(w, r, param)
	case route == "updates" && param != "":
		h.update(w, r, param)
	default:
		h.fail(w, r, http.StatusNotFound, "unknown path")
	}
}

func (h queryHandler) count(w http.ResponseWriter, r *http.Request) {
	var count uint64

	err := h.ledger.View(func(s store.Readable) error {
		var err error
		count, err = h.registry.Count(s)
		return err
	})
	if err != nil {
		h.internal(w, r, err)
		return
	}

	h.reply(w, r, countResponse{Count: count})
}

func (h queryHandler) config(w http.ResponseWriter, r *http.Request) {
	var cfg agridata.Config

	err := h.ledger.View(func(s store.Readable) error {
		var err error
		cfg, err = h.registry.GetConfig(s)
		return err
	})
	if err != nil {
		h.internal(w, r, err)
		return
	}

	h.reply(w, r, cfg)
}

func (h queryHandler) entryByID(w http.ResponseWriter, r *http.Request, param string) {
	id, err := strconv.ParseUint(param, 10, 64)
	if err != nil {
		h.fail(w, r, http.StatusBadRequest, "invalid identifier")
		return
	}

	var entry *agridata.DataEntry

	err = h.ledger.View(func(s store.Readable) error {
		entry, err = h.registry.GetByID(s, id)
		return err
	})
	if err != nil {
		h.internal(w, r, err)
		return
	}

	if entry == nil {
		h.fail(w, r, http.StatusNotFound, agridata.ErrDataNotFound.Error())
		return
	}

	h.reply(w, r, entry)
}

func (h queryHandler) entryByHash(w http.ResponseWriter, r *http.Request, hash string) {
	var entry *agridata.DataEntry

	err := h.ledger.View(func(s store.Readable) error {
		var err error
		entry, err = h.registry.GetByHash(s, hash)
		return err
	})
	if err != nil {
		h.internal(w, r, err)
		return
	}

	if entry == nil {
		h.fail(w, r, http.StatusNotFound, agridata.ErrDataNotFound.Error())
		return
	}

	h.reply(w, r, entry)
}

func (h queryHandler) update(w http.ResponseWriter, r *http.Request, param string) {
	id, err := strconv.ParseUint(param, 10, 64)
	if err != nil {
		h.fail(w, r, http.StatusBadRequest, "invalid identifier")
		return
	}

	var update *agridata.DataUpdate

	err = h.ledger.View(func(s store.Readable) error {
		update, err = h.registry.GetUpdate(s, id)
		return err
	})
	if err != nil {
		h.internal(w, r, err)
		return
	}

	if update == nil {
		h.fail(w, r, http.StatusNotFound, "no update")
		return
	}

	h.reply(w, r, update)
}

func (h queryHandler) reply(w http.ResponseWriter, r *http.Request, v interface{}) {
	h.write(w, r, http.StatusOK, v)
}

func (h queryHandler) internal(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.Err(err).
		Str("requestID", proxyhttp.RequestID(r)).
		Str("url", r.URL.Path).
		Msg("query failed")

	h.fail(w, r, http.StatusInternalServerError, "internal error")
}

func (h queryHandler) fail(w http.ResponseWriter, r *http.Request, status int, msg string) {
	h.write(w, r, status, errorResponse{
		Error:     msg,
		RequestID: proxyhttp.RequestID(r),
	})
}

func (h queryHandler) write(w http.ResponseWriter, r *http.Request, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		h.logger.Warn().Err(err).
			Str("requestID", proxyhttp.RequestID(r)).
			Msg("failed to write response")
	}
}
