// Package httpapi exposes the ledger engine over a small REST surface. It is
// a thin wrapper: requests are decoded, handed to the engine, and the result
// or classified failure is mapped to a response.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	app "github.com/ledgerware/ledger-service/internal/app"
	"github.com/ledgerware/ledger-service/internal/app/domain/ledger"
	"github.com/ledgerware/ledger-service/internal/app/metrics"
)

// handler bundles HTTP endpoints for the application services.
type handler struct {
	app   *app.Application
	audit *auditLog
}

// Options configures optional transport concerns.
type Options struct {
	// AuditFile, when set, appends mutating requests as JSONL to this path
	// in addition to the in-memory ring.
	AuditFile string

	// RateLimit caps mutating requests per second; zero disables limiting.
	RateLimit float64

	// RateBurst is the token bucket size used with RateLimit.
	RateBurst int
}

// NewHandler returns the service's HTTP handler with middleware applied.
func NewHandler(application *app.Application, opts Options) (http.Handler, error) {
	var sink auditSink
	if opts.AuditFile != "" {
		fileSink, err := newFileAuditSink(opts.AuditFile)
		if err != nil {
			return nil, err
		}
		sink = fileSink
	}

	h := &handler{
		app:   application,
		audit: newAuditLog(0, sink),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/accounts/", h.accountResources)
	mux.HandleFunc("/healthz", h.healthz)
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/audit", h.auditEntries)

	var wrapped http.Handler = mux
	wrapped = h.withAudit(wrapped)
	if opts.RateLimit > 0 {
		wrapped = withRateLimit(wrapped, opts.RateLimit, opts.RateBurst)
	}
	wrapped = metrics.InstrumentHandler(wrapped)
	wrapped = withRequestID(wrapped, application.Log())
	return wrapped, nil
}

func (h *handler) accountResources(w http.ResponseWriter, r *http.Request) {
	trimmed := strings.Trim(strings.TrimPrefix(r.URL.Path, "/accounts"), "/")
	parts := strings.Split(trimmed, "/")
	if len(parts) == 0 || parts[0] == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	accountID, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, ledger.CodeInvalidArgument,
			errors.New("account id must be an integer"))
		return
	}

	if len(parts) == 1 {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		acct, err := h.app.Ledger.Balance(r.Context(), accountID)
		if err != nil {
			writeLedgerError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, acct)
		return
	}

	switch parts[1] {
	case "transactions":
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		txs, err := h.app.Ledger.History(r.Context(), accountID)
		if err != nil {
			writeLedgerError(w, err)
			return
		}
		if txs == nil {
			txs = []ledger.Transaction{}
		}
		writeJSON(w, http.StatusOK, txs)

	case "credit":
		h.mutate(w, r, accountID, h.app.Ledger.Credit)

	case "debit":
		h.mutate(w, r, accountID, h.app.Ledger.Debit)

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *handler) mutate(w http.ResponseWriter, r *http.Request, accountID int64,
	op func(ctx context.Context, accountID, amount int64) (ledger.Account, error)) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var payload struct {
		Amount int64 `json:"amount"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, ledger.CodeInvalidArgument, err)
		return
	}
	acct, err := op(r.Context(), accountID, payload.Amount)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, acct)
}

func (h *handler) healthz(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":       "ok",
		"lock_handles": h.app.Ledger.ActiveLocks(),
	})
}

func (h *handler) auditEntries(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			limit = n
		}
	}
	writeJSON(w, http.StatusOK, h.audit.listLimit(limit))
}

func decodeJSON(body io.ReadCloser, dst interface{}) error {
	defer body.Close()
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error": err.Error(),
		"code":  code,
	})
}

// writeLedgerError maps classified engine failures to transport responses.
func writeLedgerError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ledger.ErrInvalidArgument):
		status = http.StatusBadRequest
	case errors.Is(err, ledger.ErrPolicyViolation):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, ledger.ErrInsufficientBalance):
		status = http.StatusConflict
	case errors.Is(err, ledger.ErrLockTimeout):
		status = http.StatusServiceUnavailable
	}
	writeError(w, status, ledger.Code(err), err)
}
