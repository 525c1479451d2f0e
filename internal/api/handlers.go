package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/punchamoorthee/loanops/internal/domain"
	"github.com/punchamoorthee/loanops/internal/service"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "loan_http_requests_total",
		Help: "Total HTTP requests processed, labeled by status code",
	}, []string{"method", "endpoint", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "loan_http_request_duration_seconds",
		Help:    "Latency distribution of HTTP requests",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
	}, []string{"method", "endpoint"})
)

type Handler struct {
	svc *service.LoanService
	log zerolog.Logger
}

func NewHandler(svc *service.LoanService, log zerolog.Logger) *Handler {
	return &Handler{svc: svc, log: log}
}

// Register attaches the loan routes to the router. The literal
// /loans/overdue route must precede the /loans/{id} pattern.
func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/loans", h.IssueLoan).Methods("POST")
	r.HandleFunc("/loans/returns", h.ReturnLoan).Methods("POST")
	r.HandleFunc("/loans/overdue", h.GetOverdueLoans).Methods("GET")
	r.HandleFunc("/loans/{id}/extend", h.ExtendLoan).Methods("PUT")
	r.HandleFunc("/loans/{id}", h.GetLoan).Methods("GET")
	r.HandleFunc("/users/{user_id}/loans", h.GetUserLoans).Methods("GET")
}

func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"}, r.Method, "/health")
}

func (h *Handler) IssueLoan(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/loans"
	timer := prometheus.NewTimer(httpRequestDuration.WithLabelValues("POST", endpoint))
	defer timer.ObserveDuration()

	var req domain.IssueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Malformed JSON body", "POST", endpoint)
		return
	}

	loan, err := h.svc.IssueBook(r.Context(), req)
	if err != nil {
		h.respondDomainError(w, err, "POST", endpoint)
		return
	}
	h.respondJSON(w, http.StatusCreated, loan, "POST", endpoint)
}

func (h *Handler) ReturnLoan(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/loans/returns"
	timer := prometheus.NewTimer(httpRequestDuration.WithLabelValues("POST", endpoint))
	defer timer.ObserveDuration()

	var req domain.ReturnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Malformed JSON body", "POST", endpoint)
		return
	}

	loan, err := h.svc.ReturnBook(r.Context(), req.LoanID)
	if err != nil {
		h.respondDomainError(w, err, "POST", endpoint)
		return
	}
	h.respondJSON(w, http.StatusOK, loan, "POST", endpoint)
}

func (h *Handler) ExtendLoan(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/loans/{id}/extend"
	timer := prometheus.NewTimer(httpRequestDuration.WithLabelValues("PUT", endpoint))
	defer timer.ObserveDuration()

	var req domain.ExtendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Malformed JSON body", "PUT", endpoint)
		return
	}

	loan, err := h.svc.ExtendLoan(r.Context(), mux.Vars(r)["id"], req.ExtensionDays)
	if err != nil {
		h.respondDomainError(w, err, "PUT", endpoint)
		return
	}
	h.respondJSON(w, http.StatusOK, loan, "PUT", endpoint)
}

func (h *Handler) GetLoan(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/loans/{id}"
	timer := prometheus.NewTimer(httpRequestDuration.WithLabelValues("GET", endpoint))
	defer timer.ObserveDuration()

	detail, err := h.svc.GetLoan(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.respondDomainError(w, err, "GET", endpoint)
		return
	}
	h.respondJSON(w, http.StatusOK, detail, "GET", endpoint)
}

func (h *Handler) GetUserLoans(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/users/{user_id}/loans"
	timer := prometheus.NewTimer(httpRequestDuration.WithLabelValues("GET", endpoint))
	defer timer.ObserveDuration()

	resp, err := h.svc.GetUserLoans(r.Context(), mux.Vars(r)["user_id"])
	if err != nil {
		h.respondDomainError(w, err, "GET", endpoint)
		return
	}
	h.respondJSON(w, http.StatusOK, resp, "GET", endpoint)
}

func (h *Handler) GetOverdueLoans(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/loans/overdue"
	timer := prometheus.NewTimer(httpRequestDuration.WithLabelValues("GET", endpoint))
	defer timer.ObserveDuration()

	resp, err := h.svc.OverdueLoans(r.Context())
	if err != nil {
		h.respondDomainError(w, err, "GET", endpoint)
		return
	}
	h.respondJSON(w, http.StatusOK, resp, "GET", endpoint)
}

// respondDomainError maps the workflow error taxonomy onto HTTP
// status categories. Anything unrecognized is a 500.
func (h *Handler) respondDomainError(w http.ResponseWriter, err error, method, endpoint string) {
	switch {
	case errors.Is(err, domain.ErrInvalidRequest):
		h.respondError(w, http.StatusBadRequest, err.Error(), method, endpoint)
	case errors.Is(err, domain.ErrUserNotFound),
		errors.Is(err, domain.ErrBookNotFound),
		errors.Is(err, domain.ErrLoanNotFound):
		h.respondError(w, http.StatusNotFound, err.Error(), method, endpoint)
	case errors.Is(err, domain.ErrDuplicateLoan),
		errors.Is(err, domain.ErrAlreadyReturned):
		h.respondError(w, http.StatusConflict, err.Error(), method, endpoint)
	case errors.Is(err, domain.ErrNoCopies):
		h.respondError(w, http.StatusUnprocessableEntity, err.Error(), method, endpoint)
	case errors.Is(err, domain.ErrUnavailable):
		h.respondError(w, http.StatusServiceUnavailable, err.Error(), method, endpoint)
	case errors.Is(err, domain.ErrCompensationFailed):
		h.log.Error().Err(err).Str("endpoint", endpoint).Msg("compensation failure surfaced to client")
		h.respondError(w, http.StatusInternalServerError, err.Error(), method, endpoint)
	default:
		h.log.Error().Err(err).Str("endpoint", endpoint).Msg("unhandled workflow error")
		h.respondError(w, http.StatusInternalServerError, "Internal Server Error", method, endpoint)
	}
}

func (h *Handler) respondJSON(w http.ResponseWriter, code int, payload interface{}, method, endpoint string) {
	httpRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(code)).Inc()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if payload != nil {
		json.NewEncoder(w).Encode(payload)
	}
}

func (h *Handler) respondError(w http.ResponseWriter, code int, msg, method, endpoint string) {
	h.respondJSON(w, code, map[string]string{"error": msg}, method, endpoint)
}
