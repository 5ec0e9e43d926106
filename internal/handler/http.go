package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/afonsojramos/discrakt/internal/config"
	"github.com/afonsojramos/discrakt/internal/domain"
	"github.com/afonsojramos/discrakt/internal/service"
)

const (
	contentTypeJSON = "application/json"
	maxSubmitBytes  = 64 << 10
)

type HTTPHandler struct {
	// baseCtx scopes the background polling started by a submission. The
	// flow must outlive the request that kicked it off, so the request
	// context is never used for it.
	baseCtx    context.Context
	store      *config.Store
	authorizer *service.Authorizer
}

func NewHTTPHandler(baseCtx context.Context, store *config.Store, authorizer *service.Authorizer) *HTTPHandler {
	return &HTTPHandler{
		baseCtx:    baseCtx,
		store:      store,
		authorizer: authorizer,
	}
}

func (h *HTTPHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/status", h.handleStatus)
	mux.HandleFunc("/submit", h.handleSubmit)
	mux.HandleFunc("/health", h.handleHealth)
}

// statusResponse reports the device-flow phase. Message is only present
// for error states.
type statusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

func (h *HTTPHandler) handleStatus(w http.ResponseWriter, r *http.Request) {
	state := h.authorizer.State()
	h.writeJSON(w, http.StatusOK, statusResponse{
		Status:  state.Phase.String(),
		Message: state.Message,
	})
}

type submitRequest struct {
	Username string `json:"username"`
	ClientID string `json:"client_id"`
	Language string `json:"language"`
}

type submitResponse struct {
	UserCode        string `json:"user_code"`
	VerificationURL string `json:"verification_url"`
	ExpiresIn       int64  `json:"expires_in"`
	Interval        int64  `json:"interval"`
}

func (h *HTTPHandler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Invalid method", http.StatusMethodNotAllowed)
		return
	}

	submission, err := h.parseSubmission(r)
	if err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	if submission.Username == "" {
		http.Error(w, "Username is required", http.StatusBadRequest)
		return
	}
	if submission.Language != "" && !config.SupportedLanguage(submission.Language) {
		http.Error(w, "Unsupported language", http.StatusBadRequest)
		return
	}

	clientID := submission.ClientID
	if clientID == "" {
		clientID = config.DefaultTraktClientID
	}

	if err := h.store.SetCredentials(submission.Username, clientID); err != nil {
		log.WithField("error", err).Error("failed to persist credentials")
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}
	if submission.Language != "" {
		if err := h.store.SetLanguage(submission.Language); err != nil {
			log.WithField("error", err).Error("failed to persist language")
			http.Error(w, "Internal error", http.StatusInternalServerError)
			return
		}
	}

	auth, err := h.authorizer.Begin(h.baseCtx)
	if err != nil {
		if errors.Is(err, domain.ErrFlowInProgress) {
			http.Error(w, "Authorization already in progress", http.StatusConflict)
			return
		}
		log.WithField("error", err).Error("failed to start device flow")
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, submitResponse{
		UserCode:        auth.UserCode,
		VerificationURL: auth.VerificationURL,
		ExpiresIn:       auth.ExpiresIn,
		Interval:        auth.Interval,
	})
}

func (h *HTTPHandler) parseSubmission(r *http.Request) (*submitRequest, error) {
	defer r.Body.Close()

	if ct := r.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, contentTypeJSON) {
		return nil, fmt.Errorf("unsupported content type %s", ct)
	}

	var submission submitRequest
	decoder := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxSubmitBytes))
	if err := decoder.Decode(&submission); err != nil {
		return nil, fmt.Errorf("unmarshalling json: %w", err)
	}
	submission.Username = strings.TrimSpace(submission.Username)
	submission.ClientID = strings.TrimSpace(submission.ClientID)
	return &submission, nil
}

func (h *HTTPHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func (h *HTTPHandler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.WithField("error", err).Error("failed to encode json response")
	}
}
