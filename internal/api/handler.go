package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"Mailcast/internal/access"
	"Mailcast/internal/csvparser"
	"Mailcast/internal/models"
)

const (
	maxImportBytes = 5 << 20
	// MaxImportRows is the largest client CSV accepted in one request.
	MaxImportRows = 1000
)

var validate = validator.New()

type Service interface {
	Create(ctx context.Context, nl *models.Newsletter) error
	Update(ctx context.Context, nl *models.Newsletter) error
	Deactivate(ctx context.Context, nl *models.Newsletter) error
	Get(ctx context.Context, id int64) (*models.Newsletter, error)
	List(ctx context.Context, viewer models.Viewer) ([]models.Newsletter, error)
	Logs(ctx context.Context, newsletterID int64) ([]models.NewsletterLog, error)
	AllLogs(ctx context.Context, viewer models.Viewer) ([]models.NewsletterLog, error)
	Log(ctx context.Context, id int64) (*models.NewsletterLog, *models.Newsletter, error)
	ImportClients(ctx context.Context, clients []models.Client) error
	CreateMessage(ctx context.Context, msg *models.Message) error
}

type Handler struct {
	Service Service
	Log     *zap.Logger
}

type newsletterRequest struct {
	FireAt     string  `json:"fire_at" validate:"required"`
	Frequency  string  `json:"frequency" validate:"required,oneof=daily weekly monthly"`
	FinishDate string  `json:"finish_date" validate:"required,datetime=2006-01-02"`
	FinishTime string  `json:"finish_time" validate:"required"`
	ClientIDs  []int64 `json:"client_ids" validate:"required,min=1,dive,gt=0"`
	MessageIDs []int64 `json:"message_ids" validate:"required,min=1,dive,gt=0"`
}

// apply copies the request onto nl, normalizing both times to HH:MM:SS.
func (req *newsletterRequest) apply(nl *models.Newsletter) error {
	fireAt, err := models.ParseTimeOfDay(req.FireAt)
	if err != nil {
		return err
	}
	finishTime, err := models.ParseTimeOfDay(req.FinishTime)
	if err != nil {
		return err
	}

	nl.FireAt = fireAt
	nl.Frequency = models.Frequency(req.Frequency)
	nl.FinishDate = req.FinishDate
	nl.FinishTime = finishTime.String()
	nl.ClientIDs = req.ClientIDs
	nl.MessageIDs = req.MessageIDs
	return nil
}

func decodeNewsletter(r *http.Request) (*newsletterRequest, error) {
	var req newsletterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, err
	}
	if err := validate.Struct(req); err != nil {
		return nil, err
	}
	return &req, nil
}

func (h *Handler) CreateNewsletter(w http.ResponseWriter, r *http.Request) {
	req, err := decodeNewsletter(r)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	nl := &models.Newsletter{OwnerID: viewerFrom(r.Context()).UserID}
	if err := req.apply(nl); err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.Service.Create(r.Context(), nl); err != nil {
		h.writeError(w, err)
		return
	}

	w.Header().Set("Location", nl.DetailPath())
	writeJSON(w, http.StatusCreated, nl)
}

func (h *Handler) ListNewsletters(w http.ResponseWriter, r *http.Request) {
	list, err := h.Service.List(r.Context(), viewerFrom(r.Context()))
	if err != nil {
		h.writeError(w, err)
		return
	}
	if list == nil {
		list = []models.Newsletter{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) GetNewsletter(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, newsletterFrom(r.Context()))
}

func (h *Handler) UpdateNewsletter(w http.ResponseWriter, r *http.Request) {
	nl := newsletterFrom(r.Context())
	if !access.CanEdit(nl, viewerFrom(r.Context())) {
		writeMessage(w, http.StatusForbidden, "only the owner can edit a newsletter")
		return
	}

	req, err := decodeNewsletter(r)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := req.apply(nl); err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.Service.Update(r.Context(), nl); err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, nl)
}

func (h *Handler) DeactivateNewsletter(w http.ResponseWriter, r *http.Request) {
	nl := newsletterFrom(r.Context())
	if !access.CanEdit(nl, viewerFrom(r.Context())) {
		writeMessage(w, http.StatusForbidden, "only the owner can delete a newsletter")
		return
	}

	if err := h.Service.Deactivate(r.Context(), nl); err != nil {
		h.writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ListLogs(w http.ResponseWriter, r *http.Request) {
	logs, err := h.Service.Logs(r.Context(), newsletterFrom(r.Context()).ID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if logs == nil {
		logs = []models.NewsletterLog{}
	}
	writeJSON(w, http.StatusOK, logs)
}

func (h *Handler) ListAllLogs(w http.ResponseWriter, r *http.Request) {
	logs, err := h.Service.AllLogs(r.Context(), viewerFrom(r.Context()))
	if err != nil {
		h.writeError(w, err)
		return
	}
	if logs == nil {
		logs = []models.NewsletterLog{}
	}
	writeJSON(w, http.StatusOK, logs)
}

func (h *Handler) GetLog(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid log id")
		return
	}

	entry, nl, err := h.Service.Log(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if !access.CanViewLog(nl, viewerFrom(r.Context())) {
		writeMessage(w, http.StatusForbidden, "forbidden")
		return
	}

	writeJSON(w, http.StatusOK, entry)
}

type messageRequest struct {
	Subject string `json:"subject" validate:"required,max=255"`
	Body    string `json:"body" validate:"required"`
}

func (h *Handler) CreateMessage(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := validate.Struct(req); err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	msg := &models.Message{
		OwnerID: viewerFrom(r.Context()).UserID,
		Subject: req.Subject,
		Body:    req.Body,
	}
	if err := h.Service.CreateMessage(r.Context(), msg); err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, msg)
}

// ImportClients accepts a CSV body with an Email column and optional Name
// and Comment columns.
func (h *Handler) ImportClients(w http.ResponseWriter, r *http.Request) {
	rows, err := csvparser.ParseClientRows(http.MaxBytesReader(w, r.Body, maxImportBytes), MaxImportRows)
	if errors.Is(err, csvparser.ErrTooManyRows) {
		writeMessage(w, http.StatusRequestEntityTooLarge, err.Error())
		return
	}
	if err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	owner := viewerFrom(r.Context()).UserID
	clients := make([]models.Client, 0, len(rows))
	for _, row := range rows {
		c := models.Client{
			OwnerID:  owner,
			Email:    strings.ToLower(row.Email),
			FullName: row.FullName,
			Comment:  row.Comment,
		}
		if err := validate.Var(c.Email, "email"); err != nil {
			continue
		}
		clients = append(clients, c)
	}
	if len(clients) == 0 {
		writeMessage(w, http.StatusBadRequest, "no valid client rows")
		return
	}

	if err := h.Service.ImportClients(r.Context(), clients); err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"imported": len(clients),
		"clients":  clients,
	})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrNotFound):
		writeMessage(w, http.StatusNotFound, err.Error())
	case errors.Is(err, models.ErrInvalidFrequency),
		errors.Is(err, models.ErrFinishInPast),
		errors.Is(err, models.ErrMalformedFinish),
		errors.Is(err, models.ErrInvalidReference):
		writeMessage(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, models.ErrTaskExists):
		writeMessage(w, http.StatusConflict, err.Error())
	default:
		h.serverError(w, "request failed", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
