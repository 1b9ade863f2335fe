package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"Mailcast/internal/access"
	"Mailcast/internal/models"
)

const (
	HeaderUserID    = "X-User-ID"
	HeaderUserStaff = "X-User-Staff"
	HeaderNotice    = "X-Notice"
)

type ctxKey int

const (
	viewerKey ctxKey = iota
	newsletterKey
)

func viewerFrom(ctx context.Context) models.Viewer {
	v, _ := ctx.Value(viewerKey).(models.Viewer)
	return v
}

func newsletterFrom(ctx context.Context) *models.Newsletter {
	nl, _ := ctx.Value(newsletterKey).(*models.Newsletter)
	return nl
}

// RequireViewer reads the caller identity set by the auth proxy.
func RequireViewer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(r.Header.Get(HeaderUserID), 10, 64)
		if err != nil || id <= 0 {
			writeMessage(w, http.StatusUnauthorized, "missing or invalid "+HeaderUserID)
			return
		}
		staff, _ := strconv.ParseBool(r.Header.Get(HeaderUserStaff))

		ctx := context.WithValue(r.Context(), viewerKey, models.Viewer{UserID: id, IsStaff: staff})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// NewsletterCtx loads the newsletter named by the {id} URL parameter and
// checks that the viewer may see it.
func (h *Handler) NewsletterCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			writeMessage(w, http.StatusBadRequest, "invalid newsletter id")
			return
		}

		nl, err := h.Service.Get(r.Context(), id)
		if errors.Is(err, models.ErrNotFound) {
			writeMessage(w, http.StatusNotFound, "newsletter not found")
			return
		}
		if err != nil {
			h.serverError(w, "load newsletter failed", err)
			return
		}

		if !access.CanView(nl, viewerFrom(r.Context())) {
			writeMessage(w, http.StatusForbidden, "forbidden")
			return
		}

		ctx := context.WithValue(r.Context(), newsletterKey, nl)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ActiveOnly turns requests for a deactivated newsletter into a redirect to
// its detail page.
func ActiveOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		d := access.Guard(newsletterFrom(r.Context()), viewerFrom(r.Context()))
		if !d.Allowed {
			w.Header().Set("Location", d.Redirect)
			w.Header().Set(HeaderNotice, d.Notice)
			w.WriteHeader(http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) serverError(w http.ResponseWriter, msg string, err error) {
	h.Log.Error(msg, zap.Error(err))
	writeMessage(w, http.StatusInternalServerError, "internal error")
}
