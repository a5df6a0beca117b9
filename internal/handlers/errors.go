package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/BradenHooton/stayhub/internal/models"
	pkghttp "github.com/BradenHooton/stayhub/pkg/http"
)

// writeServiceError maps the service error taxonomy onto HTTP statuses.
// Internal details never reach the client.
func writeServiceError(w http.ResponseWriter, err error) {
	var ve *models.ValidationError
	switch {
	case errors.As(err, &ve):
		pkghttp.WriteValidationError(w, ve.Field, ve.Message)
	case errors.Is(err, models.ErrBadRequest):
		pkghttp.WriteBadRequest(w, publicMessage(err, models.ErrBadRequest, "invalid request"))
	case errors.Is(err, models.ErrUnauthorized):
		pkghttp.WriteUnauthorized(w, "invalid credentials")
	case errors.Is(err, models.ErrForbidden):
		pkghttp.WriteForbidden(w, publicMessage(err, models.ErrForbidden, "access denied"))
	case errors.Is(err, models.ErrNotFound):
		pkghttp.WriteNotFound(w, "not found")
	case errors.Is(err, models.ErrConflict):
		pkghttp.WriteConflict(w, publicMessage(err, models.ErrConflict, "conflict"))
	case errors.Is(err, models.ErrMailDelivery):
		pkghttp.WriteBadGateway(w, "the email could not be delivered, try again later")
	default:
		pkghttp.WriteInternalError(w, "internal server error")
	}
}

// publicMessage returns the text services attach after "<sentinel>: ", which is
// written for clients. Wrapped causes are not included.
func publicMessage(err, sentinel error, fallback string) string {
	msg, found := strings.CutPrefix(err.Error(), sentinel.Error()+": ")
	if !found || msg == "" {
		return fallback
	}
	return msg
}
