package server

import (
	"net/http"

	"github.com/Decentralized-Rights-Protocol/Dr-Blockchain-sub001/pkg/drperrors"
)

// statusFor translates a core error's taxonomy Kind into an HTTP status.
func statusFor(err error) int {
	switch drperrors.KindOf(err) {
	case drperrors.InvalidInput:
		return http.StatusBadRequest
	case drperrors.NotFound:
		return http.StatusNotFound
	case drperrors.UnauthorizedAction:
		return http.StatusForbidden
	case drperrors.PreconditionFailed:
		return http.StatusConflict
	default:
		return http.StatusServiceUnavailable
	}
}
