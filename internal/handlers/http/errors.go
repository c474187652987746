package http

import (
	"errors"
	"net/http"

	"relaycast/internal/core/domain"
	apperrors "relaycast/pkg/errors"
)

// toAppError maps domain sentinels onto HTTP-facing application errors.
func toAppError(err error) *apperrors.AppError {
	if appErr := apperrors.GetAppError(err); appErr != nil {
		return appErr
	}

	switch {
	case errors.Is(err, domain.ErrInvalidLayoutData), errors.Is(err, domain.ErrInvalidConfiguration):
		return apperrors.WrapError(err, apperrors.ErrCodeInvalidInput, err.Error(), http.StatusBadRequest)
	case errors.Is(err, domain.ErrEventSessionNotFound):
		return apperrors.WrapError(err, apperrors.ErrCodeNotFound, "event session not found", http.StatusNotFound)
	case errors.Is(err, domain.ErrLayoutNotFound):
		return apperrors.WrapError(err, apperrors.ErrCodeNotFound, "layout not found", http.StatusNotFound)
	case errors.Is(err, domain.ErrChannelStackNotFound):
		return apperrors.WrapError(err, apperrors.ErrCodeNotFound, "channel stack not found", http.StatusNotFound)
	case errors.Is(err, domain.ErrConfigurationMissing), errors.Is(err, domain.ErrInvalidRTMPURI):
		return apperrors.WrapError(err, apperrors.ErrCodeConfigurationMissing, err.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, domain.ErrProviderUnavailable):
		return apperrors.WrapError(err, apperrors.ErrCodeServiceUnavailable, "video provider unavailable", http.StatusServiceUnavailable)
	case errors.Is(err, domain.ErrProviderRejected):
		return apperrors.WrapError(err, apperrors.ErrCodeBadGateway, "video provider rejected request", http.StatusBadGateway)
	default:
		return apperrors.WrapError(err, apperrors.ErrCodeInternal, "Internal server error", http.StatusInternalServerError)
	}
}
