package handler

import (
	stdErrors "errors"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/johnquangdev/meeting-digest/errors"
	usecaseErrors "github.com/johnquangdev/meeting-digest/internal/usecase/errors"
)

const geminiService = "gemini"

// Response shapes
type success struct {
	Code    interface{} `json:"code,omitempty"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

type errs struct {
	Code    interface{}       `json:"code,omitempty"`
	Message string            `json:"message,omitempty"`
	Info    string            `json:"info,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

// getRequestID reads X-Request-ID from the request, falling back to the id
// the RequestID middleware put on the response
func getRequestID(c echo.Context) string {
	if c == nil || c.Request() == nil {
		return ""
	}
	if id := c.Request().Header.Get(echo.HeaderXRequestID); id != "" {
		return id
	}
	return c.Response().Header().Get(echo.HeaderXRequestID)
}

// HandleSuccess writes a standardized success response using provided logger
func HandleSuccess(logger *zap.Logger, c echo.Context, data interface{}) error {
	resp := success{
		Code:    int(errors.ErrorCode_HTTP_OK),
		Message: "success",
		Data:    data,
	}

	if logger != nil {
		logger.Info("http.response.success",
			zap.String("request_id", getRequestID(c)),
			zap.String("path", c.Path()),
		)
	}

	return c.JSON(http.StatusOK, resp)
}

// HandleError centralizes error handling and logging using provided logger.
// Server-side failures never echo their cause back to the client.
func HandleError(logger *zap.Logger, c echo.Context, err error) error {
	appErr := toAppError(err)

	if logger != nil {
		logger.Error("http.response.error",
			zap.String("request_id", getRequestID(c)),
			zap.String("path", c.Path()),
			zap.Int("status", appErr.HTTPCode),
			zap.Any("app_code", appErr.Code),
			zap.Error(err),
		)
	}

	body := errs{
		Code:    appErr.Code,
		Message: appErr.Message,
		Details: appErr.Details,
	}
	if appErr.HTTPCode < http.StatusInternalServerError && appErr.Raw != nil {
		body.Info = appErr.Raw.Error()
	}

	return c.JSON(appErr.HTTPCode, body)
}

// toAppError maps usecase failures onto the API error catalogue
func toAppError(err error) errors.AppError {
	var appErr errors.AppError
	if stdErrors.As(err, &appErr) {
		return appErr
	}

	switch {
	case stdErrors.Is(err, usecaseErrors.ErrInvalidInput):
		appErr = errors.ErrInvalidArgument("transcript must not be empty")
		appErr.Raw = err
		return appErr
	case stdErrors.Is(err, usecaseErrors.ErrSummaryNotFound):
		return errors.ErrNotFound("Summary")
	case stdErrors.Is(err, usecaseErrors.ErrUpstreamTimeout):
		return errors.ErrAITimeout(geminiService, err)
	case stdErrors.Is(err, usecaseErrors.ErrUpstream):
		return errors.ErrAIServiceUnavailable(geminiService, err)
	case stdErrors.Is(err, usecaseErrors.ErrParse):
		return errors.ErrAISummaryFailed(err)
	case stdErrors.Is(err, usecaseErrors.ErrPersistence):
		return errors.ErrDBQueryFailed("meeting_summaries", err)
	}

	return errors.ErrInternal(err)
}

// validationError turns validator output into a 400 with the failing fields listed
func validationError(err error) errors.AppError {
	var fieldErrs validator.ValidationErrors
	if !stdErrors.As(err, &fieldErrs) {
		appErr := errors.ErrInvalidArgument("request validation failed")
		appErr.Raw = err
		return appErr
	}

	fields := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		fields = append(fields, strings.ToLower(fe.Field())+" failed on "+fe.Tag())
	}

	appErr := errors.ErrInvalidArgument("transcript must not be empty")
	appErr.Raw = stdErrors.New(strings.Join(fields, "; "))
	return appErr
}
