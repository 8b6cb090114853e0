package handler

import (
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/johnquangdev/meeting-digest/errors"
	"github.com/johnquangdev/meeting-digest/internal/adapter/dto"
	"github.com/johnquangdev/meeting-digest/internal/adapter/presenter"
	aiuse "github.com/johnquangdev/meeting-digest/internal/usecase/ai"
)

const (
	streamErrorMessage = "[ERROR] failed to generate summary"
	streamDoneEvent    = "done"
	streamDoneData     = "[DONE]"
)

// SummaryController exposes summary generation and lookup over HTTP
type SummaryController struct {
	svc    aiuse.Service
	logger *zap.Logger
}

// NewSummaryController creates a new summary controller
func NewSummaryController(svc aiuse.Service, logger *zap.Logger) *SummaryController {
	return &SummaryController{svc: svc, logger: logger}
}

// CreateSummary generates and stores a structured summary
// @Summary      Summarize a meeting transcript
// @Description  Sends the transcript to the model, extracts overview, key decisions and action items, and stores the result
// @Tags         Summaries
// @Accept       json
// @Produce      json
// @Param        request  body      dto.CreateSummaryRequest  true  "Meeting transcript"
// @Success      200      {object}  dto.SummaryResponse       "Stored summary"
// @Failure      400      {object}  map[string]interface{}    "Missing or blank transcript"
// @Failure      500      {object}  map[string]interface{}    "Model output could not be parsed or stored"
// @Failure      503      {object}  map[string]interface{}    "Model service unavailable"
// @Failure      504      {object}  map[string]interface{}    "Model service timed out"
// @Router       /summaries [post]
func (sc *SummaryController) CreateSummary(c echo.Context) error {
	req, err := sc.bindRequest(c)
	if err != nil {
		return HandleError(sc.logger, c, err)
	}

	summary, err := sc.svc.GenerateAndStore(c.Request().Context(), req.Transcript)
	if err != nil {
		return HandleError(sc.logger, c, err)
	}

	return HandleSuccess(sc.logger, c, presenter.ToSummaryResponse(summary))
}

// StreamSummary relays model output as server-sent events
// @Summary      Stream a meeting summary
// @Description  Streams the text fragments produced by the model as server-sent events. Nothing is stored. The stream ends with an "done" event, or with a "[ERROR]" data line on failure.
// @Tags         Summaries
// @Accept       json
// @Produce      text/event-stream
// @Param        request  body      dto.CreateSummaryRequest  true  "Meeting transcript"
// @Success      200      {string}  string                    "Event stream"
// @Failure      400      {object}  map[string]interface{}    "Missing or blank transcript"
// @Router       /summaries/stream [post]
func (sc *SummaryController) StreamSummary(c echo.Context) error {
	req, err := sc.bindRequest(c)
	if err != nil {
		return HandleError(sc.logger, c, err)
	}

	if _, ok := c.Response().Writer.(http.Flusher); !ok {
		return HandleError(sc.logger, c, errors.ErrAIStreamNotSupported())
	}

	ctx := c.Request().Context()
	w := c.Response()
	w.Header().Set(echo.HeaderContentType, "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	w.Flush()

	fragments := 0
	for chunk, streamErr := range sc.svc.GenerateStream(ctx, req.Transcript) {
		if streamErr != nil {
			if ctx.Err() != nil {
				sc.logClientGone(c, fragments)
				return nil
			}
			if sc.logger != nil {
				sc.logger.Error("❌ summary stream failed",
					zap.String("request_id", getRequestID(c)),
					zap.Int("fragment_count", fragments),
					zap.Error(streamErr),
				)
			}
			_ = writeEvent(w, "", streamErrorMessage)
			return nil
		}

		if err := writeEvent(w, "", chunk); err != nil {
			sc.logClientGone(c, fragments)
			return nil
		}
		fragments++
	}

	if err := writeEvent(w, streamDoneEvent, streamDoneData); err != nil {
		sc.logClientGone(c, fragments)
		return nil
	}

	if sc.logger != nil {
		sc.logger.Info("✅ summary stream completed",
			zap.String("request_id", getRequestID(c)),
			zap.Int("fragment_count", fragments),
		)
	}
	return nil
}

// ListSummaries returns every stored summary
// @Summary      List summaries
// @Description  Returns all stored summaries, newest first
// @Tags         Summaries
// @Produce      json
// @Success      200  {object}  dto.ListSummariesResponse  "Stored summaries"
// @Failure      500  {object}  map[string]interface{}     "Store unavailable"
// @Router       /summaries [get]
func (sc *SummaryController) ListSummaries(c echo.Context) error {
	summaries, err := sc.svc.ListSummaries(c.Request().Context())
	if err != nil {
		return HandleError(sc.logger, c, err)
	}
	return HandleSuccess(sc.logger, c, presenter.ToListSummariesResponse(summaries))
}

// GetSummary returns one summary by its internal id
// @Summary      Get summary by id
// @Tags         Summaries
// @Produce      json
// @Param        id   path      string                  true  "Summary ID"
// @Success      200  {object}  dto.SummaryResponse     "Stored summary"
// @Failure      404  {object}  map[string]interface{}  "Summary not found"
// @Router       /summaries/{id} [get]
func (sc *SummaryController) GetSummary(c echo.Context) error {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		return HandleError(sc.logger, c, errors.ErrInvalidArgument("id is required"))
	}

	summary, err := sc.svc.GetSummary(c.Request().Context(), id)
	if err != nil {
		return HandleError(sc.logger, c, err)
	}
	return HandleSuccess(sc.logger, c, presenter.ToSummaryResponse(summary))
}

// GetSummaryByPublicID returns one summary by its shareable id
// @Summary      Get summary by public id
// @Tags         Summaries
// @Produce      json
// @Param        publicId  path      string                  true  "Public summary ID"
// @Success      200       {object}  dto.SummaryResponse     "Stored summary"
// @Failure      404       {object}  map[string]interface{}  "Summary not found"
// @Router       /summaries/public/{publicId} [get]
func (sc *SummaryController) GetSummaryByPublicID(c echo.Context) error {
	publicID := strings.TrimSpace(c.Param("publicId"))
	if publicID == "" {
		return HandleError(sc.logger, c, errors.ErrInvalidArgument("publicId is required"))
	}

	summary, err := sc.svc.GetSummaryByPublicID(c.Request().Context(), publicID)
	if err != nil {
		return HandleError(sc.logger, c, err)
	}
	return HandleSuccess(sc.logger, c, presenter.ToSummaryResponse(summary))
}

func (sc *SummaryController) bindRequest(c echo.Context) (*dto.CreateSummaryRequest, error) {
	var req dto.CreateSummaryRequest
	if err := c.Bind(&req); err != nil {
		appErr := errors.ErrInvalidPayload()
		appErr.Raw = err
		return nil, appErr
	}
	if err := c.Validate(&req); err != nil {
		return nil, validationError(err)
	}
	return &req, nil
}

func (sc *SummaryController) logClientGone(c echo.Context, fragments int) {
	if sc.logger != nil {
		sc.logger.Info("summary stream closed by client",
			zap.String("request_id", getRequestID(c)),
			zap.Int("fragment_count", fragments),
		)
	}
}

// writeEvent writes one SSE event. Multi-line payloads become one data line each.
func writeEvent(w *echo.Response, event, data string) error {
	var b strings.Builder
	if event != "" {
		b.WriteString("event: ")
		b.WriteString(event)
		b.WriteByte('\n')
	}
	for _, line := range strings.Split(data, "\n") {
		b.WriteString("data: ")
		b.WriteString(strings.TrimSuffix(line, "\r"))
		b.WriteByte('\n')
	}
	b.WriteByte('\n')

	if _, err := io.WriteString(w, b.String()); err != nil {
		return err
	}
	w.Flush()
	return nil
}
