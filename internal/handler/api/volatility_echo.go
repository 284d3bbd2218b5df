package api

import (
    "context"
    "errors"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"

    models "CropVol/internal/domain/models"
    apimetrics "CropVol/internal/service/metrics"
    "CropVol/internal/service/ratelimit"
    "CropVol/internal/usecase"
    xhttp "CropVol/pkg/http"
    xlogger "CropVol/pkg/logger"
)

// VolatilityEchoHandler exposes the volatility pipeline over HTTP.
type VolatilityEchoHandler struct {
    logger   *xlogger.Logger
    pipeline *usecase.VolatilityPipeline
    limiter  *ratelimit.Limiter
    refits   *usecase.Refits
}

// NewVolatilityEchoHandler builds the handler. limiter and refits are optional;
// without refits the job routes are not registered.
func NewVolatilityEchoHandler(logger *xlogger.Logger, pipeline *usecase.VolatilityPipeline, limiter *ratelimit.Limiter, refits *usecase.Refits) *VolatilityEchoHandler {
    apimetrics.Register()
    return &VolatilityEchoHandler{logger: logger, pipeline: pipeline, limiter: limiter, refits: refits}
}

func (h *VolatilityEchoHandler) RegisterRoutes(e *echo.Echo) {
    e.GET("/healthz", h.Health)

    g := e.Group("/api")
    g.GET("/datasets", h.Datasets)

    // Endpoints that may trigger model fits are rate limited per client.
    var limit []echo.MiddlewareFunc
    if h.limiter != nil {
        limit = append(limit, h.limiter.Middleware())
    }
    g.GET("/analysis", h.Analysis, limit...)
    g.GET("/volatility", h.Volatility, limit...)
    g.GET("/forecast", h.Forecast, limit...)
    g.GET("/charts", h.Charts, limit...)
    g.GET("/realized", h.Realized, limit...)
    g.GET("/report", h.Report, limit...)
    g.GET("/history", h.History)

    if h.refits != nil {
        g.POST("/jobs/refit", h.SubmitRefit, limit...)
        g.GET("/jobs/:id", h.Job)
    }
}

func (h *VolatilityEchoHandler) Health(c echo.Context) error {
    return xhttp.SuccessResponse(c, map[string]string{"status": "ok"})
}

type datasetInfo struct {
    Name      string   `json:"name"`
    Commodity string   `json:"commodity"`
    Level     string   `json:"level"`
    Regions   []string `json:"regions"`
    Meteo     []string `json:"meteo,omitempty"`
    Forecasts []string `json:"forecasts,omitempty"`
}

func (h *VolatilityEchoHandler) Datasets(c echo.Context) error {
    ds := h.pipeline.Datasets()
    out := make([]datasetInfo, 0, len(ds))
    for _, d := range ds {
        info := datasetInfo{Name: d.Name, Commodity: d.Commodity, Level: d.Level, Regions: d.Regions}
        for _, m := range d.Meteo {
            info.Meteo = append(info.Meteo, m.Name)
        }
        for _, f := range d.Forecasts {
            info.Forecasts = append(info.Forecasts, f.Name)
        }
        out = append(out, info)
    }
    return xhttp.SuccessResponse(c, out)
}

func (h *VolatilityEchoHandler) Analysis(c echo.Context) error {
    defer apimetrics.ObserveEndpoint("analysis", time.Now())
    req := &models.RegionRequest{}
    if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
        return xhttp.BadRequestResponse(c, verr)
    }

    res, err := h.pipeline.Analyze(c.Request().Context(), req.Dataset, req.Region, req.Refresh)
    if err != nil {
        return h.fail(c, "analysis", err)
    }
    return xhttp.SuccessResponse(c, res)
}

func (h *VolatilityEchoHandler) Volatility(c echo.Context) error {
    defer apimetrics.ObserveEndpoint("volatility", time.Now())
    req := &models.RegionRequest{}
    if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
        return xhttp.BadRequestResponse(c, verr)
    }

    res, err := h.pipeline.Volatility(c.Request().Context(), req.Dataset, req.Region, req.Refresh)
    if err != nil {
        return h.fail(c, "volatility", err)
    }
    return xhttp.SuccessResponse(c, res)
}

func (h *VolatilityEchoHandler) Forecast(c echo.Context) error {
    defer apimetrics.ObserveEndpoint("forecast", time.Now())
    req := &models.ForecastRequest{}
    if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
        return xhttp.BadRequestResponse(c, verr)
    }

    res, err := h.pipeline.Forecast(c.Request().Context(), req.Dataset, req.Region, req.Source)
    if err != nil {
        return h.fail(c, "forecast", err)
    }
    return xhttp.SuccessResponse(c, res)
}

func (h *VolatilityEchoHandler) Charts(c echo.Context) error {
    defer apimetrics.ObserveEndpoint("charts", time.Now())
    req := &models.RegionRequest{}
    if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
        return xhttp.BadRequestResponse(c, verr)
    }

    res, err := h.pipeline.Charts(c.Request().Context(), req.Dataset, req.Region)
    if err != nil {
        return h.fail(c, "charts", err)
    }
    return xhttp.SuccessResponse(c, res)
}

func (h *VolatilityEchoHandler) Realized(c echo.Context) error {
    defer apimetrics.ObserveEndpoint("realized", time.Now())
    req := &models.SeriesRequest{}
    if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
        return xhttp.BadRequestResponse(c, verr)
    }

    res, err := h.pipeline.Realized(c.Request().Context(), req.Dataset, req.Region, req.Window)
    if err != nil {
        return h.fail(c, "realized", err)
    }
    return xhttp.SuccessResponse(c, res)
}

func (h *VolatilityEchoHandler) Report(c echo.Context) error {
    defer apimetrics.ObserveEndpoint("report", time.Now())
    req := &models.DatasetRequest{}
    if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
        return xhttp.BadRequestResponse(c, verr)
    }

    res, err := h.pipeline.AnalyzeAll(c.Request().Context(), req.Dataset, req.Refresh)
    if err != nil {
        return h.fail(c, "report", err)
    }
    return xhttp.SuccessResponse(c, res)
}

func (h *VolatilityEchoHandler) History(c echo.Context) error {
    defer apimetrics.ObserveEndpoint("history", time.Now())
    req := &models.HistoryRequest{}
    if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
        return xhttp.BadRequestResponse(c, verr)
    }

    res, err := h.pipeline.History(c.Request().Context(), req.Dataset, req.Region, req.Limit)
    if err != nil {
        return h.fail(c, "history", err)
    }
    return xhttp.SuccessResponse(c, res)
}

// SubmitRefit queues a background refit of every region of a dataset.
func (h *VolatilityEchoHandler) SubmitRefit(c echo.Context) error {
    defer apimetrics.ObserveEndpoint("jobs_refit", time.Now())
    req := &models.RefitRequest{}
    if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
        return xhttp.BadRequestResponse(c, verr)
    }

    st, err := h.refits.Submit(c.Request().Context(), req.Dataset)
    if err != nil {
        return h.fail(c, "jobs_refit", err)
    }
    h.logger.Info("refit queued", xlogger.String("job_id", st.ID), xlogger.String("dataset", st.Dataset))
    return xhttp.DataResponse(c, http.StatusAccepted, st)
}

func (h *VolatilityEchoHandler) Job(c echo.Context) error {
    defer apimetrics.ObserveEndpoint("jobs_status", time.Now())
    req := &models.JobRequest{}
    if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
        return xhttp.BadRequestResponse(c, verr)
    }

    st, err := h.refits.Status(c.Request().Context(), req.ID)
    if err != nil {
        return h.fail(c, "jobs_status", err)
    }
    return xhttp.SuccessResponse(c, st)
}

func (h *VolatilityEchoHandler) fail(c echo.Context, endpoint string, err error) error {
    kind := usecase.ErrorKind(err)
    apimetrics.ObserveError(endpoint, kind)
    appErr := toAppError(err)
    if appErr.Status >= http.StatusInternalServerError {
        h.logger.Error(endpoint+" usecase error", xlogger.String("kind", kind), xlogger.Error(err))
    } else {
        h.logger.Debug(endpoint+" rejected", xlogger.String("kind", kind), xlogger.Error(err))
    }
    return xhttp.AppErrorResponse(c, appErr)
}

// toAppError maps typed pipeline errors onto HTTP errors: unavailable data is
// 404, input the model cannot run on is 422, anything else 500.
func toAppError(err error) *xhttp.AppError {
    var (
        da *models.DataAvailabilityError
        de *models.DomainError
        ie *models.InsufficientDataError
        he *models.InsufficientHistoryError
    )
    switch {
    case errors.As(err, &da):
        return xhttp.DataUnavailableError(da.Error()).WithError(err)
    case errors.As(err, &de):
        return xhttp.UnprocessableError("ERR_DOMAIN", de.Error()).WithParam("region", de.Region).WithParam("index", de.Index)
    case errors.As(err, &ie):
        return xhttp.UnprocessableError("ERR_INSUFFICIENT_DATA", ie.Error()).WithParam("have", ie.Have).WithParam("need", ie.Need)
    case errors.As(err, &he):
        return xhttp.UnprocessableError("ERR_INSUFFICIENT_HISTORY", he.Error()).WithParam("forecast", he.K).WithParam("history", he.M)
    case errors.Is(err, context.DeadlineExceeded):
        return xhttp.InternalError("analysis timed out").WithError(err)
    default:
        return xhttp.InternalError(err.Error()).WithError(err)
    }
}
