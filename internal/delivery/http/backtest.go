package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/Enzooo97/ai-trading-bot/internal/backtest"
	"github.com/Enzooo97/ai-trading-bot/internal/dto"
	"github.com/Enzooo97/ai-trading-bot/internal/model"
	"github.com/Enzooo97/ai-trading-bot/internal/service"
)

func (h *HttpAPIHandler) SetupBacktest(base *echo.Group) {
	backtestGroup := base.Group("/backtest")
	backtestGroup.POST("", h.runBacktest)
	backtestGroup.POST("/compare", h.compareStrategies)
	backtestGroup.GET("/history", h.backtestHistory)
	backtestGroup.GET("/history/:id", h.backtestHistoryByID)

	base.GET("/strategies", h.listStrategies)
}

func (h *HttpAPIHandler) runBacktest(c echo.Context) error {
	ctx := c.Request().Context()

	req := new(dto.BacktestRequest)
	if err := c.Bind(req); err != nil {
		return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse("invalid request body"))
	}

	if err := h.validator.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse(err.Error()))
	}

	result, err := h.service.BacktestService.RunBacktest(ctx, *req)
	if err != nil {
		if errors.Is(err, backtest.ErrNoData) {
			return c.JSON(http.StatusNotFound, dto.NewBaseResponse(http.StatusNotFound, err.Error(), nil))
		}
		return c.JSON(http.StatusInternalServerError, dto.NewInternalErrorResponse("failed to run backtest"))
	}

	return c.JSON(http.StatusOK, dto.NewSuccessResponse("backtest completed", result))
}

func (h *HttpAPIHandler) compareStrategies(c echo.Context) error {
	ctx := c.Request().Context()

	req := new(dto.CompareRequest)
	if err := c.Bind(req); err != nil {
		return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse("invalid request body"))
	}

	if err := h.validator.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse(err.Error()))
	}

	result, err := h.service.BacktestService.Compare(ctx, *req)
	if err != nil {
		if errors.Is(err, backtest.ErrNoData) {
			return c.JSON(http.StatusNotFound, dto.NewBaseResponse(http.StatusNotFound, err.Error(), nil))
		}
		return c.JSON(http.StatusInternalServerError, dto.NewInternalErrorResponse("failed to compare strategies"))
	}

	return c.JSON(http.StatusOK, dto.NewSuccessResponse("comparison completed", result))
}

func (h *HttpAPIHandler) listStrategies(c echo.Context) error {
	names := h.service.BacktestService.StrategyNames()
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("available strategies", names))
}

func (h *HttpAPIHandler) backtestHistory(c echo.Context) error {
	ctx := c.Request().Context()

	param := model.GetBacktestRunParam{
		StrategyName: c.QueryParam("strategy"),
		Symbol:       c.QueryParam("symbol"),
	}
	if raw := c.QueryParam("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse("limit must be a positive integer"))
		}
		param.Limit = limit
	}

	runs, err := h.service.BacktestService.History(ctx, param)
	if err != nil {
		if errors.Is(err, service.ErrHistoryDisabled) {
			return c.JSON(http.StatusServiceUnavailable, dto.NewBaseResponse(http.StatusServiceUnavailable, err.Error(), nil))
		}
		return c.JSON(http.StatusInternalServerError, dto.NewInternalErrorResponse("failed to load backtest history"))
	}

	return c.JSON(http.StatusOK, dto.NewSuccessResponse("backtest history", runs))
}

func (h *HttpAPIHandler) backtestHistoryByID(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse("id must be a positive integer"))
	}

	run, err := h.service.BacktestService.HistoryByID(ctx, uint(id))
	if err != nil {
		if errors.Is(err, service.ErrHistoryDisabled) {
			return c.JSON(http.StatusServiceUnavailable, dto.NewBaseResponse(http.StatusServiceUnavailable, err.Error(), nil))
		}
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.JSON(http.StatusNotFound, dto.NewBaseResponse(http.StatusNotFound, "backtest run not found", nil))
		}
		return c.JSON(http.StatusInternalServerError, dto.NewInternalErrorResponse("failed to load backtest run"))
	}

	return c.JSON(http.StatusOK, dto.NewSuccessResponse("backtest run", run))
}
