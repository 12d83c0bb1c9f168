package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"omniauction/internal/domain"
	"omniauction/internal/engine"
	"omniauction/pkg/logger"

	"github.com/labstack/echo/v4"
)

type AuctionHandler struct {
	engine *engine.Engine
	log    logger.Logger
}

type PlaceBidRequest struct {
	ProductID string  `json:"product_id"`
	User      string  `json:"user"`
	Amount    float64 `json:"amount"`
}

type PlaceBidResponse struct {
	Status            string  `json:"status"`
	Message           string  `json:"message"`
	CurrentHighestBid float64 `json:"current_highest_bid"`
}

type AutoBidRequest struct {
	User   string  `json:"user"`
	MaxBid float64 `json:"max_bid"`
}

func NewAuctionHandler(eng *engine.Engine, log logger.Logger) *AuctionHandler {
	return &AuctionHandler{
		engine: eng,
		log:    log,
	}
}

func (h *AuctionHandler) Register(e *echo.Echo) {
	api := e.Group("/api")
	api.GET("/products", h.ListProducts)
	api.GET("/products/:id", h.GetProduct)
	api.POST("/bids", h.PlaceBid)
	api.GET("/products/:id/bids/count", h.GetBidCount)
	api.GET("/products/:id/bids", h.GetBidHistory)
	api.POST("/products/:id/auto-bid", h.SetAutoBid)
}

func (h *AuctionHandler) ListProducts(c echo.Context) error {
	return c.JSON(http.StatusOK, h.engine.ListProducts())
}

func (h *AuctionHandler) GetProduct(c echo.Context) error {
	detail, err := h.engine.GetProduct(c.Param("id"))
	if err != nil {
		return h.errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, detail)
}

func (h *AuctionHandler) PlaceBid(c echo.Context) error {
	var req PlaceBidRequest
	if err := c.Bind(&req); err != nil {
		h.log.Error("Failed to bind bid request", "error", err)
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}

	if req.ProductID == "" || req.User == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "product_id and user are required"})
	}

	result, err := h.engine.PlaceBid(c.Request().Context(), req.ProductID, req.User, req.Amount)
	if err != nil {
		return h.errorResponse(c, err)
	}

	h.log.Info("Bid placed", "product_id", req.ProductID, "user", req.User, "amount", req.Amount)
	return c.JSON(http.StatusCreated, PlaceBidResponse{
		Status:            "success",
		Message:           fmt.Sprintf("Bid of $%.2f placed by %s", result.Bid.Amount, result.Bid.User),
		CurrentHighestBid: result.HighestBid,
	})
}

func (h *AuctionHandler) GetBidCount(c echo.Context) error {
	count, err := h.engine.GetBidCount(c.Param("id"))
	if err != nil {
		return h.errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, map[string]int{"count": count})
}

func (h *AuctionHandler) GetBidHistory(c echo.Context) error {
	history, err := h.engine.GetBidHistory(c.Param("id"))
	if err != nil {
		return h.errorResponse(c, err)
	}

	if history == nil {
		history = []domain.Bid{}
	}
	return c.JSON(http.StatusOK, history)
}

func (h *AuctionHandler) SetAutoBid(c echo.Context) error {
	productID := c.Param("id")

	var req AutoBidRequest
	if err := c.Bind(&req); err != nil {
		h.log.Error("Failed to bind auto-bid request", "error", err)
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}

	if req.User == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "user is required"})
	}

	if err := h.engine.SetAutoBid(c.Request().Context(), productID, req.User, req.MaxBid); err != nil {
		return h.errorResponse(c, err)
	}

	return c.JSON(http.StatusOK, map[string]string{
		"status":  "success",
		"message": fmt.Sprintf("Auto-bid set for %s up to $%.2f", req.User, req.MaxBid),
	})
}

// errorResponse maps engine errors to HTTP statuses. The engine returns
// structured sentinels; everything unexpected is a 500.
func (h *AuctionHandler) errorResponse(c echo.Context, err error) error {
	switch {
	case errors.Is(err, domain.ErrProductNotFound):
		return c.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, domain.ErrBidTooLow), errors.Is(err, domain.ErrInvalidAmount):
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, domain.ErrAuctionClosed):
		return c.JSON(http.StatusConflict, map[string]string{"error": err.Error()})
	default:
		h.log.Error("Unexpected engine error", "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}
