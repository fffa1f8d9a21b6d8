package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"stockflow/internal/cart"
	"stockflow/internal/catalog"
	"stockflow/internal/models"
	"stockflow/internal/service"
	"stockflow/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler contains HTTP handlers
type Handler struct {
	products *service.ProductService
	sales    *service.SaleService
}

// NewHandler creates a new HTTP handler
func NewHandler(products *service.ProductService, sales *service.SaleService) *Handler {
	return &Handler{products: products, sales: sales}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.POST("/products", h.createProduct)
		v1.GET("/products", h.listProducts)
		v1.GET("/products/low-stock", h.lowStock)
		v1.GET("/products/prefill", h.prefill)
		v1.PATCH("/products/:id", h.updateProduct)

		v1.POST("/carts", h.openCart)
		v1.GET("/carts/:id", h.getCart)
		v1.DELETE("/carts/:id", h.abandonCart)
		v1.POST("/carts/:id/items", h.addItem)
		v1.DELETE("/carts/:id/items/:productId", h.removeItem)
		v1.POST("/carts/:id/commit", h.commitCart)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck handles readiness check requests
func (h *Handler) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// createProduct handles adding a product to the catalog
func (h *Handler) createProduct(c *gin.Context) {
	var req service.CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	product, err := h.products.Create(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, product)
}

// listProducts returns the full catalog
func (h *Handler) listProducts(c *gin.Context) {
	products, err := h.products.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"products": products})
}

// lowStock returns the products at or below their reorder threshold
func (h *Handler) lowStock(c *gin.Context) {
	alerts, err := h.products.LowStock(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"alerts": alerts})
}

// prefill fetches best-effort product details for a barcode
func (h *Handler) prefill(c *gin.Context) {
	barcode := c.Query("barcode")
	if barcode == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "barcode query parameter is required"})
		return
	}

	details, err := h.products.Prefill(c.Request.Context(), barcode)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, details)
}

// updateProduct merges partial fields into a product record
func (h *Handler) updateProduct(c *gin.Context) {
	var patch models.ProductPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	if err := h.products.Update(c.Request.Context(), c.Param("id"), patch); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "updated"})
}

// openCart starts a new sale session
func (h *Handler) openCart(c *gin.Context) {
	c.JSON(http.StatusCreated, h.sales.OpenCart())
}

// getCart returns the current cart state
func (h *Handler) getCart(c *gin.Context) {
	state, err := h.sales.Cart(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, state)
}

// abandonCart discards a sale session
func (h *Handler) abandonCart(c *gin.Context) {
	if err := h.sales.Abandon(c.Param("id")); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "abandoned"})
}

// AddItemRequest represents an item to add to a cart
type AddItemRequest struct {
	ProductID string `json:"product_id" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required,min=1"`
	SalePrice int64  `json:"sale_price" binding:"min=0"`
}

// addItem adds or merges a line item
func (h *Handler) addItem(c *gin.Context) {
	var req AddItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	state, err := h.sales.AddItem(c.Request.Context(), c.Param("id"), req.ProductID, req.Quantity, req.SalePrice)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, state)
}

// removeItem drops a line item
func (h *Handler) removeItem(c *gin.Context) {
	state, err := h.sales.RemoveItem(c.Param("id"), c.Param("productId"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, state)
}

// commitCart finalizes the sale. Per-line outcomes are returned even when
// some decrements failed, so the register can reconcile.
func (h *Handler) commitCart(c *gin.Context) {
	receipt, err := h.sales.Commit(c.Request.Context(), c.Param("id"), c.GetHeader("Idempotency-Key"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, receipt)
}

// respondError maps domain errors onto HTTP statuses.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, cart.ErrInsufficientStock),
		errors.Is(err, cart.ErrEmptyCart),
		errors.Is(err, catalog.ErrDuplicateID),
		errors.Is(err, catalog.ErrInsufficientStock):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, cart.ErrInvalidQuantity):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, catalog.ErrNotFound), errors.Is(err, service.ErrCartNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrLookupDisabled):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
