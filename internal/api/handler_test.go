package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"stockflow/internal/catalog"
	"stockflow/internal/models"
	"stockflow/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T, seed ...models.Product) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cat := catalog.NewMemoryCatalog(seed...)
	view := service.NewCatalogView(cat)
	t.Cleanup(view.Close)

	products := service.NewProductService(cat, view, nil, nil)
	sales := service.NewSaleService(cat, view, nil, nil)

	router := gin.New()
	NewHandler(products, sales).SetupRoutes(router)
	return router
}

func doJSON(t *testing.T, router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func seedProduct(id string, stock int, threshold int) models.Product {
	return models.Product{ID: id, Barcode: id, Name: "product " + id, MRP: 100, Stock: stock, LowInventoryFactor: threshold}
}

func TestCreateAndListProducts(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/v1/products",
		`{"barcode":"8901030974328","name":"Parle-G Gold","mrp":100,"stock":50,"low_inventory_factor":10}`)
	require.Equal(t, http.StatusCreated, w.Code)

	// duplicate barcode is a conflict
	w = doJSON(t, router, http.MethodPost, "/api/v1/products",
		`{"barcode":"8901030974328","name":"Again","mrp":100}`)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doJSON(t, router, http.MethodGet, "/api/v1/products", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Products []models.Product `json:"products"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Products, 1)
	assert.Equal(t, "Parle-G Gold", resp.Products[0].Name)
}

func TestCreateProductValidation(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/v1/products", `{"name":"no barcode"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLowStockEndpoint(t *testing.T) {
	router := newTestRouter(t,
		seedProduct("B", 0, 5),
		seedProduct("C", 5, 5),
		seedProduct("D", 6, 5),
	)

	w := doJSON(t, router, http.MethodGet, "/api/v1/products/low-stock", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Alerts []struct {
			Product models.Product `json:"product"`
			Status  string         `json:"status"`
		} `json:"alerts"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Alerts, 2)
	assert.Equal(t, "B", resp.Alerts[0].Product.ID)
	assert.Equal(t, "OUT_OF_STOCK", resp.Alerts[0].Status)
	assert.Equal(t, "C", resp.Alerts[1].Product.ID)
	assert.Equal(t, "LOW_STOCK", resp.Alerts[1].Status)
}

func TestSaleFlow(t *testing.T) {
	router := newTestRouter(t, seedProduct("A", 10, 5))

	w := doJSON(t, router, http.MethodPost, "/api/v1/carts", "")
	require.Equal(t, http.StatusCreated, w.Code)
	var opened service.CartState
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &opened))

	w = doJSON(t, router, http.MethodPost, "/api/v1/carts/"+opened.ID+"/items",
		`{"product_id":"A","quantity":3}`)
	require.Equal(t, http.StatusOK, w.Code)

	// exceeding live stock is rejected
	w = doJSON(t, router, http.MethodPost, "/api/v1/carts/"+opened.ID+"/items",
		`{"product_id":"A","quantity":8}`)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doJSON(t, router, http.MethodPost, "/api/v1/carts/"+opened.ID+"/commit", "")
	require.Equal(t, http.StatusOK, w.Code)

	var receipt struct {
		Total    int64 `json:"total"`
		Outcomes []struct {
			ProductID string `json:"product_id"`
			Applied   bool   `json:"applied"`
		} `json:"outcomes"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &receipt))
	assert.Equal(t, int64(300), receipt.Total)
	require.Len(t, receipt.Outcomes, 1)
	assert.True(t, receipt.Outcomes[0].Applied)

	// committed cart is empty again
	w = doJSON(t, router, http.MethodPost, "/api/v1/carts/"+opened.ID+"/commit", "")
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestCartNotFound(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(t, router, http.MethodGet, "/api/v1/carts/nope", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, router, http.MethodPost, "/api/v1/carts/nope/items", `{"product_id":"A","quantity":1}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRemoveItemEndpoint(t *testing.T) {
	router := newTestRouter(t, seedProduct("A", 10, 5))

	w := doJSON(t, router, http.MethodPost, "/api/v1/carts", "")
	var opened service.CartState
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &opened))

	w = doJSON(t, router, http.MethodPost, "/api/v1/carts/"+opened.ID+"/items",
		`{"product_id":"A","quantity":2}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, http.MethodDelete, "/api/v1/carts/"+opened.ID+"/items/A", "")
	require.Equal(t, http.StatusOK, w.Code)

	var state service.CartState
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &state))
	assert.Empty(t, state.Lines)
	assert.Equal(t, int64(0), state.Total)
}

func TestHealthEndpoints(t *testing.T) {
	router := newTestRouter(t)

	assert.Equal(t, http.StatusOK, doJSON(t, router, http.MethodGet, "/health", "").Code)
	assert.Equal(t, http.StatusOK, doJSON(t, router, http.MethodGet, "/ready", "").Code)
}
