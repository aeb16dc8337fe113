package httpapi

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"telegram-storefront/internal/model"
	"telegram-storefront/internal/shop"
)

type purchaseRequest struct {
	ProductID string `json:"productId" binding:"required"`
}

type depositRequest struct {
	Amount *decimal.Decimal `json:"amount"`
}

type productRequest struct {
	Title            string           `json:"title"`
	Description      string           `json:"description"`
	Price            *decimal.Decimal `json:"price"`
	Category         model.Category   `json:"category"`
	Stock            int              `json:"stock"`
	ImageURL         string           `json:"imageUrl"`
	Region           string           `json:"region"`
	AutoDeliveryData string           `json:"autoDeliveryData"`
}

// publicProduct strips delivery data, which only buyers and admins may see.
func publicProduct(p *model.Product) *model.Product {
	cp := *p
	cp.AutoDeliveryData = ""
	return &cp
}

func publicProducts(products []*model.Product) []*model.Product {
	out := make([]*model.Product, len(products))
	for i, p := range products {
		out[i] = publicProduct(p)
	}
	return out
}

// limitParam reads ?limit=. Missing means unbounded.
func limitParam(c *gin.Context) (int, bool) {
	raw := c.Query("limit")
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

func (s *Server) handleHealth(c *gin.Context) {
	if s.health != nil {
		if err := s.health(c.Request.Context()); err != nil {
			abortWithCode(c, http.StatusServiceUnavailable, CodeStoreUnavailable)
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleListProducts(c *gin.Context) {
	category := model.Category(c.DefaultQuery("category", string(shop.CategoryAll)))
	products, err := s.catalog.Query(c.Request.Context(), category, c.Query("q"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, publicProducts(products))
}

func (s *Server) handleGetProduct(c *gin.Context) {
	product, err := s.catalog.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, publicProduct(product))
}

func (s *Server) handleMe(c *gin.Context) {
	profile, err := s.accounts.Profile(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

func (s *Server) handlePurchase(c *gin.Context) {
	var req purchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithCode(c, http.StatusBadRequest, CodeValidation)
		return
	}

	order, err := s.purchases.Purchase(c.Request.Context(), currentUser(c).ID, req.ProductID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

func (s *Server) handleOrders(c *gin.Context) {
	limit, ok := limitParam(c)
	if !ok {
		abortWithCode(c, http.StatusBadRequest, CodeValidation)
		return
	}

	orders, err := s.purchases.Orders(c.Request.Context(), currentUser(c).ID, limit)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

func (s *Server) handleDeposit(c *gin.Context) {
	var req depositRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Amount == nil {
		abortWithCode(c, http.StatusBadRequest, CodeInvalidAmount)
		return
	}

	entry, err := s.wallet.Deposit(c.Request.Context(), currentUser(c).ID, *req.Amount)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, entry)
}

func (s *Server) handleTransactions(c *gin.Context) {
	limit, ok := limitParam(c)
	if !ok {
		abortWithCode(c, http.StatusBadRequest, CodeValidation)
		return
	}

	txs, err := s.wallet.History(c.Request.Context(), currentUser(c).ID, limit)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, txs)
}

func (s *Server) handleAdminListProducts(c *gin.Context) {
	products, err := s.catalog.Query(c.Request.Context(), shop.CategoryAll, "")
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, products)
}

func (s *Server) handleAdminCreateProduct(c *gin.Context) {
	var req productRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Price == nil {
		abortWithCode(c, http.StatusBadRequest, CodeValidation)
		return
	}

	product, err := s.catalog.CreateProduct(c.Request.Context(), currentUser(c), &model.Product{
		Title:            req.Title,
		Description:      req.Description,
		Price:            *req.Price,
		Category:         req.Category,
		Stock:            req.Stock,
		ImageURL:         req.ImageURL,
		Region:           req.Region,
		AutoDeliveryData: req.AutoDeliveryData,
	})
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, product)
}

func (s *Server) handleAdminUpdateProduct(c *gin.Context) {
	var patch model.ProductPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		abortWithCode(c, http.StatusBadRequest, CodeValidation)
		return
	}

	product, err := s.catalog.UpdateProduct(c.Request.Context(), currentUser(c), c.Param("id"), patch)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func (s *Server) handleAdminDeleteProduct(c *gin.Context) {
	if err := s.catalog.DeleteProduct(c.Request.Context(), currentUser(c), c.Param("id")); err != nil {
		abortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
