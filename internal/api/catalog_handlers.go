package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ecoplant/plant-rewards/internal/models"
	"github.com/ecoplant/plant-rewards/internal/service/catalog"
)

// ListProducts returns the catalog.
// GET /api/products?category=eco&in_stock=true&page=1&page_size=50.
func (h *Handler) ListProducts(c *gin.Context) {
	page, err := parseIntQuery(c, "page")
	if err != nil {
		h.fail(c, "list products", err)
		return
	}
	pageSize, err := parseIntQuery(c, "page_size")
	if err != nil {
		h.fail(c, "list products", err)
		return
	}

	result, err := h.catalog.ListProducts(c.Request.Context(), models.ProductFilter{
		Category:    c.Query("category"),
		InStockOnly: c.Query("in_stock") == "true",
		Page:        page,
		PageSize:    pageSize,
	})
	if err != nil {
		h.fail(c, "list products", err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetProduct returns one product.
// GET /api/products/:id.
func (h *Handler) GetProduct(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		h.fail(c, "get product", err)
		return
	}

	product, err := h.catalog.GetProduct(c.Request.Context(), id)
	if err != nil {
		h.fail(c, "get product", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"product": product})
}

// CreateProduct adds a product to the catalog.
// POST /api/products.
func (h *Handler) CreateProduct(c *gin.Context) {
	var req catalog.ProductInput
	if err := bindJSON(c, &req); err != nil {
		h.fail(c, "create product", err)
		return
	}

	product, err := h.catalog.CreateProduct(c.Request.Context(), req)
	if err != nil {
		h.fail(c, "create product", err)
		return
	}

	h.log.Info().Uint("product_id", product.ID).Str("title", product.Title).Msg("Product created")
	c.JSON(http.StatusCreated, gin.H{"product": product})
}

// UpdateProduct changes the supplied fields of a product.
// PUT /api/products/:id.
func (h *Handler) UpdateProduct(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		h.fail(c, "update product", err)
		return
	}

	var req catalog.ProductInput
	if err := bindJSON(c, &req); err != nil {
		h.fail(c, "update product", err)
		return
	}

	product, err := h.catalog.UpdateProduct(c.Request.Context(), id, req)
	if err != nil {
		h.fail(c, "update product", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"product": product})
}

// DeleteProduct removes a product.
// DELETE /api/products/:id.
func (h *Handler) DeleteProduct(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		h.fail(c, "delete product", err)
		return
	}

	if err := h.catalog.DeleteProduct(c.Request.Context(), id); err != nil {
		h.fail(c, "delete product", err)
		return
	}

	h.log.Info().Uint("product_id", id).Msg("Product deleted")
	c.JSON(http.StatusOK, gin.H{"message": "product deleted"})
}

// ListReviews returns the reviews of a product.
// GET /api/products/:id/reviews.
func (h *Handler) ListReviews(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		h.fail(c, "list reviews", err)
		return
	}

	reviews, err := h.catalog.ListReviews(c.Request.Context(), id)
	if err != nil {
		h.fail(c, "list reviews", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"product_id": id,
		"reviews":    reviews,
		"total":      len(reviews),
	})
}

// Redeem exchanges points for a promo code.
// POST /api/redeem/:id.
func (h *Handler) Redeem(c *gin.Context) {
	productID, err := parseID(c, "id")
	if err != nil {
		h.fail(c, "redeem", err)
		return
	}

	identity, _ := currentIdentity(c)
	promo, err := h.redemption.Redeem(c.Request.Context(), identity.UserID, productID)
	if err != nil {
		h.fail(c, "redeem", err)
		return
	}

	h.log.Info().
		Uint("user_id", identity.UserID).
		Uint("product_id", productID).
		Uint("promo_id", promo.ID).
		Msg("Product redeemed")

	c.JSON(http.StatusCreated, gin.H{"promo": promo})
}

// ListPromos returns the caller's promo codes.
// GET /api/promos.
func (h *Handler) ListPromos(c *gin.Context) {
	identity, _ := currentIdentity(c)
	promos, err := h.redemption.ListPromos(c.Request.Context(), identity.UserID)
	if err != nil {
		h.fail(c, "list promos", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"promos": promos,
		"total":  len(promos),
	})
}

// PromoQR renders one of the caller's promo codes as a PNG QR image.
// GET /api/promos/:id/qr.
func (h *Handler) PromoQR(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		h.fail(c, "promo qr", err)
		return
	}

	identity, _ := currentIdentity(c)
	png, err := h.redemption.PromoQR(c.Request.Context(), identity.UserID, id)
	if err != nil {
		h.fail(c, "promo qr", err)
		return
	}
	c.Header("Cache-Control", "private, max-age=3600")
	c.Data(http.StatusOK, "image/png", png)
}

// ReviewPromo reviews the product behind a promo code.
// POST /api/promos/:id/review.
func (h *Handler) ReviewPromo(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		h.fail(c, "review promo", err)
		return
	}

	var req catalog.ReviewInput
	if err := bindJSON(c, &req); err != nil {
		h.fail(c, "review promo", err)
		return
	}

	identity, _ := currentIdentity(c)
	review, err := h.catalog.CreateReview(c.Request.Context(), identity.UserID, id, req)
	if err != nil {
		h.fail(c, "review promo", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"review": review})
}
