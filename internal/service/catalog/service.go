// Package catalog manages redeemable products and their reviews.
package catalog

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"github.com/ecoplant/plant-rewards/internal/apperror"
	"github.com/ecoplant/plant-rewards/internal/models"
	"github.com/ecoplant/plant-rewards/internal/repository"
	"github.com/ecoplant/plant-rewards/pkg/logger"
)

const (
	defaultPageSize  = 50
	maxPageSize      = 200
	maxCommentLength = 2000
)

// ProductNotifier announces catalog additions.
type ProductNotifier interface {
	NewProduct(ctx context.Context, p *models.Product) int
}

// Service handles products and reviews.
type Service struct {
	db       *repository.DB
	notifier ProductNotifier
	policy   *bluemonday.Policy
	log      *logger.Logger
	now      func() time.Time
}

// NewService creates a new catalog service. notifier may be nil.
func NewService(db *repository.DB, notifier ProductNotifier, log *logger.Logger) *Service {
	return &Service{
		db:       db,
		notifier: notifier,
		policy:   bluemonday.StrictPolicy(),
		log:      log,
		now:      time.Now,
	}
}

// ProductInput carries product fields. Nil fields are left unchanged on update.
type ProductInput struct {
	Title        *string `json:"title"`
	Price        *int    `json:"price"`
	Organization *string `json:"organization"`
	ValidDays    *int    `json:"valid_days"`
	Quantity     *int    `json:"quantity"`
	Category     *string `json:"category"`
	Icon         *string `json:"icon"`
}

// CreateProduct adds a product and tells regular users about it.
func (s *Service) CreateProduct(ctx context.Context, in ProductInput) (*models.Product, error) {
	if in.Title == nil || s.clean(*in.Title) == "" || in.Price == nil {
		return nil, apperror.Validation("title and price are required")
	}

	product := &models.Product{
		ValidDays: models.DefaultValidDays,
		Category:  models.DefaultProductCategory,
	}
	if err := s.apply(product, in); err != nil {
		return nil, err
	}

	if err := repository.NewProductRepository(s.db).Create(product); err != nil {
		return nil, apperror.Storage("create product", err)
	}
	s.log.Info().Uint("product_id", product.ID).Str("title", product.Title).Msg("Product created")

	if s.notifier != nil {
		s.notifier.NewProduct(ctx, product)
	}
	return product, nil
}

// UpdateProduct applies a partial update.
func (s *Service) UpdateProduct(ctx context.Context, id uint, in ProductInput) (*models.Product, error) {
	products := repository.NewProductRepository(s.db)
	product, err := products.GetByID(id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, apperror.NotFound("product", id)
		}
		return nil, apperror.Storage("load product", err)
	}
	if in.Title != nil && s.clean(*in.Title) == "" {
		return nil, apperror.Validation("title must not be empty")
	}
	if err := s.apply(product, in); err != nil {
		return nil, err
	}
	if err := products.Update(product); err != nil {
		return nil, apperror.Storage("update product", err)
	}
	return product, nil
}

func (s *Service) apply(p *models.Product, in ProductInput) error {
	if in.Title != nil {
		p.Title = s.clean(*in.Title)
	}
	if in.Price != nil {
		if *in.Price < 0 {
			return apperror.Validation("price must not be negative")
		}
		p.Price = *in.Price
	}
	if in.Organization != nil {
		p.Organization = s.clean(*in.Organization)
	}
	if in.ValidDays != nil {
		if *in.ValidDays <= 0 {
			return apperror.Validation("valid_days must be positive")
		}
		p.ValidDays = *in.ValidDays
	}
	if in.Quantity != nil {
		if *in.Quantity < 0 {
			return apperror.Validation("quantity must not be negative")
		}
		p.Quantity = *in.Quantity
	}
	if in.Category != nil {
		p.Category = strings.ToLower(s.clean(*in.Category))
		if p.Category == "" {
			p.Category = models.DefaultProductCategory
		}
	}
	if in.Icon != nil {
		p.Icon = strings.TrimSpace(*in.Icon)
	}
	return nil
}

// DeleteProduct removes a product. Promo codes already issued keep their copy of its data.
func (s *Service) DeleteProduct(ctx context.Context, id uint) error {
	deleted, err := repository.NewProductRepository(s.db).Delete(id)
	if err != nil {
		return apperror.Storage("delete product", err)
	}
	if !deleted {
		return apperror.NotFound("product", id)
	}
	s.log.Info().Uint("product_id", id).Msg("Product deleted")
	return nil
}

// GetProduct returns a product with its rating summary.
func (s *Service) GetProduct(ctx context.Context, id uint) (*models.Product, error) {
	product, err := repository.NewProductRepository(s.db).GetByID(id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, apperror.NotFound("product", id)
		}
		return nil, apperror.Storage("load product", err)
	}
	products := []models.Product{*product}
	if err := s.attachRatings(products); err != nil {
		return nil, err
	}
	return &products[0], nil
}

// ProductPage is one page of products.
type ProductPage struct {
	Products []models.Product `json:"products"`
	Total    int64            `json:"total"`
	Page     int              `json:"page"`
	PageSize int              `json:"page_size"`
}

// ListProducts returns products matching filter with rating summaries.
func (s *Service) ListProducts(ctx context.Context, filter models.ProductFilter) (*ProductPage, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = defaultPageSize
	}
	if filter.PageSize > maxPageSize {
		filter.PageSize = maxPageSize
	}
	filter.Category = strings.ToLower(strings.TrimSpace(filter.Category))
	if filter.Category == "all" {
		filter.Category = ""
	}

	products, total, err := repository.NewProductRepository(s.db).List(filter)
	if err != nil {
		return nil, apperror.Storage("list products", err)
	}
	if products == nil {
		products = []models.Product{}
	}
	if err := s.attachRatings(products); err != nil {
		return nil, err
	}
	return &ProductPage{Products: products, Total: total, Page: filter.Page, PageSize: filter.PageSize}, nil
}

func (s *Service) attachRatings(products []models.Product) error {
	ids := make([]uint, len(products))
	for i := range products {
		ids[i] = products[i].ID
	}
	summaries, err := repository.NewReviewRepository(s.db).Summaries(ids)
	if err != nil {
		return apperror.Storage("load ratings", err)
	}
	for i := range products {
		if sum, ok := summaries[products[i].ID]; ok {
			products[i].AverageRating = math.Round(sum.Average*10) / 10
			products[i].ReviewCount = sum.Count
		}
	}
	return nil
}

// ReviewInput carries a product review.
type ReviewInput struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

// CreateReview reviews the product behind one of the user's promo codes.
// Each promo code can be reviewed once.
func (s *Service) CreateReview(ctx context.Context, userID, promoID uint, in ReviewInput) (*models.Review, error) {
	if in.Rating < models.MinRating || in.Rating > models.MaxRating {
		return nil, apperror.Validation("rating must be between %d and %d", models.MinRating, models.MaxRating)
	}
	comment := s.clean(in.Comment)
	if len([]rune(comment)) > maxCommentLength {
		return nil, apperror.Validation("comment must be at most %d characters", maxCommentLength)
	}

	var review *models.Review
	err := s.db.Transaction(func(tx *repository.DB) error {
		promos := repository.NewPromoRepository(tx)
		reviews := repository.NewReviewRepository(tx)

		promo, err := promos.GetByIDForUpdate(promoID)
		if err != nil {
			if repository.IsNotFound(err) {
				return apperror.NotFound("promo code", promoID)
			}
			return apperror.Storage("load promo code", err)
		}
		if promo.UserID != userID {
			return apperror.Forbidden("promo code belongs to another user")
		}

		exists, err := reviews.ExistsForPromo(promoID)
		if err != nil {
			return apperror.Storage("check review", err)
		}
		if exists || !promo.CanReview {
			return apperror.Conflict("promo code %d has already been reviewed", promoID)
		}

		user, err := repository.NewUserRepository(tx).GetByID(userID)
		if err != nil {
			return apperror.Storage("load user", err)
		}

		review = &models.Review{
			PromoCodeID: promo.ID,
			ProductID:   promo.ProductID,
			UserID:      userID,
			UserName:    user.Name,
			Rating:      in.Rating,
			Comment:     comment,
		}
		if err := reviews.Create(review); err != nil {
			return apperror.Storage("create review", err)
		}
		if err := promos.MarkReviewed(promo.ID); err != nil {
			return apperror.Storage("mark promo reviewed", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Uint("user_id", userID).
		Uint("product_id", review.ProductID).
		Int("rating", review.Rating).
		Msg("Review created")
	return review, nil
}

// ListReviews returns a product's reviews newest first.
func (s *Service) ListReviews(ctx context.Context, productID uint) ([]models.Review, error) {
	reviews, err := repository.NewReviewRepository(s.db).ListByProduct(productID)
	if err != nil {
		return nil, apperror.Storage("list reviews", err)
	}
	if reviews == nil {
		reviews = []models.Review{}
	}
	return reviews, nil
}

func (s *Service) clean(v string) string {
	return strings.TrimSpace(s.policy.Sanitize(v))
}
