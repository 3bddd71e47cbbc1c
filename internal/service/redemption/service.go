// Package redemption exchanges points for products and issues promo codes.
package redemption

import (
	"context"
	"errors"
	"fmt"
	"time"

	qrcode "github.com/skip2/go-qrcode"

	"github.com/ecoplant/plant-rewards/internal/apperror"
	prommetrics "github.com/ecoplant/plant-rewards/internal/metrics"
	"github.com/ecoplant/plant-rewards/internal/models"
	"github.com/ecoplant/plant-rewards/internal/repository"
	"github.com/ecoplant/plant-rewards/pkg/logger"
)

// maxCodeAttempts bounds promo code generation against collisions.
const maxCodeAttempts = 5

// qrSize is the edge length in pixels of promo QR images.
const qrSize = 256

// AchievementChecker evaluates achievements inside a redemption transaction.
type AchievementChecker interface {
	EvaluateInTx(tx *repository.DB, user *models.User) ([]models.Achievement, error)
	Announce(ctx context.Context, userID uint, unlocked []models.Achievement)
}

// RankingInvalidator drops cached rankings after a balance change.
type RankingInvalidator interface {
	Invalidate(ctx context.Context)
}

// Service handles product redemption.
type Service struct {
	db           *repository.DB
	achievements AchievementChecker
	invalidator  RankingInvalidator
	log          *logger.Logger
	now          func() time.Time
	generate     func(n int) (string, error)
}

// NewService creates a new redemption service. achievements and invalidator may be nil.
func NewService(db *repository.DB, achievements AchievementChecker, invalidator RankingInvalidator, log *logger.Logger) *Service {
	return &Service{
		db:           db,
		achievements: achievements,
		invalidator:  invalidator,
		log:          log,
		now:          time.Now,
		generate:     GenerateCode,
	}
}

// Redeem spends the product's price from the user's balance and issues a promo code.
// Stock is checked before balance. All writes happen in one transaction.
func (s *Service) Redeem(ctx context.Context, userID, productID uint) (*models.PromoCode, error) {
	var (
		promo    *models.PromoCode
		unlocked []models.Achievement
	)

	err := s.db.Transaction(func(tx *repository.DB) error {
		users := repository.NewUserRepository(tx)
		products := repository.NewProductRepository(tx)
		promos := repository.NewPromoRepository(tx)

		user, err := users.GetByIDForUpdate(userID)
		if err != nil {
			if repository.IsNotFound(err) {
				return apperror.NotFound("user", userID)
			}
			return apperror.Storage("load user", err)
		}

		product, err := products.GetByIDForUpdate(productID)
		if err != nil {
			if repository.IsNotFound(err) {
				return apperror.NotFound("product", productID)
			}
			return apperror.Storage("load product", err)
		}

		if !product.InStock() {
			return apperror.OutOfStock(product.ID)
		}
		if user.Points < product.Price {
			return apperror.InsufficientPoints(user.Points, product.Price)
		}

		code, err := s.uniqueCode(promos)
		if err != nil {
			return err
		}

		now := s.now()
		user.Points -= product.Price
		product.Quantity--

		promo = &models.PromoCode{
			Code:         code,
			UserID:       user.ID,
			ProductID:    product.ID,
			ProductTitle: product.Title,
			Organization: product.Organization,
			Price:        product.Price,
			CanReview:    true,
			ExpiresAt:    now.AddDate(0, 0, product.ValidDays),
		}
		if err := promos.Create(promo); err != nil {
			return apperror.Storage("create promo code", err)
		}
		if err := products.Update(product); err != nil {
			return apperror.Storage("update product stock", err)
		}

		if s.achievements != nil {
			unlocked, err = s.achievements.EvaluateInTx(tx, user)
			if err != nil {
				return apperror.Storage("check achievements", err)
			}
		}

		if err := users.Update(user); err != nil {
			return apperror.Storage("update user balance", err)
		}
		return nil
	})
	if err != nil {
		prommetrics.RecordRedemption(redemptionResult(err), 0)
		return nil, err
	}

	prommetrics.RecordRedemption("success", promo.Price)
	s.log.Info().
		Uint("user_id", userID).
		Uint("product_id", productID).
		Uint("promo_id", promo.ID).
		Int("price", promo.Price).
		Msg("Product redeemed")

	if s.achievements != nil && len(unlocked) > 0 {
		s.achievements.Announce(ctx, userID, unlocked)
	}
	if s.invalidator != nil {
		s.invalidator.Invalidate(ctx)
	}
	return promo, nil
}

// uniqueCode draws codes until one is not taken. The unique index on code
// still guards against a concurrent insert of the same value.
func (s *Service) uniqueCode(promos *repository.PromoRepository) (string, error) {
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := s.generate(models.PromoCodeLength)
		if err != nil {
			return "", apperror.Internal("generate promo code", err)
		}
		exists, err := promos.ExistsByCode(code)
		if err != nil {
			return "", apperror.Storage("check promo code", err)
		}
		if !exists {
			return code, nil
		}
	}
	return "", apperror.Storage("generate promo code",
		fmt.Errorf("no unique code after %d attempts", maxCodeAttempts))
}

func redemptionResult(err error) string {
	var appErr *apperror.Error
	if !errors.As(err, &appErr) {
		return "error"
	}
	switch appErr.Kind {
	case apperror.KindOutOfStock:
		return "out_of_stock"
	case apperror.KindInsufficientPoints:
		return "insufficient_points"
	case apperror.KindNotFound:
		return "not_found"
	default:
		return "error"
	}
}

// ListPromos returns the promo codes issued to a user, newest first.
func (s *Service) ListPromos(ctx context.Context, userID uint) ([]models.PromoCode, error) {
	promos, err := repository.NewPromoRepository(s.db).ListByUser(userID)
	if err != nil {
		return nil, apperror.Storage("list promo codes", err)
	}
	if promos == nil {
		promos = []models.PromoCode{}
	}
	return promos, nil
}

// GetPromo returns a promo code owned by userID.
func (s *Service) GetPromo(ctx context.Context, userID, promoID uint) (*models.PromoCode, error) {
	promo, err := repository.NewPromoRepository(s.db).GetByID(promoID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, apperror.NotFound("promo code", promoID)
		}
		return nil, apperror.Storage("load promo code", err)
	}
	if promo.UserID != userID {
		// Foreign codes are reported as missing.
		return nil, apperror.NotFound("promo code", promoID)
	}
	return promo, nil
}

// PromoQR renders a user's promo code as a PNG image.
func (s *Service) PromoQR(ctx context.Context, userID, promoID uint) ([]byte, error) {
	promo, err := s.GetPromo(ctx, userID, promoID)
	if err != nil {
		return nil, err
	}
	png, err := qrcode.Encode(promo.Code, qrcode.Medium, qrSize)
	if err != nil {
		return nil, apperror.Internal("render promo qr", err)
	}
	return png, nil
}
