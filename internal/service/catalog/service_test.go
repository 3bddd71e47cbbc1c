package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecoplant/plant-rewards/internal/apperror"
	"github.com/ecoplant/plant-rewards/internal/models"
	"github.com/ecoplant/plant-rewards/internal/repository"
	"github.com/ecoplant/plant-rewards/internal/service/notifications"
	"github.com/ecoplant/plant-rewards/pkg/logger"
	"github.com/ecoplant/plant-rewards/test/testdb"
)

func ptr[T any](v T) *T { return &v }

func newTestService(t *testing.T) (*Service, *repository.DB, *notifications.Service) {
	t.Helper()
	db := testdb.New(t)
	notifier := notifications.NewService(
		repository.NewNotificationRepository(db),
		repository.NewUserRepository(db),
		logger.Nop(),
	)
	return NewService(db, notifier, logger.Nop()), db, notifier
}

func TestCreateProduct_DefaultsAndBroadcast(t *testing.T) {
	svc, db, notifier := newTestService(t)
	ctx := context.Background()
	alice := testdb.CreateUser(t, db, "Alice", "Almaty")
	bob := testdb.CreateUser(t, db, "Bob", "Astana")
	admin := testdb.CreateAdmin(t, db, "Admin")

	p, err := svc.CreateProduct(ctx, ProductInput{Title: ptr("Coffee"), Price: ptr(500), Quantity: ptr(10)})
	require.NoError(t, err)
	assert.Equal(t, models.DefaultValidDays, p.ValidDays)
	assert.Equal(t, models.DefaultProductCategory, p.Category)

	for _, id := range []uint{alice.ID, bob.ID} {
		count, err := notifier.UnreadCount(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)
	}
	count, err := notifier.UnreadCount(ctx, admin.ID)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestCreateProduct_Validation(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	tests := []struct {
		name string
		in   ProductInput
	}{
		{"missing title", ProductInput{Price: ptr(1)}},
		{"blank title", ProductInput{Title: ptr("  "), Price: ptr(1)}},
		{"missing price", ProductInput{Title: ptr("Coffee")}},
		{"negative price", ProductInput{Title: ptr("Coffee"), Price: ptr(-1)}},
		{"zero valid days", ProductInput{Title: ptr("Coffee"), Price: ptr(1), ValidDays: ptr(0)}},
		{"negative quantity", ProductInput{Title: ptr("Coffee"), Price: ptr(1), Quantity: ptr(-3)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateProduct(ctx, tt.in)
			assert.True(t, apperror.IsValidation(err), "got %v", err)
		})
	}
}

func TestUpdateAndDeleteProduct(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	p, err := svc.CreateProduct(ctx, ProductInput{Title: ptr("Coffee"), Price: ptr(500)})
	require.NoError(t, err)

	updated, err := svc.UpdateProduct(ctx, p.ID, ProductInput{Quantity: ptr(3), Category: ptr("Food")})
	require.NoError(t, err)
	assert.Equal(t, "Coffee", updated.Title)
	assert.Equal(t, 500, updated.Price)
	assert.Equal(t, 3, updated.Quantity)
	assert.Equal(t, "food", updated.Category)

	_, err = svc.UpdateProduct(ctx, p.ID, ProductInput{Title: ptr("")})
	assert.True(t, apperror.IsValidation(err))

	_, err = svc.UpdateProduct(ctx, 999, ProductInput{Quantity: ptr(1)})
	assert.True(t, apperror.IsNotFound(err))

	require.NoError(t, svc.DeleteProduct(ctx, p.ID))
	assert.True(t, apperror.IsNotFound(svc.DeleteProduct(ctx, p.ID)))
	_, err = svc.GetProduct(ctx, p.ID)
	assert.True(t, apperror.IsNotFound(err))
}

func TestListProducts_Filters(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateProduct(ctx, ProductInput{Title: ptr("Coffee"), Price: ptr(100), Quantity: ptr(2), Category: ptr("food")})
	require.NoError(t, err)
	_, err = svc.CreateProduct(ctx, ProductInput{Title: ptr("Tea"), Price: ptr(100), Quantity: ptr(0), Category: ptr("food")})
	require.NoError(t, err)
	_, err = svc.CreateProduct(ctx, ProductInput{Title: ptr("Cinema"), Price: ptr(300), Quantity: ptr(1), Category: ptr("fun")})
	require.NoError(t, err)

	page, err := svc.ListProducts(ctx, models.ProductFilter{Category: "all"})
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.Total)

	page, err = svc.ListProducts(ctx, models.ProductFilter{Category: "Food", InStockOnly: true})
	require.NoError(t, err)
	require.Len(t, page.Products, 1)
	assert.Equal(t, "Coffee", page.Products[0].Title)
}

func createPromo(t *testing.T, db *repository.DB, code string, userID, productID uint) *models.PromoCode {
	t.Helper()
	promo := &models.PromoCode{
		Code:         code,
		UserID:       userID,
		ProductID:    productID,
		ProductTitle: "Coffee",
		Price:        100,
		CanReview:    true,
		ExpiresAt:    time.Now().Add(24 * time.Hour),
	}
	require.NoError(t, repository.NewPromoRepository(db).Create(promo))
	return promo
}

func TestCreateReview(t *testing.T) {
	svc, db, _ := newTestService(t)
	ctx := context.Background()
	alice := testdb.CreateUser(t, db, "Alice", "Almaty")
	bob := testdb.CreateUser(t, db, "Bob", "Almaty")
	product := testdb.CreateProduct(t, db, "Coffee", 100, 5)
	promo := createPromo(t, db, "AAAABBBBCCCC", alice.ID, product.ID)

	_, err := svc.CreateReview(ctx, alice.ID, promo.ID, ReviewInput{Rating: 6})
	assert.True(t, apperror.IsValidation(err))

	_, err = svc.CreateReview(ctx, bob.ID, promo.ID, ReviewInput{Rating: 5})
	assert.Equal(t, apperror.KindForbidden, apperror.KindOf(err))

	_, err = svc.CreateReview(ctx, alice.ID, 999, ReviewInput{Rating: 5})
	assert.True(t, apperror.IsNotFound(err))

	review, err := svc.CreateReview(ctx, alice.ID, promo.ID, ReviewInput{Rating: 4, Comment: "<b>Tasty</b>"})
	require.NoError(t, err)
	assert.Equal(t, product.ID, review.ProductID)
	assert.Equal(t, "Alice", review.UserName)
	assert.Equal(t, "Tasty", review.Comment)

	stored, err := repository.NewPromoRepository(db).GetByID(promo.ID)
	require.NoError(t, err)
	assert.False(t, stored.CanReview)

	_, err = svc.CreateReview(ctx, alice.ID, promo.ID, ReviewInput{Rating: 5})
	assert.True(t, apperror.IsConflict(err))

	second := createPromo(t, db, "DDDDEEEEFFFF", alice.ID, product.ID)
	_, err = svc.CreateReview(ctx, alice.ID, second.ID, ReviewInput{Rating: 5})
	require.NoError(t, err)

	got, err := svc.GetProduct(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 4.5, got.AverageRating)
	assert.Equal(t, int64(2), got.ReviewCount)

	reviews, err := svc.ListReviews(ctx, product.ID)
	require.NoError(t, err)
	assert.Len(t, reviews, 2)
}
