package services

import (
	"context"
	"testing"

	"github.com/Kariqs/farmart-api/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func intPtr(v int) *int { return &v }

func TestListAnimalsFilters(t *testing.T) {
	db := newTestDB(t)
	farmer := seedUser(t, db, "farmer", models.RoleFarmer)

	animals := []models.Animal{
		{FarmerID: farmer.ID, Title: "Dairy cow", AnimalType: "cow", Breed: "Friesian", Age: intPtr(24), Price: decimal.RequireFromString("85000"), Quantity: 2, Status: models.AnimalAvailable, Description: "High milk yield"},
		{FarmerID: farmer.ID, Title: "Young bull", AnimalType: "cow", Breed: "Boran", Age: intPtr(12), Price: decimal.RequireFromString("60000"), Quantity: 1, Status: models.AnimalAvailable},
		{FarmerID: farmer.ID, Title: "Meat goat", AnimalType: "goat", Breed: "Boer", Age: intPtr(8), Price: decimal.RequireFromString("12000"), Quantity: 6, Status: models.AnimalAvailable},
		{FarmerID: farmer.ID, Title: "Sold heifer", AnimalType: "cow", Breed: "Friesian", Age: intPtr(18), Price: decimal.RequireFromString("70000"), Quantity: 0, Status: models.AnimalSold},
		{FarmerID: farmer.ID, Title: "Reserved ram", AnimalType: "sheep", Breed: "Dorper", Age: intPtr(10), Price: decimal.RequireFromString("15000"), Quantity: 1, Status: models.AnimalPending},
	}
	require.NoError(t, db.Create(&animals).Error)

	titles := func(list []models.Animal) []string {
		out := make([]string, 0, len(list))
		for _, a := range list {
			out = append(out, a.Title)
		}
		return out
	}

	tests := []struct {
		name   string
		filter models.AnimalFilter
		want   []string
	}{
		{name: "available only", filter: models.AnimalFilter{}, want: []string{"Dairy cow", "Young bull", "Meat goat"}},
		{name: "by type", filter: models.AnimalFilter{Type: "COW"}, want: []string{"Dairy cow", "Young bull"}},
		{name: "by breed", filter: models.AnimalFilter{Breed: "boer"}, want: []string{"Meat goat"}},
		{name: "search matches description", filter: models.AnimalFilter{Search: "milk"}, want: []string{"Dairy cow"}},
		{name: "age range", filter: models.AnimalFilter{MinAge: intPtr(10), MaxAge: intPtr(20)}, want: []string{"Young bull"}},
		{name: "price range", filter: models.AnimalFilter{MinPrice: "50000", MaxPrice: "70000"}, want: []string{"Young bull"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, page, err := ListAnimals(context.Background(), db, tt.filter)
			require.NoError(t, err)
			assert.ElementsMatch(t, tt.want, titles(got))
			assert.Equal(t, int64(len(tt.want)), page.Total)
		})
	}

	t.Run("pagination", func(t *testing.T) {
		got, page, err := ListAnimals(context.Background(), db, models.AnimalFilter{Page: 2, PerPage: 2})
		require.NoError(t, err)
		assert.Len(t, got, 1)
		assert.Equal(t, Pagination{Total: 3, Page: 2, PerPage: 2, TotalPages: 2}, page)
	})

	t.Run("bad price filter", func(t *testing.T) {
		_, _, err := ListAnimals(context.Background(), db, models.AnimalFilter{MinPrice: "cheap"})
		requireKind(t, err, KindValidation)
	})
}

func TestCreateAnimal(t *testing.T) {
	db := newTestDB(t)
	farmer := seedUser(t, db, "farmer", models.RoleFarmer)
	buyer := seedUser(t, db, "buyer", models.RoleBuyer)
	ctx := context.Background()

	input := models.AnimalInput{Title: " Dairy cow ", AnimalType: "cow", Price: decimal.RequireFromString("1500.505")}

	_, err := CreateAnimal(ctx, db, buyer, input)
	requireKind(t, err, KindAccessDenied)

	animal, err := CreateAnimal(ctx, db, farmer, input)
	require.NoError(t, err)
	assert.Equal(t, "Dairy cow", animal.Title)
	assert.Equal(t, 1, animal.Quantity)
	assert.Equal(t, models.AnimalAvailable, animal.Status)
	assert.Equal(t, farmer.ID, animal.FarmerID)
	assert.Equal(t, "1500.51", animal.Price.StringFixed(2))

	input.Price = decimal.Zero
	_, err = CreateAnimal(ctx, db, farmer, input)
	requireKind(t, err, KindValidation)
}

func TestUpdateAnimal(t *testing.T) {
	db := newTestDB(t)
	farmer := seedUser(t, db, "farmer", models.RoleFarmer)
	other := seedUser(t, db, "farmer2", models.RoleFarmer)
	ctx := context.Background()

	animal := seedAnimal(t, db, farmer, "Cow", "100.00", 0)

	title := "Restocked cow"
	_, err := UpdateAnimal(ctx, db, other, animal.ID, models.AnimalUpdate{Title: &title})
	requireKind(t, err, KindAccessDenied)

	_, err = UpdateAnimal(ctx, db, farmer, 9999, models.AnimalUpdate{Title: &title})
	requireKind(t, err, KindNotFound)

	pending := models.AnimalPending
	_, err = UpdateAnimal(ctx, db, farmer, animal.ID, models.AnimalUpdate{Status: &pending})
	requireKind(t, err, KindConflict)

	updated, err := UpdateAnimal(ctx, db, farmer, animal.ID, models.AnimalUpdate{Title: &title, Quantity: intPtr(4)})
	require.NoError(t, err)
	assert.Equal(t, "Restocked cow", updated.Title)
	assert.Equal(t, 4, updated.Quantity)
	assert.Equal(t, models.AnimalAvailable, updated.Status)

	negative := decimal.RequireFromString("-1")
	_, err = UpdateAnimal(ctx, db, farmer, animal.ID, models.AnimalUpdate{Price: &negative})
	requireKind(t, err, KindValidation)
}

func TestDeleteAnimal(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	listed := seedAnimal(t, f.db, f.farmer, "Cow", "100.00", 2)
	addToCart(t, f.db, f.buyer, listed.ID, 1)

	err := runInTx(f.db, func(tx *gorm.DB) error { return DeleteAnimal(ctx, tx, f.farmer, listed.ID) })
	require.NoError(t, err)

	_, err = GetAnimal(ctx, f.db, listed.ID)
	requireKind(t, err, KindNotFound)
	var cartItems int64
	require.NoError(t, f.db.Model(&models.CartItem{}).Count(&cartItems).Error)
	assert.Zero(t, cartItems)

	ordered := seedAnimal(t, f.db, f.farmer, "Goat", "50.00", 2)
	addToCart(t, f.db, f.buyer, ordered.ID, 1)
	_, err = f.createOrder(t, f.buyer)
	require.NoError(t, err)

	err = runInTx(f.db, func(tx *gorm.DB) error { return DeleteAnimal(ctx, tx, f.farmer, ordered.ID) })
	requireKind(t, err, KindConflict)
	assert.Equal(t, CodeHasOrders, AsError(err).Code)

	err = runInTx(f.db, func(tx *gorm.DB) error { return DeleteAnimal(ctx, tx, f.buyer, ordered.ID) })
	requireKind(t, err, KindAccessDenied)
}

func TestAddAnimalImages(t *testing.T) {
	db := newTestDB(t)
	farmer := seedUser(t, db, "farmer", models.RoleFarmer)
	other := seedUser(t, db, "farmer2", models.RoleFarmer)
	animal := seedAnimal(t, db, farmer, "Cow", "100.00", 1)
	ctx := context.Background()

	_, err := AddAnimalImages(ctx, db, other, animal.ID, []string{"https://bucket/a.jpg"})
	requireKind(t, err, KindAccessDenied)

	images, err := AddAnimalImages(ctx, db, farmer, animal.ID, []string{"https://bucket/a.jpg", "https://bucket/b.jpg"})
	require.NoError(t, err)
	assert.Len(t, images, 2)

	loaded, err := GetAnimal(ctx, db, animal.ID)
	require.NoError(t, err)
	assert.Len(t, loaded.Images, 2)
}
