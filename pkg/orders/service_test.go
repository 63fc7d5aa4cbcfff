package orders

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/foodcart/internal/testdb"
	"github.com/example/foodcart/pkg/events"
	"github.com/example/foodcart/pkg/matcher"
	"github.com/example/foodcart/pkg/models"
	"github.com/example/foodcart/pkg/repository"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type recordingCache struct {
	invalidated []string
}

func (c *recordingCache) Invalidate(_ context.Context, address string) error {
	c.invalidated = append(c.invalidated, address)
	return nil
}

type recordingPublisher struct {
	published []events.Event
	err       error
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	p.published = append(p.published, e)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []string {
	out := make([]string, 0, len(p.published))
	for _, e := range p.published {
		out = append(out, e.Type)
	}
	return out
}

type recordingAudit struct {
	actions []string
}

func (a *recordingAudit) Record(action, _ string, _ uint, _ map[string]interface{}) {
	a.actions = append(a.actions, action)
}

type stubMatcher struct{}

func (stubMatcher) Candidates(_ context.Context, order *models.Order) []matcher.Candidate {
	return []matcher.Candidate{{Restaurant: models.Restaurant{ID: 1, Name: "For " + order.Address}, DistanceKm: 1.5}}
}

type fixture struct {
	db         *gorm.DB
	svc        *Service
	cache      *recordingCache
	events     *recordingPublisher
	audit      *recordingAudit
	burger     models.Product
	cola       models.Product
	soldOut    models.Product
	restaurant models.Restaurant
	now        time.Time
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testdb.New(t)

	f := &fixture{
		db:         db,
		cache:      &recordingCache{},
		events:     &recordingPublisher{},
		audit:      &recordingAudit{},
		burger:     models.Product{Name: "Burger", Price: dec("350.50"), IsAvailable: true},
		cola:       models.Product{Name: "Cola", Price: dec("99.90"), IsAvailable: true},
		soldOut:    models.Product{Name: "Soup", Price: dec("200"), IsAvailable: false},
		restaurant: models.Restaurant{Name: "Star Burger", Address: "Москва, Тверская 1"},
		now:        time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	require.NoError(t, db.Create(&f.burger).Error)
	require.NoError(t, db.Create(&f.cola).Error)
	require.NoError(t, db.Create(&f.soldOut).Error)
	require.NoError(t, db.Create(&f.restaurant).Error)

	f.svc = NewService(Deps{
		Orders:  repository.NewOrderRepository(db),
		Catalog: repository.NewCatalogRepository(db),
		Cache:   f.cache,
		Matcher: stubMatcher{},
		Events:  f.events,
		Audit:   f.audit,
		Logger:  zap.NewNop(),
	})
	f.svc.now = func() time.Time { return f.now }
	return f
}

func (f *fixture) input(items ...ItemInput) CreateInput {
	return CreateInput{
		FirstName:   "Иван",
		LastName:    "Петров",
		PhoneNumber: "+7 916 123-45-67",
		Address:     "Москва, Красная площадь 1",
		Items:       items,
	}
}

func (f *fixture) create(t *testing.T) *models.Order {
	t.Helper()
	order, err := f.svc.Create(context.Background(), f.input(
		ItemInput{ProductID: f.burger.ID, Quantity: 2},
		ItemInput{ProductID: f.cola.ID, Quantity: 1},
	))
	require.NoError(t, err)
	return order
}

func TestCreate(t *testing.T) {
	f := newFixture(t)
	order := f.create(t)

	assert.NotZero(t, order.ID)
	assert.Equal(t, models.OrderStatusNew, order.Status)
	assert.Equal(t, models.PaymentCash, order.PaymentMethod)
	assert.Equal(t, "+79161234567", order.PhoneNumber)
	assert.True(t, order.TotalPrice.Equal(dec("800.90")), order.TotalPrice.String())

	stored, err := f.svc.Get(context.Background(), order.ID)
	require.NoError(t, err)
	require.Len(t, stored.Items, 2)
	assert.True(t, stored.TotalPrice.Equal(dec("800.90")))
	assert.True(t, stored.Items[0].Price.Equal(dec("350.50")))

	assert.Equal(t, []string{events.OrderCreated}, f.events.types())
	assert.Equal(t, []string{"create_order"}, f.audit.actions)
}

func TestCreate_NationalPhoneFormat(t *testing.T) {
	f := newFixture(t)
	in := f.input(ItemInput{ProductID: f.burger.ID, Quantity: 1})
	in.PhoneNumber = "8 (916) 123-45-67"
	in.PaymentMethod = models.PaymentElectronic

	order, err := f.svc.Create(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, "+79161234567", order.PhoneNumber)
	assert.Equal(t, models.PaymentElectronic, order.PaymentMethod)
}

func TestCreate_Rejects(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name   string
		mutate func(in *CreateInput)
		err    error
	}{
		{"no items", func(in *CreateInput) { in.Items = nil }, ErrNoItems},
		{"zero quantity", func(in *CreateInput) { in.Items[0].Quantity = 0 }, ErrInvalidQuantity},
		{"too many", func(in *CreateInput) { in.Items[0].Quantity = MaxQuantity + 1 }, ErrInvalidQuantity},
		{"duplicate product", func(in *CreateInput) {
			in.Items = append(in.Items, ItemInput{ProductID: f.burger.ID, Quantity: 1})
		}, ErrDuplicateProduct},
		{"unknown product", func(in *CreateInput) { in.Items[0].ProductID = 999 }, ErrProductUnavailable},
		{"unavailable product", func(in *CreateInput) { in.Items[0].ProductID = f.soldOut.ID }, ErrProductUnavailable},
		{"bad phone", func(in *CreateInput) { in.PhoneNumber = "12345" }, ErrInvalidPhone},
		{"short address", func(in *CreateInput) { in.Address = "Дом" }, ErrAddressOutOfBounds},
		{"payment", func(in *CreateInput) { in.PaymentMethod = "crypto" }, ErrInvalidPayment},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := f.input(ItemInput{ProductID: f.burger.ID, Quantity: 1})
			tt.mutate(&in)
			_, err := f.svc.Create(context.Background(), in)
			assert.ErrorIs(t, err, tt.err)
		})
	}

	var count int64
	require.NoError(t, f.db.Model(&models.Order{}).Count(&count).Error)
	assert.Zero(t, count, "rejected orders leave nothing behind")
	assert.Empty(t, f.events.published)
}

func TestCreate_MaxQuantityAccepted(t *testing.T) {
	f := newFixture(t)
	order, err := f.svc.Create(context.Background(), f.input(ItemInput{ProductID: f.cola.ID, Quantity: MaxQuantity}))
	require.NoError(t, err)
	assert.True(t, order.TotalPrice.Equal(dec("1998.00")))
}

func TestCreate_PublishFailureDoesNotFail(t *testing.T) {
	f := newFixture(t)
	f.events.err = errors.New("kafka down")
	f.create(t)
}

func TestItems_KeepTotalInSync(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := f.create(t)

	// later price changes do not touch existing items
	require.NoError(t, f.db.Model(&f.burger).Update("price", dec("400")).Error)
	stored, err := f.svc.Get(ctx, order.ID)
	require.NoError(t, err)
	assert.True(t, stored.TotalPrice.Equal(dec("800.90")))

	burgerItem := stored.Items[0]
	updated, err := f.svc.UpdateItemQuantity(ctx, order.ID, burgerItem.ID, 3)
	require.NoError(t, err)
	assert.True(t, updated.TotalPrice.Equal(dec("1151.40")), updated.TotalPrice.String())

	colaItem := stored.Items[1]
	updated, err = f.svc.RemoveItem(ctx, order.ID, colaItem.ID)
	require.NoError(t, err)
	require.Len(t, updated.Items, 1)
	assert.True(t, updated.TotalPrice.Equal(dec("1051.50")))

	updated, err = f.svc.AddItem(ctx, order.ID, f.cola.ID, 2)
	require.NoError(t, err)
	assert.True(t, updated.TotalPrice.Equal(dec("1251.30")), updated.TotalPrice.String())
	assert.True(t, models.SumItems(updated.Items).Equal(updated.TotalPrice))

	updated, err = f.svc.RemoveItem(ctx, order.ID, burgerItem.ID)
	require.NoError(t, err)
	updated, err = f.svc.RemoveItem(ctx, order.ID, updated.Items[0].ID)
	require.NoError(t, err)
	assert.True(t, updated.TotalPrice.IsZero())

	assert.Contains(t, f.events.types(), events.OrderItemsChanged)
	assert.Contains(t, f.audit.actions, "remove_item")
}

func TestItems_Rejects(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := f.create(t)
	itemID := order.Items[0].ID

	_, err := f.svc.AddItem(ctx, order.ID, f.burger.ID, 1)
	assert.ErrorIs(t, err, ErrDuplicateProduct)
	_, err = f.svc.AddItem(ctx, order.ID, f.soldOut.ID, 1)
	assert.ErrorIs(t, err, ErrProductUnavailable)
	_, err = f.svc.AddItem(ctx, 999, f.soldOut.ID, 1)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = f.svc.UpdateItemQuantity(ctx, order.ID, itemID, 0)
	assert.ErrorIs(t, err, ErrInvalidQuantity)
	_, err = f.svc.UpdateItemQuantity(ctx, order.ID+1, itemID, 2)
	assert.ErrorIs(t, err, ErrItemNotFound)
	_, err = f.svc.RemoveItem(ctx, order.ID, 999)
	assert.ErrorIs(t, err, ErrItemNotFound)
}

func TestUpdateStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := f.create(t)

	updated, err := f.svc.UpdateStatus(ctx, order.ID, models.OrderStatusProcessing)
	require.NoError(t, err)
	require.NotNil(t, updated.CalledAt)
	assert.True(t, updated.CalledAt.Equal(f.now))
	assert.Nil(t, updated.DeliveredAt)

	called := *updated.CalledAt
	f.now = f.now.Add(time.Hour)
	_, err = f.svc.UpdateStatus(ctx, order.ID, models.OrderStatusDelivery)
	require.NoError(t, err)
	updated, err = f.svc.UpdateStatus(ctx, order.ID, models.OrderStatusProcessing)
	require.NoError(t, err)
	assert.True(t, updated.CalledAt.Equal(called), "first call time is kept")

	updated, err = f.svc.UpdateStatus(ctx, order.ID, models.OrderStatusCompleted)
	require.NoError(t, err)
	require.NotNil(t, updated.DeliveredAt)
	assert.True(t, updated.DeliveredAt.Equal(f.now))

	_, err = f.svc.UpdateStatus(ctx, order.ID, "lost")
	assert.ErrorIs(t, err, ErrInvalidStatus)
	_, err = f.svc.UpdateStatus(ctx, 999, models.OrderStatusCompleted)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAssignRestaurant(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := f.create(t)

	updated, err := f.svc.AssignRestaurant(ctx, order.ID, f.restaurant.ID)
	require.NoError(t, err)
	require.NotNil(t, updated.RestaurantID)
	assert.Equal(t, f.restaurant.ID, *updated.RestaurantID)
	assert.Equal(t, models.OrderStatusRestaurant, updated.Status)
	require.NotNil(t, updated.Restaurant)
	assert.Equal(t, "Star Burger", updated.Restaurant.Name)

	_, err = f.svc.UpdateStatus(ctx, order.ID, models.OrderStatusDelivery)
	require.NoError(t, err)
	updated, err = f.svc.AssignRestaurant(ctx, order.ID, f.restaurant.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusDelivery, updated.Status, "orders on the way keep their status")

	_, err = f.svc.AssignRestaurant(ctx, order.ID, 999)
	assert.ErrorIs(t, err, ErrRestaurantNotFound)
	assert.Contains(t, f.events.types(), events.OrderRestaurantChanged)
}

func TestUpdateAddress_InvalidatesOldCoordinates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := f.create(t)

	_, err := f.svc.UpdateAddress(ctx, order.ID, order.Address)
	require.NoError(t, err)
	assert.Empty(t, f.cache.invalidated)

	updated, err := f.svc.UpdateAddress(ctx, order.ID, "Москва, Арбат 10")
	require.NoError(t, err)
	assert.Equal(t, "Москва, Арбат 10", updated.Address)
	assert.Equal(t, []string{"Москва, Красная площадь 1"}, f.cache.invalidated)

	_, err = f.svc.UpdateAddress(ctx, order.ID, "abc")
	assert.ErrorIs(t, err, ErrAddressOutOfBounds)
}

func TestUpdate_RejectedPatchLeavesOrderUntouched(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := f.create(t)
	f.events.published = nil
	f.audit.actions = nil

	address := "Москва, Арбат 10"
	comment := "Домофон 12"
	missing := uint(999)
	_, err := f.svc.Update(ctx, order.ID, Patch{Address: &address, Comment: &comment, RestaurantID: &missing})
	assert.ErrorIs(t, err, ErrRestaurantNotFound)

	lost := models.OrderStatus("lost")
	_, err = f.svc.Update(ctx, order.ID, Patch{Address: &address, Status: &lost})
	assert.ErrorIs(t, err, ErrInvalidStatus)

	stored, err := f.svc.Get(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, "Москва, Красная площадь 1", stored.Address)
	assert.Empty(t, stored.Comment)
	assert.Nil(t, stored.RestaurantID)
	assert.Empty(t, f.cache.invalidated)
	assert.Empty(t, f.events.published)
	assert.Empty(t, f.audit.actions)
}

func TestUpdate_AppliesEveryField(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := f.create(t)

	address := "Москва, Арбат 10"
	comment := "Домофон 12"
	processing := models.OrderStatusProcessing
	updated, err := f.svc.Update(ctx, order.ID, Patch{
		Address:      &address,
		Comment:      &comment,
		RestaurantID: &f.restaurant.ID,
		Status:       &processing,
	})
	require.NoError(t, err)
	assert.Equal(t, address, updated.Address)
	assert.Equal(t, comment, updated.Comment)
	require.NotNil(t, updated.RestaurantID)
	assert.Equal(t, f.restaurant.ID, *updated.RestaurantID)
	assert.Equal(t, models.OrderStatusProcessing, updated.Status, "an explicit status wins over the restaurant status")
	require.NotNil(t, updated.CalledAt)
	assert.True(t, updated.CalledAt.Equal(f.now))

	assert.Equal(t, []string{"Москва, Красная площадь 1"}, f.cache.invalidated)
	assert.Contains(t, f.events.types(), events.OrderRestaurantChanged)
	assert.Contains(t, f.events.types(), events.OrderStatusChanged)
	assert.Subset(t, f.audit.actions, []string{"update_address", "update_comment", "assign_restaurant", "update_status"})
}

func TestUpdate_EmptyPatch(t *testing.T) {
	f := newFixture(t)
	order := f.create(t)
	f.events.published = nil

	updated, err := f.svc.Update(context.Background(), order.ID, Patch{})
	require.NoError(t, err)
	assert.Equal(t, order.Address, updated.Address)
	assert.Empty(t, f.events.published)
}

func TestUpdateComment(t *testing.T) {
	f := newFixture(t)
	order := f.create(t)

	updated, err := f.svc.UpdateComment(context.Background(), order.ID, "Позвонить за час")
	require.NoError(t, err)
	assert.Equal(t, "Позвонить за час", updated.Comment)
}

func TestListActive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first := f.create(t)
	second := f.create(t)
	done := f.create(t)
	_, err := f.svc.UpdateStatus(ctx, done.ID, models.OrderStatusCompleted)
	require.NoError(t, err)

	rows, err := f.svc.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, second.ID, rows[0].Order.ID)
	assert.Equal(t, first.ID, rows[1].Order.ID)
	assert.Len(t, rows[0].Order.Items, 2)
	assert.True(t, rows[0].Order.TotalPrice.Equal(dec("800.90")))
	require.Len(t, rows[0].Candidates, 1)
	assert.Equal(t, "For Москва, Красная площадь 1", rows[0].Candidates[0].Restaurant.Name)
}

func TestNormalizePhone(t *testing.T) {
	got, err := NormalizePhone("+7 (916) 123-45-67")
	require.NoError(t, err)
	assert.Equal(t, "+79161234567", got)

	_, err = NormalizePhone("not a phone")
	assert.ErrorIs(t, err, ErrInvalidPhone)
}
