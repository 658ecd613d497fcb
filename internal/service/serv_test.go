package service_test

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/linemk/elite-cart/internal/domain/models"
	"github.com/linemk/elite-cart/internal/service"
	"github.com/linemk/elite-cart/internal/storage"
	"github.com/stretchr/testify/assert"
	"golang.org/x/crypto/bcrypt"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, nil))
}

type fakeUserRepo struct {
	users map[string]*models.User // keyed by email
}

var _ storage.UserStorage = (*fakeUserRepo)(nil)

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*models.User)}
}

func (f *fakeUserRepo) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	user, ok := f.users[email]
	if !ok {
		return nil, storage.ErrUserNotFound
	}
	return user, nil
}

func (f *fakeUserRepo) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	for _, u := range f.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, storage.ErrUserNotFound
}

func (f *fakeUserRepo) CreateUser(ctx context.Context, user *models.User) (*models.User, error) {
	if _, ok := f.users[user.Email]; ok {
		return nil, storage.ErrEmailTaken
	}
	user.ID = int64(len(f.users) + 1)
	user.CreatedAt = time.Now()
	f.users[user.Email] = user
	return user, nil
}

type fakeProductRepo struct {
	products map[int64]*models.Product
}

var _ storage.ProductStorage = (*fakeProductRepo)(nil)

func newFakeProductRepo(products ...*models.Product) *fakeProductRepo {
	f := &fakeProductRepo{products: make(map[int64]*models.Product)}
	for _, p := range products {
		f.products[p.ID] = p
	}
	return f
}

func (f *fakeProductRepo) ListProducts(ctx context.Context, filter storage.ProductFilter) ([]*models.Product, error) {
	var out []*models.Product
	for _, p := range f.products {
		out = append(out, p)
	}
	return out, nil
}

func (f *fakeProductRepo) GetProductByID(ctx context.Context, id int64) (*models.Product, error) {
	p, ok := f.products[id]
	if !ok {
		return nil, storage.ErrProductNotFound
	}
	return p, nil
}

func (f *fakeProductRepo) CreateProduct(ctx context.Context, product *models.Product) (int64, error) {
	product.ID = int64(len(f.products) + 1)
	f.products[product.ID] = product
	return product.ID, nil
}

func (f *fakeProductRepo) UpdateProduct(ctx context.Context, id int64, upd storage.ProductUpdate) error {
	if _, ok := f.products[id]; !ok {
		return storage.ErrProductNotFound
	}
	return nil
}

func (f *fakeProductRepo) DeleteProduct(ctx context.Context, id int64) error {
	if _, ok := f.products[id]; !ok {
		return storage.ErrProductNotFound
	}
	delete(f.products, id)
	return nil
}

func (f *fakeProductRepo) LockProductByIDTx(ctx context.Context, tx *sql.Tx, id int64) (*models.Product, error) {
	return f.GetProductByID(ctx, id)
}

func (f *fakeProductRepo) DecrementStockTx(ctx context.Context, tx *sql.Tx, id int64, quantity int) error {
	p, ok := f.products[id]
	if !ok || p.Stock < quantity {
		return storage.ErrInsufficientStock
	}
	p.Stock -= quantity
	return nil
}

type fakeOrderRepo struct {
	nextID int64
	orders map[int64]*models.Order
	items  map[int64][]*models.OrderItem
}

var _ storage.OrderStorage = (*fakeOrderRepo)(nil)

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{
		nextID: 1,
		orders: make(map[int64]*models.Order),
		items:  make(map[int64][]*models.OrderItem),
	}
}

func (f *fakeOrderRepo) CreateOrderTx(ctx context.Context, tx *sql.Tx, order *models.Order) (int64, error) {
	id := f.nextID
	f.nextID++
	order.ID = id
	order.CreatedAt = time.Now()
	f.orders[id] = order
	return id, nil
}

func (f *fakeOrderRepo) CreateOrderItemTx(ctx context.Context, tx *sql.Tx, item *models.OrderItem) error {
	item.ID = int64(len(f.items[item.OrderID]) + 1)
	f.items[item.OrderID] = append(f.items[item.OrderID], item)
	return nil
}

func (f *fakeOrderRepo) GetOrderByID(ctx context.Context, id int64) (*models.Order, error) {
	order, ok := f.orders[id]
	if !ok {
		return nil, storage.ErrOrderNotFound
	}
	return order, nil
}

func (f *fakeOrderRepo) GetOrdersByUserID(ctx context.Context, userID int64) ([]*models.Order, error) {
	var out []*models.Order
	for _, o := range f.orders {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (f *fakeOrderRepo) GetOrderItems(ctx context.Context, orderID int64) ([]*models.OrderItem, error) {
	return f.items[orderID], nil
}

func TestSignupAndLogin_RoundTrip(t *testing.T) {
	os.Setenv("JWT_SECRET", "testsecret")
	defer os.Unsetenv("JWT_SECRET")

	userRepo := newFakeUserRepo()
	authService := service.NewAuthService(testLogger(), userRepo, time.Hour)
	ctx := context.Background()

	user, token, err := authService.Signup(ctx, "John Doe", "john@example.com", "password123")
	assert.NoError(t, err)
	assert.NotZero(t, user.ID)
	assert.NotEmpty(t, token)

	loggedIn, token2, err := authService.Login(ctx, "john@example.com", "password123")
	assert.NoError(t, err)
	assert.Equal(t, user.ID, loggedIn.ID)
	assert.NotEmpty(t, token2)
}

func TestSignup_DuplicateEmail(t *testing.T) {
	os.Setenv("JWT_SECRET", "testsecret")
	defer os.Unsetenv("JWT_SECRET")

	userRepo := newFakeUserRepo()
	authService := service.NewAuthService(testLogger(), userRepo, time.Hour)
	ctx := context.Background()

	_, _, err := authService.Signup(ctx, "John Doe", "john@example.com", "password123")
	assert.NoError(t, err)

	// a different password makes no difference
	_, _, err = authService.Signup(ctx, "Jane Doe", "john@example.com", "otherpassword")
	assert.ErrorIs(t, err, storage.ErrEmailTaken)
}

func TestLogin_WrongPassword(t *testing.T) {
	os.Setenv("JWT_SECRET", "testsecret")
	defer os.Unsetenv("JWT_SECRET")

	userRepo := newFakeUserRepo()
	authService := service.NewAuthService(testLogger(), userRepo, time.Hour)
	ctx := context.Background()

	_, _, err := authService.Signup(ctx, "John Doe", "john@example.com", "password123")
	assert.NoError(t, err)

	_, _, err = authService.Login(ctx, "john@example.com", "wrongpassword")
	assert.ErrorIs(t, err, service.ErrInvalidCredentials)
}

func TestLogin_UnknownEmail(t *testing.T) {
	authService := service.NewAuthService(testLogger(), newFakeUserRepo(), time.Hour)

	_, _, err := authService.Login(context.Background(), "nobody@example.com", "password123")
	assert.ErrorIs(t, err, service.ErrInvalidCredentials)
}

func TestLogin_MalformedStoredHash(t *testing.T) {
	userRepo := newFakeUserRepo()
	userRepo.users["broken@example.com"] = &models.User{
		ID:       1,
		Email:    "broken@example.com",
		PassHash: []byte("not-a-bcrypt-hash"),
	}
	authService := service.NewAuthService(testLogger(), userRepo, time.Hour)

	// a malformed hash is a verification failure, not a crash
	_, _, err := authService.Login(context.Background(), "broken@example.com", "password123")
	assert.ErrorIs(t, err, service.ErrInvalidCredentials)
}

func TestBcryptVerifyProperty(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	assert.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword(hash, []byte("password123")))
	assert.Error(t, bcrypt.CompareHashAndPassword(hash, []byte("password124")))
}

func TestPlaceOrder_Success(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	productRepo := newFakeProductRepo(
		&models.Product{ID: 1, Name: "Sneaker", Price: 10.00, Stock: 5},
		&models.Product{ID: 2, Name: "Cap", Price: 15.50, Stock: 2},
	)
	orderRepo := newFakeOrderRepo()
	orderService := service.NewOrderService(testLogger(), db, productRepo, orderRepo)

	mock.ExpectBegin()
	mock.ExpectCommit()

	result, err := orderService.PlaceOrder(context.Background(), 1, []service.OrderItemInput{
		{ProductID: 1, Quantity: 2},
		{ProductID: 2, Quantity: 1},
	})
	assert.NoError(t, err)
	assert.Equal(t, 35.50, result.TotalAmount)
	assert.Equal(t, 2, result.ItemsCount)
	assert.NotEmpty(t, result.Reference)

	// stock decremented by exactly the requested quantities
	assert.Equal(t, 3, productRepo.products[1].Stock)
	assert.Equal(t, 1, productRepo.products[2].Stock)

	// one order, captured prices on the items
	assert.Len(t, orderRepo.orders, 1)
	items := orderRepo.items[result.OrderID]
	assert.Len(t, items, 2)
	assert.Equal(t, 10.00, items[0].Price)
	assert.Equal(t, 15.50, items[1].Price)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPlaceOrder_EmptyItems(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	orderService := service.NewOrderService(testLogger(), db, newFakeProductRepo(), newFakeOrderRepo())

	_, err = orderService.PlaceOrder(context.Background(), 1, nil)
	assert.ErrorIs(t, err, service.ErrEmptyOrder)

	// no transaction was even started
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPlaceOrder_InvalidItem(t *testing.T) {
	db, _, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	orderService := service.NewOrderService(testLogger(), db, newFakeProductRepo(), newFakeOrderRepo())

	_, err = orderService.PlaceOrder(context.Background(), 1, []service.OrderItemInput{
		{ProductID: 1, Quantity: 1},
		{ProductID: 2, Quantity: 0},
	})

	var invalidItem *service.InvalidOrderItemError
	assert.ErrorAs(t, err, &invalidItem)
	assert.Equal(t, 1, invalidItem.Index)
}

func TestPlaceOrder_ProductNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	productRepo := newFakeProductRepo(&models.Product{ID: 1, Price: 10, Stock: 5})
	orderRepo := newFakeOrderRepo()
	orderService := service.NewOrderService(testLogger(), db, productRepo, orderRepo)

	mock.ExpectBegin()
	mock.ExpectRollback()

	_, err = orderService.PlaceOrder(context.Background(), 1, []service.OrderItemInput{
		{ProductID: 1, Quantity: 1},
		{ProductID: 99, Quantity: 1},
	})

	var notFound *service.ProductNotFoundError
	assert.ErrorAs(t, err, &notFound)
	assert.Equal(t, int64(99), notFound.ProductID)
	assert.ErrorIs(t, err, storage.ErrProductNotFound)

	// nothing persisted, stock untouched
	assert.Empty(t, orderRepo.orders)
	assert.Equal(t, 5, productRepo.products[1].Stock)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPlaceOrder_InsufficientStock_NoPartialWrites(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	// product 1 could be fulfilled, product 2 cannot: the whole order fails
	productRepo := newFakeProductRepo(
		&models.Product{ID: 1, Price: 10, Stock: 5},
		&models.Product{ID: 2, Price: 20, Stock: 0},
	)
	orderRepo := newFakeOrderRepo()
	orderService := service.NewOrderService(testLogger(), db, productRepo, orderRepo)

	mock.ExpectBegin()
	mock.ExpectRollback()

	_, err = orderService.PlaceOrder(context.Background(), 1, []service.OrderItemInput{
		{ProductID: 1, Quantity: 3},
		{ProductID: 2, Quantity: 1},
	})

	var insufficient *service.InsufficientStockError
	assert.ErrorAs(t, err, &insufficient)
	assert.Equal(t, int64(2), insufficient.ProductID)

	assert.Empty(t, orderRepo.orders)
	assert.Equal(t, 5, productRepo.products[1].Stock)
	assert.Equal(t, 0, productRepo.products[2].Stock)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// raceProductRepo reports enough stock at lock time but fails the
// conditional decrement, the way a lost race to the last unit looks.
type raceProductRepo struct {
	*fakeProductRepo
}

func (f *raceProductRepo) DecrementStockTx(ctx context.Context, tx *sql.Tx, id int64, quantity int) error {
	return storage.ErrInsufficientStock
}

func TestPlaceOrder_DecrementLosesRace(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	productRepo := &raceProductRepo{newFakeProductRepo(&models.Product{ID: 1, Price: 10, Stock: 1})}
	orderRepo := newFakeOrderRepo()
	orderService := service.NewOrderService(testLogger(), db, productRepo, orderRepo)

	mock.ExpectBegin()
	mock.ExpectRollback()

	_, err = orderService.PlaceOrder(context.Background(), 1, []service.OrderItemInput{
		{ProductID: 1, Quantity: 1},
	})

	var insufficient *service.InsufficientStockError
	assert.ErrorAs(t, err, &insufficient)
	assert.Equal(t, int64(1), insufficient.ProductID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetOrder_Forbidden(t *testing.T) {
	orderRepo := newFakeOrderRepo()
	orderRepo.orders[1] = &models.Order{ID: 1, UserID: 42, TotalAmount: 20}
	orderService := service.NewOrderService(testLogger(), nil, newFakeProductRepo(), orderRepo)

	// the order exists, but the requester is not the owner
	_, err := orderService.GetOrder(context.Background(), 7, 1)
	assert.ErrorIs(t, err, service.ErrForbidden)
}

func TestGetOrder_NotFound(t *testing.T) {
	orderService := service.NewOrderService(testLogger(), nil, newFakeProductRepo(), newFakeOrderRepo())

	_, err := orderService.GetOrder(context.Background(), 7, 99)
	assert.ErrorIs(t, err, storage.ErrOrderNotFound)
}

func TestGetOrder_Success(t *testing.T) {
	orderRepo := newFakeOrderRepo()
	orderRepo.orders[1] = &models.Order{ID: 1, UserID: 42, TotalAmount: 20}
	orderRepo.items[1] = []*models.OrderItem{{ID: 1, OrderID: 1, ProductID: 3, Quantity: 2, Price: 10}}
	orderService := service.NewOrderService(testLogger(), nil, newFakeProductRepo(), orderRepo)

	order, err := orderService.GetOrder(context.Background(), 42, 1)
	assert.NoError(t, err)
	assert.Len(t, order.Items, 1)
	assert.Equal(t, int64(3), order.Items[0].ProductID)
}

func TestListUserOrders_Forbidden(t *testing.T) {
	orderService := service.NewOrderService(testLogger(), nil, newFakeProductRepo(), newFakeOrderRepo())

	_, err := orderService.ListUserOrders(context.Background(), 7, 8)
	assert.ErrorIs(t, err, service.ErrForbidden)
}

func TestListUserOrders_Success(t *testing.T) {
	orderRepo := newFakeOrderRepo()
	orderRepo.orders[1] = &models.Order{ID: 1, UserID: 7, TotalAmount: 20}
	orderRepo.items[1] = []*models.OrderItem{{ID: 1, OrderID: 1, ProductID: 3, Quantity: 2, Price: 10}}
	orderService := service.NewOrderService(testLogger(), nil, newFakeProductRepo(), orderRepo)

	orders, err := orderService.ListUserOrders(context.Background(), 7, 7)
	assert.NoError(t, err)
	assert.Len(t, orders, 1)
	assert.Len(t, orders[0].Items, 1)
}
