// Command seed fills a development database with sample users, parties,
// items and orders. Part of the generated orders are completed so the
// movement history is not empty.
package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"math/rand"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/safar/wareq/internal/clock"
	"github.com/safar/wareq/internal/config"
	"github.com/safar/wareq/internal/database"
	"github.com/safar/wareq/internal/logger"
	"github.com/safar/wareq/internal/models"
	"github.com/safar/wareq/internal/store"
	"github.com/shopspring/decimal"
)

type counts struct {
	users, customers, suppliers, items, orders int
}

func main() {
	var n counts
	flag.IntVar(&n.users, "users", 5, "number of users")
	flag.IntVar(&n.customers, "customers", 20, "number of customers")
	flag.IntVar(&n.suppliers, "suppliers", 10, "number of suppliers")
	flag.IntVar(&n.items, "items", 50, "number of items")
	flag.IntVar(&n.orders, "orders", 100, "number of orders")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		l := logger.New(logger.Config{})
		l.Fatal().Err(err).Msg("load config")
	}

	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.Log.Level})
	ctx := logger.WithContext(context.Background(), log)

	db, err := database.NewConnection(ctx, &cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("connect to database")
	}
	defer db.Close()

	s := &seeder{db: db, clock: clock.System(), rnd: rand.New(rand.NewSource(rand.Int63()))}
	if err := s.run(ctx, n); err != nil {
		log.Fatal().Err(err).Msg("seed database")
	}

	log.Info().
		Int("users", len(s.users)).
		Int("customers", len(s.customers)).
		Int("suppliers", len(s.suppliers)).
		Int("items", len(s.items)).
		Int("orders", s.orders).
		Msg("sample data generated")
}

type seeder struct {
	db    *sql.DB
	clock clock.Clock
	rnd   *rand.Rand

	users     []int64
	customers []int64
	suppliers []int64
	items     []models.Item
	orders    int
}

func (s *seeder) run(ctx context.Context, n counts) error {
	for i := 0; i < n.users; i++ {
		tag := shortTag()
		roles := []models.Role{models.RoleAdmin, models.RoleManager, models.RoleStaff, models.RoleViewer}
		u, err := store.CreateUser(ctx, s.db, "user-"+tag+"@example.com", "User "+tag, roles[i%len(roles)])
		if skip(err) {
			continue
		}
		if err != nil {
			return err
		}
		s.users = append(s.users, u.ID)
	}

	for i := 0; i < n.customers; i++ {
		c, err := store.CreateCustomer(ctx, s.db, models.Customer{Party: s.party("Customer")})
		if skip(err) {
			continue
		}
		if err != nil {
			return err
		}
		s.customers = append(s.customers, c.ID)
	}

	for i := 0; i < n.suppliers; i++ {
		sp, err := store.CreateSupplier(ctx, s.db, models.Supplier{Party: s.party("Supplier")})
		if skip(err) {
			continue
		}
		if err != nil {
			return err
		}
		s.suppliers = append(s.suppliers, sp.ID)
	}

	for i := 0; i < n.items; i++ {
		item, err := store.CreateItem(ctx, s.db, s.clock, s.item(), s.actor())
		if skip(err) {
			continue
		}
		if err != nil {
			return err
		}
		s.items = append(s.items, *item)
	}

	if len(s.items) == 0 || len(s.customers) == 0 || len(s.suppliers) == 0 {
		return nil
	}

	for i := 0; i < n.orders; i++ {
		if err := s.order(ctx); err != nil {
			return err
		}
	}

	return nil
}

func (s *seeder) party(prefix string) models.Party {
	tag := shortTag()
	return models.Party{
		Name:    fmt.Sprintf("%s %s", prefix, tag),
		Email:   strings.ToLower(prefix) + "-" + tag + "@example.com",
		Phone:   fmt.Sprintf("+1-555-%04d", s.rnd.Intn(10000)),
		Address: fmt.Sprintf("%d Market Street", 1+s.rnd.Intn(999)),
	}
}

func (s *seeder) item() models.Item {
	tag := strings.ToUpper(shortTag())
	item := models.Item{
		SKU:      "SKU-" + tag,
		Name:     "Item " + tag,
		Price:    decimal.New(int64(100+s.rnd.Intn(99900)), -2),
		Quantity: s.rnd.Intn(200),
	}
	if len(s.suppliers) > 0 {
		supplier := s.suppliers[s.rnd.Intn(len(s.suppliers))]
		item.SupplierID = &supplier
	}
	return item
}

func (s *seeder) actor() *int64 {
	if len(s.users) == 0 {
		return nil
	}
	id := s.users[s.rnd.Intn(len(s.users))]
	return &id
}

// order creates one order with 1-4 lines and moves it forward a random
// number of steps. A SALE that cannot be fulfilled stays where it is.
func (s *seeder) order(ctx context.Context) error {
	req := store.CreateOrderRequest{Kind: models.OrderKindSale}
	if s.rnd.Intn(3) == 0 {
		req.Kind = models.OrderKindPurchase
		id := s.suppliers[s.rnd.Intn(len(s.suppliers))]
		req.SupplierID = &id
	} else {
		id := s.customers[s.rnd.Intn(len(s.customers))]
		req.CustomerID = &id
	}

	for n := 1 + s.rnd.Intn(4); n > 0; n-- {
		item := s.items[s.rnd.Intn(len(s.items))]
		req.Lines = append(req.Lines, store.OrderLineRequest{ItemID: item.ID, Quantity: 1 + s.rnd.Intn(10)})
	}

	order, err := store.CreateOrder(ctx, s.db, s.clock, req)
	if err != nil {
		return err
	}
	s.orders++

	var path []models.OrderStatus
	switch s.rnd.Intn(4) {
	case 0:
	case 1:
		path = []models.OrderStatus{models.OrderStatusProcessing}
	case 2:
		path = []models.OrderStatus{models.OrderStatusProcessing, models.OrderStatusCompleted}
	case 3:
		path = []models.OrderStatus{models.OrderStatusCancelled}
	}

	for _, status := range path {
		_, err := store.UpdateOrderStatus(ctx, s.db, s.clock, order.ID, status, s.actor())
		if errors.Is(err, models.ErrCannotFulfillOrder) {
			zerolog.Ctx(ctx).Debug().Str("order_number", order.OrderNumber).Msg("left unfulfilled")
			return nil
		}
		if err != nil {
			return err
		}
	}

	return nil
}

func skip(err error) bool {
	return errors.Is(err, database.ErrDuplicate)
}

func shortTag() string {
	return uuid.NewString()[:8]
}
