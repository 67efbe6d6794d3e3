package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"spazatrack/internal/authz"
	"spazatrack/internal/dto"
	"spazatrack/internal/infra"
	"spazatrack/internal/repository"
	"spazatrack/internal/security"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// stepClock returns strictly increasing instants, one second apart, so that
// ordering by timestamp is deterministic.
type stepClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

func (c *stepClock) Set(t time.Time) {
	c.mu.Lock()
	c.t = t
	c.mu.Unlock()
}

type testEnv struct {
	db       *gorm.DB
	mr       *miniredis.Miniredis
	clock    *stepClock
	opts     Options
	users    repository.UserRepository
	shops    repository.ShopRepository
	products repository.ProductRepository
	sales    repository.SaleRepository
	activity repository.ActivityRepository
	journal  *Journal
	tokens   *security.TokenManager
	guard    *authz.Guard

	auth     AuthService
	ledger   ProductService
	recorder SaleService
	journalQ ActivityService
	stats    StatsService
	reports  ReportService
}

const (
	testThreshold = 3
	testRecent    = 10
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := infra.NewDatabase("sqlite", "file:"+uuid.NewString()+"?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func newEnv(t *testing.T) *testEnv {
	t.Helper()
	e := &testEnv{db: newTestDB(t), mr: miniredis.RunT(t)}
	e.clock = &stepClock{t: time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)}
	e.opts = Options{Now: e.clock.Now, Location: time.UTC, OpTimeout: 5 * time.Second}

	e.users = repository.NewUserRepository(e.db)
	e.shops = repository.NewShopRepository(e.db)
	e.products = repository.NewProductRepository(e.db)
	e.sales = repository.NewSaleRepository(e.db)
	e.activity = repository.NewActivityRepository(e.db)
	e.journal = NewJournal(e.activity, e.clock.Now)

	rdb := redis.NewClient(&redis.Options{Addr: e.mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	revocations := security.NewRevocationStore(rdb)

	e.tokens = security.NewTokenManager("test-secret", time.Hour)
	e.guard = authz.NewGuard(e.tokens, e.users, revocations)

	e.auth = NewAuthService(e.db, e.users, e.shops, e.journal, security.NewBcryptHasher(bcrypt.MinCost), e.tokens, e.guard, revocations, e.opts)
	e.ledger = NewProductService(e.db, e.products, e.journal, e.opts)
	e.recorder = NewSaleService(e.db, e.products, e.sales, e.journal, nil, nil, testThreshold, e.opts)
	e.journalQ = NewActivityService(e.activity, 50, e.opts)
	e.stats = NewStatsService(e.products, e.sales, testThreshold, testRecent, e.opts)
	e.reports = NewReportService(e.shops, e.sales, e.opts)
	return e
}

// registerAdmin opens a new shop and returns its admin principal.
func (e *testEnv) registerAdmin(t *testing.T, username string) *authz.Principal {
	t.Helper()
	resp, err := e.auth.Register(context.Background(), nil, dto.RegisterRequest{
		Username: username,
		Email:    username + "@shop.test",
		Password: "secret-pw",
		FullName: "Admin " + username,
		Role:     "admin",
	}, "")
	require.NoError(t, err)
	p, err := e.auth.VerifyToken(context.Background(), resp.AccessToken)
	require.NoError(t, err)
	return p
}

// addStaff creates a user in admin's shop and returns its principal.
func (e *testEnv) addStaff(t *testing.T, admin *authz.Principal, username, role string) *authz.Principal {
	t.Helper()
	resp, err := e.auth.Register(context.Background(), admin, dto.RegisterRequest{
		Username: username,
		Email:    username + "@shop.test",
		Password: "secret-pw",
		Role:     role,
	}, "")
	require.NoError(t, err)
	p, err := e.auth.VerifyToken(context.Background(), resp.AccessToken)
	require.NoError(t, err)
	return p
}

func (e *testEnv) addProduct(t *testing.T, p *authz.Principal, name, cost, sell string, qty int) dto.ProductResponse {
	t.Helper()
	resp, err := e.ledger.Create(context.Background(), p, dto.CreateProductRequest{
		Name:         name,
		CostPrice:    decimal.RequireFromString(cost),
		SellingPrice: decimal.RequireFromString(sell),
		Quantity:     qty,
	})
	require.NoError(t, err)
	return *resp
}

func (e *testEnv) sell(t *testing.T, p *authz.Principal, productID string, qty int) dto.SaleResponse {
	t.Helper()
	resp, err := e.recorder.RecordSale(context.Background(), p, dto.RecordSaleRequest{ProductID: productID, QuantitySold: qty})
	require.NoError(t, err)
	return *resp
}

func mustUUID(t *testing.T, s string) uuid.UUID {
	t.Helper()
	id, err := uuid.Parse(s)
	require.NoError(t, err)
	return id
}
