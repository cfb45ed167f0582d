package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"livey-backend/internal/errs"
	"livey-backend/internal/google"
	"livey-backend/internal/models"
)

var (
	sellerA   = uuid.MustParse("6c1f2f54-5d2c-4a0a-9d0e-6a3f6b1d1a01")
	productA  = uuid.MustParse("0b8f6a3c-1f77-4a1e-8f43-3a9d2c6e2b02")
	fixedTime = time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC)
	errDB     = errors.New("db is down")
)

func intPtr(v int) *int { return &v }

type fakeOrders struct {
	mu       sync.Mutex
	byID     map[uuid.UUID]*models.Order
	numbers  map[string]bool
	createFn func(o *models.Order) error

	markSyncedErr error
	listErr       error
	synced        map[uuid.UUID]int
	failed        map[uuid.UUID]int
}

func newFakeOrders() *fakeOrders {
	return &fakeOrders{
		byID:    map[uuid.UUID]*models.Order{},
		numbers: map[string]bool{},
		synced:  map[uuid.UUID]int{},
		failed:  map[uuid.UUID]int{},
	}
}

func (f *fakeOrders) add(o models.Order) *models.Order {
	f.mu.Lock()
	defer f.mu.Unlock()
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	stored := o
	f.byID[o.ID] = &stored
	f.numbers[o.OrderNumber] = true
	return &o
}

func (f *fakeOrders) Create(_ context.Context, o *models.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createFn != nil {
		if err := f.createFn(o); err != nil {
			return err
		}
	}
	if f.numbers[o.OrderNumber] {
		return errs.ErrAlreadyExists
	}
	o.ID = uuid.New()
	o.CreatedAt = fixedTime
	cp := *o
	f.byID[o.ID] = &cp
	f.numbers[o.OrderNumber] = true
	return nil
}

func (f *fakeOrders) GetForSeller(_ context.Context, sellerID, id uuid.UUID) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.byID[id]
	if !ok || o.SellerID != sellerID {
		return nil, errs.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (f *fakeOrders) ListForSeller(_ context.Context, sellerID uuid.UUID, limit, offset int) ([]models.Order, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, 0, f.listErr
	}
	var all []models.Order
	for _, o := range f.byID {
		if o.SellerID == sellerID {
			all = append(all, *o)
		}
	}
	total := len(all)
	if offset > total {
		offset = total
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

func (f *fakeOrders) UpdateStatus(_ context.Context, sellerID, id uuid.UUID, status models.OrderStatus) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.byID[id]
	if !ok || o.SellerID != sellerID {
		return nil, errs.ErrNotFound
	}
	o.Status = status
	now := fixedTime
	o.UpdatedAt = &now
	cp := *o
	return &cp, nil
}

func (f *fakeOrders) MarkSynced(_ context.Context, id uuid.UUID, row int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.markSyncedErr != nil {
		return f.markSyncedErr
	}
	f.synced[id] = row
	if o, ok := f.byID[id]; ok {
		o.Synced = true
		if row > 0 {
			o.SheetRowNumber = intPtr(row)
		}
	}
	return nil
}

func (f *fakeOrders) MarkSyncFailed(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failed[id]++
	if o, ok := f.byID[id]; ok {
		o.SyncRetryCount++
	}
	return nil
}

func (f *fakeOrders) ListUnsynced(_ context.Context, maxRetries, limit int) ([]models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []models.Order
	for _, o := range f.byID {
		if !o.Synced && o.SyncRetryCount < maxRetries && len(out) < limit {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (f *fakeOrders) CountUnsynced(_ context.Context, sellerID uuid.UUID) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, o := range f.byID {
		if o.SellerID == sellerID && !o.Synced {
			n++
		}
	}
	return n, nil
}

func (f *fakeOrders) syncedRow(id uuid.UUID) (int, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.synced[id]
	return row, ok
}

func (f *fakeOrders) failures(id uuid.UUID) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.failed[id]
}

type fakeProducts struct {
	products     map[uuid.UUID]*models.Product
	decrementErr error
	decrements   []int
	restored     []int
	strictCalls  []bool
}

func newFakeProducts(p ...models.Product) *fakeProducts {
	f := &fakeProducts{products: map[uuid.UUID]*models.Product{}}
	for i := range p {
		f.products[p[i].ID] = &p[i]
	}
	return f
}

func (f *fakeProducts) GetActive(_ context.Context, id uuid.UUID) (*models.Product, error) {
	p, ok := f.products[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeProducts) DecrementStock(_ context.Context, id uuid.UUID, qty int, strict bool) (int, error) {
	f.strictCalls = append(f.strictCalls, strict)
	if f.decrementErr != nil {
		return 0, f.decrementErr
	}
	p := f.products[id]
	if strict && *p.Stock < qty {
		return 0, errs.ErrOutOfStock
	}
	taken := min(qty, *p.Stock)
	*p.Stock -= taken
	f.decrements = append(f.decrements, taken)
	return taken, nil
}

func (f *fakeProducts) RestoreStock(_ context.Context, id uuid.UUID, qty int) error {
	*f.products[id].Stock += qty
	f.restored = append(f.restored, qty)
	return nil
}

type tokenUpdate struct {
	access  string
	expiry  time.Time
	refresh string
}

type fakeConnections struct {
	mu       sync.Mutex
	bySeller map[uuid.UUID]*models.SheetsConnection
	getErr   error
	upsertFn func(c *models.SheetsConnection) error
	deleted  []uuid.UUID
	updates  []tokenUpdate
	touched  int
}

func newFakeConnections(c ...models.SheetsConnection) *fakeConnections {
	f := &fakeConnections{bySeller: map[uuid.UUID]*models.SheetsConnection{}}
	for i := range c {
		f.bySeller[c[i].SellerID] = &c[i]
	}
	return f
}

func (f *fakeConnections) GetBySeller(_ context.Context, sellerID uuid.UUID) (*models.SheetsConnection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	c, ok := f.bySeller[sellerID]
	if !ok {
		return nil, errs.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (f *fakeConnections) Upsert(_ context.Context, c *models.SheetsConnection) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.upsertFn != nil {
		if err := f.upsertFn(c); err != nil {
			return err
		}
	}
	c.ID = uuid.New()
	c.ConnectedAt = fixedTime
	cp := *c
	f.bySeller[c.SellerID] = &cp
	return nil
}

func (f *fakeConnections) UpdateTokens(_ context.Context, sellerID uuid.UUID, access string, expiresAt time.Time, refresh string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, tokenUpdate{access: access, expiry: expiresAt, refresh: refresh})
	if c, ok := f.bySeller[sellerID]; ok {
		c.AccessToken = access
		c.TokenExpiresAt = expiresAt
		if refresh != "" {
			c.RefreshTokenEncrypted = refresh
		}
	}
	return nil
}

func (f *fakeConnections) TouchLastSync(_ context.Context, sellerID uuid.UUID, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.touched++
	if c, ok := f.bySeller[sellerID]; ok {
		c.LastSyncAt = &at
	}
	return nil
}

func (f *fakeConnections) DeleteBySeller(_ context.Context, sellerID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.bySeller[sellerID]; !ok {
		return errs.ErrNotFound
	}
	delete(f.bySeller, sellerID)
	f.deleted = append(f.deleted, sellerID)
	return nil
}

func (f *fakeConnections) has(sellerID uuid.UUID) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.bySeller[sellerID]
	return ok
}

type fakeAuth struct {
	authURL    string
	stateOwner map[string]uuid.UUID
	exchange   *google.Tokens
	exchErr    error
	refresh    *google.Tokens
	refreshErr error
	refreshes  int
	revoked    []string
	revokeErr  error
}

func (f *fakeAuth) AuthURL(_ context.Context, sellerID uuid.UUID) (string, error) {
	return f.authURL + "?seller=" + sellerID.String(), nil
}

func (f *fakeAuth) ValidateState(_ context.Context, state string) (uuid.UUID, bool, error) {
	id, ok := f.stateOwner[state]
	delete(f.stateOwner, state)
	return id, ok, nil
}

func (f *fakeAuth) ExchangeCode(_ context.Context, _ string) (*google.Tokens, error) {
	if f.exchErr != nil {
		return nil, f.exchErr
	}
	return f.exchange, nil
}

func (f *fakeAuth) RefreshAccessToken(_ context.Context, _ string) (*google.Tokens, error) {
	f.refreshes++
	if f.refreshErr != nil {
		return nil, f.refreshErr
	}
	return f.refresh, nil
}

func (f *fakeAuth) RevokeToken(_ context.Context, token string) error {
	f.revoked = append(f.revoked, token)
	return f.revokeErr
}

type fakeSheets struct {
	mu        sync.Mutex
	appendRow int
	appendErr error
	appended  []string
	tokens    []string
	created   []string
	createErr error
	title     string
	testErr   error
}

func (f *fakeSheets) CreateSpreadsheet(_ context.Context, _, title string) (*google.Spreadsheet, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created = append(f.created, title)
	return &google.Spreadsheet{ID: "sheet-1", URL: "https://docs.google.com/spreadsheets/d/sheet-1"}, nil
}

func (f *fakeSheets) AppendOrderRow(_ context.Context, accessToken, _ string, o *models.Order) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens = append(f.tokens, accessToken)
	if f.appendErr != nil {
		return 0, f.appendErr
	}
	f.appended = append(f.appended, o.OrderNumber)
	return f.appendRow, nil
}

func (f *fakeSheets) TestConnection(_ context.Context, _, _ string) (string, error) {
	if f.testErr != nil {
		return "", f.testErr
	}
	return f.title, nil
}

func (f *fakeSheets) appendCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.appended)
}

// prefixCipher marks sealed values so tests can see what was encrypted.
type prefixCipher struct{ fail bool }

func (c prefixCipher) Encrypt(s string) (string, error) {
	if c.fail {
		return "", errors.New("seal failed")
	}
	return "enc:" + s, nil
}

func (c prefixCipher) Decrypt(s string) (string, error) {
	if c.fail || !strings.HasPrefix(s, "enc:") {
		return "", errors.New("malformed ciphertext")
	}
	return strings.TrimPrefix(s, "enc:"), nil
}

type recordingQueue struct {
	mu     sync.Mutex
	orders []models.Order
}

func (q *recordingQueue) Enqueue(o models.Order) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.orders = append(q.orders, o)
	return true
}
