package service

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"cartease/internal/domain"
	"cartease/internal/repository"
	"cartease/internal/storage"
)

// ---- in-memory fakes for the repository interfaces ----

type fakeUserRepo struct {
	mu     sync.Mutex
	users  map[int64]domain.User
	nextID int64
	addErr error
	// pretend the subject is absent for this many lookups, to simulate
	// losing a provisioning race
	missLookups int
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[int64]domain.User{}}
}

func (f *fakeUserRepo) Init(ctx context.Context) error { return nil }

func (f *fakeUserRepo) Exists(ctx context.Context, id int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.users[id]
	return ok, nil
}

func (f *fakeUserRepo) List(ctx context.Context) ([]domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.User
	for _, u := range f.users {
		out = append(out, u)
	}
	return out, nil
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

func (f *fakeUserRepo) GetByAuthProviderID(ctx context.Context, providerID string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.missLookups > 0 {
		f.missLookups--
		return nil, repository.ErrNotFound
	}
	for _, u := range f.users {
		if u.AuthProviderID == providerID {
			copied := u
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeUserRepo) Add(ctx context.Context, user *domain.User) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.addErr != nil {
		return 0, f.addErr
	}
	// mirror the unique indexes on auth_provider_id and username
	for _, u := range f.users {
		if u.AuthProviderID == user.AuthProviderID || u.Username == user.Username {
			return 0, repository.ErrDuplicate
		}
	}
	f.nextID++
	user.ID = f.nextID
	f.users[user.ID] = *user
	return user.ID, nil
}

func (f *fakeUserRepo) Update(ctx context.Context, user *domain.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[user.ID] = *user
	return nil
}

func (f *fakeUserRepo) Delete(ctx context.Context, user *domain.User) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[user.ID]; !ok {
		return false, nil
	}
	delete(f.users, user.ID)
	return true, nil
}

type fakeItemRepo struct {
	mu           sync.Mutex
	items        map[int64]domain.CartItem
	nextID       int64
	addCalls     int
	updateCalls  int
	addErr       error
	updateErr    error
	getForUserFn func(id, userID int64) (*domain.CartItem, error)
}

func newFakeItemRepo() *fakeItemRepo {
	return &fakeItemRepo{items: map[int64]domain.CartItem{}}
}

func (f *fakeItemRepo) Init(ctx context.Context) error { return nil }

func (f *fakeItemRepo) Exists(ctx context.Context, id int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.items[id]
	return ok, nil
}

func (f *fakeItemRepo) List(ctx context.Context) ([]domain.CartItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.CartItem
	for _, item := range f.items {
		out = append(out, item)
	}
	return out, nil
}

func (f *fakeItemRepo) ListByUser(ctx context.Context, userID int64) ([]domain.CartItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.CartItem
	for _, item := range f.items {
		if item.UserID == userID {
			out = append(out, item)
		}
	}
	return out, nil
}

func (f *fakeItemRepo) GetByID(ctx context.Context, id int64) (*domain.CartItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	item, ok := f.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &item, nil
}

func (f *fakeItemRepo) GetForUser(ctx context.Context, id, userID int64) (*domain.CartItem, error) {
	if f.getForUserFn != nil {
		return f.getForUserFn(id, userID)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	item, ok := f.items[id]
	if !ok || item.UserID != userID {
		return nil, repository.ErrNotFound
	}
	return &item, nil
}

func (f *fakeItemRepo) Add(ctx context.Context, item *domain.CartItem) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.addCalls++
	if f.addErr != nil {
		return 0, f.addErr
	}
	f.nextID++
	item.ID = f.nextID
	f.items[item.ID] = *item
	return item.ID, nil
}

func (f *fakeItemRepo) Update(ctx context.Context, item *domain.CartItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updateCalls++
	if f.updateErr != nil {
		return f.updateErr
	}
	f.items[item.ID] = *item
	return nil
}

func (f *fakeItemRepo) Delete(ctx context.Context, item *domain.CartItem) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.items[item.ID]; !ok {
		return false, nil
	}
	delete(f.items, item.ID)
	return true, nil
}

type fakeImageRepo struct {
	mu       sync.Mutex
	images   map[int64]domain.ItemImage
	nextID   int64
	addCalls int
	addErr   error
	listErr  error
}

func newFakeImageRepo() *fakeImageRepo {
	return &fakeImageRepo{images: map[int64]domain.ItemImage{}}
}

func (f *fakeImageRepo) Init(ctx context.Context) error { return nil }

func (f *fakeImageRepo) Exists(ctx context.Context, id int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.images[id]
	return ok, nil
}

func (f *fakeImageRepo) List(ctx context.Context) ([]domain.ItemImage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.ItemImage
	for _, img := range f.images {
		out = append(out, img)
	}
	return out, nil
}

func (f *fakeImageRepo) ListByItem(ctx context.Context, cartItemID int64) ([]domain.ItemImage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []domain.ItemImage
	for _, img := range f.images {
		if img.CartItemID == cartItemID {
			out = append(out, img)
		}
	}
	return out, nil
}

func (f *fakeImageRepo) GetByID(ctx context.Context, id int64) (*domain.ItemImage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	img, ok := f.images[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &img, nil
}

func (f *fakeImageRepo) GetForItem(ctx context.Context, id, cartItemID int64) (*domain.ItemImage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	img, ok := f.images[id]
	if !ok || img.CartItemID != cartItemID {
		return nil, repository.ErrNotFound
	}
	return &img, nil
}

func (f *fakeImageRepo) Add(ctx context.Context, img *domain.ItemImage) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.addCalls++
	if f.addErr != nil {
		return 0, f.addErr
	}
	f.nextID++
	img.ID = f.nextID
	f.images[img.ID] = *img
	return img.ID, nil
}

func (f *fakeImageRepo) Update(ctx context.Context, img *domain.ItemImage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.images[img.ID] = *img
	return nil
}

func (f *fakeImageRepo) Delete(ctx context.Context, img *domain.ItemImage) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.images[img.ID]; !ok {
		return false, nil
	}
	delete(f.images, img.ID)
	return true, nil
}

type fakeStore struct {
	mu        sync.Mutex
	uploads   []string
	deletes   []string
	uploadErr error
}

func (f *fakeStore) Upload(ctx context.Context, bucket, key, contentType string, body io.Reader) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	f.uploads = append(f.uploads, key)
	return fmt.Sprintf("s3://%s/%s", bucket, key), nil
}

func (f *fakeStore) DeletePrefix(ctx context.Context, bucket, prefix string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, prefix)
	return nil
}

// ---- harness ----

type cartFixture struct {
	users  *fakeUserRepo
	items  *fakeItemRepo
	images *fakeImageRepo
	store  *fakeStore
	svc    CartService
}

func newCartFixture(t *testing.T) *cartFixture {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	f := &cartFixture{
		users:  newFakeUserRepo(),
		items:  newFakeItemRepo(),
		images: newFakeImageRepo(),
		store:  &fakeStore{},
	}
	identities := NewIdentityService(f.users, logger)
	f.svc = NewCartService(identities, f.items, f.images, f.store, storage.UploadOptions{
		Bucket:    "test-bucket",
		KeyPrefix: "cartease-images",
	}, logger)
	return f
}

// caller builds an identity with full claims so auto-provisioning succeeds.
func caller(subject string) domain.Identity {
	return domain.Identity{
		Subject: subject,
		Name:    "Jamie Doe",
		Email:   subject + "@example.com",
	}
}

func validInput() CartItemInput {
	return CartItemInput{
		Name:        "Book",
		Description: "paperback",
		Price:       decimal.NewFromInt(10),
		Quantity:    1,
	}
}

func validImage() domain.ItemImage {
	return domain.ItemImage{
		FileName:    "cover.png",
		FileBytes:   []byte{0x89, 0x50, 0x4e, 0x47},
		ContentType: "image/png",
		Length:      4,
		Name:        "cover",
	}
}

// ---- tests ----

func TestIDScopedOperationsRejectNonPositiveIDs(t *testing.T) {
	f := newCartFixture(t)
	ctx := context.Background()
	id := caller("u1")

	for _, itemID := range []int64{0, -1} {
		if resp := f.svc.GetItemDetails(ctx, id, itemID); resp.IsSuccessful || resp.Code != CodeInvalidArgument {
			t.Errorf("GetItemDetails(%d): got %+v, want invalid_argument", itemID, resp)
		}
		if resp := f.svc.UpdateItem(ctx, id, itemID, validInput()); resp.IsSuccessful || resp.Code != CodeInvalidArgument {
			t.Errorf("UpdateItem(%d): got %+v, want invalid_argument", itemID, resp)
		}
		if resp := f.svc.RemoveItem(ctx, id, itemID); resp.IsSuccessful || resp.Code != CodeInvalidArgument {
			t.Errorf("RemoveItem(%d): got %+v, want invalid_argument", itemID, resp)
		}
		if resp := f.svc.AddImage(ctx, id, itemID, validImage()); resp.IsSuccessful || resp.Code != CodeInvalidArgument {
			t.Errorf("AddImage(%d): got %+v, want invalid_argument", itemID, resp)
		}
	}

	if f.items.addCalls != 0 || f.items.updateCalls != 0 || f.images.addCalls != 0 {
		t.Errorf("repositories were touched by guarded calls")
	}
	if len(f.users.users) != 0 {
		t.Errorf("user provisioned before argument guards: %v", f.users.users)
	}
}

func TestEmptyCallerIdentityIsInvalidArgument(t *testing.T) {
	f := newCartFixture(t)

	resp := f.svc.GetItems(context.Background(), domain.Identity{})
	if resp.IsSuccessful || resp.Code != CodeInvalidArgument {
		t.Fatalf("got %+v, want invalid_argument", resp)
	}
}

func TestUnresolvableIdentityIsUserNotFound(t *testing.T) {
	f := newCartFixture(t)
	ctx := context.Background()
	// no email claim: provisioning must fail validation, so no user exists
	id := domain.Identity{Subject: "ghost", Name: "Casper"}

	resp := f.svc.AddItem(ctx, id, validInput())
	if resp.IsSuccessful || resp.Code != CodeUserNotFound {
		t.Fatalf("got %+v, want user_not_found", resp)
	}
	if len(resp.Errors) != 1 || resp.Errors[0] != "User not found" {
		t.Fatalf("errors = %v", resp.Errors)
	}
	if f.items.addCalls != 0 {
		t.Errorf("cart item storage touched for unknown user")
	}
	if len(f.users.users) != 0 {
		t.Errorf("user was persisted despite failed validation")
	}
}

func TestDuplicateEmailAcrossSubjectsIsUserNotFound(t *testing.T) {
	f := newCartFixture(t)
	ctx := context.Background()

	if resp := f.svc.AddItem(ctx, caller("u1"), validInput()); !resp.IsSuccessful {
		t.Fatalf("seed first subject: %+v", resp)
	}

	// a second subject with the first one's email claim cannot be
	// provisioned; every operation must report user_not_found, not an
	// internal fault
	impostor := domain.Identity{Subject: "u2", Name: "Jamie Doe", Email: "u1@example.com"}
	for i := 0; i < 2; i++ {
		resp := f.svc.GetItems(ctx, impostor)
		if resp.IsSuccessful || resp.Code != CodeUserNotFound {
			t.Fatalf("attempt %d: got %+v, want user_not_found", i, resp)
		}
	}
	if resp := f.svc.AddItem(ctx, impostor, validInput()); resp.Code != CodeUserNotFound {
		t.Errorf("AddItem: got %+v, want user_not_found", resp)
	}
}

func TestAddItemAutoProvisionsUser(t *testing.T) {
	f := newCartFixture(t)
	ctx := context.Background()

	resp := f.svc.AddItem(ctx, caller("u1"), validInput())
	if !resp.IsSuccessful {
		t.Fatalf("AddItem failed: %+v", resp)
	}
	if resp.Data.ID == 0 {
		t.Fatalf("item got no identity assigned")
	}

	user, err := f.users.GetByAuthProviderID(ctx, "u1")
	if err != nil {
		t.Fatalf("auto-provisioned user missing: %v", err)
	}
	if resp.Data.UserID != user.ID {
		t.Errorf("item owned by %d, want %d", resp.Data.UserID, user.ID)
	}

	// a second caller must not see the item, not even its existence
	other := f.svc.GetItemDetails(ctx, caller("u2"), resp.Data.ID)
	if other.IsSuccessful || other.Code != CodeItemNotFound {
		t.Fatalf("cross-user read: got %+v, want item_not_found", other)
	}
}

func TestOwnershipIsolation(t *testing.T) {
	f := newCartFixture(t)
	ctx := context.Background()

	created := f.svc.AddItem(ctx, caller("owner"), validInput())
	if !created.IsSuccessful {
		t.Fatalf("seed item: %+v", created)
	}
	itemID := created.Data.ID
	intruder := caller("intruder")

	if resp := f.svc.GetItemDetails(ctx, intruder, itemID); resp.Code != CodeItemNotFound {
		t.Errorf("GetItemDetails: got %+v, want item_not_found", resp)
	}
	if resp := f.svc.UpdateItem(ctx, intruder, itemID, validInput()); resp.Code != CodeItemNotFound {
		t.Errorf("UpdateItem: got %+v, want item_not_found", resp)
	}
	if resp := f.svc.RemoveItem(ctx, intruder, itemID); resp.Code != CodeItemNotFound {
		t.Errorf("RemoveItem: got %+v, want item_not_found", resp)
	}
	if resp := f.svc.AddImage(ctx, intruder, itemID, validImage()); resp.Code != CodeItemNotFound {
		t.Errorf("AddImage: got %+v, want item_not_found", resp)
	}

	// the item must still be there for its owner
	if resp := f.svc.GetItemDetails(ctx, caller("owner"), itemID); !resp.IsSuccessful {
		t.Errorf("owner lost access: %+v", resp)
	}
}

func TestAddItemValidationFailsBeforeRepository(t *testing.T) {
	f := newCartFixture(t)

	resp := f.svc.AddItem(context.Background(), caller("u1"), CartItemInput{
		Name:     "",
		Price:    decimal.Zero,
		Quantity: 0,
	})
	if resp.IsSuccessful || resp.Code != CodeValidationFailed {
		t.Fatalf("got %+v, want validation_failed", resp)
	}

	want := []string{
		"Name is required.",
		"Price must be greater than 0.",
		"Quantity must be greater than 0.",
	}
	if len(resp.Errors) != len(want) {
		t.Fatalf("errors = %v, want %v", resp.Errors, want)
	}
	for i := range want {
		if resp.Errors[i] != want[i] {
			t.Errorf("errors[%d] = %q, want %q", i, resp.Errors[i], want[i])
		}
	}
	if f.items.addCalls != 0 {
		t.Errorf("invalid item reached the repository")
	}
}

func TestGetItemsIdempotent(t *testing.T) {
	f := newCartFixture(t)
	ctx := context.Background()
	id := caller("u1")

	for i := 0; i < 3; i++ {
		input := validInput()
		input.Name = fmt.Sprintf("Item %d", i)
		if resp := f.svc.AddItem(ctx, id, input); !resp.IsSuccessful {
			t.Fatalf("seed item %d: %+v", i, resp)
		}
	}

	first := f.svc.GetItems(ctx, id)
	second := f.svc.GetItems(ctx, id)
	if !first.IsSuccessful || !second.IsSuccessful {
		t.Fatalf("GetItems failed: %+v / %+v", first, second)
	}
	if len(first.Data) != 3 || len(second.Data) != 3 {
		t.Fatalf("item counts: %d and %d, want 3", len(first.Data), len(second.Data))
	}

	seen := map[int64]string{}
	for _, item := range first.Data {
		seen[item.ID] = item.Name
	}
	for _, item := range second.Data {
		if name, ok := seen[item.ID]; !ok || name != item.Name {
			t.Errorf("second read disagrees on item %d", item.ID)
		}
	}
}

func TestAddItemRoundTrip(t *testing.T) {
	f := newCartFixture(t)
	ctx := context.Background()
	id := caller("u1")

	input := CartItemInput{
		Name:        "Kettle",
		Description: "2L electric",
		Price:       decimal.RequireFromString("34.99"),
		Quantity:    2,
	}
	created := f.svc.AddItem(ctx, id, input)
	if !created.IsSuccessful || created.Data.ID == 0 {
		t.Fatalf("AddItem: %+v", created)
	}

	fetched := f.svc.GetItemDetails(ctx, id, created.Data.ID)
	if !fetched.IsSuccessful {
		t.Fatalf("GetItemDetails: %+v", fetched)
	}
	got := fetched.Data
	if got.Name != input.Name || got.Description != input.Description ||
		!got.Price.Equal(input.Price) || got.Quantity != input.Quantity {
		t.Errorf("round trip mismatch: %+v", got)
	}
}

func TestUpdateItemReplacesFields(t *testing.T) {
	f := newCartFixture(t)
	ctx := context.Background()
	id := caller("u1")

	created := f.svc.AddItem(ctx, id, validInput())
	if !created.IsSuccessful {
		t.Fatalf("seed: %+v", created)
	}

	updated := f.svc.UpdateItem(ctx, id, created.Data.ID, CartItemInput{
		Name:        "Novel",
		Description: "",
		Price:       decimal.RequireFromString("12.50"),
		Quantity:    3,
	})
	if !updated.IsSuccessful {
		t.Fatalf("UpdateItem: %+v", updated)
	}
	if updated.Data.Name != "Novel" || updated.Data.Description != "" ||
		updated.Data.Quantity != 3 || !updated.Data.Price.Equal(decimal.RequireFromString("12.50")) {
		t.Errorf("fields not replaced: %+v", updated.Data)
	}

	invalid := f.svc.UpdateItem(ctx, id, created.Data.ID, CartItemInput{
		Name:     strings.Repeat("x", 101),
		Price:    decimal.NewFromInt(1),
		Quantity: 1,
	})
	if invalid.IsSuccessful || invalid.Code != CodeValidationFailed {
		t.Fatalf("overlong name accepted: %+v", invalid)
	}
}

func TestUpdateItemSucceedsWhenImageReloadFails(t *testing.T) {
	f := newCartFixture(t)
	ctx := context.Background()
	id := caller("u1")

	created := f.svc.AddItem(ctx, id, validInput())
	if !created.IsSuccessful {
		t.Fatalf("seed: %+v", created)
	}

	// the committed update must not be reported as a failure just because
	// the image reload afterwards broke
	f.images.listErr = fmt.Errorf("images table locked")
	resp := f.svc.UpdateItem(ctx, id, created.Data.ID, CartItemInput{
		Name:     "Novel",
		Price:    decimal.NewFromInt(5),
		Quantity: 2,
	})
	if !resp.IsSuccessful {
		t.Fatalf("UpdateItem: %+v", resp)
	}
	if resp.Data.Name != "Novel" || len(resp.Data.Images) != 0 {
		t.Errorf("data = %+v", resp.Data)
	}

	f.images.listErr = nil
	if after := f.svc.GetItemDetails(ctx, id, created.Data.ID); after.Data.Name != "Novel" {
		t.Errorf("update was lost: %+v", after.Data)
	}
}

func TestRemoveItemDeletesAndCleansMirror(t *testing.T) {
	f := newCartFixture(t)
	ctx := context.Background()
	id := caller("u1")

	created := f.svc.AddItem(ctx, id, validInput())
	if !created.IsSuccessful {
		t.Fatalf("seed: %+v", created)
	}

	resp := f.svc.RemoveItem(ctx, id, created.Data.ID)
	if !resp.IsSuccessful || !resp.Data {
		t.Fatalf("RemoveItem: %+v", resp)
	}
	if len(f.store.deletes) != 1 {
		t.Errorf("mirror prefix deletes = %v, want one", f.store.deletes)
	}

	if again := f.svc.GetItemDetails(ctx, id, created.Data.ID); again.Code != CodeItemNotFound {
		t.Errorf("item still readable after delete: %+v", again)
	}
}

func TestAddImageRejectsDisallowedContentType(t *testing.T) {
	f := newCartFixture(t)
	ctx := context.Background()
	id := caller("u1")

	created := f.svc.AddItem(ctx, id, validInput())
	if !created.IsSuccessful {
		t.Fatalf("seed: %+v", created)
	}

	img := validImage()
	img.ContentType = "application/pdf"
	resp := f.svc.AddImage(ctx, id, created.Data.ID, img)
	if resp.IsSuccessful || resp.Code != CodeValidationFailed {
		t.Fatalf("got %+v, want validation_failed", resp)
	}
	found := false
	for _, msg := range resp.Errors {
		if strings.Contains(msg, "content type") || strings.Contains(msg, "Content type") ||
			strings.Contains(msg, "JPEG") {
			found = true
		}
	}
	if !found {
		t.Errorf("no content-type message in %v", resp.Errors)
	}

	if f.images.addCalls != 0 {
		t.Errorf("rejected image reached the repository")
	}
	item := f.svc.GetItemDetails(ctx, id, created.Data.ID)
	if len(item.Data.Images) != 0 {
		t.Errorf("image collection changed: %+v", item.Data.Images)
	}
}

func TestAddImageAppendsAndMirrors(t *testing.T) {
	f := newCartFixture(t)
	ctx := context.Background()
	id := caller("u1")

	created := f.svc.AddItem(ctx, id, validInput())
	if !created.IsSuccessful {
		t.Fatalf("seed: %+v", created)
	}

	resp := f.svc.AddImage(ctx, id, created.Data.ID, validImage())
	if !resp.IsSuccessful {
		t.Fatalf("AddImage: %+v", resp)
	}
	if len(resp.Data.Images) != 1 {
		t.Fatalf("images = %+v, want one", resp.Data.Images)
	}
	img := resp.Data.Images[0]
	if img.ID == 0 {
		t.Errorf("image got no identity")
	}
	if len(f.store.uploads) != 1 {
		t.Fatalf("uploads = %v, want one", f.store.uploads)
	}
	if !strings.HasPrefix(f.store.uploads[0], "cartease-images/user-") {
		t.Errorf("unexpected object key %q", f.store.uploads[0])
	}
	if img.S3Location == "" {
		t.Errorf("mirror location not recorded")
	}

	// appending again keeps the first image
	second := f.svc.AddImage(ctx, id, created.Data.ID, validImage())
	if !second.IsSuccessful || len(second.Data.Images) != 2 {
		t.Fatalf("second AddImage: %+v", second)
	}
}

func TestAddImageSurvivesMirrorFailure(t *testing.T) {
	f := newCartFixture(t)
	ctx := context.Background()
	id := caller("u1")
	f.store.uploadErr = fmt.Errorf("bucket gone")

	created := f.svc.AddItem(ctx, id, validInput())
	resp := f.svc.AddImage(ctx, id, created.Data.ID, validImage())
	if !resp.IsSuccessful {
		t.Fatalf("mirror failure failed the operation: %+v", resp)
	}
	if resp.Data.Images[0].S3Location != "" {
		t.Errorf("location recorded despite failed upload")
	}
}

func TestAddItemPersistenceFailure(t *testing.T) {
	f := newCartFixture(t)
	f.items.addErr = fmt.Errorf("disk full")

	resp := f.svc.AddItem(context.Background(), caller("u1"), validInput())
	if resp.IsSuccessful || resp.Code != CodePersistenceFailed {
		t.Fatalf("got %+v, want persistence_failed", resp)
	}
	if len(resp.Errors) == 0 || !strings.Contains(resp.Errors[0], "disk full") {
		t.Errorf("message lost: %v", resp.Errors)
	}
}

func TestCancelledContextSurfacesAsCancelled(t *testing.T) {
	f := newCartFixture(t)
	f.items.addErr = context.Canceled

	resp := f.svc.AddItem(context.Background(), caller("u1"), validInput())
	if resp.IsSuccessful || resp.Code != CodeCancelled {
		t.Fatalf("got %+v, want cancelled", resp)
	}
}

func TestPanicIsConvertedToUnexpected(t *testing.T) {
	f := newCartFixture(t)
	ctx := context.Background()
	id := caller("u1")

	created := f.svc.AddItem(ctx, id, validInput())
	if !created.IsSuccessful {
		t.Fatalf("seed: %+v", created)
	}

	f.items.getForUserFn = func(itemID, userID int64) (*domain.CartItem, error) {
		panic("boom")
	}
	resp := f.svc.GetItemDetails(ctx, id, created.Data.ID)
	if resp.IsSuccessful || resp.Code != CodeUnexpected {
		t.Fatalf("got %+v, want unexpected", resp)
	}
	if len(resp.Errors) != 1 || resp.Errors[0] != "boom" {
		t.Errorf("panic message not preserved: %v", resp.Errors)
	}
}

func TestGetImageReturnsStoredBytes(t *testing.T) {
	f := newCartFixture(t)
	ctx := context.Background()
	id := caller("u1")

	created := f.svc.AddItem(ctx, id, validInput())
	added := f.svc.AddImage(ctx, id, created.Data.ID, validImage())
	if !added.IsSuccessful {
		t.Fatalf("AddImage: %+v", added)
	}
	imageID := added.Data.Images[0].ID

	resp := f.svc.GetImage(ctx, id, created.Data.ID, imageID)
	if !resp.IsSuccessful {
		t.Fatalf("GetImage: %+v", resp)
	}
	if string(resp.Data.FileBytes) != string(validImage().FileBytes) {
		t.Errorf("bytes differ")
	}

	if other := f.svc.GetImage(ctx, caller("u2"), created.Data.ID, imageID); other.Code != CodeItemNotFound {
		t.Errorf("cross-user image read: %+v", other)
	}
}
