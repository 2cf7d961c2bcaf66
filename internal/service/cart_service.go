package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"cartease/internal/domain"
	"cartease/internal/repository"
	"cartease/internal/storage"
	"cartease/internal/validator"
)

// CartItemInput carries the caller-supplied fields for creating or fully
// replacing a cart item. Identity and ownership are never part of the input.
type CartItemInput struct {
	Name        string
	Description string
	Price       decimal.Decimal
	Quantity    int
}

// CartService orchestrates cart operations: it resolves the caller's user,
// enforces per-user ownership on every lookup, validates inputs, and drives
// the repositories. Every operation returns the uniform envelope; no fault
// escapes unwrapped.
type CartService interface {
	GetItems(ctx context.Context, identity domain.Identity) Response[[]domain.CartItem]
	GetItemDetails(ctx context.Context, identity domain.Identity, itemID int64) Response[domain.CartItem]
	AddItem(ctx context.Context, identity domain.Identity, input CartItemInput) Response[domain.CartItem]
	UpdateItem(ctx context.Context, identity domain.Identity, itemID int64, input CartItemInput) Response[domain.CartItem]
	RemoveItem(ctx context.Context, identity domain.Identity, itemID int64) Response[bool]
	AddImage(ctx context.Context, identity domain.Identity, itemID int64, image domain.ItemImage) Response[domain.CartItem]
	GetImage(ctx context.Context, identity domain.Identity, itemID, imageID int64) Response[domain.ItemImage]
}

type cartService struct {
	identities IdentityService
	items      repository.CartItemRepository
	images     repository.ItemImageRepository
	store      storage.Service
	storeOpts  storage.UploadOptions
	logger     *logrus.Logger
}

// NewCartService builds the cart orchestrator. store may be nil, in which
// case image bytes live only in the database.
func NewCartService(
	identities IdentityService,
	items repository.CartItemRepository,
	images repository.ItemImageRepository,
	store storage.Service,
	storeOpts storage.UploadOptions,
	logger *logrus.Logger,
) CartService {
	return &cartService{
		identities: identities,
		items:      items,
		images:     images,
		store:      store,
		storeOpts:  storeOpts,
		logger:     logger,
	}
}

const (
	msgIdentityRequired = "Caller identity is required."
	msgInvalidItemID    = "Cart item id must be greater than 0."
	msgUserNotFound     = "User not found"
	msgItemNotFound     = "Cart item not found"
)

func (s *cartService) GetItems(ctx context.Context, identity domain.Identity) (resp Response[[]domain.CartItem]) {
	defer s.recoverInto(&resp, "GetItems")

	if strings.TrimSpace(identity.Subject) == "" {
		return Failure[[]domain.CartItem](CodeInvalidArgument, msgIdentityRequired)
	}

	user, err := s.identities.ResolveOrCreate(ctx, identity)
	if err != nil {
		return failFromErr[[]domain.CartItem](err, false)
	}

	items, err := s.items.ListByUser(ctx, user.ID)
	if err != nil {
		return failFromErr[[]domain.CartItem](err, false)
	}

	for i := range items {
		images, err := s.images.ListByItem(ctx, items[i].ID)
		if err != nil {
			return failFromErr[[]domain.CartItem](err, false)
		}
		items[i].Images = images
	}

	if items == nil {
		items = []domain.CartItem{}
	}
	return Success(items)
}

func (s *cartService) GetItemDetails(ctx context.Context, identity domain.Identity, itemID int64) (resp Response[domain.CartItem]) {
	defer s.recoverInto(&resp, "GetItemDetails")

	if fail, ok := checkArgs[domain.CartItem](identity, itemID); !ok {
		return fail
	}

	user, err := s.identities.ResolveOrCreate(ctx, identity)
	if err != nil {
		return failFromErr[domain.CartItem](err, false)
	}

	item, err := s.loadItem(ctx, itemID, user.ID)
	if err != nil {
		return failFromErr[domain.CartItem](err, false)
	}
	return Success(*item)
}

func (s *cartService) AddItem(ctx context.Context, identity domain.Identity, input CartItemInput) (resp Response[domain.CartItem]) {
	defer s.recoverInto(&resp, "AddItem")

	if strings.TrimSpace(identity.Subject) == "" {
		return Failure[domain.CartItem](CodeInvalidArgument, msgIdentityRequired)
	}

	user, err := s.identities.ResolveOrCreate(ctx, identity)
	if err != nil {
		return failFromErr[domain.CartItem](err, false)
	}

	item := domain.CartItem{
		Name:        input.Name,
		Description: input.Description,
		Price:       input.Price,
		Quantity:    input.Quantity,
	}
	if result := validator.ValidateCartItem(item); !result.IsValid() {
		return Failure[domain.CartItem](CodeValidationFailed, result.Messages()...)
	}

	item.UserID = user.ID
	if _, err := s.items.Add(ctx, &item); err != nil {
		return failFromErr[domain.CartItem](err, true)
	}

	s.logger.WithField("user_id", user.ID).Infof("added cart item %d", item.ID)
	return Success(item)
}

func (s *cartService) UpdateItem(ctx context.Context, identity domain.Identity, itemID int64, input CartItemInput) (resp Response[domain.CartItem]) {
	defer s.recoverInto(&resp, "UpdateItem")

	if fail, ok := checkArgs[domain.CartItem](identity, itemID); !ok {
		return fail
	}

	user, err := s.identities.ResolveOrCreate(ctx, identity)
	if err != nil {
		return failFromErr[domain.CartItem](err, false)
	}

	item, err := s.items.GetForUser(ctx, itemID, user.ID)
	if err != nil {
		return failFromErr[domain.CartItem](err, false)
	}

	// full field replace
	item.Name = input.Name
	item.Description = input.Description
	item.Price = input.Price
	item.Quantity = input.Quantity

	if result := validator.ValidateCartItem(*item); !result.IsValid() {
		return Failure[domain.CartItem](CodeValidationFailed, result.Messages()...)
	}

	if err := s.items.Update(ctx, item); err != nil {
		return failFromErr[domain.CartItem](err, true)
	}

	// the update is committed at this point; a failed image reload must
	// not make the caller believe the mutation was lost
	if images, err := s.images.ListByItem(ctx, item.ID); err != nil {
		s.logger.Warnf("reload images for item %d after update: %v", item.ID, err)
	} else {
		item.Images = images
	}
	return Success(*item)
}

func (s *cartService) RemoveItem(ctx context.Context, identity domain.Identity, itemID int64) (resp Response[bool]) {
	defer s.recoverInto(&resp, "RemoveItem")

	if fail, ok := checkArgs[bool](identity, itemID); !ok {
		return fail
	}

	user, err := s.identities.ResolveOrCreate(ctx, identity)
	if err != nil {
		return failFromErr[bool](err, false)
	}

	item, err := s.items.GetForUser(ctx, itemID, user.ID)
	if err != nil {
		return failFromErr[bool](err, false)
	}

	deleted, err := s.items.Delete(ctx, item)
	if err != nil {
		return failFromErr[bool](err, true)
	}
	if !deleted {
		return Failure[bool](CodeItemNotFound, msgItemNotFound)
	}

	s.cleanupMirror(ctx, user.ID, item.ID)

	s.logger.WithField("user_id", user.ID).Infof("removed cart item %d", item.ID)
	return Success(true)
}

func (s *cartService) AddImage(ctx context.Context, identity domain.Identity, itemID int64, image domain.ItemImage) (resp Response[domain.CartItem]) {
	defer s.recoverInto(&resp, "AddImage")

	if fail, ok := checkArgs[domain.CartItem](identity, itemID); !ok {
		return fail
	}

	if result := validator.ValidateItemImage(image); !result.IsValid() {
		return Failure[domain.CartItem](CodeValidationFailed, result.Messages()...)
	}

	user, err := s.identities.ResolveOrCreate(ctx, identity)
	if err != nil {
		return failFromErr[domain.CartItem](err, false)
	}

	item, err := s.items.GetForUser(ctx, itemID, user.ID)
	if err != nil {
		return failFromErr[domain.CartItem](err, false)
	}

	image.CartItemID = item.ID
	if _, err := s.images.Add(ctx, &image); err != nil {
		return failFromErr[domain.CartItem](err, true)
	}

	s.mirrorImage(ctx, user.ID, item.ID, &image)

	loaded, err := s.loadItem(ctx, item.ID, user.ID)
	if err != nil {
		return failFromErr[domain.CartItem](err, false)
	}
	return Success(*loaded)
}

func (s *cartService) GetImage(ctx context.Context, identity domain.Identity, itemID, imageID int64) (resp Response[domain.ItemImage]) {
	defer s.recoverInto(&resp, "GetImage")

	if fail, ok := checkArgs[domain.ItemImage](identity, itemID); !ok {
		return fail
	}
	if imageID <= 0 {
		return Failure[domain.ItemImage](CodeInvalidArgument, "Image id must be greater than 0.")
	}

	user, err := s.identities.ResolveOrCreate(ctx, identity)
	if err != nil {
		return failFromErr[domain.ItemImage](err, false)
	}

	item, err := s.items.GetForUser(ctx, itemID, user.ID)
	if err != nil {
		return failFromErr[domain.ItemImage](err, false)
	}

	img, err := s.images.GetForItem(ctx, imageID, item.ID)
	if err != nil {
		return failFromErr[domain.ItemImage](err, false)
	}
	return Success(*img)
}

// loadItem fetches an ownership-scoped item together with its image metadata.
func (s *cartService) loadItem(ctx context.Context, itemID, userID int64) (*domain.CartItem, error) {
	item, err := s.items.GetForUser(ctx, itemID, userID)
	if err != nil {
		return nil, err
	}
	images, err := s.images.ListByItem(ctx, item.ID)
	if err != nil {
		return nil, err
	}
	item.Images = images
	return item, nil
}

// mirrorImage copies freshly stored image bytes to object storage when a
// bucket is configured. The database copy is authoritative; mirror failures
// are logged and never fail the operation.
func (s *cartService) mirrorImage(ctx context.Context, userID, itemID int64, image *domain.ItemImage) {
	if s.store == nil || s.storeOpts.Bucket == "" {
		return
	}

	key := fmt.Sprintf("%s/%s%s", s.mirrorPrefix(userID, itemID), uuid.NewString(), path.Ext(image.FileName))
	location, err := s.store.Upload(ctx, s.storeOpts.Bucket, key, image.ContentType, bytes.NewReader(image.FileBytes))
	if err != nil {
		s.logger.Warnf("mirror image %d to object storage: %v", image.ID, err)
		return
	}

	image.S3Location = location
	if err := s.images.Update(ctx, image); err != nil {
		s.logger.Warnf("record mirror location for image %d: %v", image.ID, err)
	}
}

func (s *cartService) cleanupMirror(ctx context.Context, userID, itemID int64) {
	if s.store == nil || s.storeOpts.Bucket == "" {
		return
	}
	if err := s.store.DeletePrefix(ctx, s.storeOpts.Bucket, s.mirrorPrefix(userID, itemID)); err != nil {
		s.logger.Warnf("delete mirrored images for item %d: %v", itemID, err)
	}
}

func (s *cartService) mirrorPrefix(userID, itemID int64) string {
	prefix := strings.Trim(s.storeOpts.KeyPrefix, "/")
	if prefix != "" {
		prefix += "/"
	}
	return fmt.Sprintf("%suser-%d/item-%d", prefix, userID, itemID)
}

func (s *cartService) recoverInto(resp any, op string) {
	r := recover()
	if r == nil {
		return
	}
	s.logger.Errorf("cart service %s panic: %v", op, r)
	switch out := resp.(type) {
	case *Response[domain.CartItem]:
		*out = Failure[domain.CartItem](CodeUnexpected, fmt.Sprint(r))
	case *Response[[]domain.CartItem]:
		*out = Failure[[]domain.CartItem](CodeUnexpected, fmt.Sprint(r))
	case *Response[domain.ItemImage]:
		*out = Failure[domain.ItemImage](CodeUnexpected, fmt.Sprint(r))
	case *Response[bool]:
		*out = Failure[bool](CodeUnexpected, fmt.Sprint(r))
	}
}

// checkArgs runs the synchronous argument guards shared by the id-scoped
// operations. It never touches a repository.
func checkArgs[T any](identity domain.Identity, itemID int64) (Response[T], bool) {
	if strings.TrimSpace(identity.Subject) == "" {
		return Failure[T](CodeInvalidArgument, msgIdentityRequired), false
	}
	if itemID <= 0 {
		return Failure[T](CodeInvalidArgument, msgInvalidItemID), false
	}
	return Response[T]{}, true
}

// failFromErr translates collaborator errors into envelope failures.
// mutation marks storage writes, whose faults surface as PersistenceFailed.
func failFromErr[T any](err error, mutation bool) Response[T] {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return Failure[T](CodeCancelled, "Operation cancelled.")
	case errors.Is(err, ErrUnresolvedIdentity):
		return Failure[T](CodeUserNotFound, msgUserNotFound)
	case errors.Is(err, repository.ErrNotFound):
		return Failure[T](CodeItemNotFound, msgItemNotFound)
	case mutation:
		return Failure[T](CodePersistenceFailed, err.Error())
	default:
		return Failure[T](CodeUnexpected, err.Error())
	}
}
