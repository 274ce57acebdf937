// Package presenter holds the published state of one storefront client.
package presenter

import (
	"context"
	"sync"

	"storefront/internal/models"
	"storefront/internal/services"
	"storefront/internal/state"
)

// Catalog is what the presenter needs from the catalog service.
type Catalog interface {
	AllCategories() state.Stream[[]models.Category]
	AllProducts() state.Stream[[]models.Product]
	ProductsByCategory(category string) state.Stream[[]models.Product]
	ProductByID(id string) state.Stream[models.Product]
	HomeData() state.Stream[services.HomeData]
}

type Cart interface {
	Cart(userID string) state.Stream[[]models.CartLine]
	AddToCart(line models.CartLine) state.Stream[string]
	RemoveFromCart(lineID string) state.Stream[string]
}

type Wishlist interface {
	Wishlist(userID string) state.Stream[[]models.WishlistEntry]
	AddToWishlist(entry models.WishlistEntry) state.Stream[string]
	RemoveFromWishlist(entryID string) state.Stream[string]
}

type Profile interface {
	Register(form models.SignUp) state.Stream[string]
	SignIn(creds models.Credentials) state.Stream[string]
	UserDetails(userID string) state.Stream[models.UserProfile]
	UpdateProfile(userID string, profile models.UserProfile) state.Stream[string]
	UploadProfileImage(userID, fileName string, data []byte) state.Stream[string]
}

// slot owns one published value. Only the latest load or write publishes
// to it, except that a superseded write may still report its failure.
type slot[T any] struct {
	v *state.Var[state.State[T]]

	mu     sync.Mutex
	gen    uint64
	cancel context.CancelFunc
	closed bool
}

func newSlot[T any]() *slot[T] {
	return &slot[T]{v: state.NewVar(state.State[T]{})}
}

// begin supersedes the running load, records cancel for the new one and
// publishes Loading.
func (s *slot[T]) begin(cancel context.CancelFunc) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
	s.cancel = cancel
	s.gen++
	s.v.Set(state.Loading[T]())
	return s.gen
}

// load cancels the previous load of this slot and starts stream under root.
func (s *slot[T]) load(root context.Context, stream state.Stream[T]) {
	ctx, cancel := context.WithCancel(root)
	gen := s.begin(cancel)

	ch := stream.Observe(ctx)
	go func() {
		for st := range ch {
			if !s.publish(gen, st, false) {
				cancel()
			}
		}
	}()
}

// write runs a one-shot mutation. A newer write replaces the published state
// but never cancels an older one: the gateway call always completes, and an
// older failure is still published.
func (s *slot[T]) write(root context.Context, stream state.Stream[T]) {
	gen := s.begin(nil)
	ch := stream.Observe(context.WithoutCancel(root))
	go func() {
		for st := range ch {
			s.publish(gen, st, true)
		}
	}()
}

func (s *slot[T]) publish(gen uint64, st state.State[T], keepErrors bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	if s.gen != gen {
		if keepErrors && st.IsError() {
			s.v.Set(st)
		}
		return false
	}
	// Loading is already published when the load starts.
	if st.IsLoading() && s.v.Get().IsLoading() {
		return true
	}
	s.v.Set(st)
	return true
}

func (s *slot[T]) stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.gen++
	s.closed = true
}

// ShopPresenter publishes one tri-state value per query. Every value starts
// uninitialized and each Load call replaces it.
type ShopPresenter struct {
	catalog  Catalog
	cart     Cart
	wishlist Wishlist
	profile  Profile

	root  context.Context
	close context.CancelFunc

	signUp             *slot[string]
	signIn             *slot[string]
	categories         *slot[[]models.Category]
	products           *slot[[]models.Product]
	productsByCategory *slot[[]models.Product]
	product            *slot[models.Product]
	home               *slot[services.HomeData]
	cartLines          *slot[[]models.CartLine]
	cartWrite          *slot[string]
	wishlistEntries    *slot[[]models.WishlistEntry]
	wishlistWrite      *slot[string]
	userDetails        *slot[models.UserProfile]
	profileUpdate      *slot[string]
	imageUpload        *slot[string]

	stops []func()
}

// NewShopPresenter creates a presenter whose loads live until Close or until
// ctx is cancelled.
func NewShopPresenter(ctx context.Context, catalog Catalog, cart Cart, wishlist Wishlist, profile Profile) *ShopPresenter {
	root, cancel := context.WithCancel(ctx)
	p := &ShopPresenter{
		catalog:  catalog,
		cart:     cart,
		wishlist: wishlist,
		profile:  profile,
		root:     root,
		close:    cancel,

		signUp:             newSlot[string](),
		signIn:             newSlot[string](),
		categories:         newSlot[[]models.Category](),
		products:           newSlot[[]models.Product](),
		productsByCategory: newSlot[[]models.Product](),
		product:            newSlot[models.Product](),
		home:               newSlot[services.HomeData](),
		cartLines:          newSlot[[]models.CartLine](),
		cartWrite:          newSlot[string](),
		wishlistEntries:    newSlot[[]models.WishlistEntry](),
		wishlistWrite:      newSlot[string](),
		userDetails:        newSlot[models.UserProfile](),
		profileUpdate:      newSlot[string](),
		imageUpload:        newSlot[string](),
	}
	p.stops = []func(){
		p.signUp.stop, p.signIn.stop, p.categories.stop, p.products.stop,
		p.productsByCategory.stop, p.product.stop, p.home.stop, p.cartLines.stop,
		p.cartWrite.stop, p.wishlistEntries.stop, p.wishlistWrite.stop,
		p.userDetails.stop, p.profileUpdate.stop, p.imageUpload.stop,
	}
	return p
}

// Close ends every running load and live subscription.
func (p *ShopPresenter) Close() {
	for _, stop := range p.stops {
		stop()
	}
	p.close()
}

func (p *ShopPresenter) SignUp(form models.SignUp) {
	p.signUp.write(p.root, p.profile.Register(form))
}

func (p *ShopPresenter) SignIn(creds models.Credentials) {
	p.signIn.write(p.root, p.profile.SignIn(creds))
}

func (p *ShopPresenter) LoadCategories() {
	p.categories.load(p.root, p.catalog.AllCategories())
}

func (p *ShopPresenter) LoadProducts() {
	p.products.load(p.root, p.catalog.AllProducts())
}

// LoadProductsByCategory follows one category live, replacing any category
// followed before.
func (p *ShopPresenter) LoadProductsByCategory(category string) {
	p.productsByCategory.load(p.root, p.catalog.ProductsByCategory(category))
}

func (p *ShopPresenter) LoadProduct(id string) {
	p.product.load(p.root, p.catalog.ProductByID(id))
}

// LoadHome loads home categories and products together.
func (p *ShopPresenter) LoadHome() {
	p.home.load(p.root, p.catalog.HomeData())
}

func (p *ShopPresenter) LoadCart(userID string) {
	p.cartLines.load(p.root, p.cart.Cart(userID))
}

// AddToCart writes the line. The cart list changes only when the live
// query delivers it.
func (p *ShopPresenter) AddToCart(line models.CartLine) {
	p.cartWrite.write(p.root, p.cart.AddToCart(line))
}

func (p *ShopPresenter) RemoveFromCart(lineID string) {
	p.cartWrite.write(p.root, p.cart.RemoveFromCart(lineID))
}

func (p *ShopPresenter) LoadWishlist(userID string) {
	p.wishlistEntries.load(p.root, p.wishlist.Wishlist(userID))
}

func (p *ShopPresenter) AddToWishlist(entry models.WishlistEntry) {
	p.wishlistWrite.write(p.root, p.wishlist.AddToWishlist(entry))
}

func (p *ShopPresenter) RemoveFromWishlist(entryID string) {
	p.wishlistWrite.write(p.root, p.wishlist.RemoveFromWishlist(entryID))
}

func (p *ShopPresenter) LoadUserDetails(userID string) {
	p.userDetails.load(p.root, p.profile.UserDetails(userID))
}

func (p *ShopPresenter) UpdateProfile(userID string, profile models.UserProfile) {
	p.profileUpdate.write(p.root, p.profile.UpdateProfile(userID, profile))
}

func (p *ShopPresenter) UploadProfileImage(userID, fileName string, data []byte) {
	p.imageUpload.write(p.root, p.profile.UploadProfileImage(userID, fileName, data))
}

func (p *ShopPresenter) SignUpState() *state.Var[state.State[string]]    { return p.signUp.v }
func (p *ShopPresenter) SignInState() *state.Var[state.State[string]]    { return p.signIn.v }
func (p *ShopPresenter) CartWriteState() *state.Var[state.State[string]] { return p.cartWrite.v }
func (p *ShopPresenter) WishlistWriteState() *state.Var[state.State[string]] {
	return p.wishlistWrite.v
}
func (p *ShopPresenter) ProfileUpdateState() *state.Var[state.State[string]] {
	return p.profileUpdate.v
}
func (p *ShopPresenter) ImageUploadState() *state.Var[state.State[string]] {
	return p.imageUpload.v
}

func (p *ShopPresenter) CategoriesState() *state.Var[state.State[[]models.Category]] {
	return p.categories.v
}

func (p *ShopPresenter) ProductsState() *state.Var[state.State[[]models.Product]] {
	return p.products.v
}

func (p *ShopPresenter) ProductsByCategoryState() *state.Var[state.State[[]models.Product]] {
	return p.productsByCategory.v
}

func (p *ShopPresenter) ProductState() *state.Var[state.State[models.Product]] {
	return p.product.v
}

func (p *ShopPresenter) HomeState() *state.Var[state.State[services.HomeData]] {
	return p.home.v
}

func (p *ShopPresenter) CartState() *state.Var[state.State[[]models.CartLine]] {
	return p.cartLines.v
}

func (p *ShopPresenter) WishlistState() *state.Var[state.State[[]models.WishlistEntry]] {
	return p.wishlistEntries.v
}

func (p *ShopPresenter) UserDetailsState() *state.Var[state.State[models.UserProfile]] {
	return p.userDetails.v
}
