package handlers

import (
	"bufio"
	"context"
	"fmt"
	"time"

	"storefront/internal/middleware"
	"storefront/internal/presenter"
	"storefront/internal/state"

	"github.com/gofiber/fiber/v2"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const heartbeatInterval = 15 * time.Second

// PresenterFactory builds the presenter backing one event stream.
type PresenterFactory func(ctx context.Context) *presenter.ShopPresenter

// StreamHandler pushes published states to clients as server-sent events.
// Each connection gets its own presenter.
type StreamHandler struct {
	newPresenter PresenterFactory
}

func NewStreamHandler(newPresenter PresenterFactory) *StreamHandler {
	return &StreamHandler{newPresenter: newPresenter}
}

// RegisterRoutes registers the event streams. Per-user streams go through
// auth.
func (h *StreamHandler) RegisterRoutes(router fiber.Router, auth fiber.Handler) {
	router.Get("/stream/home", h.HandleHome)
	router.Get("/stream/products", h.HandleProducts)
	router.Get("/stream/cart", auth, h.HandleCart)
	router.Get("/stream/wishlist", auth, h.HandleWishlist)
	router.Get("/stream/profile", auth, h.HandleProfile)
}

// HandleHome streams the home state until it settles.
func (h *StreamHandler) HandleHome(c *fiber.Ctx) error {
	return h.serve(c, func(ctx context.Context, p *presenter.ShopPresenter, w *bufio.Writer) {
		p.LoadHome()
		pump(ctx, w, p.HomeState(), true)
	})
}

// HandleProducts follows one category live.
func (h *StreamHandler) HandleProducts(c *fiber.Ctx) error {
	category := c.Query("category")
	if category == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "category is required"})
	}
	return h.serve(c, func(ctx context.Context, p *presenter.ShopPresenter, w *bufio.Writer) {
		p.LoadProductsByCategory(category)
		pump(ctx, w, p.ProductsByCategoryState(), false)
	})
}

func (h *StreamHandler) HandleCart(c *fiber.Ctx) error {
	userID := middleware.UserID(c)
	return h.serve(c, func(ctx context.Context, p *presenter.ShopPresenter, w *bufio.Writer) {
		p.LoadCart(userID)
		pump(ctx, w, p.CartState(), false)
	})
}

func (h *StreamHandler) HandleWishlist(c *fiber.Ctx) error {
	userID := middleware.UserID(c)
	return h.serve(c, func(ctx context.Context, p *presenter.ShopPresenter, w *bufio.Writer) {
		p.LoadWishlist(userID)
		pump(ctx, w, p.WishlistState(), false)
	})
}

func (h *StreamHandler) HandleProfile(c *fiber.Ctx) error {
	userID := middleware.UserID(c)
	return h.serve(c, func(ctx context.Context, p *presenter.ShopPresenter, w *bufio.Writer) {
		p.LoadUserDetails(userID)
		pump(ctx, w, p.UserDetailsState(), false)
	})
}

func (h *StreamHandler) serve(c *fiber.Ctx, run func(ctx context.Context, p *presenter.ShopPresenter, w *bufio.Writer)) error {
	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		p := h.newPresenter(ctx)
		defer p.Close()
		run(ctx, p, w)
	})
	return nil
}

// pump writes every published state as an event. It returns when the client
// goes away, or after the first terminal state when once is set.
func pump[T any](ctx context.Context, w *bufio.Writer, v *state.Var[state.State[T]], once bool) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	updates := v.Observe(ctx)
	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case st, ok := <-updates:
			if !ok {
				return
			}
			if st.Kind == state.KindUninitialized {
				continue
			}
			if err := writeEvent(w, st); err != nil {
				zap.S().Debugf("event stream closed: %v", err)
				return
			}
			if once && st.IsTerminal() {
				return
			}
		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			if err := w.Flush(); err != nil {
				return
			}
		}
	}
}

func writeEvent[T any](w *bufio.Writer, st state.State[T]) error {
	body, err := json.Marshal(st)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", st.Kind, body); err != nil {
		return err
	}
	return w.Flush()
}
