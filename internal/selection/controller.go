// Package selection implements the per-view browsing state: category filter,
// the single item opened for detail, and its active gallery image.
package selection

import (
	"fmt"

	"github.com/terra-clan/studio-engine/internal/carousel"
	"github.com/terra-clan/studio-engine/internal/models"
)

// Catalog answers the item lookups a view needs
type Catalog interface {
	ItemCategory(view models.View, id string) (string, bool)
	GalleryLength(view models.View, id string) int
}

// Option configures a Controller
type Option func(*Controller)

// WithScrollLock sets the lock held while an item is open
func WithScrollLock(lock ScrollLock) Option {
	return func(c *Controller) {
		if lock != nil {
			c.lock = lock
		}
	}
}

// Controller applies view intents to a SelectionState.
// Changing the filter closes an open item that the new filter hides.
type Controller struct {
	state   *models.SelectionState
	catalog Catalog
	lock    ScrollLock
}

// NewController wraps state. A state restored with ScrollLocked set is
// considered to already hold the lock.
func NewController(state *models.SelectionState, catalog Catalog, opts ...Option) *Controller {
	c := &Controller{
		state:   state,
		catalog: catalog,
		lock:    noopLock{},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.state.Category == "" {
		c.state.Category = models.CategoryAll
	}
	return c
}

// State returns the wrapped state
func (c *Controller) State() *models.SelectionState {
	return c.state
}

// SetCategory replaces the filter
func (c *Controller) SetCategory(category string) {
	if category == "" {
		category = models.CategoryAll
	}
	c.state.Category = category

	if !c.state.HasOpenItem() {
		return
	}
	itemCategory, ok := c.catalog.ItemCategory(c.state.View, c.state.OpenItemID)
	if !ok || !models.CategoryMatches(category, itemCategory) {
		c.Close()
	}
}

// Open shows an item in detail starting from its first image
func (c *Controller) Open(itemID string) error {
	if _, ok := c.catalog.ItemCategory(c.state.View, itemID); !ok {
		return fmt.Errorf("%w: %s", ErrItemNotFound, itemID)
	}

	c.state.OpenItemID = itemID
	c.state.ImageIndex = 0
	if !c.state.ScrollLocked {
		c.lock.Acquire()
		c.state.ScrollLocked = true
	}
	return nil
}

// Close clears the open item
func (c *Controller) Close() {
	c.state.OpenItemID = ""
	c.state.ImageIndex = 0
	c.release()
}

// CycleImage moves through the open item's gallery, wrapping at both ends
func (c *Controller) CycleImage(dir models.Direction) (int, error) {
	return c.moveImage(func(g *carousel.Carousel) int { return g.Move(dir) })
}

// SelectImage jumps to a thumbnail
func (c *Controller) SelectImage(index int) (int, error) {
	return c.moveImage(func(g *carousel.Carousel) int { return g.Jump(index) })
}

// Dispose releases the scroll lock when the view goes away with an item open
func (c *Controller) Dispose() {
	c.release()
}

func (c *Controller) release() {
	if c.state.ScrollLocked {
		c.state.ScrollLocked = false
		c.lock.Release()
	}
}

func (c *Controller) moveImage(move func(*carousel.Carousel) int) (int, error) {
	if !c.state.HasOpenItem() {
		return 0, ErrNothingOpen
	}

	gallery := models.CarouselState{
		Index:  c.state.ImageIndex,
		Length: c.catalog.GalleryLength(c.state.View, c.state.OpenItemID),
	}
	c.state.ImageIndex = move(carousel.Attach(&gallery))
	return c.state.ImageIndex, nil
}
