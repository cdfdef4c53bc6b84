package selection_test

import (
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/terra-clan/studio-engine/internal/models"
	"github.com/terra-clan/studio-engine/internal/selection"
)

type item struct {
	category string
	images   int
}

type fakeCatalog map[string]item

func (f fakeCatalog) ItemCategory(_ models.View, id string) (string, bool) {
	it, ok := f[id]
	return it.category, ok
}

func (f fakeCatalog) GalleryLength(_ models.View, id string) int {
	return f[id].images
}

var portfolio = fakeCatalog{
	"family-reunion": {category: "family", images: 4},
	"lake-wedding":   {category: "wedding", images: 3},
	"hill-story":     {category: "preWedding", images: 2},
}

func TestController(t *testing.T) {
	Convey("Given a fresh portfolio view", t, func() {
		state := models.NewSelectionState(models.ViewPortfolio)
		lock := &selection.CountingLock{}
		c := selection.NewController(&state, portfolio, selection.WithScrollLock(lock))

		So(state.Category, ShouldEqual, models.CategoryAll)
		So(state.HasOpenItem(), ShouldBeFalse)

		Convey("When a project with 4 images is opened", func() {
			So(c.Open("family-reunion"), ShouldBeNil)

			Convey("Then the image index starts at 0 and scrolling is locked", func() {
				So(state.OpenItemID, ShouldEqual, "family-reunion")
				So(state.ImageIndex, ShouldEqual, 0)
				So(state.ScrollLocked, ShouldBeTrue)
				So(lock.Held(), ShouldEqual, 1)
			})

			Convey("Then four forward cycles return to the first image", func() {
				for i := 0; i < 4; i++ {
					_, err := c.CycleImage(models.Forward)
					So(err, ShouldBeNil)
				}
				So(state.ImageIndex, ShouldEqual, 0)
			})

			Convey("Then cycling back from the first image lands on the last", func() {
				idx, err := c.CycleImage(models.Backward)
				So(err, ShouldBeNil)
				So(idx, ShouldEqual, 3)
			})

			Convey("Then a thumbnail jump is normalized", func() {
				idx, err := c.SelectImage(5)
				So(err, ShouldBeNil)
				So(idx, ShouldEqual, 1)
			})

			Convey("And the filter changes to a category that hides it", func() {
				c.SetCategory("wedding")

				Convey("Then the open item is cleared and the lock released", func() {
					So(state.Category, ShouldEqual, "wedding")
					So(state.HasOpenItem(), ShouldBeFalse)
					So(state.ScrollLocked, ShouldBeFalse)
					So(lock.Held(), ShouldEqual, 0)
				})
			})

			Convey("And the filter changes to the item's own category", func() {
				c.SetCategory("family")

				Convey("Then the item stays open", func() {
					So(state.OpenItemID, ShouldEqual, "family-reunion")
					So(lock.Held(), ShouldEqual, 1)
				})
			})

			Convey("And the filter changes to all", func() {
				c.SetCategory(models.CategoryAll)

				Convey("Then the item stays open", func() {
					So(state.OpenItemID, ShouldEqual, "family-reunion")
				})
			})

			Convey("And another item is opened", func() {
				_, _ = c.CycleImage(models.Forward)
				So(c.Open("lake-wedding"), ShouldBeNil)

				Convey("Then the index resets and only one hold remains", func() {
					So(state.ImageIndex, ShouldEqual, 0)
					So(lock.Held(), ShouldEqual, 1)
				})
			})

			Convey("And the item is closed twice", func() {
				c.Close()
				c.Close()

				Convey("Then the lock is released exactly once", func() {
					So(lock.Held(), ShouldEqual, 0)
					So(state.ScrollLocked, ShouldBeFalse)
				})
			})

			Convey("And the view is disposed without closing", func() {
				c.Dispose()

				Convey("Then the lock is released", func() {
					So(lock.Held(), ShouldEqual, 0)
				})
			})
		})

		Convey("When the filter uses a differently cased key", func() {
			So(c.Open("hill-story"), ShouldBeNil)
			c.SetCategory("prewedding")

			Convey("Then the item is still considered inside the filter", func() {
				So(state.OpenItemID, ShouldEqual, "hill-story")
			})
		})

		Convey("When an unknown item is opened", func() {
			err := c.Open("missing")

			Convey("Then it fails and nothing changes", func() {
				So(errors.Is(err, selection.ErrItemNotFound), ShouldBeTrue)
				So(state.HasOpenItem(), ShouldBeFalse)
				So(lock.Held(), ShouldEqual, 0)
			})
		})

		Convey("When cycling with nothing open", func() {
			_, err := c.CycleImage(models.Forward)

			Convey("Then it reports that nothing is open", func() {
				So(err, ShouldEqual, selection.ErrNothingOpen)
			})
		})

		Convey("When the filter is set to empty", func() {
			c.SetCategory("")

			Convey("Then it falls back to all", func() {
				So(state.Category, ShouldEqual, models.CategoryAll)
			})
		})
	})

	Convey("Given a restored state that already holds the lock", t, func() {
		state := models.SelectionState{
			View:         models.ViewPortfolio,
			OpenItemID:   "lake-wedding",
			ImageIndex:   2,
			ScrollLocked: true,
		}
		var changes []int64
		lock := &selection.CountingLock{OnChange: func(n int64) { changes = append(changes, n) }}
		c := selection.NewController(&state, portfolio, selection.WithScrollLock(lock))

		Convey("When it is closed", func() {
			c.Close()

			Convey("Then a single release is reported", func() {
				So(changes, ShouldResemble, []int64{-1})
				So(state.Category, ShouldEqual, models.CategoryAll)
			})
		})
	})
}
