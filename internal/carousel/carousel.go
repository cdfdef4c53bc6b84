// Package carousel keeps a wrapping position over a fixed-length sequence.
// It drives the testimonial rotation and gallery thumbnails.
package carousel

import "github.com/terra-clan/studio-engine/internal/models"

// Wrap normalizes i into [0, n). It returns 0 when n is not positive.
func Wrap(i, n int) int {
	if n <= 0 {
		return 0
	}
	i %= n
	if i < 0 {
		i += n
	}
	return i
}

// Carousel moves an index through a sequence of Length items
type Carousel struct {
	state *models.CarouselState
}

// New returns a carousel at index 0
func New(length int) *Carousel {
	return Attach(&models.CarouselState{Length: length})
}

// Attach wraps an existing state, normalizing its index
func Attach(state *models.CarouselState) *Carousel {
	if state.Length < 0 {
		state.Length = 0
	}
	state.Index = Wrap(state.Index, state.Length)
	return &Carousel{state: state}
}

// Index returns the active position
func (c *Carousel) Index() int {
	return c.state.Index
}

// Len returns the sequence length
func (c *Carousel) Len() int {
	return c.state.Length
}

// Next advances one item, wrapping from the last to the first
func (c *Carousel) Next() int {
	return c.Jump(c.state.Index + 1)
}

// Prev retreats one item, wrapping from the first to the last
func (c *Carousel) Prev() int {
	return c.Jump(c.state.Index - 1)
}

// Move steps once in the given direction
func (c *Carousel) Move(dir models.Direction) int {
	if dir == models.Backward {
		return c.Prev()
	}
	return c.Next()
}

// Jump goes directly to i, normalized into range
func (c *Carousel) Jump(i int) int {
	c.state.Index = Wrap(i, c.state.Length)
	return c.state.Index
}

// Resize changes the sequence length and keeps the index in range
func (c *Carousel) Resize(length int) {
	if length < 0 {
		length = 0
	}
	c.state.Length = length
	c.state.Index = Wrap(c.state.Index, length)
}
