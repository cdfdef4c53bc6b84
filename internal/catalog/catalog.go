// Package catalog serves the studio's static content: services, portfolio,
// testimonials, team and booking reference data. A Catalog is immutable
// after loading and safe for concurrent use.
package catalog

import (
	"fmt"

	"github.com/terra-clan/studio-engine/internal/models"
)

// Catalog holds the loaded content in its authored order
type Catalog struct {
	services          []models.ServiceOffering
	serviceCategories []models.Category
	addOns            []models.AddOn
	projects          []models.PortfolioProject
	projectCategories []models.Category
	portfolioStats    models.PortfolioStats
	awards            []models.Award
	testimonials      []models.Testimonial
	team              []models.TeamMember
	timeSlots         []string
	consultationTypes []models.ConsultationType

	serviceIdx      map[string]int
	projectIdx      map[string]int
	testimonialIdx  map[int]int
	consultationIdx map[string]int
	slotIdx         map[string]struct{}
}

// index validates the loaded content and builds the id lookups
func (c *Catalog) index() error {
	c.serviceIdx = make(map[string]int, len(c.services))
	for i, s := range c.services {
		if s.ID == "" || s.Name == "" {
			return fmt.Errorf("%w: service %d: id and name are required", ErrInvalidContent, i)
		}
		if _, dup := c.serviceIdx[s.ID]; dup {
			return fmt.Errorf("%w: duplicate service id %q", ErrInvalidContent, s.ID)
		}
		if len(s.Images) == 0 {
			return fmt.Errorf("%w: service %q has no images", ErrInvalidContent, s.ID)
		}
		if s.Category == "" {
			c.services[i].Category = s.ID
		}
		c.serviceIdx[s.ID] = i
	}

	c.projectIdx = make(map[string]int, len(c.projects))
	for i, p := range c.projects {
		if p.ID == "" || p.Title == "" {
			return fmt.Errorf("%w: project %d: id and title are required", ErrInvalidContent, i)
		}
		if _, dup := c.projectIdx[p.ID]; dup {
			return fmt.Errorf("%w: duplicate project id %q", ErrInvalidContent, p.ID)
		}
		if len(p.Images) == 0 {
			return fmt.Errorf("%w: project %q has no images", ErrInvalidContent, p.ID)
		}
		c.projectIdx[p.ID] = i
	}

	c.testimonialIdx = make(map[int]int, len(c.testimonials))
	for i, t := range c.testimonials {
		if t.Rating < 1 || t.Rating > 5 {
			return fmt.Errorf("%w: testimonial %d rating %d out of 1..5", ErrInvalidContent, t.ID, t.Rating)
		}
		if _, dup := c.testimonialIdx[t.ID]; dup {
			return fmt.Errorf("%w: duplicate testimonial id %d", ErrInvalidContent, t.ID)
		}
		c.testimonialIdx[t.ID] = i
	}

	seenTeam := make(map[string]struct{}, len(c.team))
	for _, m := range c.team {
		if _, dup := seenTeam[m.ID]; dup {
			return fmt.Errorf("%w: duplicate team member id %q", ErrInvalidContent, m.ID)
		}
		seenTeam[m.ID] = struct{}{}
	}

	c.slotIdx = make(map[string]struct{}, len(c.timeSlots))
	for _, slot := range c.timeSlots {
		if _, dup := c.slotIdx[slot]; dup {
			return fmt.Errorf("%w: duplicate time slot %q", ErrInvalidContent, slot)
		}
		c.slotIdx[slot] = struct{}{}
	}

	c.consultationIdx = make(map[string]int, len(c.consultationTypes))
	for i, ct := range c.consultationTypes {
		if _, dup := c.consultationIdx[ct.ID]; dup {
			return fmt.Errorf("%w: duplicate consultation type %q", ErrInvalidContent, ct.ID)
		}
		c.consultationIdx[ct.ID] = i
	}

	return nil
}

// --- Services ---

// ListServices returns services in the given category, or all of them for "all".
// An unknown category yields an empty list.
func (c *Catalog) ListServices(category string) []models.ServiceOffering {
	result := make([]models.ServiceOffering, 0, len(c.services))
	for _, s := range c.services {
		if models.CategoryMatches(category, s.Category) {
			result = append(result, s)
		}
	}
	return result
}

// GetService returns a service by id
func (c *Catalog) GetService(id string) (models.ServiceOffering, bool) {
	i, ok := c.serviceIdx[id]
	if !ok {
		return models.ServiceOffering{}, false
	}
	return c.services[i], true
}

// ServiceOrDefault returns the service with the given id, falling back to the
// first service when it is unknown. ok is false when the catalog has no services.
func (c *Catalog) ServiceOrDefault(id string) (models.ServiceOffering, bool) {
	if s, ok := c.GetService(id); ok {
		return s, true
	}
	if len(c.services) == 0 {
		return models.ServiceOffering{}, false
	}
	return c.services[0], true
}

// HasService reports whether id is a known service
func (c *Catalog) HasService(id string) bool {
	_, ok := c.serviceIdx[id]
	return ok
}

// AddOns returns the optional extras
func (c *Catalog) AddOns() []models.AddOn {
	return append([]models.AddOn(nil), c.addOns...)
}

// --- Portfolio ---

// ListProjects returns projects in the given category, or all of them for "all"
func (c *Catalog) ListProjects(category string) []models.PortfolioProject {
	result := make([]models.PortfolioProject, 0, len(c.projects))
	for _, p := range c.projects {
		if models.CategoryMatches(category, p.Category) {
			result = append(result, p)
		}
	}
	return result
}

// GetProject returns a project by id
func (c *Catalog) GetProject(id string) (models.PortfolioProject, bool) {
	i, ok := c.projectIdx[id]
	if !ok {
		return models.PortfolioProject{}, false
	}
	return c.projects[i], true
}

// FeaturedProjects returns projects flagged for emphasis
func (c *Catalog) FeaturedProjects() []models.PortfolioProject {
	var result []models.PortfolioProject
	for _, p := range c.projects {
		if p.Featured {
			result = append(result, p)
		}
	}
	return result
}

// PortfolioStats returns the studio-wide numbers
func (c *Catalog) PortfolioStats() models.PortfolioStats {
	return c.portfolioStats
}

// Awards returns awards newest first, as authored
func (c *Catalog) Awards() []models.Award {
	return append([]models.Award(nil), c.awards...)
}

// Categories returns the filter options of a view
func (c *Catalog) Categories(view models.View) ([]models.Category, error) {
	switch view {
	case models.ViewServices:
		return append([]models.Category(nil), c.serviceCategories...), nil
	case models.ViewPortfolio:
		return append([]models.Category(nil), c.projectCategories...), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownKind, view)
	}
}

// --- People ---

// Testimonials returns client testimonials in carousel order
func (c *Catalog) Testimonials() []models.Testimonial {
	return append([]models.Testimonial(nil), c.testimonials...)
}

// Testimonial returns a testimonial by id
func (c *Catalog) Testimonial(id int) (models.Testimonial, bool) {
	i, ok := c.testimonialIdx[id]
	if !ok {
		return models.Testimonial{}, false
	}
	return c.testimonials[i], true
}

// Team returns the studio team
func (c *Catalog) Team() []models.TeamMember {
	return append([]models.TeamMember(nil), c.team...)
}

// --- Booking reference data ---

// TimeSlots returns the bookable time slots in display order
func (c *Catalog) TimeSlots() []string {
	return append([]string(nil), c.timeSlots...)
}

// HasTimeSlot reports whether slot is bookable
func (c *Catalog) HasTimeSlot(slot string) bool {
	_, ok := c.slotIdx[slot]
	return ok
}

// ConsultationTypes returns the consultation kinds offered on the contact page
func (c *Catalog) ConsultationTypes() []models.ConsultationType {
	return append([]models.ConsultationType(nil), c.consultationTypes...)
}

// ConsultationType returns a consultation kind by id
func (c *Catalog) ConsultationType(id string) (models.ConsultationType, bool) {
	i, ok := c.consultationIdx[id]
	if !ok {
		return models.ConsultationType{}, false
	}
	return c.consultationTypes[i], true
}

// --- Selection lookups ---

// ItemCategory returns the category of an item shown in a view
func (c *Catalog) ItemCategory(view models.View, id string) (string, bool) {
	switch view {
	case models.ViewServices:
		s, ok := c.GetService(id)
		return s.Category, ok
	case models.ViewPortfolio:
		p, ok := c.GetProject(id)
		return p.Category, ok
	}
	return "", false
}

// GalleryLength returns the number of images of an item, 0 if unknown
func (c *Catalog) GalleryLength(view models.View, id string) int {
	switch view {
	case models.ViewServices:
		s, _ := c.GetService(id)
		return len(s.Images)
	case models.ViewPortfolio:
		p, _ := c.GetProject(id)
		return len(p.Images)
	}
	return 0
}

// Stats summarizes collection sizes for logging and the CLI
func (c *Catalog) Stats() map[string]int {
	return map[string]int{
		"services":           len(c.services),
		"add_ons":            len(c.addOns),
		"projects":           len(c.projects),
		"featured":           len(c.FeaturedProjects()),
		"awards":             len(c.awards),
		"testimonials":       len(c.testimonials),
		"team":               len(c.team),
		"time_slots":         len(c.timeSlots),
		"consultation_types": len(c.consultationTypes),
	}
}
