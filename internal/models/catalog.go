package models

import "strings"

// CategoryAll is the filter sentinel that matches every item
const CategoryAll = "all"

// NormalizeCategory folds a category key so that "preWedding", "pre-wedding"
// and "prewedding" compare equal
func NormalizeCategory(category string) string {
	c := strings.ToLower(strings.TrimSpace(category))
	return strings.NewReplacer("-", "", "_", "", " ", "").Replace(c)
}

// CategoryMatches reports whether an item category passes the given filter
func CategoryMatches(filter, itemCategory string) bool {
	f := NormalizeCategory(filter)
	if f == "" || f == CategoryAll {
		return true
	}
	return f == NormalizeCategory(itemCategory)
}

// ServiceOffering is a photography service shown on the services and booking pages
type ServiceOffering struct {
	ID            string       `yaml:"id" json:"id"`
	Name          string       `yaml:"name" json:"name"`
	Category      string       `yaml:"category" json:"category"`
	Duration      string       `yaml:"duration" json:"duration"`
	Description   string       `yaml:"description" json:"description"`
	StartingPrice string       `yaml:"starting_price" json:"starting_price"`
	Images        []string     `yaml:"images" json:"images"`
	Features      []string     `yaml:"features" json:"features"`
	Packages      []Package    `yaml:"packages" json:"packages"`
	PopularFor    []string     `yaml:"popular_for" json:"popular_for"`
	Stats         ServiceStats `yaml:"stats" json:"stats"`
}

// Package is a priced bundle within a service
type Package struct {
	Name     string   `yaml:"name" json:"name"`
	Price    string   `yaml:"price" json:"price"`
	Features []string `yaml:"features" json:"features"`
}

// ServiceStats holds the headline numbers of a service
type ServiceStats struct {
	EventsCaptured     string `yaml:"events_captured" json:"events_captured"`
	Experience         string `yaml:"experience" json:"experience"`
	ClientSatisfaction string `yaml:"client_satisfaction" json:"client_satisfaction"`
}

// AddOn is an optional extra that can be combined with any service
type AddOn struct {
	ID          string `yaml:"id" json:"id"`
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description" json:"description"`
	Price       string `yaml:"price" json:"price"`
}

// PortfolioProject is a single body of work in the portfolio
type PortfolioProject struct {
	ID                      string         `yaml:"id" json:"id"`
	Title                   string         `yaml:"title" json:"title"`
	Category                string         `yaml:"category" json:"category"`
	Location                string         `yaml:"location" json:"location"`
	Year                    string         `yaml:"year" json:"year"`
	Description             string         `yaml:"description" json:"description"`
	DetailedDescription     string         `yaml:"detailed_description" json:"detailed_description,omitempty"`
	DetailedDescriptionHTML string         `yaml:"-" json:"detailed_description_html,omitempty"`
	Images                  []string       `yaml:"images" json:"images"`
	Highlights              []string       `yaml:"highlights" json:"highlights"`
	Stats                   map[string]any `yaml:"stats" json:"stats,omitempty"`
	Tags                    []string       `yaml:"tags" json:"tags,omitempty"`
	Featured                bool           `yaml:"featured" json:"featured"`
}

// PortfolioStats holds studio-wide portfolio numbers
type PortfolioStats struct {
	TotalProjects      int    `yaml:"total_projects" json:"total_projects"`
	WeddingsCaptured   int    `yaml:"weddings_captured" json:"weddings_captured"`
	PreWeddingSessions int    `yaml:"prewedding_sessions" json:"prewedding_sessions"`
	CorporateProjects  int    `yaml:"corporate_projects" json:"corporate_projects"`
	YearsExperience    int    `yaml:"years_experience" json:"years_experience"`
	ClientSatisfaction string `yaml:"client_satisfaction" json:"client_satisfaction"`
	CitiesPhotographed int    `yaml:"cities_photographed" json:"cities_photographed"`
}

// Award is a recognition received for a project
type Award struct {
	Year    string `yaml:"year" json:"year"`
	Award   string `yaml:"award" json:"award"`
	Project string `yaml:"project" json:"project"`
}

// Testimonial is a client quote shown in the testimonial carousel
type Testimonial struct {
	ID       int    `yaml:"id" json:"id"`
	Name     string `yaml:"name" json:"name"`
	Role     string `yaml:"role" json:"role"`
	Quote    string `yaml:"quote" json:"quote"`
	Location string `yaml:"location" json:"location"`
	Date     string `yaml:"date" json:"date"`
	Rating   int    `yaml:"rating" json:"rating"`
	Image    string `yaml:"image" json:"image"`
}

// TeamMember is a person on the studio team
type TeamMember struct {
	ID      string       `yaml:"id" json:"id"`
	Name    string       `yaml:"name" json:"name"`
	Role    string       `yaml:"role" json:"role"`
	Bio     string       `yaml:"bio" json:"bio,omitempty"`
	Image   string       `yaml:"image" json:"image"`
	Socials []SocialLink `yaml:"socials" json:"socials"`
}

// SocialLink points to a team member's profile
type SocialLink struct {
	Platform string `yaml:"platform" json:"platform"`
	URL      string `yaml:"url" json:"url"`
}

// ConsultationType is a kind of consultation offered on the contact page
type ConsultationType struct {
	ID       string `yaml:"id" json:"id"`
	Label    string `yaml:"label" json:"label"`
	Duration string `yaml:"duration" json:"duration"`
}

// Category is a filter option with a display label
type Category struct {
	ID    string `yaml:"id" json:"id"`
	Label string `yaml:"label" json:"label"`
	Count int    `yaml:"count" json:"count"`
}
