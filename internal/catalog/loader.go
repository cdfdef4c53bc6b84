package catalog

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"gopkg.in/yaml.v3"

	"github.com/terra-clan/studio-engine/internal/models"
)

//go:embed content/*.yaml
var embedded embed.FS

// Content file names, relative to the content root
const (
	servicesFile     = "services.yaml"
	portfolioFile    = "portfolio.yaml"
	testimonialsFile = "testimonials.yaml"
	teamFile         = "team.yaml"
	studioFile       = "studio.yaml"
)

// LoadEmbedded loads the content compiled into the binary
func LoadEmbedded() (*Catalog, error) {
	sub, err := fs.Sub(embedded, "content")
	if err != nil {
		return nil, fmt.Errorf("failed to open embedded content: %w", err)
	}
	return LoadFS(sub)
}

// LoadFromDir loads content files from a directory on disk
func LoadFromDir(dir string) (*Catalog, error) {
	slog.Info("loading catalog from directory", "dir", dir)
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to stat catalog dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("catalog path %s is not a directory", dir)
	}
	return LoadFS(os.DirFS(dir))
}

// Load loads from dir when set, otherwise from the embedded content
func Load(dir string) (*Catalog, error) {
	if dir == "" {
		return LoadEmbedded()
	}
	return LoadFromDir(dir)
}

// LoadFS reads every known content file from fsys. Missing files leave
// their collections empty; malformed or invalid files fail the load.
func LoadFS(fsys fs.FS) (*Catalog, error) {
	var sf servicesFileData
	var pf portfolioFileData
	var tf testimonialsFileData
	var mf teamFileData
	var stf studioFileData

	files := []struct {
		name string
		out  any
	}{
		{servicesFile, &sf},
		{portfolioFile, &pf},
		{testimonialsFile, &tf},
		{teamFile, &mf},
		{studioFile, &stf},
	}

	for _, f := range files {
		if err := readYAML(fsys, f.name, f.out); err != nil {
			return nil, err
		}
	}

	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	for i := range pf.Projects {
		p := &pf.Projects[i]
		if p.DetailedDescription == "" {
			continue
		}
		var buf bytes.Buffer
		if err := md.Convert([]byte(p.DetailedDescription), &buf); err != nil {
			return nil, fmt.Errorf("failed to render description of %s: %w", p.ID, err)
		}
		p.DetailedDescriptionHTML = buf.String()
	}

	c := &Catalog{
		services:          sf.Services,
		serviceCategories: sf.Categories,
		addOns:            sf.AddOns,
		projects:          pf.Projects,
		projectCategories: pf.Categories,
		portfolioStats:    pf.Stats,
		awards:            pf.Awards,
		testimonials:      tf.Testimonials,
		team:              mf.Team,
		timeSlots:         stf.TimeSlots,
		consultationTypes: stf.ConsultationTypes,
	}

	if err := c.index(); err != nil {
		return nil, err
	}

	slog.Info("catalog loaded",
		"services", len(c.services),
		"projects", len(c.projects),
		"testimonials", len(c.testimonials),
		"team", len(c.team),
		"time_slots", len(c.timeSlots),
	)

	return c, nil
}

func readYAML(fsys fs.FS, name string, out any) error {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			slog.Warn("catalog file missing", "file", name)
			return nil
		}
		return fmt.Errorf("failed to read %s: %w", name, err)
	}

	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse %s: %w", name, err)
	}
	return nil
}

// --- YAML file structs ---

type servicesFileData struct {
	Categories []models.Category        `yaml:"categories"`
	Services   []models.ServiceOffering `yaml:"services"`
	AddOns     []models.AddOn           `yaml:"add_ons"`
}

type portfolioFileData struct {
	Categories []models.Category         `yaml:"categories"`
	Projects   []models.PortfolioProject `yaml:"projects"`
	Stats      models.PortfolioStats     `yaml:"stats"`
	Awards     []models.Award            `yaml:"awards"`
}

type testimonialsFileData struct {
	Testimonials []models.Testimonial `yaml:"testimonials"`
}

type teamFileData struct {
	Team []models.TeamMember `yaml:"team"`
}

type studioFileData struct {
	TimeSlots         []string                  `yaml:"time_slots"`
	ConsultationTypes []models.ConsultationType `yaml:"consultation_types"`
}
