package adventure

import (
	_ "embed"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// Genre is one of the six adventure genres offered at the start of a game.
type Genre string

const (
	GenreFantasy         Genre = "fantasy"
	GenreSciFi           Genre = "sci-fi"
	GenreCyberpunk       Genre = "cyberpunk"
	GenrePostApocalyptic Genre = "post-apocalyptic"
	GenreMystery         Genre = "mystery"
	GenreHorror          Genre = "horror"
)

// Persona is one of the four player personas.
type Persona string

const (
	PersonaDetective Persona = "detective"
	PersonaScholar   Persona = "scholar"
	PersonaWarrior   Persona = "warrior"
	PersonaRogue     Persona = "rogue"
)

// Selection is the genre/persona pair chosen before generation begins.
type Selection struct {
	Genre   Genre   `json:"genre"`
	Persona Persona `json:"persona"`
}

// Complete reports whether both halves of the selection are set.
func (s Selection) Complete() bool {
	return s.Genre.Valid() && s.Persona.Valid()
}

// GenreInfo describes a genre for display and prompt building.
type GenreInfo struct {
	ID          Genre  `yaml:"id"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	ImageStyle  string `yaml:"image_style"`
}

// PersonaInfo describes a persona for display and prompt building.
type PersonaInfo struct {
	ID          Persona `yaml:"id"`
	Name        string  `yaml:"name"`
	Description string  `yaml:"description"`
}

//go:embed catalog.yaml
var catalogYAML []byte

type catalog struct {
	Genres   []GenreInfo   `yaml:"genres"`
	Personas []PersonaInfo `yaml:"personas"`
}

var defaultCatalog = mustLoadCatalog(catalogYAML)

func mustLoadCatalog(data []byte) catalog {
	var c catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		panic(fmt.Sprintf("adventure: invalid embedded catalog: %v", err))
	}
	return c
}

// Genres returns the genre catalog in display order.
func Genres() []GenreInfo {
	out := make([]GenreInfo, len(defaultCatalog.Genres))
	copy(out, defaultCatalog.Genres)
	return out
}

// Personas returns the persona catalog in display order.
func Personas() []PersonaInfo {
	out := make([]PersonaInfo, len(defaultCatalog.Personas))
	copy(out, defaultCatalog.Personas)
	return out
}

// Info returns the catalog entry for g.
func (g Genre) Info() (GenreInfo, bool) {
	for _, info := range defaultCatalog.Genres {
		if info.ID == g {
			return info, true
		}
	}
	return GenreInfo{}, false
}

// Valid reports whether g is a known genre.
func (g Genre) Valid() bool {
	_, ok := g.Info()
	return ok
}

// DisplayName returns the catalog name, falling back to title case.
func (g Genre) DisplayName() string {
	if info, ok := g.Info(); ok {
		return info.Name
	}
	return titleCase(string(g))
}

// Info returns the catalog entry for p.
func (p Persona) Info() (PersonaInfo, bool) {
	for _, info := range defaultCatalog.Personas {
		if info.ID == p {
			return info, true
		}
	}
	return PersonaInfo{}, false
}

// Valid reports whether p is a known persona.
func (p Persona) Valid() bool {
	_, ok := p.Info()
	return ok
}

// DisplayName returns the catalog name, falling back to title case.
func (p Persona) DisplayName() string {
	if info, ok := p.Info(); ok {
		return info.Name
	}
	return titleCase(string(p))
}

// ParseGenre accepts either a catalog id or a display name, case-insensitively.
func ParseGenre(s string) (Genre, error) {
	s = strings.TrimSpace(s)
	for _, info := range defaultCatalog.Genres {
		if strings.EqualFold(string(info.ID), s) || strings.EqualFold(info.Name, s) {
			return info.ID, nil
		}
	}
	return "", fmt.Errorf("unknown genre: %q", s)
}

// ParsePersona accepts either a catalog id or a display name, case-insensitively.
func ParsePersona(s string) (Persona, error) {
	s = strings.TrimSpace(s)
	for _, info := range defaultCatalog.Personas {
		if strings.EqualFold(string(info.ID), s) || strings.EqualFold(info.Name, s) {
			return info.ID, nil
		}
	}
	return "", fmt.Errorf("unknown persona: %q", s)
}

func titleCase(s string) string {
	return cases.Title(language.English).String(strings.ReplaceAll(s, "-", " "))
}
