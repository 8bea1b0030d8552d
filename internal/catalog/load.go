package catalog

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type document struct {
	Timezone string           `yaml:"timezone"`
	Doctors  []doctorDocument `yaml:"doctors"`
}

type doctorDocument struct {
	ID        string   `yaml:"id"`
	Name      string   `yaml:"name"`
	Specialty string   `yaml:"specialty"`
	Fee       string   `yaml:"fee"`
	Days      []string `yaml:"days"`
	Slots     []string `yaml:"slots"`
}

// Load parses a YAML catalog document.
func Load(r io.Reader) (*Catalog, error) {
	var doc document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("catalog: decode document: %w", err)
	}

	doctors := make([]Doctor, 0, len(doc.Doctors))
	for _, dd := range doc.Doctors {
		days := make([]time.Weekday, 0, len(dd.Days))
		for _, name := range dd.Days {
			wd, ok := parseWeekday(name)
			if !ok {
				return nil, fmt.Errorf("%w: doctor %s day %q", ErrInvalidCatalog, dd.ID, name)
			}
			days = append(days, wd)
		}
		doctors = append(doctors, Doctor{
			ID:        dd.ID,
			Name:      dd.Name,
			Specialty: dd.Specialty,
			Fee:       dd.Fee,
			Days:      days,
			Slots:     dd.Slots,
		})
	}

	c, err := New(doctors)
	if err != nil {
		return nil, err
	}
	if tz := strings.TrimSpace(doc.Timezone); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return nil, fmt.Errorf("catalog: load timezone %q: %w", tz, err)
		}
		c = c.WithLocation(loc)
	}
	return c, nil
}

// LoadFile reads the catalog document at path.
func LoadFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: open %s: %w", path, err)
	}
	defer f.Close()
	return Load(f)
}

func parseWeekday(name string) (time.Weekday, bool) {
	key := strings.ToLower(strings.TrimSpace(name))
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		full := strings.ToLower(wd.String())
		if key == full || key == full[:3] {
			return wd, true
		}
	}
	return 0, false
}
