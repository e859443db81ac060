package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"time"

	"gopkg.in/yaml.v3"
)

var (
	ErrConfigNotFound = errors.New("config file not found")
	ErrConfigParsing  = errors.New("config parsing failed")
)

const sprintDateLayout = "2006-01-02"

// Team is a named group of GitHub logins.
type Team struct {
	Name    string   `yaml:"name"`
	Members []string `yaml:"members"`
}

// SprintCalendar describes fixed-length sprints counted from an anchor date.
type SprintCalendar struct {
	Start      string `yaml:"start"`
	LengthDays int    `yaml:"length_days"`

	anchor time.Time
}

// TeamDirectory is the content of the teams file.
type TeamDirectory struct {
	Sprint SprintCalendar `yaml:"sprint"`
	Teams  []Team         `yaml:"teams"`
}

// DefaultTeamDirectory has no teams and two-week sprints starting on a Monday.
func DefaultTeamDirectory() *TeamDirectory {
	d := &TeamDirectory{Sprint: SprintCalendar{Start: "2024-01-01", LengthDays: 14}}
	_ = d.validate()
	return d
}

// LoadTeamDirectory loads and parses the teams file. A missing file yields
// the default directory together with ErrConfigNotFound.
func LoadTeamDirectory(path string) (*TeamDirectory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultTeamDirectory(), ErrConfigNotFound
		}
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return ParseTeamDirectory(data)
}

// ParseTeamDirectory decodes a teams file.
func ParseTeamDirectory(data []byte) (*TeamDirectory, error) {
	dir := DefaultTeamDirectory()
	if err := yaml.Unmarshal(data, dir); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfigParsing, err)
	}
	if err := dir.validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfigParsing, err)
	}
	return dir, nil
}

func (d *TeamDirectory) validate() error {
	anchor, err := time.Parse(sprintDateLayout, d.Sprint.Start)
	if err != nil {
		return fmt.Errorf("sprint start %q: %w", d.Sprint.Start, err)
	}
	if d.Sprint.LengthDays <= 0 {
		return fmt.Errorf("sprint length must be positive, got %d", d.Sprint.LengthDays)
	}
	d.Sprint.anchor = anchor

	seen := make(map[string]bool, len(d.Teams))
	for _, t := range d.Teams {
		if t.Name == "" {
			return errors.New("team without a name")
		}
		if seen[t.Name] {
			return fmt.Errorf("duplicate team %q", t.Name)
		}
		seen[t.Name] = true
	}
	return nil
}

// Team returns the team with the given name.
func (d *TeamDirectory) Team(name string) (Team, bool) {
	for _, t := range d.Teams {
		if t.Name == name {
			return t, true
		}
	}
	return Team{}, false
}

// TeamsOf returns the names of the teams login belongs to.
func (d *TeamDirectory) TeamsOf(login string) []string {
	var names []string
	for _, t := range d.Teams {
		if slices.Contains(t.Members, login) {
			names = append(names, t.Name)
		}
	}
	return names
}

// SprintWindow returns the [start, end) window of the sprint containing at.
func (d *TeamDirectory) SprintWindow(at time.Time) (time.Time, time.Time) {
	length := time.Duration(d.Sprint.LengthDays) * 24 * time.Hour
	at = at.UTC()
	elapsed := at.Sub(d.Sprint.anchor)
	n := elapsed / length
	if elapsed < 0 && elapsed%length != 0 {
		n--
	}
	start := d.Sprint.anchor.Add(n * length)
	return start, start.Add(length)
}

// FormatSprintStart renders a sprint start the way it appears in entity ids.
func FormatSprintStart(start time.Time) string {
	return start.UTC().Format(sprintDateLayout)
}

// ParseSprintStart is the inverse of FormatSprintStart.
func ParseSprintStart(s string) (time.Time, error) {
	return time.Parse(sprintDateLayout, s)
}
