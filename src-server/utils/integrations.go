package utils

import (
	"fmt"
	"os"
	"strings"

	"calfeed/src-server/mapper"

	"gopkg.in/yaml.v3"
)

// Upstream service reached with a bearer token. An empty APIURL means the
// integration is off.
type Integration struct {
	APIURL string `yaml:"api_url"`
	Token  string `yaml:"token"`
}

func (i Integration) Enabled() bool {
	return i.APIURL != ""
}

type SportIntegration struct {
	Integration `yaml:",inline"`
	WindowDays  int `yaml:"window_days"`
}

type Integrations struct {
	Moodle    Integration      `yaml:"moodle"`
	Sport     SportIntegration `yaml:"sport"`
	MusicRoom Integration      `yaml:"music_room"`
	Workshops Integration      `yaml:"workshops"`
}

func LoadIntegrations(path string) (*Integrations, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("LoadIntegrations: %w", err)
	}
	var integrations Integrations
	if err := yaml.Unmarshal(data, &integrations); err != nil {
		return nil, fmt.Errorf("LoadIntegrations: %s: %w", path, err)
	}
	integrations.Normalize()
	return &integrations, nil
}

// Fill defaults and trim what would break URL joining.
func (i *Integrations) Normalize() {
	for _, integration := range []*Integration{&i.Moodle, &i.Sport.Integration, &i.MusicRoom, &i.Workshops} {
		integration.APIURL = strings.TrimRight(strings.TrimSpace(integration.APIURL), "/")
		integration.Token = strings.TrimSpace(integration.Token)
	}
	if i.Sport.WindowDays <= 0 {
		i.Sport.WindowDays = mapper.DefaultSportWindowDays
	}
}
