package waterfall

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/contact-enricher/internal/waterfall/provider"
)

// Config is the top-level waterfall configuration: which providers each
// stage consults, in order.
type Config struct {
	Stages StageConfig `yaml:"stages"`
}

// StageConfig lists provider names per stage.
type StageConfig struct {
	Identity []string `yaml:"identity"`
	Email    []string `yaml:"email"`
	Fallback []string `yaml:"fallback"`
	Phone    []string `yaml:"phone"`
}

// DefaultConfig returns the built-in stage order.
func DefaultConfig() *Config {
	return &Config{
		Stages: StageConfig{
			Identity: []string{"apollo", "snov"},
			Email:    []string{"hunter"},
			Fallback: []string{"hunter"},
			Phone:    []string{"snov"},
		},
	}
}

// LoadConfig reads waterfall config from a YAML file. Stages the file leaves
// out keep their default order; an explicitly empty list disables a stage.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "waterfall: read config %s", path)
	}

	// The YAML has a top-level "waterfall" key
	var wrapper struct {
		Waterfall struct {
			Stages struct {
				Identity *[]string `yaml:"identity"`
				Email    *[]string `yaml:"email"`
				Fallback *[]string `yaml:"fallback"`
				Phone    *[]string `yaml:"phone"`
			} `yaml:"stages"`
		} `yaml:"waterfall"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return nil, eris.Wrap(err, "waterfall: parse config")
	}

	cfg := DefaultConfig()
	s := wrapper.Waterfall.Stages
	override(&cfg.Stages.Identity, s.Identity)
	override(&cfg.Stages.Email, s.Email)
	override(&cfg.Stages.Fallback, s.Fallback)
	override(&cfg.Stages.Phone, s.Phone)

	if len(cfg.Stages.Identity) == 0 && len(cfg.Stages.Fallback) == 0 {
		return nil, eris.New("waterfall: config has no identity or fallback providers")
	}
	return cfg, nil
}

func override(dst *[]string, src *[]string) {
	if src != nil {
		*dst = *src
	}
}

// Names returns every provider name the config references, without duplicates.
func (c *Config) Names() []string {
	seen := make(map[string]bool)
	var names []string
	for _, stage := range [][]string{c.Stages.Identity, c.Stages.Email, c.Stages.Fallback, c.Stages.Phone} {
		for _, n := range stage {
			if !seen[n] {
				seen[n] = true
				names = append(names, n)
			}
		}
	}
	return names
}

// resolved holds the stage providers after registry lookup.
type resolved struct {
	identity []provider.Provider
	email    []provider.Provider
	fallback []provider.Provider
	phone    []provider.Provider
}

func (c *Config) resolve(reg *provider.Registry) (*resolved, error) {
	var (
		r   resolved
		err error
	)
	if r.identity, err = reg.Resolve(c.Stages.Identity); err != nil {
		return nil, eris.Wrap(err, "waterfall: identity stage")
	}
	if r.email, err = reg.Resolve(c.Stages.Email); err != nil {
		return nil, eris.Wrap(err, "waterfall: email stage")
	}
	if r.fallback, err = reg.Resolve(c.Stages.Fallback); err != nil {
		return nil, eris.Wrap(err, "waterfall: fallback stage")
	}
	if r.phone, err = reg.Resolve(c.Stages.Phone); err != nil {
		return nil, eris.Wrap(err, "waterfall: phone stage")
	}
	return &r, nil
}
