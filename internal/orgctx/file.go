package orgctx

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrUnknownProfile is returned for profile ids with no context
var ErrUnknownProfile = errors.New("unknown organization profile")

// Provider resolves a profile id to an organizational context blob
type Provider interface {
	Get(ctx context.Context, profileID string) (string, error)
}

// Profile describes the organization a brief is written for
type Profile struct {
	Name       string   `yaml:"name"`
	Industry   string   `yaml:"industry,omitempty"`
	Priorities []string `yaml:"priorities,omitempty"`
	Context    string   `yaml:"context,omitempty"`
}

// Render formats the profile as prompt context
func (p Profile) Render() string {
	var sb strings.Builder
	if p.Name != "" {
		fmt.Fprintf(&sb, "Organization: %s\n", p.Name)
	}
	if p.Industry != "" {
		fmt.Fprintf(&sb, "Industry: %s\n", p.Industry)
	}
	if len(p.Priorities) > 0 {
		fmt.Fprintf(&sb, "Priorities: %s\n", strings.Join(p.Priorities, "; "))
	}
	if p.Context != "" {
		sb.WriteString(strings.TrimSpace(p.Context))
		sb.WriteByte('\n')
	}
	return strings.TrimSpace(sb.String())
}

// FileProvider serves profiles from a YAML map of id to Profile
type FileProvider struct {
	profiles map[string]Profile
}

// NewFileProvider wraps an in-memory profile map
func NewFileProvider(profiles map[string]Profile) *FileProvider {
	return &FileProvider{profiles: profiles}
}

// LoadFile reads a profiles YAML file
func LoadFile(path string) (*FileProvider, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profiles: %w", err)
	}

	var profiles map[string]Profile
	if err := yaml.Unmarshal(data, &profiles); err != nil {
		return nil, fmt.Errorf("parse profiles: %w", err)
	}
	return NewFileProvider(profiles), nil
}

// Get returns the rendered context for profileID
func (p *FileProvider) Get(ctx context.Context, profileID string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	profile, ok := p.profiles[profileID]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownProfile, profileID)
	}
	return profile.Render(), nil
}
