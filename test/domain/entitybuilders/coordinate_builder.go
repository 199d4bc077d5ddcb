//go:build integration || unit || test

package entitybuilders //nolint:revive,staticcheck // Test package naming follows established project structure

import (
	testkit "github.com/rios0rios0/testkit/pkg/test"

	"github.com/rios0rios0/gitu/internal/domain/entities"
)

// CoordinateBuilder helps create test coordinates with a fluent interface.
type CoordinateBuilder struct {
	*testkit.BaseBuilder
	protocol string
	host     string
	owner    string
	repo     string
	project  string
	branch   string
	username string
	password string
}

// NewCoordinateBuilder creates a new coordinate builder with sensible defaults.
func NewCoordinateBuilder() *CoordinateBuilder {
	return &CoordinateBuilder{
		BaseBuilder: testkit.NewBaseBuilder(),
		protocol:    entities.ProtocolHTTPS,
		host:        "example.com",
		owner:       "org",
		repo:        "repo",
	}
}

// WithHost sets the host.
func (b *CoordinateBuilder) WithHost(host string) *CoordinateBuilder {
	b.host = host
	return b
}

// WithOwner sets the owner.
func (b *CoordinateBuilder) WithOwner(owner string) *CoordinateBuilder {
	b.owner = owner
	return b
}

// WithRepo sets the repository.
func (b *CoordinateBuilder) WithRepo(repo string) *CoordinateBuilder {
	b.repo = repo
	return b
}

// WithProject sets the Azure DevOps project.
func (b *CoordinateBuilder) WithProject(project string) *CoordinateBuilder {
	b.project = project
	return b
}

// WithBranch sets the branch selector.
func (b *CoordinateBuilder) WithBranch(branch string) *CoordinateBuilder {
	b.branch = branch
	return b
}

// WithCredentials sets username and password.
func (b *CoordinateBuilder) WithCredentials(username string, password string) *CoordinateBuilder {
	b.username = username
	b.password = password
	return b
}

// Build creates the coordinate (satisfies testkit.Builder interface).
func (b *CoordinateBuilder) Build() interface{} {
	return b.BuildCoordinate()
}

// BuildCoordinate creates the coordinate with a concrete return type.
func (b *CoordinateBuilder) BuildCoordinate() entities.Coordinate {
	return entities.Coordinate{
		Protocol: b.protocol,
		Host:     b.host,
		Owner:    b.owner,
		Repo:     b.repo,
		Project:  b.project,
		Branch:   b.branch,
		Username: b.username,
		Password: b.password,
	}
}

// Reset clears the builder state, allowing it to be reused.
func (b *CoordinateBuilder) Reset() testkit.Builder {
	b.BaseBuilder.Reset()
	b.protocol = entities.ProtocolHTTPS
	b.host = "example.com"
	b.owner = "org"
	b.repo = "repo"
	b.project = ""
	b.branch = ""
	b.username = ""
	b.password = ""
	return b
}

// Clone creates a deep copy of the CoordinateBuilder.
func (b *CoordinateBuilder) Clone() testkit.Builder {
	return &CoordinateBuilder{
		BaseBuilder: b.BaseBuilder.Clone().(*testkit.BaseBuilder),
		protocol:    b.protocol,
		host:        b.host,
		owner:       b.owner,
		repo:        b.repo,
		project:     b.project,
		branch:      b.branch,
		username:    b.username,
		password:    b.password,
	}
}
