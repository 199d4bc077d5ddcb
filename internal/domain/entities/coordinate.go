package entities

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	// ProtocolHTTPS is the default protocol for all forge traffic.
	ProtocolHTTPS = "https"
	// ProtocolHTTP is accepted for self-hosted forges without TLS.
	ProtocolHTTP = "http"

	azureHost = "dev.azure.com"
)

// Credentials authenticate against a forge. Username may be empty for
// token-only forges. CACertPath optionally points at a PEM bundle that
// replaces the system roots for TLS verification.
type Credentials struct {
	Username   string
	Token      string
	CACertPath string
}

// UserConfig carries the git identity used for commits made on the
// caller's behalf (conflict-resolution commits during a rebase).
type UserConfig struct {
	Name  string
	Email string
}

// Coordinate identifies a repository, or an organization scope when Repo
// is empty. It is immutable once an adapter has been built on it; derive
// siblings with WithRepo or OrgScope.
type Coordinate struct {
	Protocol string
	Host     string
	Owner    string
	Repo     string
	// Project is only meaningful for Azure DevOps.
	Project string
	// Branch is the source branch selector from the URL fragment.
	Branch string
	// TargetBranch is the optional ":target" part of the fragment,
	// used by pull-request commands.
	TargetBranch string

	Username   string
	Password   string
	CACertPath string
}

var (
	httpURLPattern = regexp.MustCompile(
		`^(https?)://(?:([^/@:]+)(?::([^/@]*))?@)?([^/#]+)(?:/([^#]*))?$`,
	)
	sshURLPattern   = regexp.MustCompile(`^git@([^:/]+):(.+)$`)
	azureGitPattern = regexp.MustCompile(`^([^/]+)/_git/(.+)$`)
)

// ParseGitURL parses the two accepted URL shapes into a Coordinate:
//
//	https://[user[:pass]@]host[/owner[/repo[.git]]][#src[:tgt]]
//	git@host:owner/repo[.git]
//
// The git@ form is coerced to https. For dev.azure.com the remainder is
// split into project and repository. Returns an InvalidGitUrl error for
// anything matching neither shape.
func ParseGitURL(rawURL string) (*Coordinate, error) {
	raw := strings.TrimSpace(rawURL)

	var branch, target string
	if idx := strings.Index(raw, "#"); idx >= 0 {
		selector := raw[idx+1:]
		raw = raw[:idx]
		branch, target = splitBranchSelector(selector)
	}

	coord := &Coordinate{
		Branch:       branch,
		TargetBranch: target,
	}

	switch {
	case sshURLPattern.MatchString(raw):
		m := sshURLPattern.FindStringSubmatch(raw)
		coord.Protocol = ProtocolHTTPS
		coord.Host = m[1]
		fillPath(coord, m[2])
	case httpURLPattern.MatchString(raw):
		m := httpURLPattern.FindStringSubmatch(raw)
		coord.Protocol = m[1]
		coord.Username = m[2]
		coord.Password = m[3]
		coord.Host = m[4]
		fillPath(coord, m[5])
	default:
		return nil, NewForgeError(
			InvalidGitUrl, "unable to parse Git URL %q", rawURL,
		)
	}

	if coord.Host == "" {
		return nil, NewForgeError(
			InvalidGitUrl, "unable to parse Git URL %q: missing host", rawURL,
		)
	}

	return coord, nil
}

// splitBranchSelector splits a "source" or "source:target" fragment.
func splitBranchSelector(selector string) (string, string) {
	if idx := strings.Index(selector, ":"); idx >= 0 {
		return selector[:idx], selector[idx+1:]
	}
	return selector, ""
}

// fillPath assigns owner/repo (and project for Azure) from the path part
// after the host.
func fillPath(coord *Coordinate, path string) {
	path = strings.Trim(path, "/")
	if path == "" {
		return
	}

	parts := strings.SplitN(path, "/", 2)
	coord.Owner = parts[0]
	if len(parts) == 1 {
		return
	}
	remainder := parts[1]

	if coord.Host == azureHost {
		if m := azureGitPattern.FindStringSubmatch(remainder); m != nil {
			coord.Project = m[1]
			coord.Repo = strings.TrimSuffix(m[2], ".git")
		} else {
			// Org scope: the whole remainder is the project.
			coord.Project = remainder
		}
		return
	}

	coord.Repo = strings.TrimSuffix(remainder, ".git")
}

// URL renders the canonical repository URL: credentials omitted, ".git"
// suffix and branch selector stripped. Parsing the result yields the same
// coordinate minus its credentials and branch selector.
func (c Coordinate) URL() string {
	var sb strings.Builder
	sb.WriteString(c.Protocol)
	sb.WriteString("://")
	sb.WriteString(c.Host)

	if c.Owner == "" {
		return sb.String()
	}
	sb.WriteString("/")
	sb.WriteString(c.Owner)

	if c.Host == azureHost {
		if c.Project != "" {
			sb.WriteString("/")
			sb.WriteString(c.Project)
		}
		if c.Repo != "" {
			sb.WriteString("/_git/")
			sb.WriteString(c.Repo)
		}
		return sb.String()
	}

	if c.Repo != "" {
		sb.WriteString("/")
		sb.WriteString(c.Repo)
	}
	return sb.String()
}

// IsOrgScope reports whether the coordinate addresses an organization or
// user rather than a single repository.
func (c Coordinate) IsOrgScope() bool {
	if c.Host == azureHost {
		return c.Repo == ""
	}
	return c.Repo == ""
}

// ValidateForRepo checks the invariant required for repository-level
// operations: host, owner and repo are set, plus project on Azure.
func (c Coordinate) ValidateForRepo() error {
	if c.Host == "" || c.Owner == "" || c.Repo == "" {
		return NewForgeError(
			InvalidGitUrl,
			"repository operations need host, owner and repo (got %q)",
			c.URL(),
		)
	}
	if c.Host == azureHost && c.Project == "" {
		return NewForgeError(
			InvalidGitUrl,
			"Azure DevOps operations need a project (got %q)", c.URL(),
		)
	}
	return nil
}

// WithRepo returns a copy of the coordinate pointing at another
// repository under the same owner, credentials preserved.
func (c Coordinate) WithRepo(repo string) Coordinate {
	out := c
	out.Repo = strings.TrimSuffix(repo, ".git")
	return out
}

// OrgScope returns a copy of the coordinate with the repository cleared,
// addressing the parent organization or user.
func (c Coordinate) OrgScope() Coordinate {
	out := c
	out.Repo = ""
	return out
}

// ApplyCredentials merges creds into a copy of the coordinate, keeping
// any values already embedded in the URL.
func (c Coordinate) ApplyCredentials(creds Credentials) Coordinate {
	out := c
	if out.Username == "" {
		out.Username = creds.Username
	}
	if out.Password == "" {
		out.Password = creds.Token
	}
	if out.CACertPath == "" {
		out.CACertPath = creds.CACertPath
	}
	return out
}

// String implements fmt.Stringer; credentials never appear.
func (c Coordinate) String() string {
	return fmt.Sprintf("%s (branch %q)", c.URL(), c.Branch)
}
