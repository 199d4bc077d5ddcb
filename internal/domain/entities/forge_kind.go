package entities

// ForgeKind identifies which hosted Git service backs a coordinate.
type ForgeKind string

const (
	ForgeGitHub     ForgeKind = "github"
	ForgeGHE        ForgeKind = "ghe"
	ForgeGitLab     ForgeKind = "gitlab"
	ForgeGogs       ForgeKind = "gogs"
	ForgeGitea      ForgeKind = "gitea"
	ForgeBitbucket  ForgeKind = "bitbucket"
	ForgeAzure      ForgeKind = "azure"
	ForgeKindNotSet ForgeKind = ""
)

// AllForgeKinds lists every supported forge. The order is not the
// detector's probe order.
func AllForgeKinds() []ForgeKind {
	return []ForgeKind{
		ForgeGitHub,
		ForgeGHE,
		ForgeGitLab,
		ForgeGogs,
		ForgeGitea,
		ForgeBitbucket,
		ForgeAzure,
	}
}
