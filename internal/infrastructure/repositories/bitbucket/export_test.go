package bitbucket

// PRPayload exports prPayload for testing.
type PRPayload = prPayload

// PREndpointPayload exports prEndpointPayload for testing.
type PREndpointPayload = prEndpointPayload

// BranchNamePayload exports branchNamePayload for testing.
type BranchNamePayload = branchNamePayload

// MapPullRequest exports mapPullRequest for testing.
var MapPullRequest = mapPullRequest //nolint:gochecknoglobals // test export

// MergeStrategy exports mergeStrategy for testing.
var MergeStrategy = mergeStrategy //nolint:gochecknoglobals // test export
