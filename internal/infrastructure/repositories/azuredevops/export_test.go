package azuredevops

// PRPayload exports prPayload for testing.
type PRPayload = prPayload

// MapPullRequest exports mapPullRequest for testing.
var MapPullRequest = mapPullRequest //nolint:gochecknoglobals // test export

// MergeStrategy exports mergeStrategy for testing.
var MergeStrategy = mergeStrategy //nolint:gochecknoglobals // test export
