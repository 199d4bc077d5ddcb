package github

// MapPullRequest exports mapPullRequest for testing.
var MapPullRequest = mapPullRequest //nolint:gochecknoglobals // test export

// ClassifyMergeError exports classifyMergeError for testing.
func (it *GitHubForgeRepository) ClassifyMergeError(err error, pullNumber int) error {
	return it.classifyMergeError(err, pullNumber)
}
