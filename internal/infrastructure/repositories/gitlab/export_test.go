package gitlab

// MapMergeRequest exports mapMergeRequest for testing.
var MapMergeRequest = mapMergeRequest //nolint:gochecknoglobals // test export

// ClassifyMergeError exports classifyMergeError for testing.
func (it *GitLabForgeRepository) ClassifyMergeError(err error, number int) error {
	return it.classifyMergeError(err, number)
}
