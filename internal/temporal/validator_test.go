package temporal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/codegraph/knowledgegraph/internal/graphstore"
)

func rowsAt(base time.Time, ids ...string) []graphstore.VersionRow {
	rows := make([]graphstore.VersionRow, len(ids))
	prev := ""
	for i, id := range ids {
		rows[i] = graphstore.VersionRow{
			ID:                id,
			Timestamp:         base.Add(time.Duration(i) * time.Minute),
			PreviousVersionID: prev,
		}
		prev = id
	}
	return rows
}

func TestDetectIssuesCleanChainHasNoIssues(t *testing.T) {
	rows := rowsAt(time.Now(), "v1", "v2", "v3")
	issues := detectIssues("e1", rows, 200)
	assert.Empty(t, issues)
}

func TestDetectIssuesFlagsUnexpectedHead(t *testing.T) {
	base := time.Now()
	rows := rowsAt(base, "v1", "v2")
	rows[0].PreviousVersionID = "ghost" // first version should never have a previous link

	issues := detectIssues("e1", rows, 200)
	assert.Len(t, issues, 1)
	assert.Equal(t, IssueUnexpectedHead, issues[0].Kind)
	assert.Equal(t, "v1", issues[0].VersionID)
}

func TestDetectIssuesSkipsUnexpectedHeadWhenTimelineTruncated(t *testing.T) {
	base := time.Now()
	rows := rowsAt(base, "v1", "v2")
	rows[0].PreviousVersionID = "off-page" // legitimately points outside the fetched page

	issues := detectIssues("e1", rows, 2) // timelineLimit == len(rows): truncated
	assert.Empty(t, issues)
}

func TestDetectIssuesFlagsMissingPrevious(t *testing.T) {
	base := time.Now()
	rows := rowsAt(base, "v1", "v2", "v3")
	rows[1].PreviousVersionID = ""

	issues := detectIssues("e1", rows, 200)
	assert.Len(t, issues, 1)
	assert.Equal(t, IssueMissingPrevious, issues[0].Kind)
	assert.Equal(t, "v2", issues[0].VersionID)
}

func TestDetectIssuesFlagsMisorderedPrevious(t *testing.T) {
	base := time.Now()
	rows := rowsAt(base, "v1", "v2", "v3")
	rows[2].PreviousVersionID = "v1" // skips v2, chain is broken

	issues := detectIssues("e1", rows, 200)
	assert.Len(t, issues, 1)
	assert.Equal(t, IssueMisorderedPrevious, issues[0].Kind)
	assert.Equal(t, "v3", issues[0].VersionID)
}
