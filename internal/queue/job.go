package queue

type JobType string

const (
	// JobTypeHTARebalance regenerates a user's HTA tree after a node is completed.
	JobTypeHTARebalance JobType = "hta_rebalance"
	// JobTypeSnapshotExport writes a user's compressed snapshot history to disk.
	JobTypeSnapshotExport JobType = "snapshot_export"
)

func (t JobType) Valid() bool {
	switch t {
	case JobTypeHTARebalance, JobTypeSnapshotExport:
		return true
	}
	return false
}

type Job struct {
	Type    JobType
	UserID  string
	NodeID  string
	TraceID string
	Attempt int
}
