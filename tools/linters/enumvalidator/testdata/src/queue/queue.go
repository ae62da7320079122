package queue

type JobType string

const (
	JobTypeHTARebalance   JobType = "hta_rebalance"
	JobTypeSnapshotExport JobType = "snapshot_export"
)

type Label string

type Job struct {
	Type   JobType
	Label  Label
	UserID string
}

func bad() {
	j := &Job{}
	j.Type = "reindex" // want "enum field Type assigned string literal"

	_ = Job{Type: "reindex", UserID: "u1"} // want "enum field Type assigned string literal"
}

func good() {
	j := &Job{}
	j.Type = JobTypeHTARebalance // OK: using constant
	j.Label = "anything"         // OK: not a checked type
	j.UserID = "u1"

	_ = Job{Type: JobTypeSnapshotExport}
}

func alsoGood() {
	// OK: variable, not literal
	typ := JobTypeHTARebalance
	j := &Job{Type: typ}
	_ = j
}
