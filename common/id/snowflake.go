package id

import (
	"sync"

	"github.com/bwmarrin/snowflake"
)

var (
	node *snowflake.Node
	once sync.Once
)

// Init initializes the Snowflake node with the given node ID. Server and
// worker processes must use distinct node IDs.
func Init(nodeID int64) error {
	var err error
	once.Do(func() {
		node, err = snowflake.NewNode(nodeID)
	})
	return err
}

// New generates a time-ordered int64 row ID. Without a prior Init it falls
// back to node 0.
func New() int64 {
	_ = Init(0) // no-op once initialized
	return node.Generate().Int64()
}
