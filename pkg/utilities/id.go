package utilities

import (
	"os"
	"strconv"
	"sync"

	"github.com/bwmarrin/snowflake"
	"github.com/segmentio/ksuid"
)

var (
	nodeOnce sync.Once
	node     *snowflake.Node
)

// NewRequestID returns a sortable, globally unique id for tagging inbound requests.
func NewRequestID() string {
	return ksuid.New().String()
}

// NewRunID returns a snowflake id for one generation run. The node comes from
// SNOWFLAKE_NODE (default 1). If the node cannot be set up a KSUID is returned.
func NewRunID() string {
	nodeOnce.Do(func() {
		nodeID := int64(1)
		if v := os.Getenv("SNOWFLAKE_NODE"); v != "" {
			if n, err := strconv.ParseInt(v, 10, 64); err == nil {
				nodeID = n
			}
		}
		node, _ = snowflake.NewNode(nodeID)
	})
	if node == nil {
		return NewRequestID()
	}
	return node.Generate().String()
}
