package config

import "strings"

// Nested keys map to RTREE_REMOTE_TOKEN and friends.
var envReplacer = strings.NewReplacer(".", "_")
