//go:build !networking

package capability

// Building without the networking tag is a configuration error.  The
// reference below is deliberately undefined so the compiler stops with
// a diagnostic naming the missing capability.
var _ = networking_capability_disabled_rebuild_with_tags_networking
