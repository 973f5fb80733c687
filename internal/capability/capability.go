// Package capability is the build-time switch that decides whether
// networking exists in the netboot binary at all.
//
// The networking capability is compiled in only when the build carries
// the networking tag:
//
//	go build -tags networking .
//
// Without the tag this package does not compile, so neither does any
// binary that imports it.  There is no runtime fallback: a build that
// cannot connect is rejected instead of producing a silent no-op.
//
// Importers call [Resolve] exactly once and pass the result down as an
// explicit value; nothing else inspects the build tag.
//
// This file must stay free of imports so the variant test can
// type-check the package in isolation.
package capability

// Name is the build tag and capability name for networking support.
const Name = "networking"
