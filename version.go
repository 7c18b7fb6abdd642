package weakevent

import _ "embed"

// Version is the current release of the weakevent module.
//
//go:embed VERSION
var Version string
