//nolint:revive // types is a common Go package naming convention
package types

// Version is the canonical project version shared by all components.
const Version = "0.3.0"
