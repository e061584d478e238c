//nolint:revive // types is a common Go package naming convention
package types

// Version is the canonical project version.
// The CLI, artifact manifest schema, and subprocess frame contract share
// this version per the lockstep versioning policy.
const Version = "0.1.0"
