// Package cli implements the interactive assetvault client: a small REPL
// over the local candidate cache and the registry API.
package cli
