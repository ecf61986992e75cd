// Package kinds registers the four record kinds with the core registry.
// Import it for side effects wherever the pipeline runs:
//
//	import _ "github.com/JonMunkholm/oeedash/internal/core/kinds"
package kinds
