// Package cli defines the flowgate command tree.
//
// Commands that touch persistent state build an application bundle
// (config, database, pipeline components) lazily in their RunE so that
// `flowgate version` and help output never touch the filesystem.
package cli
