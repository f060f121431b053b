// Package cli implements the stylesync command-line interface.
//
// Commands are Cobra definitions that resolve configuration and hand off to
// the internal packages:
//
//	stylesync watch     - Live dashboard fed by the metrics stream
//	stylesync serve     - Publish this host's metrics over WebSocket
//	stylesync init      - Create a .stylesync.yaml config
//	stylesync doctor    - Diagnose config and stream problems
//	stylesync version   - Print build information
//
// Global flags (--config, --verbose, --no-color) are defined on the root
// command and applied before any subcommand runs. Errors returned from RunE
// are structured *errors.Error values; Execute prints them and exits 1.
package cli
