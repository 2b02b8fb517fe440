// Package cmd provides the command-line interface for concat.
//
// # Available Commands
//
//   - init: Write a starter .concat.yml
//   - build: Run one build pass for every configured bundle
//   - watch: Rebuild whenever a dependency changes
//   - bundle: Run esbuild with concat passes attached
//   - config: Show or validate the resolved configuration
//   - version: Show build information
//
// # Command Examples
//
//	// Build into a custom directory
//	concat build --output public
//
//	// Watch with debug logging
//	concat watch --log-level debug
//
//	// Override the output directory from the environment
//	CONCAT_OUTPUT=public concat build
package cmd
