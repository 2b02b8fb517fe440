// Package internal contains the implementation packages of concat.
//
// # Package Organization
//
// The internal packages are organized by functional domain:
//
//   - config: Plugin options and the project file, with validation
//   - errors: Typed errors carrying a kind, code, file and plugin name
//   - logging: Structured logging on top of slog
//   - naming: File name templates with [name] and [hash] placeholders
//   - contenthash: Digest computation for artifact names
//   - resolver: Glob expansion and module resolution of input specifiers
//   - staleness: Timestamp-based change detection between passes
//   - sourcemap: Source map parsing, VLQ mappings and combined maps
//   - concat: Reading, cached loading, joining and minifying inputs
//   - plugin: The build-pass coordinator and its boundary hooks
//   - htmlgen: HTML page rendering with script injection
//   - host: A filesystem host driving plugins, with watch mode
//   - watcher: Debounced file system monitoring
//   - esbuildhost: An esbuild plugin that runs concat passes
//   - version: Build metadata
//
// # Pass Flow
//
// A host starts a pass and calls the artifact and HTML boundary hooks of
// every plugin. The first hook to fire resolves inputs, checks timestamps
// and, when something changed, concatenates and emits the artifact. Every
// other hook of the pass waits for that outcome. The host ends the pass
// after emitting, which makes the plugin ready for the next one.
package internal
