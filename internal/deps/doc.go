// Package deps reports whether the external binaries used by the selected
// backends are installed.
package deps
