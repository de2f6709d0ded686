// Package testsupport provides shared fixtures for package tests: a config
// builder rooted in t.TempDir and small PCM generators.
package testsupport
