//go:build !windows

// Package fileutil creates the owner-only files suitedash keeps under its
// home directory: the home itself and the dashboard log.
// On Unix these are thin wrappers around os.* relying on the mode bits.
// On Windows, owner-only modes (perm & 0077 == 0) additionally get a DACL
// restricting access to the current user.
package fileutil

import "os"

// SecureMkdirAll creates path and any missing parents with perm.
func SecureMkdirAll(path string, perm os.FileMode) error {
	return os.MkdirAll(path, perm)
}

// SecureOpenFile opens path with flag and perm.
func SecureOpenFile(path string, flag int, perm os.FileMode) (*os.File, error) {
	return os.OpenFile(path, flag, perm)
}
