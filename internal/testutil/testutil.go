// Package testutil provides test helpers for suitedash tests.
//
// The package is organized into focused files:
//   - assert.go: assertion helpers (MustNoErr, AssertContainsAll)
//   - fs_helpers.go: filesystem operations (WriteFile, ReadFile, MustExist)
//
// The fake Salesforce org lives in the sftest subpackage.
package testutil
