// Package flock provides cross-platform file locking utilities.
//
// The state store serializes writers to current_state.json with an
// exclusive, non-blocking lock that works on both Unix and Windows
// systems.
//
// Usage:
//
//	file, _ := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0600)
//	if err := flock.Exclusive(file.Fd()); err != nil {
//	    // Lock not acquired - file is in use
//	}
//	defer flock.Unlock(file.Fd())
package flock
