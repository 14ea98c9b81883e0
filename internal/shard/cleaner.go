// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package shard

// Cleaner is the external metadata-cleaner collaborator of §6: a pure
// function producing an alternate artist spelling, tried once per query
// when the initial match confidence is low (§4.7 step 3). Its internals
// are explicitly out of scope (§1 lists "the metadata cleaner used to
// re-try cleaned queries" among the system's external collaborators);
// Router depends only on this interface.
type Cleaner interface {
	Clean(artist string) string
}

// CleanerFunc adapts a plain function to Cleaner.
type CleanerFunc func(string) string

// Clean implements Cleaner.
func (f CleanerFunc) Clean(artist string) string { return f(artist) }

// NoopCleaner returns its input unchanged. Used when no external cleaner
// collaborator is wired: the cleaner-rescue branch of the pipeline then
// never improves on the initial search, but the rest of the pipeline
// behaves identically.
var NoopCleaner Cleaner = CleanerFunc(func(s string) string { return s })
