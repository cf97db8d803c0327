// Package core implements the gitsu resolution and installation engine.
//
// The engine turns a set of top-level targets plus the previously
// installed state into a deployed components directory. A run has four
// phases, driven by [Manager]:
//
//	configure → resolve → dissect → install
//
// Resolve fetches every reachable endpoint concurrently through the
// resolver contract, deduplicating in-flight work and expanding manifest
// dependencies as they arrive. Dissect elects exactly one revision per
// logical package, consulting stored resolutions, the force-latest policy
// or an injected interactive prompt when candidates conflict. Install
// materializes the elected revisions under the components directory,
// preserving keep-listed files and honoring in-place update signals.
//
// All table state is owned by the Manager and mutated only while holding
// its mutex; fetches run in parallel but apply one at a time. A second
// Resolve while one is running fails with EWORKING. The first fetch error
// wins: it arms a fail-fast deadline that forces dissection even if slow
// fetches are still in flight, and the run rejects with that error.
package core
