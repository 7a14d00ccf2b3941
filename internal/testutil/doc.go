// Package testutil provides shared test utilities for drover.
//
// This package consolidates common test helpers, fixtures, and assertions
// used across the drover codebase to reduce duplication and ensure
// consistent test patterns.
//
// # Fixtures
//
// The fixtures.go file provides sample data for testing:
//
//   - SampleTaskList() - a three-story task list, all pending
//   - SampleTaskListPartiallyComplete() - same list with story 1 passing
//   - SampleTaskListAllComplete() - same list fully passing
//   - GenericRecord(), TasksRecord(), PhasedRecord() - armed loop records
//   - WriteTaskList(t, dir, list) - writes a list, returns its store
//   - WriteTranscript(t, dir, texts...) - writes a session transcript
//
// # Environment Helpers
//
// The env.go file provides test environment setup:
//
//   - Sandbox(t) - creates a temp project with the .drover structure
//   - WriteTestFile(t, base, path, content) - writes a file in test dir
//   - MustMarshalJSON(t, v) / MustUnmarshalJSON(t, data, v)
//
// # Git Helpers
//
// The gitrepo.go file drives real git repositories:
//
//   - GitRepo(t, dir) - initializes a repository, skips without git
//   - (*Repo).Commit(t, subject) - records an empty commit
//
// # Assertions
//
// The assertions.go file provides custom test assertions:
//
//   - AssertContinues(t, dec) / AssertAllowsExit(t, dec)
//   - AssertRecordExists(t, store, session, cat) - loads or fails
//   - AssertNoRecord(t, store, session, cat)
//   - AssertStoryPassing(t, store, id) / AssertStoryPending(t, store, id)
//
// # Usage
//
// Import the package in your test files:
//
//	import "github.com/thruflo/drover/internal/testutil"
//
// Then use the helpers:
//
//	func TestSomething(t *testing.T) {
//	    dir, records := testutil.Sandbox(t)
//	    tasks := testutil.WriteTaskList(t, dir, testutil.SampleTaskList())
//	    // ... run test ...
//	    testutil.AssertStoryPassing(t, tasks, 1)
//	}
package testutil
