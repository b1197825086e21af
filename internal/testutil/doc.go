// Package testutil provides shared test helpers for cmdpilot.
//
// # Fakes
//
//   - ScriptedClient plays back model replies (or errors) in order and
//     records every conversation sent to it.
//   - RecordingExecutor returns canned results per command and records
//     what it was asked to run.
//
// # Fixtures
//
// Sample replies covering fenced blocks, labels, plain text, exit tokens
// and failure markers, plus FencedReply and LongOutput builders.
//
// # Environment
//
//   - SetupTestDir(t) creates a temp directory with a .cmdpilot directory
//   - WriteTestFile and WriteCredentialsFile write files under a directory
//   - IsolateHome(t) points HOME at a temp directory and clears credential env vars
//   - Chdir(t, dir) changes directory for the test's duration
//
// # Usage
//
//	func TestSomething(t *testing.T) {
//	    client := testutil.NewScriptedClient(testutil.ReplyFencedBash, testutil.ReplyExit)
//	    exec := testutil.NewRecordingExecutor().On("ls -la", executor.Result{Output: testutil.SampleListing})
//	    // ... build an agent.Loop with client and exec ...
//	    assert.Equal(t, []string{"ls -la"}, exec.Commands())
//	}
package testutil
