// Package workflow implements the Temporal workflow definition for assessment
// sessions.
//
// The workflow runs the start activity, and when the session suspends for
// human review it waits durably for a review signal before running the resume
// activity. A query exposes the latest session summary while it waits.
//
// Workflow code is deterministic: scoring, storage and clocks live behind
// activities.
package workflow
