// Package wizard runs the end-user side of an onboarding layout: one step
// at a time, validating the visible fields before moving on, authenticating
// on the credentials step and persisting changed values field by field.
//
// A Machine is safe for concurrent use. Its durable State can be saved with
// any wizardstate.Store and restored later to resume a run.
package wizard
