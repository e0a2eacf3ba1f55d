// Package autosave implements the per-form Autosave Scheduler.
//
// # States
//
//	Idle          no timer armed and no save in flight
//	PendingTimer  a debounce timer is armed
//	Saving        a remote write is in flight
//
// Every change that leaves the form dirty relative to the last saved
// baseline (re)arms the debounce timer, so a save fires only after Delay of
// quiescence. Flush forces an immediate save on hide or unload. SaveNow and
// Commit are the explicit, user triggered paths: they share the save logic
// but return their errors instead of logging them.
//
// # Target resolution
//
// The first successful save creates the remote draft and remembers its id;
// every later save updates that row in place. Create-or-update resolution is
// serialized per scheduler, so a forced save racing an in-flight timer save
// waits for the create to finish and then updates the same row.
//
// Silent saves are skipped when the form has no real content or when the
// owner cannot be resolved. Failures are logged and swallowed; the next
// change re-arms the cycle.
package autosave
