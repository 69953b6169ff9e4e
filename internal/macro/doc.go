// Package macro plays back macros as ordered synthetic key events.
//
// A macro is a Behavior bound to a MacroID. Two behaviors exist:
//
//   - HeldModifier mirrors the physical edge 1:1 on one keycode, so the key
//     stays logically down exactly as long as the trigger is held.
//   - Scripted emits its whole fixed script on the press edge and nothing on
//     the release edge.
//
// Playback is synchronous: Play returns the complete sequence before the
// next trigger can be processed, so there is no "in progress" state to
// cancel. Unknown macro ids produce an empty sequence, never an error.
//
// Behavior is sealed; adding a behavior means adding a variant here, not
// editing a dispatch switch elsewhere.
package macro
