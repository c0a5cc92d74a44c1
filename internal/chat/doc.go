// Package chat runs a BeatBuddy conversation turn against a function-calling chat model.
//
// A [Registry] maps function names to typed [Command] handlers whose arguments are
// validated against a JSON schema before dispatch. [NewCommandRegistry] registers the
// music lookups, playlist mutations, suggestion builders and the Spotify export.
//
// The [Orchestrator] assembles the system prompt (persona, recent playlist, preferred
// genres), lets the model call functions once, asks for a final reply and persists the
// user message and reply together.
package chat
