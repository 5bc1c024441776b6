// Package store provides the application's central mutable state tree.
//
// Every mutation goes through SetState, which deep-merges a partial tree
// into the existing one: map-valued keys merge recursively, everything else
// replaces wholesale. Unrelated callers can therefore mutate disjoint
// subtrees without knowing the whole tree shape. Listeners are notified
// synchronously after every merge with the full new state and a tagged
// action; listener failures are absorbed.
//
// The tree has recognized top-level regions: currentUser,
// currentDate/currentTime, settings (persisted through a durable key-value
// collaborator), ui (ephemeral view state), and cache (TTL entries with
// lazy staleness checks backstopped by owned eviction timers).
//
// Construction wires the durable settings document over the defaults:
//
//	kv, _ := kvstore.Open("flourish.json")
//	s := store.New(store.WithKV(kv))
//	defer s.Dispose() // persists settings
//
//	_ = s.UpdateSettings(map[string]any{"theme": "dark"}) // persisted immediately
//	theme := s.StateAt("settings.theme")
package store
