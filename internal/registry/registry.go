// Package registry tracks the live connection instances loaded by the host.
//
// The registry owns one InstanceHandle per loaded entry. Registration order
// is remembered so "first configured" resolution means the earliest
// registration still loaded, not the lexicographically first id. Load and
// unload are serialized by the host; the lock additionally keeps concurrent
// reads safe.
package registry

import (
	"sort"
	"sync"

	ferr "github.com/folderstore/folderstore/internal/errors"
	"github.com/folderstore/folderstore/internal/storage"
)

// Handle is one loaded connection instance: its id, immutable config and
// live store client.
type Handle struct {
	EntryID string
	Config  storage.ConnectionConfig
	Client  *storage.Client

	// seq is the registration sequence number, used for first-configured
	// resolution.
	seq uint64
}

// Registry is the process-wide mapping from entry id to loaded handle.
type Registry struct {
	mu      sync.RWMutex
	handles map[string]*Handle
	// known records entry ids the host has configured but that are not
	// currently loaded (failed setup, unloaded, reloading).
	known   map[string]bool
	nextSeq uint64
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{
		handles: make(map[string]*Handle),
		known:   make(map[string]bool),
	}
}

// Register adds a loaded handle for the entry. Registering an id twice
// replaces the previous handle and moves the entry to the back of the
// first-configured order, matching a host reload.
func (r *Registry) Register(entryID string, cfg storage.ConnectionConfig, client *storage.Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextSeq++
	r.handles[entryID] = &Handle{
		EntryID: entryID,
		Config:  cfg,
		Client:  client,
		seq:     r.nextSeq,
	}
	delete(r.known, entryID)
}

// Unregister removes the handle for the entry. The id stays known so later
// lookups distinguish "not loaded" from "never configured".
func (r *Registry) Unregister(entryID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.handles[entryID]; !ok {
		return
	}
	delete(r.handles, entryID)
	r.known[entryID] = true
}

// MarkKnown records an entry id the host has configured but could not load.
func (r *Registry) MarkKnown(entryID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.handles[entryID]; !ok {
		r.known[entryID] = true
	}
}

// Resolve returns the handle for entryID, or the first-registered surviving
// handle when entryID is empty. Resolution failures use the diagnostic
// taxonomy: no_configured_entries, entry_not_found, integration_not_loaded.
func (r *Registry) Resolve(entryID string) (*Handle, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if entryID != "" {
		if h, ok := r.handles[entryID]; ok {
			return h, nil
		}
		if r.known[entryID] {
			return nil, ferr.New(ferr.KindIntegrationNotLoaded).WithEntry(entryID)
		}
		return nil, ferr.New(ferr.KindEntryNotFound).WithEntry(entryID)
	}

	var first *Handle
	for _, h := range r.handles {
		if first == nil || h.seq < first.seq {
			first = h
		}
	}
	if first == nil {
		return nil, ferr.New(ferr.KindNoConfiguredEntries)
	}
	return first, nil
}

// FindIdentity returns the loaded handle sharing cfg's
// (bucket, endpoint, base path) identity tuple, or nil.
func (r *Registry) FindIdentity(cfg storage.ConnectionConfig) *Handle {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, h := range r.handles {
		if h.Config.SameIdentity(cfg) {
			return h
		}
	}
	return nil
}

// Handles returns all loaded handles in registration order.
func (r *Registry) Handles() []*Handle {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Handle, 0, len(r.handles))
	for _, h := range r.handles {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].seq < out[j].seq })
	return out
}

// Len returns the number of loaded handles.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handles)
}
