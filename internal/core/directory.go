package core

import "sync"

// Directory maps room ids to the guest sessions currently subscribed to them.
// It only references sessions; their lifetime belongs to the transport.
type Directory struct {
	mu    sync.RWMutex
	rooms map[string]map[*Session]struct{}
}

// NewDirectory constructs an empty directory.
func NewDirectory() *Directory {
	return &Directory{rooms: make(map[string]map[*Session]struct{})}
}

// Add inserts a session into the room. Returns true if newly added.
func (d *Directory) Add(room string, s *Session) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	guests, ok := d.rooms[room]
	if !ok {
		guests = make(map[*Session]struct{})
		d.rooms[room] = guests
	}
	if _, exists := guests[s]; exists {
		return false
	}
	guests[s] = struct{}{}
	return true
}

// Remove deletes a session from the room, pruning the room when it empties.
// Returns true if removed.
func (d *Directory) Remove(room string, s *Session) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	guests, ok := d.rooms[room]
	if !ok {
		return false
	}
	if _, exists := guests[s]; !exists {
		return false
	}
	delete(guests, s)
	if len(guests) == 0 {
		delete(d.rooms, room)
	}
	return true
}

// ForEach calls fn once for every session in the room. Mutations wait until the
// iteration finishes, so fn must not block or call back into the directory.
func (d *Directory) ForEach(room string, fn func(*Session)) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	for s := range d.rooms[room] {
		fn(s)
	}
}

// Count returns the number of guests in the room.
func (d *Directory) Count(room string) int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.rooms[room])
}

// Rooms returns the number of rooms with at least one guest.
func (d *Directory) Rooms() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.rooms)
}
