// Package document provides the shared schedule document that co-editors
// join and edit together.
//
// A SharedDocument owns three pieces of state, all guarded by one mutex:
//   - the selected courses (the schedule content)
//   - the joined users, keyed by their unique user name
//   - the known user names that are not currently claimed
//
// Name claims and releases are atomic with respect to each other: two
// concurrent claims for the same name never both succeed.
//
// Change notification:
//
// Every mutation bumps the document version and is published to the
// registered listeners as an immutable Snapshot. Listeners run after the
// document lock has been released, so they may call back into the document.
// Because listeners of concurrent mutations may observe snapshots out of
// order, consumers compare Snapshot.Version and drop stale ones.
//
// Usage:
//
//	doc := document.New("s1", nil, []string{"Alice", "Bob"})
//	cancel := doc.Subscribe(func(s document.Snapshot) { ... })
//	defer cancel()
//
//	if err := doc.Claim("Alice", member); err != nil {
//		// errors.Is(err, document.ErrNameTaken) on conflicts
//	}
package document
