// Package rotation implements the anti-repetition selection engine for
// the picture frame.
//
// Selections draw uniformly at random from the images not yet shown in
// the current cycle, scoped by an optional album filter. When a scope is
// exhausted its shown flags are cleared and a new cycle begins, all
// within the same atomic selection. The session's active album filter
// supplies the default scope when a call carries no explicit filter.
package rotation
