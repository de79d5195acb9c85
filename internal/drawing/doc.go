// Package drawing produces new item instances: weighted random draws,
// the deterministic daily sacrifice selection, and the duplicate→upgraded rule.
//
// Random draws never yield upgraded variants; those are reachable only through
// CheckUpgrade. Sacrifice candidates are seeded from (user, calendar date) so a
// preview and the later committing draw agree.
package drawing
