// Package banlist holds the set of banned client IP addresses.
package banlist

import (
	"errors"
	"net/netip"
	"sort"
	"time"
)

var ErrNotBanned = errors.New("ip is not in the ban list")
var ErrInvalidIP = errors.New("invalid ip address")

// Entry records one banned address.
type Entry struct {
	IP        string
	Reason    string
	CreatedAt time.Time
}

// List is the ban registry. It is owned and mutated exclusively by
// the session actor, so it carries no locking of its own. Bans are
// permanent until explicitly removed.
type List struct {
	entries map[string]Entry
}

func New() *List {
	return &List{entries: make(map[string]Entry)}
}

// Normalize parses an IP address string into its canonical form, so
// that lookups don't depend on how the address was spelled.
func Normalize(ip string) (string, error) {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return "", ErrInvalidIP
	}
	return addr.String(), nil
}

func (l *List) Add(ip, reason string) {
	if normalized, err := Normalize(ip); err == nil {
		ip = normalized
	}
	l.entries[ip] = Entry{IP: ip, Reason: reason, CreatedAt: time.Now()}
}

func (l *List) Remove(ip string) error {
	if normalized, err := Normalize(ip); err == nil {
		ip = normalized
	}
	if _, ok := l.entries[ip]; !ok {
		return ErrNotBanned
	}
	delete(l.entries, ip)
	return nil
}

func (l *List) Contains(ip string) bool {
	if normalized, err := Normalize(ip); err == nil {
		ip = normalized
	}
	_, ok := l.entries[ip]
	return ok
}

// All returns the entries sorted by IP for stable listings.
func (l *List) All() []Entry {
	entries := make([]Entry, 0, len(l.entries))
	for _, e := range l.entries {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].IP < entries[j].IP })
	return entries
}
