package session

import "time"

// Decision is the outcome of a rate-limit check.
type Decision struct {
	Allowed bool `json:"allowed"`
	// InFlight is the number of live charges after the check.
	InFlight int `json:"in_flight"`
	// RetryAfter is set on denial: the time until the oldest charge expires.
	RetryAfter time.Duration `json:"retry_after,omitempty"`
}

// rateCharges holds the expiry times of accepted requests, oldest first.
// Charges expire lazily: they are dropped on the next access after their
// expiry, so no timer outlives the request that created one.
type rateCharges struct {
	expiries []time.Time
}

func (r *rateCharges) prune(now time.Time) {
	i := 0
	for i < len(r.expiries) && !r.expiries[i].After(now) {
		i++
	}
	if i > 0 {
		r.expiries = append(r.expiries[:0], r.expiries[i:]...)
	}
}

// TryConsume charges one request to uid. It is denied, without taking a
// charge, when uid already holds the limit of unexpired charges. An accepted
// charge expires RateWindow after acceptance whatever happens to the request.
func (s *Store) TryConsume(uid string) Decision {
	now := s.now()
	u := s.user(uid, true)
	u.mu.Lock()
	defer u.mu.Unlock()

	u.charges.prune(now)
	if len(u.charges.expiries) >= s.rateLimit {
		return Decision{
			Allowed:    false,
			InFlight:   len(u.charges.expiries),
			RetryAfter: u.charges.expiries[0].Sub(now),
		}
	}
	u.charges.expiries = append(u.charges.expiries, now.Add(s.rateWindow))
	return Decision{Allowed: true, InFlight: len(u.charges.expiries)}
}

// InFlight returns the number of unexpired charges held by uid.
func (s *Store) InFlight(uid string) int {
	u := s.user(uid, false)
	if u == nil {
		return 0
	}
	now := s.now()
	u.mu.Lock()
	defer u.mu.Unlock()
	u.charges.prune(now)
	return len(u.charges.expiries)
}
