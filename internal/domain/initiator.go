package domain

// Initiator reports which of two peers sends the first WebRTC offer.
// The lexicographically higher user id initiates. Both sides evaluate
// the same rule over the same pair, so they agree without a handshake
// and simultaneous dual offers cannot happen.
func Initiator(a, b UserID) UserID {
	if a > b {
		return a
	}
	return b
}

// ShouldInitiate reports whether self is the offering side of the
// pairing with peer. ICE-restart offers follow the same rule.
func ShouldInitiate(self, peer UserID) bool {
	return Initiator(self, peer) == self
}
