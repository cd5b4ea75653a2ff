package domain

import "testing"

func TestInitiatorPicksExactlyOneSide(t *testing.T) {
	pairs := [][2]UserID{
		{"alice", "bob"},
		{"bob", "alice"},
		{"u1", "u2"},
		{"64f1c2", "64f1c3"},
		{"z", "a"},
	}
	for _, p := range pairs {
		a, b := p[0], p[1]
		if ShouldInitiate(a, b) == ShouldInitiate(b, a) {
			t.Errorf("pair (%s,%s): both or neither side would initiate", a, b)
		}
	}
}

func TestInitiatorIsSymmetric(t *testing.T) {
	if got, want := Initiator("alice", "bob"), UserID("bob"); got != want {
		t.Errorf("Initiator(alice, bob) = %s, want %s", got, want)
	}
	if got, want := Initiator("bob", "alice"), UserID("bob"); got != want {
		t.Errorf("Initiator(bob, alice) = %s, want %s", got, want)
	}
}

func TestNewParticipantValidation(t *testing.T) {
	if _, err := NewParticipant("", "Alice", true); err != ErrUserIDEmpty {
		t.Errorf("empty user id: got %v, want ErrUserIDEmpty", err)
	}
	long := make([]byte, MaxDisplayNameLen+1)
	for i := range long {
		long[i] = 'x'
	}
	if _, err := NewParticipant("alice", string(long), false); err != ErrDisplayNameLong {
		t.Errorf("long display name: got %v, want ErrDisplayNameLong", err)
	}
	p, err := NewParticipant("alice", "Alice", true)
	if err != nil {
		t.Fatalf("valid participant: %v", err)
	}
	if p.UserID != "alice" || !p.Teacher {
		t.Errorf("unexpected participant %+v", p)
	}
}
