package models

// OrderedPair normalizes two user IDs into a canonical order (string
// comparison, a <= b) so that an unordered user pair always maps to the
// same (user1Id, user2Id) key. Every lookup and insert keyed on a user
// pair must go through this function rather than comparing inline.
func OrderedPair(userA, userB string) (string, string) {
	if userA <= userB {
		return userA, userB
	}
	return userB, userA
}
