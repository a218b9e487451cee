package domain

// Merge reconciles the cart presented by the client with the cart persisted
// for the user.
//
// The client cart wins for every variant it mentions, whatever the persisted
// quantity is; variants known only to the persisted cart are copied over
// unchanged. Quantities are never summed. A nil client means no snapshot was
// presented and the persisted cart becomes the result. Neither input is
// modified.
func Merge(client, persisted *Cart) *Cart {
	if client == nil {
		return persisted.clone()
	}
	merged := client.clone()
	if persisted == nil {
		return merged
	}
	for id, item := range persisted.items {
		if _, ok := merged.items[id]; !ok {
			merged.items[id] = item
		}
	}
	return merged
}
