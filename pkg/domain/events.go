package domain

// EventKind names a domain event emitted by a committed operation.
type EventKind string

// Events emitted by the registry. Exactly one is emitted per successful operation.
const (
	EventKittyCreated     EventKind = "kitty_created"
	EventKittyBred        EventKind = "kitty_bred"
	EventKittyTransferred EventKind = "kitty_transferred"
	EventKittyPriceSet    EventKind = "kitty_price_set"
	EventKittySold        EventKind = "kitty_sold"
)

// Event is observable by external indexers once its operation commits.
// Account is the creator, breeder, new owner, lister, or buyer depending on
// Kind; From is the prior owner for transfers and sales.
type Event struct {
	Kind    EventKind `json:"kind" yaml:"kind"`
	KittyID KittyID   `json:"kitty_id" yaml:"kitty_id"`
	Account AccountID `json:"account" yaml:"account"`
	From    AccountID `json:"from,omitempty" yaml:"from,omitempty"`
	Parents []KittyID `json:"parents,omitempty" yaml:"parents,omitempty"`
	Price   Balance   `json:"price,omitempty" yaml:"price,omitempty"`
}

// KittyCreated builds the creation event.
func KittyCreated(owner AccountID, id KittyID) Event {
	return Event{Kind: EventKittyCreated, KittyID: id, Account: owner}
}

// KittyBred builds the breeding event.
func KittyBred(owner AccountID, id, parent1, parent2 KittyID) Event {
	return Event{Kind: EventKittyBred, KittyID: id, Account: owner, Parents: []KittyID{parent1, parent2}}
}

// KittyTransferred builds the transfer event.
func KittyTransferred(from, to AccountID, id KittyID) Event {
	return Event{Kind: EventKittyTransferred, KittyID: id, Account: to, From: from}
}

// KittyPriceSet builds the listing event.
func KittyPriceSet(owner AccountID, id KittyID, price Balance) Event {
	return Event{Kind: EventKittyPriceSet, KittyID: id, Account: owner, Price: price}
}

// KittySold builds the purchase event.
func KittySold(seller, buyer AccountID, id KittyID, price Balance) Event {
	return Event{Kind: EventKittySold, KittyID: id, Account: buyer, From: seller, Price: price}
}
