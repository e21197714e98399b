package ulog

import "fmt"

// Subscription binds a message id to a format and multi-instance index.
type Subscription struct {
	ID      uint16
	Format  string
	MultiID uint8
}

type subscription struct {
	Subscription
	dataset *datasetBuilder

	cached    *layout
	cachedGen int
}

// SubscriptionTable maps message ids to their bound format. Bindings are
// never removed: once an id is bound it stays bound for the rest of the log.
type SubscriptionTable struct {
	reg  *Registry
	subs map[uint16]*subscription
}

func NewSubscriptionTable(reg *Registry) *SubscriptionTable {
	return &SubscriptionTable{reg: reg, subs: make(map[uint16]*subscription)}
}

// Subscribe binds id to format/multiID. Rebinding an id to the same pair is
// a no-op; rebinding it to a different pair fails.
func (t *SubscriptionTable) Subscribe(id uint16, format string, multiID uint8) error {
	if _, err := t.reg.Resolve(format); err != nil {
		return err
	}
	if prev, ok := t.subs[id]; ok {
		if prev.Format == format && prev.MultiID == multiID {
			return nil
		}
		return fmt.Errorf("%w: id %d is %s/%d, not %s/%d", ErrDuplicateSubscription, id, prev.Format, prev.MultiID, format, multiID)
	}
	t.subs[id] = &subscription{Subscription: Subscription{ID: id, Format: format, MultiID: multiID}}
	return nil
}

// Lookup returns the current definition of the format bound to id.
func (t *SubscriptionTable) Lookup(id uint16) (*FormatDefinition, uint8, error) {
	sub, err := t.get(id)
	if err != nil {
		return nil, 0, err
	}
	def, err := t.reg.Resolve(sub.Format)
	if err != nil {
		return nil, 0, err
	}
	return def, sub.MultiID, nil
}

func (t *SubscriptionTable) get(id uint16) (*subscription, error) {
	sub, ok := t.subs[id]
	if !ok {
		return nil, fmt.Errorf("%w: id %d", ErrUnknownSubscription, id)
	}
	return sub, nil
}

// layout returns the flattened format for sub, rebuilding it when the
// registry changed since it was last computed.
func (t *SubscriptionTable) layout(sub *subscription) (*layout, error) {
	if sub.cached != nil && sub.cachedGen == t.reg.gen {
		return sub.cached, nil
	}
	l, err := t.reg.layout(sub.Format)
	if err != nil {
		return nil, err
	}
	sub.cached = l
	sub.cachedGen = t.reg.gen
	return l, nil
}
