/*
Package events distributes committed layout changes to in-process subscribers.

The portal writer publishes an Event from the commit hook of each write, so
subscribers only ever see changes that reached the store. Rolled back writes
publish nothing.

	broker := events.NewBroker()
	broker.Start()
	defer broker.Stop()

	sub := broker.Subscribe(events.EventPagesSwapped, events.EventPageDeleted)
	for ev := range sub {
		fmt.Println(ev.Type, ev.Scope, ev.PageID)
	}

Delivery is best effort. Publish runs inside commit hooks and must not stall
the writer, so a full queue or subscriber buffer drops the event and bumps
Dropped.
*/
package events
