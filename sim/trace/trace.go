package trace

// Log collects fulfillment attempts and inventory snapshots during a run.
//
// Attempts are first buffered in Pending and only merged into Fulfillments by
// Flush, which the simulator calls on its maintenance cadence and once at the
// end of the run.
type Log struct {
	Pending      []FulfillmentRecord
	Fulfillments []FulfillmentRecord
	Inventory    []InventorySnapshot
}

// NewLog creates a Log ready for recording.
func NewLog() *Log {
	return &Log{
		Pending:      make([]FulfillmentRecord, 0),
		Fulfillments: make([]FulfillmentRecord, 0),
		Inventory:    make([]InventorySnapshot, 0),
	}
}

// RecordAttempt appends a fulfillment attempt to the pending buffer.
func (l *Log) RecordAttempt(record FulfillmentRecord) {
	l.Pending = append(l.Pending, record)
}

// Flush merges the pending buffer into the fulfillment log, preserving order,
// and returns how many records moved.
func (l *Log) Flush() int {
	n := len(l.Pending)
	l.Fulfillments = append(l.Fulfillments, l.Pending...)
	l.Pending = l.Pending[:0]
	return n
}

// RecordSnapshot appends inventory snapshot rows.
func (l *Log) RecordSnapshot(rows ...InventorySnapshot) {
	l.Inventory = append(l.Inventory, rows...)
}
