// Package suggest implements the incremental suggestion search behind the
// free-text fields of the order, carrier and partner forms.
//
// Every mounted field owns a FieldSession. A session turns input events
// (keystrokes, focus, selection, programmatic value changes) into debounced
// queries against the suggestion store, merges the results of every canonical
// key in the field's group, and publishes them as output events. Choosing a
// suggestion arms a second, independent timer that writes the value back to
// the store.
//
// A session is an actor: one goroutine owns its state, and timers, network
// responses and caller calls are all delivered to it as messages. Responses
// carry the generation of the query that produced them and are dropped if a
// newer query was issued in the meantime.
package suggest
