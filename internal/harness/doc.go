// Package harness runs citation scenarios against the command dispatcher.
//
// A scenario seeds a reference database and a document, then executes
// commands one by one with scripted dialog and alert answers. Every host
// call, dialog and alert is recorded in a trace that assertions and golden
// files compare against.
//
// # Scenario Format
//
//	name: implicit_update
//	description: "Colliding citations are disambiguated by document order"
//	style: http://www.zotero.org/styles/cell
//	items:
//	  - key: a
//	    title: title1
//	    authors: [{family: Smith, given: Robert}]
//	    year: 2019
//	steps:
//	  - command: addEditCitation
//	    cite: [a]
//	    expect:
//	      fields: 1
//	      texts: {0: "(Smith, 2019)"}
//	assertions:
//	  - type: field_text
//	    field: 0
//	    text: "(Smith, 2019)"
//	  - type: call_count
//	    method: SetDocumentData
//	    count: 1
//
// A scenario without style starts from a document with no data, so the
// first command shows the document preferences dialog.
//
// # Step Actions
//
// Before its command a step may move the cursor, change where new fields
// go, edit field text by hand, paste a copy of a field or change items in
// the database. Dialog answers are given with cite, select, prefs,
// bibliography or cancel; alert answers with alerts.
//
// # Assertion Types
//
//   - field_count: number of fields in the final document
//   - field_text: plain text of one field
//   - call_count: number of host calls of a method
//   - call_order: host methods appear in this order
//   - dialog_count: number of times a dialog was shown
//   - alert_count: number of alerts shown
//   - new_indices: citation indices new to the session after the last step
//   - journal: fields of one command journal record
//
// # Deterministic Testing
//
// Citation ids, session ids and item keys come from sequence generators
// and the database lives in memory, so a scenario produces the same trace
// and document on every run. RunWithGolden compares the canonical JSON of
// both against a golden file.
package harness
