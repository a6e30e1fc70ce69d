// Package version holds the running software version stamped into
// document data on every save.
package version

// Version is the citesync release version.
const Version = "0.4.0"

// DataVersion is the document data schema version written for new documents.
// Versions 3 and below use the legacy XML encoding.
const DataVersion = 4
