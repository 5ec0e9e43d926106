// Package presence turns a watching status and its enrichment data into
// the record the presence-broadcasting client displays: progress stats,
// display lines and external links.
package presence
