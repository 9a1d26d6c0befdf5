// Package model defines the core domain types for eanscan: validated EAN
// identifiers, raw hits returned by source clients, classified findings,
// and the aggregated result set that reports are rendered from.
package model
