// Package database provides SQLite-backed persistence for scan history.
// Each completed scan is stored as a full JSON report plus a small bucket
// summary so history listings do not need to load full reports.
package database
