// Package log provides structured logging with credential redaction.
// Scan configurations may carry authenticated proxy URLs, so every log
// record passes through a redacting handler before it is written.
package log
