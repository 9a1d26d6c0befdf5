// Package main provides the entry point for the eanscan CLI.
//
// Eanscan investigates EAN barcode numbers across public web sources and
// classifies the collected evidence to assess whether a product is still
// on the market or discontinued.
//
// Usage:
//
//	eanscan search <ean>
//	eanscan history <ean>
//
// See --help for all available options.
package main

// main is the entry point for eanscan.
func main() {
	Execute()
}
