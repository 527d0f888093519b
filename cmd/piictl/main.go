// Package main provides piictl, a command-line client for the PII
// extraction service.
//
// Usage:
//
//	piictl extract report.pdf scan.png
//	piictl extract --format json --out rows.json *.pdf
//
// See --help for all available options.
package main

func main() {
	Execute()
}
