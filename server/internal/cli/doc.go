// Package cli implements the qrledger operator command line.
//
// Commands:
//
//	qrledger list                      print all records in file order
//	qrledger put KEY URL ARTIFACT      upsert one record directly
//	qrledger check                     verify every line parses
//
// Global flags: --store PATH (default BD.txt), --malformed fail|skip,
// --format text|json, --verbose.
package cli
