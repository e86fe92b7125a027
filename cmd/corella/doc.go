// Command corella resolves scraped company records against a business
// register snapshot and maintains the resulting match ledger.
package main
