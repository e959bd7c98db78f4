// Package coins reads the revision pointer and the coin documents fetched
// from the coins repository.
//
// The revision pointer is a local JSON object naming the coins repository
// commit every remote URL is pinned to:
//
//	{"coins_repo_commit": "a1b2c3d"}
//
// Two documents describe the coins: a list of coin records and a map of coin
// key to coin record. Each record has a "coin" field such as "BNB-BEP20";
// the coin identifier is the lower-cased part before the first "-" ("bnb").
// Identifiers drive the icon downloads and name the icon files.
package coins
