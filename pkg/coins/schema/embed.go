package schema

import _ "embed"

// CoinList is the JSON Schema for the coins document: an array of records
// that each carry a string "coin" field.
//
//go:embed coins.schema.json
var CoinList []byte

// CoinConfig is the JSON Schema for coins_config.json: an object whose values
// are records that each carry a string "coin" field.
//
//go:embed coins_config.schema.json
var CoinConfig []byte
