package beaconapi

import jsoniter "github.com/json-iterator/go"

// json is a drop-in, faster encoding/json replacement used for every
// wire decode/encode in this package.
var json = jsoniter.ConfigCompatibleWithStandardLibrary
