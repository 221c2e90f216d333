package encoding

import (
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ToJson renders data on one line, or "" when it cannot be encoded.
func ToJson(data interface{}) string {
	d, _ := json.MarshalToString(data)
	return d
}

// ToPrettyJson renders data indented by two spaces.
func ToPrettyJson(data interface{}) string {
	d, _ := json.MarshalIndent(data, "", "  ")
	return string(d)
}
