//go:build gojson

package metacodec_test

import (
	metacodec "github.com/reoring/metacodec"
)

func init() {
	metacodec.UseDefaultJSONDriver()
}
