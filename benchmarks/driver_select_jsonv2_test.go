//go:build jsonv2

package metacodec_test

import (
	metacodec "github.com/reoring/metacodec"
	drv "github.com/reoring/metacodec/source/jsonv2"
)

func init() {
	metacodec.SetJSONDriver(drv.Driver())
}
