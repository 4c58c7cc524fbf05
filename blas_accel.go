//go:build accelerate

package main

import (
	"gonum.org/v1/gonum/blas/blas64"
	"gonum.org/v1/netlib/blas/netlib"
)

// Built with -tags accelerate (and CGO_LDFLAGS pointing at a system BLAS such
// as OpenBLAS or Accelerate), every gonum matrix product goes through it.
func init() {
	blas64.Use(netlib.Implementation{})
}
