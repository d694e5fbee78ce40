// Command embedcache computes embeddings and definitions through the
// persistent cache.
//
//	embedcache embed "hola"
//	embedcache embed-many "hola" "adios"
//	embedcache define "Binary search" "Quicksort"
//	embedcache key --batch "a" "b"
//	embedcache doctor --verify
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd(newApp()).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
