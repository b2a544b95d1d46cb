// Command h5dap reads variables from HDF5 files the way a DAP server
// would serve them.
package main

import "os"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
