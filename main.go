// main is the entry point for the injuryscope CLI.
package main

import (
	"github.com/huangsam/injuryscope/cmd"
	"github.com/huangsam/injuryscope/internal/contract"
	"github.com/huangsam/injuryscope/internal/iocache"
	"github.com/huangsam/injuryscope/internal/logging"
)

func main() {
	defer iocache.CloseStores()
	defer func() { _ = logging.Default().Sync() }()

	cmd.SetStoreManager(iocache.Manager)
	if err := cmd.Execute(); err != nil {
		iocache.CloseStores()
		contract.LogFatal("Error starting CLI", err)
	}
}
