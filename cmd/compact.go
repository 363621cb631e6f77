package cmd

import (
	"fmt"
	"os"
)

// Compact compacts the vault database to reclaim unused space
func Compact(e *Env) {
	path := e.Config.VaultPath

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			HandleError(errNoVault)
		}
		HandleError(err)
	}
	sizeBefore := info.Size()

	s, err := OpenVault(e)
	if err != nil {
		HandleError(err)
	}
	defer s.Close()

	if err := s.DB.Compact(); err != nil {
		HandleError(err)
	}

	info, err = os.Stat(path)
	if err != nil {
		HandleError(err)
	}
	sizeAfter := info.Size()

	fmt.Printf("Compacted: %s -> %s\n", formatSize(sizeBefore), formatSize(sizeAfter))
}
