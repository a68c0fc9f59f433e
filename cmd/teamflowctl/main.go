package main

import (
	"os"

	"github.com/dmitrijs2005/teamflow/internal/ctl"
)

func main() {
	os.Exit(ctl.Execute())
}
