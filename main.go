package main

import (
	"log"

	"github.com/monomemo/monomemo/cmd"
	"github.com/monomemo/monomemo/config"
)

func main() {
	log.Printf("monomemo %s (%s)", config.Version, config.CommitHash)
	cmd.Execute()
}
