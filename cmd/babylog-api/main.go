package main

import (
	"os"

	"github.com/babylog/babylog/apiservice"
)

func main() {
	if err := apiservice.Run(); err != nil {
		os.Exit(1)
	}
}
