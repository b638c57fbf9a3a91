package main

import (
	"os"

	"github.com/doha-kr/siteaudit/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
