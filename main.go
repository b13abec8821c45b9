package main

import (
	_ "time/tzdata"

	"github.com/frahmantamala/linkup-hub/cmd"
)

func main() {
	cmd.Execute()
}
