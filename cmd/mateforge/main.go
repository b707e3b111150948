// Command mateforge is the UCI engine binary: it wires stdin/stdout to
// the uci.Engine command loop, following the teacher's own cmd
// structure of one thin main per binary.
package main

import (
	"os"

	"mateforge/uci"
)

func main() {
	uci.NewEngine(os.Stdout).Run(os.Stdin)
}
