// conflict-marker labels open pull requests that have merge conflicts.
package main

import (
	"os"

	"github.com/vilaca/conflict-marker/internal/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
