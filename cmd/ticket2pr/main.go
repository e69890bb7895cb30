// Command ticket2pr turns a Jira issue into a pull request.
package main

import (
	"os"

	"github.com/bengabay11/ticket2pr/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
