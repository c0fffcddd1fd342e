// Command ansera is a local-first knowledge assistant: it indexes
// knowledge snippets with hybrid lexical/vector retrieval and answers
// questions strictly from what is indexed.
package main

import "github.com/custodia-labs/ansera/internal/adapters/driving/cli"

func main() {
	cli.Execute()
}
