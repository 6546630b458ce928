// Command rowql runs select/where/order by/join/limit queries over rows read
// from JSON, YAML or SQLite.
package main

import "github.com/asaidimu/rowql/cli"

func main() {
	cli.Execute()
}
