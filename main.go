// SPDX-License-Identifier: MIT
package main

import "github.com/skaphos/lantern/cmd/lantern"

var execute = lantern.Execute

func main() {
	execute()
}
