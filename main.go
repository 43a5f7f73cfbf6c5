// SPDX-License-Identifier: MPL-2.0

package main

import cmd "github.com/mrepack/mrepack/cmd/mrepack"

func main() {
	cmd.Execute()
}
