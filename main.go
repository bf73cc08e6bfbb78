// SPDX-License-Identifier: MPL-2.0

package main

import cmd "uniweb-cli/cmd/uniweb"

func main() {
	cmd.Execute()
}
