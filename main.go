package main

import "github.com/safetyops/permit-management/cmd"

func main() {
	cmd.Execute()
}
