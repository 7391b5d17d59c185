package main

import "github.com/lukman83/mhe-storefront/cmd"

func main() {
	cmd.Execute()
}
