package main

import "github.com/frahmantamala/credit-payments/cmd"

func main() {
	cmd.Execute()
}
