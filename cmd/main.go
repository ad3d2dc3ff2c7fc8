package main

import (
	cmd "github.com/scget/scget/cmd/scget"
)

func main() {
	cmd.Execute()
}
