package main

import "github.com/lolPants/NorthstarMasterServer/internal/cli"

func main() {
	cli.Execute()
}
