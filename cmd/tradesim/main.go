package main

import (
	_ "github.com/rgallant/tradesim/broker/sim"
	"github.com/rgallant/tradesim/internal/cli"
)

func main() {
	cli.Execute()
}
