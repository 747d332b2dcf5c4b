package main

import (
	miniwolf "github.com/xdab/miniwolf/src"
)

func main() {
	miniwolf.BitclkMain()
}
