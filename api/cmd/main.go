package main

import (
	api "Board/api"
)

func main() {
	api.Run()
}
