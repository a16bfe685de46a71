package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Printf("first: %v\n", os.Args[1:])
}
