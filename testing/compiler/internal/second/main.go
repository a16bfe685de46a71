package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Printf("second: %v\n", os.Args[1:])
}
