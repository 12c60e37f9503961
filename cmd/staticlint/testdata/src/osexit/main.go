package main

import "os"

func run() int { return 0 }

func exit() {
	os.Exit(2)
}

func main() {
	defer exit()
	os.Exit(run()) // want `os.Exit call is forbidden in main function: os.Exit\(run\(\)\)`
}
