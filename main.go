package main

import "github.com/juicecultus/crosspoint-reader-x4/cmd"

func main() {
	cmd.Execute()
}
