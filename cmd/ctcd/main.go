package main

import "github.com/soniq-ml/ctcd/cmd/ctcd/cmd"

func main() {
	cmd.Execute()
}
