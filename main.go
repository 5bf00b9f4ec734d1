package main

import "github.com/imbi7py/snafu/cmd"

func main() {
	cmd.Execute()
}
