package main

import "github.com/ValentinKolb/sysprop/cmd"

func main() {
	cmd.Execute()
}
