package main

import "github.com/fedya-eremin/ms-ws/cmd/eventproxy/cmd"

func main() {
	cmd.Execute()
}
