package main

import "health-companion-backend/cmd"

func main() {
	cmd.Execute()
}
