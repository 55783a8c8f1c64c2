package main

import "github.com/shouni/go-jaundice-rate/cmd"

func main() {
	cmd.Execute()
}
