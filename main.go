package main

import "video-input-form/cmd"

func main() {
	cmd.Execute()
}
