package main

import "github.com/gonzalo0909/lapa-casa-hostel-sub001/cmd"

func main() {
	cmd.Execute()
}
