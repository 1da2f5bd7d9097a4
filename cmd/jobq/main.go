package main

import (
	"github.com/luohongchen1993/job-queue/internal/cli"
)

func main() {
	cli.Execute()
}
